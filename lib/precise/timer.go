// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package precise

import (
	"math"
	"sync"
	"sync/atomic"
)

// Elapsed is delivered to Timer subscribers on every periodic firing.
type Elapsed struct {
	// Sequence counts firings since the periodic loop started, from 1.
	Sequence uint64

	// ScheduledMS is the offset from the loop's anchor, in
	// milliseconds, that this firing was scheduled for. Always a
	// multiple of the interval in effect when it was scheduled.
	ScheduledMS float64

	// ActualMS is the offset from the anchor at which the firing was
	// delivered.
	ActualMS float64
}

// LatenessMS returns how far past its scheduled offset the firing was
// delivered, in milliseconds.
func (e Elapsed) LatenessMS() float64 {
	return e.ActualMS - e.ScheduledMS
}

// Timer is a resettable stopwatch with an optional periodic mode.
//
// The stopwatch part (Reset and the Elapsed* readers) needs no
// background activity. The periodic part is controlled by SetInterval
// and SetEnabled: while enabled, a background goroutine notifies every
// subscriber at each multiple of the interval after the moment it was
// enabled.
//
// Cancellation uses a generation counter. Every enable or disable
// transition increments it; the background loop remembers the value it
// started with and exits, without firing, as soon as the two differ.
// SetEnabled(false) then waits for the loop to exit, so once it returns
// no further notification is delivered.
//
// Subscribers run on the background goroutine. They must not call
// SetEnabled(false), Reset, Close, or SetInterval with a non-positive
// interval: each of those waits for the loop the subscriber is running
// on and would deadlock.
type Timer struct {
	engine *Engine

	// mu serializes enable/disable transitions, including the wait
	// for the loop to exit. Readers never take it.
	mu       sync.Mutex
	loopDone chan struct{}
	closed   bool

	start      atomic.Int64
	interval   atomic.Uint64
	enabled    atomic.Bool
	generation atomic.Uint64

	subscribersMu sync.RWMutex
	subscribers   []subscriber
	nextID        uint64
}

type subscriber struct {
	id      uint64
	handler func(Elapsed)
}

// NewTimer returns a disabled Timer with no interval whose stopwatch
// starts now.
func (e *Engine) NewTimer() *Timer {
	timer := &Timer{engine: e}
	timer.start.Store(e.clock.Ticks())
	return timer
}

// Reset restarts the stopwatch. On an enabled Timer it also restarts
// the periodic loop: the old loop is stopped and a new one anchored at
// the reset, so the next firing comes one interval after Reset rather
// than after the original enable.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled.Load() {
		t.setEnabledLocked(false)
		t.start.Store(t.engine.clock.Ticks())
		t.setEnabledLocked(true)
		return
	}
	t.start.Store(t.engine.clock.Ticks())
}

// ElapsedMilliseconds returns the time since the last Reset (or
// creation) in milliseconds.
func (t *Timer) ElapsedMilliseconds() float64 {
	return t.engine.since(t.start.Load())
}

// ElapsedSeconds returns the time since the last Reset in seconds.
func (t *Timer) ElapsedSeconds() float64 {
	return t.ElapsedMilliseconds() / 1e3
}

// ElapsedMicroseconds returns the time since the last Reset in
// microseconds.
func (t *Timer) ElapsedMicroseconds() float64 {
	return t.ElapsedMilliseconds() * 1e3
}

// ElapsedNanoseconds returns the time since the last Reset in
// nanoseconds.
func (t *Timer) ElapsedNanoseconds() float64 {
	return t.ElapsedMilliseconds() * 1e6
}

// Interval returns the periodic interval in milliseconds.
func (t *Timer) Interval() float64 {
	return math.Float64frombits(t.interval.Load())
}

// SetInterval changes the periodic interval. A running loop picks up
// the new value when it schedules its next firing. An interval that is
// not above epsilon (NaN included) cannot drive the loop, so setting
// one disables the Timer.
func (t *Timer) SetInterval(ms float64) {
	t.interval.Store(math.Float64bits(ms))
	if usableInterval(ms) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setEnabledLocked(false)
}

// Enabled reports whether the periodic loop is running.
func (t *Timer) Enabled() bool {
	return t.enabled.Load()
}

// SetEnabled starts or stops the periodic loop. Enabling takes effect
// only when the interval exceeds epsilon and the Timer is not closed.
// Setting the current value does nothing. Disabling returns only after
// the loop has exited.
func (t *Timer) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setEnabledLocked(enabled)
}

func (t *Timer) setEnabledLocked(enabled bool) {
	if enabled && (t.closed || !usableInterval(t.Interval())) {
		enabled = false
	}
	if enabled == t.enabled.Load() {
		return
	}

	generation := t.generation.Add(1)
	t.enabled.Store(enabled)

	if enabled {
		done := make(chan struct{})
		t.loopDone = done
		anchor := t.engine.clock.Ticks()
		go t.run(generation, anchor, done)
		t.engine.logger.Debug("timer enabled", "interval_ms", t.Interval(), "generation", generation)
		return
	}

	if t.loopDone != nil {
		<-t.loopDone
		t.loopDone = nil
	}
	t.engine.logger.Debug("timer disabled", "generation", generation)
}

// run is the periodic loop. It fires at every interval boundary after
// anchor for as long as the Timer's generation still equals generation.
func (t *Timer) run(generation uint64, anchor int64, done chan struct{}) {
	defer close(done)
	stale := func() bool {
		return t.generation.Load() != generation
	}

	var sequence uint64
	for {
		interval := t.Interval()
		if !usableInterval(interval) {
			return
		}
		scheduled := t.engine.nextBoundary(anchor, interval)
		if !t.engine.waitFrom(anchor, scheduled, stale) || stale() {
			return
		}
		sequence++
		t.publish(Elapsed{
			Sequence:    sequence,
			ScheduledMS: scheduled,
			ActualMS:    t.engine.since(anchor),
		})
	}
}

// Subscribe registers handler to receive every periodic firing and
// returns a function that removes it. Handlers run in subscription
// order on the Timer's background goroutine. Unsubscribing from inside
// a handler is allowed; the removal applies from the next firing.
func (t *Timer) Subscribe(handler func(Elapsed)) (unsubscribe func()) {
	t.subscribersMu.Lock()
	defer t.subscribersMu.Unlock()
	t.nextID++
	id := t.nextID
	t.subscribers = append(t.subscribers, subscriber{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			t.subscribersMu.Lock()
			defer t.subscribersMu.Unlock()
			for index, existing := range t.subscribers {
				if existing.id == id {
					t.subscribers = append(t.subscribers[:index:index], t.subscribers[index+1:]...)
					return
				}
			}
		})
	}
}

func (t *Timer) publish(event Elapsed) {
	t.subscribersMu.RLock()
	subscribers := t.subscribers
	t.subscribersMu.RUnlock()
	for _, subscriber := range subscribers {
		subscriber.handler(event)
	}
}

// Close disables the Timer, waits for its loop to exit, and drops all
// subscribers. A closed Timer cannot be enabled again; its stopwatch
// keeps working. Close is idempotent and always returns nil.
func (t *Timer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setEnabledLocked(false)
	t.closed = true

	t.subscribersMu.Lock()
	t.subscribers = nil
	t.subscribersMu.Unlock()
	return nil
}
