// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package precise

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/tempo/lib/clock"
	"github.com/bureau-foundation/tempo/lib/testutil"
)

// maxCollected bounds how many firings a collector keeps. On a fake
// clock an enabled timer fires as fast as the CPU allows.
const maxCollected = 10000

// collector records Timer firings and signals each one without ever
// blocking the timer's loop.
type collector struct {
	mu     sync.Mutex
	events []Elapsed
	notify chan struct{}
}

func newCollector() *collector {
	return &collector{notify: make(chan struct{}, 1)}
}

func (c *collector) handle(event Elapsed) {
	c.mu.Lock()
	if len(c.events) < maxCollected {
		c.events = append(c.events, event)
	}
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *collector) snapshot() []Elapsed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Elapsed(nil), c.events...)
}

// waitFor blocks until ready reports true for the recorded firings,
// and returns them.
func (c *collector) waitFor(t *testing.T, description string, ready func([]Elapsed) bool) []Elapsed {
	t.Helper()
	for {
		events := c.snapshot()
		if ready(events) {
			return events
		}
		testutil.RequireReceive(t, c.notify, 5*time.Second, description)
	}
}

func atLeast(n int) func([]Elapsed) bool {
	return func(events []Elapsed) bool { return len(events) >= n }
}

// newFakeTimer returns a Timer on a fake-clock engine that is closed
// when the test ends.
func newFakeTimer(t *testing.T) (*Timer, *clock.FakeClock) {
	t.Helper()
	engine, fake := newFakeEngine(t, clock.FakeOptions{})
	timer := engine.NewTimer()
	t.Cleanup(func() { timer.Close() })
	return timer, fake
}

func TestTimerStopwatchUnits(t *testing.T) {
	timer, fake := newFakeTimer(t)
	fake.Advance(250 * time.Millisecond)

	// Every read costs 1µs of simulated time.
	testutil.RequireNear(t, timer.ElapsedMilliseconds(), 250, 0.01, "milliseconds")
	testutil.RequireNear(t, timer.ElapsedSeconds(), 0.25, 1e-5, "seconds")
	testutil.RequireNear(t, timer.ElapsedMicroseconds(), 250_000, 10, "microseconds")
	testutil.RequireNear(t, timer.ElapsedNanoseconds(), 250_000_000, 10_000, "nanoseconds")
}

func TestTimerResetRestartsStopwatch(t *testing.T) {
	timer, fake := newFakeTimer(t)
	fake.Advance(100 * time.Millisecond)
	timer.Reset()
	fake.Advance(5 * time.Millisecond)
	testutil.RequireNear(t, timer.ElapsedMilliseconds(), 5, 0.01, "after reset")
}

func TestTimerEnableRequiresInterval(t *testing.T) {
	timer, _ := newFakeTimer(t)

	timer.SetEnabled(true)
	if timer.Enabled() {
		t.Fatal("timer enabled without an interval")
	}

	timer.SetInterval(10)
	timer.SetEnabled(true)
	if !timer.Enabled() {
		t.Fatal("timer not enabled with a 10ms interval")
	}
	timer.SetEnabled(false)
	if timer.Enabled() {
		t.Fatal("timer still enabled after SetEnabled(false)")
	}
}

func TestTimerSetEnabledIsIdempotent(t *testing.T) {
	timer, _ := newFakeTimer(t)
	timer.SetInterval(10)

	timer.SetEnabled(true)
	timer.SetEnabled(true)
	if generation := timer.generation.Load(); generation != 1 {
		t.Fatalf("generation after two enables = %d, want 1", generation)
	}
	timer.SetEnabled(false)
	timer.SetEnabled(false)
	if generation := timer.generation.Load(); generation != 2 {
		t.Fatalf("generation after two disables = %d, want 2", generation)
	}
}

func TestTimerFiresOnIntervalBoundaries(t *testing.T) {
	timer, _ := newFakeTimer(t)
	events := newCollector()
	timer.Subscribe(events.handle)

	timer.SetInterval(10)
	timer.SetEnabled(true)
	recorded := events.waitFor(t, "five firings", atLeast(5))
	timer.SetEnabled(false)

	for index, event := range recorded[:5] {
		if event.Sequence != uint64(index+1) {
			t.Errorf("firing %d has sequence %d", index+1, event.Sequence)
		}
		testutil.RequireNear(t, event.ScheduledMS, float64(10*(index+1)), 1e-6, "scheduled offset %d", index+1)
		if lateness := event.LatenessMS(); lateness < 0 || lateness > 0.01 {
			t.Errorf("firing %d lateness = %gms", index+1, lateness)
		}
	}
}

func TestTimerDisableStopsNotifications(t *testing.T) {
	timer, _ := newFakeTimer(t)
	var count atomic.Int64
	signal := make(chan struct{}, 1)
	timer.Subscribe(func(Elapsed) {
		count.Add(1)
		select {
		case signal <- struct{}{}:
		default:
		}
	})

	timer.SetInterval(1)
	timer.SetEnabled(true)
	testutil.RequireReceive(t, signal, 5*time.Second, "first firing")
	timer.SetEnabled(false)

	// The loop has exited; anything still buffered predates the disable.
	select {
	case <-signal:
	default:
	}
	stopped := count.Load()
	testutil.RequireNoReceive(t, signal, 50*time.Millisecond, "firing after disable")
	if got := count.Load(); got != stopped {
		t.Fatalf("%d firings delivered after disable", got-stopped)
	}
}

func TestTimerReenableRestartsSequence(t *testing.T) {
	timer, _ := newFakeTimer(t)
	events := newCollector()
	timer.Subscribe(events.handle)
	timer.SetInterval(10)

	timer.SetEnabled(true)
	events.waitFor(t, "first loop", atLeast(2))
	timer.SetEnabled(false)
	firstLoop := len(events.snapshot())

	timer.SetEnabled(true)
	recorded := events.waitFor(t, "second loop", atLeast(firstLoop+1))
	timer.SetEnabled(false)

	restart := recorded[firstLoop]
	if restart.Sequence != 1 {
		t.Fatalf("first firing after re-enable has sequence %d, want 1", restart.Sequence)
	}
	testutil.RequireNear(t, restart.ScheduledMS, 10, 1e-6, "re-anchored boundary")
}

func TestTimerResetRestartsLoop(t *testing.T) {
	timer, _ := newFakeTimer(t)
	events := newCollector()
	timer.Subscribe(events.handle)
	timer.SetInterval(10)
	timer.SetEnabled(true)
	events.waitFor(t, "first firing", atLeast(1))

	timer.Reset()
	if !timer.Enabled() {
		t.Fatal("Reset disabled the timer")
	}

	// The old loop's first firing is the first recorded; the new
	// loop's first firing is the next one with sequence 1.
	restarted := func(events []Elapsed) bool {
		for _, event := range events[1:] {
			if event.Sequence == 1 {
				return true
			}
		}
		return false
	}
	recorded := events.waitFor(t, "firing after reset", restarted)
	timer.SetEnabled(false)

	for _, event := range recorded[1:] {
		if event.Sequence == 1 {
			testutil.RequireNear(t, event.ScheduledMS, 10, 1e-6, "first boundary after reset")
			return
		}
	}
}

func TestTimerSetIntervalPickedUpByRunningLoop(t *testing.T) {
	timer, _ := newFakeTimer(t)
	events := newCollector()
	timer.Subscribe(events.handle)
	timer.SetInterval(10)
	timer.SetEnabled(true)
	events.waitFor(t, "first firing", atLeast(1))

	timer.SetInterval(25)
	seen := len(events.snapshot())
	// The firing in flight may still use the old interval; the one
	// after it cannot.
	recorded := events.waitFor(t, "firings at the new interval", atLeast(seen+2))
	timer.SetEnabled(false)

	last := recorded[seen+1]
	if remainder := math.Mod(last.ScheduledMS, 25); remainder > 1e-6 && 25-remainder > 1e-6 {
		t.Fatalf("firing scheduled at %gms is not on a 25ms boundary", last.ScheduledMS)
	}
}

func TestTimerInvalidIntervalDisables(t *testing.T) {
	for _, interval := range []float64{0, -1, epsilon, math.NaN()} {
		timer, _ := newFakeTimer(t)
		timer.SetInterval(10)
		timer.SetEnabled(true)

		timer.SetInterval(interval)
		if timer.Enabled() {
			t.Fatalf("SetInterval(%g) left the timer enabled", interval)
		}
		timer.SetEnabled(true)
		if timer.Enabled() {
			t.Fatalf("SetEnabled(true) succeeded with interval %g", interval)
		}
	}
}

func TestTimerNaNIntervalNeverFires(t *testing.T) {
	timer, fake := newFakeTimer(t)
	events := newCollector()
	timer.Subscribe(events.handle)

	timer.SetInterval(math.NaN())
	timer.SetEnabled(true)
	if timer.Enabled() {
		t.Fatal("SetEnabled(true) succeeded with a NaN interval")
	}
	if generation := timer.generation.Load(); generation != 0 {
		t.Fatalf("generation = %d, want 0", generation)
	}

	fake.Advance(time.Second)
	testutil.RequireNoReceive(t, events.notify, 50*time.Millisecond, "NaN interval fired")
}

func TestTimerCloseIsFinal(t *testing.T) {
	timer, fake := newFakeTimer(t)
	events := newCollector()
	timer.Subscribe(events.handle)
	timer.SetInterval(5)
	timer.SetEnabled(true)
	events.waitFor(t, "first firing", atLeast(1))

	if err := timer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := timer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if timer.Enabled() {
		t.Fatal("timer enabled after Close")
	}

	timer.SetEnabled(true)
	if timer.Enabled() {
		t.Fatal("closed timer was re-enabled")
	}
	if len(timer.subscribers) != 0 {
		t.Fatalf("%d subscribers survive Close", len(timer.subscribers))
	}

	// The stopwatch keeps working.
	timer.Reset()
	fake.Advance(3 * time.Millisecond)
	testutil.RequireNear(t, timer.ElapsedMilliseconds(), 3, 0.01, "stopwatch after close")
}

func TestTimerSubscribersRunInOrderAndUnsubscribe(t *testing.T) {
	timer, _ := newFakeTimer(t)

	var mu sync.Mutex
	var order []string
	record := func(name string, event Elapsed) {
		mu.Lock()
		defer mu.Unlock()
		if event.Sequence <= 3 {
			order = append(order, name)
		}
	}

	reached := make(chan struct{})
	var closeReached sync.Once
	timer.Subscribe(func(event Elapsed) {
		record("a", event)
		if event.Sequence == 3 {
			closeReached.Do(func() { close(reached) })
		}
	})
	var unsubscribeB func()
	unsubscribeB = timer.Subscribe(func(event Elapsed) {
		record("b", event)
		unsubscribeB()
		unsubscribeB()
	})

	timer.SetInterval(10)
	timer.SetEnabled(true)
	testutil.RequireClosed(t, reached, 5*time.Second, "third firing")
	timer.SetEnabled(false)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"a", "b", "a", "a"}
	if len(order) != len(want) {
		t.Fatalf("handler order = %v, want %v", order, want)
	}
	for index := range want {
		if order[index] != want[index] {
			t.Fatalf("handler order = %v, want %v", order, want)
		}
	}
}

func TestTimerRealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time timer in short mode")
	}
	timer := NewTimer()
	defer timer.Close()

	var count atomic.Int64
	var mu sync.Mutex
	var scheduled []float64
	timer.Subscribe(func(event Elapsed) {
		count.Add(1)
		mu.Lock()
		scheduled = append(scheduled, event.ScheduledMS)
		mu.Unlock()
	})

	timer.SetInterval(20)
	timer.SetEnabled(true)
	Wait(110)
	timer.SetEnabled(false)

	fired := count.Load()
	if fired < 4 || fired > 6 {
		t.Errorf("20ms timer fired %d times in 110ms, want 5 ± 1", fired)
	}

	Wait(60)
	if after := count.Load(); after != fired {
		t.Fatalf("%d firings after disable", after-fired)
	}

	mu.Lock()
	defer mu.Unlock()
	// A descheduled loop skips boundaries but never leaves the grid.
	for index, offset := range scheduled {
		testutil.RequireNear(t, offset, 20*math.Round(offset/20), 1e-6, "scheduled offset %d", index+1)
	}
}

func TestTimerResetRealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time timer in short mode")
	}
	timer := NewTimer()
	defer timer.Close()

	events := make(chan Elapsed, 64)
	timer.Subscribe(func(event Elapsed) {
		select {
		case events <- event:
		default:
		}
	})
	timer.SetInterval(20)
	timer.SetEnabled(true)
	testutil.RequireReceive(t, events, 5*time.Second, "first firing")

	timer.Reset()
	// The old loop has exited and the new one cannot fire for another
	// 20ms; drain whatever the old loop left.
	for drained := false; !drained; {
		select {
		case <-events:
		default:
			drained = true
		}
	}

	first := testutil.RequireReceive(t, events, 5*time.Second, "first firing after reset")
	if first.Sequence != 1 {
		t.Fatalf("first firing after Reset has sequence %d", first.Sequence)
	}
	testutil.RequireNear(t, first.ScheduledMS, 20, 1e-6, "first boundary after reset")
}
