// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// defaultReadCost is the simulated cost of a Ticks call when
// FakeOptions.ReadCost is not set.
const defaultReadCost = time.Microsecond

// FakeOptions configures a FakeClock.
type FakeOptions struct {
	// Start is the initial reading in nanoseconds.
	Start int64

	// ReadCost is the simulated time consumed by each Ticks call.
	// Zero selects one microsecond: a spin loop on a clock that
	// never advances would never terminate.
	ReadCost time.Duration

	// SleepOverhead returns how much longer than requested a sleep
	// takes. Nil means sleeps are honored exactly.
	SleepOverhead func(requested time.Duration) time.Duration
}

// Fake returns a FakeClock configured by options.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(options FakeOptions) *FakeClock {
	readCost := options.ReadCost
	if readCost <= 0 {
		readCost = defaultReadCost
	}
	clock := &FakeClock{
		current:  options.Start,
		readCost: int64(readCost),
		overhead: options.SleepOverhead,
	}
	clock.sleepsChanged = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a simulated Clock for testing. Time advances when Ticks
// is read, when Sleep is called, and when Advance is called. Nothing
// ever blocks on real time.
type FakeClock struct {
	mu            sync.Mutex
	current       int64
	readCost      int64
	overhead      func(time.Duration) time.Duration
	sleeps        []time.Duration
	sleepsChanged *sync.Cond
}

// Ticks returns the current simulated reading, then advances the clock
// by the configured read cost.
func (c *FakeClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current += c.readCost
	return now
}

// Frequency returns one tick per nanosecond.
func (c *FakeClock) Frequency() int64 { return nanosPerSecond }

// Name identifies the fake source.
func (c *FakeClock) Name() string { return "fake" }

// Sleep records the request and advances simulated time by d plus the
// configured overhead. Returns immediately.
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.current += int64(d)
		if c.overhead != nil {
			c.current += int64(c.overhead(d))
		}
	}
	c.sleepsChanged.Broadcast()
}

// Advance moves simulated time forward by d without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current += int64(d)
}

// Sleeps returns a copy of every sleep request recorded since the
// clock was created or ResetSleeps was last called, in call order.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]time.Duration, len(c.sleeps))
	copy(result, c.sleeps)
	return result
}

// SleepCount returns the number of recorded sleep requests.
func (c *FakeClock) SleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleeps)
}

// ResetSleeps discards the recorded sleep requests. Tests call this
// after constructing an engine so calibration sleeps do not appear in
// assertions about a later wait.
func (c *FakeClock) ResetSleeps() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = nil
}

// WaitForSleeps blocks until at least n sleep requests have been
// recorded. Use it to synchronize with a goroutine that is expected
// to be inside a wait.
func (c *FakeClock) WaitForSleeps(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.sleeps) < n {
		c.sleepsChanged.Wait()
	}
}
