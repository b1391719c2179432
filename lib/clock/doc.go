// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the raw time source used by tempo's precise
// timing engine: a monotonic tick counter, the fixed frequency needed to
// convert ticks to wall durations, and the operating system's sleep
// primitive.
//
// Production code obtains a Clock from [Monotonic]. On Linux the ticks
// come from clock_gettime(CLOCK_MONOTONIC) and Sleep is nanosleep(2),
// both via golang.org/x/sys/unix, so the engine sees the kernel's own
// timer behavior rather than the Go runtime's timer wheel. Other
// platforms fall back to the runtime's monotonic clock and time.Sleep.
//
// The Clock never reports wall-clock time. Readings are meaningful only
// as differences from other readings of the same Clock.
//
// # FakeClock
//
// [Fake] returns a simulated clock for deterministic tests. Time moves
// forward on its own: every Ticks call costs a configurable amount of
// simulated time, and every Sleep advances time by the requested
// duration plus an optional overhead. The sleep requests are recorded
// so tests can assert the exact sequence of sleeps a wait issued:
//
//	c := clock.Fake(clock.FakeOptions{ReadCost: time.Microsecond})
//	engine, _ := precise.New(c)
//	c.ResetSleeps()
//	engine.Wait(12)
//	c.Sleeps() // [5ms 5ms 500µs 500µs 500µs 500µs ...]
//
// Because spinning on a FakeClock consumes simulated time, spin loops
// always terminate.
package clock
