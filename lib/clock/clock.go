// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// nanosPerSecond is the tick frequency of every Clock in this package.
// Frequency is still part of the interface so callers never assume it.
const nanosPerSecond = int64(time.Second)

// Clock is a monotonic time source paired with the host's sleep
// primitive.
type Clock interface {
	// Ticks returns the current monotonic reading. Readings never
	// decrease and are unaffected by wall-clock adjustments.
	Ticks() int64

	// Frequency returns the number of ticks per second. It is fixed
	// for the lifetime of the Clock.
	Frequency() int64

	// Sleep asks the operating system to suspend the calling
	// goroutine for at least d. The sleep may overshoot by an
	// arbitrary amount and may return early if interrupted; callers
	// that need a deadline must re-read Ticks afterwards.
	Sleep(d time.Duration)

	// Name identifies the underlying time source for diagnostics.
	Name() string
}

// Since returns the time elapsed between the reading start and the
// clock's current reading.
func Since(c Clock, start int64) time.Duration {
	return TicksToDuration(c, c.Ticks()-start)
}

// TicksToDuration converts a tick delta of c into a time.Duration.
func TicksToDuration(c Clock, ticks int64) time.Duration {
	frequency := c.Frequency()
	if frequency == nanosPerSecond {
		return time.Duration(ticks)
	}
	return time.Duration(float64(ticks) * float64(nanosPerSecond) / float64(frequency))
}
