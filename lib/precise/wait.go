// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package precise

import (
	"context"
	"time"
)

// Wait blocks until at least ms milliseconds have passed on the
// engine's clock since the call began. Non-positive durations return
// immediately.
//
// Durations below WaitResolution are spun out entirely. Longer ones
// descend the ladder, re-reading the clock before every sleep, sleep
// in probe-sized steps while more than WaitResolution remains, and
// spin the rest.
func (e *Engine) Wait(ms float64) {
	e.waitFrom(e.clock.Ticks(), ms, nil)
}

// WaitDuration is Wait for a time.Duration.
func (e *Engine) WaitDuration(d time.Duration) {
	e.Wait(durationMS(d))
}

// WaitContext is Wait that gives up when ctx ends. ctx is checked
// before every sleep, so cancellation takes effect within one ladder
// chunk. Returns ctx.Err() if the wait was abandoned.
func (e *Engine) WaitContext(ctx context.Context, ms float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := func() bool { return ctx.Err() != nil }
	if !e.waitFrom(e.clock.Ticks(), ms, stop) {
		return ctx.Err()
	}
	return nil
}

// Measure is Wait that reports how long it actually blocked.
func (e *Engine) Measure(ms float64) time.Duration {
	start := e.clock.Ticks()
	e.waitFrom(start, ms, nil)
	return e.sinceDuration(start)
}

// waitFrom blocks until ms milliseconds have passed since the reading
// start. When stop is non-nil it is polled before every sleep; if it
// returns true the wait is abandoned and waitFrom returns false.
// The final spin is never interrupted: it is shorter than the
// resolution.
func (e *Engine) waitFrom(start int64, ms float64, stop func() bool) bool {
	if ms <= 0 {
		return true
	}

	if ms >= e.resolution {
		for _, rung := range e.rungs {
			for ms-e.since(start) > rung.aboveMS {
				if stop != nil && stop() {
					return false
				}
				e.clock.Sleep(rung.chunk)
			}
		}
		for ms-e.since(start) > e.resolution {
			if stop != nil && stop() {
				return false
			}
			e.clock.Sleep(probeSleep)
		}
	}

	for e.since(start) < ms {
		// Spin.
	}
	return true
}
