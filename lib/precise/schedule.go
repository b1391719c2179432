// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package precise

import (
	"context"
	"math"
	"sync/atomic"
)

// Handle observes a scheduled Once or Every. It cannot cancel it.
type Handle struct {
	done  chan struct{}
	fired atomic.Int64
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Done returns a channel that is closed once the scheduled work has
// finished: after the callback returned for Once, after the callback
// returned false for Every.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the scheduled work finishes or ctx ends. Returns
// ctx.Err() in the latter case; the work keeps running regardless.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fired returns how many times the callback has been invoked so far.
func (h *Handle) Fired() int {
	return int(h.fired.Load())
}

// Once runs callback on its own goroutine ms milliseconds after Once is
// called. The delay is measured from the call, not from when the
// goroutine starts. A delay below epsilon runs the callback right away
// on that goroutine. Once cannot be cancelled.
//
// A panicking callback is not recovered.
func (e *Engine) Once(ms float64, callback func()) *Handle {
	start := e.clock.Ticks()
	handle := newHandle()
	go func() {
		defer close(handle.done)
		if ms >= epsilon {
			e.waitFrom(start, ms, nil)
		}
		handle.fired.Add(1)
		callback()
	}()
	return handle
}

// Every calls callback at each multiple of ms milliseconds after the
// moment Every is called, until callback returns false. Firing times
// are computed from that anchor rather than from the previous firing,
// so a slow callback delays at most its own successor and the schedule
// does not drift. If a callback overruns one or more boundaries, the
// next firing lands on the first boundary still ahead.
//
// An interval below epsilon, or NaN, never fires; the returned Handle
// is already done. The callback's return value is the only way to stop.
func (e *Engine) Every(ms float64, callback func() bool) *Handle {
	handle := newHandle()
	if !(ms >= epsilon) {
		close(handle.done)
		return handle
	}
	anchor := e.clock.Ticks()
	go func() {
		defer close(handle.done)
		for {
			e.waitFrom(anchor, e.nextBoundary(anchor, ms), nil)
			handle.fired.Add(1)
			if !callback() {
				return
			}
		}
	}()
	return handle
}

// usableInterval reports whether ms can drive a periodic loop. Written
// so that NaN is rejected.
func usableInterval(ms float64) bool {
	return ms > epsilon
}

// nextBoundary returns the offset from anchor, in milliseconds, of the
// first multiple of interval strictly after the time elapsed so far.
// This is the elapsed time plus the part of the current interval not
// yet waited out.
func (e *Engine) nextBoundary(anchor int64, interval float64) float64 {
	elapsed := e.since(anchor)
	return elapsed + (interval - math.Mod(elapsed, interval))
}
