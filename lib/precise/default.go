// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package precise

import (
	"sync"
	"time"

	"github.com/bureau-foundation/tempo/lib/clock"
)

// defaultEngine calibrates the process-wide engine on first use. A host
// without a monotonic clock cannot honor any timing contract, so
// failure is fatal.
var defaultEngine = sync.OnceValue(func() *Engine {
	monotonic, err := clock.Monotonic()
	if err != nil {
		panic("precise: no usable monotonic clock: " + err.Error())
	}
	engine, err := New(monotonic)
	if err != nil {
		panic("precise: calibration failed: " + err.Error())
	}
	return engine
})

// Default returns the process-wide engine, calibrating it on the first
// call.
func Default() *Engine {
	return defaultEngine()
}

// Now returns the current monotonic time in milliseconds.
func Now() float64 { return Default().Now() }

// WaitResolution returns the process-wide wait resolution in
// milliseconds.
func WaitResolution() float64 { return Default().WaitResolution() }

// Wait blocks for at least ms milliseconds. See Engine.Wait.
func Wait(ms float64) { Default().Wait(ms) }

// WaitDuration blocks for at least d. See Engine.Wait.
func WaitDuration(d time.Duration) { Default().WaitDuration(d) }

// Once runs callback once after ms milliseconds. See Engine.Once.
func Once(ms float64, callback func()) *Handle { return Default().Once(ms, callback) }

// Every runs callback every ms milliseconds until it returns false.
// See Engine.Every.
func Every(ms float64, callback func() bool) *Handle { return Default().Every(ms, callback) }

// NewTimer returns a disabled Timer on the process-wide engine.
func NewTimer() *Timer { return Default().NewTimer() }
