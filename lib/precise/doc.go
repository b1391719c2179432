// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package precise measures elapsed time and schedules callbacks with
// sub-millisecond accuracy on hosts whose scheduler cannot honor short
// sleeps tightly, such as single-board computers.
//
// An [Engine] is built once per process from a [clock.Clock]. On
// construction it calibrates: it measures how long a one-microsecond
// sleep actually takes on this host and multiplies the worst of ten
// trials by a safety margin. The result, the wait resolution, is the
// shortest duration the engine will still try to sleep through; anything
// shorter is spun out on the clock.
//
// [Engine.Wait] approaches its deadline down a ladder of sleep chunks
// (500ms while more than a second remains, then 50ms, 5ms, 500µs, and
// finally 1µs sleeps down to the wait resolution) and spins the last
// stretch. Every rung re-reads the clock, so an oversleeping scheduler
// costs at most one resolution of overshoot rather than accumulating.
//
// On top of the wait engine:
//
//   - [Engine.Once] runs a callback once after a delay measured from the
//     call. It cannot be cancelled.
//   - [Engine.Every] runs a callback at fixed multiples of an interval
//     from an anchor until the callback returns false.
//   - [Timer] is a resettable stopwatch with a periodic mode. Enabling
//     it starts a background loop that notifies subscribers on every
//     interval boundary; disabling it waits for that loop to exit, so no
//     notification is delivered after SetEnabled(false) returns.
//
// Package-level functions ([Now], [WaitResolution], [Wait], [Once],
// [Every], [NewTimer]) use a process-wide engine on the host's
// monotonic clock, calibrated on first use. If the host has no usable
// monotonic clock the first call panics: there is nothing sensible to
// degrade to.
//
// All durations in this package are float64 milliseconds, matching the
// precision the engine works at. [Engine.WaitDuration] accepts a
// time.Duration for callers that have one.
package precise
