// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package clock

import "time"

// Monotonic returns a Clock backed by the Go runtime's monotonic clock
// and time.Sleep. Used on platforms without a direct CLOCK_MONOTONIC
// binding.
func Monotonic() (Clock, error) {
	return runtimeClock{epoch: time.Now()}, nil
}

type runtimeClock struct {
	// epoch carries a monotonic reading; time.Since uses it and
	// ignores the wall component.
	epoch time.Time
}

func (c runtimeClock) Ticks() int64 { return int64(time.Since(c.epoch)) }

func (runtimeClock) Frequency() int64 { return nanosPerSecond }

func (runtimeClock) Sleep(d time.Duration) { time.Sleep(d) }

func (runtimeClock) Name() string { return "runtime monotonic + time.Sleep" }
