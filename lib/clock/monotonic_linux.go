// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package clock

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Monotonic returns a Clock backed by CLOCK_MONOTONIC and nanosleep(2).
// Returns an error when the kernel does not provide CLOCK_MONOTONIC,
// in which case no timing guarantee can be made.
func Monotonic() (Clock, error) {
	var resolution unix.Timespec
	if err := unix.ClockGetres(unix.CLOCK_MONOTONIC, &resolution); err != nil {
		return nil, fmt.Errorf("probing CLOCK_MONOTONIC resolution: %w", err)
	}
	var now unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &now); err != nil {
		return nil, fmt.Errorf("reading CLOCK_MONOTONIC: %w", err)
	}
	return linuxClock{resolution: time.Duration(resolution.Nano())}, nil
}

type linuxClock struct {
	// resolution is the kernel-reported granularity of
	// CLOCK_MONOTONIC, not the granularity of nanosleep.
	resolution time.Duration
}

func (linuxClock) Ticks() int64 {
	var now unix.Timespec
	// Availability was established in Monotonic.
	_ = unix.ClockGettime(unix.CLOCK_MONOTONIC, &now)
	return now.Nano()
}

func (linuxClock) Frequency() int64 { return nanosPerSecond }

func (linuxClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	request := unix.NsecToTimespec(int64(d))
	// EINTR returns early with the remainder unslept. Callers re-read
	// the clock after every sleep, so the remainder is not retried.
	_ = unix.Nanosleep(&request, nil)
}

func (c linuxClock) Name() string {
	return fmt.Sprintf("clock_gettime(CLOCK_MONOTONIC) res=%v + nanosleep", c.resolution)
}
