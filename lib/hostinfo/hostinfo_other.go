// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package hostinfo

import (
	"os"
	"runtime"
)

// Probe collects what the runtime knows about this host. Without
// /proc and /sys only the hostname, architecture, and CPU count are
// available.
func Probe() Info {
	hostname, _ := os.Hostname()
	return Info{
		Hostname:     hostname,
		Kernel:       runtime.GOOS,
		Architecture: runtime.GOARCH,
		LogicalCPUs:  runtime.NumCPU(),
	}
}
