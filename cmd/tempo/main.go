// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// tempo measures and exercises high-precision waits on the local host:
// it calibrates the wait resolution, persists and checks calibration
// profiles, runs waits, one-shots, repeating callbacks, and periodic
// timers, and benchmarks wait accuracy into sample archives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own verdict (profile check) return
		// an ExitError; don't add an "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Root().Execute(ctx, os.Args[1:])
}
