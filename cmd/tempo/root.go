// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/bureau-foundation/tempo/cmd/tempo/cli"

// Root builds the complete tempo command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "tempo",
		Description: `tempo: high-precision waits and timers.

Calibrates how coarse the host's smallest sleep is, then waits by
sleeping in shrinking steps and spinning out the last fraction, so a
wait never returns early and rarely overshoots by more than the
calibrated resolution.`,
		Subcommands: []*cli.Command{
			calibrateCommand(),
			waitCommand(),
			onceCommand(),
			everyCommand(),
			timerCommand(),
			benchCommand(),
			profileCommand(),
			samplesCommand(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Measure the wait resolution and save it as this host's profile",
				Command:     "tempo calibrate --save",
			},
			{
				Description: "Wait 2.5 milliseconds and report the overshoot",
				Command:     "tempo wait 2.5ms",
			},
			{
				Description: "Run a 10ms periodic timer for five seconds",
				Command:     "tempo timer 10ms --for 5s",
			},
			{
				Description: "Benchmark wait accuracy and keep the raw samples",
				Command:     "tempo bench --durations 0.5,1,10 --iterations 200 --samples bench.tmps",
			},
			{
				Description: "Check that the saved profile still matches this host",
				Command:     "tempo profile check",
			},
		},
	}
}
