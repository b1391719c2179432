// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/tempo/cmd/tempo/cli"
)

type waitParams struct {
	commonParams
	cli.JSONOutput
}

type waitResult struct {
	RequestedMS  float64 `json:"requested_ms"`
	ActualMS     float64 `json:"actual_ms"`
	OvershootMS  float64 `json:"overshoot_ms"`
	ResolutionMS float64 `json:"resolution_ms"`
}

func waitCommand() *cli.Command {
	var params waitParams

	return &cli.Command{
		Name:    "wait",
		Summary: "Wait once and report the overshoot",
		Description: `Calibrate, wait for the given duration, and report how long the
wait actually took. A bare number is milliseconds.`,
		Usage:  "tempo wait <duration> [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			requested, err := durationArg(args, "duration")
			if err != nil {
				return err
			}
			cfg, err := params.loadConfig()
			if err != nil {
				return err
			}
			engine, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}

			actual := float64(engine.Measure(requested)) / float64(time.Millisecond)
			result := waitResult{
				RequestedMS:  requested,
				ActualMS:     actual,
				OvershootMS:  actual - max(requested, 0),
				ResolutionMS: engine.WaitResolution(),
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}
			output := cli.Stdout()
			output.Field("requested", formatMS(result.RequestedMS))
			output.Field("actual", formatMS(result.ActualMS))
			output.StatusField("overshoot", formatMS(result.OvershootMS), overshootStatus(result.OvershootMS, result.ResolutionMS))
			output.Field("resolution", formatMS(result.ResolutionMS))
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Wait 1.5 milliseconds",
				Command:     "tempo wait 1.5",
			},
			{
				Description: "Wait 250 microseconds, JSON output",
				Command:     "tempo wait 250us --json",
			},
		},
	}
}

// overshootStatus colors an overshoot: negative is a broken contract,
// beyond the resolution is worth a look.
func overshootStatus(overshootMS, resolutionMS float64) cli.Status {
	switch {
	case overshootMS < 0:
		return cli.StatusBad
	case overshootMS > resolutionMS:
		return cli.StatusWarn
	default:
		return cli.StatusGood
	}
}
