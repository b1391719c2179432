// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bureau-foundation/tempo/cmd/tempo/cli"
	"github.com/bureau-foundation/tempo/lib/clock"
	"github.com/bureau-foundation/tempo/lib/hostinfo"
	"github.com/bureau-foundation/tempo/lib/precise"
	"github.com/bureau-foundation/tempo/lib/profile"
)

type calibrateParams struct {
	commonParams
	cli.JSONOutput
	Trials  int     `json:"trials"   flag:"trials"   desc:"measured probe sleeps (default: from config)"`
	Margin  float64 `json:"margin"   flag:"margin"   desc:"multiplier on the slowest trial (default: from config)"`
	Save    bool    `json:"save"     flag:"save"     desc:"write the result as this host's profile"`
	Output  string  `json:"output"   flag:"output,o" desc:"profile path for --save (default: profile.path from config)"`
	IfStale bool    `json:"if_stale" flag:"if-stale" desc:"with --save, skip calibration while the saved profile is younger than profile.max_age"`
}

type calibrateResult struct {
	Calibration precise.Calibration `json:"calibration"`
	Host        hostinfo.Info       `json:"host"`
	Fingerprint string              `json:"fingerprint"`
	SavedTo     string              `json:"saved_to,omitempty"`
}

func calibrateCommand() *cli.Command {
	var params calibrateParams

	return &cli.Command{
		Name:    "calibrate",
		Summary: "Measure the host's wait resolution",
		Description: `Measure how long the smallest sleep takes on this host.

After a warmup, tempo times a series of 1µs sleeps on the monotonic
clock and multiplies the slowest by a safety margin. The result is the
wait resolution: waits shorter than it are spun out entirely, and
longer waits stop sleeping once less than it remains.

With --save, the calibration is written as this host's profile along
with a fingerprint of the hardware it was taken on. "tempo profile
check" compares against it later.`,
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			cfg, err := params.loadConfig()
			if err != nil {
				return err
			}
			profilePath := params.Output
			if profilePath == "" {
				profilePath = cfg.Profile.Path
			}
			if params.IfStale {
				if !params.Save {
					return fmt.Errorf("--if-stale requires --save")
				}
				maxAge, err := cfg.ProfileMaxAge()
				if err != nil {
					return err
				}
				stored, fresh, err := profile.Check(profilePath, maxAge, time.Now())
				if err != nil {
					return err
				}
				if fresh {
					logger.Info("profile is fresh, not recalibrating",
						"path", profilePath,
						"age", stored.Age(time.Now()).Round(time.Second),
						"resolution_ms", stored.Calibration.ResolutionMS,
					)
					return nil
				}
			}

			calibrationConfig := cfg.PreciseCalibration()
			if params.Trials != 0 {
				calibrationConfig.Trials = params.Trials
			}
			if params.Margin != 0 {
				calibrationConfig.Margin = params.Margin
			}

			monotonic, err := clock.Monotonic()
			if err != nil {
				return err
			}
			calibration, err := precise.Calibrate(monotonic, calibrationConfig)
			if err != nil {
				return err
			}
			host := hostinfo.Probe()
			result := calibrateResult{
				Calibration: calibration,
				Host:        host,
				Fingerprint: hostinfo.Fingerprint(host).String(),
			}
			logger.Debug("calibrated",
				"resolution_ms", calibration.ResolutionMS,
				"maximum_ms", calibration.MaximumMS,
				"trials", len(calibration.TrialsMS),
			)

			if params.Save {
				if err := profile.Write(profilePath, profile.New(calibration, host, time.Now())); err != nil {
					return err
				}
				result.SavedTo = profilePath
				logger.Info("profile saved", "path", profilePath, "fingerprint", hostinfo.Fingerprint(host).Short())
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}
			renderCalibration(cli.Stdout(), result)
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Calibrate with more trials",
				Command:     "tempo calibrate --trials 50",
			},
			{
				Description: "At boot: recalibrate only if the saved profile is stale",
				Command:     "tempo calibrate --save --if-stale",
			},
			{
				Description: "Calibrate and save the profile to a custom path",
				Command:     "tempo calibrate --save -o /var/lib/tempo/profile.cbor",
			},
		},
	}
}

func renderCalibration(output *cli.Output, result calibrateResult) {
	calibration := result.Calibration
	output.Heading("Calibration")
	output.Field("clock", calibration.Clock)
	output.Field("frequency", fmt.Sprintf("%d Hz", calibration.Frequency))
	output.Field("trials", fmt.Sprintf("%d", len(calibration.TrialsMS)))
	if len(calibration.TrialsMS) > 0 {
		output.Field("fastest trial", formatMS(slices.Min(calibration.TrialsMS)))
	}
	output.Field("slowest trial", formatMS(calibration.MaximumMS))
	output.Field("margin", fmt.Sprintf("×%g", calibration.Margin))
	output.StatusField("resolution", formatMS(calibration.ResolutionMS), cli.StatusGood)

	output.Printf("\n")
	renderHost(output, result.Host, result.Fingerprint)

	if result.SavedTo != "" {
		output.Printf("\nSaved profile to %s\n", result.SavedTo)
	}
}

func renderHost(output *cli.Output, host hostinfo.Info, fingerprint string) {
	output.Heading("Host")
	output.Field("hostname", host.Hostname)
	output.Field("kernel", host.Kernel)
	output.Field("architecture", host.Architecture)
	if host.CPUModel != "" {
		output.Field("cpu", fmt.Sprintf("%s (%d logical)", host.CPUModel, host.LogicalCPUs))
	}
	if host.BoardName != "" || host.BoardVendor != "" {
		output.Field("board", joinNonEmpty(host.BoardVendor, host.BoardName))
	}
	if host.ClockSource != "" {
		output.Field("clocksource", host.ClockSource)
	}
	if host.Governor != "" {
		output.Field("governor", host.Governor)
	}
	if len(fingerprint) >= 12 {
		output.Field("fingerprint", fingerprint[:12])
	}
}

func joinNonEmpty(parts ...string) string {
	var joined string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if joined != "" {
			joined += " "
		}
		joined += part
	}
	return joined
}
