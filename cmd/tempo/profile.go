// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/tempo/cmd/tempo/cli"
	"github.com/bureau-foundation/tempo/lib/clock"
	"github.com/bureau-foundation/tempo/lib/codec"
	"github.com/bureau-foundation/tempo/lib/config"
	"github.com/bureau-foundation/tempo/lib/hostinfo"
	"github.com/bureau-foundation/tempo/lib/precise"
	"github.com/bureau-foundation/tempo/lib/profile"
)

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:    "profile",
		Summary: "Inspect and check the saved calibration profile",
		Description: `A profile is a saved calibration plus a fingerprint of the host it
was taken on ("tempo calibrate --save" writes one). Each subcommand
takes an optional profile path; without one, profile.path from the
config is used.`,
		Subcommands: []*cli.Command{
			profileShowCommand(),
			profileCheckCommand(),
			profileClearCommand(),
		},
	}
}

// profilePath returns the single optional path argument, else the
// configured profile path.
func profilePath(args []string, cfg *config.Config) (string, error) {
	switch len(args) {
	case 0:
		return cfg.Profile.Path, nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("expected at most one profile path, got %d arguments", len(args))
	}
}

type profileShowParams struct {
	commonParams
	cli.JSONOutput
	Diagnose bool `json:"diagnose" flag:"diagnose" desc:"print the raw CBOR in diagnostic notation"`
}

func profileShowCommand() *cli.Command {
	var params profileShowParams

	return &cli.Command{
		Name:    "show",
		Summary: "Print a saved profile",
		Usage:   "tempo profile show [path] [flags]",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			cfg, err := params.loadConfig()
			if err != nil {
				return err
			}
			path, err := profilePath(args, cfg)
			if err != nil {
				return err
			}

			if params.Diagnose {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading profile: %w", err)
				}
				notation, err := codec.Diagnose(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Println(notation)
				return nil
			}

			stored, err := profile.Read(path)
			if err != nil {
				return describeMissingProfile(path, err)
			}
			if done, err := params.EmitJSON(stored); done {
				return err
			}
			renderProfile(cli.Stdout(), path, stored)
			return nil
		},
	}
}

func renderProfile(output *cli.Output, path string, stored profile.Profile) {
	output.Heading("Profile " + path)
	output.Field("taken", fmt.Sprintf("%s (%s)", stored.Timestamp.Format(time.RFC3339), humanize.Time(stored.Timestamp)))
	output.Field("tempo", stored.Tempo)
	output.Field("clock", stored.Calibration.Clock)
	output.Field("trials", fmt.Sprintf("%d [%s]", len(stored.Calibration.TrialsMS), formatList(stored.Calibration.TrialsMS)))
	output.Field("margin", fmt.Sprintf("×%g", stored.Calibration.Margin))
	output.StatusField("resolution", formatMS(stored.Calibration.ResolutionMS), cli.StatusGood)
	output.Printf("\n")
	renderHost(output, stored.Host, stored.Fingerprint)
}

type profileCheckParams struct {
	commonParams
	cli.JSONOutput
	MaxAge    time.Duration `json:"max_age"   flag:"max-age"   desc:"oldest acceptable profile (default: profile.max_age from config)"`
	Tolerance float64       `json:"tolerance" flag:"tolerance" desc:"accepted relative change in resolution (default: profile.tolerance from config)"`
}

type checkResult struct {
	Path       string             `json:"path"`
	Age        string             `json:"age"`
	Stale      bool               `json:"stale"`
	Comparison profile.Comparison `json:"comparison"`
	OK         bool               `json:"ok"`
}

func profileCheckCommand() *cli.Command {
	var params profileCheckParams

	return &cli.Command{
		Name:    "check",
		Summary: "Check a saved profile against this host",
		Description: `Check that a saved profile still describes this host. The check
fails, with exit code 1, when the profile is older than --max-age, when
the host's hardware fingerprint changed, or when a fresh calibration's
resolution differs from the saved one by more than --tolerance
(relative).`,
		Usage:  "tempo profile check [path] [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			cfg, err := params.loadConfig()
			if err != nil {
				return err
			}
			path, err := profilePath(args, cfg)
			if err != nil {
				return err
			}
			maxAge := params.MaxAge
			if maxAge == 0 {
				if maxAge, err = cfg.ProfileMaxAge(); err != nil {
					return err
				}
			}
			tolerance := params.Tolerance
			if tolerance == 0 {
				tolerance = cfg.Profile.Tolerance
			}
			if maxAge < 0 || tolerance < 0 {
				return fmt.Errorf("--max-age and --tolerance must be positive")
			}

			now := time.Now()
			stored, err := profile.Read(path)
			if err != nil {
				return describeMissingProfile(path, err)
			}
			age := stored.Age(now)
			fresh := age <= maxAge

			monotonic, err := clock.Monotonic()
			if err != nil {
				return err
			}
			calibration, err := precise.Calibrate(monotonic, cfg.PreciseCalibration())
			if err != nil {
				return err
			}
			comparison := profile.Compare(stored, hostinfo.Probe(), calibration, tolerance)
			result := checkResult{
				Path:       path,
				Age:        age.Round(time.Second).String(),
				Stale:      !fresh,
				Comparison: comparison,
				OK:         fresh && comparison.OK(),
			}
			logger.Debug("profile checked",
				"path", path,
				"stale", result.Stale,
				"host_changed", comparison.HostChanged,
				"drift", comparison.Drift,
			)

			if done, err := params.EmitJSON(result); !done {
				renderCheck(cli.Stdout(), result, maxAge)
			} else if err != nil {
				return err
			}
			if !result.OK {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Fail if the profile is over an hour old or off by 20%",
				Command:     "tempo profile check --max-age 1h --tolerance 0.2",
			},
		},
	}
}

func renderCheck(output *cli.Output, result checkResult, maxAge time.Duration) {
	comparison := result.Comparison
	output.Heading("Profile " + result.Path)

	ageStatus := cli.StatusGood
	if result.Stale {
		ageStatus = cli.StatusBad
	}
	output.StatusField("age", fmt.Sprintf("%s (max %s)", result.Age, maxAge), ageStatus)

	if comparison.HostChanged {
		output.StatusField("host", "changed", cli.StatusBad)
		for _, change := range comparison.HostChanges {
			output.Printf("    %s\n", change)
		}
	} else {
		output.StatusField("host", "unchanged", cli.StatusGood)
	}

	driftStatus := cli.StatusGood
	if comparison.Drifted() {
		driftStatus = cli.StatusBad
	}
	output.Field("stored", formatMS(comparison.StoredMS))
	output.Field("fresh", formatMS(comparison.FreshMS))
	output.StatusField("drift", fmt.Sprintf("%.1f%% (tolerance %.1f%%)", comparison.Drift*100, comparison.Tolerance*100), driftStatus)

	if result.OK {
		output.Printf("\nProfile OK\n")
	} else {
		output.Printf("\nProfile needs recalibration: run 'tempo calibrate --save'\n")
	}
}

type profileClearParams struct {
	commonParams
}

func profileClearCommand() *cli.Command {
	var params profileClearParams

	return &cli.Command{
		Name:    "clear",
		Summary: "Delete a saved profile",
		Usage:   "tempo profile clear [path] [flags]",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			cfg, err := params.loadConfig()
			if err != nil {
				return err
			}
			path, err := profilePath(args, cfg)
			if err != nil {
				return err
			}
			if err := profile.Clear(path); err != nil {
				return err
			}
			logger.Info("profile cleared", "path", path)
			return nil
		},
	}
}

// describeMissingProfile points at "tempo calibrate --save" when the
// profile does not exist.
func describeMissingProfile(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no profile at %s (run 'tempo calibrate --save' first): %w", path, err)
	}
	return err
}
