// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/tempo/cmd/tempo/cli"
	"github.com/bureau-foundation/tempo/lib/hostinfo"
	"github.com/bureau-foundation/tempo/lib/precise"
	"github.com/bureau-foundation/tempo/lib/samples"
)

type benchParams struct {
	commonParams
	cli.JSONOutput
	Durations   []float64 `json:"durations"   flag:"durations"     desc:"requested durations in milliseconds" default:"0.1,1,5,20"`
	Iterations  int       `json:"iterations"  flag:"iterations,n"  desc:"waits per duration" default:"50"`
	Samples     string    `json:"samples"     flag:"samples"       desc:"write every measurement to this sample archive"`
	Compression string    `json:"compression" flag:"compression"   desc:"sample archive compression: none, lz4, or zstd" default:"zstd"`
}

type benchResult struct {
	ResolutionMS float64           `json:"resolution_ms"`
	Summaries    []samples.Summary `json:"summaries"`
	SamplesPath  string            `json:"samples_path,omitempty"`
	Compression  string            `json:"compression,omitempty"`
}

func benchCommand() *cli.Command {
	var params benchParams

	return &cli.Command{
		Name:    "bench",
		Summary: "Measure wait accuracy across durations",
		Description: `Wait repeatedly for each requested duration and report the overshoot:
the minimum, mean, 99th percentile, and maximum of actual minus
requested, the number of waits that returned early (always zero unless
something is broken), and the number that overshot by no more than the
calibrated wait resolution.

With --samples, every individual measurement is kept in a compressed
sample archive that "tempo samples show" can summarize later.`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			if len(params.Durations) == 0 {
				return fmt.Errorf("--durations must name at least one duration")
			}
			for _, duration := range params.Durations {
				if duration <= 0 {
					return fmt.Errorf("--durations must be positive, got %g", duration)
				}
			}
			if params.Iterations < 1 {
				return fmt.Errorf("--iterations must be at least 1, got %d", params.Iterations)
			}
			compression, err := samples.ParseCompression(params.Compression)
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

			series, err := runBench(ctx, engine, params.Durations, params.Iterations, logger)
			if err != nil {
				return err
			}

			result := benchResult{ResolutionMS: engine.WaitResolution()}
			for _, measured := range series {
				result.Summaries = append(result.Summaries, samples.Summarize(measured, result.ResolutionMS))
			}

			if params.Samples != "" {
				archive := samples.Archive{
					Header: samples.Header{
						ID:          uuid.NewString(),
						Created:     time.Now().UTC(),
						Calibration: engine.Calibration(),
						Host:        hostinfo.Probe(),
					},
					Series: series,
				}
				used, err := samples.WriteFile(params.Samples, archive, compression)
				if err != nil {
					return err
				}
				if used != compression {
					logger.Debug("samples did not compress, stored uncompressed", "requested", compression)
				}
				result.SamplesPath = params.Samples
				result.Compression = used.String()
				logger.Info("samples written",
					"path", params.Samples,
					"run", archive.Header.ID,
					"compression", used.String(),
				)
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}
			renderSummaries(cli.Stdout(), result.Summaries, result.ResolutionMS)
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Benchmark sub-millisecond waits",
				Command:     "tempo bench --durations 0.05,0.1,0.25,0.5 -n 500",
			},
			{
				Description: "Keep the raw measurements, LZ4 compressed",
				Command:     "tempo bench --samples bench.tmps --compression lz4",
			},
		},
	}
}

// runBench measures iterations waits for each duration. Interruption
// via ctx stops early and returns what was measured so far.
func runBench(ctx context.Context, engine *precise.Engine, durations []float64, iterations int, logger *slog.Logger) ([]samples.Series, error) {
	series := make([]samples.Series, 0, len(durations))
	for _, requested := range durations {
		measured := samples.Series{
			RequestedMS: requested,
			ActualMS:    make([]float64, 0, iterations),
		}
		for range iterations {
			if ctx.Err() != nil {
				logger.Warn("interrupted", "requested_ms", requested, "measured", len(measured.ActualMS))
				return append(series, measured), nil
			}
			actual := engine.Measure(requested)
			measured.ActualMS = append(measured.ActualMS, float64(actual)/float64(time.Millisecond))
		}
		logger.Debug("duration measured", "requested_ms", requested, "iterations", iterations)
		series = append(series, measured)
	}
	return series, nil
}

func renderSummaries(output *cli.Output, summaries []samples.Summary, resolutionMS float64) {
	table := cli.NewTable("requested", "count", "min", "mean", "p99", "max", "early", "≤ resolution")
	for _, summary := range summaries {
		if summary.Count == 0 {
			table.Row(formatMS(summary.RequestedMS), "0")
			continue
		}
		earlyStatus := cli.StatusGood
		if summary.Early > 0 {
			earlyStatus = cli.StatusBad
		}
		withinStatus := cli.StatusGood
		if summary.WithinResolution < summary.Count {
			withinStatus = cli.StatusWarn
		}
		table.StyledRow(
			cli.Cell{Text: formatMS(summary.RequestedMS)},
			cli.Cell{Text: fmt.Sprintf("%d", summary.Count)},
			cli.Cell{Text: formatMS(summary.MinMS), Status: overshootStatus(summary.MinMS, resolutionMS)},
			cli.Cell{Text: formatMS(summary.MeanMS)},
			cli.Cell{Text: formatMS(summary.P99MS)},
			cli.Cell{Text: formatMS(summary.MaxMS), Status: overshootStatus(summary.MaxMS, resolutionMS)},
			cli.Cell{Text: fmt.Sprintf("%d", summary.Early), Status: earlyStatus},
			cli.Cell{Text: fmt.Sprintf("%d/%d", summary.WithinResolution, summary.Count), Status: withinStatus},
		)
	}
	output.Printf("Overshoot per requested duration (resolution %s)\n\n", formatMS(resolutionMS))
	table.Render(output)
}
