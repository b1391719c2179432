// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/bureau-foundation/tempo/cmd/tempo/cli"
	"github.com/bureau-foundation/tempo/lib/precise"
)

type onceParams struct {
	commonParams
	cli.JSONOutput
}

type onceResult struct {
	DelayMS    float64 `json:"delay_ms"`
	FiredMS    float64 `json:"fired_ms"`
	LatenessMS float64 `json:"lateness_ms"`
}

func onceCommand() *cli.Command {
	var params onceParams

	return &cli.Command{
		Name:    "once",
		Summary: "Schedule a one-shot callback and report its lateness",
		Usage:   "tempo once <delay> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			delay, err := durationArg(args, "delay")
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

			start := engine.Now()
			var firedAt float64
			handle := engine.Once(delay, func() { firedAt = engine.Now() })
			if err := handle.Wait(ctx); err != nil {
				return interrupted(err, logger)
			}

			result := onceResult{
				DelayMS:    delay,
				FiredMS:    firedAt - start,
				LatenessMS: firedAt - start - max(delay, 0),
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			output := cli.Stdout()
			output.Field("delay", formatMS(result.DelayMS))
			output.Field("fired after", formatMS(result.FiredMS))
			output.StatusField("lateness", formatMS(result.LatenessMS), overshootStatus(result.LatenessMS, engine.WaitResolution()))
			return nil
		},
	}
}

type everyParams struct {
	commonParams
	Count int `json:"count" flag:"count,n" desc:"stop after this many firings" default:"10"`
}

func everyCommand() *cli.Command {
	var params everyParams

	return &cli.Command{
		Name:    "every",
		Summary: "Run a repeating callback and log each firing",
		Description: `Fire a callback at every multiple of the interval after the start,
logging each firing's offset and lateness. Firings are anchored to the
start, so lateness does not accumulate.`,
		Usage:  "tempo every <interval> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			interval, err := durationArg(args, "interval")
			if err != nil {
				return err
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %g", interval)
			}
			if params.Count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", params.Count)
			}
			cfg, err := params.loadConfig()
			if err != nil {
				return err
			}
			engine, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}

			start := engine.Now()
			var worst float64
			fired := 0
			handle := engine.Every(interval, func() bool {
				fired++
				offset := engine.Now() - start
				// Firings land on the first boundary still ahead, so
				// the distance past the last boundary is the lateness.
				lateness := math.Mod(offset, interval)
				worst = max(worst, lateness)
				logger.Info("fired",
					"firing", fired,
					"offset_ms", offset,
					"lateness_ms", lateness,
				)
				return fired < params.Count && ctx.Err() == nil
			})
			if err := handle.Wait(ctx); err != nil {
				return interrupted(err, logger)
			}

			logger.Info("done", "firings", handle.Fired(), "worst_lateness_ms", worst)
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Fire every 20ms, 50 times",
				Command:     "tempo every 20ms -n 50",
			},
		},
	}
}

type timerParams struct {
	commonParams
	cli.JSONOutput
	For time.Duration `json:"for" flag:"for" desc:"how long to run the timer" default:"1s"`
}

type timerResult struct {
	IntervalMS     float64 `json:"interval_ms"`
	RanMS          float64 `json:"ran_ms"`
	Firings        int     `json:"firings"`
	Expected       int     `json:"expected"`
	MaxLatenessMS  float64 `json:"max_lateness_ms"`
	MeanLatenessMS float64 `json:"mean_lateness_ms"`
}

func timerCommand() *cli.Command {
	var params timerParams

	return &cli.Command{
		Name:    "timer",
		Summary: "Run a periodic timer for a while and report its accuracy",
		Description: `Enable a periodic timer, log every firing, disable it after --for,
and report how many firings arrived and how late they were. No firing
is delivered after the timer is disabled.`,
		Usage:  "tempo timer <interval> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			interval, err := durationArg(args, "interval")
			if err != nil {
				return err
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %g", interval)
			}
			if params.For <= 0 {
				return fmt.Errorf("--for must be positive, got %v", params.For)
			}
			cfg, err := params.loadConfig()
			if err != nil {
				return err
			}
			engine, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}

			result, err := runTimer(ctx, engine, interval, params.For, logger)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			output := cli.Stdout()
			output.Field("interval", formatMS(result.IntervalMS))
			output.Field("ran", formatMS(result.RanMS))
			output.Field("firings", fmt.Sprintf("%d (expected %d)", result.Firings, result.Expected))
			output.Field("mean lateness", formatMS(result.MeanLatenessMS))
			output.StatusField("max lateness", formatMS(result.MaxLatenessMS), overshootStatus(result.MaxLatenessMS, engine.WaitResolution()))
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Run a 10ms timer for five seconds",
				Command:     "tempo timer 10ms --for 5s",
			},
		},
	}
}

// runTimer drives a Timer at interval for the given span, logging each
// firing. Interruption via ctx disables the timer early and still
// reports what was seen.
func runTimer(ctx context.Context, engine *precise.Engine, interval float64, span time.Duration, logger *slog.Logger) (timerResult, error) {
	timer := engine.NewTimer()
	defer timer.Close()

	var mu sync.Mutex
	result := timerResult{IntervalMS: interval}
	var totalLateness float64
	timer.Subscribe(func(event precise.Elapsed) {
		lateness := event.LatenessMS()
		logger.Info("elapsed",
			"sequence", event.Sequence,
			"scheduled_ms", event.ScheduledMS,
			"actual_ms", event.ActualMS,
			"lateness_ms", lateness,
		)
		mu.Lock()
		defer mu.Unlock()
		result.Firings++
		result.MaxLatenessMS = max(result.MaxLatenessMS, lateness)
		totalLateness += lateness
	})

	timer.SetInterval(interval)
	timer.Reset()
	timer.SetEnabled(true)

	waitErr := engine.WaitContext(ctx, float64(span)/float64(time.Millisecond))
	timer.SetEnabled(false)
	result.RanMS = timer.ElapsedMilliseconds()

	mu.Lock()
	defer mu.Unlock()
	result.Expected = int(result.RanMS / interval)
	if result.Firings > 0 {
		result.MeanLatenessMS = totalLateness / float64(result.Firings)
	}
	if waitErr != nil {
		logger.Warn("interrupted", "firings", result.Firings)
	}
	return result, nil
}

// interrupted turns a cancelled wait into a clean exit.
func interrupted(err error, logger *slog.Logger) error {
	if errors.Is(err, context.Canceled) {
		logger.Warn("interrupted")
		return nil
	}
	return err
}
