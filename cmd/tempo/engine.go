// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/tempo/lib/clock"
	"github.com/bureau-foundation/tempo/lib/config"
	"github.com/bureau-foundation/tempo/lib/precise"
)

// commonParams are the flags every engine-backed command shares.
type commonParams struct {
	Config  string `json:"-" flag:"config" desc:"config file (default: $TEMPO_CONFIG, else built-in defaults)"`
	Verbose bool   `json:"-" flag:"verbose,v" desc:"log at debug level"`
}

// loadConfig loads --config, else $TEMPO_CONFIG, else the defaults.
func (p *commonParams) loadConfig() (*config.Config, error) {
	switch {
	case p.Config != "":
		return config.LoadFile(p.Config)
	case os.Getenv(config.EnvironmentVariable) != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}

// newEngine calibrates an engine on the host's monotonic clock with
// the configured ladder and calibration settings.
func newEngine(cfg *config.Config, logger *slog.Logger) (*precise.Engine, error) {
	monotonic, err := clock.Monotonic()
	if err != nil {
		return nil, err
	}
	options := append(cfg.EngineOptions(), precise.WithLogger(logger))
	engine, err := precise.New(monotonic, options...)
	if err != nil {
		return nil, err
	}
	logger.Debug("engine ready",
		"clock", engine.Clock().Name(),
		"resolution_ms", engine.WaitResolution(),
	)
	return engine, nil
}

// parseMilliseconds parses a duration argument. A bare number is
// milliseconds ("2.5"); anything else must be a Go duration ("2.5ms",
// "1s", "250us").
func parseMilliseconds(arg string) (float64, error) {
	if value, err := strconv.ParseFloat(arg, 64); err == nil {
		return value, nil
	}
	duration, err := time.ParseDuration(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: want milliseconds (\"2.5\") or a duration (\"2.5ms\", \"1s\")", arg)
	}
	return float64(duration) / float64(time.Millisecond), nil
}

// durationArg parses the single positional duration a command takes.
func durationArg(args []string, what string) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one %s argument, got %d", what, len(args))
	}
	return parseMilliseconds(args[0])
}

// formatMS renders milliseconds with a precision that suits the
// magnitude.
func formatMS(ms float64) string {
	abs := ms
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs == 0:
		return "0 ms"
	case abs < 0.001:
		return strconv.FormatFloat(ms*1e6, 'f', 0, 64) + " ns"
	case abs < 1:
		return strconv.FormatFloat(ms*1e3, 'f', 1, 64) + " µs"
	default:
		return strconv.FormatFloat(ms, 'f', 3, 64) + " ms"
	}
}

// formatList joins values for a one-line display.
func formatList(values []float64) string {
	parts := make([]string, len(values))
	for index, value := range values {
		parts[index] = strconv.FormatFloat(value, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}
