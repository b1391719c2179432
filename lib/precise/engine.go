// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package precise

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bureau-foundation/tempo/lib/clock"
)

// epsilon is the smallest interval, in milliseconds, treated as a real
// delay. Anything below it means "now" for Once and "never" for Every
// and Timer.
const epsilon = 1e-7

// Engine is a calibrated wait engine bound to one clock. All methods
// are safe for concurrent use; the calibration fields are written once
// in New and only read afterwards.
type Engine struct {
	clock       clock.Clock
	msPerTick   float64
	resolution  float64
	rungs       []rung
	ladder      Ladder
	calibration Calibration
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	ladder      Ladder
	calibration CalibrationConfig
	logger      *slog.Logger
}

// WithLadder replaces DefaultLadder. The ladder is validated by New.
func WithLadder(ladder Ladder) Option {
	return func(options *engineOptions) {
		options.ladder = ladder
	}
}

// WithCalibration replaces DefaultCalibrationConfig. Zero fields take
// their default values.
func WithCalibration(config CalibrationConfig) Option {
	return func(options *engineOptions) {
		options.calibration = config
	}
}

// WithLogger sets the logger used for calibration and timer lifecycle
// messages. Without it the engine logs nothing.
func WithLogger(logger *slog.Logger) Option {
	return func(options *engineOptions) {
		options.logger = logger
	}
}

// New calibrates an Engine on c. Calibration runs synchronously and
// takes roughly twenty probe sleeps' worth of time.
func New(c clock.Clock, options ...Option) (*Engine, error) {
	if c == nil {
		return nil, fmt.Errorf("precise: nil clock")
	}
	settings := engineOptions{
		ladder:      DefaultLadder(),
		calibration: DefaultCalibrationConfig(),
	}
	for _, option := range options {
		option(&settings)
	}
	if err := settings.ladder.Validate(); err != nil {
		return nil, fmt.Errorf("precise: invalid ladder: %w", err)
	}
	logger := settings.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	calibration, err := Calibrate(c, settings.calibration)
	if err != nil {
		return nil, fmt.Errorf("precise: calibrating %s: %w", c.Name(), err)
	}

	logger.Debug("wait resolution calibrated",
		"clock", calibration.Clock,
		"resolution_ms", calibration.ResolutionMS,
		"maximum_trial_ms", calibration.MaximumMS,
		"margin", calibration.Margin,
		"trials", len(calibration.TrialsMS),
	)

	return &Engine{
		clock:       c,
		msPerTick:   1000 / float64(calibration.Frequency),
		resolution:  calibration.ResolutionMS,
		rungs:       settings.ladder.rungs(),
		ladder:      append(Ladder(nil), settings.ladder...),
		calibration: calibration,
		logger:      logger,
	}, nil
}

// Now returns the clock's current reading in milliseconds. Only
// differences between readings are meaningful.
func (e *Engine) Now() float64 {
	return float64(e.clock.Ticks()) * e.msPerTick
}

// WaitResolution returns the calibrated resolution in milliseconds:
// waits shorter than this are spun rather than slept. Always positive.
func (e *Engine) WaitResolution() float64 {
	return e.resolution
}

// Calibration returns the measurement the engine was built from.
func (e *Engine) Calibration() Calibration {
	result := e.calibration
	result.TrialsMS = append([]float64(nil), e.calibration.TrialsMS...)
	return result
}

// Ladder returns a copy of the engine's sleep ladder.
func (e *Engine) Ladder() Ladder {
	return append(Ladder(nil), e.ladder...)
}

// Clock returns the clock the engine reads.
func (e *Engine) Clock() clock.Clock {
	return e.clock
}

// since returns the milliseconds elapsed since the reading start.
func (e *Engine) since(start int64) float64 {
	return float64(e.clock.Ticks()-start) * e.msPerTick
}

// sinceDuration is since as a time.Duration, for callers that report.
func (e *Engine) sinceDuration(start int64) time.Duration {
	return clock.Since(e.clock, start)
}
