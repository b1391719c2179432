// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package precise

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/tempo/lib/clock"
)

// warmupSleep is the first sleep issued before calibration trials. A
// cold timer subsystem produces first-call outliers that would inflate
// the measured resolution.
const warmupSleep = 100 * time.Microsecond

// CalibrationConfig controls how the wait resolution is measured.
type CalibrationConfig struct {
	// Warmup is the number of probe sleeps issued after the initial
	// warmup sleep and before the trials. Default 10.
	Warmup int `json:"warmup"`

	// Trials is the number of measured probe sleeps. Default 10.
	Trials int `json:"trials"`

	// Margin multiplies the worst measured probe sleep to produce the
	// wait resolution. Default 1.5.
	Margin float64 `json:"margin"`
}

// DefaultCalibrationConfig returns the standard calibration settings.
func DefaultCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{Warmup: 10, Trials: 10, Margin: 1.5}
}

// withDefaults fills zero fields from DefaultCalibrationConfig.
func (c CalibrationConfig) withDefaults() CalibrationConfig {
	defaults := DefaultCalibrationConfig()
	if c.Warmup == 0 {
		c.Warmup = defaults.Warmup
	}
	if c.Trials == 0 {
		c.Trials = defaults.Trials
	}
	if c.Margin == 0 {
		c.Margin = defaults.Margin
	}
	return c
}

// Validate rejects settings that cannot produce a usable resolution.
func (c CalibrationConfig) Validate() error {
	var errs []error
	if c.Warmup < 0 {
		errs = append(errs, fmt.Errorf("calibration warmup must not be negative, got %d", c.Warmup))
	}
	if c.Trials < 1 {
		errs = append(errs, fmt.Errorf("calibration trials must be at least 1, got %d", c.Trials))
	}
	if c.Margin < 1 {
		errs = append(errs, fmt.Errorf("calibration margin must be at least 1, got %g", c.Margin))
	}
	return errors.Join(errs...)
}

// Calibration records one measurement of the host's sleep granularity.
type Calibration struct {
	// Clock names the time source that was measured.
	Clock string `json:"clock"`

	// Frequency is the clock's ticks per second.
	Frequency int64 `json:"frequency"`

	// TrialsMS holds the measured duration of each probe sleep in
	// milliseconds, in trial order.
	TrialsMS []float64 `json:"trials_ms"`

	// MaximumMS is the largest value in TrialsMS.
	MaximumMS float64 `json:"maximum_ms"`

	// Margin is the multiplier that was applied to MaximumMS.
	Margin float64 `json:"margin"`

	// ResolutionMS is the resulting wait resolution in milliseconds.
	// Always positive.
	ResolutionMS float64 `json:"resolution_ms"`
}

// Calibrate measures how long the smallest sleep takes on c. It warms
// up the sleep path, times config.Trials probe sleeps, and multiplies
// the slowest by config.Margin.
//
// A clock whose probe sleeps take no measurable time (a fake clock with
// no overhead) yields a resolution of one tick, so the result is always
// positive.
func Calibrate(c clock.Clock, config CalibrationConfig) (Calibration, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return Calibration{}, err
	}
	frequency := c.Frequency()
	if frequency <= 0 {
		return Calibration{}, fmt.Errorf("clock %s reports non-positive frequency %d", c.Name(), frequency)
	}
	msPerTick := 1000 / float64(frequency)

	c.Sleep(warmupSleep)
	for range config.Warmup {
		c.Sleep(probeSleep)
	}

	result := Calibration{
		Clock:     c.Name(),
		Frequency: frequency,
		TrialsMS:  make([]float64, config.Trials),
		Margin:    config.Margin,
	}
	for trial := range result.TrialsMS {
		before := c.Ticks()
		c.Sleep(probeSleep)
		after := c.Ticks()
		result.TrialsMS[trial] = float64(after-before) * msPerTick
		result.MaximumMS = max(result.MaximumMS, result.TrialsMS[trial])
	}

	result.ResolutionMS = result.MaximumMS * config.Margin
	if result.ResolutionMS <= 0 {
		result.ResolutionMS = msPerTick
	}
	return result, nil
}
