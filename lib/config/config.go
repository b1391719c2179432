// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/tempo/lib/precise"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "TEMPO_CONFIG"

// Config is the complete tempo configuration.
type Config struct {
	// Calibration controls how the wait resolution is measured.
	Calibration CalibrationConfig `yaml:"calibration"`

	// Ladder replaces the default sleep ladder when non-empty. Steps
	// must be ordered by strictly decreasing threshold.
	Ladder []LadderStep `yaml:"ladder,omitempty"`

	// Profile configures the persisted calibration profile.
	Profile ProfileConfig `yaml:"profile"`
}

// CalibrationConfig mirrors [precise.CalibrationConfig] in file form.
type CalibrationConfig struct {
	// Trials is the number of measured probe sleeps. Default: 10
	Trials int `yaml:"trials"`

	// Warmup is the number of unmeasured probe sleeps issued before
	// the trials. Must be at least 1. Default: 10
	Warmup int `yaml:"warmup"`

	// Margin multiplies the slowest trial. Default: 1.5
	Margin float64 `yaml:"margin"`
}

// LadderStep is one rung of the sleep ladder. Both fields are Go
// duration strings ("1s", "500us").
type LadderStep struct {
	Above string `yaml:"above"`
	Chunk string `yaml:"chunk"`
}

// ProfileConfig configures where the calibration profile lives and
// when it counts as stale or drifted.
type ProfileConfig struct {
	// Path is the profile file. ${HOME} and ${VAR:-default} are
	// expanded. Default: ${HOME}/.cache/tempo/profile.cbor
	Path string `yaml:"path"`

	// MaxAge is how old a profile may be before `tempo profile check`
	// reports it stale. Default: 24h
	MaxAge string `yaml:"max_age"`

	// Tolerance is the relative change in wait resolution, against a
	// fresh calibration, that `tempo profile check` accepts.
	// Default: 0.5
	Tolerance float64 `yaml:"tolerance"`
}

// Default returns the default configuration. Loaded files are merged
// over it, so a file only needs the fields it changes.
func Default() *Config {
	calibration := precise.DefaultCalibrationConfig()
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Calibration: CalibrationConfig{
			Trials: calibration.Trials,
			Warmup: calibration.Warmup,
			Margin: calibration.Margin,
		},
		Profile: ProfileConfig{
			Path:      filepath.Join(homeDir, ".cache", "tempo", "profile.cbor"),
			MaxAge:    "24h",
			Tolerance: 0.5,
		},
	}
}

// Load loads configuration from the file named by TEMPO_CONFIG. There
// is no fallback: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your tempo config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, merged over [Default].
// Files ending in .json or .jsonc may carry comments and trailing
// commas. Path fields are expanded and the result is validated.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration data merged over [Default]. The
// extension selects the syntax: ".json" and ".jsonc" are stripped of
// comments and trailing commas first; anything else is YAML. JSON is
// a subset of YAML, so both go through the same decoder.
func Parse(data []byte, extension string) (*Config, error) {
	switch strings.ToLower(extension) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Profile.Path = expandVars(c.Profile.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Provided
// vars take precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if err := c.PreciseCalibration().Validate(); err != nil {
		errs = append(errs, err)
	}
	// The engine reads a zero warmup as "use the default", so an
	// explicit zero here would be silently replaced.
	if c.Calibration.Warmup == 0 {
		errs = append(errs, fmt.Errorf("calibration.warmup must be at least 1, got 0"))
	}

	if _, err := c.PreciseLadder(); err != nil {
		errs = append(errs, err)
	}

	if c.Profile.Path == "" {
		errs = append(errs, fmt.Errorf("profile.path is required"))
	}
	if _, err := c.ProfileMaxAge(); err != nil {
		errs = append(errs, err)
	}
	if c.Profile.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("profile.tolerance must be positive, got %g", c.Profile.Tolerance))
	}

	return errors.Join(errs...)
}

// PreciseCalibration converts the calibration section for
// [precise.WithCalibration].
func (c *Config) PreciseCalibration() precise.CalibrationConfig {
	return precise.CalibrationConfig{
		Warmup: c.Calibration.Warmup,
		Trials: c.Calibration.Trials,
		Margin: c.Calibration.Margin,
	}
}

// PreciseLadder converts the ladder section for [precise.WithLadder].
// An empty section yields [precise.DefaultLadder].
func (c *Config) PreciseLadder() (precise.Ladder, error) {
	if len(c.Ladder) == 0 {
		return precise.DefaultLadder(), nil
	}

	var errs []error
	ladder := make(precise.Ladder, len(c.Ladder))
	for index, step := range c.Ladder {
		above, err := time.ParseDuration(step.Above)
		if err != nil {
			errs = append(errs, fmt.Errorf("ladder[%d].above: %w", index, err))
		}
		chunk, err := time.ParseDuration(step.Chunk)
		if err != nil {
			errs = append(errs, fmt.Errorf("ladder[%d].chunk: %w", index, err))
		}
		ladder[index] = precise.Step{Above: above, Chunk: chunk}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := ladder.Validate(); err != nil {
		return nil, err
	}
	return ladder, nil
}

// ProfileMaxAge parses profile.max_age.
func (c *Config) ProfileMaxAge() (time.Duration, error) {
	maxAge, err := time.ParseDuration(c.Profile.MaxAge)
	if err != nil {
		return 0, fmt.Errorf("profile.max_age: %w", err)
	}
	if maxAge <= 0 {
		return 0, fmt.Errorf("profile.max_age must be positive, got %v", maxAge)
	}
	return maxAge, nil
}

// EngineOptions returns the engine options the configuration implies.
// Call Validate first; an invalid ladder is silently replaced by the
// default here.
func (c *Config) EngineOptions() []precise.Option {
	ladder, err := c.PreciseLadder()
	if err != nil {
		ladder = precise.DefaultLadder()
	}
	return []precise.Option{
		precise.WithCalibration(c.PreciseCalibration()),
		precise.WithLadder(ladder),
	}
}
