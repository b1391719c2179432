// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/tempo/lib/codec"
	"github.com/bureau-foundation/tempo/lib/hostinfo"
	"github.com/bureau-foundation/tempo/lib/precise"
	"github.com/bureau-foundation/tempo/lib/version"
)

// formatVersion is bumped whenever Profile changes incompatibly.
const formatVersion = 1

// Profile is a persisted calibration.
type Profile struct {
	// Format is the profile encoding version.
	Format int `json:"format"`

	// Calibration is the measurement itself.
	Calibration precise.Calibration `json:"calibration"`

	// Host is the machine the measurement was taken on.
	Host hostinfo.Info `json:"host"`

	// Fingerprint is hostinfo.Fingerprint(Host) in hex.
	Fingerprint string `json:"fingerprint"`

	// Tempo is the version of tempo that wrote the profile.
	Tempo string `json:"tempo"`

	// Timestamp is when the calibration finished. Check uses it to
	// discard stale profiles.
	Timestamp time.Time `json:"timestamp"`
}

// New builds a Profile for a calibration taken on host at timestamp.
func New(calibration precise.Calibration, host hostinfo.Info, timestamp time.Time) Profile {
	return Profile{
		Format:      formatVersion,
		Calibration: calibration,
		Host:        host,
		Fingerprint: hostinfo.Fingerprint(host).String(),
		Tempo:       version.Short(),
		Timestamp:   timestamp.UTC(),
	}
}

// Write atomically writes a profile. The parent directory is created
// if needed. The file is created with mode 0644.
func Write(path string, profile Profile) error {
	data, err := codec.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating temporary profile file: %w", err)
	}

	// Write, sync, close. On any failure the temporary file is removed
	// and the first error reported.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary profile file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary profile file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary profile file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming profile into place: %w", err)
	}

	// The rename is durable only once the directory entry is flushed.
	if parent, err := os.Open(directory); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// Read reads and decodes a profile. When the file does not exist the
// returned error wraps os.ErrNotExist (testable with errors.Is).
func Read(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}

	var profile Profile
	if err := codec.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if profile.Format != formatVersion {
		return Profile{}, fmt.Errorf("profile %s has format %d, this tempo reads format %d", path, profile.Format, formatVersion)
	}
	if profile.Calibration.ResolutionMS <= 0 {
		return Profile{}, fmt.Errorf("profile %s has non-positive resolution %g", path, profile.Calibration.ResolutionMS)
	}
	return profile, nil
}

// Age returns how long before now the profile was taken.
func (p Profile) Age(now time.Time) time.Duration {
	return now.Sub(p.Timestamp)
}

// Check reads a profile and reports whether it is recent enough to
// use. Returns the profile and true when the file exists and its
// Timestamp is within maxAge of now. Returns a zero Profile and false
// when the file does not exist or is older than maxAge.
//
// Any other error (permission denied, corrupt data) is returned so the
// caller can distinguish "no profile" from "profile exists but is
// unreadable".
func Check(path string, maxAge time.Duration, now time.Time) (Profile, bool, error) {
	profile, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Profile{}, false, nil
		}
		return Profile{}, false, err
	}
	if profile.Age(now) > maxAge {
		return Profile{}, false, nil
	}
	return profile, true, nil
}

// Clear removes a profile. Idempotent: returns nil when the file does
// not exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing profile: %w", err)
	}
	return nil
}

// Comparison is the result of holding a stored profile against the
// current host and a fresh calibration.
type Comparison struct {
	// HostChanged is true when the current host's fingerprint differs
	// from the stored one.
	HostChanged bool `json:"host_changed"`

	// HostChanges lists the differing host fields.
	HostChanges []string `json:"host_changes,omitempty"`

	// StoredMS and FreshMS are the stored and fresh wait resolutions.
	StoredMS float64 `json:"stored_ms"`
	FreshMS  float64 `json:"fresh_ms"`

	// Drift is |fresh - stored| / stored.
	Drift float64 `json:"drift"`

	// Tolerance is the drift that was accepted.
	Tolerance float64 `json:"tolerance"`
}

// Drifted reports whether the fresh resolution moved further than the
// tolerance allows.
func (c Comparison) Drifted() bool {
	return c.Drift > c.Tolerance
}

// OK reports whether the stored profile still describes this host.
func (c Comparison) OK() bool {
	return !c.HostChanged && !c.Drifted()
}

// Compare holds stored against the current host and a fresh
// calibration.
func Compare(stored Profile, current hostinfo.Info, fresh precise.Calibration, tolerance float64) Comparison {
	comparison := Comparison{
		StoredMS:  stored.Calibration.ResolutionMS,
		FreshMS:   fresh.ResolutionMS,
		Tolerance: tolerance,
	}
	if hostinfo.Fingerprint(current).String() != stored.Fingerprint {
		comparison.HostChanged = true
		comparison.HostChanges = hostinfo.Diff(stored.Host, current)
	}
	// Read rejects profiles without a positive resolution.
	if stored.Calibration.ResolutionMS > 0 {
		comparison.Drift = math.Abs(fresh.ResolutionMS-stored.Calibration.ResolutionMS) / stored.Calibration.ResolutionMS
	}
	return comparison
}
