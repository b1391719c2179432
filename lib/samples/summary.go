// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package samples

import (
	"math"
	"slices"
)

// Summary is the overshoot statistics of one Series. Overshoot is
// actual minus requested, in milliseconds.
type Summary struct {
	RequestedMS float64 `json:"requested_ms"`
	Count       int     `json:"count"`
	MinMS       float64 `json:"min_overshoot_ms"`
	MeanMS      float64 `json:"mean_overshoot_ms"`
	P99MS       float64 `json:"p99_overshoot_ms"`
	MaxMS       float64 `json:"max_overshoot_ms"`

	// Early counts waits that returned before the requested duration.
	// Anything but zero is a bug.
	Early int `json:"early"`

	// WithinResolution counts waits whose overshoot did not exceed
	// the wait resolution the bench ran with.
	WithinResolution int `json:"within_resolution"`
}

// Summarize computes overshoot statistics for series. resolutionMS is
// the wait resolution to count against. An empty series yields a
// Summary with only RequestedMS set.
func Summarize(series Series, resolutionMS float64) Summary {
	summary := Summary{RequestedMS: series.RequestedMS, Count: len(series.ActualMS)}
	if summary.Count == 0 {
		return summary
	}

	overshoots := make([]float64, len(series.ActualMS))
	summary.MinMS = math.Inf(1)
	summary.MaxMS = math.Inf(-1)
	var total float64
	for index, actual := range series.ActualMS {
		overshoot := actual - series.RequestedMS
		overshoots[index] = overshoot
		total += overshoot
		summary.MinMS = min(summary.MinMS, overshoot)
		summary.MaxMS = max(summary.MaxMS, overshoot)
		if overshoot < 0 {
			summary.Early++
		}
		if overshoot <= resolutionMS {
			summary.WithinResolution++
		}
	}
	summary.MeanMS = total / float64(summary.Count)

	slices.Sort(overshoots)
	// Nearest-rank percentile.
	rank := int(math.Ceil(0.99*float64(len(overshoots)))) - 1
	summary.P99MS = overshoots[max(rank, 0)]
	return summary
}

// SummarizeAll summarizes every series in archive against the
// archive's own calibrated resolution.
func SummarizeAll(archive Archive) []Summary {
	summaries := make([]Summary, len(archive.Series))
	for index, series := range archive.Series {
		summaries[index] = Summarize(series, archive.Header.Calibration.ResolutionMS)
	}
	return summaries
}
