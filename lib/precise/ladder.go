// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package precise

import (
	"errors"
	"fmt"
	"time"
)

// probeSleep is the smallest sleep the engine ever requests. Calibration
// measures how long it really takes, and the last sleeping rung of the
// ladder uses it until the remaining time drops below the resolution.
const probeSleep = time.Microsecond

// Step is one rung of a wait ladder: while more than Above remains,
// sleep Chunk at a time.
type Step struct {
	Above time.Duration `json:"above"`
	Chunk time.Duration `json:"chunk"`
}

// Ladder is the sequence of coarse sleep rungs a wait descends before
// the fine probeSleep rung and the final spin. Steps are ordered by
// strictly decreasing Above.
type Ladder []Step

// DefaultLadder returns the standard rungs: 500ms chunks above one
// second, 50ms above 100ms, 5ms above 10ms, 500µs above 1ms.
func DefaultLadder() Ladder {
	return Ladder{
		{Above: time.Second, Chunk: 500 * time.Millisecond},
		{Above: 100 * time.Millisecond, Chunk: 50 * time.Millisecond},
		{Above: 10 * time.Millisecond, Chunk: 5 * time.Millisecond},
		{Above: time.Millisecond, Chunk: 500 * time.Microsecond},
	}
}

// Validate checks that every rung is positive, that no chunk exceeds
// its threshold, and that thresholds strictly decrease.
func (l Ladder) Validate() error {
	var errs []error
	for index, step := range l {
		if step.Above <= 0 {
			errs = append(errs, fmt.Errorf("ladder step %d: threshold must be positive, got %v", index, step.Above))
		}
		if step.Chunk <= 0 {
			errs = append(errs, fmt.Errorf("ladder step %d: chunk must be positive, got %v", index, step.Chunk))
		}
		if step.Chunk > step.Above {
			errs = append(errs, fmt.Errorf("ladder step %d: chunk %v exceeds threshold %v", index, step.Chunk, step.Above))
		}
		if index > 0 && step.Above >= l[index-1].Above {
			errs = append(errs, fmt.Errorf("ladder step %d: threshold %v does not decrease from %v", index, step.Above, l[index-1].Above))
		}
	}
	return errors.Join(errs...)
}

// rung is a Step with its threshold converted to milliseconds once.
type rung struct {
	aboveMS float64
	chunk   time.Duration
}

func (l Ladder) rungs() []rung {
	result := make([]rung, len(l))
	for index, step := range l {
		result[index] = rung{aboveMS: durationMS(step.Above), chunk: step.Chunk}
	}
	return result
}

// durationMS converts a duration to float64 milliseconds.
func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
