// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for tempo packages.
//
// [RequireReceive], [RequireNoReceive], and [RequireClosed] encapsulate
// the timeout safety valve pattern (select with time.After fallback) so
// that a test waiting on a timer callback or a background loop fails
// with a message instead of hanging the whole test binary.
// [RequireNear] compares measured durations against a tolerance.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no tempo-internal dependencies.
package testutil
