// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package samples stores the raw measurements behind `tempo bench`.
//
// An [Archive] holds a [Header] (when, where, and with what calibration
// the bench ran) and one [Series] per requested duration with every
// measured wait. [Summarize] reduces a series to overshoot statistics;
// the bench command prints those, and `tempo samples show` recomputes
// them from a saved archive.
//
// On disk an archive is a small fixed header followed by a compressed
// CBOR sequence:
//
//	offset  size  field
//	0       4     magic "TMPS"
//	4       1     format version (1)
//	5       1     compression tag (0 none, 1 lz4, 2 zstd)
//	6       4     uncompressed payload length, big-endian
//	10      ...   payload: Header, then each Series, as CBOR items
//
// LZ4 uses block mode; zstd uses the default level. When the chosen
// algorithm does not shrink the payload it is stored uncompressed and
// the tag records that.
package samples
