// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides tempo's CBOR encoding configuration.
//
// tempo writes two kinds of file: calibration profiles (lib/profile)
// and bench sample archives (lib/samples). Both are CBOR, encoded
// through this package so every file uses the same modes. The encoder
// uses Core Deterministic Encoding (RFC 8949 §4.2): the same profile
// always produces identical bytes, which lets a profile be compared or
// hashed byte-for-byte. Timestamps are RFC 3339 strings with
// nanosecond precision.
//
// For whole files:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For CBOR sequences (one item after another, as sample archives
// store their records):
//
//	encoder := codec.NewEncoder(buffer)
//	decoder := codec.NewDecoder(reader)
//
// Types serialized here use `json` struct tags: fxamacker/cbor reads
// them when `cbor` tags are absent, and the same types are printed by
// the CLI's --json output. Never put both tags on one field.
package codec
