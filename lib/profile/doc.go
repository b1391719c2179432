// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile persists calibration results.
//
// A [Profile] records one [precise.Calibration] together with the
// identity of the host that produced it ([hostinfo.Info] and its
// fingerprint), the tempo version, and when it was taken. `tempo
// calibrate --save` writes one; `tempo profile check` reads it back
// and asks whether it still describes this machine:
//
//   - [Check] ignores profiles older than a maximum age.
//   - [Compare] reports host changes and how far a fresh calibration
//     has drifted from the stored one.
//
// Profiles are CBOR (lib/codec) and written atomically: the file is
// written to a temporary path in the same directory, fsynced, and
// renamed into place, and then the directory is fsynced. Readers never
// see a partial profile.
package profile
