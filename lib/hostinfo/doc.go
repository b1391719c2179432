// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostinfo identifies the machine a calibration was taken on.
//
// A wait resolution only means something on the host that measured it:
// a different kernel, clock source, CPU, or frequency governor changes
// how long a short sleep really takes. [Probe] reads those properties
// from uname(2), /proc, and /sys, and [Fingerprint] reduces them to a
// BLAKE3 hash that lib/profile stores beside the calibration. A
// profile whose fingerprint no longer matches [Probe] was measured
// somewhere else.
//
// Probe never fails. Missing or unreadable files produce empty fields:
// a container without /sys still has a hostname and a kernel.
package hostinfo
