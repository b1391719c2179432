// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostinfo

import (
	"encoding/hex"
	"os"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/tempo/lib/codec"
)

// Info describes the properties of a host that affect sleep timing.
type Info struct {
	Hostname     string `json:"hostname"`
	Kernel       string `json:"kernel"`
	Architecture string `json:"architecture"`
	CPUModel     string `json:"cpu_model,omitempty"`
	LogicalCPUs  int    `json:"logical_cpus"`
	BoardVendor  string `json:"board_vendor,omitempty"`
	BoardName    string `json:"board_name,omitempty"`

	// ClockSource is the kernel's current clocksource (tsc, hpet,
	// arch_sys_counter, ...).
	ClockSource string `json:"clock_source,omitempty"`

	// Governor is cpu0's cpufreq scaling governor. A powersave
	// governor lengthens wakeups noticeably.
	Governor string `json:"governor,omitempty"`
}

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// String returns the hash in hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters, for display.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:6])
}

// fingerprintKey separates fingerprint hashes from any other BLAKE3
// use. Changing it invalidates every stored fingerprint.
var fingerprintKey = [32]byte{
	't', 'e', 'm', 'p', 'o', '.', 'h', 'o', 's', 't', 'i', 'n', 'f', 'o', '.',
	'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't', 0, 0, 0, 0, 0, 0,
}

// Fingerprint hashes info's deterministic CBOR encoding with a keyed
// BLAKE3 hash. Equal Info values always produce equal fingerprints.
func Fingerprint(info Info) Hash {
	data, err := codec.Marshal(info)
	if err != nil {
		// Info holds only strings and ints.
		panic("hostinfo: encoding host info: " + err.Error())
	}
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("hostinfo: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// Diff lists the fields that differ between two Info values, as
// "name: old → new" lines.
func Diff(before, after Info) []string {
	var changes []string
	compare := func(name, old, new string) {
		if old != new {
			changes = append(changes, name+": "+quote(old)+" → "+quote(new))
		}
	}
	compare("hostname", before.Hostname, after.Hostname)
	compare("kernel", before.Kernel, after.Kernel)
	compare("architecture", before.Architecture, after.Architecture)
	compare("cpu_model", before.CPUModel, after.CPUModel)
	if before.LogicalCPUs != after.LogicalCPUs {
		changes = append(changes, "logical_cpus: "+strconv.Itoa(before.LogicalCPUs)+" → "+strconv.Itoa(after.LogicalCPUs))
	}
	compare("board_vendor", before.BoardVendor, after.BoardVendor)
	compare("board_name", before.BoardName, after.BoardName)
	compare("clock_source", before.ClockSource, after.ClockSource)
	compare("governor", before.Governor, after.Governor)
	return changes
}

func quote(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// ReadSysfsString reads a sysfs or procfs file and returns its
// content with surrounding whitespace trimmed. Returns "" on error.
func ReadSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(string(data), "\x00"))
}
