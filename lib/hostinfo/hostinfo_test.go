// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostinfo

import (
	"os"
	"path/filepath"
	"testing"
)

func sampleInfo() Info {
	return Info{
		Hostname:     "bench-01",
		Kernel:       "6.8.0-45-generic",
		Architecture: "x86_64",
		CPUModel:     "AMD EPYC 7763 64-Core Processor",
		LogicalCPUs:  128,
		ClockSource:  "tsc",
		Governor:     "performance",
	}
}

func TestFingerprintStable(t *testing.T) {
	info := sampleInfo()
	if Fingerprint(info) != Fingerprint(sampleInfo()) {
		t.Fatal("equal Info values produced different fingerprints")
	}
	if len(Fingerprint(info).String()) != 64 {
		t.Errorf("String() = %q, want 64 hex characters", Fingerprint(info).String())
	}
	if len(Fingerprint(info).Short()) != 12 {
		t.Errorf("Short() = %q, want 12 hex characters", Fingerprint(info).Short())
	}
}

func TestFingerprintSensitiveToEachField(t *testing.T) {
	base := Fingerprint(sampleInfo())
	mutations := map[string]func(*Info){
		"hostname":     func(i *Info) { i.Hostname = "bench-02" },
		"kernel":       func(i *Info) { i.Kernel = "6.9.0" },
		"architecture": func(i *Info) { i.Architecture = "aarch64" },
		"cpu_model":    func(i *Info) { i.CPUModel = "Intel" },
		"logical_cpus": func(i *Info) { i.LogicalCPUs = 64 },
		"board_vendor": func(i *Info) { i.BoardVendor = "ASUS" },
		"board_name":   func(i *Info) { i.BoardName = "X" },
		"clock_source": func(i *Info) { i.ClockSource = "hpet" },
		"governor":     func(i *Info) { i.Governor = "powersave" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			info := sampleInfo()
			mutate(&info)
			if Fingerprint(info) == base {
				t.Errorf("changing %s did not change the fingerprint", name)
			}
			if changes := Diff(sampleInfo(), info); len(changes) != 1 {
				t.Errorf("Diff = %v, want one change", changes)
			}
		})
	}
}

func TestDiffIdentical(t *testing.T) {
	if changes := Diff(sampleInfo(), sampleInfo()); len(changes) != 0 {
		t.Errorf("Diff of identical values = %v", changes)
	}
}

func TestDiffFormatsEmptyValues(t *testing.T) {
	before := sampleInfo()
	after := sampleInfo()
	after.Governor = ""
	changes := Diff(before, after)
	if len(changes) != 1 || changes[0] != "governor: performance → (none)" {
		t.Errorf("Diff = %q", changes)
	}
}

func TestReadSysfsString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value")
	if err := os.WriteFile(path, []byte("  tsc \n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := ReadSysfsString(path); got != "tsc" {
		t.Errorf("ReadSysfsString = %q, want tsc", got)
	}
	if got := ReadSysfsString(filepath.Join(t.TempDir(), "missing")); got != "" {
		t.Errorf("ReadSysfsString(missing) = %q, want empty", got)
	}
}
