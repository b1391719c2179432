// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package hostinfo

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Probe collects the timing-relevant properties of this host.
func Probe() Info {
	return probeFrom("/proc", "/sys")
}

// probeFrom is the testable implementation of Probe. It accepts root
// paths for /proc and /sys so tests can point at synthetic filesystems.
func probeFrom(procRoot, sysRoot string) Info {
	info := Info{}
	info.Hostname, _ = os.Hostname()

	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err == nil {
		info.Kernel = unix.ByteSliceToString(utsname.Release[:])
		info.Architecture = unix.ByteSliceToString(utsname.Machine[:])
	}

	info.CPUModel, info.LogicalCPUs = readCPUInfo(filepath.Join(procRoot, "cpuinfo"))
	info.BoardVendor = ReadSysfsString(filepath.Join(sysRoot, "class/dmi/id/sys_vendor"))
	info.BoardName = ReadSysfsString(filepath.Join(sysRoot, "class/dmi/id/board_name"))
	if info.BoardName == "" {
		// Arm boards without DMI publish their name in the device tree.
		info.BoardName = ReadSysfsString(filepath.Join(sysRoot, "firmware/devicetree/base/model"))
	}
	info.ClockSource = ReadSysfsString(filepath.Join(sysRoot, "devices/system/clocksource/clocksource0/current_clocksource"))
	info.Governor = ReadSysfsString(filepath.Join(sysRoot, "devices/system/cpu/cpu0/cpufreq/scaling_governor"))
	return info
}

// readCPUInfo returns the first CPU model line of /proc/cpuinfo and
// the number of "processor" entries. x86 reports "model name"; many
// Arm kernels report only "Hardware" or "CPU part", so "Hardware" is
// the fallback.
func readCPUInfo(path string) (model string, processors int) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0
	}
	defer file.Close()

	var hardware string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "processor":
			processors++
		case "model name":
			if model == "" {
				model = value
			}
		case "Hardware":
			hardware = value
		}
	}
	if model == "" {
		model = hardware
	}
	return model, processors
}
