// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cpuid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gvisor.dev/armhal/pkg/log"
)

// CPUInfo is the identity of the first processor listed in a Linux
// /proc/cpuinfo.
type CPUInfo struct {
	// MIDR is reassembled from the implementer, variant, architecture, part
	// and revision lines.
	MIDR MIDR

	// Features is the "Features" line, split on whitespace.
	Features []string

	// BogoMIPS is the reported BogoMIPS value, or 0 if absent.
	BogoMIPS float64
}

// HasFeature returns true if the kernel reported feature f (e.g. "lpae").
func (c CPUInfo) HasFeature(f string) bool {
	for _, have := range c.Features {
		if have == f {
			return true
		}
	}
	return false
}

// ReadCPUInfo parses the cpuinfo file at path.
func ReadCPUInfo(path string) (CPUInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return CPUInfo{}, fmt.Errorf("could not read %s: %w", path, err)
	}
	defer f.Close()
	return ParseCPUInfo(f)
}

// ParseCPUInfo parses /proc/cpuinfo formatted text. Only the first processor
// block is considered. Malformed values are logged and left at 0; an error
// is returned only if reading fails or no part number was found.
func ParseCPUInfo(r io.Reader) (CPUInfo, error) {
	var info CPUInfo
	var impl, variant, arch, part, rev uint64
	sawPart := false
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if strings.TrimSpace(line) == "" && sawPart {
			// End of the first processor block.
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "BogoMIPS":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				log.Warningf("Could not parse BogoMIPS value %v: %v", value, err)
				continue
			}
			info.BogoMIPS = v
		case "Features":
			info.Features = strings.Fields(value)
		case "CPU implementer":
			impl = parseField(key, value)
		case "CPU architecture":
			// Linux reports "7" for ARMv7; the MIDR field is always the
			// CPUID scheme marker.
			if parseField(key, value) != 7 {
				log.Warningf("Unexpected CPU architecture %v, assuming ARMv7", value)
			}
			arch = archCPUID
		case "CPU variant":
			variant = parseField(key, value)
		case "CPU part":
			part = parseField(key, value)
			sawPart = true
		case "CPU revision":
			rev = parseField(key, value)
		}
	}
	if err := s.Err(); err != nil {
		return CPUInfo{}, fmt.Errorf("reading cpuinfo: %w", err)
	}
	if !sawPart {
		return CPUInfo{}, fmt.Errorf("cpuinfo has no \"CPU part\" line")
	}
	if arch == 0 {
		arch = archCPUID
	}
	info.MIDR = MIDR(uint32(impl&0xff)<<24 | uint32(variant&0xf)<<20 | uint32(arch&0xf)<<16 | uint32(part&0xfff)<<4 | uint32(rev&0xf))
	return info, nil
}

func parseField(key, value string) uint64 {
	v, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		log.Warningf("Could not parse %s value %v: %v", key, value, err)
		return 0
	}
	return v
}
