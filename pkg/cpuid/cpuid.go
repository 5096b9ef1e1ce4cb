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

// Package cpuid identifies ARMv7-A cores from the Main ID Register (MIDR)
// and reports the errata workarounds bring-up code must apply.
package cpuid

import "fmt"

// MIDR is a raw Main ID Register value.
type MIDR uint32

// Implementer codes.
const (
	ImplementerARM      = 0x41
	ImplementerQualcomm = 0x51
	ImplementerMarvell  = 0x56
)

// Part is an ARM-designed primary part number.
type Part uint16

// Parts this package recognizes.
const (
	CortexA5  Part = 0xc05
	CortexA7  Part = 0xc07
	CortexA8  Part = 0xc08
	CortexA9  Part = 0xc09
	CortexA12 Part = 0xc0d
	CortexA15 Part = 0xc0f
	CortexA17 Part = 0xc0e
)

var partNames = map[Part]string{
	CortexA5:  "Cortex-A5",
	CortexA7:  "Cortex-A7",
	CortexA8:  "Cortex-A8",
	CortexA9:  "Cortex-A9",
	CortexA12: "Cortex-A12",
	CortexA15: "Cortex-A15",
	CortexA17: "Cortex-A17",
}

// String implements fmt.Stringer.String.
func (p Part) String() string {
	if n, ok := partNames[p]; ok {
		return n
	}
	return fmt.Sprintf("part %#03x", uint16(p))
}

// archCPUID is the architecture field value meaning "defined by CPUID
// scheme", which every ARMv7-A core reports.
const archCPUID = 0xf

// identityMask selects implementer, architecture and part number, ignoring
// variant and revision.
const identityMask = 0xff0ffff0

// Implementer returns MIDR[31:24].
func (m MIDR) Implementer() uint8 {
	return uint8(m >> 24)
}

// Variant returns MIDR[23:20], the major revision.
func (m MIDR) Variant() uint8 {
	return uint8(m>>20) & 0xf
}

// Architecture returns MIDR[19:16].
func (m MIDR) Architecture() uint8 {
	return uint8(m>>16) & 0xf
}

// PartNum returns MIDR[15:4].
func (m MIDR) PartNum() Part {
	return Part(m>>4) & 0xfff
}

// Revision returns MIDR[3:0], the minor revision.
func (m MIDR) Revision() uint8 {
	return uint8(m) & 0xf
}

// Is returns true if m identifies the ARM part p, at any revision.
func (m MIDR) Is(p Part) bool {
	return uint32(m)&identityMask == ImplementerARM<<24|archCPUID<<16|uint32(p)<<4
}

// String implements fmt.Stringer.String, e.g. "Cortex-A9 r3p0".
func (m MIDR) String() string {
	name := m.PartNum().String()
	if m.Implementer() != ImplementerARM {
		name = fmt.Sprintf("implementer %#02x %s", m.Implementer(), name)
	}
	return fmt.Sprintf("%s r%dp%d", name, m.Variant(), m.Revision())
}

// Make assembles an ARM MIDR for part p at revision rVpR.
func Make(p Part, variant, revision uint8) MIDR {
	return MIDR(ImplementerARM<<24 | uint32(variant&0xf)<<20 | archCPUID<<16 | uint32(p)<<4 | uint32(revision&0xf))
}
