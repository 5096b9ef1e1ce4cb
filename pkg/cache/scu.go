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

package cache

import (
	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/cpuid"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/ring0"
)

// SCU register offsets from PERIPHBASE.
const (
	scuControl           = 0x00
	scuConfiguration     = 0x04
	scuDiagnosticControl = 0x30
)

const (
	scuEnable = 1 << 0

	// scuDisableMigratoryBit is the erratum 764369 workaround bit. It
	// reads as zero.
	scuDisableMigratoryBit = 1 << 0
)

// SnoopControlUnit is the MPCore Snoop Control Unit at PERIPHBASE.
type SnoopControlUnit struct {
	m    ring0.Machine
	base hostarch.Addr
}

// NewSnoopControlUnit returns the SCU at the PERIPHBASE reported by CBAR.
func NewSnoopControlUnit(m ring0.Machine) *SnoopControlUnit {
	return &SnoopControlUnit{
		m:    m,
		base: hostarch.Addr(m.Read(cp15.CBAR) & cp15.CBARPeriphBase.Mask()),
	}
}

// Base returns PERIPHBASE.
func (s *SnoopControlUnit) Base() hostarch.Addr {
	return s.base
}

// Enable enables the SCU. On Cortex-A9 the erratum 764369 workaround is
// applied first.
func (s *SnoopControlUnit) Enable() {
	if cpuid.MIDR(s.m.Read(cp15.MIDR)).NeedsSCUErratum764369() {
		s.modify(scuDiagnosticControl, scuDisableMigratoryBit, 0)
	}
	s.modify(scuControl, scuEnable, 0)
}

// Disable disables the SCU.
func (s *SnoopControlUnit) Disable() {
	s.modify(scuControl, 0, scuEnable)
}

// Enabled returns true if the SCU is enabled.
func (s *SnoopControlUnit) Enabled() bool {
	return s.m.Load32(s.base+scuControl)&scuEnable != 0
}

// Cores returns the number of cores attached to the SCU.
func (s *SnoopControlUnit) Cores() int {
	return int(s.m.Load32(s.base+scuConfiguration)&3) + 1
}

// EnableSMP makes the executing core take part in coherency by setting
// ACTLR.SMP, and ACTLR.FW on Cortex-A9.
func (s *SnoopControlUnit) EnableSMP() {
	vals := []cp15.FieldValue{cp15.ACTLRSMP.Set()}
	if cpuid.MIDR(s.m.Read(cp15.MIDR)).NeedsForwardTLBMaintenance() {
		vals = append(vals, cp15.ACTLRFW.Set())
	}
	cp15.Modify(s.m, cp15.ACTLR, vals...)
	s.m.ISB()
}

// DisableSMP reverses EnableSMP.
func (s *SnoopControlUnit) DisableSMP() {
	vals := []cp15.FieldValue{cp15.ACTLRSMP.Clear()}
	if cpuid.MIDR(s.m.Read(cp15.MIDR)).NeedsForwardTLBMaintenance() {
		vals = append(vals, cp15.ACTLRFW.Clear())
	}
	cp15.Modify(s.m, cp15.ACTLR, vals...)
	s.m.ISB()
}

func (s *SnoopControlUnit) modify(off hostarch.Addr, set, clear uint32) {
	addr := s.base + off
	s.m.Store32(addr, s.m.Load32(addr)&^clear|set)
	s.m.DSB()
}
