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

package pagetables

import (
	"fmt"

	"gvisor.dev/armhal/pkg/barrier"
	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/platform"
)

// Machine is the subset of ring0.Machine used to control translation.
type Machine interface {
	cp15.Bank
	barrier.Barriers
}

// State is the MMU state.
type State uint8

// MMU states.
const (
	Disabled State = iota
	Enabled
)

// String implements fmt.Stringer.String.
func (s State) String() string {
	if s == Enabled {
		return "enabled"
	}
	return "disabled"
}

// MMU controls stage 1 translation of the executing core.
type MMU struct {
	m   Machine
	cfg platform.Config
}

// NewMMU returns the MMU of the core m, configured for cfg.
func NewMMU(m Machine, cfg platform.Config) *MMU {
	return &MMU{m: m, cfg: cfg}
}

// State returns whether translation is enabled.
func (u *MMU) State() State {
	if cp15.IsSet(u.m, cp15.SCTLR, cp15.SCTLRM) {
		return Enabled
	}
	return Disabled
}

// TranslationTableBase returns the TTBR0 value for a page directory at
// base: inner write-back write-allocate walks, outer write-back
// write-allocate, non-shareable. multiprocessing selects the IRGN encoding
// of the multiprocessing extensions.
func TranslationTableBase(base hostarch.Addr, multiprocessing bool) uint32 {
	if base&(DirectorySize-1) != 0 {
		panic(fmt.Sprintf("page directory at %v is not 16 KiB aligned", base))
	}
	vals := []cp15.FieldValue{cp15.TTBRRGN.Val(cp15.RegionWriteBackWriteAllocate)}
	if multiprocessing {
		// IRGN = 01: IRGN[1] is bit 0 and IRGN[0] is bit 6.
		vals = append(vals, cp15.TTBRIRGN1.Clear(), cp15.TTBRIRGN0.Set())
	} else {
		vals = append(vals, cp15.TTBRC.Set())
	}
	return cp15.Combine(vals...).Apply(uint32(base))
}

// Setup points translation at d: TTBR0 only, short descriptors, domain 0
// as client, TEX remap off and the simplified access model. It panics if
// the MMU is enabled.
func (u *MMU) Setup(d *PageDirectory) {
	if u.State() == Enabled {
		panic("MMU setup while enabled")
	}
	cp15.Set(u.m, cp15.TTBCR, cp15.TTBCRN.Val(0), cp15.TTBCRPD0.Clear(), cp15.TTBCRPD1.Set(), cp15.TTBCREAE.Clear())

	ttbr := TranslationTableBase(d.PhysicalAddress(), u.cfg.MultiprocessingExtensions)
	if u.cfg.ExtendedPhysicalAddressing {
		u.m.Write64(cp15.TTBR0Wide, uint64(ttbr))
	} else {
		u.m.Write(cp15.TTBR0, ttbr)
	}

	cp15.Set(u.m, cp15.DACR, cp15.DACRDomain(0).Val(uint32(cp15.DomainClient)))
	cp15.Modify(u.m, cp15.SCTLR, cp15.SCTLRTRE.Clear(), cp15.SCTLRAFE.Set())
	u.m.ISB()
}

// Enable turns translation on.
func (u *MMU) Enable() {
	cp15.Modify(u.m, cp15.SCTLR, cp15.SCTLRM.Set())
	u.m.ISB()
}

// Disable turns translation off.
func (u *MMU) Disable() {
	cp15.Modify(u.m, cp15.SCTLR, cp15.SCTLRM.Clear())
	u.m.ISB()
}

// FlushTLB invalidates every unified TLB entry: on all cores of the inner
// shareable domain for multi-core configurations, or on the executing core
// only.
func FlushTLB(m Machine, cfg platform.Config) {
	m.DSB()
	if cfg.SMP() {
		m.Write(cp15.TLBIALLIS, 0)
	} else {
		m.Write(cp15.TLBIALL, 0)
	}
	m.DSB()
	m.ISB()
}

// FlushTLBAddr invalidates the unified TLB entries for the page containing
// va, broadcast as FlushTLB is.
func FlushTLBAddr(m Machine, cfg platform.Config, va hostarch.Addr) {
	m.DSB()
	if cfg.SMP() {
		m.Write(cp15.TLBIMVAIS, uint32(va.RoundDown()))
	} else {
		m.Write(cp15.TLBIMVA, uint32(va.RoundDown()))
	}
	m.DSB()
	m.ISB()
}
