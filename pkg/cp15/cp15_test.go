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

package cp15

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mapBank is a Bank backed by maps, recording every write.
type mapBank struct {
	regs   map[Reg]uint32
	regs64 map[Reg64]uint64
	writes []Reg
}

func newMapBank() *mapBank {
	return &mapBank{regs: make(map[Reg]uint32), regs64: make(map[Reg64]uint64)}
}

func (b *mapBank) Read(r Reg) uint32 { return b.regs[r] }

func (b *mapBank) Write(r Reg, v uint32) {
	b.regs[r] = v
	b.writes = append(b.writes, r)
}

func (b *mapBank) Read64(r Reg64) uint64     { return b.regs64[r] }
func (b *mapBank) Write64(r Reg64, v uint64) { b.regs64[r] = v }

func TestFieldGetVal(t *testing.T) {
	f := Field{Shift: 13, Width: 15}
	if got, want := f.Mask(), uint32(0x0fffe000); got != want {
		t.Errorf("Mask() = %#x, want %#x", got, want)
	}
	if got := f.Get(0xf01fe01f); got != 0x00ff {
		t.Errorf("Get() = %#x, want 0xff", got)
	}
	// Bits wider than the field are discarded.
	if got := f.Val(0x18000); got != (FieldValue{Mask: 0x0fffe000, Value: 0}) {
		t.Errorf("Val(0x18000) = %+v, want zero value with full mask", got)
	}
	full := Field{Shift: 0, Width: 32}
	if got := full.Mask(); got != ^uint32(0) {
		t.Errorf("32-bit field Mask() = %#x", got)
	}
}

func TestFieldValueOr(t *testing.T) {
	fv := SCTLRC.Set().Or(SCTLRI.Set()).Or(SCTLRC.Clear())
	want := FieldValue{Mask: 1<<2 | 1<<12, Value: 1 << 12}
	if fv != want {
		t.Errorf("combined = %+v, want %+v", fv, want)
	}
	if got, want := fv.Apply(0xffffffff), uint32(0xfffffffb); got != want {
		t.Errorf("Apply = %#x, want %#x", got, want)
	}
}

func TestModifyTouchesOnlyTargetedFields(t *testing.T) {
	b := newMapBank()
	b.regs[SCTLR] = 0x00c50879
	got := Modify(b, SCTLR, SCTLRM.Clear(), SCTLRAFE.Set())
	if want := uint32(0x20c50878); got != want {
		t.Errorf("Modify returned %#x, want %#x", got, want)
	}
	if b.regs[SCTLR] != got {
		t.Errorf("register = %#x, want %#x", b.regs[SCTLR], got)
	}
	if diff := cmp.Diff([]Reg{SCTLR}, b.writes, cmp.AllowUnexported(Reg{})); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestSetWritesFromZero(t *testing.T) {
	b := newMapBank()
	b.regs[TTBCR] = 0xffffffff
	Set(b, TTBCR, TTBCRN.Val(0), TTBCRPD1.Set())
	if got := b.regs[TTBCR]; got != 1<<5 {
		t.Errorf("TTBCR = %#x, want %#x", got, 1<<5)
	}
}

func TestGetIsSet(t *testing.T) {
	b := newMapBank()
	b.regs[MPIDR] = 0x80000003
	if got := Get(b, MPIDR, MPIDRAff0); got != 3 {
		t.Errorf("Aff0 = %d, want 3", got)
	}
	if !IsSet(b, MPIDR, MPIDRMP) || IsSet(b, MPIDR, MPIDRU) {
		t.Errorf("IsSet mismatch for MPIDR %#x", b.regs[MPIDR])
	}
	b.regs[DACR] = 0x5
	if got := DomainAccess(Get(b, DACR, DACRDomain(1))); got != DomainClient {
		t.Errorf("domain 1 = %d, want client", got)
	}
}

func TestCacheFields(t *testing.T) {
	// Cortex-A9 L1 D-cache: 32 KiB, 4 ways, 256 sets, 32-byte lines.
	const ccsidr = 0x701fe019
	if got := CCSIDRLineSize.Get(ccsidr); got != 1 {
		t.Errorf("LineSize = %d, want 1", got)
	}
	if got := CCSIDRAssociativity.Get(ccsidr) + 1; got != 4 {
		t.Errorf("ways = %d, want 4", got)
	}
	if got := CCSIDRNumSets.Get(ccsidr) + 1; got != 256 {
		t.Errorf("sets = %d, want 256", got)
	}
	// L1 separate, L2 unified.
	const clidr = 0x09200023
	if got := CacheType(CLIDRCtype(0).Get(clidr)); got != CacheSeparate {
		t.Errorf("Ctype1 = %v, want %v", got, CacheSeparate)
	}
	if got := CacheType(CLIDRCtype(1).Get(clidr)); got != CacheUnified {
		t.Errorf("Ctype2 = %v, want %v", got, CacheUnified)
	}
	if got := CacheType(CLIDRCtype(2).Get(clidr)); got.HasData() {
		t.Errorf("Ctype3 = %v reports data", got)
	}
}

func TestFaultStatus(t *testing.T) {
	// Permission fault on a section, write access.
	if got := FaultStatus(1<<11 | 0xd); got != 0xd {
		t.Errorf("FaultStatus = %#x, want 0xd", got)
	}
	// Asynchronous external abort, FS[4] set.
	if got := FaultStatus(1<<10 | 0x6); got != 0x16 {
		t.Errorf("FaultStatus = %#x, want 0x16", got)
	}
}

func TestLookup(t *testing.T) {
	r, ok := Lookup("sctlr")
	if !ok || r != SCTLR {
		t.Fatalf("Lookup(sctlr) = %v, %t", r, ok)
	}
	if got, want := r.String(), "SCTLR (p15, 0, c1, c0, 0)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if _, ok := Lookup("HSCTLR"); ok {
		t.Errorf("Lookup(HSCTLR) succeeded")
	}
	seen := make(map[regID]Reg)
	for _, r := range Registers {
		if prev, dup := seen[r.id]; dup {
			t.Errorf("%v and %v share an id", prev, r)
		}
		seen[r.id] = r
	}
}
