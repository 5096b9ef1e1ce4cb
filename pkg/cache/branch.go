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
	"gvisor.dev/armhal/pkg/hostarch"
)

// BranchPredictor maintains the branch predictor array.
type BranchPredictor struct {
	m Machine
}

// NewBranchPredictor returns the branch predictor of the core m.
func NewBranchPredictor(m Machine) *BranchPredictor {
	return &BranchPredictor{m: m}
}

// Enable sets SCTLR.Z.
func (b *BranchPredictor) Enable() {
	setControl(b.m, cp15.SCTLRZ, true)
}

// Disable clears SCTLR.Z.
func (b *BranchPredictor) Disable() {
	setControl(b.m, cp15.SCTLRZ, false)
}

// Enabled returns true if SCTLR.Z is set.
func (b *BranchPredictor) Enabled() bool {
	return cp15.IsSet(b.m, cp15.SCTLR, cp15.SCTLRZ)
}

// InvalidateAll invalidates every entry.
func (b *BranchPredictor) InvalidateAll() {
	b.m.DSB()
	b.m.Write(cp15.BPIALL, 0)
	b.m.DSB()
	b.m.ISB()
}

// InvalidateRange invalidates entries for the addresses in ar, striding by
// the instruction cache line.
func (b *BranchPredictor) InvalidateRange(ar hostarch.AddrRange) {
	line := ReadGeometry(b.m, 0, true).LineBytes
	forEachLine(ar, line, func(addr hostarch.Addr) {
		b.m.Write(cp15.BPIMVA, uint32(addr))
	})
	b.m.DSB()
	b.m.ISB()
}
