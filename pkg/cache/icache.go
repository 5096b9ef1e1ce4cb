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

// InstructionCache maintains the L1 instruction cache.
type InstructionCache struct {
	m Machine
}

// NewInstructionCache returns the instruction cache of the core m.
func NewInstructionCache(m Machine) *InstructionCache {
	return &InstructionCache{m: m}
}

// Enable sets SCTLR.I.
func (c *InstructionCache) Enable() {
	setControl(c.m, cp15.SCTLRI, true)
}

// Disable clears SCTLR.I.
func (c *InstructionCache) Disable() {
	setControl(c.m, cp15.SCTLRI, false)
}

// Enabled returns true if SCTLR.I is set.
func (c *InstructionCache) Enabled() bool {
	return cp15.IsSet(c.m, cp15.SCTLR, cp15.SCTLRI)
}

// InvalidateAll invalidates the whole instruction cache to the point of
// unification.
func (c *InstructionCache) InvalidateAll() {
	c.m.DSB()
	c.m.Write(cp15.ICIALLU, 0)
	c.m.DSB()
	c.m.ISB()
}

// InvalidateAllInnerShareable is InvalidateAll broadcast to every core in
// the inner shareable domain.
func (c *InstructionCache) InvalidateAllInnerShareable() {
	c.m.DSB()
	c.m.Write(cp15.ICIALLUIS, 0)
	c.m.DSB()
	c.m.ISB()
}

// InvalidateRange invalidates the lines covering ar.
func (c *InstructionCache) InvalidateRange(ar hostarch.AddrRange) {
	line := ReadGeometry(c.m, 0, true).LineBytes
	forEachLine(ar, line, func(addr hostarch.Addr) {
		c.m.Write(cp15.ICIMVAU, uint32(addr))
	})
	c.m.DSB()
	c.m.ISB()
}
