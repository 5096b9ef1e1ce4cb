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

package boot

import (
	"fmt"

	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/cpuid"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/platform"
	"gvisor.dev/armhal/pkg/ring0"
)

// Sequencer runs the reset sequence against a CPU.
type Sequencer struct {
	Config  platform.Config
	Layout  Layout
	Entry   Entry
	Release *ReleaseFlag
}

// Reset runs the reset sequence on c and parks c at the end. It returns
// only if c's Halt does. It panics if a multi-core sequencer has no
// release flag.
func (s *Sequencer) Reset(c CPU) {
	if s.Config.SMP() && s.Release == nil {
		panic(fmt.Sprintf("boot: sequencer for %v has no release flag", s.Config))
	}
	c.MaskInterrupts(ring0.ExceptionMask)
	if c.CPSR()&ring0.PSRModeMask == ring0.ModeUser {
		c.Halt()
		return
	}
	c.ChangeMode(ring0.ModeSupervisor)

	core := int(cp15.Get(c, cp15.MPIDR, cp15.MPIDRAff0))
	switch {
	case core == 0:
		s.primary(c)
	case !s.Config.SMP() || core >= s.Config.Cores:
		// Cores beyond the configured count have no stack.
	default:
		for !s.Release.Released() {
			c.WFE()
		}
		c.DMB()
		s.secondary(c, core)
	}
	c.Halt()
}

// resetControl is the register setup shared by both paths. SCTLR is reset
// and ACTLR.SMP set before any maintenance operation.
func (s *Sequencer) resetControl(c CPU) {
	cp15.Modify(c, cp15.SCTLR,
		cp15.SCTLRM.Clear(),
		cp15.SCTLRC.Clear(),
		cp15.SCTLRZ.Clear(),
		cp15.SCTLRI.Clear(),
		cp15.SCTLRV.Clear())
	c.ISB()

	actlr := []cp15.FieldValue{cp15.ACTLRSMP.Set()}
	if cpuid.MIDR(c.Read(cp15.MIDR)).NeedsForwardTLBMaintenance() {
		actlr = append(actlr, cp15.ACTLRFW.Set())
	}
	cp15.Modify(c, cp15.ACTLR, actlr...)

	c.Write(cp15.TLBIALL, 0)
	c.Write(cp15.ICIALLU, 0)
	c.Write(cp15.BPIALL, 0)
	c.DSB()
	c.ISB()

	c.Write(cp15.VBAR, uint32(s.Layout.Vectors))
}

func (s *Sequencer) primary(c CPU) {
	s.resetControl(c)
	c.SetStackPointer(s.Layout.StackTop(s.Config, 0))
	for _, z := range s.Layout.Zero {
		fill(c, z.Start, z.End, 0)
	}
	fill(c, s.Layout.Stacks.Start, s.Layout.Stacks.End, StackPaint)
	s.Entry.Primary()
}

func (s *Sequencer) secondary(c CPU, core int) {
	s.resetControl(c)
	c.SetStackPointer(s.Layout.StackTop(s.Config, core))
	s.Entry.Secondary(core)
}

// fill stores v to every word of [start, end).
func fill(c CPU, start, end hostarch.Addr, v uint32) {
	for a := uint64(start); a < uint64(end); a += 4 {
		c.Store32(hostarch.Addr(a), v)
	}
}
