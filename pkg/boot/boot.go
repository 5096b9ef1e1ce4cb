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

// Package boot brings cores up from reset.
//
// The reset vector (Reset, on arm) runs with no stack and no initialized
// statics. Each core masks exceptions, parks if it was reset into user
// mode, switches to supervisor mode and reads its MPIDR affinity. Core 0
// takes the primary path: it resets SCTLR, joins coherency through ACTLR,
// invalidates the TLB, instruction cache and branch predictor, installs
// the vector table, sets its stack, zeroes .bss and .noptrbss, paints the
// boot stacks and calls hal_primary_entry. Other cores park on
// single-core builds; on multi-core builds they wait with WFE until the
// primary calls ReleaseSecondaryCores, then take the secondary path and
// call hal_secondary_entry with their index. A core whose entry point
// returns parks.
//
// The root task provides hal_primary_entry, hal_secondary_entry and
// hal_vectors.
//
// Sequencer is the same sequence expressed against a CPU, for simulation
// and testing.
package boot

import (
	"fmt"

	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/platform"
	"gvisor.dev/armhal/pkg/ring0"
)

// StackPaint is written over the boot stacks after zeroing, to make stack
// depth visible in memory dumps.
const StackPaint = 0xfefefefe

// CPU is a core at reset.
type CPU interface {
	ring0.Machine

	// SetStackPointer sets SP.
	SetStackPointer(sp hostarch.Addr)

	// ChangeMode switches the processor mode.
	ChangeMode(mode uint32)
}

// Entry holds the root task's entry points. Neither is expected to return.
type Entry struct {
	// Primary is called once, on core 0.
	Primary func()

	// Secondary is called once on each other core, with its index.
	Secondary func(core int)
}

// Layout locates the memory bring-up touches.
type Layout struct {
	// Vectors is the vector table address installed in VBAR.
	Vectors hostarch.Addr

	// Stacks holds one stack per core. Core i's stack grows down from
	// Stacks.Start + (cores - i) * core stack size.
	Stacks hostarch.AddrRange

	// Zero lists the regions cleared before the primary entry runs.
	Zero []hostarch.AddrRange
}

// Validate checks l against cfg.
func (l Layout) Validate(cfg platform.Config) error {
	if cfg.Cores <= 0 {
		return fmt.Errorf("invalid core count %d", cfg.Cores)
	}
	if l.Vectors&0x1f != 0 {
		return fmt.Errorf("vector table %v is not 32-byte aligned", l.Vectors)
	}
	if !l.Stacks.WellFormed() || l.Stacks.Start&7 != 0 || cfg.CoreStackSize&7 != 0 {
		return fmt.Errorf("stacks %v with %#x bytes per core are not 8-byte aligned", l.Stacks, cfg.CoreStackSize)
	}
	if need := uint64(cfg.Cores) * uint64(cfg.CoreStackSize); uint64(l.Stacks.Length()) < need {
		return fmt.Errorf("stacks %v hold %#x bytes, need %#x for %d cores", l.Stacks, l.Stacks.Length(), need, cfg.Cores)
	}
	for _, z := range l.Zero {
		if !z.WellFormed() || z.Start&3 != 0 || z.End&3 != 0 {
			return fmt.Errorf("zero region %v is not word aligned", z)
		}
		if z.Overlaps(l.Stacks) {
			return fmt.Errorf("zero region %v overlaps stacks %v", z, l.Stacks)
		}
	}
	return nil
}

// StackTop returns the initial stack pointer of core.
func (l Layout) StackTop(cfg platform.Config, core int) hostarch.Addr {
	return l.Stacks.Start + hostarch.Addr(uint32(cfg.Cores-core)*cfg.CoreStackSize)
}
