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

package sim

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/mohae/deepcopy"

	"gvisor.dev/armhal/pkg/atomicbitops"
	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/log"
	"gvisor.dev/armhal/pkg/ring0"
	"gvisor.dev/armhal/pkg/sync"
)

// Registers is a snapshot of a core's architectural state.
type Registers struct {
	CPSR uint32
	SP   hostarch.Addr

	// Words holds 32-bit registers by name. Maintenance operations hold
	// their last operand.
	Words map[string]uint32

	// Wide holds 64-bit registers written through their 64-bit view.
	Wide map[string]uint64
}

// Core is one simulated core. It implements ring0.Machine.
//
// Machine methods must only be called from the goroutine running the core;
// the remaining methods may be called from any goroutine.
type Core struct {
	index int
	sys   *System

	// mu protects regs and trace.
	mu    sync.Mutex
	regs  Registers
	trace Trace

	event   atomicbitops.Bool
	waiting atomicbitops.Bool
	halted  atomicbitops.Bool
	started atomicbitops.Bool
	done    atomicbitops.Bool
	spins   atomicbitops.Uint32

	spinLog log.Logger
}

var _ ring0.Machine = (*Core)(nil)

func newCore(s *System, index int) *Core {
	c := &Core{
		index: index,
		sys:   s,
		regs: Registers{
			CPSR:  s.cfg.ResetCPSR,
			Words: make(map[string]uint32),
			Wide:  make(map[string]uint64),
		},
		spinLog: log.BasicRateLimitedLogger(time.Second),
	}
	w := c.regs.Words
	w[cp15.MIDR.Name] = uint32(s.cfg.MIDR)
	w[cp15.MPIDR.Name] = cp15.Combine(cp15.MPIDRMP.Set(), cp15.MPIDRAff0.Val(uint32(index))).Apply(0)
	w[cp15.CTR.Name] = s.cfg.ctr()
	w[cp15.CLIDR.Name] = s.cfg.clidr()
	w[cp15.SCTLR.Name] = s.cfg.ResetSCTLR
	w[cp15.CBAR.Name] = uint32(s.cfg.PeriphBase)
	return c
}

// Index returns the core's affinity level 0 number.
func (c *Core) Index() int {
	return c.index
}

func (c *Core) record(o Op) {
	c.mu.Lock()
	c.trace = append(c.trace, o)
	c.mu.Unlock()
	if log.IsLogging(log.Debug) {
		log.Debugf("core %d: %v", c.index, o)
	}
}

// Trace returns a copy of the operations performed so far.
func (c *Core) Trace() Trace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(Trace(nil), c.trace...)
}

// ResetTrace discards the recorded operations.
func (c *Core) ResetTrace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = nil
}

// Registers returns a deep copy of the core's state.
func (c *Core) Registers() Registers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return deepcopy.Copy(c.regs).(Registers)
}

// Poke sets register r directly, without tracing or access checks. It is
// used to model reset values and hardware-updated state.
func (c *Core) Poke(r cp15.Reg, v uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs.Words[r.Name] = v
}

// Waiting returns true while the core is blocked in WFE.
func (c *Core) Waiting() bool {
	return c.waiting.Load()
}

// Halted returns true once the core has called Halt.
func (c *Core) Halted() bool {
	return c.halted.Load()
}

// Spins returns the number of WFE calls that blocked.
func (c *Core) Spins() uint32 {
	return c.spins.Load()
}

// ccsidr returns the CCSIDR for the cache selected by CSSELR, or 0 if no
// such cache exists. Called with mu held.
func (c *Core) ccsidr() uint32 {
	sel := c.regs.Words[cp15.CSSELR.Name]
	level := int(cp15.CSSELRLevel.Get(sel))
	if level >= len(c.sys.cfg.Caches) {
		return 0
	}
	l := c.sys.cfg.Caches[level]
	if cp15.CSSELRInD.Get(sel) == 1 {
		if l.Type != cp15.CacheInstruction && l.Type != cp15.CacheSeparate {
			return 0
		}
		return l.Instruction.ccsidr()
	}
	if !l.Type.HasData() {
		return 0
	}
	return l.Data.ccsidr()
}

// Read implements cp15.Bank.Read.
func (c *Core) Read(r cp15.Reg) uint32 {
	if r.Access == cp15.WriteOnly {
		panic(fmt.Sprintf("sim: read of write-only %v", r))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if r == cp15.CCSIDR {
		return c.ccsidr()
	}
	return c.regs.Words[r.Name]
}

// Write implements cp15.Bank.Write.
func (c *Core) Write(r cp15.Reg, v uint32) {
	if r.Access == cp15.ReadOnly {
		panic(fmt.Sprintf("sim: write of read-only %v", r))
	}
	c.mu.Lock()
	c.regs.Words[r.Name] = v
	delete(c.regs.Wide, r.Name)
	c.mu.Unlock()
	c.record(Op{Kind: OpWrite, Reg: r.Name, Value: v})
}

// Read64 implements cp15.Bank.Read64. A register never written through
// its 64-bit view reads as its 32-bit value, zero extended.
func (c *Core) Read64(r cp15.Reg64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.regs.Wide[r.Name]; ok {
		return v
	}
	return uint64(c.regs.Words[r.Name])
}

// Write64 implements cp15.Bank.Write64. The low word is also visible
// through the 32-bit view.
func (c *Core) Write64(r cp15.Reg64, v uint64) {
	c.mu.Lock()
	c.regs.Wide[r.Name] = v
	c.regs.Words[r.Name] = uint32(v)
	c.mu.Unlock()
	c.record(Op{Kind: OpWrite64, Reg: r.Name, Value: uint32(v), High: uint32(v >> 32)})
}

// DMB implements barrier.Barriers.DMB.
func (c *Core) DMB() { c.record(Op{Kind: OpDMB}) }

// DSB implements barrier.Barriers.DSB.
func (c *Core) DSB() { c.record(Op{Kind: OpDSB}) }

// ISB implements barrier.Barriers.ISB.
func (c *Core) ISB() { c.record(Op{Kind: OpISB}) }

// SEV implements barrier.Barriers.SEV.
func (c *Core) SEV() {
	c.record(Op{Kind: OpSEV})
	c.sys.signal()
}

// WFE implements barrier.Barriers.WFE. If the system shuts down while the
// core waits, the core's goroutine exits.
func (c *Core) WFE() {
	c.record(Op{Kind: OpWFE})
	if c.event.Swap(false) {
		return
	}
	c.spins.Add(1)
	c.spinLog.Debugf("core %d: waiting for event", c.index)

	s := c.sys
	s.mu.Lock()
	c.waiting.Store(true)
	for !c.event.Load() && !s.stopped {
		s.cond.Wait()
	}
	c.waiting.Store(false)
	abandoned := s.stopped && !c.event.Load()
	s.mu.Unlock()
	if abandoned {
		runtime.Goexit()
	}
	c.event.Store(false)
}

// CPSR implements ring0.Machine.CPSR.
func (c *Core) CPSR() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs.CPSR
}

// MaskInterrupts implements ring0.Machine.MaskInterrupts.
func (c *Core) MaskInterrupts(bits uint32) {
	bits &= ring0.ExceptionMask
	c.mu.Lock()
	c.regs.CPSR |= bits
	c.mu.Unlock()
	c.record(Op{Kind: OpMask, Value: bits})
}

// UnmaskInterrupts implements ring0.Machine.UnmaskInterrupts.
func (c *Core) UnmaskInterrupts(bits uint32) {
	bits &= ring0.ExceptionMask
	c.mu.Lock()
	c.regs.CPSR &^= bits
	c.mu.Unlock()
	c.record(Op{Kind: OpUnmask, Value: bits})
}

// ChangeMode switches the processor mode, as CPS does.
func (c *Core) ChangeMode(mode uint32) {
	mode &= ring0.PSRModeMask
	c.mu.Lock()
	c.regs.CPSR = c.regs.CPSR&^ring0.PSRModeMask | mode
	c.mu.Unlock()
	c.record(Op{Kind: OpMode, Value: mode})
}

// SetStackPointer sets SP.
func (c *Core) SetStackPointer(sp hostarch.Addr) {
	c.mu.Lock()
	c.regs.SP = sp
	c.mu.Unlock()
	c.record(Op{Kind: OpStackPointer, Value: uint32(sp)})
}

// CompareAndSwapExclusive implements ring0.Machine.CompareAndSwapExclusive.
func (c *Core) CompareAndSwapExclusive(addr *uint32, old, new uint32) bool {
	return atomic.CompareAndSwapUint32(addr, old, new)
}

// Load32 implements ring0.Machine.Load32.
func (c *Core) Load32(addr hostarch.Addr) uint32 {
	return c.sys.mem.Load32(addr)
}

// Store32 implements ring0.Machine.Store32.
func (c *Core) Store32(addr hostarch.Addr, v uint32) {
	c.sys.mem.Store32(addr, v)
}

// Halt implements ring0.Machine.Halt. The core's goroutine exits when the
// system shuts down.
func (c *Core) Halt() {
	c.record(Op{Kind: OpHalt})
	c.halted.Store(true)
	c.settle()

	s := c.sys
	s.mu.Lock()
	for !s.stopped {
		s.cond.Wait()
	}
	s.mu.Unlock()
	runtime.Goexit()
}

// settle marks a started core as no longer running.
func (c *Core) settle() {
	if c.started.Load() && !c.done.Swap(true) {
		c.sys.settled.Done()
	}
}
