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

// Package sim is a software model of an ARMv7-A multi-core cluster.
//
// Each Core implements ring0.Machine with a private CP15 register file,
// CPSR and event register, and records every register write, barrier and
// mask change in a Trace. Cores share a System: physical Memory and the
// event signal used by WFE and SEV. Cores run as goroutines; a core that
// halts, or is still waiting when the System shuts down, exits its
// goroutine.
//
// Cache and TLB maintenance operations are recorded but have no effect on
// memory: the model is for checking instruction sequences, not coherency.
package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"gvisor.dev/armhal/pkg/bits"
	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/cpuid"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/ring0"
	"gvisor.dev/armhal/pkg/sync"
)

// Geometry describes one cache.
type Geometry struct {
	Sets      uint32
	Ways      uint32
	LineBytes uint32
}

// Size returns the cache size in bytes.
func (g Geometry) Size() uint32 {
	return g.Sets * g.Ways * g.LineBytes
}

// ccsidr encodes g as a write-back, read- and write-allocate cache.
func (g Geometry) ccsidr() uint32 {
	return cp15.Combine(
		cp15.CCSIDRLineSize.Val(uint32(bits.Log2Ceil32(g.LineBytes)-4)),
		cp15.CCSIDRAssociativity.Val(g.Ways-1),
		cp15.CCSIDRNumSets.Val(g.Sets-1),
		cp15.CCSIDRWB.Set(),
		cp15.CCSIDRRA.Set(),
		cp15.CCSIDRWA.Set(),
	).Apply(0)
}

// CacheLevel describes one level of the cache hierarchy.
type CacheLevel struct {
	Type cp15.CacheType

	// Data describes the data or unified cache of the level.
	Data Geometry

	// Instruction describes the instruction cache of an Instruction or
	// Separate level.
	Instruction Geometry
}

// Config describes a simulated cluster.
type Config struct {
	// Cores is the number of cores.
	Cores int

	// MIDR is reported by every core.
	MIDR cpuid.MIDR

	// Caches lists levels from L1 outwards. At most cp15.MaxCacheLevels.
	Caches []CacheLevel

	// PeriphBase is reported in CBAR.
	PeriphBase hostarch.Addr

	// ResetCPSR is the CPSR of each core at reset.
	ResetCPSR uint32

	// ResetSCTLR is the SCTLR of each core at reset.
	ResetSCTLR uint32
}

// CortexA9 returns the configuration of a dual-core Cortex-A9 MPCore
// r3p0 with 32 KiB, 4-way L1 caches and 32-byte lines, as found on
// Zynq-7000 parts.
func CortexA9() Config {
	l1 := Geometry{Sets: 256, Ways: 4, LineBytes: 32}
	return Config{
		Cores:      2,
		MIDR:       cpuid.Make(cpuid.CortexA9, 3, 0),
		Caches:     []CacheLevel{{Type: cp15.CacheSeparate, Data: l1, Instruction: l1}},
		PeriphBase: 0xf8f00000,
		ResetCPSR:  ring0.ModeSupervisor | ring0.ExceptionMask,
		// Caches, MMU and branch prediction off; high vectors on.
		ResetSCTLR: 0x00c52078,
	}
}

// clidr encodes the cache hierarchy.
func (c *Config) clidr() uint32 {
	var fv cp15.FieldValue
	for i, l := range c.Caches {
		fv = fv.Or(cp15.CLIDRCtype(i).Val(uint32(l.Type)))
	}
	loc := uint32(len(c.Caches))
	fv = fv.Or(cp15.CLIDRLoC.Val(loc)).Or(cp15.CLIDRLoUU.Val(1)).Or(cp15.CLIDRLoUIS.Val(1))
	return fv.Apply(0)
}

// ctr encodes the smallest line sizes in the ARMv7 CTR format.
func (c *Config) ctr() uint32 {
	dmin, imin := uint32(0), uint32(0)
	for _, l := range c.Caches {
		if l.Type.HasData() && (dmin == 0 || l.Data.LineBytes < dmin) {
			dmin = l.Data.LineBytes
		}
		if (l.Type == cp15.CacheInstruction || l.Type == cp15.CacheSeparate) && (imin == 0 || l.Instruction.LineBytes < imin) {
			imin = l.Instruction.LineBytes
		}
	}
	v := uint32(0x80000000) | 3<<14
	if dmin != 0 {
		v = cp15.CTRDminLine.Val(uint32(bits.Log2Ceil32(dmin / 4))).Apply(v)
	}
	if imin != 0 {
		v = cp15.CTRIminLine.Val(uint32(bits.Log2Ceil32(imin / 4))).Apply(v)
	}
	return v
}

// System is a simulated cluster.
type System struct {
	cfg   Config
	mem   *Memory
	cores []*Core

	// mu protects the event broadcast and stopped.
	mu      sync.Mutex
	cond    *sync.Cond
	stopped bool

	// settled counts started cores that have not yet halted or returned.
	settled sync.WaitGroup
	group   errgroup.Group
}

// New returns a System in the reset state.
func New(cfg Config) *System {
	if cfg.Cores <= 0 {
		panic(fmt.Sprintf("sim: invalid core count %d", cfg.Cores))
	}
	if len(cfg.Caches) > cp15.MaxCacheLevels {
		panic(fmt.Sprintf("sim: %d cache levels", len(cfg.Caches)))
	}
	s := &System{cfg: cfg, mem: NewMemory()}
	s.cond = sync.NewCond(&s.mu)
	for i := 0; i < cfg.Cores; i++ {
		s.cores = append(s.cores, newCore(s, i))
	}
	return s
}

// Config returns the configuration s was created with.
func (s *System) Config() Config {
	return s.cfg
}

// Memory returns the shared physical memory.
func (s *System) Memory() *Memory {
	return s.mem
}

// Core returns core i.
func (s *System) Core(i int) *Core {
	return s.cores[i]
}

// Cores returns every core.
func (s *System) Cores() []*Core {
	return s.cores
}

// Start runs fn on core i in a new goroutine. A panic in fn is reported by
// Wait as an error.
func (s *System) Start(i int, fn func(c *Core)) {
	c := s.cores[i]
	if c.started.Swap(true) {
		panic(fmt.Sprintf("sim: core %d started twice", i))
	}
	s.settled.Add(1)
	s.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("core %d: %v", c.index, r)
			}
			c.settle()
		}()
		fn(c)
		return nil
	})
}

// Run starts fn on every core and waits for them.
func (s *System) Run(ctx context.Context, fn func(c *Core)) error {
	for i := range s.cores {
		s.Start(i, fn)
	}
	return s.Wait(ctx)
}

// Wait waits until every started core has halted or returned, or ctx is
// done, then shuts the system down and joins every core. It returns the
// first core error, or ctx's error if cores were still running.
func (s *System) Wait(ctx context.Context) error {
	settled := make(chan struct{})
	go func() {
		s.settled.Wait()
		close(settled)
	}()
	var ctxErr error
	select {
	case <-settled:
	case <-ctx.Done():
		ctxErr = ctx.Err()
	}
	s.Shutdown()
	if err := s.group.Wait(); err != nil {
		return err
	}
	return ctxErr
}

// Shutdown releases halted and waiting cores, which exit their
// goroutines.
func (s *System) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.cond.Broadcast()
}

// signal sets the event register of every core.
func (s *System) signal() {
	for _, c := range s.cores {
		c.event.Store(true)
	}
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
}
