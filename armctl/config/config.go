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

// Package config holds board descriptions for armctl.
//
// A board is described in TOML:
//
//	name = "zynq-7000"
//	cores = 2
//	midr = 0x413fc090
//	periph_base = 0xf8f00000
//
//	[[cache]]
//	type = "separate"
//	sets = 256
//	ways = 4
//	line = 32
//
//	[[region]]
//	name = "ddr"
//	virt = 0x0
//	phys = 0x0
//	size = 0x40000000
//	memory = "normal"
//	inner = "wbwa"
//	outer = "wbwa"
//	shareable = true
//	writable = true
//	executable = true
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/cpuid"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/platform"
	"gvisor.dev/armhal/pkg/ring0"
	"gvisor.dev/armhal/pkg/ring0/pagetables"
	"gvisor.dev/armhal/pkg/sim"
)

// Board describes a target system.
type Board struct {
	// Name is shown in output only.
	Name string `toml:"name"`

	// Cores is the number of cores brought up.
	Cores int `toml:"cores"`

	// CoreStackSize is the reset-time stack of each core. Zero selects
	// platform.CoreStackSize.
	CoreStackSize uint32 `toml:"core_stack_size"`

	// MIDR is reported by every core.
	MIDR uint32 `toml:"midr"`

	// PeriphBase is the private peripheral base reported in CBAR.
	PeriphBase uint32 `toml:"periph_base"`

	// Vectors is the exception vector table address.
	Vectors uint32 `toml:"vectors"`

	// SnoopControlUnit is set for MPCore parts with an SCU.
	SnoopControlUnit bool `toml:"scu"`

	// ExtendedPhysicalAddressing is set for LPAE parts.
	ExtendedPhysicalAddressing bool `toml:"lpae"`

	// MultiprocessingExtensions is set for parts implementing the
	// multiprocessing extensions.
	MultiprocessingExtensions bool `toml:"mpcore"`

	// Arena is where page tables are allocated.
	Arena Arena `toml:"arena"`

	Caches  []Cache  `toml:"cache"`
	Regions []Region `toml:"region"`
}

// Arena locates page table memory.
type Arena struct {
	// Size is the arena size in bytes. Zero selects DefaultArenaSize.
	Size uint32 `toml:"size"`

	// Phys is the physical address of the arena.
	Phys uint32 `toml:"phys"`
}

// DefaultArenaSize holds a page directory and 48 page tables.
const DefaultArenaSize = pagetables.DirectorySize + 48*pagetables.TableSize

// Cache is one level of the cache hierarchy, from L1 outwards.
type Cache struct {
	// Type is one of "instruction", "data", "separate" or "unified".
	Type string `toml:"type"`

	Sets uint32 `toml:"sets"`
	Ways uint32 `toml:"ways"`
	Line uint32 `toml:"line"`
}

// Region is one range of the memory map.
type Region struct {
	Name string `toml:"name"`
	Virt uint32 `toml:"virt"`
	Phys uint32 `toml:"phys"`
	Size uint64 `toml:"size"`

	// Memory is one of "normal", "device" or "strongly-ordered".
	Memory string `toml:"memory"`

	// Inner and Outer are the cache policies of normal memory: "nc",
	// "wbwa", "wt" or "wb". Empty means "wbwa".
	Inner string `toml:"inner"`
	Outer string `toml:"outer"`

	Shareable  bool `toml:"shareable"`
	Writable   bool `toml:"writable"`
	Executable bool `toml:"executable"`
	User       bool `toml:"user"`
}

var cacheTypes = map[string]cp15.CacheType{
	"instruction": cp15.CacheInstruction,
	"data":        cp15.CacheData,
	"separate":    cp15.CacheSeparate,
	"unified":     cp15.CacheUnified,
}

var cachePolicies = map[string]pagetables.CachePolicy{
	"":     pagetables.WriteBackWriteAllocate,
	"nc":   pagetables.NonCacheable,
	"wbwa": pagetables.WriteBackWriteAllocate,
	"wt":   pagetables.WriteThrough,
	"wb":   pagetables.WriteBackNoWriteAllocate,
}

// Default returns a dual-core Cortex-A9 board with 1 GiB of memory at 0
// and the private peripherals mapped as device memory.
func Default() *Board {
	return &Board{
		Name:                      "cortex-a9",
		Cores:                     2,
		MIDR:                      uint32(cpuid.Make(cpuid.CortexA9, 3, 0)),
		PeriphBase:                0xf8f00000,
		SnoopControlUnit:          true,
		MultiprocessingExtensions: true,
		Arena:                     Arena{Phys: 0x00100000},
		Caches:                    []Cache{{Type: "separate", Sets: 256, Ways: 4, Line: 32}},
		Regions: []Region{
			{Name: "ddr", Size: 0x40000000, Memory: "normal", Shareable: true, Writable: true, Executable: true},
			{Name: "periph", Virt: 0xf8f00000, Phys: 0xf8f00000, Size: 0x2000, Memory: "device", Writable: true},
		},
	}
}

// Load reads and validates the board at path.
func Load(path string) (*Board, error) {
	var b Board
	md, err := toml.DecodeFile(path, &b)
	if err != nil {
		return nil, fmt.Errorf("error reading board %q: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("board %q: unknown keys %v", path, undec)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("board %q: %w", path, err)
	}
	return &b, nil
}

// LoadOrDefault loads the board at path, or returns Default if path is
// empty.
func LoadOrDefault(path string) (*Board, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Write encodes b as TOML to path.
func (b *Board) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %q: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(b); err != nil {
		f.Close()
		return fmt.Errorf("error encoding board: %w", err)
	}
	return f.Close()
}

// Validate checks that b describes a system this module can bring up.
func (b *Board) Validate() error {
	if b.Cores <= 0 {
		return fmt.Errorf("invalid core count %d", b.Cores)
	}
	if b.Cores > 1<<8 {
		return fmt.Errorf("%d cores do not fit MPIDR affinity level 0", b.Cores)
	}
	if b.CoreStackSize&7 != 0 {
		return fmt.Errorf("core stack size %#x is not 8-byte aligned", b.CoreStackSize)
	}
	if len(b.Caches) > cp15.MaxCacheLevels {
		return fmt.Errorf("%d cache levels, at most %d", len(b.Caches), cp15.MaxCacheLevels)
	}
	for i, c := range b.Caches {
		if _, ok := cacheTypes[c.Type]; !ok {
			return fmt.Errorf("cache L%d: unknown type %q", i+1, c.Type)
		}
		if c.Sets == 0 || c.Ways == 0 {
			return fmt.Errorf("cache L%d: %d sets of %d ways", i+1, c.Sets, c.Ways)
		}
		if c.Line < 16 || c.Line&(c.Line-1) != 0 {
			return fmt.Errorf("cache L%d: line size %d is not a power of two of at least 16", i+1, c.Line)
		}
	}
	if b.Arena.Phys&(pagetables.DirectorySize-1) != 0 {
		return fmt.Errorf("arena at %#x is not 16 KiB aligned", b.Arena.Phys)
	}
	for _, r := range b.Regions {
		if _, err := r.Attributes(); err != nil {
			return fmt.Errorf("region %q: %w", r.Name, err)
		}
		if !hostarch.Addr(r.Virt).IsPageAligned() || !hostarch.Addr(r.Phys).IsPageAligned() || r.Size%hostarch.PageSize != 0 {
			return fmt.Errorf("region %q is not page aligned", r.Name)
		}
		if uint64(r.Virt)+r.Size > 1<<32 {
			return fmt.Errorf("region %q ends beyond 4 GiB", r.Name)
		}
	}
	return nil
}

// Attributes returns the memory attributes of r.
func (r Region) Attributes() (pagetables.MemoryAttributes, error) {
	var a pagetables.MemoryAttributes
	switch r.Memory {
	case "normal", "":
		inner, ok := cachePolicies[r.Inner]
		if !ok {
			return a, fmt.Errorf("unknown inner policy %q", r.Inner)
		}
		outer, ok := cachePolicies[r.Outer]
		if !ok {
			return a, fmt.Errorf("unknown outer policy %q", r.Outer)
		}
		a = pagetables.Normal().Inner(inner).Outer(outer)
		if r.Shareable {
			a = a.Shareable()
		}
	case "device":
		a = pagetables.Device()
	case "strongly-ordered":
		a = pagetables.StronglyOrdered()
	default:
		return a, fmt.Errorf("unknown memory type %q", r.Memory)
	}
	if r.Writable {
		a = a.ReadWrite()
	}
	if r.Executable {
		a = a.Executable()
	}
	if r.User {
		a = a.PrivilegeLevel0()
	}
	return a, nil
}

// Platform returns the build configuration of b.
func (b *Board) Platform() platform.Config {
	stack := b.CoreStackSize
	if stack == 0 {
		stack = platform.CoreStackSize
	}
	return platform.Config{
		Cores:                      b.Cores,
		CoreStackSize:              stack,
		SnoopControlUnit:           b.SnoopControlUnit,
		ExtendedPhysicalAddressing: b.ExtendedPhysicalAddressing,
		MultiprocessingExtensions:  b.MultiprocessingExtensions,
	}
}

// ArenaSize returns the page table arena size.
func (b *Board) ArenaSize() uint32 {
	if b.Arena.Size == 0 {
		return DefaultArenaSize
	}
	return b.Arena.Size
}

// Simulation returns the configuration of a simulated cluster of b, reset
// into supervisor mode with exceptions masked and the MMU and caches off.
func (b *Board) Simulation() sim.Config {
	cfg := sim.Config{
		Cores:      b.Cores,
		MIDR:       cpuid.MIDR(b.MIDR),
		PeriphBase: hostarch.Addr(b.PeriphBase),
		ResetCPSR:  ring0.ModeSupervisor | ring0.ExceptionMask,
		ResetSCTLR: sim.CortexA9().ResetSCTLR,
	}
	for _, c := range b.Caches {
		g := sim.Geometry{Sets: c.Sets, Ways: c.Ways, LineBytes: c.Line}
		l := sim.CacheLevel{Type: cacheTypes[c.Type]}
		switch l.Type {
		case cp15.CacheInstruction:
			l.Instruction = g
		case cp15.CacheSeparate:
			l.Data, l.Instruction = g, g
		default:
			l.Data = g
		}
		cfg.Caches = append(cfg.Caches, l)
	}
	return cfg
}
