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
	"fmt"

	"gvisor.dev/armhal/pkg/bits"
	"gvisor.dev/armhal/pkg/cp15"
)

// Geometry is the shape of one cache, as reported by CCSIDR.
type Geometry struct {
	// Level is the zero-based cache level; L1 is 0.
	Level int

	// Type is the level's type from CLIDR.
	Type cp15.CacheType

	// Instruction is true if this is the instruction side of a Separate
	// level.
	Instruction bool

	Sets      uint32
	Ways      uint32
	LineBytes uint32
}

// Size returns the capacity in bytes.
func (g Geometry) Size() uint32 {
	return g.Sets * g.Ways * g.LineBytes
}

// WayShift returns the position of the way number in a set/way operand.
func (g Geometry) WayShift() uint {
	return uint(32 - bits.Log2Ceil32(g.Ways))
}

// SetShift returns the position of the set number in a set/way operand.
func (g Geometry) SetShift() uint {
	return uint(bits.Log2Ceil32(g.LineBytes))
}

// Operand returns the set/way operand selecting (way, set) of g's level.
func (g Geometry) Operand(way, set uint32) uint32 {
	// With one way the shift is 32 and the way field is empty.
	return way<<g.WayShift() | set<<g.SetShift() | uint32(g.Level)<<1
}

// String implements fmt.Stringer.String.
func (g Geometry) String() string {
	side := "d"
	if g.Instruction {
		side = "i"
	}
	return fmt.Sprintf("L%d%s %s: %d sets x %d ways x %d bytes (%d KiB)", g.Level+1, side, g.Type, g.Sets, g.Ways, g.LineBytes, g.Size()/1024)
}

// ReadGeometry returns the geometry of the data or unified cache at level,
// or of the instruction cache if instruction is set. CSSELR is restored
// before returning.
func ReadGeometry(m Machine, level int, instruction bool) Geometry {
	if level < 0 || level >= cp15.MaxCacheLevels {
		panic(fmt.Sprintf("cache level %d out of range", level))
	}
	ind := uint32(0)
	if instruction {
		ind = 1
	}
	saved := m.Read(cp15.CSSELR)
	cp15.Set(m, cp15.CSSELR, cp15.CSSELRLevel.Val(uint32(level)), cp15.CSSELRInD.Val(ind))
	m.ISB()
	ccsidr := m.Read(cp15.CCSIDR)
	m.Write(cp15.CSSELR, saved)

	return Geometry{
		Level:       level,
		Type:        cp15.CacheType(cp15.CLIDRCtype(level).Get(m.Read(cp15.CLIDR))),
		Instruction: instruction,
		Sets:        cp15.CCSIDRNumSets.Get(ccsidr) + 1,
		Ways:        cp15.CCSIDRAssociativity.Get(ccsidr) + 1,
		LineBytes:   16 << cp15.CCSIDRLineSize.Get(ccsidr),
	}
}

// Walk calls fn with the geometry of every level whose type has a data
// side: Data, Separate or Unified. Other levels are skipped.
func Walk(m Machine, fn func(g Geometry)) {
	clidr := m.Read(cp15.CLIDR)
	for level := 0; level < cp15.MaxCacheLevels; level++ {
		if !cp15.CacheType(cp15.CLIDRCtype(level).Get(clidr)).HasData() {
			continue
		}
		fn(ReadGeometry(m, level, false))
	}
}

// Levels returns the geometry of every data-side level.
func Levels(m Machine) []Geometry {
	var gs []Geometry
	Walk(m, func(g Geometry) {
		gs = append(gs, g)
	})
	return gs
}

// Hierarchy returns the geometry of every implemented cache, including the
// instruction side of Separate and Instruction levels.
func Hierarchy(m Machine) []Geometry {
	var gs []Geometry
	clidr := m.Read(cp15.CLIDR)
	for level := 0; level < cp15.MaxCacheLevels; level++ {
		t := cp15.CacheType(cp15.CLIDRCtype(level).Get(clidr))
		if t == cp15.CacheInstruction || t == cp15.CacheSeparate {
			gs = append(gs, ReadGeometry(m, level, true))
		}
		if t.HasData() {
			gs = append(gs, ReadGeometry(m, level, false))
		}
	}
	return gs
}
