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

// Field is a contiguous bit field within a register.
type Field struct {
	Shift uint8
	Width uint8
}

// bit returns a one-bit field at position shift.
func bit(shift uint8) Field {
	return Field{Shift: shift, Width: 1}
}

func (f Field) max() uint32 {
	if f.Width >= 32 {
		return ^uint32(0)
	}
	return uint32(1)<<f.Width - 1
}

// Mask returns the in-register mask of f.
func (f Field) Mask() uint32 {
	return f.max() << f.Shift
}

// Get extracts f from the register value v.
func (f Field) Get(v uint32) uint32 {
	return (v >> f.Shift) & f.max()
}

// Val returns the FieldValue setting f to x. Bits of x wider than f are
// discarded.
func (f Field) Val(x uint32) FieldValue {
	return FieldValue{Mask: f.Mask(), Value: (x & f.max()) << f.Shift}
}

// Set returns the FieldValue setting every bit of f.
func (f Field) Set() FieldValue {
	return f.Val(f.max())
}

// Clear returns the FieldValue clearing every bit of f.
func (f Field) Clear() FieldValue {
	return f.Val(0)
}

// FieldValue is a value for one or more fields: the bits in Mask are
// replaced by the corresponding bits of Value.
type FieldValue struct {
	Mask  uint32
	Value uint32
}

// Or combines two field values. Where masks overlap, o wins.
func (fv FieldValue) Or(o FieldValue) FieldValue {
	return FieldValue{
		Mask:  fv.Mask | o.Mask,
		Value: fv.Value&^o.Mask | o.Value,
	}
}

// Apply returns v with the fields of fv replaced.
func (fv FieldValue) Apply(v uint32) uint32 {
	return v&^fv.Mask | fv.Value
}

// Combine folds vals with Or, left to right.
func Combine(vals ...FieldValue) FieldValue {
	var fv FieldValue
	for _, v := range vals {
		fv = fv.Or(v)
	}
	return fv
}

// SCTLR, System Control Register.
var (
	SCTLRM   = bit(0)  // MMU enable.
	SCTLRA   = bit(1)  // Alignment check.
	SCTLRC   = bit(2)  // Data and unified caches.
	SCTLRZ   = bit(11) // Branch prediction.
	SCTLRI   = bit(12) // Instruction cache.
	SCTLRV   = bit(13) // High exception vectors.
	SCTLRTRE = bit(28) // TEX remap.
	SCTLRAFE = bit(29) // Access flag model.
	SCTLRTE  = bit(30) // Thumb exceptions.
)

// ACTLR, Auxiliary Control Register. The layout is implementation defined;
// these bits are common to the Cortex-A5/A7/A9/A15 family.
var (
	ACTLRFW  = bit(0) // Cortex-A9: forward cache and TLB maintenance.
	ACTLRSMP = bit(6) // Take part in coherency.
)

// MPIDR, Multiprocessor Affinity Register.
var (
	MPIDRAff0 = Field{Shift: 0, Width: 8}
	MPIDRAff1 = Field{Shift: 8, Width: 8}
	MPIDRU    = bit(30) // Uniprocessor system.
	MPIDRMP   = bit(31) // Multiprocessing extensions implemented.
)

// CacheType is the CLIDR.Ctype encoding of a cache level.
type CacheType uint8

// Cache types.
const (
	CacheNone        CacheType = 0
	CacheInstruction CacheType = 1
	CacheData        CacheType = 2
	CacheSeparate    CacheType = 3
	CacheUnified     CacheType = 4
)

// String implements fmt.Stringer.String.
func (c CacheType) String() string {
	switch c {
	case CacheNone:
		return "none"
	case CacheInstruction:
		return "instruction"
	case CacheData:
		return "data"
	case CacheSeparate:
		return "separate"
	case CacheUnified:
		return "unified"
	default:
		return "reserved"
	}
}

// HasData returns true if the level holds a data or unified cache.
func (c CacheType) HasData() bool {
	return c == CacheData || c == CacheSeparate || c == CacheUnified
}

// MaxCacheLevels is the number of levels CLIDR can describe.
const MaxCacheLevels = 7

// CLIDR, Cache Level ID Register.
var (
	CLIDRLoUIS = Field{Shift: 21, Width: 3}
	CLIDRLoC   = Field{Shift: 24, Width: 3}
	CLIDRLoUU  = Field{Shift: 27, Width: 3}
)

// CLIDRCtype returns the Ctype field of zero-based cache level n.
func CLIDRCtype(n int) Field {
	return Field{Shift: uint8(3 * n), Width: 3}
}

// CCSIDR, Cache Size ID Register, describing the cache selected by CSSELR.
var (
	CCSIDRLineSize      = Field{Shift: 0, Width: 3}   // log2(words per line) - 2.
	CCSIDRAssociativity = Field{Shift: 3, Width: 10}  // Ways - 1.
	CCSIDRNumSets       = Field{Shift: 13, Width: 15} // Sets - 1.
	CCSIDRWA            = bit(28)
	CCSIDRRA            = bit(29)
	CCSIDRWB            = bit(30)
	CCSIDRWT            = bit(31)
)

// CSSELR, Cache Size Selection Register.
var (
	CSSELRInD   = bit(0)                    // Select the instruction cache.
	CSSELRLevel = Field{Shift: 1, Width: 3} // Zero-based level.
)

// CTR, Cache Type Register.
var (
	CTRIminLine = Field{Shift: 0, Width: 4}  // log2(words) of the smallest I-cache line.
	CTRDminLine = Field{Shift: 16, Width: 4} // log2(words) of the smallest D-cache line.
)

// TTBCR, Translation Table Base Control Register.
var (
	TTBCRN   = Field{Shift: 0, Width: 3} // TTBR0 covers 4 GiB >> N.
	TTBCRPD0 = bit(4)                    // Disable walks through TTBR0.
	TTBCRPD1 = bit(5)                    // Disable walks through TTBR1.
	TTBCREAE = bit(31)                   // Long-descriptor format.
)

// TTBR0 and TTBR1, short-descriptor format.
var (
	TTBRIRGN1 = bit(0) // Multiprocessing extensions; C without them.
	TTBRC     = bit(0)
	TTBRS     = bit(1)
	TTBRRGN   = Field{Shift: 3, Width: 2}
	TTBRNOS   = bit(5)
	TTBRIRGN0 = bit(6)
	TTBRBase  = Field{Shift: 14, Width: 18} // With TTBCR.N == 0.
)

// Region cache policies for TTBR.RGN and TTBR.IRGN.
const (
	RegionNonCacheable             = 0
	RegionWriteBackWriteAllocate   = 1
	RegionWriteThrough             = 2
	RegionWriteBackNoWriteAllocate = 3
)

// DomainAccess is a DACR domain field value.
type DomainAccess uint32

// Domain access values.
const (
	DomainNoAccess DomainAccess = 0
	DomainClient   DomainAccess = 1
	DomainManager  DomainAccess = 3
)

// DACRDomain returns the field of domain d (0-15).
func DACRDomain(d int) Field {
	return Field{Shift: uint8(2 * d), Width: 2}
}

// CPACR, Coprocessor Access Control Register.
var (
	CPACRcp10 = Field{Shift: 20, Width: 2}
	CPACRcp11 = Field{Shift: 22, Width: 2}
)

// DFSR and IFSR, short-descriptor format.
var (
	FSRStatusLow  = Field{Shift: 0, Width: 4}
	FSRDomain     = Field{Shift: 4, Width: 4}
	FSRStatusHigh = bit(10)
	FSRWnR        = bit(11) // DFSR only: the faulting access was a write.
)

// FaultStatus returns the 5-bit fault status of a DFSR or IFSR value.
func FaultStatus(fsr uint32) uint32 {
	return FSRStatusHigh.Get(fsr)<<4 | FSRStatusLow.Get(fsr)
}

// VBAR, Vector Base Address Register.
var VBARBase = Field{Shift: 5, Width: 27}

// CBAR, Configuration Base Address Register (Cortex-A9/A5 MPCore).
var CBARPeriphBase = Field{Shift: 13, Width: 19}
