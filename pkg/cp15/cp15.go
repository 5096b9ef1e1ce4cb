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

// Package cp15 provides typed access to the ARMv7-A system control
// coprocessor (CP15).
//
// Registers are described by Reg and Reg64 values and accessed through a
// Bank. The native Bank, available on GOARCH=arm, issues MRC/MCR and
// MRRC/MCRR instructions from assembly leaves; package sim provides a
// software Bank for tests and host tools.
//
// Every register here is private to the executing core. Callers are
// responsible for ordering: a write that affects instruction fetch,
// caches or translation must be followed by an ISB (package barrier).
package cp15

import "fmt"

// Access is the access permission of a register at PL1.
type Access uint8

const (
	// ReadWrite registers may be read and written.
	ReadWrite Access = iota

	// ReadOnly registers are identification or status registers.
	ReadOnly

	// WriteOnly registers are maintenance operations: writing performs the
	// operation, with the written word as operand.
	WriteOnly
)

// String implements fmt.Stringer.String.
func (a Access) String() string {
	switch a {
	case ReadWrite:
		return "RW"
	case ReadOnly:
		return "RO"
	case WriteOnly:
		return "WO"
	default:
		return fmt.Sprintf("Access(%d)", a)
	}
}

// Reg is a 32-bit CP15 register or operation, addressed by
// (opc1, CRn, CRm, opc2).
//
// Reg values are comparable and may be used as map keys.
type Reg struct {
	id     regID
	Name   string
	Opc1   uint8
	CRn    uint8
	CRm    uint8
	Opc2   uint8
	Access Access
}

// String implements fmt.Stringer.String, e.g. "SCTLR (p15, 0, c1, c0, 0)".
func (r Reg) String() string {
	return fmt.Sprintf("%s (p15, %d, c%d, c%d, %d)", r.Name, r.Opc1, r.CRn, r.CRm, r.Opc2)
}

// Reg64 is a 64-bit CP15 register accessed with MRRC/MCRR, addressed by
// (opc1, CRm).
type Reg64 struct {
	id   regID
	Name string
	Opc1 uint8
	CRm  uint8
}

// String implements fmt.Stringer.String.
func (r Reg64) String() string {
	return fmt.Sprintf("%s (p15, %d, c%d)", r.Name, r.Opc1, r.CRm)
}

// Bank is a core's CP15 register file.
//
// Implementations are not safe for concurrent use; each core owns its bank.
type Bank interface {
	// Read returns the value of r. r must not be WriteOnly.
	Read(r Reg) uint32

	// Write sets r to v, or performs the operation r with operand v.
	Write(r Reg, v uint32)

	// Read64 returns the value of r.
	Read64(r Reg64) uint64

	// Write64 sets r to v.
	Write64(r Reg64, v uint64)
}

// Get returns field f of register r.
func Get(b Bank, r Reg, f Field) uint32 {
	return f.Get(b.Read(r))
}

// IsSet returns true if all bits of field f of register r are set.
func IsSet(b Bank, r Reg, f Field) bool {
	return Get(b, r, f) == f.max()
}

// Set writes r with the given field values; all other bits are zero.
func Set(b Bank, r Reg, vals ...FieldValue) {
	b.Write(r, Combine(vals...).Apply(0))
}

// Modify reads r, replaces only the given fields and writes the result
// back. It returns the value written.
func Modify(b Bank, r Reg, vals ...FieldValue) uint32 {
	v := Combine(vals...).Apply(b.Read(r))
	b.Write(r, v)
	return v
}
