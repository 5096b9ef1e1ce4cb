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

	"gvisor.dev/armhal/pkg/cp15"
)

// OpKind classifies a traced operation.
type OpKind uint8

// Traced operation kinds.
const (
	// OpWrite is a CP15 register write or maintenance operation.
	OpWrite OpKind = iota
	OpWrite64
	OpDMB
	OpDSB
	OpISB
	OpWFE
	OpSEV
	OpMask
	OpUnmask
	OpMode
	OpStackPointer
	OpHalt
)

var opNames = [...]string{
	OpWrite:        "write",
	OpWrite64:      "write64",
	OpDMB:          "dmb",
	OpDSB:          "dsb",
	OpISB:          "isb",
	OpWFE:          "wfe",
	OpSEV:          "sev",
	OpMask:         "cpsid",
	OpUnmask:       "cpsie",
	OpMode:         "cps",
	OpStackPointer: "sp",
	OpHalt:         "halt",
}

// String implements fmt.Stringer.String.
func (k OpKind) String() string {
	if int(k) < len(opNames) {
		return opNames[k]
	}
	return fmt.Sprintf("OpKind(%d)", k)
}

// Op is one traced operation of a core.
type Op struct {
	Kind OpKind

	// Reg is the register name for OpWrite and OpWrite64.
	Reg string

	// Value is the written word, mask bits, mode or stack pointer. For
	// OpWrite64 it holds the low word and High the high word.
	Value uint32
	High  uint32
}

// String implements fmt.Stringer.String.
func (o Op) String() string {
	switch o.Kind {
	case OpWrite:
		return fmt.Sprintf("%s %s %#08x", o.Kind, o.Reg, o.Value)
	case OpWrite64:
		return fmt.Sprintf("%s %s %#08x:%08x", o.Kind, o.Reg, o.High, o.Value)
	case OpDMB, OpDSB, OpISB, OpWFE, OpSEV, OpHalt:
		return o.Kind.String()
	default:
		return fmt.Sprintf("%s %#x", o.Kind, o.Value)
	}
}

// Trace is the ordered operations of one core.
type Trace []Op

// Writes returns the operands written to r, in order.
func (t Trace) Writes(r cp15.Reg) []uint32 {
	var vs []uint32
	for _, o := range t {
		if o.Kind == OpWrite && o.Reg == r.Name {
			vs = append(vs, o.Value)
		}
	}
	return vs
}

// Count returns the number of operations of kind k.
func (t Trace) Count(k OpKind) int {
	n := 0
	for _, o := range t {
		if o.Kind == k {
			n++
		}
	}
	return n
}

// Index returns the position of the first operation matching pred, or -1.
func (t Trace) Index(pred func(Op) bool) int {
	for i, o := range t {
		if pred(o) {
			return i
		}
	}
	return -1
}

// IsWrite returns a predicate matching writes to r.
func IsWrite(r cp15.Reg) func(Op) bool {
	return func(o Op) bool {
		return o.Kind == OpWrite && o.Reg == r.Name
	}
}

// IsKind returns a predicate matching operations of kind k.
func IsKind(k OpKind) func(Op) bool {
	return func(o Op) bool {
		return o.Kind == k
	}
}
