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

package pagetables

import (
	"fmt"
	"strings"
)

// MemoryType is the architectural memory type of a mapping.
type MemoryType uint8

// Memory types.
const (
	StronglyOrderedMemory MemoryType = iota
	DeviceMemory
	NormalMemory
)

// String implements fmt.Stringer.String.
func (t MemoryType) String() string {
	switch t {
	case StronglyOrderedMemory:
		return "strongly-ordered"
	case DeviceMemory:
		return "device"
	case NormalMemory:
		return "normal"
	default:
		return fmt.Sprintf("MemoryType(%d)", t)
	}
}

// CachePolicy is the inner or outer cacheability of Normal memory. The
// values are the architectural encodings.
type CachePolicy uint8

// Cache policies.
const (
	NonCacheable             CachePolicy = 0
	WriteBackWriteAllocate   CachePolicy = 1
	WriteThrough             CachePolicy = 2
	WriteBackNoWriteAllocate CachePolicy = 3
)

// String implements fmt.Stringer.String.
func (p CachePolicy) String() string {
	switch p {
	case NonCacheable:
		return "nc"
	case WriteBackWriteAllocate:
		return "wbwa"
	case WriteThrough:
		return "wt"
	case WriteBackNoWriteAllocate:
		return "wb"
	default:
		return fmt.Sprintf("CachePolicy(%d)", p)
	}
}

// MemoryAttributes describe how a mapping may be accessed and cached.
//
// MemoryAttributes are immutable values; the builder methods return
// modified copies. The zero value is strongly-ordered, read-write,
// executable memory accessible only at PL1; prefer the constructors.
type MemoryAttributes struct {
	typ          MemoryType
	inner        CachePolicy
	outer        CachePolicy
	shareable    bool
	readOnly     bool
	executeNever bool
	pl0          bool
}

// Device returns attributes for device memory: read-only, execute-never
// and PL1 only.
func Device() MemoryAttributes {
	return MemoryAttributes{typ: DeviceMemory, readOnly: true, executeNever: true}
}

// StronglyOrdered returns attributes for strongly-ordered memory:
// read-only, execute-never and PL1 only.
func StronglyOrdered() MemoryAttributes {
	return MemoryAttributes{typ: StronglyOrderedMemory, readOnly: true, executeNever: true}
}

// Normal returns attributes for normal memory: non-cacheable,
// non-shareable, read-only, execute-never and PL1 only.
func Normal() MemoryAttributes {
	return MemoryAttributes{typ: NormalMemory, readOnly: true, executeNever: true}
}

// Inner sets the inner cache policy of Normal memory.
func (a MemoryAttributes) Inner(p CachePolicy) MemoryAttributes {
	if a.typ == NormalMemory {
		a.inner = p & 3
	}
	return a
}

// Outer sets the outer cache policy of Normal memory.
func (a MemoryAttributes) Outer(p CachePolicy) MemoryAttributes {
	if a.typ == NormalMemory {
		a.outer = p & 3
	}
	return a
}

// Shareable marks Normal memory shareable.
func (a MemoryAttributes) Shareable() MemoryAttributes {
	if a.typ == NormalMemory {
		a.shareable = true
	}
	return a
}

// NonShareable marks Normal memory non-shareable.
func (a MemoryAttributes) NonShareable() MemoryAttributes {
	a.shareable = false
	return a
}

// ReadOnly forbids writes.
func (a MemoryAttributes) ReadOnly() MemoryAttributes {
	a.readOnly = true
	return a
}

// ReadWrite permits writes.
func (a MemoryAttributes) ReadWrite() MemoryAttributes {
	a.readOnly = false
	return a
}

// ExecuteNever forbids instruction fetch.
func (a MemoryAttributes) ExecuteNever() MemoryAttributes {
	a.executeNever = true
	return a
}

// Executable permits instruction fetch.
func (a MemoryAttributes) Executable() MemoryAttributes {
	a.executeNever = false
	return a
}

// PrivilegeLevel0 makes the mapping accessible from PL0 as well as PL1.
func (a MemoryAttributes) PrivilegeLevel0() MemoryAttributes {
	a.pl0 = true
	return a
}

// PrivilegeLevel1 restricts the mapping to PL1.
func (a MemoryAttributes) PrivilegeLevel1() MemoryAttributes {
	a.pl0 = false
	return a
}

// Type returns the memory type.
func (a MemoryAttributes) Type() MemoryType { return a.typ }

// InnerPolicy returns the inner cache policy. It is NonCacheable for all
// but Normal memory.
func (a MemoryAttributes) InnerPolicy() CachePolicy { return a.inner }

// OuterPolicy returns the outer cache policy. It is NonCacheable for all
// but Normal memory.
func (a MemoryAttributes) OuterPolicy() CachePolicy { return a.outer }

// IsShareable returns true for shareable Normal memory.
func (a MemoryAttributes) IsShareable() bool { return a.shareable }

// IsReadOnly returns true if writes are forbidden.
func (a MemoryAttributes) IsReadOnly() bool { return a.readOnly }

// IsExecuteNever returns true if instruction fetch is forbidden.
func (a MemoryAttributes) IsExecuteNever() bool { return a.executeNever }

// IsPrivilegeLevel0 returns true if PL0 may access the mapping.
func (a MemoryAttributes) IsPrivilegeLevel0() bool { return a.pl0 }

// String implements fmt.Stringer.String.
func (a MemoryAttributes) String() string {
	var b strings.Builder
	b.WriteString(a.typ.String())
	if a.typ == NormalMemory {
		fmt.Fprintf(&b, "(inner=%s,outer=%s", a.inner, a.outer)
		if a.shareable {
			b.WriteString(",shareable")
		}
		b.WriteByte(')')
	}
	if a.readOnly {
		b.WriteString(" r")
	} else {
		b.WriteString(" rw")
	}
	if !a.executeNever {
		b.WriteByte('x')
	}
	if a.pl0 {
		b.WriteString(" pl0")
	} else {
		b.WriteString(" pl1")
	}
	return b.String()
}

// regionBits is the memory region encoding shared by sections and small
// pages, with TEX remap disabled.
type regionBits struct {
	tex uint32
	c   uint32
	b   uint32
}

func (a MemoryAttributes) region() regionBits {
	switch a.typ {
	case DeviceMemory:
		return regionBits{b: 1}
	case NormalMemory:
		return regionBits{
			tex: 4 | uint32(a.outer),
			c:   uint32(a.inner) >> 1,
			b:   uint32(a.inner) & 1,
		}
	default:
		return regionBits{}
	}
}

// accessBits returns AP[2] and AP[1:0]. AP[0] is the access flag under the
// simplified access model and is always set.
func (a MemoryAttributes) accessBits() (ap2, ap uint32) {
	ap = 1
	if a.pl0 {
		ap = 3
	}
	if a.readOnly {
		ap2 = 1
	}
	return ap2, ap
}

// decodeAttributes reverses region and accessBits. Region encodings this
// package does not produce are mapped to the closest type.
func decodeAttributes(r regionBits, ap2, ap, xn, s uint32) MemoryAttributes {
	var a MemoryAttributes
	cb := CachePolicy(r.c<<1 | r.b)
	switch {
	case r.tex&4 != 0:
		a.typ = NormalMemory
		a.outer = CachePolicy(r.tex & 3)
		a.inner = cb
	case r.tex == 0 && cb == 0:
		a.typ = StronglyOrderedMemory
	case r.tex == 0 && cb == 1, r.tex == 2 && cb == 0:
		a.typ = DeviceMemory
	case r.tex == 0:
		// Legacy write-through and write-back encodings.
		a.typ = NormalMemory
		if cb == 2 {
			a.inner, a.outer = WriteThrough, WriteThrough
		} else {
			a.inner, a.outer = WriteBackNoWriteAllocate, WriteBackNoWriteAllocate
		}
	case r.tex == 1 && cb == 3:
		a.typ = NormalMemory
		a.inner, a.outer = WriteBackWriteAllocate, WriteBackWriteAllocate
	default:
		a.typ = NormalMemory
	}
	a.shareable = a.typ == NormalMemory && s != 0
	a.readOnly = ap2 != 0
	a.pl0 = ap&2 != 0
	a.executeNever = xn != 0
	return a
}
