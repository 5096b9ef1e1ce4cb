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

// Package hostarch contains address arithmetic for the 32-bit ARMv7-A
// short-descriptor translation regime.
package hostarch

import "fmt"

const (
	// PageShift is the binary log of the small page size.
	PageShift = 12

	// PageSize is the small page size.
	PageSize = 1 << PageShift

	// SectionShift is the binary log of the section size.
	SectionShift = 20

	// SectionSize is the size of a first-level section mapping, and the span
	// covered by one second-level page table.
	SectionSize = 1 << SectionShift
)

// Addr represents a 32-bit virtual or physical address.
type Addr uint32

// String implements fmt.Stringer.String.
func (v Addr) String() string {
	return fmt.Sprintf("%#08x", uint32(v))
}

// RoundDown returns the address rounded down to the nearest page boundary.
func (v Addr) RoundDown() Addr {
	return v & ^Addr(PageSize-1)
}

// RoundUp returns the address rounded up to the nearest page boundary. ok is
// true iff rounding up did not wrap around.
func (v Addr) RoundUp() (addr Addr, ok bool) {
	addr = Addr(v + PageSize - 1).RoundDown()
	ok = addr >= v
	return
}

// SectionRoundDown returns the address rounded down to the nearest section
// boundary.
func (v Addr) SectionRoundDown() Addr {
	return v & ^Addr(SectionSize-1)
}

// PageOffset returns the offset of v into the current page.
func (v Addr) PageOffset() uint32 {
	return uint32(v & Addr(PageSize-1))
}

// IsPageAligned returns true if v.PageOffset() == 0.
func (v Addr) IsPageAligned() bool {
	return v.PageOffset() == 0
}

// IsSectionAligned returns true if v is a multiple of SectionSize.
func (v Addr) IsSectionAligned() bool {
	return v&Addr(SectionSize-1) == 0
}

// SectionIndex returns the page directory index covering v.
func (v Addr) SectionIndex() int {
	return int(v >> SectionShift)
}

// PageIndex returns the second-level table index covering v.
func (v Addr) PageIndex() int {
	return int(v>>PageShift) & 0xff
}

// AddRange returns the AddrRange [v, v+length). ok is false if the range
// wraps beyond the 32-bit address space.
func (v Addr) AddRange(length uint32) (ar AddrRange, ok bool) {
	end := v + Addr(length)
	if end < v {
		return AddrRange{}, false
	}
	return AddrRange{v, end}, true
}

// AddrRange is a range of Addrs [Start, End).
type AddrRange struct {
	Start Addr
	End   Addr
}

// WellFormed returns true if ar.Start <= ar.End.
func (ar AddrRange) WellFormed() bool {
	return ar.Start <= ar.End
}

// Length returns the length of the range.
func (ar AddrRange) Length() uint32 {
	return uint32(ar.End - ar.Start)
}

// Contains returns true if ar contains x.
func (ar AddrRange) Contains(x Addr) bool {
	return ar.Start <= x && x < ar.End
}

// Overlaps returns true if ar and other share at least one address.
func (ar AddrRange) Overlaps(other AddrRange) bool {
	return ar.Start < other.End && other.Start < ar.End
}

// String implements fmt.Stringer.String.
func (ar AddrRange) String() string {
	return fmt.Sprintf("[%#08x, %#08x)", uint32(ar.Start), uint32(ar.End))
}
