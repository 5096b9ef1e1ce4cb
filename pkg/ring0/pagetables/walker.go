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

	"gvisor.dev/armhal/pkg/hostarch"
)

// addrEnd returns the next boundary of size after addr, or end if that
// comes earlier. size must be a power of two.
func addrEnd(addr, end, size uint64) uint64 {
	next := (addr + size) &^ (size - 1)
	if next > end {
		return end
	}
	return next
}

// walker visits the directory entries covering a range.
type walker struct {
	d *PageDirectory

	// section is called for each span the range covers entirely. It
	// returns false if the span must instead be visited page by page.
	section func(va hostarch.Addr, e DirectoryEntry) bool

	// page is called for each page of a span the range covers partly,
	// or whose section callback returned false.
	page func(t *PageTable, va hostarch.Addr)

	// alloc installs a new page table for invalid spans visited page by
	// page. Without it such spans are skipped.
	alloc bool
}

// iterateRange walks [start, end).
func (w *walker) iterateRange(start, end uint64) {
	for start < end {
		next := addrEnd(start, end, hostarch.SectionSize)
		va := hostarch.Addr(start)
		e := w.d.Entry(va)
		if start&(hostarch.SectionSize-1) == 0 && next-start == hostarch.SectionSize && w.section(va, e) {
			start = next
			continue
		}

		var t *PageTable
		switch e.Kind() {
		case DirectoryPageTable:
			t, _ = w.d.PageTable(va)
		case DirectorySection:
			t = w.d.split(e)
		default:
			if !w.alloc {
				start = next
				continue
			}
			t = NewPageTable(w.d.b, w.d.alloc, va.SectionRoundDown())
			w.d.MapPageTable(t)
		}
		for p := start; p < next; p += hostarch.PageSize {
			w.page(t, hostarch.Addr(p))
		}
		start = next
	}
}

// split replaces the section e with an equivalent page table, which it
// returns. The table is filled before it is installed, so the span stays
// mapped throughout.
func (d *PageDirectory) split(e DirectoryEntry) *PageTable {
	s, _ := e.Section()
	t := NewPageTable(d.b, d.alloc, s.virt)
	for i := hostarch.Addr(0); i < TableEntries; i++ {
		off := i * hostarch.PageSize
		t.MapPage(NewPage(s.virt+off, s.phys+off, s.attrs))
	}
	d.MapPageTable(t)
	return t
}

// checkRange panics unless virt, phys and size describe a page-aligned
// range within the address space. It returns the range's end.
func checkRange(virt, phys hostarch.Addr, size uint64) uint64 {
	if !virt.IsPageAligned() || !phys.IsPageAligned() || size%hostarch.PageSize != 0 {
		panic(fmt.Sprintf("unaligned range: virt=%v phys=%v size=%#x", virt, phys, size))
	}
	if uint64(virt)+size > 1<<32 || uint64(phys)+size > 1<<32 {
		panic(fmt.Sprintf("range beyond 4 GiB: virt=%v phys=%v size=%#x", virt, phys, size))
	}
	return uint64(virt) + size
}

// MapRange maps size bytes at virt to phys. Spans whose virtual and
// physical addresses are both section aligned and that are covered
// entirely are mapped as sections; the rest are mapped as pages, splitting
// existing sections and allocating page tables as needed.
//
// It panics if virt, phys or size is not page aligned.
func (d *PageDirectory) MapRange(virt, phys hostarch.Addr, size uint64, attrs MemoryAttributes) {
	end := checkRange(virt, phys, size)
	delta := phys - virt
	w := walker{
		d: d,
		section: func(va hostarch.Addr, e DirectoryEntry) bool {
			pa := va + delta
			if !pa.IsSectionAligned() || e.Kind() == DirectoryPageTable {
				return false
			}
			d.MapSection(NewSection(va, pa, attrs))
			return true
		},
		page: func(t *PageTable, va hostarch.Addr) {
			t.MapPage(NewPage(va, va+delta, attrs))
		},
		alloc: true,
	}
	w.iterateRange(uint64(virt), end)
}

// UnmapRange invalidates size bytes at virt. Spans covered entirely are
// invalidated in the directory; sections covered partly are split first.
//
// It panics if virt or size is not page aligned.
func (d *PageDirectory) UnmapRange(virt hostarch.Addr, size uint64) {
	end := checkRange(virt, 0, size)
	w := walker{
		d: d,
		section: func(va hostarch.Addr, e DirectoryEntry) bool {
			if e.Valid() {
				d.UnmapSection(va)
			}
			return true
		},
		page: func(t *PageTable, va hostarch.Addr) {
			t.UnmapPage(va)
		},
	}
	w.iterateRange(uint64(virt), end)
}

// Mapping is a run of virtually and physically contiguous memory with
// uniform attributes.
type Mapping struct {
	Virtual    hostarch.Addr
	Physical   hostarch.Addr
	Size       uint64
	Attributes MemoryAttributes
}

// String implements fmt.Stringer.String.
func (m Mapping) String() string {
	return fmt.Sprintf("%v-%#08x -> %v %v", m.Virtual, uint64(m.Virtual)+m.Size, m.Physical, m.Attributes)
}

// Mappings returns every mapping in the directory in ascending virtual
// order, merging adjacent entries that continue one another.
func (d *PageDirectory) Mappings() []Mapping {
	var ms []Mapping
	add := func(m Mapping) {
		if n := len(ms); n > 0 {
			last := &ms[n-1]
			if uint64(last.Virtual)+last.Size == uint64(m.Virtual) &&
				uint64(last.Physical)+last.Size == uint64(m.Physical) &&
				last.Attributes == m.Attributes {
				last.Size += m.Size
				return
			}
		}
		ms = append(ms, m)
	}
	for i := 0; i < DirectoryEntries; i++ {
		va := hostarch.Addr(i) << hostarch.SectionShift
		e := d.Entry(va)
		switch e.Kind() {
		case DirectorySection:
			s, _ := e.Section()
			add(Mapping{Virtual: va, Physical: s.phys, Size: hostarch.SectionSize, Attributes: s.attrs})
		case DirectoryPageTable:
			t, _ := d.PageTable(va)
			for j := 0; j < TableEntries; j++ {
				pva := va + hostarch.Addr(j)<<hostarch.PageShift
				if p, ok := t.Entry(pva).Page(); ok {
					add(Mapping{Virtual: pva, Physical: p.phys, Size: hostarch.PageSize, Attributes: p.attrs})
				}
			}
		}
	}
	return ms
}
