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

// Package pagetables manages ARMv7-A short-descriptor translation tables:
// a 4096-entry page directory of 1 MiB sections and page table references,
// and 256-entry page tables of 4 KiB small pages.
//
// Every mutation is a single word store followed by an ISB, so the table
// walker never observes a partially written entry. No operation here
// invalidates TLB entries; callers replacing a live mapping must use
// FlushTLB or FlushTLBAddr afterwards. Callers mapping from more than one
// core must serialize mutations, typically with sync.Global.
package pagetables

import (
	"fmt"
	"sync/atomic"

	"gvisor.dev/armhal/pkg/barrier"
	"gvisor.dev/armhal/pkg/hostarch"
)

// PageDirectory is a first-level translation table.
type PageDirectory struct {
	b     barrier.Barriers
	alloc Allocator
	pdes  *PDEs
	phys  hostarch.Addr
}

// NewPageDirectory returns an empty page directory allocated from a.
// Barriers are issued through b.
func NewPageDirectory(b barrier.Barriers, a Allocator) *PageDirectory {
	pdes := a.NewPDEs()
	phys := a.PhysicalFor(pdes[:])
	if phys&(DirectorySize-1) != 0 {
		panic(fmt.Sprintf("page directory at %v is not 16 KiB aligned", phys))
	}
	return &PageDirectory{b: b, alloc: a, pdes: pdes, phys: phys}
}

// PhysicalAddress returns the physical address of the directory, as
// programmed into TTBR0.
func (d *PageDirectory) PhysicalAddress() hostarch.Addr {
	return d.phys
}

// Allocator returns the allocator tables are carved from.
func (d *PageDirectory) Allocator() Allocator {
	return d.alloc
}

//go:nosplit
func (d *PageDirectory) store(i int, v uint32) {
	atomic.StoreUint32(&d.pdes[i], v)
	d.b.ISB()
}

// MapSection installs s, replacing any previous entry for its span.
func (d *PageDirectory) MapSection(s Section) {
	d.store(s.virt.SectionIndex(), s.descriptor())
}

// UnmapSection invalidates the entry covering virt, whatever its kind.
func (d *PageDirectory) UnmapSection(virt hostarch.Addr) {
	d.store(virt.SectionIndex(), 0)
}

// MapPageTable installs a reference to t for t's span.
func (d *PageDirectory) MapPageTable(t *PageTable) {
	d.store(t.virt.SectionIndex(), uint32(t.phys)|pdeTypePageTable)
}

// UnmapPageTable invalidates the entry for t's span. t itself is left
// intact.
func (d *PageDirectory) UnmapPageTable(t *PageTable) {
	d.store(t.virt.SectionIndex(), 0)
}

// Entry returns a snapshot of the entry covering va.
func (d *PageDirectory) Entry(va hostarch.Addr) DirectoryEntry {
	return DecodeDirectoryEntry(va, atomic.LoadUint32(&d.pdes[va.SectionIndex()]))
}

// PageTable returns the page table referenced by the entry covering va. ok
// is false if that entry is not a page table reference.
func (d *PageDirectory) PageTable(va hostarch.Addr) (t *PageTable, ok bool) {
	phys, ok := d.Entry(va).PageTable()
	if !ok {
		return nil, false
	}
	return &PageTable{
		b:    d.b,
		ptes: d.alloc.LookupPTEs(phys),
		phys: phys,
		virt: va.SectionRoundDown(),
	}, true
}

// Translate returns the physical address and attributes va maps to. ok is
// false if va is unmapped.
func (d *PageDirectory) Translate(va hostarch.Addr) (phys hostarch.Addr, attrs MemoryAttributes, ok bool) {
	e := d.Entry(va)
	switch e.Kind() {
	case DirectorySection:
		s, _ := e.Section()
		return s.phys | va&(hostarch.SectionSize-1), s.attrs, true
	case DirectoryPageTable:
		t, _ := d.PageTable(va)
		p, ok := t.Entry(va).Page()
		if !ok {
			return 0, MemoryAttributes{}, false
		}
		return p.phys | hostarch.Addr(va.PageOffset()), p.attrs, true
	default:
		return 0, MemoryAttributes{}, false
	}
}

// PageTable is a second-level translation table covering one 1 MiB span.
type PageTable struct {
	b    barrier.Barriers
	ptes *PTEs
	phys hostarch.Addr
	virt hostarch.Addr
}

// NewPageTable returns an empty page table allocated from a, for the span
// starting at virt. It panics if virt is not 1 MiB aligned. The table is
// not installed; see PageDirectory.MapPageTable.
func NewPageTable(b barrier.Barriers, a Allocator, virt hostarch.Addr) *PageTable {
	if !virt.IsSectionAligned() {
		panic(fmt.Sprintf("unaligned page table span %v", virt))
	}
	ptes := a.NewPTEs()
	phys := a.PhysicalFor(ptes[:])
	if phys&(TableSize-1) != 0 {
		panic(fmt.Sprintf("page table at %v is not 1 KiB aligned", phys))
	}
	return &PageTable{b: b, ptes: ptes, phys: phys, virt: virt}
}

// Virtual returns the base of the span the table covers.
func (t *PageTable) Virtual() hostarch.Addr {
	return t.virt
}

// PhysicalAddress returns the physical address of the table.
func (t *PageTable) PhysicalAddress() hostarch.Addr {
	return t.phys
}

func (t *PageTable) index(va hostarch.Addr) int {
	if va.SectionRoundDown() != t.virt {
		panic(fmt.Sprintf("%v outside page table span %v", va, t.virt))
	}
	return va.PageIndex()
}

//go:nosplit
func (t *PageTable) store(i int, v uint32) {
	atomic.StoreUint32(&t.ptes[i], v)
	t.b.ISB()
}

// MapPage installs p. It panics if p lies outside the table's span.
func (t *PageTable) MapPage(p Page) {
	t.store(t.index(p.virt), p.descriptor())
}

// UnmapPage invalidates the entry covering virt. It panics if virt lies
// outside the table's span.
func (t *PageTable) UnmapPage(virt hostarch.Addr) {
	t.store(t.index(virt), 0)
}

// Entry returns a snapshot of the entry covering va. It panics if va lies
// outside the table's span.
func (t *PageTable) Entry(va hostarch.Addr) TableEntry {
	return DecodeTableEntry(va, atomic.LoadUint32(&t.ptes[t.index(va)]))
}
