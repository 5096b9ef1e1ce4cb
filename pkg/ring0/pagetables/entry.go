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

// Short-descriptor format bits.
const (
	descTypeMask = 0x3

	pdeTypePageTable = 0x1
	pdeTypeSection   = 0x2

	pdeB        = 1 << 2
	pdeC        = 1 << 3
	pdeXN       = 1 << 4
	pdeAPShift  = 10
	pdeTEXShift = 12
	pdeAP2      = 1 << 15
	pdeS        = 1 << 16
	pdeNG       = 1 << 17

	pdeSectionBase   = 0xfff00000
	pdePageTableBase = 0xfffffc00

	pteXN       = 1 << 0
	ptePage     = 1 << 1
	pteB        = 1 << 2
	pteC        = 1 << 3
	pteAPShift  = 4
	pteTEXShift = 6
	pteAP2      = 1 << 9
	pteS        = 1 << 10
	pteNG       = 1 << 11

	ptePageBase = 0xfffff000
)

// Section is a request to map one 1 MiB section.
type Section struct {
	virt  hostarch.Addr
	phys  hostarch.Addr
	attrs MemoryAttributes
}

// NewSection returns a section mapping virt to phys. It panics if either
// address is not 1 MiB aligned.
func NewSection(virt, phys hostarch.Addr, attrs MemoryAttributes) Section {
	if !virt.IsSectionAligned() || !phys.IsSectionAligned() {
		panic(fmt.Sprintf("unaligned section: virt=%v phys=%v", virt, phys))
	}
	return Section{virt: virt, phys: phys, attrs: attrs}
}

// Virtual returns the virtual base.
func (s Section) Virtual() hostarch.Addr { return s.virt }

// Physical returns the physical base.
func (s Section) Physical() hostarch.Addr { return s.phys }

// Attributes returns the memory attributes.
func (s Section) Attributes() MemoryAttributes { return s.attrs }

// String implements fmt.Stringer.String.
func (s Section) String() string {
	return fmt.Sprintf("section %v -> %v %v", s.virt, s.phys, s.attrs)
}

func (s Section) descriptor() uint32 {
	r := s.attrs.region()
	ap2, ap := s.attrs.accessBits()
	v := uint32(s.phys) | pdeTypeSection | r.tex<<pdeTEXShift | ap<<pdeAPShift
	if r.b != 0 {
		v |= pdeB
	}
	if r.c != 0 {
		v |= pdeC
	}
	if ap2 != 0 {
		v |= pdeAP2
	}
	if s.attrs.executeNever {
		v |= pdeXN
	}
	if s.attrs.shareable {
		v |= pdeS
	}
	return v
}

// Page is a request to map one 4 KiB small page.
type Page struct {
	virt  hostarch.Addr
	phys  hostarch.Addr
	attrs MemoryAttributes
}

// NewPage returns a page mapping virt to phys. It panics if either address
// is not 4 KiB aligned.
func NewPage(virt, phys hostarch.Addr, attrs MemoryAttributes) Page {
	if !virt.IsPageAligned() || !phys.IsPageAligned() {
		panic(fmt.Sprintf("unaligned page: virt=%v phys=%v", virt, phys))
	}
	return Page{virt: virt, phys: phys, attrs: attrs}
}

// Virtual returns the virtual base.
func (p Page) Virtual() hostarch.Addr { return p.virt }

// Physical returns the physical base.
func (p Page) Physical() hostarch.Addr { return p.phys }

// Attributes returns the memory attributes.
func (p Page) Attributes() MemoryAttributes { return p.attrs }

// String implements fmt.Stringer.String.
func (p Page) String() string {
	return fmt.Sprintf("page %v -> %v %v", p.virt, p.phys, p.attrs)
}

func (p Page) descriptor() uint32 {
	r := p.attrs.region()
	ap2, ap := p.attrs.accessBits()
	v := uint32(p.phys) | ptePage | r.tex<<pteTEXShift | ap<<pteAPShift
	if r.b != 0 {
		v |= pteB
	}
	if r.c != 0 {
		v |= pteC
	}
	if ap2 != 0 {
		v |= pteAP2
	}
	if p.attrs.executeNever {
		v |= pteXN
	}
	if p.attrs.shareable {
		v |= pteS
	}
	return v
}

// DirectoryEntryKind is the interpretation of a page directory entry.
type DirectoryEntryKind uint8

// Directory entry kinds.
const (
	DirectoryInvalid DirectoryEntryKind = iota
	DirectorySection
	DirectoryPageTable
)

// String implements fmt.Stringer.String.
func (k DirectoryEntryKind) String() string {
	switch k {
	case DirectoryInvalid:
		return "invalid"
	case DirectorySection:
		return "section"
	case DirectoryPageTable:
		return "page-table"
	default:
		return fmt.Sprintf("DirectoryEntryKind(%d)", k)
	}
}

// DirectoryEntry is a snapshot of one page directory entry.
type DirectoryEntry struct {
	virt hostarch.Addr
	raw  uint32
}

// DecodeDirectoryEntry interprets raw as the entry covering virt.
func DecodeDirectoryEntry(virt hostarch.Addr, raw uint32) DirectoryEntry {
	return DirectoryEntry{virt: virt.SectionRoundDown(), raw: raw}
}

// Kind returns the entry's interpretation. Supersections are reported as
// sections; the reserved type is reported as invalid.
func (e DirectoryEntry) Kind() DirectoryEntryKind {
	switch e.raw & descTypeMask {
	case pdeTypeSection:
		return DirectorySection
	case pdeTypePageTable:
		return DirectoryPageTable
	default:
		return DirectoryInvalid
	}
}

// Valid returns true unless the entry is invalid.
func (e DirectoryEntry) Valid() bool {
	return e.Kind() != DirectoryInvalid
}

// Virtual returns the base of the 1 MiB span the entry covers.
func (e DirectoryEntry) Virtual() hostarch.Addr {
	return e.virt
}

// Section returns the mapped section. ok is false if the entry is not a
// section.
func (e DirectoryEntry) Section() (s Section, ok bool) {
	if e.Kind() != DirectorySection {
		return Section{}, false
	}
	attrs := decodeAttributes(
		regionBits{
			tex: e.raw >> pdeTEXShift & 7,
			c:   e.raw >> 3 & 1,
			b:   e.raw >> 2 & 1,
		},
		e.raw>>15&1, e.raw>>pdeAPShift&3, e.raw>>4&1, e.raw>>16&1)
	return Section{virt: e.virt, phys: hostarch.Addr(e.raw & pdeSectionBase), attrs: attrs}, true
}

// PageTable returns the physical address of the referenced page table. ok
// is false if the entry is not a page table reference.
func (e DirectoryEntry) PageTable() (phys hostarch.Addr, ok bool) {
	if e.Kind() != DirectoryPageTable {
		return 0, false
	}
	return hostarch.Addr(e.raw & pdePageTableBase), true
}

// Raw returns the descriptor word, for diagnostics.
func (e DirectoryEntry) Raw() uint32 {
	return e.raw
}

// String implements fmt.Stringer.String.
func (e DirectoryEntry) String() string {
	switch e.Kind() {
	case DirectorySection:
		s, _ := e.Section()
		return s.String()
	case DirectoryPageTable:
		p, _ := e.PageTable()
		return fmt.Sprintf("page-table %v -> table@%v", e.virt, p)
	default:
		return fmt.Sprintf("invalid %v (%#08x)", e.virt, e.raw)
	}
}

// TableEntryKind is the interpretation of a page table entry.
type TableEntryKind uint8

// Table entry kinds.
const (
	TableInvalid TableEntryKind = iota
	TablePage
)

// String implements fmt.Stringer.String.
func (k TableEntryKind) String() string {
	switch k {
	case TableInvalid:
		return "invalid"
	case TablePage:
		return "page"
	default:
		return fmt.Sprintf("TableEntryKind(%d)", k)
	}
}

// TableEntry is a snapshot of one page table entry.
type TableEntry struct {
	virt hostarch.Addr
	raw  uint32
}

// DecodeTableEntry interprets raw as the entry covering virt.
func DecodeTableEntry(virt hostarch.Addr, raw uint32) TableEntry {
	return TableEntry{virt: virt.RoundDown(), raw: raw}
}

// Kind returns the entry's interpretation. Large pages are reported as
// invalid.
func (e TableEntry) Kind() TableEntryKind {
	if e.raw&ptePage != 0 {
		return TablePage
	}
	return TableInvalid
}

// Valid returns true unless the entry is invalid.
func (e TableEntry) Valid() bool {
	return e.Kind() != TableInvalid
}

// Virtual returns the base of the 4 KiB span the entry covers.
func (e TableEntry) Virtual() hostarch.Addr {
	return e.virt
}

// Page returns the mapped page. ok is false if the entry is not a page.
func (e TableEntry) Page() (p Page, ok bool) {
	if e.Kind() != TablePage {
		return Page{}, false
	}
	attrs := decodeAttributes(
		regionBits{
			tex: e.raw >> pteTEXShift & 7,
			c:   e.raw >> 3 & 1,
			b:   e.raw >> 2 & 1,
		},
		e.raw>>9&1, e.raw>>pteAPShift&3, e.raw&1, e.raw>>10&1)
	return Page{virt: e.virt, phys: hostarch.Addr(e.raw & ptePageBase), attrs: attrs}, true
}

// Raw returns the descriptor word, for diagnostics.
func (e TableEntry) Raw() uint32 {
	return e.raw
}

// String implements fmt.Stringer.String.
func (e TableEntry) String() string {
	if p, ok := e.Page(); ok {
		return p.String()
	}
	return fmt.Sprintf("invalid %v (%#08x)", e.virt, e.raw)
}
