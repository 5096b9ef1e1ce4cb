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
	"unsafe"

	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/sync"
)

// Table geometry.
const (
	// DirectoryEntries is the number of first-level entries.
	DirectoryEntries = 4096

	// DirectorySize is the size and required alignment of a page directory.
	DirectorySize = DirectoryEntries * 4

	// TableEntries is the number of second-level entries.
	TableEntries = 256

	// TableSize is the size and required alignment of a page table.
	TableSize = TableEntries * 4
)

// PDEs is the storage of a page directory.
type PDEs [DirectoryEntries]uint32

// PTEs is the storage of a page table.
type PTEs [TableEntries]uint32

// Allocator is used to allocate and map table storage.
type Allocator interface {
	// NewPDEs returns zeroed page directory storage, 16 KiB aligned in
	// physical memory.
	NewPDEs() *PDEs

	// NewPTEs returns zeroed page table storage, 1 KiB aligned in physical
	// memory.
	NewPTEs() *PTEs

	// PhysicalFor returns the physical address of the storage starting at
	// words[0].
	PhysicalFor(words []uint32) hostarch.Addr

	// LookupPTEs returns the page table storage at the given physical
	// address.
	LookupPTEs(phys hostarch.Addr) *PTEs
}

// Arena is an Allocator carving tables out of one contiguous region whose
// physical address is known, such as the root task's static table storage.
//
// Storage is never freed. Arena is safe for concurrent use.
type Arena struct {
	mu sync.Mutex

	buf     []byte
	phys    hostarch.Addr
	next    uint32
	release func() error
}

var _ Allocator = (*Arena)(nil)

// NewArena returns an Arena over buf, which lives at physical address phys.
// buf must be 4-byte aligned in host memory.
func NewArena(buf []byte, phys hostarch.Addr) *Arena {
	if len(buf) == 0 || uintptr(unsafe.Pointer(&buf[0]))&3 != 0 {
		panic("arena buffer empty or misaligned")
	}
	if uint64(phys)+uint64(len(buf)) > 1<<32 {
		panic(fmt.Sprintf("arena [%v, +%#x) beyond 4 GiB", phys, len(buf)))
	}
	return &Arena{buf: buf, phys: phys}
}

// NewHeapArena returns an Arena of size bytes allocated from the Go heap,
// presented as living at physical address phys.
func NewHeapArena(size uint32, phys hostarch.Addr) *Arena {
	words := make([]uint32, (size+3)/4)
	return NewArena(unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*4), phys)
}

// carve returns zeroed storage of size bytes at a physical address aligned
// to align.
func (a *Arena) carve(size, align uint32) unsafe.Pointer {
	a.mu.Lock()
	defer a.mu.Unlock()
	start := uint64(a.phys) + uint64(a.next)
	off := (start+uint64(align)-1)&^(uint64(align)-1) - uint64(a.phys)
	if off+uint64(size) > uint64(len(a.buf)) {
		panic(fmt.Sprintf("arena exhausted: %#x bytes at %#x aligned %#x, size %#x", size, a.next, align, len(a.buf)))
	}
	a.next = uint32(off) + size
	b := a.buf[off : off+uint64(size)]
	clear(b)
	return unsafe.Pointer(&b[0])
}

// NewPDEs implements Allocator.NewPDEs.
func (a *Arena) NewPDEs() *PDEs {
	return (*PDEs)(a.carve(DirectorySize, DirectorySize))
}

// NewPTEs implements Allocator.NewPTEs.
func (a *Arena) NewPTEs() *PTEs {
	return (*PTEs)(a.carve(TableSize, TableSize))
}

// PhysicalFor implements Allocator.PhysicalFor.
func (a *Arena) PhysicalFor(words []uint32) hostarch.Addr {
	base := uintptr(unsafe.Pointer(&a.buf[0]))
	p := uintptr(unsafe.Pointer(&words[0]))
	if p < base || p-base >= uintptr(len(a.buf)) {
		panic(fmt.Sprintf("storage %#x outside arena", p))
	}
	return a.phys + hostarch.Addr(p-base)
}

// LookupPTEs implements Allocator.LookupPTEs.
func (a *Arena) LookupPTEs(phys hostarch.Addr) *PTEs {
	if phys < a.phys || uint64(phys-a.phys)+TableSize > uint64(len(a.buf)) || phys&(TableSize-1) != 0 {
		panic(fmt.Sprintf("page table %v outside arena", phys))
	}
	return (*PTEs)(unsafe.Pointer(&a.buf[phys-a.phys]))
}

// Physical returns the arena's physical range.
func (a *Arena) Physical() hostarch.AddrRange {
	return hostarch.AddrRange{Start: a.phys, End: a.phys + hostarch.Addr(len(a.buf))}
}

// Used returns the number of bytes carved so far, including alignment
// padding.
func (a *Arena) Used() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Close releases the arena's backing memory, if it owns it. Tables carved
// from the arena must not be used afterwards.
func (a *Arena) Close() error {
	if a.release == nil {
		return nil
	}
	if err := a.release(); err != nil {
		return fmt.Errorf("releasing arena at %v: %w", a.phys, err)
	}
	a.release = nil
	return nil
}
