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

	"github.com/google/btree"

	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/sync"
)

// frameWords is the number of words per frame of physical memory.
const frameWords = hostarch.PageSize / 4

// frame is one page of physical memory.
type frame struct {
	addr  hostarch.Addr
	words [frameWords]uint32
}

func frameLess(a, b *frame) bool {
	return a.addr < b.addr
}

// Memory is sparse physical memory shared by every core of a System.
// Frames are allocated on the first non-zero store; unbacked memory reads
// as zero.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	frames *btree.BTreeG[*frame]
	stores uint64
}

// NewMemory returns empty memory.
func NewMemory() *Memory {
	return &Memory{frames: btree.NewG[*frame](8, frameLess)}
}

func checkAligned(addr hostarch.Addr) {
	if addr&3 != 0 {
		panic(fmt.Sprintf("sim: unaligned word access at %v", addr))
	}
}

// Load32 returns the word at addr.
func (m *Memory) Load32(addr hostarch.Addr) uint32 {
	checkAligned(addr)
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frames.Get(&frame{addr: addr.RoundDown()})
	if !ok {
		return 0
	}
	return f.words[addr.PageOffset()/4]
}

// Store32 writes the word at addr.
func (m *Memory) Store32(addr hostarch.Addr, v uint32) {
	checkAligned(addr)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores++
	key := &frame{addr: addr.RoundDown()}
	f, ok := m.frames.Get(key)
	if !ok {
		if v == 0 {
			return
		}
		f = key
		m.frames.ReplaceOrInsert(f)
	}
	f.words[addr.PageOffset()/4] = v
}

// Stores returns the number of Store32 calls so far.
func (m *Memory) Stores() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores
}

// Frames returns the addresses of backed frames within ar, in ascending
// order.
func (m *Memory) Frames(ar hostarch.AddrRange) []hostarch.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	var addrs []hostarch.Addr
	m.frames.AscendRange(&frame{addr: ar.Start.RoundDown()}, &frame{addr: ar.End}, func(f *frame) bool {
		addrs = append(addrs, f.addr)
		return true
	})
	return addrs
}

// Release drops frames that contain only zeros, returning how many were
// dropped.
func (m *Memory) Release() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero []*frame
	m.frames.Ascend(func(f *frame) bool {
		for _, w := range f.words {
			if w != 0 {
				return true
			}
		}
		zero = append(zero, f)
		return true
	})
	for _, f := range zero {
		m.frames.Delete(f)
	}
	return len(zero)
}

// Len returns the number of backed frames.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames.Len()
}
