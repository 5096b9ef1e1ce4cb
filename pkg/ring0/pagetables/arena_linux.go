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

//go:build linux

package pagetables

import (
	"fmt"

	"golang.org/x/sys/unix"

	"gvisor.dev/armhal/pkg/hostarch"
)

// NewMmapArena returns an Arena backed by an anonymous private mapping of
// size bytes, presented as living at physical address phys. The mapping is
// released by Close.
func NewMmapArena(size uint32, phys hostarch.Addr) (*Arena, error) {
	if size == 0 {
		return nil, fmt.Errorf("arena size must be non-zero")
	}
	buf, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mmap %#x bytes: %w", size, err)
	}
	a := NewArena(buf, phys)
	a.release = func() error {
		return unix.Munmap(buf)
	}
	return a, nil
}
