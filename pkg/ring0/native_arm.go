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

//go:build arm

package ring0

import (
	"sync/atomic"
	"unsafe"

	"gvisor.dev/armhal/pkg/barrier"
	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/hostarch"
)

// Native is the executing core.
type Native struct {
	cp15.NativeBank
	barrier.NativeBarriers
}

var _ Machine = Native{}

// CPSR implements Machine.CPSR.
//
//go:nosplit
func (Native) CPSR() uint32 {
	return readCPSR()
}

// MaskInterrupts implements Machine.MaskInterrupts.
//
//go:nosplit
func (Native) MaskInterrupts(bits uint32) {
	maskCPSR(bits & ExceptionMask)
}

// UnmaskInterrupts implements Machine.UnmaskInterrupts.
//
//go:nosplit
func (Native) UnmaskInterrupts(bits uint32) {
	unmaskCPSR(bits & ExceptionMask)
}

// CompareAndSwapExclusive implements Machine.CompareAndSwapExclusive.
//
//go:nosplit
func (Native) CompareAndSwapExclusive(addr *uint32, old, new uint32) bool {
	return casExclusive(addr, old, new)
}

// Load32 implements Machine.Load32.
//
//go:nosplit
func (Native) Load32(addr hostarch.Addr) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(uintptr(addr))))
}

// Store32 implements Machine.Store32.
//
//go:nosplit
func (Native) Store32(addr hostarch.Addr, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), v)
}

// Halt implements Machine.Halt.
//
//go:nosplit
func (Native) Halt() {
	halt()
}

// Assembly leaves, in lib_arm.s.

func readCPSR() uint32
func maskCPSR(bits uint32)
func unmaskCPSR(bits uint32)

//go:noescape
func casExclusive(addr *uint32, old, new uint32) bool

func halt()
