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

// Package ring0 describes the privileged (PL1) execution environment of an
// ARMv7-A core: processor state bits and the Machine interface through
// which the cache, MMU, lock and boot packages drive a core.
package ring0

import (
	"gvisor.dev/armhal/pkg/barrier"
	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/hostarch"
)

// Program status register bits.
const (
	_PSR_F_BIT = 0x00000040
	_PSR_I_BIT = 0x00000080
	_PSR_A_BIT = 0x00000100

	// PSRModeMask selects the processor mode.
	PSRModeMask = 0x0000001f

	// PSRFIQ masks fast interrupts when set.
	PSRFIQ = _PSR_F_BIT

	// PSRIRQ masks normal interrupts when set.
	PSRIRQ = _PSR_I_BIT

	// PSRAbort masks asynchronous aborts when set.
	PSRAbort = _PSR_A_BIT

	// InterruptMask is both interrupt sources.
	InterruptMask = PSRIRQ | PSRFIQ

	// ExceptionMask is every maskable exception.
	ExceptionMask = PSRAbort | PSRIRQ | PSRFIQ
)

// Processor modes.
const (
	ModeUser       = 0x10
	ModeFIQ        = 0x11
	ModeIRQ        = 0x12
	ModeSupervisor = 0x13
	ModeMonitor    = 0x16
	ModeAbort      = 0x17
	ModeHyp        = 0x1a
	ModeUndefined  = 0x1b
	ModeSystem     = 0x1f
)

// IsPrivileged returns true if the mode bits of cpsr name a PL1 or higher
// mode.
func IsPrivileged(cpsr uint32) bool {
	return cpsr&PSRModeMask != ModeUser
}

// Machine is one core as seen by privileged code.
//
// A Machine is owned by the core it describes and must not be used from
// any other core. Shared memory passed to CompareAndSwapExclusive is the
// only state implementations touch on behalf of other cores.
type Machine interface {
	cp15.Bank
	barrier.Barriers

	// CPSR returns the current program status register.
	CPSR() uint32

	// MaskInterrupts sets the given A/I/F bits of CPSR.
	MaskInterrupts(bits uint32)

	// UnmaskInterrupts clears the given A/I/F bits of CPSR.
	UnmaskInterrupts(bits uint32)

	// CompareAndSwapExclusive performs one load-exclusive, compare,
	// store-exclusive attempt on *addr. It returns true if *addr held old
	// and new was stored. It issues no barrier.
	CompareAndSwapExclusive(addr *uint32, old, new uint32) bool

	// Load32 reads the word at addr in the current translation regime.
	Load32(addr hostarch.Addr) uint32

	// Store32 writes the word at addr in the current translation regime.
	Store32(addr hostarch.Addr, v uint32)

	// Halt parks the core in low-power wait forever. It does not return.
	Halt()
}
