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

// Package sync provides the critical-section lock used by privileged code,
// along with aliases of the standard library's synchronization types so
// that callers import a single sync package.
package sync

import (
	"gvisor.dev/armhal/pkg/atomicbitops"
	"gvisor.dev/armhal/pkg/platform"
	"gvisor.dev/armhal/pkg/ring0"
)

// Token records the interrupt mask state at Acquire. It must be passed to
// the matching Release.
type Token struct {
	// masked holds the I and F bits of CPSR before Acquire.
	masked uint32
}

// CriticalSection provides mutual exclusion against interrupts on the
// executing core and, when it has a shared word, against other cores.
//
// Each core uses its own CriticalSection value bound to its own Machine;
// cores that must exclude each other share the word. Critical sections
// must be short: other cores spin while it is held.
type CriticalSection struct {
	m    ring0.Machine
	word *atomicbitops.Uint32
}

// NewCriticalSection returns a critical section for the core m. If word is
// nil only interrupts are masked, which is sufficient on single-core
// systems.
func NewCriticalSection(m ring0.Machine, word *atomicbitops.Uint32) *CriticalSection {
	return &CriticalSection{m: m, word: word}
}

// globalWord is the lock word of Global. It is zero in the image and is
// never written outside Acquire and Release.
var globalWord atomicbitops.Uint32

// Global returns the process-wide critical section for the core m, sharing
// one lock word between cores on multi-core builds.
func Global(m ring0.Machine) *CriticalSection {
	return ForConfig(m, platform.Build)
}

// ForConfig is Global for an explicit configuration.
func ForConfig(m ring0.Machine, c platform.Config) *CriticalSection {
	if !c.SMP() {
		return NewCriticalSection(m, nil)
	}
	return NewCriticalSection(m, &globalWord)
}

// Acquire masks IRQ and FIQ, then, if the section has a shared word, takes
// the spinlock. Interrupts are masked first so that the holder cannot be
// interrupted into code that spins on the lock it already holds.
//
//go:nosplit
func (c *CriticalSection) Acquire() Token {
	t := Token{masked: c.m.CPSR() & ring0.InterruptMask}
	c.m.MaskInterrupts(ring0.InterruptMask)
	if c.word != nil {
		for !c.m.CompareAndSwapExclusive(c.word.Ptr(), 0, 1) {
			c.m.WFE()
		}
		c.m.DMB()
	}
	return t
}

// Release drops the spinlock, waking waiting cores, and then unmasks the
// interrupt sources that were unmasked when t was acquired. Sources that
// were already masked stay masked.
//
//go:nosplit
func (c *CriticalSection) Release(t Token) {
	if c.word != nil {
		c.m.DMB()
		c.word.Store(0)
		c.m.DSB()
		c.m.SEV()
	}
	if unmask := ring0.InterruptMask &^ t.masked; unmask != 0 {
		c.m.UnmaskInterrupts(unmask)
	}
}

// Do runs fn inside the critical section.
func (c *CriticalSection) Do(fn func()) {
	t := c.Acquire()
	defer c.Release(t)
	fn()
}
