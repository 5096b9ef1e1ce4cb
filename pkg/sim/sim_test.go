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
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/ring0"
)

func TestCacheIdentification(t *testing.T) {
	s := New(CortexA9())
	c := s.Core(0)

	if got, want := cp15.CLIDRCtype(0).Get(c.Read(cp15.CLIDR)), uint32(cp15.CacheSeparate); got != want {
		t.Errorf("CLIDR Ctype1 got %d, want %d", got, want)
	}
	if got := cp15.CLIDRCtype(1).Get(c.Read(cp15.CLIDR)); got != 0 {
		t.Errorf("CLIDR Ctype2 got %d, want 0", got)
	}

	for _, ind := range []uint32{0, 1} {
		c.Write(cp15.CSSELR, cp15.CSSELRInD.Val(ind).Apply(0))
		ccsidr := c.Read(cp15.CCSIDR)
		got := Geometry{
			Sets:      cp15.CCSIDRNumSets.Get(ccsidr) + 1,
			Ways:      cp15.CCSIDRAssociativity.Get(ccsidr) + 1,
			LineBytes: 1 << (cp15.CCSIDRLineSize.Get(ccsidr) + 4),
		}
		want := Geometry{Sets: 256, Ways: 4, LineBytes: 32}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("CSSELR.InD=%d geometry mismatch (-want +got):\n%s", ind, diff)
		}
	}

	c.Write(cp15.CSSELR, cp15.CSSELRLevel.Val(1).Apply(0))
	if got := c.Read(cp15.CCSIDR); got != 0 {
		t.Errorf("CCSIDR for absent level got %#x, want 0", got)
	}

	ctr := c.Read(cp15.CTR)
	if got, want := cp15.CTRDminLine.Get(ctr), uint32(3); got != want {
		t.Errorf("CTR.DminLine got %d, want %d", got, want)
	}
}

func TestIdentity(t *testing.T) {
	s := New(CortexA9())
	for i, c := range s.Cores() {
		mpidr := c.Read(cp15.MPIDR)
		if got := int(cp15.MPIDRAff0.Get(mpidr)); got != i {
			t.Errorf("core %d: MPIDR.Aff0 got %d", i, got)
		}
		if cp15.MPIDRMP.Get(mpidr) != 1 {
			t.Errorf("core %d: MPIDR.MP clear", i)
		}
		if got, want := hostarch.Addr(c.Read(cp15.CBAR)), s.Config().PeriphBase; got != want {
			t.Errorf("core %d: CBAR got %v, want %v", i, got, want)
		}
	}
}

func TestAccessChecks(t *testing.T) {
	c := New(CortexA9()).Core(0)
	for _, tc := range []struct {
		name string
		fn   func()
	}{
		{"write MIDR", func() { c.Write(cp15.MIDR, 0) }},
		{"read DCISW", func() { c.Read(cp15.DCISW) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s did not panic", tc.name)
				}
			}()
			tc.fn()
		})
	}
}

func TestWideView(t *testing.T) {
	c := New(CortexA9()).Core(0)
	c.Write64(cp15.TTBR0Wide, 0x1_0000_4000)
	if got, want := c.Read(cp15.TTBR0), uint32(0x4000); got != want {
		t.Errorf("TTBR0 got %#x, want %#x", got, want)
	}
	c.Write(cp15.TTBR0, 0x8000)
	if got, want := c.Read64(cp15.TTBR0Wide), uint64(0x8000); got != want {
		t.Errorf("TTBR0Wide got %#x, want %#x", got, want)
	}
}

func TestMasks(t *testing.T) {
	c := New(CortexA9()).Core(0)
	c.UnmaskInterrupts(ring0.InterruptMask)
	if got, want := c.CPSR()&ring0.ExceptionMask, uint32(ring0.PSRAbort); got != want {
		t.Errorf("after unmask got %#x, want %#x", got, want)
	}
	c.MaskInterrupts(ring0.PSRIRQ)
	c.ChangeMode(ring0.ModeSystem)
	cpsr := c.CPSR()
	if cpsr&ring0.PSRModeMask != ring0.ModeSystem {
		t.Errorf("mode got %#x, want %#x", cpsr&ring0.PSRModeMask, ring0.ModeSystem)
	}
	if cpsr&ring0.PSRIRQ == 0 || cpsr&ring0.PSRFIQ != 0 {
		t.Errorf("CPSR %#x: want I set and F clear", cpsr)
	}

	want := []OpKind{OpUnmask, OpMask, OpMode}
	var got []OpKind
	for _, o := range c.Trace() {
		got = append(got, o.Kind)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistersSnapshot(t *testing.T) {
	c := New(CortexA9()).Core(0)
	c.Write(cp15.VBAR, 0x1000)
	r := c.Registers()
	r.Words[cp15.VBAR.Name] = 0x2000
	if got := c.Read(cp15.VBAR); got != 0x1000 {
		t.Errorf("snapshot aliases core state: VBAR got %#x", got)
	}
}

func TestEventSignal(t *testing.T) {
	s := New(CortexA9())
	const flag = hostarch.Addr(0x100)

	s.Start(1, func(c *Core) {
		for c.Load32(flag) == 0 {
			c.WFE()
		}
	})
	s.Start(0, func(c *Core) {
		for !s.Core(1).Waiting() {
			time.Sleep(time.Millisecond)
		}
		c.Store32(flag, 1)
		c.DSB()
		c.SEV()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait got %v", err)
	}
	if s.Core(1).Spins() == 0 {
		t.Errorf("core 1 never blocked in WFE")
	}
}

func TestPendingEvent(t *testing.T) {
	s := New(CortexA9())
	c := s.Core(0)
	c.SEV()
	// The event is latched, so WFE returns at once.
	c.WFE()
	if got := c.Spins(); got != 0 {
		t.Errorf("Spins got %d, want 0", got)
	}
}

func TestShutdownReleasesWaiters(t *testing.T) {
	s := New(CortexA9())
	s.Start(0, func(c *Core) {
		for {
			c.WFE()
		}
	})
	s.Start(1, func(c *Core) {
		c.Halt()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait got %v, want %v", err, context.DeadlineExceeded)
	}
	if !s.Core(1).Halted() {
		t.Errorf("core 1 not halted")
	}
}

func TestPanicReported(t *testing.T) {
	s := New(CortexA9())
	err := s.Run(context.Background(), func(c *Core) {
		if c.Index() == 1 {
			c.Write(cp15.CTR, 0)
		}
		c.Halt()
	})
	if err == nil || !strings.Contains(err.Error(), "core 1") {
		t.Errorf("Run got %v, want core 1 error", err)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.Store32(0x2000, 0)
	if got := m.Len(); got != 0 {
		t.Errorf("zero store allocated %d frames", got)
	}
	m.Store32(0x2004, 0xdeadbeef)
	m.Store32(0x5ffc, 1)
	if got := m.Load32(0x2004); got != 0xdeadbeef {
		t.Errorf("Load32 got %#x", got)
	}
	if got := m.Load32(0x9000); got != 0 {
		t.Errorf("unbacked Load32 got %#x", got)
	}

	want := []hostarch.Addr{0x2000, 0x5000}
	if diff := cmp.Diff(want, m.Frames(hostarch.AddrRange{Start: 0, End: 0x10000})); diff != "" {
		t.Errorf("Frames mismatch (-want +got):\n%s", diff)
	}
	if got := m.Stores(); got != 3 {
		t.Errorf("Stores got %d, want 3", got)
	}

	m.Store32(0x5ffc, 0)
	if got := m.Release(); got != 1 {
		t.Errorf("Release got %d, want 1", got)
	}
	if got := m.Len(); got != 1 {
		t.Errorf("Len got %d, want 1", got)
	}
}

func TestUnalignedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("unaligned store did not panic")
		}
	}()
	NewMemory().Store32(0x1002, 1)
}
