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

package cache

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/sim"
)

var (
	l1 = sim.Geometry{Sets: 256, Ways: 4, LineBytes: 32}
	l2 = sim.Geometry{Sets: 2048, Ways: 8, LineBytes: 64}
	l3 = sim.Geometry{Sets: 64, Ways: 2, LineBytes: 32}
)

// threeLevels has a separate L1, a unified L2 and an instruction-only L3.
func threeLevels() *sim.Core {
	cfg := sim.CortexA9()
	cfg.Caches = []sim.CacheLevel{
		{Type: cp15.CacheSeparate, Data: l1, Instruction: l1},
		{Type: cp15.CacheUnified, Data: l2},
		{Type: cp15.CacheInstruction, Instruction: l3},
	}
	return sim.New(cfg).Core(0)
}

// maint is one address or set/way maintenance operation.
type maint struct {
	Op      string
	Operand uint32
}

func maintenance(t sim.Trace, regs ...cp15.Reg) []maint {
	var ms []maint
	for _, o := range t {
		for _, r := range regs {
			if o.Kind == sim.OpWrite && o.Reg == r.Name {
				ms = append(ms, maint{Op: o.Reg, Operand: o.Value})
			}
		}
	}
	return ms
}

func TestLevels(t *testing.T) {
	c := threeLevels()
	want := []Geometry{
		{Level: 0, Type: cp15.CacheSeparate, Sets: 256, Ways: 4, LineBytes: 32},
		{Level: 1, Type: cp15.CacheUnified, Sets: 2048, Ways: 8, LineBytes: 64},
	}
	if diff := cmp.Diff(want, Levels(c)); diff != "" {
		t.Errorf("Levels mismatch (-want +got):\n%s", diff)
	}

	h := Hierarchy(c)
	if len(h) != 4 {
		t.Fatalf("Hierarchy got %d caches, want 4: %v", len(h), h)
	}
	if got := h[3]; !got.Instruction || got.Level != 2 || got.Ways != 2 {
		t.Errorf("Hierarchy L3 got %v", got)
	}
	if got := c.Read(cp15.CSSELR); got != 0 {
		t.Errorf("CSSELR not restored: got %#x", got)
	}
}

func TestOperand(t *testing.T) {
	for _, tc := range []struct {
		g        Geometry
		way, set uint32
		want     uint32
		wayShift uint
		setShift uint
	}{
		{Geometry{Level: 0, Sets: 256, Ways: 4, LineBytes: 32}, 3, 255, 0xc0001fe0, 30, 5},
		{Geometry{Level: 1, Sets: 2048, Ways: 8, LineBytes: 64}, 7, 2047, 0xe001ffc2, 29, 6},
		{Geometry{Level: 0, Sets: 128, Ways: 1, LineBytes: 64}, 0, 127, 0x00001fc0, 32, 6},
		{Geometry{Level: 2, Sets: 16, Ways: 3, LineBytes: 32}, 2, 1, 0x80000024, 30, 5},
	} {
		if got := tc.g.WayShift(); got != tc.wayShift {
			t.Errorf("%v: WayShift got %d, want %d", tc.g, got, tc.wayShift)
		}
		if got := tc.g.SetShift(); got != tc.setShift {
			t.Errorf("%v: SetShift got %d, want %d", tc.g, got, tc.setShift)
		}
		if got := tc.g.Operand(tc.way, tc.set); got != tc.want {
			t.Errorf("%v: Operand(%d, %d) got %#x, want %#x", tc.g, tc.way, tc.set, got, tc.want)
		}
	}
}

func TestSetWayVisitsDataLevels(t *testing.T) {
	for _, tc := range []struct {
		name string
		op   cp15.Reg
		fn   func(d *DataCache)
	}{
		{"invalidate", cp15.DCISW, (*DataCache).InvalidateAll},
		{"clean", cp15.DCCSW, (*DataCache).CleanAll},
		{"clean+invalidate", cp15.DCCISW, (*DataCache).CleanInvalidateAll},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := threeLevels()
			tc.fn(NewDataCache(c))
			tr := c.Trace()

			perLevel := make(map[uint32]int)
			seen := make(map[uint32]bool)
			for _, m := range maintenance(tr, tc.op) {
				perLevel[m.Operand&0xe>>1]++
				if seen[m.Operand] {
					t.Fatalf("operand %#x issued twice", m.Operand)
				}
				seen[m.Operand] = true
			}
			want := map[uint32]int{
				0: int(l1.Sets * l1.Ways),
				1: int(l2.Sets * l2.Ways),
			}
			if diff := cmp.Diff(want, perLevel); diff != "" {
				t.Errorf("operations per level mismatch (-want +got):\n%s", diff)
			}

			for _, sel := range tr.Writes(cp15.CSSELR) {
				if cp15.CSSELRLevel.Get(sel) == 2 {
					t.Errorf("instruction-only level selected: CSSELR %#x", sel)
				}
			}
		})
	}
}

func TestSetWayBarriers(t *testing.T) {
	c := threeLevels()
	NewDataCache(c).InvalidateAll()

	// Collapse each level's run of set/way operations into one entry.
	var got []string
	for _, o := range c.Trace() {
		var s string
		switch {
		case o.Kind == sim.OpWrite && o.Reg == cp15.DCISW.Name:
			s = "batch"
		case o.Kind == sim.OpDSB || o.Kind == sim.OpISB:
			s = o.Kind.String()
		default:
			continue
		}
		if s == "batch" && len(got) > 0 && got[len(got)-1] == "batch" {
			continue
		}
		got = append(got, s)
	}
	want := []string{
		"isb", "dsb", "batch", "dsb", "isb", // L1: ISB after CSSELR.
		"isb", "dsb", "batch", "dsb", "isb", // L2.
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("barrier sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestNoDataCaches(t *testing.T) {
	cfg := sim.CortexA9()
	cfg.Caches = []sim.CacheLevel{{Type: cp15.CacheInstruction, Instruction: l1}}
	c := sim.New(cfg).Core(0)
	NewDataCache(c).CleanInvalidateAll()
	if got := c.Trace().Count(sim.OpWrite); got != 0 {
		t.Errorf("got %d writes, want none: %v", got, c.Trace())
	}
}

func TestInvalidateRange(t *testing.T) {
	for _, tc := range []struct {
		name       string
		start, end hostarch.Addr
		want       []maint
	}{
		{
			name:  "aligned",
			start: 0x1000,
			end:   0x1080,
			want: []maint{
				{"DCIMVAC", 0x1000}, {"DCIMVAC", 0x1020}, {"DCIMVAC", 0x1040}, {"DCIMVAC", 0x1060},
			},
		},
		{
			name:  "unaligned start",
			start: 0x1004,
			end:   0x1080,
			want: []maint{
				{"DCCIMVAC", 0x1000}, {"DCIMVAC", 0x1020}, {"DCIMVAC", 0x1040}, {"DCIMVAC", 0x1060},
			},
		},
		{
			name:  "unaligned end",
			start: 0x1000,
			end:   0x1071,
			want: []maint{
				{"DCIMVAC", 0x1000}, {"DCIMVAC", 0x1020}, {"DCIMVAC", 0x1040}, {"DCCIMVAC", 0x1060},
			},
		},
		{
			name:  "unaligned both",
			start: 0x101f,
			end:   0x1041,
			want: []maint{
				{"DCCIMVAC", 0x1000}, {"DCIMVAC", 0x1020}, {"DCCIMVAC", 0x1040},
			},
		},
		{
			name:  "inside one line",
			start: 0x1004,
			end:   0x1008,
			want:  []maint{{"DCCIMVAC", 0x1000}},
		},
		{
			name:  "empty",
			start: 0x1000,
			end:   0x1000,
		},
		{
			name:  "empty unaligned",
			start: 0x1004,
			end:   0x1004,
		},
		{
			name:  "top of memory",
			start: 0xffffffc0,
			end:   0xffffffe8,
			want:  []maint{{"DCIMVAC", 0xffffffc0}, {"DCCIMVAC", 0xffffffe0}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := threeLevels()
			NewDataCache(c).InvalidateRange(hostarch.AddrRange{Start: tc.start, End: tc.end})
			tr := c.Trace()
			got := maintenance(tr, cp15.DCIMVAC, cp15.DCCIMVAC)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("operations mismatch (-want +got):\n%s", diff)
			}
			if got, want := tr.Count(sim.OpDSB), 2; got != want {
				t.Errorf("DSB count got %d, want %d", got, want)
			}
			if last := tr[len(tr)-1]; last.Kind != sim.OpDSB {
				t.Errorf("last operation got %v, want dsb", last)
			}
		})
	}
}

func TestRangeOpCount(t *testing.T) {
	// ceil(bytes/line) operations for any line-aligned range.
	for _, lines := range []uint32{1, 2, 7, 64, 1000} {
		c := threeLevels()
		ar := hostarch.AddrRange{Start: 0x8000, End: 0x8000 + hostarch.Addr(lines*l1.LineBytes)}
		NewDataCache(c).InvalidateRange(ar)
		tr := c.Trace()
		if got := len(tr.Writes(cp15.DCIMVAC)); got != int(lines) {
			t.Errorf("%v: got %d DCIMVAC, want %d", ar, got, lines)
		}
		if got := len(tr.Writes(cp15.DCCIMVAC)); got != 0 {
			t.Errorf("%v: got %d DCCIMVAC, want 0", ar, got)
		}
	}
}

func TestCleanRanges(t *testing.T) {
	for _, tc := range []struct {
		name string
		op   cp15.Reg
		fn   func(d *DataCache, ar hostarch.AddrRange)
	}{
		{"clean", cp15.DCCMVAC, (*DataCache).CleanRange},
		{"clean+invalidate", cp15.DCCIMVAC, (*DataCache).CleanInvalidateRange},
		{"clean to unification", cp15.DCCMVAU, (*DataCache).CleanRangeToUnification},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := threeLevels()
			tc.fn(NewDataCache(c), hostarch.AddrRange{Start: 0x2010, End: 0x2050})
			want := []uint32{0x2000, 0x2020, 0x2040}
			if diff := cmp.Diff(want, c.Trace().Writes(tc.op)); diff != "" {
				t.Errorf("operands mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMalformedRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("InvalidateRange did not panic")
		}
	}()
	NewDataCache(threeLevels()).InvalidateRange(hostarch.AddrRange{Start: 0x2000, End: 0x1000})
}

func TestControl(t *testing.T) {
	c := threeLevels()
	d, i, b := NewDataCache(c), NewInstructionCache(c), NewBranchPredictor(c)
	d.Enable()
	i.Enable()
	b.Enable()
	if !d.Enabled() || !i.Enabled() || !b.Enabled() {
		t.Fatalf("not enabled: SCTLR %#x", c.Read(cp15.SCTLR))
	}
	tr := c.Trace()
	for k, o := range tr {
		if o.Kind == sim.OpWrite && o.Reg == cp15.SCTLR.Name {
			if k+1 >= len(tr) || tr[k+1].Kind != sim.OpISB {
				t.Errorf("SCTLR write %d not followed by isb", k)
			}
		}
	}

	before := c.Read(cp15.SCTLR)
	d.Disable()
	if got, want := c.Read(cp15.SCTLR), before&^cp15.SCTLRC.Mask(); got != want {
		t.Errorf("Disable: SCTLR got %#x, want %#x", got, want)
	}
	i.Disable()
	b.Disable()
	if got := c.Read(cp15.SCTLR) & (cp15.SCTLRC.Mask() | cp15.SCTLRI.Mask() | cp15.SCTLRZ.Mask()); got != 0 {
		t.Errorf("SCTLR C/I/Z got %#x, want 0", got)
	}
}

func TestInstructionSide(t *testing.T) {
	c := threeLevels()
	ar := hostarch.AddrRange{Start: 0x3000, End: 0x3041}
	NewInstructionCache(c).InvalidateRange(ar)
	NewBranchPredictor(c).InvalidateRange(ar)
	tr := c.Trace()
	want := []uint32{0x3000, 0x3020, 0x3040}
	if diff := cmp.Diff(want, tr.Writes(cp15.ICIMVAU)); diff != "" {
		t.Errorf("ICIMVAU mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, tr.Writes(cp15.BPIMVA)); diff != "" {
		t.Errorf("BPIMVA mismatch (-want +got):\n%s", diff)
	}

	c.ResetTrace()
	NewInstructionCache(c).InvalidateAll()
	NewBranchPredictor(c).InvalidateAll()
	NewInstructionCache(c).InvalidateAllInnerShareable()
	wantOps := sim.Trace{
		{Kind: sim.OpDSB},
		{Kind: sim.OpWrite, Reg: "ICIALLU"},
		{Kind: sim.OpDSB},
		{Kind: sim.OpISB},
		{Kind: sim.OpDSB},
		{Kind: sim.OpWrite, Reg: "BPIALL"},
		{Kind: sim.OpDSB},
		{Kind: sim.OpISB},
		{Kind: sim.OpDSB},
		{Kind: sim.OpWrite, Reg: "ICIALLUIS"},
		{Kind: sim.OpDSB},
		{Kind: sim.OpISB},
	}
	if diff := cmp.Diff(wantOps, c.Trace()); diff != "" {
		t.Errorf("invalidate-all mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyUnalignedRanges(t *testing.T) {
	ar := hostarch.AddrRange{Start: 0x1004, End: 0x1004}
	for _, tc := range []struct {
		name string
		fn   func(c *sim.Core)
	}{
		{"dcache invalidate", func(c *sim.Core) { NewDataCache(c).InvalidateRange(ar) }},
		{"dcache clean", func(c *sim.Core) { NewDataCache(c).CleanRange(ar) }},
		{"dcache clean+invalidate", func(c *sim.Core) { NewDataCache(c).CleanInvalidateRange(ar) }},
		{"icache invalidate", func(c *sim.Core) { NewInstructionCache(c).InvalidateRange(ar) }},
		{"branch predictor invalidate", func(c *sim.Core) { NewBranchPredictor(c).InvalidateRange(ar) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := threeLevels()
			tc.fn(c)
			for _, op := range []cp15.Reg{cp15.DCIMVAC, cp15.DCCIMVAC, cp15.DCCMVAC, cp15.ICIMVAU, cp15.BPIMVA} {
				if got := c.Trace().Writes(op); len(got) != 0 {
					t.Errorf("%s got %#x, want none", op.Name, got)
				}
			}
		})
	}
}
