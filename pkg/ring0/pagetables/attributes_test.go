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
	"testing"
)

func TestSectionEncoding(t *testing.T) {
	for _, tc := range []struct {
		name  string
		attrs MemoryAttributes
		phys  uint32
		want  uint32
	}{
		{
			name:  "normal wbwa shareable rwx",
			attrs: Normal().Inner(WriteBackWriteAllocate).Outer(WriteBackWriteAllocate).Shareable().ReadWrite().Executable(),
			phys:  0x00100000,
			want:  0x00115406,
		},
		{
			name:  "device default",
			attrs: Device(),
			phys:  0xe0000000,
			want:  0xe0008416,
		},
		{
			name:  "strongly ordered pl0 rw",
			attrs: StronglyOrdered().ReadWrite().PrivilegeLevel0(),
			phys:  0xf8f00000,
			want:  0xf8f00c12,
		},
		{
			name:  "normal inner wt outer nc",
			attrs: Normal().Inner(WriteThrough).ReadWrite(),
			phys:  0x3ff00000,
			want:  0x3ff0441a,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := Section{phys: addr(tc.phys), attrs: tc.attrs}
			if got := s.descriptor(); got != tc.want {
				t.Errorf("descriptor got %#08x, want %#08x", got, tc.want)
			}
		})
	}
}

func TestPageEncoding(t *testing.T) {
	for _, tc := range []struct {
		name  string
		attrs MemoryAttributes
		phys  uint32
		want  uint32
	}{
		{
			name:  "normal wt pl0 rx",
			attrs: Normal().Inner(WriteThrough).Outer(WriteThrough).PrivilegeLevel0().Executable(),
			phys:  0x00201000,
			want:  0x002013ba,
		},
		{
			name:  "device rw",
			attrs: Device().ReadWrite(),
			phys:  0xe0001000,
			want:  0xe0001017,
		},
		{
			name:  "normal wbwa shareable rw xn",
			attrs: Normal().Inner(WriteBackWriteAllocate).Outer(WriteBackWriteAllocate).Shareable().ReadWrite(),
			phys:  0x12345000,
			want:  0x12345557,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := Page{phys: addr(tc.phys), attrs: tc.attrs}
			if got := p.descriptor(); got != tc.want {
				t.Errorf("descriptor got %#08x, want %#08x", got, tc.want)
			}
		})
	}
}

func TestBuildersIgnoreNonNormal(t *testing.T) {
	for _, a := range []MemoryAttributes{Device(), StronglyOrdered()} {
		got := a.Inner(WriteBackWriteAllocate).Outer(WriteThrough).Shareable()
		if got != a {
			t.Errorf("%v: cache builders changed attributes to %v", a, got)
		}
	}
	n := Normal().Shareable().NonShareable()
	if n.IsShareable() {
		t.Errorf("NonShareable did not clear shareability")
	}
}

func TestDefaults(t *testing.T) {
	for _, a := range []MemoryAttributes{Device(), StronglyOrdered(), Normal()} {
		if !a.IsReadOnly() || !a.IsExecuteNever() || a.IsPrivilegeLevel0() {
			t.Errorf("%v: want read-only, execute-never, PL1", a)
		}
		if a.InnerPolicy() != NonCacheable || a.OuterPolicy() != NonCacheable || a.IsShareable() {
			t.Errorf("%v: want non-cacheable, non-shareable", a)
		}
	}
}

// allAttributes returns every attribute combination this package encodes.
func allAttributes() []MemoryAttributes {
	var as []MemoryAttributes
	bases := []MemoryAttributes{Device(), StronglyOrdered()}
	for inner := NonCacheable; inner <= WriteBackNoWriteAllocate; inner++ {
		for outer := NonCacheable; outer <= WriteBackNoWriteAllocate; outer++ {
			n := Normal().Inner(inner).Outer(outer)
			bases = append(bases, n, n.Shareable())
		}
	}
	for _, b := range bases {
		for _, rw := range []bool{false, true} {
			for _, x := range []bool{false, true} {
				for _, pl0 := range []bool{false, true} {
					a := b
					if rw {
						a = a.ReadWrite()
					}
					if x {
						a = a.Executable()
					}
					if pl0 {
						a = a.PrivilegeLevel0()
					}
					as = append(as, a)
				}
			}
		}
	}
	return as
}

func TestAttributesRoundTrip(t *testing.T) {
	for _, a := range allAttributes() {
		s := NewSection(0x40000000, 0x80000000, a)
		e := DecodeDirectoryEntry(s.virt, s.descriptor())
		if got, ok := e.Section(); !ok || got != s {
			t.Errorf("section %v decoded as %v (ok=%t)", s, got, ok)
		}
		p := NewPage(0x40001000, 0x80002000, a)
		te := DecodeTableEntry(p.virt, p.descriptor())
		if got, ok := te.Page(); !ok || got != p {
			t.Errorf("page %v decoded as %v (ok=%t)", p, got, ok)
		}
	}
}

func TestDecodeKinds(t *testing.T) {
	for _, tc := range []struct {
		raw  uint32
		want DirectoryEntryKind
	}{
		{0x00000000, DirectoryInvalid},
		{0x00100c02, DirectorySection},
		{0x01040c02, DirectorySection}, // Supersection.
		{0x00004001, DirectoryPageTable},
		{0x00100003, DirectoryInvalid}, // Reserved.
	} {
		if got := DecodeDirectoryEntry(0, tc.raw).Kind(); got != tc.want {
			t.Errorf("%#08x: got %v, want %v", tc.raw, got, tc.want)
		}
	}
	for _, tc := range []struct {
		raw  uint32
		want TableEntryKind
	}{
		{0x00000000, TableInvalid},
		{0x00010001, TableInvalid}, // Large page.
		{0x00001032, TablePage},
		{0x00001033, TablePage}, // Execute-never.
	} {
		if got := DecodeTableEntry(0, tc.raw).Kind(); got != tc.want {
			t.Errorf("%#08x: got %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestAttributesString(t *testing.T) {
	for _, tc := range []struct {
		attrs MemoryAttributes
		want  string
	}{
		{Device(), "device r pl1"},
		{Normal().Inner(WriteBackWriteAllocate).Outer(WriteThrough).Shareable().ReadWrite().Executable(), "normal(inner=wbwa,outer=wt,shareable) rwx pl1"},
		{StronglyOrdered().PrivilegeLevel0(), "strongly-ordered r pl0"},
	} {
		if got := fmt.Sprint(tc.attrs); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}
