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

package bits

import "testing"

func TestLog2Ceil32(t *testing.T) {
	for _, tc := range []struct {
		v    uint32
		want int
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{32, 5},
		{64, 6},
		{65, 7},
		{1 << 31, 31},
		{1<<31 + 1, 32},
	} {
		if got := Log2Ceil32(tc.v); got != tc.want {
			t.Errorf("Log2Ceil32(%#x): got %d, wanted %d", tc.v, got, tc.want)
		}
	}
}

func TestMostSignificantOne32(t *testing.T) {
	for i := 0; i < 32; i++ {
		n := uint32(1) << uint(i)
		if got, want := MostSignificantOne32(n), i; got != want {
			t.Errorf("MostSignificantOne32(%#x): got %d, wanted %d", n, got, want)
		}
	}
	if got := MostSignificantOne32(0); got != 32 {
		t.Errorf("MostSignificantOne32(0): got %d, wanted 32", got)
	}
}

func TestTrailingZeros32(t *testing.T) {
	for i := 0; i <= 32; i++ {
		n := uint32(1) << uint(i)
		want := i
		if i == 32 {
			want = 32
		}
		if got := TrailingZeros32(n); got != want {
			t.Errorf("TrailingZeros32(%#x): got %d, wanted %d", n, got, want)
		}
	}
}

func TestAlign(t *testing.T) {
	if got := AlignUp[uint32](0x4001, 0x4000); got != 0x8000 {
		t.Errorf("AlignUp(0x4001, 0x4000): got %#x, wanted 0x8000", got)
	}
	if got := AlignDown[uint32](0x4fff, 0x400); got != 0x4c00 {
		t.Errorf("AlignDown(0x4fff, 0x400): got %#x, wanted 0x4c00", got)
	}
	if !IsAligned[uint32](0x100000, 1<<20) || IsAligned[uint32](0x100400, 1<<20) {
		t.Errorf("IsAligned mismatch for section boundaries")
	}
	for _, v := range []uint32{1, 2, 1024, 1 << 31} {
		if !IsPowerOfTwo(v) {
			t.Errorf("IsPowerOfTwo(%#x) = false", v)
		}
	}
	for _, v := range []uint32{0, 3, 1023} {
		if IsPowerOfTwo(v) {
			t.Errorf("IsPowerOfTwo(%#x) = true", v)
		}
	}
}

func TestMask(t *testing.T) {
	if got, want := Mask[uint32](0, 6), uint32(0x41); got != want {
		t.Errorf("Mask(0, 6): got %#x, wanted %#x", got, want)
	}
	if !IsOn[uint32](0xc1, 0x41) || IsOn[uint32](0x81, 0x41) {
		t.Errorf("IsOn mismatch")
	}
	if !IsAnyOn[uint32](0x81, 0x41) || IsAnyOn[uint32](0x80, 0x41) {
		t.Errorf("IsAnyOn mismatch")
	}
}
