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

// Package bits includes all bit related types and operations.
package bits

import (
	mathbits "math/bits"

	"golang.org/x/exp/constraints"
)

// IsOn returns true if *all* bits set in 'bits' are set in 'mask'.
func IsOn[T constraints.Unsigned](mask, bits T) bool {
	return mask&bits == bits
}

// IsAnyOn returns true if *any* bit set in 'bits' is set in 'mask'.
func IsAnyOn[T constraints.Unsigned](mask, bits T) bool {
	return mask&bits != 0
}

// MaskOf returns a T with only bit i set.
func MaskOf[T constraints.Unsigned](i int) T {
	return T(1) << uint(i)
}

// Mask returns a T with all of the given bits set.
func Mask[T constraints.Unsigned](is ...int) T {
	ret := T(0)
	for _, i := range is {
		ret |= MaskOf[T](i)
	}
	return ret
}

// IsPowerOfTwo returns true if v is a power of 2.
func IsPowerOfTwo[T constraints.Unsigned](v T) bool {
	return v != 0 && v&(v-1) == 0
}

// AlignDown rounds v down to a multiple of align, which must be a power of 2.
func AlignDown[T constraints.Unsigned](v, align T) T {
	return v &^ (align - 1)
}

// AlignUp rounds v up to a multiple of align, which must be a power of 2.
func AlignUp[T constraints.Unsigned](v, align T) T {
	return AlignDown(v+align-1, align)
}

// IsAligned returns true if v is a multiple of align, which must be a power
// of 2.
func IsAligned[T constraints.Unsigned](v, align T) bool {
	return v&(align-1) == 0
}

// Log2Ceil32 returns ceil(log2(v)) for v > 0. Log2Ceil32(1) is 0.
func Log2Ceil32(v uint32) int {
	if v <= 1 {
		return 0
	}
	return 32 - mathbits.LeadingZeros32(v-1)
}

// MostSignificantOne32 returns the index of the most significant 1 bit in v,
// or 32 if v is 0.
func MostSignificantOne32(v uint32) int {
	if v == 0 {
		return 32
	}
	return 31 - mathbits.LeadingZeros32(v)
}

// TrailingZeros32 returns the number of trailing zero bits in v, or 32 if v
// is 0.
func TrailingZeros32(v uint32) int {
	return mathbits.TrailingZeros32(v)
}
