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

package atomicbitops

import "sync/atomic"

// AndUint32 atomically applies bitwise and operation to *addr with val and
// returns the previous value.
func AndUint32(addr *uint32, val uint32) uint32 {
	for {
		o := atomic.LoadUint32(addr)
		n := o & val
		if atomic.CompareAndSwapUint32(addr, o, n) {
			return o
		}
	}
}

// OrUint32 atomically applies bitwise or operation to *addr with val and
// returns the previous value.
func OrUint32(addr *uint32, val uint32) uint32 {
	for {
		o := atomic.LoadUint32(addr)
		n := o | val
		if atomic.CompareAndSwapUint32(addr, o, n) {
			return o
		}
	}
}

// And atomically clears the bits of u not set in val and returns the
// previous value.
func (u *Uint32) And(val uint32) uint32 {
	return AndUint32(&u.value, val)
}

// Or atomically sets the bits of val in u and returns the previous value.
func (u *Uint32) Or(val uint32) uint32 {
	return OrUint32(&u.value, val)
}
