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

package boot

import (
	"sync/atomic"

	"gvisor.dev/armhal/pkg/barrier"
)

// ReleaseFlag holds secondary cores at reset until the primary clears it.
// It is 1 from load time, written once with 0 and never set again.
type ReleaseFlag struct {
	word *uint32
}

// NewReleaseFlag returns a flag holding secondary cores.
func NewReleaseFlag() *ReleaseFlag {
	w := uint32(1)
	return &ReleaseFlag{word: &w}
}

// Released returns true once Release has been called.
//
//go:nosplit
func (f *ReleaseFlag) Released() bool {
	return atomic.LoadUint32(f.word) == 0
}

// Release clears the flag and wakes waiting cores. The store is complete
// before the event is sent.
//
//go:nosplit
func (f *ReleaseFlag) Release(b barrier.Barriers) {
	atomic.StoreUint32(f.word, 0)
	b.DSB()
	b.SEV()
}

// secondaryReleaseWord is polled by the reset vector. It is statically
// initialized data, so zeroing .bss leaves it set.
var secondaryReleaseWord uint32 = 1

// secondaryRelease is the flag of the reset vector.
var secondaryRelease = ReleaseFlag{word: &secondaryReleaseWord}

// ReleaseSecondaryCores lets secondary cores parked by the reset vector
// continue to hal_secondary_entry. It is called by the primary once the
// state secondaries depend on is ready.
func ReleaseSecondaryCores(b barrier.Barriers) {
	secondaryRelease.Release(b)
}
