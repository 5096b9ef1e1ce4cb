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

// Package cache implements maintenance of the data and instruction caches,
// the branch predictor and the MPCore Snoop Control Unit.
//
// Whole-cache operations discover the cache hierarchy at run time from
// CLIDR and CCSIDR and issue one set/way operation per line slot of every
// data-side level. Range operations issue one operation per line touched by
// the range. Absent caches are skipped; nothing here fails.
//
// All operations act on the executing core only and must be called with
// the core's Machine.
package cache

import (
	"gvisor.dev/armhal/pkg/barrier"
	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/hostarch"
)

// Machine is the subset of ring0.Machine used for cache maintenance.
type Machine interface {
	cp15.Bank
	barrier.Barriers
}

// setControl sets or clears SCTLR field f and synchronizes the change.
func setControl(m Machine, f cp15.Field, on bool) {
	if on {
		cp15.Modify(m, cp15.SCTLR, f.Set())
	} else {
		cp15.Modify(m, cp15.SCTLR, f.Clear())
	}
	m.ISB()
}

// forEachLine calls fn for the line-aligned address of every line of size
// line touched by ar. An empty range touches no line. It panics if ar is
// not well formed.
func forEachLine(ar hostarch.AddrRange, line uint32, fn func(addr hostarch.Addr)) {
	if !ar.WellFormed() {
		panic("malformed range " + ar.String())
	}
	if ar.Start == ar.End {
		return
	}
	end := uint64(ar.End)
	for a := uint64(ar.Start) &^ uint64(line-1); a < end; a += uint64(line) {
		fn(hostarch.Addr(a))
	}
}
