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
	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/hostarch"
)

// DataCache maintains the data and unified caches.
type DataCache struct {
	m Machine
}

// NewDataCache returns the data cache of the core m.
func NewDataCache(m Machine) *DataCache {
	return &DataCache{m: m}
}

// Enable sets SCTLR.C.
func (d *DataCache) Enable() {
	setControl(d.m, cp15.SCTLRC, true)
}

// Disable clears SCTLR.C. Dirty lines are not written back; callers
// needing that clean first.
func (d *DataCache) Disable() {
	setControl(d.m, cp15.SCTLRC, false)
}

// Enabled returns true if SCTLR.C is set.
func (d *DataCache) Enabled() bool {
	return cp15.IsSet(d.m, cp15.SCTLR, cp15.SCTLRC)
}

// InvalidateAll discards every line of every data-side level without
// writing back dirty data.
func (d *DataCache) InvalidateAll() {
	d.setWay(cp15.DCISW)
}

// CleanAll writes back every dirty line of every data-side level.
func (d *DataCache) CleanAll() {
	d.setWay(cp15.DCCSW)
}

// CleanInvalidateAll writes back and then discards every line of every
// data-side level.
func (d *DataCache) CleanInvalidateAll() {
	d.setWay(cp15.DCCISW)
}

// InvalidateRange discards the lines covering ar.
//
// A line only partly covered by ar is cleaned and invalidated instead, so
// dirty data outside ar that shares the line is not lost.
func (d *DataCache) InvalidateRange(ar hostarch.AddrRange) {
	line := d.lineBytes()
	d.m.DSB()
	forEachLine(ar, line, func(addr hostarch.Addr) {
		op := cp15.DCIMVAC
		if addr < ar.Start || uint64(addr)+uint64(line) > uint64(ar.End) {
			op = cp15.DCCIMVAC
		}
		d.m.Write(op, uint32(addr))
	})
	d.m.DSB()
}

// CleanRange writes back the lines covering ar.
func (d *DataCache) CleanRange(ar hostarch.AddrRange) {
	d.byLine(ar, cp15.DCCMVAC)
}

// CleanInvalidateRange writes back and discards the lines covering ar.
func (d *DataCache) CleanInvalidateRange(ar hostarch.AddrRange) {
	d.byLine(ar, cp15.DCCIMVAC)
}

// CleanRangeToUnification writes back the lines covering ar to the point
// of unification, as needed before invalidating the instruction cache
// for code written through the data cache.
func (d *DataCache) CleanRangeToUnification(ar hostarch.AddrRange) {
	d.byLine(ar, cp15.DCCMVAU)
}

func (d *DataCache) byLine(ar hostarch.AddrRange, op cp15.Reg) {
	line := d.lineBytes()
	d.m.DSB()
	forEachLine(ar, line, func(addr hostarch.Addr) {
		d.m.Write(op, uint32(addr))
	})
	d.m.DSB()
}

// lineBytes returns the line length of the L1 data cache.
func (d *DataCache) lineBytes() uint32 {
	return ReadGeometry(d.m, 0, false).LineBytes
}

// setWay issues op for every (way, set) of every data-side level. Each
// level's batch is bracketed by DSB and followed by ISB.
func (d *DataCache) setWay(op cp15.Reg) {
	Walk(d.m, func(g Geometry) {
		d.m.DSB()
		for way := uint32(0); way < g.Ways; way++ {
			for set := uint32(0); set < g.Sets; set++ {
				d.m.Write(op, g.Operand(way, set))
			}
		}
		d.m.DSB()
		d.m.ISB()
	})
}
