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

//go:build arm

package barrier

// NativeBarriers issues barriers on the executing core.
type NativeBarriers struct{}

var _ Barriers = NativeBarriers{}

// DMB implements Barriers.DMB.
//
//go:nosplit
func (NativeBarriers) DMB() { DMB() }

// DSB implements Barriers.DSB.
//
//go:nosplit
func (NativeBarriers) DSB() { DSB() }

// ISB implements Barriers.ISB.
//
//go:nosplit
func (NativeBarriers) ISB() { ISB() }

// WFE implements Barriers.WFE.
//
//go:nosplit
func (NativeBarriers) WFE() { WFE() }

// SEV implements Barriers.SEV.
//
//go:nosplit
func (NativeBarriers) SEV() { SEV() }

// DMB issues DMB ISH.
func DMB()

// DSB issues DSB SY.
func DSB()

// ISB issues ISB SY.
func ISB()

// WFE issues WFE.
func WFE()

// SEV issues SEV.
func SEV()
