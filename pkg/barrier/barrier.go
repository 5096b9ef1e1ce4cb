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

// Package barrier provides the ARMv7-A memory and instruction barriers and
// the event instructions used for low-power waiting.
//
// Barriers are issued from assembly leaves. The Go compiler never moves
// memory accesses across a call to an assembly function, so each call is
// both a hardware barrier and a compiler fence.
package barrier

// Barriers is the set of barrier and event operations of one core.
type Barriers interface {
	// DMB orders memory accesses before the barrier against those after
	// it, as observed by other observers in the inner shareable domain.
	DMB()

	// DSB completes all memory accesses and cache, branch predictor and
	// TLB maintenance before the barrier before any instruction after it
	// executes.
	DSB()

	// ISB flushes the pipeline so that instructions after it are fetched
	// with the effects of prior context-changing operations visible.
	ISB()

	// WFE waits in low power until the core's event register is set, then
	// clears it. It may return spuriously.
	WFE()

	// SEV sets the event register of every core in the system.
	SEV()
}
