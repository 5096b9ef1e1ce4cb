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

package cpuid

// Erratum is a hardware erratum with a software workaround applied by this
// module.
type Erratum struct {
	// ID is the vendor erratum number, or a short tag for workarounds that
	// are not numbered errata.
	ID string

	// Description says what the workaround does.
	Description string
}

var (
	// ForwardTLBMaintenance is the Cortex-A9 requirement that ACTLR.FW be set
	// together with ACTLR.SMP so cache and TLB maintenance broadcasts to
	// the other cores.
	ForwardTLBMaintenance = Erratum{
		ID:          "a9-actlr-fw",
		Description: "set ACTLR.FW with ACTLR.SMP to broadcast cache and TLB maintenance",
	}

	// SCUSpeculativeLinefill is Cortex-A9 MPCore erratum 764369: data or
	// unified cache line maintenance by MVA may fail in an SMP cluster
	// unless bit 0 of the SCU diagnostic control register is set.
	SCUSpeculativeLinefill = Erratum{
		ID:          "764369",
		Description: "set SCU diagnostic control bit 0 before enabling the SCU",
	}
)

// NeedsForwardTLBMaintenance returns true if ACTLR.FW must be set during
// bring-up.
func (m MIDR) NeedsForwardTLBMaintenance() bool {
	return m.Is(CortexA9)
}

// NeedsSCUErratum764369 returns true if the SCU diagnostic workaround must
// be applied before enabling the SCU.
func (m MIDR) NeedsSCUErratum764369() bool {
	return m.Is(CortexA9)
}

// Errata returns the workarounds that apply to m, in the order bring-up
// applies them.
func (m MIDR) Errata() []Erratum {
	var es []Erratum
	if m.NeedsForwardTLBMaintenance() {
		es = append(es, ForwardTLBMaintenance)
	}
	if m.NeedsSCUErratum764369() {
		es = append(es, SCUSpeculativeLinefill)
	}
	return es
}
