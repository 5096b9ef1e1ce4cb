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

package cmd

import (
	"context"
	"os"

	"flag"
	"github.com/google/subcommands"

	"gvisor.dev/armhal/pkg/cpuid"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/log"
)

// Identify implements subcommands.Command for the "identify" command.
type Identify struct {
	midr    hexFlag
	cpuinfo string
	output  string
}

// Name implements subcommands.Command.Name.
func (*Identify) Name() string {
	return "identify"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Identify) Synopsis() string {
	return "identify a core and the errata workarounds it needs"
}

// Usage implements subcommands.Command.Usage.
func (*Identify) Usage() string {
	return `identify [-midr <value> | -cpuinfo <path>] - identify a core from its MIDR,
or from the first processor of a Linux cpuinfo file.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (i *Identify) SetFlags(f *flag.FlagSet) {
	f.Var(&i.midr, "midr", "Main ID Register value. Takes precedence over -cpuinfo.")
	f.StringVar(&i.cpuinfo, "cpuinfo", "/proc/cpuinfo", "cpuinfo file to read when -midr is not set.")
	f.StringVar(&i.output, "o", "yaml", "output format (yaml, json).")
}

// Erratum is a workaround in the identify output.
type Erratum struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
}

// Identity is the output of identify.
type Identity struct {
	MIDR        string    `json:"midr" yaml:"midr"`
	Core        string    `json:"core" yaml:"core"`
	Implementer uint8     `json:"implementer" yaml:"implementer"`
	Part        uint16    `json:"part" yaml:"part"`
	Variant     uint8     `json:"variant" yaml:"variant"`
	Revision    uint8     `json:"revision" yaml:"revision"`
	Errata      []Erratum `json:"errata,omitempty" yaml:"errata,omitempty"`
	Features    []string  `json:"features,omitempty" yaml:"features,omitempty"`
}

func identify(m cpuid.MIDR) Identity {
	id := Identity{
		MIDR:        hex(hostarch.Addr(m)),
		Core:        m.String(),
		Implementer: m.Implementer(),
		Part:        uint16(m.PartNum()),
		Variant:     m.Variant(),
		Revision:    m.Revision(),
	}
	for _, e := range m.Errata() {
		id.Errata = append(id.Errata, Erratum{ID: e.ID, Description: e.Description})
	}
	return id
}

// Execute implements subcommands.Command.Execute.
func (i *Identify) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	var id Identity
	if i.midr != 0 {
		id = identify(cpuid.MIDR(i.midr))
	} else {
		info, err := cpuid.ReadCPUInfo(i.cpuinfo)
		if err != nil {
			return Errorf("%v", err)
		}
		log.Debugf("%s: %v, BogoMIPS %.2f", i.cpuinfo, info.MIDR, info.BogoMIPS)
		id = identify(info.MIDR)
		id.Features = info.Features
	}
	if err := output(os.Stdout, i.output, id); err != nil {
		return Errorf("error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}
