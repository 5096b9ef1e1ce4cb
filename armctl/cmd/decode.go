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
	"fmt"
	"os"

	"flag"
	"github.com/google/subcommands"

	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/ring0/pagetables"
)

// Decode implements subcommands.Command for the "decode" command.
type Decode struct {
	table  bool
	virt   hexFlag
	output string
}

// Name implements subcommands.Command.Name.
func (*Decode) Name() string {
	return "decode"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Decode) Synopsis() string {
	return "decode short-descriptor translation table entries"
}

// Usage implements subcommands.Command.Usage.
func (*Decode) Usage() string {
	return `decode [options] <word>... - decode first-level (or, with -table,
second-level) descriptors. Words mapping consecutive addresses from -virt.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Decode) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&d.table, "table", false, "decode second-level (page table) entries.")
	f.Var(&d.virt, "virt", "virtual address translated by the first word.")
	f.StringVar(&d.output, "o", "yaml", "output format (yaml, json).")
}

// Attributes is the structured form of pagetables.MemoryAttributes.
type Attributes struct {
	Type         string `json:"type" yaml:"type"`
	Inner        string `json:"inner,omitempty" yaml:"inner,omitempty"`
	Outer        string `json:"outer,omitempty" yaml:"outer,omitempty"`
	Shareable    bool   `json:"shareable" yaml:"shareable"`
	ReadOnly     bool   `json:"readOnly" yaml:"readOnly"`
	ExecuteNever bool   `json:"executeNever" yaml:"executeNever"`
	User         bool   `json:"user" yaml:"user"`
}

func attributesOf(a pagetables.MemoryAttributes) *Attributes {
	out := &Attributes{
		Type:         a.Type().String(),
		Shareable:    a.IsShareable(),
		ReadOnly:     a.IsReadOnly(),
		ExecuteNever: a.IsExecuteNever(),
		User:         a.IsPrivilegeLevel0(),
	}
	if a.Type() == pagetables.NormalMemory {
		out.Inner = a.InnerPolicy().String()
		out.Outer = a.OuterPolicy().String()
	}
	return out
}

// Descriptor is one decoded entry.
type Descriptor struct {
	Raw        string      `json:"raw" yaml:"raw"`
	Virtual    string      `json:"virtual" yaml:"virtual"`
	Kind       string      `json:"kind" yaml:"kind"`
	Physical   string      `json:"physical,omitempty" yaml:"physical,omitempty"`
	Table      string      `json:"table,omitempty" yaml:"table,omitempty"`
	Attributes *Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

func decodeDirectory(virt hostarch.Addr, raw uint32) Descriptor {
	e := pagetables.DecodeDirectoryEntry(virt, raw)
	d := Descriptor{Raw: fmt.Sprintf("%#08x", raw), Virtual: hex(e.Virtual()), Kind: e.Kind().String()}
	if s, ok := e.Section(); ok {
		d.Physical = hex(s.Physical())
		d.Attributes = attributesOf(s.Attributes())
	}
	if t, ok := e.PageTable(); ok {
		d.Table = hex(t)
	}
	return d
}

func decodeTable(virt hostarch.Addr, raw uint32) Descriptor {
	e := pagetables.DecodeTableEntry(virt, raw)
	d := Descriptor{Raw: fmt.Sprintf("%#08x", raw), Virtual: hex(e.Virtual()), Kind: e.Kind().String()}
	if p, ok := e.Page(); ok {
		d.Physical = hex(p.Physical())
		d.Attributes = attributesOf(p.Attributes())
	}
	return d
}

// Execute implements subcommands.Command.Execute.
func (d *Decode) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	decode, step := decodeDirectory, uint64(hostarch.SectionSize)
	virt := hostarch.Addr(d.virt).SectionRoundDown()
	if d.table {
		decode, step = decodeTable, hostarch.PageSize
		virt = hostarch.Addr(d.virt).RoundDown()
	}

	var out []Descriptor
	va := uint64(virt)
	for _, arg := range f.Args() {
		raw, err := parseWord(arg)
		if err != nil {
			return Errorf("%v", err)
		}
		if va >= 1<<32 {
			return Errorf("descriptor %q maps beyond 4 GiB", arg)
		}
		out = append(out, decode(hostarch.Addr(va), raw))
		va += step
	}
	if err := output(os.Stdout, d.output, out); err != nil {
		return Errorf("error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}
