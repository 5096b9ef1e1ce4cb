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

	"gvisor.dev/armhal/armctl/config"
	"gvisor.dev/armhal/pkg/cp15"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/log"
	"gvisor.dev/armhal/pkg/ring0/pagetables"
	"gvisor.dev/armhal/pkg/sim"
)

// Plan implements subcommands.Command for the "plan" command.
type Plan struct {
	board  string
	heap   bool
	output string
}

// Name implements subcommands.Command.Name.
func (*Plan) Name() string {
	return "plan"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Plan) Synopsis() string {
	return "build the translation tables of a board's memory map"
}

// Usage implements subcommands.Command.Usage.
func (*Plan) Usage() string {
	return `plan [-board <file>] - build the page directory for the board's regions,
point a simulated core's MMU at it and print the resulting mappings and
translation registers.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (p *Plan) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.board, "board", "", "board description (TOML). Defaults to a dual-core Cortex-A9.")
	f.BoolVar(&p.heap, "heap", false, "allocate tables from the Go heap instead of an anonymous mapping.")
	f.StringVar(&p.output, "o", "yaml", "output format (yaml, json).")
}

// PlannedMapping is one mapping in the plan output.
type PlannedMapping struct {
	Virtual    string      `json:"virtual" yaml:"virtual"`
	Physical   string      `json:"physical" yaml:"physical"`
	Size       uint64      `json:"size" yaml:"size"`
	Attributes *Attributes `json:"attributes" yaml:"attributes"`
}

// Translation is the output of plan.
type Translation struct {
	Board     string           `json:"board" yaml:"board"`
	Directory string           `json:"directory" yaml:"directory"`
	ArenaUsed uint32           `json:"arenaUsed" yaml:"arenaUsed"`
	TTBR0     string           `json:"ttbr0" yaml:"ttbr0"`
	TTBCR     string           `json:"ttbcr" yaml:"ttbcr"`
	DACR      string           `json:"dacr" yaml:"dacr"`
	SCTLR     string           `json:"sctlr" yaml:"sctlr"`
	Mappings  []PlannedMapping `json:"mappings" yaml:"mappings"`
}

// newArena returns the page table arena of b.
func newArena(b *config.Board, heap bool) (*pagetables.Arena, error) {
	phys := hostarch.Addr(b.Arena.Phys)
	if heap {
		return pagetables.NewHeapArena(b.ArenaSize(), phys), nil
	}
	return pagetables.NewMmapArena(b.ArenaSize(), phys)
}

// plan maps b's regions and points the MMU of core at the result.
func plan(b *config.Board, core *sim.Core, arena *pagetables.Arena) (*Translation, error) {
	d := pagetables.NewPageDirectory(core, arena)
	for _, r := range b.Regions {
		attrs, err := r.Attributes()
		if err != nil {
			return nil, err
		}
		log.Debugf("mapping %s: %#08x -> %#08x size %#x %v", r.Name, r.Virt, r.Phys, r.Size, attrs)
		d.MapRange(hostarch.Addr(r.Virt), hostarch.Addr(r.Phys), r.Size, attrs)
	}
	pagetables.NewMMU(core, b.Platform()).Setup(d)

	regs := core.Registers()
	t := &Translation{
		Board:     b.Name,
		Directory: hex(d.PhysicalAddress()),
		ArenaUsed: arena.Used(),
		TTBR0:     hex(hostarch.Addr(regs.Words[cp15.TTBR0.Name])),
		TTBCR:     hex(hostarch.Addr(regs.Words[cp15.TTBCR.Name])),
		DACR:      hex(hostarch.Addr(regs.Words[cp15.DACR.Name])),
		SCTLR:     hex(hostarch.Addr(regs.Words[cp15.SCTLR.Name])),
	}
	for _, m := range d.Mappings() {
		t.Mappings = append(t.Mappings, PlannedMapping{
			Virtual:    hex(m.Virtual),
			Physical:   hex(m.Physical),
			Size:       m.Size,
			Attributes: attributesOf(m.Attributes),
		})
	}
	return t, nil
}

// Execute implements subcommands.Command.Execute.
func (p *Plan) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	b, err := config.LoadOrDefault(p.board)
	if err != nil {
		return Errorf("%v", err)
	}
	arena, err := newArena(b, p.heap)
	if err != nil {
		return Errorf("%v", err)
	}
	defer arena.Close()

	t, err := plan(b, sim.New(b.Simulation()).Core(0), arena)
	if err != nil {
		return Errorf("%v", err)
	}
	if err := output(os.Stdout, p.output, t); err != nil {
		return Errorf("error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}
