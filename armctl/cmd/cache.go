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
	"gvisor.dev/armhal/pkg/cache"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/sim"
)

// Cache implements subcommands.Command for the "cache" command.
type Cache struct {
	board  string
	start  hexFlag
	size   hexFlag
	output string
}

// Name implements subcommands.Command.Name.
func (*Cache) Name() string {
	return "cache"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Cache) Synopsis() string {
	return "show cache geometry and the cost of maintenance operations"
}

// Usage implements subcommands.Command.Usage.
func (*Cache) Usage() string {
	return `cache [-board <file>] [-start <addr> -size <bytes>] - read the cache
hierarchy of a simulated core of the board and count the operations each
maintenance call issues, for whole caches and for the given range.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Cache) SetFlags(f *flag.FlagSet) {
	c.size = 0x1000
	f.StringVar(&c.board, "board", "", "board description (TOML). Defaults to a dual-core Cortex-A9.")
	f.Var(&c.start, "start", "start of the maintained range.")
	f.Var(&c.size, "size", "size of the maintained range in bytes.")
	f.StringVar(&c.output, "o", "yaml", "output format (yaml, json).")
}

// Level is one cache in the cache output.
type Level struct {
	Name string `json:"name" yaml:"name"`
	Sets uint32 `json:"sets" yaml:"sets"`
	Ways uint32 `json:"ways" yaml:"ways"`
	Line uint32 `json:"line" yaml:"line"`
	Size uint32 `json:"size" yaml:"size"`
}

// Cost is what one maintenance call issued.
type Cost struct {
	Operation string         `json:"operation" yaml:"operation"`
	Writes    map[string]int `json:"writes,omitempty" yaml:"writes,omitempty"`
	Barriers  int            `json:"barriers" yaml:"barriers"`
}

// Maintenance is the output of cache.
type Maintenance struct {
	Board  string  `json:"board" yaml:"board"`
	Range  string  `json:"range" yaml:"range"`
	Levels []Level `json:"levels" yaml:"levels"`
	Costs  []Cost  `json:"costs" yaml:"costs"`
}

// cost runs fn on core and tallies its trace.
func cost(core *sim.Core, name string, fn func()) Cost {
	core.ResetTrace()
	fn()
	c := Cost{Operation: name, Writes: make(map[string]int)}
	for _, o := range core.Trace() {
		switch o.Kind {
		case sim.OpWrite, sim.OpWrite64:
			c.Writes[o.Reg]++
		case sim.OpDMB, sim.OpDSB, sim.OpISB:
			c.Barriers++
		}
	}
	return c
}

// maintenance measures the maintenance operations of b's caches over ar.
func maintenance(b *config.Board, ar hostarch.AddrRange) *Maintenance {
	core := sim.New(b.Simulation()).Core(0)
	out := &Maintenance{Board: b.Name, Range: ar.String()}
	for _, g := range cache.Hierarchy(core) {
		out.Levels = append(out.Levels, Level{
			Name: g.String(),
			Sets: g.Sets,
			Ways: g.Ways,
			Line: g.LineBytes,
			Size: g.Size(),
		})
	}

	d := cache.NewDataCache(core)
	i := cache.NewInstructionCache(core)
	bp := cache.NewBranchPredictor(core)
	ops := []struct {
		name string
		fn   func()
	}{
		{"dcache invalidate all", d.InvalidateAll},
		{"dcache clean all", d.CleanAll},
		{"dcache clean and invalidate all", d.CleanInvalidateAll},
		{"dcache invalidate range", func() { d.InvalidateRange(ar) }},
		{"dcache clean range", func() { d.CleanRange(ar) }},
		{"dcache clean and invalidate range", func() { d.CleanInvalidateRange(ar) }},
		{"dcache clean range to unification", func() { d.CleanRangeToUnification(ar) }},
		{"icache invalidate all", i.InvalidateAll},
		{"icache invalidate range", func() { i.InvalidateRange(ar) }},
		{"branch predictor invalidate all", bp.InvalidateAll},
		{"branch predictor invalidate range", func() { bp.InvalidateRange(ar) }},
	}
	for _, op := range ops {
		out.Costs = append(out.Costs, cost(core, op.name, op.fn))
	}
	return out
}

// Execute implements subcommands.Command.Execute.
func (c *Cache) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	b, err := config.LoadOrDefault(c.board)
	if err != nil {
		return Errorf("%v", err)
	}
	ar, ok := hostarch.Addr(c.start).AddRange(uint32(c.size))
	if !ok {
		return Errorf("range %#x+%#x overflows", uint32(c.start), uint32(c.size))
	}
	if err := output(os.Stdout, c.output, maintenance(b, ar)); err != nil {
		return Errorf("error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}
