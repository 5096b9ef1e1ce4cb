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
	"time"

	"flag"
	"github.com/google/subcommands"

	"gvisor.dev/armhal/armctl/config"
	"gvisor.dev/armhal/pkg/boot"
	"gvisor.dev/armhal/pkg/cache"
	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/log"
	"gvisor.dev/armhal/pkg/ring0"
	"gvisor.dev/armhal/pkg/sim"
	"gvisor.dev/armhal/pkg/sync"
)

// Boot implements subcommands.Command for the "boot" command.
type Boot struct {
	board   string
	stacks  hexFlag
	bss     hexFlag
	bssSize hexFlag
	timeout time.Duration
	output  string
}

// Name implements subcommands.Command.Name.
func (*Boot) Name() string {
	return "boot"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Boot) Synopsis() string {
	return "simulate multi-core bring-up of a board"
}

// Usage implements subcommands.Command.Usage.
func (*Boot) Usage() string {
	return `boot [-board <file>] - reset every core of a simulated board. The primary
enables the SCU if present, invalidates its data cache and releases the
secondaries, then every core takes the global critical section once.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *Boot) SetFlags(f *flag.FlagSet) {
	b.stacks = 0x00200000
	b.bss = 0x00300000
	b.bssSize = 0x1000
	f.StringVar(&b.board, "board", "", "board description (TOML). Defaults to a dual-core Cortex-A9.")
	f.Var(&b.stacks, "stacks", "base of the boot stacks.")
	f.Var(&b.bss, "bss", "start of the region zeroed by the primary.")
	f.Var(&b.bssSize, "bss-size", "size of the region zeroed by the primary.")
	f.DurationVar(&b.timeout, "timeout", 10*time.Second, "time allowed for every core to park.")
	f.StringVar(&b.output, "o", "yaml", "output format (yaml, json).")
}

// CoreState is one core in the boot output.
type CoreState struct {
	Core       int    `json:"core" yaml:"core"`
	Entered    bool   `json:"entered" yaml:"entered"`
	Halted     bool   `json:"halted" yaml:"halted"`
	Mode       string `json:"mode" yaml:"mode"`
	SP         string `json:"sp" yaml:"sp"`
	Spins      uint32 `json:"spins" yaml:"spins"`
	Operations int    `json:"operations" yaml:"operations"`
}

// BringUp is the output of boot.
type BringUp struct {
	Board    string      `json:"board" yaml:"board"`
	Platform string      `json:"platform" yaml:"platform"`
	SCUCores int         `json:"scuCores,omitempty" yaml:"scuCores,omitempty"`
	Critical int         `json:"critical" yaml:"critical"`
	Cores    []CoreState `json:"cores" yaml:"cores"`
}

// bringUp resets every core of b and waits for them to park.
func bringUp(ctx context.Context, b *config.Board, layout boot.Layout) (*BringUp, error) {
	cfg := b.Platform()
	if err := layout.Validate(cfg); err != nil {
		return nil, err
	}
	s := sim.New(b.Simulation())
	scuBase := hostarch.Addr(b.PeriphBase)
	if b.SnoopControlUnit {
		// SCU configuration register: CPU number field.
		s.Memory().Store32(scuBase+4, uint32(b.Cores-1))
	}

	out := &BringUp{Board: b.Name, Platform: cfg.String()}
	entered := make(map[int]bool)
	var (
		mu     sync.Mutex
		inside int
	)
	critical := func(core int) {
		sync.ForConfig(s.Core(core), cfg).Do(func() { inside++ })
		mu.Lock()
		entered[core] = true
		mu.Unlock()
	}
	release := boot.NewReleaseFlag()
	seq := &boot.Sequencer{
		Config:  cfg,
		Layout:  layout,
		Release: release,
		Entry: boot.Entry{
			Primary: func() {
				c := s.Core(0)
				if b.SnoopControlUnit {
					scu := cache.NewSnoopControlUnit(c)
					scu.Enable()
					out.SCUCores = scu.Cores()
				}
				cache.NewDataCache(c).InvalidateAll()
				for i := 1; i < b.Cores && i < cfg.Cores; i++ {
					for !s.Core(i).Waiting() && ctx.Err() == nil {
						time.Sleep(time.Millisecond)
					}
				}
				log.Debugf("releasing secondary cores")
				release.Release(c)
				critical(0)
			},
			Secondary: critical,
		},
	}
	for i := 0; i < b.Cores; i++ {
		s.Start(i, func(c *sim.Core) { seq.Reset(c) })
	}
	if err := s.Wait(ctx); err != nil {
		return nil, fmt.Errorf("bring-up did not complete: %w", err)
	}

	out.Critical = inside
	for _, c := range s.Cores() {
		regs := c.Registers()
		out.Cores = append(out.Cores, CoreState{
			Core:       c.Index(),
			Entered:    entered[c.Index()],
			Halted:     c.Halted(),
			Mode:       fmt.Sprintf("%#x", regs.CPSR&ring0.PSRModeMask),
			SP:         hex(regs.SP),
			Spins:      c.Spins(),
			Operations: len(c.Trace()),
		})
	}
	return out, nil
}

// Execute implements subcommands.Command.Execute.
func (b *Boot) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	board, err := config.LoadOrDefault(b.board)
	if err != nil {
		return Errorf("%v", err)
	}
	cfg := board.Platform()
	layout := boot.Layout{
		Vectors: hostarch.Addr(board.Vectors),
		Stacks: hostarch.AddrRange{
			Start: hostarch.Addr(b.stacks),
			End:   hostarch.Addr(uint32(b.stacks) + uint32(cfg.Cores)*cfg.CoreStackSize),
		},
	}
	if b.bssSize != 0 {
		bss, ok := hostarch.Addr(b.bss).AddRange(uint32(b.bssSize))
		if !ok {
			return Errorf("bss range %#x+%#x overflows", uint32(b.bss), uint32(b.bssSize))
		}
		layout.Zero = append(layout.Zero, bss)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	out, err := bringUp(ctx, board, layout)
	if err != nil {
		return Errorf("%v", err)
	}
	if err := output(os.Stdout, b.output, out); err != nil {
		return Errorf("error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}
