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

// Package cli is the main entrypoint for armctl.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/google/subcommands"

	"gvisor.dev/armhal/armctl/cmd"
	"gvisor.dev/armhal/pkg/log"
	"gvisor.dev/armhal/pkg/platform"
)

var (
	debug     = flag.Bool("debug", false, "enable debug logging.")
	logFormat = flag.String("log-format", "text", "log format: text (default) or json.")
	logFile   = flag.String("log", "", "file to log to, instead of stderr. %PID% and %COMMAND% are replaced.")
)

// Main is the main entrypoint.
func Main() {
	// Register all commands.
	forEachCmd(subcommands.Register)

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	subcommand := flag.CommandLine.Arg(0)
	if *debug {
		log.SetLevel(log.Debug)
	}

	var target io.Writer = os.Stderr
	f, err := log.OpenFile(*logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, log.CommandSubstitutions(subcommand))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(128)
	}
	if f != nil {
		target = f
	}
	emitter, err := newEmitter(*logFormat, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(128)
	}
	log.SetTarget(emitter)

	log.Debugf("armctl %s, %s/%s, build %v", subcommand, runtime.GOOS, runtime.GOARCH, platform.Build)
	log.Debugf("Args: %v", os.Args)

	status := subcommands.Execute(context.Background())
	if status != subcommands.ExitSuccess {
		log.Debugf("Exiting with status: %v", status)
	}
	if f != nil {
		f.Close()
	}
	os.Exit(int(status))
}

// forEachCmd invokes the passed callback for each command supported by
// armctl.
func forEachCmd(cb func(cmd subcommands.Command, group string)) {
	// Help and flags commands are generated automatically.
	cb(subcommands.HelpCommand(), "")
	cb(subcommands.FlagsCommand(), "")

	const hostGroup = "host"
	cb(new(cmd.Decode), hostGroup)
	cb(new(cmd.Identify), hostGroup)

	const simGroup = "simulation"
	cb(new(cmd.Plan), simGroup)
	cb(new(cmd.Cache), simGroup)
	cb(new(cmd.Boot), simGroup)
}

func newEmitter(format string, w io.Writer) (log.Emitter, error) {
	switch format {
	case "text":
		return log.GoogleEmitter{Emitter: &log.Writer{Next: w}}, nil
	case "json":
		return log.JSONEmitter{Writer: &log.Writer{Next: w}}, nil
	}
	return nil, fmt.Errorf("invalid log format %q, must be 'text' or 'json'", format)
}
