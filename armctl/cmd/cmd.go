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

// Package cmd holds implementations of the armctl commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/subcommands"
	"gopkg.in/yaml.v3"

	"gvisor.dev/armhal/pkg/hostarch"
	"gvisor.dev/armhal/pkg/log"
)

// Errorf logs the error and prints it to stderr. It returns ExitFailure
// for use as the command's exit status.
func Errorf(format string, args ...any) subcommands.ExitStatus {
	log.Warningf(format, args...)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}

// outputFormats are the structured output formats of every command.
var outputFormats = map[string]func(io.Writer, any) error{
	"yaml": writeYAML,
	"json": writeJSON,
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output writes v to w in format.
func output(w io.Writer, format string, v any) error {
	out, ok := outputFormats[format]
	if !ok {
		return fmt.Errorf("unsupported output format %q, must be 'yaml' or 'json'", format)
	}
	return out(w, v)
}

// hexFlag is a 32-bit address or register value flag. It accepts any base
// strconv does and prints in hex.
type hexFlag uint32

// String implements flag.Value.
func (h *hexFlag) String() string {
	return fmt.Sprintf("%#x", uint32(*h))
}

// Get implements flag.Getter.
func (h *hexFlag) Get() any {
	return uint32(*h)
}

// Set implements flag.Value.
func (h *hexFlag) Set(s string) error {
	v, err := parseWord(s)
	if err != nil {
		return err
	}
	*h = hexFlag(v)
	return nil
}

// parseWord parses a 32-bit value in any base.
func parseWord(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return uint32(v), nil
}

// hex formats an address for structured output.
func hex(a hostarch.Addr) string {
	return fmt.Sprintf("%#08x", uint32(a))
}
