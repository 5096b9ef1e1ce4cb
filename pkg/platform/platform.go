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

// Package platform holds the build-time configuration of the target.
//
// The configuration is selected with build tags and resolved to constants:
//
//	smp     multi-core build (Cores > 1)
//	scu     a Snoop Control Unit is present
//	lpae    the Large Physical Address Extension is used for the translation
//	        table base
//	mpcore  the cores implement the multiprocessing extensions
//
// Components take a Config so tests and host tools can inject other
// configurations; Build is the configuration the binary was built for.
package platform

import "fmt"

// CoreStackSize is the size of each core's reset-time stack.
const CoreStackSize = 0x4000

// Config describes a target.
type Config struct {
	// Cores is the number of cores brought up.
	Cores int

	// CoreStackSize is the size of each core's reset-time stack.
	CoreStackSize uint32

	// SnoopControlUnit is true if the cluster has an MPCore SCU.
	SnoopControlUnit bool

	// ExtendedPhysicalAddressing is true if TTBR0 is programmed through its
	// 64-bit view.
	ExtendedPhysicalAddressing bool

	// MultiprocessingExtensions is true if the cores implement the
	// multiprocessing extensions. It selects the TTBR0 encoding of the
	// inner cacheability of translation table walks.
	MultiprocessingExtensions bool
}

// SMP returns true for multi-core configurations.
func (c Config) SMP() bool {
	return c.Cores > 1
}

// String implements fmt.Stringer.String.
func (c Config) String() string {
	return fmt.Sprintf("cores=%d stack=%#x scu=%t lpae=%t mpcore=%t", c.Cores, c.CoreStackSize, c.SnoopControlUnit, c.ExtendedPhysicalAddressing, c.MultiprocessingExtensions)
}

// Build is the configuration selected by build tags.
var Build = Config{
	Cores:                      Cores,
	CoreStackSize:              CoreStackSize,
	SnoopControlUnit:           snoopControlUnit,
	ExtendedPhysicalAddressing: extendedPhysicalAddressing,
	MultiprocessingExtensions:  multiprocessingExtensions,
}
