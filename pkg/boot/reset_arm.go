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

//go:build arm

package boot

import (
	"gvisor.dev/armhal/pkg/platform"
)

const (
	bootCores         = platform.Cores
	bootCoreStackSize = platform.CoreStackSize
	bootStackBytes    = bootCores * bootCoreStackSize
)

// bootStacks holds the reset-time stack of every core. Core i's stack
// pointer starts at &bootStacks + (bootCores-i)*bootCoreStackSize.
var bootStacks [bootStackBytes]byte

// Reset is the reset vector. It must be entered by every core directly
// from reset, with the MMU and caches off.
func Reset()

// secondaryStart is the path of cores other than core 0, entered from
// Reset with the core index in R5.
func secondaryStart()

// park waits for events forever.
func park()
