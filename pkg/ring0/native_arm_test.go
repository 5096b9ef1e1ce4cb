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

package ring0_test

import (
	"testing"

	"gvisor.dev/armhal/pkg/cache"
	"gvisor.dev/armhal/pkg/platform"
	"gvisor.dev/armhal/pkg/ring0"
	"gvisor.dev/armhal/pkg/ring0/pagetables"
	"gvisor.dev/armhal/pkg/sync"
)

// TestNativeDrivesComponents only constructs the components; their
// operations need PL1 and would fault under a hosted test binary.
func TestNativeDrivesComponents(t *testing.T) {
	var m ring0.Native
	if sync.Global(m) == nil {
		t.Errorf("sync.Global returned nil")
	}
	if cache.NewDataCache(m) == nil || cache.NewInstructionCache(m) == nil || cache.NewBranchPredictor(m) == nil {
		t.Errorf("cache constructors returned nil")
	}
	if pagetables.NewMMU(m, platform.Build) == nil {
		t.Errorf("NewMMU returned nil")
	}
}

func TestNativeCompareAndSwapExclusive(t *testing.T) {
	var m ring0.Native
	word := uint32(0)
	if m.CompareAndSwapExclusive(&word, 1, 2) {
		t.Errorf("CompareAndSwapExclusive(0, 1, 2) succeeded")
	}
	if word != 0 {
		t.Errorf("word = %d after failed swap, want 0", word)
	}
	// A store-exclusive may fail spuriously.
	for !m.CompareAndSwapExclusive(&word, 0, 1) {
	}
	if word != 1 {
		t.Errorf("word = %d, want 1", word)
	}
}

func TestNativeUserMode(t *testing.T) {
	var m ring0.Native
	if cpsr := m.CPSR(); ring0.IsPrivileged(cpsr) {
		t.Errorf("test binary runs privileged: CPSR = %#x", cpsr)
	}
}
