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

package platform

import "testing"

func TestBuildMatchesConstants(t *testing.T) {
	if Build.Cores != Cores {
		t.Errorf("Build.Cores = %d, want %d", Build.Cores, Cores)
	}
	if Build.SMP() != (Cores > 1) {
		t.Errorf("Build.SMP() = %t with %d cores", Build.SMP(), Cores)
	}
	if Build.ExtendedPhysicalAddressing != extendedPhysicalAddressing || Build.MultiprocessingExtensions != multiprocessingExtensions {
		t.Errorf("Build %v does not match the lpae and mpcore tags", Build)
	}
	if Build.CoreStackSize == 0 || Build.CoreStackSize%8 != 0 {
		t.Errorf("core stack size %#x is not a non-zero multiple of 8", Build.CoreStackSize)
	}
}

func TestSMP(t *testing.T) {
	if (Config{Cores: 1}).SMP() {
		t.Errorf("single core config reports SMP")
	}
	if !(Config{Cores: 2}).SMP() {
		t.Errorf("dual core config does not report SMP")
	}
}
