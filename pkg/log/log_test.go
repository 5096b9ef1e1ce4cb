// Copyright 2018 Google LLC
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

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/time/rate"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	want := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if diff := cmp.Diff(want, tw.lines); diff != "" {
		t.Errorf("Writer lines mismatch (-want +got):\n%s", diff)
	}
}

func TestLevelFiltering(t *testing.T) {
	tw := &testWriter{}
	l := &BasicLogger{Level: Info, Emitter: &Writer{Next: tw}}

	l.Debugf("core %d parked\n", 1)
	l.Infof("core %d released\n", 2)
	l.Warningf("core %d in user mode\n", 3)
	if got, want := len(tw.lines), 2; got != want {
		t.Fatalf("got %d lines, want %d: %v", got, want, tw.lines)
	}

	l.SetLevel(Debug)
	if !l.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) = false after SetLevel(Debug)")
	}
	l.Debugf("core %d parked\n", 1)
	if got := tw.lines[len(tw.lines)-1]; got != "core 1 parked\n" {
		t.Errorf("last line = %q, want %q", got, "core 1 parked\n")
	}
}

func TestGoogleEmitterHeader(t *testing.T) {
	tw := &testWriter{}
	l := &BasicLogger{Level: Debug, Emitter: GoogleEmitter{&Writer{Next: tw}}}
	ts := time.Date(2018, time.May, 7, 13, 4, 5, 6000, time.UTC)
	l.Emit(0, Warning, ts, "dcache: %d levels", 2)

	if len(tw.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(tw.lines))
	}
	line := tw.lines[0]
	if !strings.HasPrefix(line, "W0507 13:04:05.000006 ") {
		t.Errorf("header = %q, want prefix %q", line, "W0507 13:04:05.000006 ")
	}
	if !strings.HasSuffix(line, "] dcache: 2 levels\n") {
		t.Errorf("line = %q, want message suffix", line)
	}
}

func TestRateLimitedLogger(t *testing.T) {
	tw := &testWriter{}
	base := &BasicLogger{Level: Debug, Emitter: &Writer{Next: tw}}
	rl := RateLimitedLogger(base, time.Hour)
	for i := 0; i < 10; i++ {
		rl.Infof("spin %d\n", i)
	}
	if diff := cmp.Diff([]string{"spin 0\n"}, tw.lines); diff != "" {
		t.Errorf("rate limited output mismatch (-want +got):\n%s", diff)
	}
}

func TestRateLimitedReportsDrops(t *testing.T) {
	tw := &testWriter{}
	base := &BasicLogger{Level: Info, Emitter: &Writer{Next: tw}}
	rl := RateLimitedLogger(base, time.Hour).(*rateLimitedLogger)
	for i := 0; i < 3; i++ {
		rl.Infof("core %d spinning", 1)
	}
	rl.Debugf("below level")
	rl.limit.SetLimit(rate.Inf)
	rl.Infof("core %d spinning", 1)

	// Writer terminates each message with a separate newline write.
	want := "core 1 spinning\ncore 1 spinning (2 similar messages dropped)\n"
	if diff := cmp.Diff(want, strings.Join(tw.lines, "")); diff != "" {
		t.Errorf("rate limited output mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenFileSubstitutions(t *testing.T) {
	dir := t.TempDir()
	f, err := OpenFile(filepath.Join(dir, "logs", "armctl-%BOARD%.log"), os.O_CREATE|os.O_WRONLY, Substitutions{"BOARD": "zynq"})
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()
	if want := filepath.Join(dir, "logs", "armctl-zynq.log"); f.Name() != want {
		t.Errorf("file name = %q, want %q", f.Name(), want)
	}

	f, err = OpenFile("", os.O_CREATE, Substitutions{})
	if f != nil || err != nil {
		t.Errorf("OpenFile(\"\") = %v, %v, want nil, nil", f, err)
	}
}

func TestCommandSubstitutions(t *testing.T) {
	got := CommandSubstitutions("plan").Build("/tmp/armctl-%COMMAND%-%PID%.log")
	if want := fmt.Sprintf("/tmp/armctl-plan-%d.log", os.Getpid()); got != want {
		t.Errorf("Build got %q, want %q", got, want)
	}
}
