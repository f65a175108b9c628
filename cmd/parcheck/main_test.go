// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigmachine"
	"github.com/grailbio/bigmachine/testsystem"
	"github.com/grailbio/parcheck/parconfig"
	"github.com/grailbio/parcheck/workload"
	"github.com/grailbio/testutil/assert"
)

func TestParseThreads(t *testing.T) {
	for _, c := range []struct {
		args       []string
		configured int
		threads    int
		help, warn bool
	}{
		{nil, 0, 4, false, false},
		{nil, 2, 2, false, false},
		{nil, 9, 4, false, true},
		{[]string{"3"}, 0, 3, false, false},
		{[]string{"4"}, 1, 4, false, false},
		{[]string{"0"}, 0, 4, false, true},
		{[]string{"5"}, 0, 4, false, true},
		{[]string{"many"}, 0, 4, false, true},
		{[]string{"2", "extra"}, 0, 2, false, true},
		{[]string{"-h"}, 0, 0, true, false},
		{[]string{"-1"}, 0, 0, true, false},
		{[]string{"--help"}, 2, 0, true, false},
	} {
		threads, help, warn := parseThreads(c.args, c.configured, 4)
		if got, want := threads, c.threads; got != want {
			t.Errorf("%q: got %v, want %v", c.args, got, want)
		}
		if got, want := help, c.help; got != want {
			t.Errorf("%q: got %v, want %v", c.args, got, want)
		}
		if got, want := warn != nil, c.warn; got != want {
			t.Errorf("%q: got %v, want %v", c.args, warn, want)
		}
	}
}

func testEnv(out *bytes.Buffer) env {
	return env{
		cfg: &parconfig.Config{
			Participants: 3,
			Elements:     800,
			Repetitions:  10,
			Kernel:       workload.Accumulate,
		},
		stdout: out,
	}
}

func TestPartitionHelp(t *testing.T) {
	var out bytes.Buffer
	assert.NoError(t, run(context.Background(), testEnv(&out), "partition", []string{"-h"}))
	if got, want := out.String(), partitionUsage; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPartition(t *testing.T) {
	var out bytes.Buffer
	e := testEnv(&out)
	assert.NoError(t, run(context.Background(), e, "partition", []string{"1"}))
	text := out.String()
	for _, line := range []string{
		fmt.Sprintf("default thread count: %d\n", parconfig.MaxWorkers()),
		"using 1 threads\n",
		"Worker 0 of 1 starts\n",
		"Worker 0 is working for elements: 0 - 800 ...\n",
		"Worker 0 of 1 ends\n",
		"CPU time elapsed: ",
		"Wall time elapsed: ",
	} {
		if !strings.Contains(text, line) {
			t.Errorf("missing %q in output:\n%s", line, text)
		}
	}
	if strings.Contains(text, "not assigned") {
		t.Errorf("unexpected unassigned elements:\n%s", text)
	}
}

func TestPartitionInvalidThreads(t *testing.T) {
	var out bytes.Buffer
	e := testEnv(&out)
	assert.NoError(t, run(context.Background(), e, "partition", []string{"0"}))
	maxWorkers := parconfig.MaxWorkers()
	if want := fmt.Sprintf("using %d threads\n", maxWorkers); !strings.Contains(out.String(), want) {
		t.Errorf("missing %q in output:\n%s", want, out.String())
	}
	if got, want := strings.Count(out.String(), " starts\n"), maxWorkers; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBroadcastLocal(t *testing.T) {
	var out bytes.Buffer
	assert.NoError(t, run(context.Background(), testEnv(&out), "bcast", nil))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if got, want := len(lines), 3; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if !strings.HasSuffix(lines[0], "rank 0 of 3 (coordinator): 1") {
		t.Errorf("unexpected coordinator line %q", lines[0])
	}
	for _, line := range lines[1:] {
		if !strings.HasSuffix(line, "(participant): 1 SUCCESS") {
			t.Errorf("unexpected participant line %q", line)
		}
	}
}

func TestHelloMachines(t *testing.T) {
	b := bigmachine.Start(testsystem.New())
	defer b.Shutdown()
	var out bytes.Buffer
	e := testEnv(&out)
	e.b = b
	e.cfg.Participants = 2
	assert.NoError(t, run(context.Background(), e, "hello", nil))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if got, want := len(lines), 2; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i, line := range lines {
		if want := fmt.Sprintf("rank %d out of 2, value 1", i); !strings.HasSuffix(line, want) {
			t.Errorf("got %q, want suffix %q", line, want)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), testEnv(&out), "bogus", nil); !errors.Is(errors.NotExist, err) {
		t.Errorf("got %v, want not exist", err)
	}
}
