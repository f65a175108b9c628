// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Parcheck verifies that the parallel primitives of a machine or
// cluster work before real workloads are run on it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/status"
	"github.com/grailbio/bigmachine"
	"github.com/grailbio/parcheck/bcast"
	"github.com/grailbio/parcheck/group"
	"github.com/grailbio/parcheck/parconfig"
	"github.com/grailbio/parcheck/partition"
	"github.com/grailbio/parcheck/report"
	"github.com/grailbio/parcheck/timing"
	"github.com/grailbio/parcheck/workload"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `usage: parcheck [flags] command [args]

Command parcheck verifies that parallel primitives work on this
machine or cluster.

Available commands are:

	bcast
		Broadcast a sentinel from the coordinator to every participant
		and report, per participant, whether it was received.
	hello
		Broadcast a sentinel and report every participant's value.
	partition [threads]
		Partition a fixed workload among worker threads, run it, and
		report the elapsed CPU and wall time.

Parameters are set through the parcheck configuration profile; see
-set and -profile.
`)
		flag.PrintDefaults()
		os.Exit(2)
	}
	log.AddFlags()
	cfg := parconfig.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
	}
	// Machines re-run this binary: bigmachine must be started before
	// any command is dispatched.
	var b *bigmachine.B
	if cfg.System != nil {
		b = bigmachine.Start(cfg.System)
		defer b.Shutdown()
	}
	var st *status.Status
	if cfg.Status {
		st = new(status.Status)
		var console status.Reporter
		go console.Go(os.Stderr, st)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	err := run(context.Background(), env{cfg: cfg, b: b, status: st, stdout: os.Stdout}, cmd, args)
	if errors.Is(errors.NotExist, err) {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

// env is the environment in which a command runs.
type env struct {
	cfg    *parconfig.Config
	b      *bigmachine.B
	status *status.Status
	stdout io.Writer
}

func (e env) group(name string) *status.Group {
	if e.status == nil {
		return nil
	}
	return e.status.Group(name)
}

func run(ctx context.Context, e env, cmd string, args []string) error {
	switch cmd {
	case "bcast":
		outcomes, err := broadcast(ctx, e)
		if err != nil {
			return err
		}
		w := report.New(e.stdout)
		w.Outcomes(outcomes)
		return w.Err()
	case "hello":
		outcomes, err := broadcast(ctx, e)
		if err != nil {
			return err
		}
		w := report.New(e.stdout)
		for _, o := range outcomes {
			w.Received(o)
		}
		return w.Err()
	case "partition":
		return runPartition(e, args)
	default:
		return errors.E(errors.NotExist, fmt.Sprintf("unknown command %s", cmd))
	}
}

// broadcast runs the broadcast verification on the configured
// transport.
func broadcast(ctx context.Context, e env) ([]bcast.Outcome, error) {
	if e.b != nil {
		return bcast.VerifyMachines(ctx, e.b, e.cfg.Participants, e.group("participants"))
	}
	return bcast.VerifyLocal(ctx, e.cfg.Participants, group.Hostname())
}

func runPartition(e env, args []string) error {
	maxWorkers := parconfig.MaxWorkers()
	threads, help, warn := parseThreads(args, e.cfg.Threads, maxWorkers)
	if help {
		_, err := io.WriteString(e.stdout, partitionUsage)
		return err
	}
	if warn != nil {
		log.Error.Printf("warning: %v", warn)
	}
	w := report.New(e.stdout)
	w.Capabilities(maxWorkers, runtime.NumCPU())
	w.Threads(maxWorkers, threads)

	plan := partition.Partition(e.cfg.Elements, threads)
	buf := workload.NewBuffer(plan.Total, e.cfg.Kernel.Pair())
	opts := workload.Options{
		Kernel:      e.cfg.Kernel,
		Repetitions: e.cfg.Repetitions,
		Observer:    w,
		Status:      e.group("workers"),
	}
	log.Debug.Printf("running %s over %d elements with %d workers", e.cfg.Kernel, plan.Total, plan.Workers)
	sample := timing.Start()
	err := workload.Run(plan, buf, opts)
	elapsed := timing.Stop(sample)
	if err != nil {
		return err
	}
	w.Unassigned(plan.Unassigned())
	w.Elapsed(elapsed)
	return w.Err()
}
