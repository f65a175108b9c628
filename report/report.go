// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package report writes the line-oriented console output of the
// verification scenarios. A Writer is safe for concurrent use; each
// line is written atomically.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/grailbio/parcheck/bcast"
	"github.com/grailbio/parcheck/partition"
	"github.com/grailbio/parcheck/timing"
)

// A Writer writes report lines to an underlying io.Writer.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

// New returns a Writer that writes to w.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered while writing.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) printf(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format+"\n", args...)
}

// Outcome writes the verification outcome of a participant.
func (w *Writer) Outcome(o bcast.Outcome) {
	g := o.Group
	switch o.Role {
	case bcast.RoleParticipant:
		w.printf("Host %s, rank %d of %d (%s): %d %s", g.HostID, g.Rank, g.Size, o.Role, o.Value, o.Result)
	default:
		w.printf("Host %s, rank %d of %d (%s): %d", g.HostID, g.Rank, g.Size, o.Role, o.Value)
	}
}

// Outcomes writes each outcome in turn.
func (w *Writer) Outcomes(outcomes []bcast.Outcome) {
	for _, o := range outcomes {
		w.Outcome(o)
	}
}

// Received writes the value observed by a participant, without
// judgment.
func (w *Writer) Received(o bcast.Outcome) {
	w.printf("Host %s, rank %d out of %d, value %d", o.Group.HostID, o.Group.Rank, o.Group.Size, o.Value)
}

// Capabilities writes the worker capacity of the host.
func (w *Writer) Capabilities(maxWorkers, procs int) {
	w.printf("max workers: %d", maxWorkers)
	w.printf("procs: %d", procs)
}

// Threads writes the default and effective worker counts.
func (w *Writer) Threads(def, n int) {
	w.printf("default thread count: %d", def)
	w.printf("using %d threads", n)
}

// Start implements workload.Observer.
func (w *Writer) Start(worker, workers int) {
	w.printf("Worker %d of %d starts", worker, workers)
}

// Range implements workload.Observer.
func (w *Writer) Range(worker int, r partition.Range) {
	w.printf("Worker %d is working for elements: %d - %d ...", worker, r.Lower, r.Upper)
}

// Done implements workload.Observer.
func (w *Writer) Done(worker, workers int) {
	w.printf("Worker %d of %d ends", worker, workers)
}

// Unassigned writes the range of elements that no worker processes,
// if it is not empty.
func (w *Writer) Unassigned(r partition.Range) {
	if r.Empty() {
		return
	}
	w.printf("elements %d - %d are not assigned to any worker", r.Lower, r.Upper)
}

// Elapsed writes the elapsed CPU and wall times.
func (w *Writer) Elapsed(d timing.Durations) {
	w.printf("CPU time elapsed: %f seconds", d.CPUSeconds())
	w.printf("Wall time elapsed: %f seconds", d.WallSeconds())
}
