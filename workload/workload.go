// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package workload runs a fixed CPU-bound computation over a
// partitioned buffer in a fork-join region: one goroutine per worker,
// all started at region entry and all joined before Run returns.
// Each worker touches only the indices of its own range, so the
// buffer is shared without locking.
package workload

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/status"
	"github.com/grailbio/parcheck/partition"
	"golang.org/x/sync/errgroup"
)

// A Buffer holds the data a workload operates on. Y is only required
// by kernels that use two parallel buffers.
type Buffer struct {
	X, Y []float64
}

// NewBuffer allocates a zeroed buffer of n elements. If pair is true,
// Y is allocated as well.
func NewBuffer(n int, pair bool) *Buffer {
	b := &Buffer{X: make([]float64, n)}
	if pair {
		b.Y = make([]float64, n)
	}
	return b
}

// A Kernel is the per-index computation performed by a worker.
type Kernel int

const (
	// Accumulate repeatedly adds 1 to X[i].
	Accumulate Kernel = iota
	// Exchange repeatedly swaps X[i] and Y[i].
	Exchange
)

var kernelNames = map[Kernel]string{
	Accumulate: "accumulate",
	Exchange:   "exchange",
}

func (k Kernel) String() string {
	if name, ok := kernelNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kernel(%d)", int(k))
}

// ParseKernel returns the kernel with the given name.
func ParseKernel(name string) (Kernel, error) {
	for k, kname := range kernelNames {
		if kname == name {
			return k, nil
		}
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown kernel %q", name))
}

// Pair tells whether the kernel needs both X and Y.
func (k Kernel) Pair() bool { return k == Exchange }

// apply runs the kernel reps times on each index of r.
func (k Kernel) apply(b *Buffer, r partition.Range, reps int) {
	switch k {
	case Accumulate:
		x := b.X
		for i := r.Lower; i < r.Upper; i++ {
			for j := 0; j < reps; j++ {
				x[i] = x[i] + 1.0
			}
		}
	case Exchange:
		x, y := b.X, b.Y
		for i := r.Lower; i < r.Upper; i++ {
			for j := 0; j < reps; j++ {
				x[i], y[i] = y[i], x[i]
			}
		}
	default:
		panic(fmt.Sprintf("workload: unknown kernel %d", int(k)))
	}
}

// An Observer is notified of worker progress. Observers are called
// concurrently from the workers.
type Observer interface {
	// Start is called when worker begins, before it reads its range.
	Start(worker, workers int)
	// Range is called with the range the worker computed for itself.
	Range(worker int, r partition.Range)
	// Done is called after the worker has finished its range.
	Done(worker, workers int)
}

// Options configures a workload run.
type Options struct {
	Kernel Kernel
	// Repetitions is the number of times the kernel is applied to each
	// index.
	Repetitions int
	// Observer, if non-nil, is notified of worker progress.
	Observer Observer
	// Status, if non-nil, displays a status line for each worker.
	Status *status.Group
}

// Run runs the workload described by opts over buf, with one worker
// for each range in plan. Run returns after every worker has
// finished. Run returns an error without starting any worker if buf
// cannot hold the plan's indices or the options are invalid.
func Run(plan partition.Plan, buf *Buffer, opts Options) error {
	if err := check(plan, buf, opts); err != nil {
		return err
	}
	var g errgroup.Group
	for t := 0; t < plan.Workers; t++ {
		t := t
		var task *status.Task
		if opts.Status != nil {
			task = opts.Status.Start(fmt.Sprintf("worker %d", t))
		}
		g.Go(func() error {
			if opts.Observer != nil {
				opts.Observer.Start(t, plan.Workers)
			}
			r := plan.Range(t)
			if opts.Observer != nil {
				opts.Observer.Range(t, r)
			}
			if task != nil {
				task.Printf("%s elements %d - %d", opts.Kernel, r.Lower, r.Upper)
			}
			opts.Kernel.apply(buf, r, opts.Repetitions)
			if task != nil {
				task.Done()
			}
			if opts.Observer != nil {
				opts.Observer.Done(t, plan.Workers)
			}
			return nil
		})
	}
	return g.Wait()
}

func check(plan partition.Plan, buf *Buffer, opts Options) error {
	if plan.Workers <= 0 || len(plan.Ranges) != plan.Workers {
		return errors.E(errors.Invalid, fmt.Sprintf("invalid plan with %d workers and %d ranges", plan.Workers, len(plan.Ranges)))
	}
	if buf == nil || len(buf.X) < plan.Total {
		return errors.E(errors.Invalid, fmt.Sprintf("buffer too short for %d elements", plan.Total))
	}
	if opts.Kernel.Pair() && len(buf.Y) < plan.Total {
		return errors.E(errors.Invalid, fmt.Sprintf("kernel %s requires a paired buffer of %d elements", opts.Kernel, plan.Total))
	}
	if _, ok := kernelNames[opts.Kernel]; !ok {
		return errors.E(errors.Invalid, fmt.Sprintf("unknown kernel %d", int(opts.Kernel)))
	}
	if opts.Repetitions < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("negative repetition count %d", opts.Repetitions))
	}
	return nil
}
