// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package partition assigns contiguous index ranges of a workload to
// a fixed number of workers.
//
// Each worker receives floor(total/workers) indices. The remainder is
// not redistributed: when total is not a multiple of workers, the
// trailing total%workers indices belong to no worker. Callers that
// need every index processed must choose an evenly dividing worker
// count.
package partition

import "fmt"

// A Range is the half-open index range [Lower, Upper).
type Range struct {
	Lower, Upper int
}

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.Upper - r.Lower }

// Empty tells whether the range contains no indices.
func (r Range) Empty() bool { return r.Upper <= r.Lower }

// Contains tells whether index i is in the range.
func (r Range) Contains(i int) bool { return r.Lower <= i && i < r.Upper }

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Lower, r.Upper)
}

// A Plan assigns each of Workers workers a range of the indices
// [0, Total).
type Plan struct {
	Total   int
	Workers int
	// Ranges holds the range of each worker, indexed by worker ordinal.
	Ranges []Range
}

// Partition returns the plan that assigns total indices to the given
// number of workers. Worker t is assigned [t*per, (t+1)*per), where
// per is total/workers rounded down. Partition panics if workers is
// not positive or total is negative.
func Partition(total, workers int) Plan {
	if workers <= 0 {
		panic(fmt.Sprintf("partition: invalid worker count %d", workers))
	}
	if total < 0 {
		panic(fmt.Sprintf("partition: invalid total %d", total))
	}
	per := total / workers
	plan := Plan{
		Total:   total,
		Workers: workers,
		Ranges:  make([]Range, workers),
	}
	for t := range plan.Ranges {
		lower := t * per
		plan.Ranges[t] = Range{lower, lower + per}
	}
	return plan
}

// Range returns the range of worker t.
func (p Plan) Range(t int) Range {
	return p.Ranges[t]
}

// PerWorker returns the number of indices assigned to each worker.
func (p Plan) PerWorker() int {
	if p.Workers == 0 {
		return 0
	}
	return p.Total / p.Workers
}

// Unassigned returns the trailing range of indices that no worker is
// assigned. It is empty when total divides evenly among the workers.
func (p Plan) Unassigned() Range {
	return Range{p.Workers * p.PerWorker(), p.Total}
}

// Owner returns the worker assigned index i, or -1 if no worker is.
func (p Plan) Owner(i int) int {
	per := p.PerWorker()
	if per == 0 || i < 0 || i >= p.Workers*per {
		return -1
	}
	return i / per
}
