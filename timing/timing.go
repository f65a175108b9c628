// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package timing measures the CPU time consumed by the process and
// the wall time elapsed around a region of code. A measurement is
// started and stopped by the same goroutine.
package timing

import (
	"time"

	"github.com/grailbio/base/log"
	"golang.org/x/sys/unix"
)

// A Sample holds the clock readings taken at the start and stop of a
// measurement.
type Sample struct {
	CPUStart, CPUEnd   time.Duration
	WallStart, WallEnd time.Time
}

// Durations are the elapsed times of a measurement. Both are
// non-negative.
type Durations struct {
	CPU, Wall time.Duration
}

// Start begins a measurement.
func Start() Sample {
	return Sample{CPUStart: cpuTime(), WallStart: time.Now()}
}

// Stop completes the measurement s and returns its elapsed times.
func Stop(s Sample) Durations {
	s.CPUEnd = cpuTime()
	s.WallEnd = time.Now()
	return s.Durations()
}

// Durations returns the elapsed times of a completed sample.
func (s Sample) Durations() Durations {
	d := Durations{
		CPU:  s.CPUEnd - s.CPUStart,
		Wall: s.WallEnd.Sub(s.WallStart),
	}
	if d.CPU < 0 {
		d.CPU = 0
	}
	if d.Wall < 0 {
		d.Wall = 0
	}
	return d
}

// CPUSeconds returns the elapsed CPU time in seconds.
func (d Durations) CPUSeconds() float64 { return d.CPU.Seconds() }

// WallSeconds returns the elapsed wall time in seconds.
func (d Durations) WallSeconds() float64 { return d.Wall.Seconds() }

// cpuTime returns the user and system CPU time consumed by the
// process so far. If it cannot be read, cpuTime logs the error and
// returns 0.
func cpuTime() time.Duration {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		log.Error.Printf("getrusage: %v", err)
		return 0
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}
