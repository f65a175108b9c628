// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package parconfig configures parcheck runs from a shared
// configuration. It uses the configuration mechanism in package
// github.com/grailbio/base/config, and reads a default profile from
// $HOME/.parcheck/config. Individual parameters may be overridden on
// the command line, for example:
//
//	parcheck -set parcheck.participants=8 bcast
package parconfig

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/grailbio/base/config"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/must"
	"github.com/grailbio/bigmachine"
	"github.com/grailbio/parcheck/workload"

	// Used to provide ec2system.System bigmachines.
	_ "github.com/grailbio/bigmachine/ec2system"
)

// Path determines the location of the parcheck profile read by Parse.
var Path = os.ExpandEnv("$HOME/.parcheck/config")

// Config is the configuration of a parcheck run.
type Config struct {
	// Participants is the size of the broadcast group.
	Participants int
	// Elements is the number of workload elements to partition.
	Elements int
	// Repetitions is the number of times the workload kernel is applied
	// to each element.
	Repetitions int
	// Kernel is the workload kernel.
	Kernel workload.Kernel
	// Threads is the requested number of workers; 0 requests the
	// maximum available.
	Threads int
	// Status enables the console status display.
	Status bool
	// System is the bigmachine system on which broadcast participants
	// are started. If nil, participants run as goroutines in the
	// current process.
	System bigmachine.System
}

// MaxWorkers returns the maximum number of workers available to the
// process.
func MaxWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// Workers returns the number of workers to use for a requested count
// of n. Counts outside [1, limit] select limit; the returned error
// then describes why n was rejected. The error is a warning: the
// returned count is always usable.
func Workers(n, limit int) (int, error) {
	if n < 1 || n > limit {
		return limit, errors.E(errors.Invalid, fmt.Sprintf("thread count %d outside [1, %d]; using %d", n, limit, limit))
	}
	return n, nil
}

func init() {
	config.Register("parcheck", func(inst *config.Constructor) {
		cfg := new(Config)
		inst.IntVar(&cfg.Participants, "participants", 4, "number of participants in the broadcast group")
		inst.IntVar(&cfg.Elements, "elements", 8000, "number of workload elements")
		inst.IntVar(&cfg.Repetitions, "repetitions", 2000000, "kernel repetitions per element")
		var kernel string
		inst.StringVar(&kernel, "kernel", workload.Accumulate.String(), "workload kernel: accumulate or exchange")
		inst.IntVar(&cfg.Threads, "threads", 0, "number of workers; 0 uses the maximum available")
		inst.BoolVar(&cfg.Status, "status", false, "display worker and machine status on the console")
		inst.InstanceVar(&cfg.System, "system", "", "the bigmachine system on which broadcast participants run")
		inst.Doc = "parcheck configures parallel primitive verification"
		inst.New = func() (interface{}, error) {
			var err error
			if cfg.Kernel, err = workload.ParseKernel(kernel); err != nil {
				return nil, err
			}
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
	})
}

// Validate returns an error if the configuration cannot be run.
func (c *Config) Validate() error {
	switch {
	case c.Participants <= 0:
		return errors.E(errors.Invalid, fmt.Sprintf("participants: %d is not positive", c.Participants))
	case c.Elements < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("elements: %d is negative", c.Elements))
	case c.Repetitions < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("repetitions: %d is negative", c.Repetitions))
	case c.Threads < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("threads: %d is negative", c.Threads))
	}
	return nil
}

// Parse registers configuration flags and calls flag.Parse. It reads
// the parcheck configuration from Path and returns the configuration
// as amended by any flags provided. Parse panics if the configuration
// is invalid.
func Parse() *Config {
	config.RegisterFlags("", Path)
	flag.Parse()
	must.Nil(config.ProcessFlags())
	var cfg *Config
	config.Must("parcheck", &cfg)
	return cfg
}
