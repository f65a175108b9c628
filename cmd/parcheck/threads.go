// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/parcheck/parconfig"
)

const partitionUsage = `usage: parcheck [flags] partition [threads]

Partition runs a fixed workload split evenly among worker threads and
reports each worker's range and the elapsed CPU and wall time.

	threads
		The number of worker threads, between 1 and the maximum
		available. Invalid counts are replaced by the maximum.
		Elements left over when the workload does not divide evenly
		are not processed.
`

// parseThreads determines the worker count for the partition
// command from its arguments. An argument beginning with '-' requests
// help. Without an argument, the configured count is used, where 0
// selects maxWorkers. An invalid count selects maxWorkers and is
// described by the returned warning.
func parseThreads(args []string, configured, maxWorkers int) (threads int, help bool, warn error) {
	if len(args) == 0 {
		if configured == 0 {
			return maxWorkers, false, nil
		}
		threads, warn = parconfig.Workers(configured, maxWorkers)
		return threads, false, warn
	}
	arg := args[0]
	if strings.HasPrefix(arg, "-") {
		return 0, true, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return maxWorkers, false, errors.E(errors.Invalid, fmt.Sprintf("thread count %q is not an integer; using %d", arg, maxWorkers))
	}
	threads, warn = parconfig.Workers(n, maxWorkers)
	if warn == nil && len(args) > 1 {
		warn = errors.E(errors.Invalid, fmt.Sprintf("ignoring extra arguments %q", args[1:]))
	}
	return threads, false, warn
}
