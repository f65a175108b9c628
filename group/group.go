// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package group describes the membership of a participant in a
// process group: how many participants there are, which one this is,
// and where it runs. Groups are established once by whatever
// bootstraps the participants and are not modified afterwards.
package group

import (
	"fmt"
	"os"

	"github.com/grailbio/base/errors"
)

// Coordinator is the rank of the participant that originates
// collective operations.
const Coordinator = 0

// A Group is one participant's view of its process group.
type Group struct {
	// Size is the total number of participants.
	Size int
	// Rank is this participant's ordinal, in [0, Size).
	Rank int
	// HostID identifies the host on which the participant runs.
	HostID string
}

// IsCoordinator tells whether the participant is the group's
// coordinator.
func (g Group) IsCoordinator() bool {
	return g.Rank == Coordinator
}

// Validate returns an error if the group's size or rank is invalid.
func (g Group) Validate() error {
	if g.Size <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("group size %d is not positive", g.Size))
	}
	if g.Rank < 0 || g.Rank >= g.Size {
		return errors.E(errors.Invalid, fmt.Sprintf("rank %d out of range [0, %d)", g.Rank, g.Size))
	}
	return nil
}

func (g Group) String() string {
	return fmt.Sprintf("%s:%d/%d", g.HostID, g.Rank, g.Size)
}

// Local returns the memberships of a group of size participants
// that all run on the named host. Ranks are contiguous from 0.
func Local(size int, host string) ([]Group, error) {
	if size <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("group size %d is not positive", size))
	}
	groups := make([]Group, size)
	for i := range groups {
		groups[i] = Group{Size: size, Rank: i, HostID: host}
	}
	return groups, nil
}

// Hostname returns the identifier of the current host. If the host
// name cannot be determined, "localhost" is returned.
func Hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	return host
}
