// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bcast verifies that a coordinator can broadcast a value to
// every participant of a process group. Each participant runs Verify
// over a Comm, the transport that provides the group's rendezvous and
// broadcast primitives. Two transports are provided: Local, in which
// participants are goroutines, and VerifyMachines, in which each
// participant is a bigmachine machine.
//
// The protocol is single-shot:
//
//  1. the coordinator sets CoordinatorValue, every other participant
//     sets PlaceholderValue;
//  2. all participants rendezvous;
//  3. the coordinator's value is broadcast to every participant;
//  4. all participants rendezvous again;
//  5. every participant classifies its observed value.
//
// A participant that does not observe the coordinator's value reports
// Fail; this is an outcome, not an error, and does not affect other
// participants.
package bcast

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/parcheck/group"
)

// A Comm is a participant's handle to the group's collective
// transport.
type Comm interface {
	// Group returns the participant's membership.
	Group() group.Group
	// Barrier returns once every participant in the group has called
	// Barrier.
	Barrier(ctx context.Context) error
	// Broadcast delivers the value held by participant root to every
	// participant. On root, v is read; elsewhere it is overwritten
	// with root's value.
	Broadcast(ctx context.Context, root int, v *Sentinel) error
}

// Verify runs the broadcast verification protocol for the
// participant represented by comm and returns its outcome. Errors are
// returned only for transport failures.
func Verify(ctx context.Context, comm Comm) (Outcome, error) {
	g := comm.Group()
	if err := g.Validate(); err != nil {
		return Outcome{}, err
	}
	value := PlaceholderValue
	if g.IsCoordinator() {
		value = CoordinatorValue
	}
	if err := comm.Barrier(ctx); err != nil {
		return Outcome{}, errors.E("pre-broadcast rendezvous", err)
	}
	if err := comm.Broadcast(ctx, group.Coordinator, &value); err != nil {
		return Outcome{}, errors.E("broadcast", err)
	}
	if err := comm.Barrier(ctx); err != nil {
		return Outcome{}, errors.E("post-broadcast rendezvous", err)
	}
	return Classify(g, value), nil
}
