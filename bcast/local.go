// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bcast

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/parcheck/group"
	"github.com/grailbio/parcheck/rendezvous"
	"golang.org/x/sync/errgroup"
)

// localShared is the state shared by all participants of a local
// group.
type localShared struct {
	barrier *rendezvous.Barrier
	slot    rendezvous.Slot[Sentinel]
}

// localComm is a Comm for a participant that runs as a goroutine in
// the current process.
type localComm struct {
	group  group.Group
	shared *localShared
}

// Local returns the Comms of a group of size in-process participants
// running on the named host. Each Comm must be used by its own
// goroutine.
func Local(size int, host string) ([]Comm, error) {
	groups, err := group.Local(size, host)
	if err != nil {
		return nil, err
	}
	shared := &localShared{barrier: rendezvous.NewBarrier(size)}
	comms := make([]Comm, size)
	for i := range comms {
		comms[i] = &localComm{group: groups[i], shared: shared}
	}
	return comms, nil
}

func (c *localComm) Group() group.Group { return c.group }

func (c *localComm) Barrier(ctx context.Context) error {
	return c.shared.barrier.Wait(ctx)
}

func (c *localComm) Broadcast(ctx context.Context, root int, v *Sentinel) error {
	if root < 0 || root >= c.group.Size {
		return errors.E(errors.Invalid, fmt.Sprintf("broadcast root %d out of range", root))
	}
	if c.group.Rank == root {
		c.shared.slot.Put(*v)
		return nil
	}
	val, err := c.shared.slot.Get(ctx)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// VerifyLocal runs the verification over a local group of the given
// size. Every participant runs concurrently in its own goroutine.
// Outcomes are returned in rank order.
func VerifyLocal(ctx context.Context, size int, host string) ([]Outcome, error) {
	comms, err := Local(size, host)
	if err != nil {
		return nil, err
	}
	return VerifyAll(ctx, comms)
}

// VerifyAll runs Verify for each of the provided comms concurrently
// and returns their outcomes in the order of comms. If any
// participant fails with an error, the remaining participants are
// canceled and the first error is returned.
func VerifyAll(ctx context.Context, comms []Comm) ([]Outcome, error) {
	outcomes := make([]Outcome, len(comms))
	g, ctx := errgroup.WithContext(ctx)
	for i := range comms {
		i := i
		g.Go(func() (err error) {
			outcomes[i], err = Verify(ctx, comms[i])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
