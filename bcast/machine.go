// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bcast

import (
	"context"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/status"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/bigmachine"
	"github.com/grailbio/parcheck/group"
	"github.com/grailbio/parcheck/rendezvous"
	"golang.org/x/sync/errgroup"
)

func init() {
	gob.Register(&participant{})
}

// joinRequest assigns a machine its membership in the group.
type joinRequest struct {
	Rank, Size int
	// Coordinator is the address of the coordinator's machine.
	Coordinator string
}

// A participant is the bigmachine service installed on each machine
// of a verification group. The coordinator's participant also hosts
// the group's barrier and broadcast slot, which the other
// participants reach by RPC.
type participant struct {
	// Exported just satisfies gob's persnickety nature: we need at least
	// one exported field.
	Exported struct{}

	b *bigmachine.B

	mu          sync.Mutex
	joined      bool
	group       group.Group
	coordinator string
	barrier     *rendezvous.Barrier
	slot        *rendezvous.Slot[Sentinel]
}

func (p *participant) Init(b *bigmachine.B) error {
	p.b = b
	return nil
}

// Join records the machine's membership and returns it. The
// coordinator allocates the group's rendezvous state.
func (p *participant) Join(ctx context.Context, req joinRequest, g *group.Group) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.joined {
		return errors.E(errors.Precondition, fmt.Sprintf("machine already joined as rank %d", p.group.Rank))
	}
	p.group = group.Group{Size: req.Size, Rank: req.Rank, HostID: group.Hostname()}
	if err := p.group.Validate(); err != nil {
		return err
	}
	p.coordinator = req.Coordinator
	if p.group.IsCoordinator() {
		p.barrier = rendezvous.NewBarrier(req.Size)
		p.slot = new(rendezvous.Slot[Sentinel])
	}
	p.joined = true
	*g = p.group
	log.Debug.Printf("joined group as %v", p.group)
	return nil
}

// Arrive arrives at the group's barrier. It is served by the
// coordinator only.
func (p *participant) Arrive(ctx context.Context, _ struct{}, _ *struct{}) error {
	barrier, _, err := p.rendezvous()
	if err != nil {
		return err
	}
	return barrier.Wait(ctx)
}

// Fetch returns the coordinator's broadcast value, waiting for it to
// be published. It is served by the coordinator only.
func (p *participant) Fetch(ctx context.Context, _ struct{}, v *Sentinel) error {
	_, slot, err := p.rendezvous()
	if err != nil {
		return err
	}
	val, err := slot.Get(ctx)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// Verify runs the verification protocol for this machine's
// participant and returns its outcome.
func (p *participant) Verify(ctx context.Context, _ struct{}, out *Outcome) error {
	p.mu.Lock()
	joined, g, addr := p.joined, p.group, p.coordinator
	p.mu.Unlock()
	if !joined {
		return errors.E(errors.Precondition, "machine has not joined a group")
	}
	comm := &machineComm{p: p, group: g}
	if !g.IsCoordinator() {
		var err error
		comm.coordinator, err = p.b.Dial(ctx, addr)
		if err != nil {
			return errors.E(errors.Unavailable, fmt.Sprintf("dial coordinator %s", addr), err)
		}
	}
	outcome, err := Verify(ctx, comm)
	if err != nil {
		return err
	}
	*out = outcome
	return nil
}

func (p *participant) rendezvous() (*rendezvous.Barrier, *rendezvous.Slot[Sentinel], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.barrier == nil {
		return nil, nil, errors.E(errors.Precondition, "machine is not a joined coordinator")
	}
	return p.barrier, p.slot, nil
}

// machineComm is the Comm of a participant running on a machine. The
// coordinator uses its own rendezvous state directly; other
// participants call the coordinator's machine.
type machineComm struct {
	p           *participant
	group       group.Group
	coordinator *bigmachine.Machine
}

func (c *machineComm) Group() group.Group { return c.group }

func (c *machineComm) Barrier(ctx context.Context) error {
	if c.coordinator == nil {
		barrier, _, err := c.p.rendezvous()
		if err != nil {
			return err
		}
		return barrier.Wait(ctx)
	}
	return c.coordinator.Call(ctx, "Participant.Arrive", struct{}{}, nil)
}

func (c *machineComm) Broadcast(ctx context.Context, root int, v *Sentinel) error {
	if root != group.Coordinator {
		return errors.E(errors.NotSupported, fmt.Sprintf("broadcast from rank %d: machine groups broadcast from the coordinator only", root))
	}
	if c.coordinator == nil {
		_, slot, err := c.p.rendezvous()
		if err != nil {
			return err
		}
		slot.Put(*v)
		return nil
	}
	return c.coordinator.Call(ctx, "Participant.Fetch", struct{}{}, v)
}

// VerifyMachines starts n machines on b, each hosting one participant,
// and runs the verification across them. Machine 0 is the
// coordinator. Outcomes are returned in rank order. A machine that
// fails to start fails the whole verification. If sg is non-nil,
// machine progress is reported to it.
func VerifyMachines(ctx context.Context, b *bigmachine.B, n int, sg *status.Group) ([]Outcome, error) {
	if n <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("group size %d is not positive", n))
	}
	machines, err := startMachines(ctx, b, n, sg)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, m := range machines {
			m.Cancel()
		}
	}()
	coordinator := machines[0].Addr
	err = traverse.Each(n, func(i int) error {
		req := joinRequest{Rank: i, Size: n, Coordinator: coordinator}
		var joined group.Group
		if err := machines[i].Call(ctx, "Participant.Join", req, &joined); err != nil {
			return errors.E(fmt.Sprintf("join machine %s as rank %d", machines[i].Addr, i), err)
		}
		log.Printf("machine %s joined as %v", machines[i].Addr, joined)
		return nil
	})
	if err != nil {
		return nil, err
	}
	outcomes := make([]Outcome, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range machines {
		i := i
		g.Go(func() error {
			if err := machines[i].Call(gctx, "Participant.Verify", struct{}{}, &outcomes[i]); err != nil {
				return errors.E(fmt.Sprintf("verify on machine %s", machines[i].Addr), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// startMachines starts n machines on b with a participant service and
// waits for all of them to be running.
func startMachines(ctx context.Context, b *bigmachine.B, n int, sg *status.Group) ([]*bigmachine.Machine, error) {
	log.Printf("starting %d machines", n)
	machines, err := b.Start(ctx, n, bigmachine.Services{
		"Participant": &participant{},
	})
	if err != nil {
		return nil, errors.E(errors.Unavailable, "start machines", err)
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := range machines {
		m := machines[i]
		var task *status.Task
		if sg != nil {
			task = sg.Start()
			task.Print("waiting for machine to boot")
		}
		g.Go(func() error {
			select {
			case <-m.Wait(bigmachine.Running):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := m.Err(); err != nil {
				log.Printf("machine %s failed to start: %v", m.Addr, err)
				if task != nil {
					task.Printf("failed to start: %v", err)
					task.Done()
				}
				return errors.E(errors.Unavailable, fmt.Sprintf("machine %s failed to start", m.Addr), err)
			}
			if task != nil {
				task.Title(m.Addr)
				task.Print("running")
			}
			log.Printf("machine %v is ready", m.Addr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, m := range machines {
			m.Cancel()
		}
		return nil, err
	}
	return machines, nil
}
