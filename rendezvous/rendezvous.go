// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package rendezvous provides context-aware synchronization points
// for a fixed set of parties: a reusable barrier, and a slot through
// which one party publishes a value to the others.
package rendezvous

import (
	"context"
	"fmt"
	"sync"
)

// A Barrier blocks parties until all of them have arrived. Barriers
// are reusable: once released, the next n arrivals form a new
// generation.
type Barrier struct {
	n int

	mu       sync.Mutex
	arrived  int
	gen      uint64
	releasec chan struct{}
}

// NewBarrier returns a barrier for n parties. NewBarrier panics if n
// is not positive.
func NewBarrier(n int) *Barrier {
	if n <= 0 {
		panic(fmt.Sprintf("rendezvous: invalid party count %d", n))
	}
	return &Barrier{n: n}
}

// Parties returns the number of parties the barrier waits for.
func (b *Barrier) Parties() int { return b.n }

// Generation returns the number of times the barrier has been
// released.
func (b *Barrier) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// Wait arrives at the barrier and returns when all parties of the
// current generation have arrived. If the context is done first, the
// arrival is withdrawn and the context's error is returned.
func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	if b.releasec == nil {
		b.releasec = make(chan struct{})
	}
	releasec := b.releasec
	b.arrived++
	if b.arrived == b.n {
		close(releasec)
		b.releasec = nil
		b.arrived = 0
		b.gen++
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()
	select {
	case <-releasec:
		return nil
	case <-ctx.Done():
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-releasec:
		// Released concurrently with cancellation.
		return nil
	default:
	}
	b.arrived--
	return ctx.Err()
}

// A Slot carries a single value from the party that puts it to any
// number of parties that get it. Get blocks until the value has been
// put.
type Slot[T any] struct {
	mu     sync.Mutex
	value  T
	ok     bool
	readyc chan struct{}
}

// Put publishes v to the slot and wakes all waiting getters. Put
// panics if the slot already holds a value.
func (s *Slot[T]) Put(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ok {
		panic("rendezvous: slot value already put")
	}
	s.value, s.ok = v, true
	if s.readyc != nil {
		close(s.readyc)
		s.readyc = nil
	}
}

// Get returns the slot's value, waiting for it to be put if
// necessary. Get returns the context's error if the context is done
// before the value is available.
func (s *Slot[T]) Get(ctx context.Context) (T, error) {
	s.mu.Lock()
	if s.ok {
		defer s.mu.Unlock()
		return s.value, nil
	}
	if s.readyc == nil {
		s.readyc = make(chan struct{})
	}
	readyc := s.readyc
	s.mu.Unlock()
	select {
	case <-readyc:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}
