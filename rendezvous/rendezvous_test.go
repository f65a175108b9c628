// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package rendezvous

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBarrier(t *testing.T) {
	const (
		N      = 50
		rounds = 10
	)
	var (
		b       = NewBarrier(N)
		arrived int64
		wg      sync.WaitGroup
		errc    = make(chan error, N*rounds)
	)
	wg.Add(N)
	for i := 0; i < N; i++ {
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				atomic.AddInt64(&arrived, 1)
				if err := b.Wait(context.Background()); err != nil {
					errc <- err
					return
				}
				// Nobody may pass round r before all N have arrived at it.
				if n := atomic.LoadInt64(&arrived); n < int64(N*(r+1)) {
					t.Errorf("round %d: passed barrier with %d arrivals", r, n)
				}
				if err := b.Wait(context.Background()); err != nil {
					errc <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		t.Fatal(err)
	}
	if got, want := b.Generation(), uint64(2*rounds); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBarrierSingle(t *testing.T) {
	b := NewBarrier(1)
	for i := 0; i < 3; i++ {
		if err := b.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := b.Generation(), uint64(3); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBarrierCancel(t *testing.T) {
	b := NewBarrier(2)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if got, want := b.Wait(ctx), context.DeadlineExceeded; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	// The canceled arrival was withdrawn: a full set of parties is
	// still required for release.
	donec := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { donec <- b.Wait(context.Background()) }()
	}
	for i := 0; i < 2; i++ {
		if err := <-donec; err != nil {
			t.Fatal(err)
		}
	}
	if got, want := b.Generation(), uint64(1); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSlot(t *testing.T) {
	var (
		s  Slot[int]
		wg sync.WaitGroup
	)
	const N = 20
	wg.Add(N)
	for i := 0; i < N; i++ {
		go func() {
			defer wg.Done()
			v, err := s.Get(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			if got, want := v, 42; got != want {
				t.Errorf("got %v, want %v", got, want)
			}
		}()
	}
	s.Put(42)
	wg.Wait()
	v, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v, 42; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSlotCancel(t *testing.T) {
	var s Slot[string]
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Get(ctx); err != context.Canceled {
		t.Errorf("got %v, want %v", err, context.Canceled)
	}
}
