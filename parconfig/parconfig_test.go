// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package parconfig

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
)

func TestWorkers(t *testing.T) {
	for _, c := range []struct {
		n, max, want int
		ok           bool
	}{
		{1, 4, 1, true},
		{4, 4, 4, true},
		{0, 4, 4, false},
		{-3, 4, 4, false},
		{5, 4, 4, false},
	} {
		got, err := Workers(c.n, c.max)
		if got != c.want {
			t.Errorf("Workers(%d, %d): got %v, want %v", c.n, c.max, got, c.want)
		}
		if c.ok {
			assert.NoError(t, err)
		} else if !errors.Is(errors.Invalid, err) {
			t.Errorf("Workers(%d, %d): got %v, want invalid", c.n, c.max, err)
		}
	}
}

func TestValidate(t *testing.T) {
	ok := Config{Participants: 1, Elements: 8000, Repetitions: 1}
	assert.NoError(t, ok.Validate())
	for _, c := range []Config{
		{Participants: 0},
		{Participants: 1, Elements: -1},
		{Participants: 1, Repetitions: -1},
		{Participants: 1, Threads: -1},
	} {
		if err := c.Validate(); !errors.Is(errors.Invalid, err) {
			t.Errorf("%+v: got %v, want invalid", c, err)
		}
	}
}

func TestMaxWorkers(t *testing.T) {
	if MaxWorkers() < 1 {
		t.Errorf("got %v, want >= 1", MaxWorkers())
	}
}
