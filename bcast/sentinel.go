// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bcast

import (
	"fmt"

	"github.com/grailbio/parcheck/group"
)

// A Sentinel is the value broadcast from the coordinator to detect
// whether delivery succeeded. Its integer values are the ones
// reported on the console.
type Sentinel int

const (
	// None is the value of an unset sentinel.
	None Sentinel = 0
	// CoordinatorValue is the value the coordinator broadcasts.
	CoordinatorValue Sentinel = 1
	// PlaceholderValue is a participant's value before delivery.
	PlaceholderValue Sentinel = -1
)

func (s Sentinel) String() string {
	switch s {
	case None:
		return "none"
	case CoordinatorValue:
		return "coordinator"
	case PlaceholderValue:
		return "placeholder"
	default:
		return fmt.Sprintf("sentinel(%d)", int(s))
	}
}

// Role is the part a participant plays in a verification.
type Role int

const (
	// RoleCoordinator is the broadcasting participant in a group with
	// other participants.
	RoleCoordinator Role = iota
	// RoleParticipant is a receiving participant.
	RoleParticipant
	// RoleLone is a coordinator without participants.
	RoleLone
)

func (r Role) String() string {
	switch r {
	case RoleCoordinator:
		return "coordinator"
	case RoleParticipant:
		return "participant"
	case RoleLone:
		return "coordinator without participants"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Result is the judgment passed on a participant's observed value.
type Result int

const (
	// NoJudgment is reported by coordinators, which have nothing to
	// check.
	NoJudgment Result = iota
	// Success indicates that the participant observed the
	// coordinator's value.
	Success
	// Fail indicates that it did not. A failure does not distinguish
	// a broadcast that never arrived from one that arrived corrupted.
	Fail
)

func (r Result) String() string {
	switch r {
	case NoJudgment:
		return ""
	case Success:
		return "SUCCESS"
	case Fail:
		return "FAIL"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// An Outcome is the verification result of a single participant.
type Outcome struct {
	Group  group.Group
	Role   Role
	Value  Sentinel
	Result Result
}

// Classify judges the value v observed by the participant g after
// the broadcast completed.
func Classify(g group.Group, v Sentinel) Outcome {
	o := Outcome{Group: g, Value: v}
	switch {
	case g.Size == 1:
		o.Role = RoleLone
	case g.IsCoordinator():
		o.Role = RoleCoordinator
	default:
		o.Role = RoleParticipant
		if v == CoordinatorValue {
			o.Result = Success
		} else {
			o.Result = Fail
		}
	}
	return o
}
