package domain

import (
	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
)

// Status tracks a live instance through its lifecycle.
type Status int

const (
	// StatusUnspecified represents an invalid status value.
	StatusUnspecified Status = iota
	// StatusActive marks an instance advancing each scheduler turn.
	StatusActive
	// StatusResolved marks an instance that reached its duration and
	// selected an outcome.
	StatusResolved
	// StatusAborted marks an instance ended before resolution.
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusResolved:
		return "resolved"
	case StatusAborted:
		return "aborted"
	default:
		return "unspecified"
	}
}

// Instance is one live run of an encounter. Created on trigger, removed
// from the active set on completion, retained afterward only in history.
type Instance struct {
	ID          string
	EncounterID string
	Status      Status

	TriggeredTurn uint64
	Elapsed       int

	// Participants are processed in slice order under sequential mode.
	Participants []string

	// Base is the generated interaction whose branches mirror the
	// definition's outcomes.
	Base simdomain.Interaction

	// Actions accumulates per-turn participant results.
	Actions []simdomain.EntityAction

	// Outcome is the label of the resolved outcome; empty until resolved.
	Outcome string
}

// Clone deep-copies the instance.
func (i Instance) Clone() Instance {
	out := i
	out.Participants = append([]string(nil), i.Participants...)
	out.Actions = append([]simdomain.EntityAction(nil), i.Actions...)
	return out
}

// Advance increments the instance turn counter and reports whether the
// instance has reached the given duration and is due for resolution.
func (i *Instance) Advance(duration int) bool {
	i.Elapsed++
	return i.Elapsed >= duration
}

// Resolve marks the instance resolved with the selected outcome label.
func (i *Instance) Resolve(outcome string) {
	i.Status = StatusResolved
	i.Outcome = outcome
}

// Abort force-ends the instance before its duration elapses.
func (i *Instance) Abort() {
	i.Status = StatusAborted
}
