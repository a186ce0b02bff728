package domain

import (
	"errors"
	"fmt"
	"math"
)

// Phase is the lifecycle state of a war.
type Phase int

const (
	// PhaseUnspecified represents an invalid phase value.
	PhaseUnspecified Phase = iota
	// PhaseDeclared indicates a declared war with no hostilities yet.
	PhaseDeclared
	// PhaseActive indicates ongoing hostilities.
	PhaseActive
	// PhaseResolution indicates a war whose end condition has been met
	// and whose consequences are being applied.
	PhaseResolution
	// PhaseConcluded indicates an archived, finished war.
	PhaseConcluded
)

func (p Phase) String() string {
	switch p {
	case PhaseDeclared:
		return "declared"
	case PhaseActive:
		return "active"
	case PhaseResolution:
		return "resolution"
	case PhaseConcluded:
		return "concluded"
	default:
		return "unspecified"
	}
}

// Victor identifies the winning side of a concluded war or battle.
type Victor int

const (
	// VictorUnspecified represents an undecided outcome.
	VictorUnspecified Victor = iota
	// VictorAttackers indicates the attacking side won.
	VictorAttackers
	// VictorDefenders indicates the defending side won.
	VictorDefenders
	// VictorStalemate indicates neither side won.
	VictorStalemate
)

func (v Victor) String() string {
	switch v {
	case VictorAttackers:
		return "attackers"
	case VictorDefenders:
		return "defenders"
	case VictorStalemate:
		return "stalemate"
	default:
		return "unspecified"
	}
}

// GoalKind discriminates war goal variants.
type GoalKind int

const (
	// GoalUnspecified represents an invalid goal kind value.
	GoalUnspecified GoalKind = iota
	// GoalTerritory is control of a target node.
	GoalTerritory
	// GoalResource is accumulation of a resource quantity.
	GoalResource
	// GoalPolitical is a diplomatic objective.
	GoalPolitical
)

// Goal is one war objective. Each goal is independently evaluable; the
// engine updates Satisfied from world state each tick.
type Goal struct {
	Kind       GoalKind
	TargetNode string
	Resource   string
	Amount     float64
	Objective  string
	Satisfied  bool
}

var (
	// ErrEmptyBelligerents indicates a war declaration with an empty
	// side.
	ErrEmptyBelligerents = errors.New("both sides require at least one faction")
	// ErrOverlappingSides indicates a faction appearing on both sides.
	ErrOverlappingSides = errors.New("attacker and defender sets must be disjoint")
	// ErrInvalidPhase indicates a transition from the wrong phase.
	ErrInvalidPhase = errors.New("invalid war phase for transition")
)

// War tracks one conflict between two sets of factions.
//
// Exhaustion accumulates unclamped so the termination condition (raw value
// beyond the limit) stays reachable; ExhaustionClamped is the bounded view
// consumed by reporting and consequence math.
type War struct {
	ID        string
	Attackers []string
	Defenders []string
	Cause     string
	Goals     []Goal
	Phase     Phase

	Momentum           float64
	AttackerExhaustion float64
	DefenderExhaustion float64
	AttackerCasualties int
	DefenderCasualties int

	DeclaredTurn  uint64
	ConcludedTurn uint64
}

// DeclareWar validates the belligerent sets and creates a war in the
// declared phase with neutral momentum and no exhaustion.
func DeclareWar(id string, attackers, defenders []string, cause string, goals []Goal, turn uint64) (War, error) {
	if len(attackers) == 0 || len(defenders) == 0 {
		return War{}, ErrEmptyBelligerents
	}
	attackerSet := make(map[string]struct{}, len(attackers))
	for _, faction := range attackers {
		attackerSet[faction] = struct{}{}
	}
	for _, faction := range defenders {
		if _, overlap := attackerSet[faction]; overlap {
			return War{}, fmt.Errorf("faction %s: %w", faction, ErrOverlappingSides)
		}
	}

	return War{
		ID:           id,
		Attackers:    attackers,
		Defenders:    defenders,
		Cause:        cause,
		Goals:        goals,
		Phase:        PhaseDeclared,
		DeclaredTurn: turn,
	}, nil
}

// Activate moves a declared war into active hostilities.
func (w *War) Activate() error {
	if w.Phase != PhaseDeclared {
		return fmt.Errorf("%s: %w", w.Phase, ErrInvalidPhase)
	}
	w.Phase = PhaseActive
	return nil
}

// BeginResolution moves an active war into the resolution phase.
func (w *War) BeginResolution() error {
	if w.Phase != PhaseActive {
		return fmt.Errorf("%s: %w", w.Phase, ErrInvalidPhase)
	}
	w.Phase = PhaseResolution
	return nil
}

// Conclude archives a war in resolution.
func (w *War) Conclude(turn uint64) error {
	if w.Phase != PhaseResolution {
		return fmt.Errorf("%s: %w", w.Phase, ErrInvalidPhase)
	}
	w.Phase = PhaseConcluded
	w.ConcludedTurn = turn
	return nil
}

// AccumulateExhaustion advances both sides' war fatigue for one tick.
func (w *War) AccumulateExhaustion(cfg Config) {
	w.AttackerExhaustion += cfg.ExhaustionBase + float64(w.AttackerCasualties)*cfg.ExhaustionPerCasualty
	w.DefenderExhaustion += cfg.ExhaustionBase + float64(w.DefenderCasualties)*cfg.ExhaustionPerCasualty
}

// RecomputeMomentum derives momentum from the current strength ratio,
// clamped to [-100, 100]. A defender strength of zero pins momentum at the
// positive clamp.
func (w *War) RecomputeMomentum(attackerStrength, defenderStrength float64) {
	if defenderStrength <= 0 {
		w.Momentum = 100
		return
	}
	w.Momentum = clamp((attackerStrength/defenderStrength-1)*50, -100, 100)
}

// ExhaustionClamped returns the bounded exhaustion view for a side.
func ExhaustionClamped(raw float64) float64 {
	return clamp(raw, 0, 100)
}

// AllGoalsSatisfied reports whether every declared goal is satisfied.
// A war with no goals never satisfies this condition.
func (w War) AllGoalsSatisfied() bool {
	if len(w.Goals) == 0 {
		return false
	}
	for _, goal := range w.Goals {
		if !goal.Satisfied {
			return false
		}
	}
	return true
}

// ShouldEnd reports whether any single termination condition is met:
// either side's exhaustion beyond the limit, momentum beyond the limit in
// either direction, or all goals satisfied.
func (w War) ShouldEnd(cfg Config) bool {
	if w.AttackerExhaustion > cfg.ExhaustionLimit || w.DefenderExhaustion > cfg.ExhaustionLimit {
		return true
	}
	if math.Abs(w.Momentum) > cfg.MomentumLimit {
		return true
	}
	return w.AllGoalsSatisfied()
}

// DecideVictor applies the momentum rule for a concluding war.
func (w War) DecideVictor(cfg Config) Victor {
	if w.Momentum > cfg.VictoryMomentum {
		return VictorAttackers
	}
	if w.Momentum < -cfg.VictoryMomentum {
		return VictorDefenders
	}
	return VictorStalemate
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
