package scheduler

import (
	"errors"
	"fmt"

	conflictdomain "github.com/louisbranch/chronicle-engine/internal/conflict/domain"
)

// EventKind discriminates the complex event variants the scheduler can
// dispatch during a turn.
type EventKind int

const (
	// EventKindUnspecified represents an invalid event kind value.
	EventKindUnspecified EventKind = iota
	// EventKindWar declares a new war through the conflict engine.
	EventKindWar
	// EventKindTrade applies a shock to the world resource pool.
	EventKindTrade
	// EventKindPolitical cues a political encounter.
	EventKindPolitical
	// EventKindDiplomatic cues a diplomatic encounter.
	EventKindDiplomatic
)

func (k EventKind) String() string {
	switch k {
	case EventKindWar:
		return "war"
	case EventKindTrade:
		return "trade"
	case EventKindPolitical:
		return "political"
	case EventKindDiplomatic:
		return "diplomatic"
	default:
		return "unspecified"
	}
}

// WarDeclaration carries a queued war declaration. The strength values
// seed momentum recomputation on subsequent war updates.
type WarDeclaration struct {
	Attackers []string
	Defenders []string
	Cause     string
	Goals     []conflictdomain.Goal

	AttackerStrength float64
	DefenderStrength float64
}

// TradeShock carries a queued resource shock. Delta is the raw impact
// before consciousness scaling.
type TradeShock struct {
	Resource string
	Delta    float64
}

// EncounterCue carries a queued encounter trigger request.
type EncounterCue struct {
	EncounterID  string
	NodeID       string
	Participants []string
}

// ComplexEvent is a tagged union over the queued event variants. Exactly
// one payload pointer matches Kind.
type ComplexEvent struct {
	Kind EventKind

	War       *WarDeclaration
	Trade     *TradeShock
	Encounter *EncounterCue
}

var (
	// ErrQueueFull indicates the pending event queue is at capacity.
	ErrQueueFull = errors.New("event queue is full")
	// ErrMalformedEvent indicates a complex event whose payload does not
	// match its kind.
	ErrMalformedEvent = errors.New("event payload does not match kind")
)

func (e ComplexEvent) validate() error {
	switch e.Kind {
	case EventKindWar:
		if e.War == nil {
			return fmt.Errorf("war event: %w", ErrMalformedEvent)
		}
	case EventKindTrade:
		if e.Trade == nil {
			return fmt.Errorf("trade event: %w", ErrMalformedEvent)
		}
	case EventKindPolitical, EventKindDiplomatic:
		if e.Encounter == nil {
			return fmt.Errorf("%s event: %w", e.Kind, ErrMalformedEvent)
		}
	default:
		return fmt.Errorf("kind %d: %w", e.Kind, ErrMalformedEvent)
	}
	return nil
}
