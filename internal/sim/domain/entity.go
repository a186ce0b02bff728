package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Attribute and vital bounds enforced after every committed turn.
const (
	AttributeMin = 3
	AttributeMax = 20

	VitalMin = 0.0
	VitalMax = 100.0
)

// Well-known attribute names. Attributes is an open map; these are the keys
// the engine itself consults.
const (
	AttrStrength  = "strength"
	AttrCharisma  = "charisma"
	AttrWisdom    = "wisdom"
	AttrIntellect = "intellect"
)

var (
	// ErrEmptyEntityID indicates a missing entity identifier.
	ErrEmptyEntityID = errors.New("entity id is required")
	// ErrAttributeOutOfRange indicates an attribute outside 3..20.
	ErrAttributeOutOfRange = errors.New("attribute outside allowed range")
	// ErrVitalOutOfRange indicates a vital outside 0..100.
	ErrVitalOutOfRange = errors.New("vital outside allowed range")
)

// Entity is a simulated character. Frequency and Coherence are opaque
// tunable scalars: they only feed pacing and resolution weighting, and the
// engine assigns them no further meaning.
type Entity struct {
	ID              string
	Name            string
	Attributes      map[string]int
	Energy          float64
	Health          float64
	Mood            float64
	LastInteraction string
	Frequency       float64
	Coherence       float64
}

// Clone deep-copies the entity.
func (e Entity) Clone() Entity {
	out := e
	out.Attributes = make(map[string]int, len(e.Attributes))
	for k, v := range e.Attributes {
		out.Attributes[k] = v
	}
	return out
}

// Attribute returns the named attribute, defaulting to 10 when absent.
func (e Entity) Attribute(name string) int {
	if v, ok := e.Attributes[name]; ok {
		return v
	}
	return 10
}

// AttributeModifier derives the additive check modifier for an attribute
// score: (score-10)/2 with floor division, so 9 yields -1 and 10 yields 0.
func AttributeModifier(score int) int {
	diff := score - 10
	if diff < 0 && diff%2 != 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// ClampAttribute bounds an attribute score to 3..20.
func ClampAttribute(score int) int {
	if score < AttributeMin {
		return AttributeMin
	}
	if score > AttributeMax {
		return AttributeMax
	}
	return score
}

// ClampVital bounds a vital score to 0..100.
func ClampVital(value float64) float64 {
	if value < VitalMin {
		return VitalMin
	}
	if value > VitalMax {
		return VitalMax
	}
	return value
}

// Validate checks the entity satisfies the bounded-value invariants.
func (e Entity) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyEntityID
	}
	for name, score := range e.Attributes {
		if score < AttributeMin || score > AttributeMax {
			return fmt.Errorf("entity %s attribute %s = %d: %w", e.ID, name, score, ErrAttributeOutOfRange)
		}
	}
	for _, vital := range []float64{e.Energy, e.Health, e.Mood} {
		if vital < VitalMin || vital > VitalMax {
			return fmt.Errorf("entity %s: %w", e.ID, ErrVitalOutOfRange)
		}
	}
	return nil
}
