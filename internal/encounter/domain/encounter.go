// Package domain defines authored encounter definitions, their trigger and
// prerequisite gates, and live encounter instances.
package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
)

var (
	// ErrEmptyEncounterID indicates a missing encounter identifier.
	ErrEmptyEncounterID = errors.New("encounter id is required")
	// ErrNoOutcomes indicates an encounter without declared outcomes.
	ErrNoOutcomes = errors.New("encounter requires at least one outcome")
	// ErrInvalidDuration indicates a non-positive encounter duration.
	ErrInvalidDuration = errors.New("encounter duration must be positive")
	// ErrInvalidTrigger indicates a trigger with an unknown kind.
	ErrInvalidTrigger = errors.New("trigger kind is invalid")
	// ErrInvalidPrerequisite indicates a prerequisite with an unknown kind.
	ErrInvalidPrerequisite = errors.New("prerequisite kind is invalid")
)

// TriggerKind discriminates the trigger variants.
type TriggerKind int

const (
	// TriggerUnspecified represents an invalid trigger kind value.
	TriggerUnspecified TriggerKind = iota
	// TriggerTime fires once the world clock reaches a turn.
	TriggerTime
	// TriggerLocation fires when the evaluation context is at a node.
	TriggerLocation
	// TriggerLastInteraction fires when the context entity's previous
	// interaction matches a type tag.
	TriggerLastInteraction
	// TriggerScripted delegates to an authored Lua expression.
	TriggerScripted
	// TriggerProbability fires on an independent per-evaluation draw.
	TriggerProbability
)

// Trigger is one authored firing condition. Exactly one variant applies,
// discriminated by Kind.
type Trigger struct {
	Kind            TriggerKind
	Turn            uint64
	NodeID          string
	InteractionType string
	Script          string
	Chance          float64
}

// PrerequisiteKind discriminates the prerequisite variants.
type PrerequisiteKind int

const (
	// PrereqUnspecified represents an invalid prerequisite kind value.
	PrereqUnspecified PrerequisiteKind = iota
	// PrereqAttribute requires a named entity attribute at or above a
	// minimum.
	PrereqAttribute
	// PrereqSkill requires a named skill rank at or above a minimum.
	PrereqSkill
	// PrereqLevel requires a participant level at or above a minimum.
	PrereqLevel
	// PrereqQuest requires a completed quest flag.
	PrereqQuest
	// PrereqItem requires an item held in at least a minimum quantity.
	PrereqItem
)

// Prerequisite gates an encounter on participant progression state.
type Prerequisite struct {
	Kind      PrerequisiteKind
	Attribute string
	Skill     string
	Quest     string
	Item      string
	Min       int
}

// Mode selects how participants of a live instance are processed each turn.
type Mode int

const (
	// ModeUnspecified represents an invalid sequencing mode value.
	ModeUnspecified Mode = iota
	// ModeSequential processes participants in strict collection order,
	// one action each before the next participant is considered.
	ModeSequential
	// ModeSimultaneous computes all participant actions independently
	// within the same turn, with no ordering guarantee.
	ModeSimultaneous
)

func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeSimultaneous:
		return "simultaneous"
	default:
		return "unspecified"
	}
}

// Outcome is one possible resolution of an encounter, selected by weighted
// draw among outcomes whose condition holds at resolution time.
type Outcome struct {
	Label     string
	Weight    float64
	Condition *simdomain.Condition // nil means always eligible
	Effects   []simdomain.Effect
}

// Encounter is an authored encounter definition. The lifecycle mutates only
// LastTriggered and TimesTriggered.
type Encounter struct {
	ID            string
	Name          string
	Triggers      []Trigger
	Duration      int
	Sequencing    Mode
	Outcomes      []Outcome
	Prerequisites []Prerequisite
	Cooldown      uint64

	// NodeRestriction limits where the encounter may fire. Empty means
	// anywhere.
	NodeRestriction []string

	// LastTriggered is the turn the encounter last fired; zero means
	// never. Turn numbering starts at one, so the zero value is
	// unambiguous.
	LastTriggered  uint64
	TimesTriggered int
}

// TriggerContext carries everything trigger and prerequisite evaluation can
// consult: the world clock, the evaluating entity's position and state, the
// resource pool, participant progression, a script host, and a random
// source for probability draws.
type TriggerContext struct {
	Turn      uint64
	NodeID    string
	Entity    *simdomain.Entity
	Resources map[string]float64
	Scripts   simdomain.ScriptHost
	Rng       *rand.Rand

	Skills map[string]int
	Level  int
	Quests map[string]bool
	Items  map[string]int
}

// conditionEnv projects the trigger context into a condition environment
// for scripted evaluation.
func (ctx TriggerContext) conditionEnv() simdomain.ConditionEnv {
	return simdomain.ConditionEnv{
		Turn:      ctx.Turn,
		Entity:    ctx.Entity,
		Resources: ctx.Resources,
		Scripts:   ctx.Scripts,
	}
}

// CanTrigger reports whether the encounter may fire in the given context.
// Gates evaluate in a fixed order: cooldown, node restriction, all
// prerequisites, then at least one declared trigger. An encounter with no
// declared triggers is eligible whenever the earlier gates pass.
func (e Encounter) CanTrigger(ctx TriggerContext) (bool, error) {
	if e.LastTriggered != 0 && ctx.Turn-e.LastTriggered < e.Cooldown {
		return false, nil
	}

	if len(e.NodeRestriction) > 0 {
		allowed := false
		for _, node := range e.NodeRestriction {
			if node == ctx.NodeID {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, nil
		}
	}

	for _, prereq := range e.Prerequisites {
		ok, err := prereq.holds(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	if len(e.Triggers) == 0 {
		return true, nil
	}
	for _, trigger := range e.Triggers {
		ok, err := trigger.satisfied(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (t Trigger) satisfied(ctx TriggerContext) (bool, error) {
	switch t.Kind {
	case TriggerTime:
		return ctx.Turn >= t.Turn, nil
	case TriggerLocation:
		return ctx.NodeID == t.NodeID, nil
	case TriggerLastInteraction:
		if ctx.Entity == nil {
			return false, nil
		}
		return ctx.Entity.LastInteraction == t.InteractionType, nil
	case TriggerScripted:
		if ctx.Scripts == nil {
			return false, simdomain.ErrScriptsUnavailable
		}
		return ctx.Scripts.EvalCondition(t.Script, ctx.conditionEnv())
	case TriggerProbability:
		if ctx.Rng == nil {
			return false, nil
		}
		return ctx.Rng.Float64() < t.Chance, nil
	default:
		return false, fmt.Errorf("kind %d: %w", t.Kind, ErrInvalidTrigger)
	}
}

func (p Prerequisite) holds(ctx TriggerContext) (bool, error) {
	switch p.Kind {
	case PrereqAttribute:
		if ctx.Entity == nil {
			return false, nil
		}
		return ctx.Entity.Attribute(p.Attribute) >= p.Min, nil
	case PrereqSkill:
		return ctx.Skills[p.Skill] >= p.Min, nil
	case PrereqLevel:
		return ctx.Level >= p.Min, nil
	case PrereqQuest:
		return ctx.Quests[p.Quest], nil
	case PrereqItem:
		min := p.Min
		if min == 0 {
			min = 1
		}
		return ctx.Items[p.Item] >= min, nil
	default:
		return false, fmt.Errorf("kind %d: %w", p.Kind, ErrInvalidPrerequisite)
	}
}

// MarkTriggered stamps the definition for cooldown accounting.
func (e *Encounter) MarkTriggered(turn uint64) {
	e.LastTriggered = turn
	e.TimesTriggered++
}

// BaseInteraction generates the instance's constituent interaction: one
// interaction whose branches mirror the declared outcomes.
func (e Encounter) BaseInteraction(instanceID string) simdomain.Interaction {
	branches := make([]simdomain.Branch, len(e.Outcomes))
	for i, outcome := range e.Outcomes {
		branches[i] = simdomain.Branch{
			Label:     outcome.Label,
			Weight:    outcome.Weight,
			Condition: outcome.Condition,
			Effects:   outcome.Effects,
		}
	}
	return simdomain.Interaction{
		ID:         instanceID + "/base",
		Type:       "encounter:" + e.ID,
		Branches:   branches,
		Repeatable: true,
	}
}

// Validate checks the definition's authored shape at registration time.
func (e Encounter) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyEncounterID
	}
	if len(e.Outcomes) == 0 {
		return fmt.Errorf("encounter %s: %w", e.ID, ErrNoOutcomes)
	}
	if e.Duration <= 0 {
		return fmt.Errorf("encounter %s: %w", e.ID, ErrInvalidDuration)
	}
	for _, outcome := range e.Outcomes {
		if outcome.Weight < 0 {
			return fmt.Errorf("encounter %s outcome %q has negative weight", e.ID, outcome.Label)
		}
	}
	for _, trigger := range e.Triggers {
		if trigger.Kind == TriggerUnspecified {
			return fmt.Errorf("encounter %s: %w", e.ID, ErrInvalidTrigger)
		}
	}
	for _, prereq := range e.Prerequisites {
		if prereq.Kind == PrereqUnspecified {
			return fmt.Errorf("encounter %s: %w", e.ID, ErrInvalidPrerequisite)
		}
	}
	return nil
}
