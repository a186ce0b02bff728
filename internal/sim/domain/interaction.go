package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInteractionID indicates a missing interaction identifier.
	ErrEmptyInteractionID = errors.New("interaction id is required")
	// ErrNoBranches indicates an interaction without resolution branches.
	ErrNoBranches = errors.New("interaction requires at least one branch")
	// ErrInvalidCondition indicates a condition with an unknown kind.
	ErrInvalidCondition = errors.New("condition kind is invalid")
	// ErrScriptsUnavailable indicates a scripted condition with no script
	// host configured.
	ErrScriptsUnavailable = errors.New("no script host configured")
)

// ConditionKind discriminates the condition variants.
type ConditionKind int

const (
	// ConditionUnspecified represents an invalid condition kind value.
	ConditionUnspecified ConditionKind = iota
	// ConditionAttributeMin requires a named attribute at or above a
	// threshold.
	ConditionAttributeMin
	// ConditionVitalMin requires a named vital at or above a threshold.
	ConditionVitalMin
	// ConditionResourceMin requires a world resource at or above a
	// threshold.
	ConditionResourceMin
	// ConditionLastInteraction requires the entity's previous interaction
	// to match a type tag.
	ConditionLastInteraction
	// ConditionScripted delegates to an authored Lua expression.
	ConditionScripted
)

// Condition is an authored predicate over an entity and the world. Exactly
// one variant applies, discriminated by Kind.
type Condition struct {
	Kind            ConditionKind
	Attribute       string
	Vital           string
	Resource        string
	Threshold       float64
	InteractionType string
	Script          string
}

// ScriptHost evaluates authored boolean scripts against a condition
// environment. A nil host fails every scripted condition with
// ErrScriptsUnavailable.
type ScriptHost interface {
	EvalCondition(script string, env ConditionEnv) (bool, error)
}

// ConditionEnv carries the evaluation context for a condition.
type ConditionEnv struct {
	Turn      uint64
	Entity    *Entity
	Resources map[string]float64
	Scripts   ScriptHost
}

// Holds evaluates the condition against env.
func (c Condition) Holds(env ConditionEnv) (bool, error) {
	switch c.Kind {
	case ConditionAttributeMin:
		if env.Entity == nil {
			return false, nil
		}
		return float64(env.Entity.Attribute(c.Attribute)) >= c.Threshold, nil
	case ConditionVitalMin:
		if env.Entity == nil {
			return false, nil
		}
		return env.Entity.vital(c.Vital) >= c.Threshold, nil
	case ConditionResourceMin:
		return env.Resources[c.Resource] >= c.Threshold, nil
	case ConditionLastInteraction:
		if env.Entity == nil {
			return false, nil
		}
		return env.Entity.LastInteraction == c.InteractionType, nil
	case ConditionScripted:
		if env.Scripts == nil {
			return false, ErrScriptsUnavailable
		}
		return env.Scripts.EvalCondition(c.Script, env)
	default:
		return false, fmt.Errorf("kind %d: %w", c.Kind, ErrInvalidCondition)
	}
}

// vital resolves a vital by name for condition evaluation.
func (e Entity) vital(name string) float64 {
	switch name {
	case "energy":
		return e.Energy
	case "health":
		return e.Health
	case "mood":
		return e.Mood
	default:
		return 0
	}
}

// EffectKind discriminates the effect variants.
type EffectKind int

const (
	// EffectUnspecified represents an invalid effect kind value.
	EffectUnspecified EffectKind = iota
	// EffectVital shifts a named vital by Delta, clamped to bounds.
	EffectVital
	// EffectAttribute shifts a named attribute by Delta, clamped to bounds.
	EffectAttribute
	// EffectResource shifts a world resource by Delta, floored at zero.
	EffectResource
	// EffectFrequency shifts the entity's frequency scalar by Delta.
	EffectFrequency
)

// Effect is one state change produced by a resolved branch or outcome.
type Effect struct {
	Kind      EffectKind
	Vital     string
	Attribute string
	Resource  string
	Delta     float64
}

// Apply mutates entity and resources in place. Both may be nil when the
// effect does not touch them.
func (e Effect) Apply(entity *Entity, resources map[string]float64) {
	switch e.Kind {
	case EffectVital:
		if entity == nil {
			return
		}
		switch e.Vital {
		case "energy":
			entity.Energy = ClampVital(entity.Energy + e.Delta)
		case "health":
			entity.Health = ClampVital(entity.Health + e.Delta)
		case "mood":
			entity.Mood = ClampVital(entity.Mood + e.Delta)
		}
	case EffectAttribute:
		if entity == nil {
			return
		}
		entity.Attributes[e.Attribute] = ClampAttribute(entity.Attribute(e.Attribute) + int(e.Delta))
	case EffectResource:
		if resources == nil {
			return
		}
		next := resources[e.Resource] + e.Delta
		if next < 0 {
			next = 0
		}
		resources[e.Resource] = next
	case EffectFrequency:
		if entity == nil {
			return
		}
		entity.Frequency += e.Delta
	}
}

// Branch is one possible resolution of an interaction, selected by weighted
// draw among branches whose condition holds.
type Branch struct {
	Label     string
	Weight    float64
	Condition *Condition // nil means always eligible
	Effects   []Effect
}

// Interaction is an authored unit of entity behavior. The engine consumes
// interactions read-only except for LastUsed, stamped on each use.
type Interaction struct {
	ID           string
	Type         string
	Difficulty   int
	Requirements []Condition
	Branches     []Branch
	Cooldown     uint64
	Repeatable   bool

	// LastUsed is the turn the interaction last fired; zero means never.
	// Turn numbering starts at one, so the zero value is unambiguous.
	LastUsed uint64
}

// Available reports whether the interaction can fire at currentTurn. An
// interaction is available when it is repeatable, has never been used, or
// its cooldown has elapsed since last use.
func (i Interaction) Available(currentTurn uint64) bool {
	if i.Repeatable {
		return true
	}
	if i.LastUsed == 0 {
		return true
	}
	return currentTurn-i.LastUsed >= i.Cooldown
}

// MarkUsed stamps the interaction as used at currentTurn. This is the only
// interaction field the engine mutates.
func (i *Interaction) MarkUsed(currentTurn uint64) {
	i.LastUsed = currentTurn
}

// Validate checks the interaction's authored shape at initialization time.
func (i Interaction) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ErrEmptyInteractionID
	}
	if len(i.Branches) == 0 {
		return fmt.Errorf("interaction %s: %w", i.ID, ErrNoBranches)
	}
	for _, branch := range i.Branches {
		if branch.Weight < 0 {
			return fmt.Errorf("interaction %s branch %q has negative weight", i.ID, branch.Label)
		}
	}
	return nil
}
