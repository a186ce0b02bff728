package simd

import (
	"encoding/json"
	"fmt"
	"os"

	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
)

// worldFile is the authored world configuration consumed at startup. It is
// validated by the scheduler at initialization, never at tick time.
type worldFile struct {
	Nodes        []nodeFile             `json:"nodes"`
	Entities     []entityFile           `json:"entities"`
	Resources    map[string]float64     `json:"resources"`
	Interactions []interactionFile      `json:"interactions"`
}

type nodeFile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Population int    `json:"population"`
	Terrain    string `json:"terrain"`
}

type entityFile struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Attributes map[string]int `json:"attributes"`
	Energy     float64        `json:"energy"`
	Health     float64        `json:"health"`
	Mood       float64        `json:"mood"`
	Frequency  float64        `json:"frequency"`
	Coherence  float64        `json:"coherence"`
}

type interactionFile struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Difficulty   int             `json:"difficulty"`
	Cooldown     uint64          `json:"cooldown"`
	Repeatable   bool            `json:"repeatable"`
	Requirements []conditionFile `json:"requirements"`
	Branches     []branchFile    `json:"branches"`
}

type branchFile struct {
	Label     string         `json:"label"`
	Weight    float64        `json:"weight"`
	Condition *conditionFile `json:"condition"`
	Effects   []effectFile   `json:"effects"`
}

type conditionFile struct {
	Kind            string  `json:"kind"`
	Attribute       string  `json:"attribute"`
	Vital           string  `json:"vital"`
	Resource        string  `json:"resource"`
	Threshold       float64 `json:"threshold"`
	InteractionType string  `json:"interaction_type"`
	Script          string  `json:"script"`
}

type effectFile struct {
	Kind      string  `json:"kind"`
	Vital     string  `json:"vital"`
	Attribute string  `json:"attribute"`
	Resource  string  `json:"resource"`
	Delta     float64 `json:"delta"`
}

// LoadWorldFile reads and converts an authored world configuration.
func LoadWorldFile(path string) (simdomain.WorldState, []simdomain.Interaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return simdomain.WorldState{}, nil, fmt.Errorf("read world file: %w", err)
	}
	return parseWorldFile(data)
}

func parseWorldFile(data []byte) (simdomain.WorldState, []simdomain.Interaction, error) {
	var file worldFile
	if err := json.Unmarshal(data, &file); err != nil {
		return simdomain.WorldState{}, nil, fmt.Errorf("parse world file: %w", err)
	}

	world := simdomain.NewWorldState()
	for _, node := range file.Nodes {
		kind, err := parseNodeKind(node.Kind)
		if err != nil {
			return simdomain.WorldState{}, nil, fmt.Errorf("node %s: %w", node.ID, err)
		}
		world.Nodes = append(world.Nodes, simdomain.Node{
			ID:         node.ID,
			Name:       node.Name,
			Kind:       kind,
			Population: node.Population,
			Terrain:    node.Terrain,
		})
	}
	for _, entity := range file.Entities {
		attributes := entity.Attributes
		if attributes == nil {
			attributes = map[string]int{}
		}
		world.Entities = append(world.Entities, simdomain.Entity{
			ID:         entity.ID,
			Name:       entity.Name,
			Attributes: attributes,
			Energy:     entity.Energy,
			Health:     entity.Health,
			Mood:       entity.Mood,
			Frequency:  entity.Frequency,
			Coherence:  entity.Coherence,
		})
	}
	for name, quantity := range file.Resources {
		world.Resources[name] = quantity
	}

	var interactions []simdomain.Interaction
	for _, entry := range file.Interactions {
		interaction := simdomain.Interaction{
			ID:         entry.ID,
			Type:       entry.Type,
			Difficulty: entry.Difficulty,
			Cooldown:   entry.Cooldown,
			Repeatable: entry.Repeatable,
		}
		for _, req := range entry.Requirements {
			condition, err := parseCondition(req)
			if err != nil {
				return simdomain.WorldState{}, nil, fmt.Errorf("interaction %s: %w", entry.ID, err)
			}
			interaction.Requirements = append(interaction.Requirements, condition)
		}
		for _, branch := range entry.Branches {
			parsed := simdomain.Branch{Label: branch.Label, Weight: branch.Weight}
			if branch.Condition != nil {
				condition, err := parseCondition(*branch.Condition)
				if err != nil {
					return simdomain.WorldState{}, nil, fmt.Errorf("interaction %s branch %q: %w", entry.ID, branch.Label, err)
				}
				parsed.Condition = &condition
			}
			for _, effect := range branch.Effects {
				converted, err := parseEffect(effect)
				if err != nil {
					return simdomain.WorldState{}, nil, fmt.Errorf("interaction %s branch %q: %w", entry.ID, branch.Label, err)
				}
				parsed.Effects = append(parsed.Effects, converted)
			}
			interaction.Branches = append(interaction.Branches, parsed)
		}
		interactions = append(interactions, interaction)
	}

	return world, interactions, nil
}

func parseNodeKind(kind string) (simdomain.NodeKind, error) {
	switch kind {
	case "settlement":
		return simdomain.NodeKindSettlement, nil
	case "wilderness":
		return simdomain.NodeKindWilderness, nil
	case "landmark":
		return simdomain.NodeKindLandmark, nil
	default:
		return simdomain.NodeKindUnspecified, fmt.Errorf("unknown node kind %q", kind)
	}
}

func parseCondition(file conditionFile) (simdomain.Condition, error) {
	condition := simdomain.Condition{
		Attribute:       file.Attribute,
		Vital:           file.Vital,
		Resource:        file.Resource,
		Threshold:       file.Threshold,
		InteractionType: file.InteractionType,
		Script:          file.Script,
	}
	switch file.Kind {
	case "attribute_min":
		condition.Kind = simdomain.ConditionAttributeMin
	case "vital_min":
		condition.Kind = simdomain.ConditionVitalMin
	case "resource_min":
		condition.Kind = simdomain.ConditionResourceMin
	case "last_interaction":
		condition.Kind = simdomain.ConditionLastInteraction
	case "scripted":
		condition.Kind = simdomain.ConditionScripted
	default:
		return simdomain.Condition{}, fmt.Errorf("unknown condition kind %q", file.Kind)
	}
	return condition, nil
}

func parseEffect(file effectFile) (simdomain.Effect, error) {
	effect := simdomain.Effect{
		Vital:     file.Vital,
		Attribute: file.Attribute,
		Resource:  file.Resource,
		Delta:     file.Delta,
	}
	switch file.Kind {
	case "vital":
		effect.Kind = simdomain.EffectVital
	case "attribute":
		effect.Kind = simdomain.EffectAttribute
	case "resource":
		effect.Kind = simdomain.EffectResource
	case "frequency":
		effect.Kind = simdomain.EffectFrequency
	default:
		return simdomain.Effect{}, fmt.Errorf("unknown effect kind %q", file.Kind)
	}
	return effect, nil
}
