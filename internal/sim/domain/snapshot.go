package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSnapshot indicates persisted world data that fails shape
// validation. Callers treat it as "no saved state", never as a hard
// failure.
var ErrInvalidSnapshot = errors.New("snapshot failed validation")

// persistedWorld is the explicit serialization contract for WorldState.
// Every field is revalidated on the way back in; persisted data is
// rejected-and-defaulted rather than trusted.
type persistedWorld struct {
	Time      int64              `json:"time"`
	Nodes     []persistedNode    `json:"nodes"`
	Entities  []persistedEntity  `json:"entities"`
	Resources map[string]float64 `json:"resources"`
	TickDelay int64              `json:"tick_delay_ms"`
}

type persistedNode struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       int    `json:"kind"`
	Population int    `json:"population"`
	Terrain    string `json:"terrain"`
}

type persistedEntity struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Attributes      map[string]int `json:"attributes"`
	Energy          float64        `json:"energy"`
	Health          float64        `json:"health"`
	Mood            float64        `json:"mood"`
	LastInteraction string         `json:"last_interaction"`
	Frequency       float64        `json:"frequency"`
	Coherence       float64        `json:"coherence"`
}

// MarshalSnapshot serializes a world state for persistence.
func MarshalSnapshot(world WorldState) ([]byte, error) {
	out := persistedWorld{
		Time:      int64(world.Time),
		Nodes:     make([]persistedNode, 0, len(world.Nodes)),
		Entities:  make([]persistedEntity, 0, len(world.Entities)),
		Resources: world.Resources,
		TickDelay: world.TickDelay.Milliseconds(),
	}
	for _, node := range world.Nodes {
		out.Nodes = append(out.Nodes, persistedNode{
			ID:         node.ID,
			Name:       node.Name,
			Kind:       int(node.Kind),
			Population: node.Population,
			Terrain:    node.Terrain,
		})
	}
	for _, entity := range world.Entities {
		out.Entities = append(out.Entities, persistedEntity{
			ID:              entity.ID,
			Name:            entity.Name,
			Attributes:      entity.Attributes,
			Energy:          entity.Energy,
			Health:          entity.Health,
			Mood:            entity.Mood,
			LastInteraction: entity.LastInteraction,
			Frequency:       entity.Frequency,
			Coherence:       entity.Coherence,
		})
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return payload, nil
}

// UnmarshalSnapshot deserializes and validates a persisted world state.
// Malformed payloads, a negative time counter, or missing collections all
// return ErrInvalidSnapshot.
func UnmarshalSnapshot(payload []byte) (WorldState, error) {
	var in persistedWorld
	if err := json.Unmarshal(payload, &in); err != nil {
		return WorldState{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	if in.Time < 0 {
		return WorldState{}, fmt.Errorf("%w: negative time %d", ErrInvalidSnapshot, in.Time)
	}
	if in.Nodes == nil || in.Entities == nil {
		return WorldState{}, fmt.Errorf("%w: missing collections", ErrInvalidSnapshot)
	}
	if in.Resources == nil {
		return WorldState{}, fmt.Errorf("%w: missing resources", ErrInvalidSnapshot)
	}

	world := WorldState{
		Time:      uint64(in.Time),
		Nodes:     make([]Node, 0, len(in.Nodes)),
		Entities:  make([]Entity, 0, len(in.Entities)),
		Resources: in.Resources,
		TickDelay: time.Duration(in.TickDelay) * time.Millisecond,
	}
	for _, node := range in.Nodes {
		world.Nodes = append(world.Nodes, Node{
			ID:         node.ID,
			Name:       node.Name,
			Kind:       NodeKind(node.Kind),
			Population: node.Population,
			Terrain:    node.Terrain,
		})
	}
	for _, entity := range in.Entities {
		attributes := entity.Attributes
		if attributes == nil {
			attributes = map[string]int{}
		}
		world.Entities = append(world.Entities, Entity{
			ID:              entity.ID,
			Name:            entity.Name,
			Attributes:      attributes,
			Energy:          entity.Energy,
			Health:          entity.Health,
			Mood:            entity.Mood,
			LastInteraction: entity.LastInteraction,
			Frequency:       entity.Frequency,
			Coherence:       entity.Coherence,
		})
	}

	if err := world.Validate(); err != nil {
		return WorldState{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return world, nil
}
