package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NodeKind classifies a world node.
type NodeKind int

const (
	// NodeKindUnspecified represents an invalid node kind value.
	NodeKindUnspecified NodeKind = iota
	// NodeKindSettlement is a population center.
	NodeKindSettlement
	// NodeKindWilderness is unsettled terrain.
	NodeKindWilderness
	// NodeKindLandmark is a notable fixed location.
	NodeKindLandmark
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindSettlement:
		return "settlement"
	case NodeKindWilderness:
		return "wilderness"
	case NodeKindLandmark:
		return "landmark"
	default:
		return "unspecified"
	}
}

var (
	// ErrEmptyNodeID indicates a missing node identifier.
	ErrEmptyNodeID = errors.New("node id is required")
	// ErrMissingCollections indicates a world without its node or entity
	// collections.
	ErrMissingCollections = errors.New("world collections are required")
	// ErrMissingResources indicates a world without a resource pool.
	ErrMissingResources = errors.New("world resource pool is required")
)

// Node is a location in the world graph.
type Node struct {
	ID         string
	Name       string
	Kind       NodeKind
	Population int
	Terrain    string
}

// WorldState is the complete simulated world at one point in time. It is
// owned exclusively by the scheduler between commits and handed to callers
// as an immutable snapshot after each successful turn.
type WorldState struct {
	Time      uint64
	Nodes     []Node
	Entities  []Entity
	Resources map[string]float64

	// TickDelay is the advisory pacing value recomputed each turn from
	// mean entity coherence.
	TickDelay time.Duration
}

// NewWorldState creates an empty world with initialized collections.
func NewWorldState() WorldState {
	return WorldState{
		Nodes:     []Node{},
		Entities:  []Entity{},
		Resources: map[string]float64{},
	}
}

// Clone deep-copies the world state. The scheduler mutates only clones;
// the committed state is never touched in place.
func (w WorldState) Clone() WorldState {
	out := w
	out.Nodes = make([]Node, len(w.Nodes))
	copy(out.Nodes, w.Nodes)
	out.Entities = make([]Entity, len(w.Entities))
	for i, entity := range w.Entities {
		out.Entities[i] = entity.Clone()
	}
	out.Resources = make(map[string]float64, len(w.Resources))
	for k, v := range w.Resources {
		out.Resources[k] = v
	}
	return out
}

// Node returns the node with the provided id, or false when absent.
func (w WorldState) Node(id string) (Node, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}

// Entity returns a pointer into the world's entity slice, or nil when
// absent. Callers holding a clone may mutate through the pointer.
func (w *WorldState) Entity(id string) *Entity {
	for i := range w.Entities {
		if w.Entities[i].ID == id {
			return &w.Entities[i]
		}
	}
	return nil
}

// MeanCoherence averages the coherence scalar over all entities. An empty
// world reports zero.
func (w WorldState) MeanCoherence() float64 {
	if len(w.Entities) == 0 {
		return 0
	}
	sum := 0.0
	for _, entity := range w.Entities {
		sum += entity.Coherence
	}
	return sum / float64(len(w.Entities))
}

// MeanFrequency averages the frequency scalar over all entities.
func (w WorldState) MeanFrequency() float64 {
	if len(w.Entities) == 0 {
		return 0
	}
	sum := 0.0
	for _, entity := range w.Entities {
		sum += entity.Frequency
	}
	return sum / float64(len(w.Entities))
}

// Validate checks the structural invariants that must hold on every
// committed state.
func (w WorldState) Validate() error {
	if w.Nodes == nil || w.Entities == nil {
		return ErrMissingCollections
	}
	if w.Resources == nil {
		return ErrMissingResources
	}
	seen := make(map[string]struct{}, len(w.Nodes))
	for _, node := range w.Nodes {
		if strings.TrimSpace(node.ID) == "" {
			return ErrEmptyNodeID
		}
		if _, dup := seen[node.ID]; dup {
			return fmt.Errorf("duplicate node id %s", node.ID)
		}
		seen[node.ID] = struct{}{}
	}
	ids := make(map[string]struct{}, len(w.Entities))
	for _, entity := range w.Entities {
		if err := entity.Validate(); err != nil {
			return err
		}
		if _, dup := ids[entity.ID]; dup {
			return fmt.Errorf("duplicate entity id %s", entity.ID)
		}
		ids[entity.ID] = struct{}{}
	}
	return nil
}
