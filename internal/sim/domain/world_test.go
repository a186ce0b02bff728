package domain

import (
	"errors"
	"strings"
	"testing"
)

func testWorld() WorldState {
	return WorldState{
		Time: 5,
		Nodes: []Node{
			{ID: "node-1", Name: "Riverhold", Kind: NodeKindSettlement, Population: 1200, Terrain: "plains"},
			{ID: "node-2", Name: "Deepwood", Kind: NodeKindWilderness, Terrain: "forest"},
		},
		Entities: []Entity{
			{ID: "ent-1", Attributes: map[string]int{AttrStrength: 12}, Energy: 90, Health: 100, Mood: 60, Coherence: 4, Frequency: 8},
			{ID: "ent-2", Attributes: map[string]int{}, Energy: 70, Health: 80, Mood: 40, Coherence: 6, Frequency: 12},
		},
		Resources: map[string]float64{"grain": 100, "iron": 25},
	}
}

func TestWorldClone_Independent(t *testing.T) {
	original := testWorld()
	clone := original.Clone()

	clone.Time++
	clone.Entities[0].Energy = 10
	clone.Entities[0].Attributes[AttrStrength] = 3
	clone.Resources["grain"] = 0
	clone.Nodes[0].Population = 0

	if original.Time != 5 {
		t.Errorf("Time mutated through clone: %d", original.Time)
	}
	if original.Entities[0].Energy != 90 {
		t.Errorf("Entity vital mutated through clone: %f", original.Entities[0].Energy)
	}
	if original.Entities[0].Attributes[AttrStrength] != 12 {
		t.Errorf("Entity attribute mutated through clone: %d", original.Entities[0].Attributes[AttrStrength])
	}
	if original.Resources["grain"] != 100 {
		t.Errorf("Resource mutated through clone: %f", original.Resources["grain"])
	}
	if original.Nodes[0].Population != 1200 {
		t.Errorf("Node mutated through clone: %d", original.Nodes[0].Population)
	}
}

func TestWorldValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(w *WorldState)
		wantErr error
	}{
		{"valid", func(w *WorldState) {}, nil},
		{"nil nodes", func(w *WorldState) { w.Nodes = nil }, ErrMissingCollections},
		{"nil entities", func(w *WorldState) { w.Entities = nil }, ErrMissingCollections},
		{"nil resources", func(w *WorldState) { w.Resources = nil }, ErrMissingResources},
		{"empty node id", func(w *WorldState) { w.Nodes[0].ID = "" }, ErrEmptyNodeID},
		{"entity out of bounds", func(w *WorldState) { w.Entities[1].Health = 150 }, ErrVitalOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			world := testWorld().Clone()
			tt.mutate(&world)
			err := world.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWorldValidate_Duplicates(t *testing.T) {
	world := testWorld()
	world.Entities[1].ID = "ent-1"
	err := world.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate entity id") {
		t.Errorf("Validate() error = %v, want duplicate entity id", err)
	}

	world = testWorld()
	world.Nodes[1].ID = "node-1"
	err = world.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate node id") {
		t.Errorf("Validate() error = %v, want duplicate node id", err)
	}
}

func TestMeanCoherence(t *testing.T) {
	world := testWorld()
	if got := world.MeanCoherence(); got != 5 {
		t.Errorf("MeanCoherence() = %f, want 5", got)
	}

	empty := NewWorldState()
	if got := empty.MeanCoherence(); got != 0 {
		t.Errorf("MeanCoherence() on empty world = %f, want 0", got)
	}
}

func TestWorldEntityLookup(t *testing.T) {
	world := testWorld()

	if entity := world.Entity("ent-2"); entity == nil || entity.ID != "ent-2" {
		t.Errorf("Entity(ent-2) = %v", entity)
	}
	if entity := world.Entity("missing"); entity != nil {
		t.Errorf("Entity(missing) = %v, want nil", entity)
	}

	if node, ok := world.Node("node-1"); !ok || node.Name != "Riverhold" {
		t.Errorf("Node(node-1) = %v, %v", node, ok)
	}
	if _, ok := world.Node("missing"); ok {
		t.Error("Node(missing) reported found")
	}
}
