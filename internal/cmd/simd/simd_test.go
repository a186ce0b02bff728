package simd

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/louisbranch/chronicle-engine/internal/scheduler"
	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
)

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("simd", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.DBPath != "chronicle.db" {
		t.Errorf("DBPath = %q, want chronicle.db", cfg.DBPath)
	}
	if cfg.Mode != "automatic" {
		t.Errorf("Mode = %q, want automatic", cfg.Mode)
	}
	if cfg.Seed != 0 {
		t.Errorf("Seed = %d, want 0", cfg.Seed)
	}
}

func TestParseConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("CHRONICLE_SIM_ADDR", ":9999")
	t.Setenv("CHRONICLE_SIM_MODE", "manual")

	fs := flag.NewFlagSet("simd", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", ":7000", "-seed", "42"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("Addr = %q, want flag value :7000", cfg.Addr)
	}
	if cfg.Mode != "manual" {
		t.Errorf("Mode = %q, want env value manual", cfg.Mode)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    scheduler.Mode
		wantErr bool
	}{
		{"manual", scheduler.ModeManual, false},
		{"automatic", scheduler.ModeAutomatic, false},
		{"", scheduler.ModeUnspecified, true},
		{"warp", scheduler.ModeUnspecified, true},
	}
	for _, tt := range tests {
		got, err := parseMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseMode(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

const testWorldJSON = `{
  "nodes": [
    {"id": "node-1", "name": "Riverhold", "kind": "settlement", "population": 1200, "terrain": "plains"},
    {"id": "node-2", "name": "Thornwood", "kind": "wilderness", "terrain": "forest"}
  ],
  "entities": [
    {
      "id": "ent-1", "name": "Mara",
      "attributes": {"strength": 12, "wisdom": 14},
      "energy": 80, "health": 100, "mood": 60,
      "frequency": 10, "coherence": 0.5
    }
  ],
  "resources": {"gold": 250, "grain": 40},
  "interactions": [
    {
      "id": "forage", "type": "survival", "difficulty": 10, "repeatable": true,
      "requirements": [
        {"kind": "vital_min", "vital": "energy", "threshold": 20}
      ],
      "branches": [
        {
          "label": "success", "weight": 3,
          "effects": [
            {"kind": "resource", "resource": "grain", "delta": 5},
            {"kind": "vital", "vital": "energy", "delta": -10}
          ]
        },
        {
          "label": "mishap", "weight": 1,
          "condition": {"kind": "attribute_min", "attribute": "strength", "threshold": 8},
          "effects": [
            {"kind": "vital", "vital": "health", "delta": -5}
          ]
        }
      ]
    }
  ]
}`

func writeWorldFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write world file: %v", err)
	}
	return path
}

func TestLoadWorldFile(t *testing.T) {
	world, interactions, err := LoadWorldFile(writeWorldFile(t, testWorldJSON))
	if err != nil {
		t.Fatalf("LoadWorldFile() error = %v", err)
	}

	if err := world.Validate(); err != nil {
		t.Fatalf("loaded world invalid: %v", err)
	}
	if len(world.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(world.Nodes))
	}
	if world.Nodes[0].Kind != simdomain.NodeKindSettlement {
		t.Errorf("node-1 kind = %v, want settlement", world.Nodes[0].Kind)
	}
	if world.Nodes[1].Kind != simdomain.NodeKindWilderness {
		t.Errorf("node-2 kind = %v, want wilderness", world.Nodes[1].Kind)
	}
	if len(world.Entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(world.Entities))
	}
	if got := world.Entities[0].Attribute("wisdom"); got != 14 {
		t.Errorf("wisdom = %d, want 14", got)
	}
	if world.Resources["gold"] != 250 {
		t.Errorf("gold = %v, want 250", world.Resources["gold"])
	}

	if len(interactions) != 1 {
		t.Fatalf("interactions = %d, want 1", len(interactions))
	}
	forage := interactions[0]
	if err := forage.Validate(); err != nil {
		t.Fatalf("loaded interaction invalid: %v", err)
	}
	if len(forage.Requirements) != 1 || forage.Requirements[0].Kind != simdomain.ConditionVitalMin {
		t.Errorf("requirements = %+v, want one vital_min", forage.Requirements)
	}
	if len(forage.Branches) != 2 {
		t.Fatalf("branches = %d, want 2", len(forage.Branches))
	}
	if forage.Branches[0].Condition != nil {
		t.Errorf("success branch condition = %+v, want nil", forage.Branches[0].Condition)
	}
	if forage.Branches[1].Condition == nil || forage.Branches[1].Condition.Kind != simdomain.ConditionAttributeMin {
		t.Errorf("mishap branch condition = %+v, want attribute_min", forage.Branches[1].Condition)
	}
	if forage.Branches[0].Effects[0].Kind != simdomain.EffectResource {
		t.Errorf("first effect kind = %v, want resource", forage.Branches[0].Effects[0].Kind)
	}
}

func TestLoadWorldFile_MissingFile(t *testing.T) {
	_, _, err := LoadWorldFile(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("LoadWorldFile() on missing file succeeded, want error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestParseWorldFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed json", `{"nodes": [`},
		{"unknown node kind", `{"nodes": [{"id": "n", "kind": "ocean"}]}`},
		{"unknown condition kind", `{"interactions": [{"id": "i", "branches": [
			{"label": "a", "weight": 1, "condition": {"kind": "phase_of_moon"}}
		]}]}`},
		{"unknown effect kind", `{"interactions": [{"id": "i", "branches": [
			{"label": "a", "weight": 1, "effects": [{"kind": "teleport"}]}
		]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parseWorldFile([]byte(tt.json)); err == nil {
				t.Error("parseWorldFile() succeeded, want error")
			}
		})
	}
}
