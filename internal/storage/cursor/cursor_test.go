package cursor

import (
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := New(42, "war.declared")

	token, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "%%%"},
		{"not json", "bm90LWpzb24"},
		{"negative seq", "eyJzZXEiOi01fQ=="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.token); err == nil {
				t.Error("Decode() succeeded, want error")
			}
		})
	}
}

func TestValidFor(t *testing.T) {
	c := New(10, "battle.resolved")

	if err := c.ValidFor("battle.resolved"); err != nil {
		t.Errorf("ValidFor(same filter) error = %v", err)
	}
	if err := c.ValidFor("war.ended"); err == nil {
		t.Error("ValidFor(different filter) succeeded, want error")
	}
	if err := c.ValidFor(""); err == nil {
		t.Error("ValidFor(cleared filter) succeeded, want error")
	}
}

func TestHashFilter(t *testing.T) {
	if HashFilter("") != "" {
		t.Error("empty filter should hash to empty string")
	}
	h := HashFilter("turn.completed")
	if len(h) != 16 {
		t.Errorf("hash length = %d, want 16 hex chars", len(h))
	}
	if strings.EqualFold(h, HashFilter("war.declared")) {
		t.Error("distinct filters should hash differently")
	}
}
