package random

import "testing"

func TestNewSeed(t *testing.T) {
	first, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed() error = %v", err)
	}
	second, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed() error = %v", err)
	}
	// Two 64-bit draws colliding means the entropy source is broken.
	if first == second {
		t.Errorf("consecutive seeds identical: %d", first)
	}
}
