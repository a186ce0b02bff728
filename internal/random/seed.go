// Package random supplies seed material for the engine's deterministic
// random streams.
//
// Every subsystem draws from seeded math/rand sources so a simulation run
// replays under a pinned seed; this package produces the initial seed when
// the operator does not pin one.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed draws a high-entropy seed from crypto/rand for the simulation's
// seeded generators.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
