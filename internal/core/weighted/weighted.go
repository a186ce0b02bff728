// Package weighted implements selection of one candidate from an ordered
// list with probability proportional to a non-negative weight.
//
// # Determinism
//
// Pick is deterministic with respect to the provided rand.Rand and the
// order and values of the weights. Given the same generator state and the
// same weight slice, Pick always returns the same index.
//
// # Zero weights
//
// A candidate with weight 0 is normally unreachable, with one documented
// exception: when accumulated floating-point drift exhausts the list
// without the running remainder dropping to zero, the final candidate is
// returned regardless of its weight. This fallback guarantees termination
// and is intentional behavior, not a defect.
package weighted

import (
	"errors"
	"math/rand"
)

// ErrNoCandidates indicates an empty candidate list.
var ErrNoCandidates = errors.New("at least one candidate must be provided")

// ErrNegativeWeight indicates a candidate with a weight below zero.
var ErrNegativeWeight = errors.New("weights must be non-negative")

// Pick selects an index from weights with probability proportional to each
// weight. It draws a uniform value in [0, total) and subtracts weights in
// slice order until the running remainder reaches zero or below.
func Pick(rng *rand.Rand, weights []float64) (int, error) {
	if len(weights) == 0 {
		return 0, ErrNoCandidates
	}

	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return 0, ErrNegativeWeight
		}
		total += w
	}

	remainder := rng.Float64() * total
	for i, w := range weights {
		remainder -= w
		if remainder <= 0 {
			return i, nil
		}
	}

	// Floating-point drift exhausted the list; fall back to the last
	// candidate so selection always terminates.
	return len(weights) - 1, nil
}

// PickFunc selects one item from items using the weight function to derive
// each candidate's weight. The zero value of T is returned alongside any
// error.
func PickFunc[T any](rng *rand.Rand, items []T, weight func(T) float64) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrNoCandidates
	}

	weights := make([]float64, len(items))
	for i, item := range items {
		weights[i] = weight(item)
	}

	idx, err := Pick(rng, weights)
	if err != nil {
		return zero, err
	}
	return items[idx], nil
}
