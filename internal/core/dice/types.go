package dice

import "errors"

// ErrMissingDice indicates a roll request had no dice specified.
var ErrMissingDice = errors.New("at least one die must be provided")

// ErrInvalidDiceSpec indicates a die specification has invalid fields.
var ErrInvalidDiceSpec = errors.New("dice must have positive sides and count")

// Spec describes a group of identical dice to roll.
type Spec struct {
	Sides int
	Count int
}

// Roll holds the individual results for one Spec.
type Roll struct {
	Sides   int
	Results []int
	Total   int
}

// Result aggregates every Roll produced by a request.
type Result struct {
	Rolls []Roll
	Total int
}

// Request describes a seeded dice roll.
type Request struct {
	Dice []Spec
	Seed int64
}
