// Package check implements difficulty checks: the modified d20 roll every
// combat, trade, and dialogue resolution in the engine funnels through.
package check

import (
	"math/rand"

	"github.com/louisbranch/chronicle-engine/internal/core/dice"
)

// CriticalRoll is the natural die value that always flags a critical.
const CriticalRoll = 20

// MeetsDifficulty returns true if total >= difficulty.
func MeetsDifficulty(total, difficulty int) bool {
	return total >= difficulty
}

// Margin calculates the margin of success or failure.
// Positive values indicate success, negative indicate failure.
func Margin(total, difficulty int) int {
	return total - difficulty
}

// Result represents the outcome of a difficulty check on a known total.
type Result struct {
	Success bool
	Margin  int
}

// Check performs a difficulty check and returns the result.
func Check(total, difficulty int) Result {
	return Result{
		Success: MeetsDifficulty(total, difficulty),
		Margin:  Margin(total, difficulty),
	}
}

// SkillResult represents a full modified-roll skill check.
//
// Critical reports a natural 20 on the base die and is independent of
// Success: a natural 20 whose modified total still fails the difficulty
// remains critical. This asymmetry is intentional and load-bearing for
// downstream consumers; do not collapse the two flags.
type SkillResult struct {
	Roll     int
	Total    int
	Success  bool
	Critical bool
	Margin   int
}

// SkillCheck rolls a d20 with the provided source, applies every modifier
// additively, and evaluates the total against difficulty.
func SkillCheck(rng *rand.Rand, modifiers []int, difficulty int) SkillResult {
	roll := dice.D20(rng)
	return Evaluate(roll, modifiers, difficulty)
}

// Evaluate computes a skill check result for an already-known base roll.
// It exists so callers replaying a recorded roll (and tests) share the
// exact scoring path used by SkillCheck.
func Evaluate(roll int, modifiers []int, difficulty int) SkillResult {
	total := roll
	for _, modifier := range modifiers {
		total += modifier
	}

	return SkillResult{
		Roll:     roll,
		Total:    total,
		Success:  MeetsDifficulty(total, difficulty),
		Critical: roll == CriticalRoll,
		Margin:   Margin(total, difficulty),
	}
}
