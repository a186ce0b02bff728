// Package script evaluates authored Lua conditions for interactions and
// encounter triggers.
//
// Scripts are boolean expressions in chunk form, e.g.
//
//	return turn > 10 and attributes.strength >= 12
//
// Each evaluation runs in a fresh Lua state so authored scripts cannot leak
// values between evaluations or into the engine. A malformed script, a
// runtime error, or a non-boolean result evaluates to false with an error;
// authored content can never crash a turn.
package script

import (
	"errors"
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/louisbranch/chronicle-engine/internal/sim/domain"
)

// ErrNotBoolean indicates a script whose result is not a boolean.
var ErrNotBoolean = errors.New("script must return a boolean")

// Evaluator evaluates authored Lua condition scripts. The zero value is
// ready to use.
type Evaluator struct{}

// NewEvaluator creates a condition evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvalCondition implements domain.ScriptHost. The script sees these
// globals:
//
//	turn        current turn number
//	attributes  table of the entity's attribute scores (may be empty)
//	energy, health, mood, frequency, coherence
//	resources   table of the world resource pool
func (e *Evaluator) EvalCondition(source string, env domain.ConditionEnv) (bool, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	bindEnv(state, env)

	if err := lua.LoadString(state, source); err != nil {
		return false, fmt.Errorf("load condition script: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return false, fmt.Errorf("run condition script: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeBoolean {
		state.Pop(1)
		return false, ErrNotBoolean
	}
	result := state.ToBoolean(-1)
	state.Pop(1)
	return result, nil
}

// bindEnv publishes the condition environment as script globals.
func bindEnv(state *lua.State, env domain.ConditionEnv) {
	state.PushNumber(float64(env.Turn))
	state.SetGlobal("turn")

	state.NewTable()
	if env.Entity != nil {
		for name, score := range env.Entity.Attributes {
			state.PushInteger(score)
			state.SetField(-2, name)
		}
	}
	state.SetGlobal("attributes")

	if env.Entity != nil {
		state.PushNumber(env.Entity.Energy)
		state.SetGlobal("energy")
		state.PushNumber(env.Entity.Health)
		state.SetGlobal("health")
		state.PushNumber(env.Entity.Mood)
		state.SetGlobal("mood")
		state.PushNumber(env.Entity.Frequency)
		state.SetGlobal("frequency")
		state.PushNumber(env.Entity.Coherence)
		state.SetGlobal("coherence")
	}

	state.NewTable()
	for name, quantity := range env.Resources {
		state.PushNumber(quantity)
		state.SetField(-2, name)
	}
	state.SetGlobal("resources")
}
