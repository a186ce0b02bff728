// Package service implements the conflict resolution engine: war
// declaration, multi-round battle resolution, war progression, and
// conclusion consequences.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/louisbranch/chronicle-engine/internal/conflict/domain"
	"github.com/louisbranch/chronicle-engine/internal/core/check"
	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
	"github.com/louisbranch/chronicle-engine/internal/state/event"
)

// ErrNoCombatants indicates a battle where a side fields no effective
// strength, so no round can be fought.
var ErrNoCombatants = errors.New("both forces require positive strength")

// GoalCheck evaluates one war goal against current world state.
type GoalCheck func(domain.Goal) bool

// Engine resolves conflicts. All randomness flows through the injected
// generator so battles replay deterministically under a fixed seed.
type Engine struct {
	cfg         domain.Config
	rng         *rand.Rand
	emitter     *event.Emitter
	idGenerator func() (string, error)
}

// NewEngine creates a conflict engine with the provided configuration and
// random source. A nil emitter disables journal output.
func NewEngine(cfg domain.Config, rng *rand.Rand, emitter *event.Emitter) *Engine {
	return &Engine{
		cfg:         cfg,
		rng:         rng,
		emitter:     emitter,
		idGenerator: simdomain.NewID,
	}
}

// Config returns the engine's balance configuration.
func (e *Engine) Config() domain.Config {
	return e.cfg
}

// DeclareWarInput describes a war declaration.
type DeclareWarInput struct {
	Attackers []string
	Defenders []string
	Cause     string
	Goals     []domain.Goal
}

// DeclareWar validates the declaration, creates the war in the declared
// phase, and emits a war.declared journal event.
func (e *Engine) DeclareWar(ctx context.Context, input DeclareWarInput, turn uint64) (domain.War, error) {
	warID, err := e.idGenerator()
	if err != nil {
		return domain.War{}, fmt.Errorf("generate war id: %w", err)
	}

	war, err := domain.DeclareWar(warID, input.Attackers, input.Defenders, input.Cause, input.Goals, turn)
	if err != nil {
		return domain.War{}, err
	}

	if _, err := e.emitter.EmitWarDeclared(ctx, turn, event.WarDeclaredPayload{
		WarID:     war.ID,
		Attackers: war.Attackers,
		Defenders: war.Defenders,
		Cause:     war.Cause,
	}); err != nil {
		return domain.War{}, fmt.Errorf("emit war declared: %w", err)
	}

	return war, nil
}

// leadershipModifiers assembles the additive modifiers for a side's
// leadership check: charisma, wisdom, a frequency-derived bonus, and raw
// commander skill.
func leadershipModifiers(force domain.Force) []int {
	return []int{
		simdomain.AttributeModifier(force.Commander.Charisma),
		simdomain.AttributeModifier(force.Commander.Wisdom),
		int(force.Frequency / 5),
		force.Commander.Skill,
	}
}

// ResolveBattle fights one battle between two forces at a location. When
// war is non-nil the result's casualties accumulate onto it. The round
// loop is bounded by the configured maximum and stops early when either
// side's effective HP reaches zero.
func (e *Engine) ResolveBattle(ctx context.Context, war *domain.War, attacker, defender domain.Force, location simdomain.Node, turn uint64) (domain.BattleResult, error) {
	cfg := e.cfg

	if attacker.Strength() <= 0 || defender.Strength() <= 0 {
		return domain.BattleResult{}, fmt.Errorf("battle at %s: %w", location.ID, ErrNoCombatants)
	}

	attackerCheck := check.SkillCheck(e.rng, leadershipModifiers(attacker), cfg.CompetentThreshold)
	defenderCheck := check.SkillCheck(e.rng, leadershipModifiers(defender), cfg.CompetentThreshold)
	attackerTactics := domain.GradeTactics(attackerCheck.Total, cfg)
	defenderTactics := domain.GradeTactics(defenderCheck.Total, cfg)

	attackerMorale := attacker.Morale()
	defenderMorale := defender.Morale()

	// Terrain shapes effective HP; the defender alone benefits from
	// preparation.
	attackerHP := attacker.Strength() * (1 + attacker.TerrainBonus(location.Terrain))
	defenderHP := defender.Strength() * (1 + defender.TerrainBonus(location.Terrain) + defender.PreparationBonus())

	result := domain.BattleResult{
		Location:        location.ID,
		AttackerTactics: attackerTactics,
		DefenderTactics: defenderTactics,
	}

	for number := 1; number <= cfg.MaxRounds && attackerHP > 0 && defenderHP > 0; number++ {
		round := domain.Round{Number: number}

		attackerDamage := cfg.RoundDamageRatio * defenderHP * (1 + attacker.Inspiration) * attackerTactics.Multiplier()
		if attackerMorale < cfg.MoraleBreakThreshold && e.rng.Float64() < cfg.MoraleBreakChance {
			attackerDamage /= 2
			round.AttackerMoraleBreak = true
		}

		defenderDamage := cfg.RoundDamageRatio * attackerHP * (1 + defender.Inspiration) * defenderTactics.Multiplier()
		if defenderMorale < cfg.MoraleBreakThreshold && e.rng.Float64() < cfg.MoraleBreakChance {
			defenderDamage /= 2
			round.DefenderMoraleBreak = true
		}

		round.AttackerDamage = attackerDamage
		round.DefenderDamage = defenderDamage

		defenderHP -= attackerDamage
		attackerHP -= defenderDamage
		result.Rounds = append(result.Rounds, round)
	}

	final := result.Rounds[len(result.Rounds)-1]
	margin := final.AttackerDamage - final.DefenderDamage
	if margin > 0 {
		result.Victor = domain.VictorAttackers
	} else {
		// Ties favor the side holding ground.
		result.Victor = domain.VictorDefenders
	}
	if margin < 0 {
		margin = -margin
	}
	result.Decisive = margin > cfg.DecisiveMargin

	if result.Victor == domain.VictorAttackers {
		result.AttackerCasualties = int(float64(attacker.MilitaryCount()) * cfg.VictorCasualtyRatio)
		result.DefenderCasualties = int(float64(defender.MilitaryCount()) * cfg.LoserCasualtyRatio)
	} else {
		result.AttackerCasualties = int(float64(attacker.MilitaryCount()) * cfg.LoserCasualtyRatio)
		result.DefenderCasualties = int(float64(defender.MilitaryCount()) * cfg.VictorCasualtyRatio)
	}

	// Civilian losses only at population centers, a flat fraction of the
	// local population per belligerent side.
	if location.Kind == simdomain.NodeKindSettlement {
		result.CivilianCasualties = 2 * int(float64(location.Population)*cfg.CivilianCasualtyRatio)
	}

	warID := ""
	if war != nil {
		warID = war.ID
		war.AttackerCasualties += result.AttackerCasualties
		war.DefenderCasualties += result.DefenderCasualties
	}

	if _, err := e.emitter.EmitBattleResolved(ctx, turn, 0, event.BattleResolvedPayload{
		WarID:      warID,
		Location:   location.ID,
		Victor:     result.Victor.String(),
		Decisive:   result.Decisive,
		Rounds:     len(result.Rounds),
		Casualties: result.TotalCasualties(),
	}); err != nil {
		return domain.BattleResult{}, fmt.Errorf("emit battle resolved: %w", err)
	}

	return result, nil
}

// UpdateWar advances one war for a scheduler tick: a declared war becomes
// active, exhaustion accumulates, momentum is recomputed from the strength
// ratio, and goal satisfaction is re-evaluated.
func (e *Engine) UpdateWar(war *domain.War, attackerStrength, defenderStrength float64, goalCheck GoalCheck) error {
	if war.Phase == domain.PhaseDeclared {
		if err := war.Activate(); err != nil {
			return err
		}
	}

	war.AccumulateExhaustion(e.cfg)
	war.RecomputeMomentum(attackerStrength, defenderStrength)

	if goalCheck != nil {
		for i := range war.Goals {
			war.Goals[i].Satisfied = goalCheck(war.Goals[i])
		}
	}
	return nil
}

// ShouldEndWar reports whether any termination condition holds.
func (e *Engine) ShouldEndWar(war domain.War) bool {
	return war.ShouldEnd(e.cfg)
}

// EndWar moves an active war through resolution into concluded, computes
// the consequence set, and emits a war.ended journal event annotated with
// the consciousness impact of the outcome.
func (e *Engine) EndWar(ctx context.Context, war *domain.War, turn uint64, impact float64) (domain.Outcome, error) {
	if err := war.BeginResolution(); err != nil {
		return domain.Outcome{}, err
	}

	outcome := war.ResolveOutcome(e.cfg, turn)

	if err := war.Conclude(turn); err != nil {
		return domain.Outcome{}, err
	}

	if _, err := e.emitter.EmitWarEnded(ctx, turn, impact, event.WarEndedPayload{
		WarID:    war.ID,
		Victor:   outcome.Victor.String(),
		Momentum: war.Momentum,
		Turns:    outcome.DurationTurns,
	}); err != nil {
		return domain.Outcome{}, fmt.Errorf("emit war ended: %w", err)
	}

	return outcome, nil
}
