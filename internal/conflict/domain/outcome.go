package domain

// Outcome captures the consequences of a concluded war. The scheduler
// applies these to world state; the conflict engine only computes them.
type Outcome struct {
	WarID  string
	Victor Victor

	// TerritoryTransfers lists the nodes changing hands. Empty on a
	// stalemate.
	TerritoryTransfers []string

	// Economic damage fractions (0..1) per side, proportional to
	// clamped exhaustion.
	AttackerEconomicDamage float64
	DefenderEconomicDamage float64

	// Diplomatic adjustment between victor and loser factions.
	OpinionShift float64
	TrustShift   float64

	// Consciousness scalar shifts per side.
	AttackerFrequencyShift float64
	DefenderFrequencyShift float64

	DurationTurns uint64
}

// ResolveOutcome computes the consequence set for a war entering
// resolution at the given turn. Territorial transfer applies to the victor
// only; a stalemate transfers nothing and applies the reduced diplomatic
// penalty to both sides.
func (w War) ResolveOutcome(cfg Config, turn uint64) Outcome {
	victor := w.DecideVictor(cfg)

	out := Outcome{
		WarID:                  w.ID,
		Victor:                 victor,
		AttackerEconomicDamage: ExhaustionClamped(w.AttackerExhaustion) * cfg.EconomicDamageFactor,
		DefenderEconomicDamage: ExhaustionClamped(w.DefenderExhaustion) * cfg.EconomicDamageFactor,
		DurationTurns:          turn - w.DeclaredTurn,
	}

	switch victor {
	case VictorAttackers:
		out.TerritoryTransfers = territoryTargets(w.Goals)
		out.OpinionShift = -cfg.OpinionPenalty
		out.TrustShift = -cfg.TrustPenalty
		out.AttackerFrequencyShift = cfg.FrequencyShift
		out.DefenderFrequencyShift = -cfg.FrequencyShift
	case VictorDefenders:
		out.OpinionShift = -cfg.OpinionPenalty
		out.TrustShift = -cfg.TrustPenalty
		out.AttackerFrequencyShift = -cfg.FrequencyShift
		out.DefenderFrequencyShift = cfg.FrequencyShift
	default:
		out.OpinionShift = -cfg.StalemateOpinionPenalty
		out.TrustShift = -cfg.TrustPenalty / 2
		out.AttackerFrequencyShift = -cfg.FrequencyShift / 2
		out.DefenderFrequencyShift = -cfg.FrequencyShift / 2
	}

	return out
}

func territoryTargets(goals []Goal) []string {
	var targets []string
	for _, goal := range goals {
		if goal.Kind == GoalTerritory && goal.TargetNode != "" {
			targets = append(targets, goal.TargetNode)
		}
	}
	return targets
}
