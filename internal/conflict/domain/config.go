package domain

// Config collects the balance constants used by battle and war resolution.
// DecisiveMargin and MoraleBreakChance come from the original balance
// tuning and are deliberately preserved as-is; their intended balance is
// undocumented, so callers may override but the defaults are not re-tuned.
type Config struct {
	// MaxRounds caps the battle round loop.
	MaxRounds int
	// RoundDamageRatio is the fraction of the opposing HP dealt as base
	// damage each round.
	RoundDamageRatio float64
	// DecisiveMargin is the final-round damage margin beyond which a
	// battle outcome counts as decisive.
	DecisiveMargin float64
	// MoraleBreakChance is the per-round probability of a morale break
	// for a side below MoraleBreakThreshold.
	MoraleBreakChance float64
	// MoraleBreakThreshold is the morale level under which break checks
	// apply.
	MoraleBreakThreshold float64

	// BrilliantThreshold and CompetentThreshold grade the leadership
	// check total into tactics tiers.
	BrilliantThreshold int
	CompetentThreshold int

	// LoserCasualtyRatio and VictorCasualtyRatio are the military
	// casualty fractions applied after a battle.
	LoserCasualtyRatio  float64
	VictorCasualtyRatio float64
	// CivilianCasualtyRatio applies per side at population centers.
	CivilianCasualtyRatio float64

	// ExhaustionBase and ExhaustionPerCasualty drive per-tick war
	// exhaustion growth.
	ExhaustionBase        float64
	ExhaustionPerCasualty float64

	// ExhaustionLimit and MomentumLimit force war termination when
	// exceeded.
	ExhaustionLimit float64
	MomentumLimit   float64

	// VictoryMomentum is the absolute momentum beyond which a concluded
	// war has a victor rather than a stalemate.
	VictoryMomentum float64

	// EconomicDamageFactor converts clamped exhaustion into a fractional
	// economic damage (0..1) applied to a side's holdings.
	EconomicDamageFactor float64
	// OpinionPenalty and TrustPenalty adjust diplomacy between victor
	// and loser; stalemates apply the reduced StalemateOpinionPenalty to
	// both sides.
	OpinionPenalty          float64
	TrustPenalty            float64
	StalemateOpinionPenalty float64
	// FrequencyShift is the consciousness scalar shift applied on
	// conclusion: positive for the victor, negative for the loser.
	FrequencyShift float64
}

// DefaultConfig returns the preserved balance constants.
func DefaultConfig() Config {
	return Config{
		MaxRounds:             10,
		RoundDamageRatio:      0.1,
		DecisiveMargin:        50,
		MoraleBreakChance:     0.20,
		MoraleBreakThreshold:  0.3,
		BrilliantThreshold:    15,
		CompetentThreshold:    10,
		LoserCasualtyRatio:    0.4,
		VictorCasualtyRatio:   0.2,
		CivilianCasualtyRatio: 0.1,
		ExhaustionBase:        0.1,
		ExhaustionPerCasualty: 0.01,
		ExhaustionLimit:       100,
		MomentumLimit:         80,
		VictoryMomentum:       50,

		EconomicDamageFactor:    0.005,
		OpinionPenalty:          25,
		TrustPenalty:            0.2,
		StalemateOpinionPenalty: 10,
		FrequencyShift:          0.5,
	}
}
