package domain

// Unit type tags consulted by the terrain modifier table.
const (
	UnitInfantry = "infantry"
	UnitCavalry  = "cavalry"
	UnitArchers  = "archers"
	UnitSiege    = "siege"
)

// Tactics grades a side's leadership check for one battle.
type Tactics int

const (
	// TacticsUnspecified represents an ungraded leadership result.
	TacticsUnspecified Tactics = iota
	// TacticsPoor halves-ish damage output (x0.7).
	TacticsPoor
	// TacticsCompetent leaves damage output unchanged.
	TacticsCompetent
	// TacticsBrilliant boosts damage output (x1.5).
	TacticsBrilliant
)

func (t Tactics) String() string {
	switch t {
	case TacticsPoor:
		return "poor"
	case TacticsCompetent:
		return "competent"
	case TacticsBrilliant:
		return "brilliant"
	default:
		return "unspecified"
	}
}

// Multiplier returns the damage scaling for a tactics grade.
func (t Tactics) Multiplier() float64 {
	switch t {
	case TacticsBrilliant:
		return 1.5
	case TacticsPoor:
		return 0.7
	default:
		return 1.0
	}
}

// GradeTactics converts a leadership check total into a tactics tier.
func GradeTactics(total int, cfg Config) Tactics {
	switch {
	case total >= cfg.BrilliantThreshold:
		return TacticsBrilliant
	case total >= cfg.CompetentThreshold:
		return TacticsCompetent
	default:
		return TacticsPoor
	}
}

// Unit is one block of troops within a force.
type Unit struct {
	Type           string
	Quantity       int
	Quality        float64
	EquipmentBonus float64
	TrainingBonus  float64
}

// Commander carries the scores feeding the leadership check.
type Commander struct {
	Charisma int
	Wisdom   int
	Skill    int
}

// Force is one side of a battle.
type Force struct {
	FactionID    string
	Units        []Unit
	Commander    Commander
	Supplies     float64 // 0..1
	VeteranRatio float64 // 0..1
	Preparation  float64 // defender-only bonus input
	Frequency    float64 // collective consciousness scalar
	Inspiration  float64 // inspirational damage bonus
}

// Strength aggregates force strength over all units:
// quantity x quality x (1 + 0.2*equipment + 0.3*training + consciousness),
// where the consciousness bonus is 0.2 when the force's collective
// frequency exceeds 10.
func (f Force) Strength() float64 {
	consciousness := 0.0
	if f.Frequency > 10 {
		consciousness = 0.2
	}

	total := 0.0
	for _, unit := range f.Units {
		total += float64(unit.Quantity) * unit.Quality *
			(1 + 0.2*unit.EquipmentBonus + 0.3*unit.TrainingBonus + consciousness)
	}
	return total
}

// MilitaryCount sums troop quantities for casualty accounting.
func (f Force) MilitaryCount() int {
	count := 0
	for _, unit := range f.Units {
		count += unit.Quantity
	}
	return count
}

// Morale computes a side's battle morale as a weighted blend of training,
// equipment, supplies, consciousness, and veteran ratio, capped at 1.
func (f Force) Morale() float64 {
	if len(f.Units) == 0 {
		return 0
	}

	training, equipment := 0.0, 0.0
	for _, unit := range f.Units {
		training += unit.TrainingBonus
		equipment += unit.EquipmentBonus
	}
	training /= float64(len(f.Units))
	equipment /= float64(len(f.Units))

	consciousness := f.Frequency / 20
	if consciousness > 1 {
		consciousness = 1
	}

	morale := 0.25*training + 0.2*equipment + 0.2*f.Supplies + 0.15*consciousness + 0.2*f.VeteranRatio
	if morale > 1 {
		morale = 1
	}
	return morale
}

// terrainModifiers maps terrain tag to per-unit-type strength modifiers.
// Unlisted combinations modify nothing.
var terrainModifiers = map[string]map[string]float64{
	"plains": {
		UnitCavalry: 0.2,
	},
	"forest": {
		UnitArchers:  0.2,
		UnitInfantry: 0.1,
		UnitCavalry:  -0.2,
	},
	"hills": {
		UnitArchers:  0.15,
		UnitInfantry: 0.1,
		UnitCavalry:  -0.1,
	},
	"mountains": {
		UnitInfantry: 0.2,
		UnitCavalry:  -0.3,
		UnitSiege:    -0.2,
	},
	"urban": {
		UnitSiege:    0.3,
		UnitInfantry: 0.15,
		UnitCavalry:  -0.25,
	},
}

// TerrainBonus computes a force's quantity-weighted terrain modifier from
// the fixed terrain x unit-type table.
func (f Force) TerrainBonus(terrain string) float64 {
	modifiers, ok := terrainModifiers[terrain]
	if !ok {
		return 0
	}

	total := 0
	weighted := 0.0
	for _, unit := range f.Units {
		weighted += float64(unit.Quantity) * modifiers[unit.Type]
		total += unit.Quantity
	}
	if total == 0 {
		return 0
	}
	return weighted / float64(total)
}

// PreparationBonus is the defender-only fortification bonus.
func (f Force) PreparationBonus() float64 {
	return f.Preparation * 0.2
}

// Round records the resolved damage exchange of one battle round.
type Round struct {
	Number              int
	AttackerDamage      float64
	DefenderDamage      float64
	AttackerMoraleBreak bool
	DefenderMoraleBreak bool
}

// BattleResult is the terminal outcome of one resolved battle.
type BattleResult struct {
	Location string
	Rounds   []Round
	Victor   Victor
	Decisive bool

	AttackerTactics Tactics
	DefenderTactics Tactics

	AttackerCasualties int
	DefenderCasualties int
	CivilianCasualties int
}

// TotalCasualties sums both sides' military losses.
func (r BattleResult) TotalCasualties() int {
	return r.AttackerCasualties + r.DefenderCasualties
}
