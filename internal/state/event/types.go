// Package event provides the append-only historical event journal: the
// auditable stream of notable world happenings consumed by UI and history
// observers.
package event

import "time"

// Type identifies the kind of historical event.
type Type string

const (
	// TypeWarDeclared records a new war entering the declared phase.
	TypeWarDeclared Type = "war.declared"
	// TypeWarEnded records a war reaching the concluded phase.
	TypeWarEnded Type = "war.ended"
	// TypeBattleResolved records a completed battle resolution.
	TypeBattleResolved Type = "battle.resolved"
	// TypeEncounterTriggered records a live encounter instance starting.
	TypeEncounterTriggered Type = "encounter.triggered"
	// TypeEncounterResolved records an encounter instance completing.
	TypeEncounterResolved Type = "encounter.resolved"
	// TypeMarketCrashed records a trade shock applied to the resource
	// pool.
	TypeMarketCrashed Type = "market.crashed"
	// TypeTurnCompleted records a successfully committed turn.
	TypeTurnCompleted Type = "turn.completed"
)

// Event is one entry in the journal. Seq is assigned by the store on
// append; ConsciousnessImpact annotates how aggregate consciousness scaled
// the event's numeric effect.
type Event struct {
	ID                  string
	Seq                 int64
	Timestamp           time.Time
	Type                Type
	Turn                uint64
	EntityType          string
	EntityID            string
	PayloadJSON         []byte
	ConsciousnessImpact float64
}

// WarDeclaredPayload describes a war declaration.
type WarDeclaredPayload struct {
	WarID     string   `json:"war_id"`
	Attackers []string `json:"attackers"`
	Defenders []string `json:"defenders"`
	Cause     string   `json:"cause"`
}

// WarEndedPayload describes a concluded war.
type WarEndedPayload struct {
	WarID    string  `json:"war_id"`
	Victor   string  `json:"victor"`
	Momentum float64 `json:"momentum"`
	Turns    uint64  `json:"turns"`
}

// BattleResolvedPayload describes a resolved battle.
type BattleResolvedPayload struct {
	WarID      string `json:"war_id"`
	Location   string `json:"location"`
	Victor     string `json:"victor"`
	Decisive   bool   `json:"decisive"`
	Rounds     int    `json:"rounds"`
	Casualties int    `json:"casualties"`
}

// EncounterTriggeredPayload describes a newly started encounter instance.
type EncounterTriggeredPayload struct {
	EncounterID  string   `json:"encounter_id"`
	InstanceID   string   `json:"instance_id"`
	Participants []string `json:"participants"`
}

// EncounterResolvedPayload describes a completed encounter instance.
type EncounterResolvedPayload struct {
	EncounterID string `json:"encounter_id"`
	InstanceID  string `json:"instance_id"`
	Outcome     string `json:"outcome"`
}

// MarketCrashedPayload describes a trade shock.
type MarketCrashedPayload struct {
	Resource string  `json:"resource"`
	Delta    float64 `json:"delta"`
}

// TurnCompletedPayload describes a committed turn.
type TurnCompletedPayload struct {
	Turn    uint64 `json:"turn"`
	Actions int    `json:"actions"`
	Digest  string `json:"digest"`
}
