package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store defines the interface for persisting events.
type Store interface {
	AppendEvent(ctx context.Context, evt Event) (Event, error)
}

// Emitter provides event emission for state transitions. A nil store makes
// every emit a no-op so wiring the journal stays optional.
type Emitter struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewEmitter creates a new event emitter.
func NewEmitter(store Store) *Emitter {
	return &Emitter{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// EmitInput describes the input for emitting an event.
type EmitInput struct {
	Type                Type
	Turn                uint64
	EntityType          string
	EntityID            string
	Payload             any
	ConsciousnessImpact float64
}

// Emit appends an event to the journal.
func (e *Emitter) Emit(ctx context.Context, input EmitInput) (Event, error) {
	if e == nil || e.store == nil {
		return Event{}, nil
	}

	payloadJSON, err := json.Marshal(input.Payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event payload: %w", err)
	}

	evt := Event{
		ID:                  e.newID(),
		Timestamp:           e.now().UTC(),
		Type:                input.Type,
		Turn:                input.Turn,
		EntityType:          input.EntityType,
		EntityID:            input.EntityID,
		PayloadJSON:         payloadJSON,
		ConsciousnessImpact: input.ConsciousnessImpact,
	}

	return e.store.AppendEvent(ctx, evt)
}

// EmitWarDeclared emits a war.declared event.
func (e *Emitter) EmitWarDeclared(ctx context.Context, turn uint64, payload WarDeclaredPayload) (Event, error) {
	return e.Emit(ctx, EmitInput{
		Type:       TypeWarDeclared,
		Turn:       turn,
		EntityType: "war",
		EntityID:   payload.WarID,
		Payload:    payload,
	})
}

// EmitWarEnded emits a war.ended event.
func (e *Emitter) EmitWarEnded(ctx context.Context, turn uint64, impact float64, payload WarEndedPayload) (Event, error) {
	return e.Emit(ctx, EmitInput{
		Type:                TypeWarEnded,
		Turn:                turn,
		EntityType:          "war",
		EntityID:            payload.WarID,
		Payload:             payload,
		ConsciousnessImpact: impact,
	})
}

// EmitBattleResolved emits a battle.resolved event.
func (e *Emitter) EmitBattleResolved(ctx context.Context, turn uint64, impact float64, payload BattleResolvedPayload) (Event, error) {
	return e.Emit(ctx, EmitInput{
		Type:                TypeBattleResolved,
		Turn:                turn,
		EntityType:          "war",
		EntityID:            payload.WarID,
		Payload:             payload,
		ConsciousnessImpact: impact,
	})
}

// EmitEncounterTriggered emits an encounter.triggered event.
func (e *Emitter) EmitEncounterTriggered(ctx context.Context, turn uint64, payload EncounterTriggeredPayload) (Event, error) {
	return e.Emit(ctx, EmitInput{
		Type:       TypeEncounterTriggered,
		Turn:       turn,
		EntityType: "encounter",
		EntityID:   payload.InstanceID,
		Payload:    payload,
	})
}

// EmitEncounterResolved emits an encounter.resolved event.
func (e *Emitter) EmitEncounterResolved(ctx context.Context, turn uint64, impact float64, payload EncounterResolvedPayload) (Event, error) {
	return e.Emit(ctx, EmitInput{
		Type:                TypeEncounterResolved,
		Turn:                turn,
		EntityType:          "encounter",
		EntityID:            payload.InstanceID,
		Payload:             payload,
		ConsciousnessImpact: impact,
	})
}

// EmitMarketCrashed emits a market.crashed event.
func (e *Emitter) EmitMarketCrashed(ctx context.Context, turn uint64, impact float64, payload MarketCrashedPayload) (Event, error) {
	return e.Emit(ctx, EmitInput{
		Type:                TypeMarketCrashed,
		Turn:                turn,
		EntityType:          "resource",
		EntityID:            payload.Resource,
		Payload:             payload,
		ConsciousnessImpact: impact,
	})
}

// EmitTurnCompleted emits a turn.completed event.
func (e *Emitter) EmitTurnCompleted(ctx context.Context, payload TurnCompletedPayload) (Event, error) {
	return e.Emit(ctx, EmitInput{
		Type:       TypeTurnCompleted,
		Turn:       payload.Turn,
		EntityType: "turn",
		Payload:    payload,
	})
}
