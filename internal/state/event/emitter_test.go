package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type fakeStore struct {
	appended []Event
	err      error
}

func (f *fakeStore) AppendEvent(ctx context.Context, evt Event) (Event, error) {
	if f.err != nil {
		return Event{}, f.err
	}
	evt.Seq = int64(len(f.appended) + 1)
	f.appended = append(f.appended, evt)
	return evt, nil
}

func newTestEmitter(store Store) *Emitter {
	emitter := NewEmitter(store)
	emitter.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	emitter.newID = func() string { return "evt-fixed" }
	return emitter
}

func TestEmitter_Emit(t *testing.T) {
	store := &fakeStore{}
	emitter := newTestEmitter(store)

	evt, err := emitter.EmitWarDeclared(context.Background(), 7, WarDeclaredPayload{
		WarID:     "war-1",
		Attackers: []string{"north"},
		Defenders: []string{"south"},
		Cause:     "border dispute",
	})
	if err != nil {
		t.Fatalf("EmitWarDeclared() error = %v", err)
	}

	if evt.Type != TypeWarDeclared {
		t.Errorf("Type = %s, want %s", evt.Type, TypeWarDeclared)
	}
	if evt.Turn != 7 {
		t.Errorf("Turn = %d, want 7", evt.Turn)
	}
	if evt.ID != "evt-fixed" {
		t.Errorf("ID = %s, want generated id", evt.ID)
	}
	if evt.Seq != 1 {
		t.Errorf("Seq = %d, want store-assigned 1", evt.Seq)
	}

	var payload WarDeclaredPayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		t.Fatalf("payload unmarshal: %v", err)
	}
	if payload.Cause != "border dispute" {
		t.Errorf("payload cause = %q", payload.Cause)
	}
}

func TestEmitter_ImpactAnnotation(t *testing.T) {
	store := &fakeStore{}
	emitter := newTestEmitter(store)

	evt, err := emitter.EmitBattleResolved(context.Background(), 9, -0.4, BattleResolvedPayload{
		WarID:  "war-1",
		Victor: "attackers",
	})
	if err != nil {
		t.Fatalf("EmitBattleResolved() error = %v", err)
	}
	if evt.ConsciousnessImpact != -0.4 {
		t.Errorf("ConsciousnessImpact = %f, want -0.4", evt.ConsciousnessImpact)
	}
}

func TestEmitter_NilStoreIsNoop(t *testing.T) {
	emitter := NewEmitter(nil)

	evt, err := emitter.EmitTurnCompleted(context.Background(), TurnCompletedPayload{Turn: 1})
	if err != nil {
		t.Fatalf("Emit with nil store error = %v", err)
	}
	if evt.ID != "" {
		t.Errorf("nil store emit produced event %+v", evt)
	}
}
