package storage

import (
	"context"
	"errors"

	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
	"github.com/louisbranch/chronicle-engine/internal/state/event"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// SnapshotStore persists the serialized world state. Saves are idempotent;
// a failed save never invalidates the in-memory commit.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot []byte) error
	// LoadSnapshot returns the most recent snapshot, or ErrNotFound when
	// none has been saved.
	LoadSnapshot(ctx context.Context) ([]byte, error)
}

// EventStore persists the append-only historical event journal.
type EventStore interface {
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// ListEvents returns events with sequence greater than afterSeq, in
	// sequence order, up to limit.
	ListEvents(ctx context.Context, afterSeq int64, limit int) ([]event.Event, error)
}

// TurnSummaryStore persists the per-turn audit records.
type TurnSummaryStore interface {
	AppendTurnSummary(ctx context.Context, summary simdomain.TurnSummary) error
	// ListTurnSummaries returns the most recent summaries, newest first,
	// up to limit.
	ListTurnSummaries(ctx context.Context, limit int) ([]simdomain.TurnSummary, error)
}
