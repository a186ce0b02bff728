// Package sqlite provides a SQLite-backed simulation storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/chronicle-engine/internal/platform/storage/sqlitemigrate"
	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
	"github.com/louisbranch/chronicle-engine/internal/state/event"
	"github.com/louisbranch/chronicle-engine/internal/storage"
	"github.com/louisbranch/chronicle-engine/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists simulation state in SQLite. It implements the snapshot,
// event, and turn summary ports.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite simulation store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveSnapshot upserts the single snapshot row. Saving the same snapshot
// twice is a no-op, so retries are safe.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(snapshot) == 0 {
		return fmt.Errorf("snapshot is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO snapshots (id, data, saved_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		snapshot,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the persisted snapshot, or storage.ErrNotFound when
// none has been saved.
func (s *Store) LoadSnapshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var data []byte
	row := s.sqlDB.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE id = 1`)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}

// AppendEvent inserts one journal event and returns it with its assigned
// sequence number.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.ID) == "" {
		return event.Event{}, fmt.Errorf("event id is required")
	}
	if evt.Type == "" {
		return event.Event{}, fmt.Errorf("event type is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO events (
		   id,
		   timestamp,
		   type,
		   turn,
		   entity_type,
		   entity_id,
		   payload,
		   consciousness_impact
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID,
		toMillis(evt.Timestamp),
		string(evt.Type),
		evt.Turn,
		evt.EntityType,
		evt.EntityID,
		string(evt.PayloadJSON),
		evt.ConsciousnessImpact,
	)
	if err != nil {
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return event.Event{}, fmt.Errorf("event sequence: %w", err)
	}
	evt.Seq = seq
	return evt, nil
}

// ListEvents returns events with sequence greater than afterSeq, oldest
// first, up to limit.
func (s *Store) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT seq, id, timestamp, type, turn, entity_type, entity_id, payload, consciousness_impact
		 FROM events
		 WHERE seq > ?
		 ORDER BY seq ASC
		 LIMIT ?`,
		afterSeq,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []event.Event
	for rows.Next() {
		var (
			evt       event.Event
			timestamp int64
			eventType string
			payload   string
		)
		if err := rows.Scan(
			&evt.Seq,
			&evt.ID,
			&timestamp,
			&eventType,
			&evt.Turn,
			&evt.EntityType,
			&evt.EntityID,
			&payload,
			&evt.ConsciousnessImpact,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Timestamp = fromMillis(timestamp)
		evt.Type = event.Type(eventType)
		evt.PayloadJSON = []byte(payload)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// AppendTurnSummary inserts one turn summary. Re-appending the same turn
// replaces the stored row, keeping retries idempotent.
func (s *Store) AppendTurnSummary(ctx context.Context, summary simdomain.TurnSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	actions, err := json.Marshal(summary.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	deltas, err := json.Marshal(summary.Deltas)
	if err != nil {
		return fmt.Errorf("marshal deltas: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO turn_summaries (turn, timestamp, duration_us, actions, deltas, digest)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (turn) DO UPDATE SET
		   timestamp = excluded.timestamp,
		   duration_us = excluded.duration_us,
		   actions = excluded.actions,
		   deltas = excluded.deltas,
		   digest = excluded.digest`,
		summary.Turn,
		toMillis(summary.Timestamp),
		summary.Duration.Microseconds(),
		string(actions),
		string(deltas),
		summary.Digest,
	)
	if err != nil {
		return fmt.Errorf("append turn summary: %w", err)
	}
	return nil
}

// ListTurnSummaries returns the most recent summaries, newest first, up to
// limit.
func (s *Store) ListTurnSummaries(ctx context.Context, limit int) ([]simdomain.TurnSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT turn, timestamp, duration_us, actions, deltas, digest
		 FROM turn_summaries
		 ORDER BY turn DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list turn summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []simdomain.TurnSummary
	for rows.Next() {
		var (
			summary    simdomain.TurnSummary
			timestamp  int64
			durationUS int64
			actions    string
			deltas     string
		)
		if err := rows.Scan(&summary.Turn, &timestamp, &durationUS, &actions, &deltas, &summary.Digest); err != nil {
			return nil, fmt.Errorf("scan turn summary: %w", err)
		}
		summary.Timestamp = fromMillis(timestamp)
		summary.Duration = time.Duration(durationUS) * time.Microsecond
		if err := json.Unmarshal([]byte(actions), &summary.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal actions: %w", err)
		}
		if err := json.Unmarshal([]byte(deltas), &summary.Deltas); err != nil {
			return nil, fmt.Errorf("unmarshal deltas: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn summaries: %w", err)
	}
	return summaries, nil
}
