// Package scheduler drives the simulation's turn loop: per-entity updates,
// complex event dispatch, validate-commit-or-reject state advancement, and
// the bounded turn history.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	conflictdomain "github.com/louisbranch/chronicle-engine/internal/conflict/domain"
	conflictservice "github.com/louisbranch/chronicle-engine/internal/conflict/service"
	encounterservice "github.com/louisbranch/chronicle-engine/internal/encounter/service"
	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
	"github.com/louisbranch/chronicle-engine/internal/state/event"
	"github.com/louisbranch/chronicle-engine/internal/storage"
)

// State tracks the scheduler lifecycle.
type State int

const (
	// StateIdle means no world is loaded.
	StateIdle State = iota
	// StateInitialized means a validated world is loaded but turns are
	// not advancing.
	StateInitialized
	// StateRunning means turns advance, either by timer or by Step.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Mode selects how turns are driven while running. The modes are mutually
// exclusive.
type Mode int

const (
	// ModeUnspecified represents an invalid mode value.
	ModeUnspecified Mode = iota
	// ModeManual advances only on explicit Step calls.
	ModeManual
	// ModeAutomatic advances on an internal timer paced by TickDelay.
	ModeAutomatic
)

func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeAutomatic:
		return "automatic"
	default:
		return "unspecified"
	}
}

var (
	// ErrInvalidConfig indicates malformed world configuration at
	// initialization.
	ErrInvalidConfig = errors.New("invalid world configuration")
	// ErrNotInitialized indicates Start without a loaded world.
	ErrNotInitialized = errors.New("scheduler has no initialized world")
	// ErrAlreadyRunning indicates Start while already running.
	ErrAlreadyRunning = errors.New("scheduler is already running")
	// ErrNotRunning indicates Step or Stop without a running scheduler.
	ErrNotRunning = errors.New("scheduler is not running")
	// ErrAutomaticActive indicates Step while the automatic ticker owns
	// the turn loop.
	ErrAutomaticActive = errors.New("manual step unavailable in automatic mode")
	// ErrTurnRejected indicates a candidate state that failed validation;
	// the committed state is unchanged.
	ErrTurnRejected = errors.New("turn rejected")
	// ErrTurnInProgress indicates a Step overlapping an in-flight turn.
	ErrTurnInProgress = errors.New("a turn is already in progress")
)

// Config collects the scheduler tunables.
type Config struct {
	// HistoryLimit caps the in-memory FIFO of turn summaries.
	HistoryLimit int
	// MaxEventsPerTurn bounds how many queued complex events one turn
	// drains.
	MaxEventsPerTurn int
	// MaxPendingEvents bounds the queue itself.
	MaxPendingEvents int

	// Per-turn vital decay, applied before interactions.
	EnergyDecay float64
	HealthDecay float64
	MoodDecay   float64

	// DriftRate scales the per-turn chance of a one-point attribute
	// drift; the chance is DriftRate times the entity's coherence.
	DriftRate float64

	// TickDelayMin and TickDelayMax clamp the pacing value derived from
	// mean coherence.
	TickDelayMin time.Duration
	TickDelayMax time.Duration
}

// DefaultConfig returns the standard scheduler tunables.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:     100,
		MaxEventsPerTurn: 5,
		MaxPendingEvents: 64,
		EnergyDecay:      1.0,
		HealthDecay:      0.25,
		MoodDecay:        0.5,
		DriftRate:        0.02,
		TickDelayMin:     100 * time.Millisecond,
		TickDelayMax:     1000 * time.Millisecond,
	}
}

// Observer receives the committed world after each successful turn.
type Observer func(simdomain.WorldState)

// Deps collects the scheduler's injected dependencies. Rng is required;
// everything else is optional and degrades to a no-op.
type Deps struct {
	Rng       *rand.Rand
	Clock     func() time.Time
	Snapshots storage.SnapshotStore
	Summaries storage.TurnSummaryStore
	Emitter   *event.Emitter
	Scripts   simdomain.ScriptHost

	Conflicts  *conflictservice.Engine
	Encounters *encounterservice.Lifecycle

	// OnTurnError receives turn failures in automatic mode, where no
	// caller is present to own them.
	OnTurnError func(error)
	// OnPersistError receives snapshot and summary write failures; the
	// in-memory commit stands regardless.
	OnPersistError func(error)
}

type trackedWar struct {
	war              *conflictdomain.War
	attackerStrength float64
	defenderStrength float64
}

// clone deep-copies the tracked war so a turn can mutate its own copy.
func (t *trackedWar) clone() *trackedWar {
	war := *t.war
	war.Attackers = append([]string(nil), t.war.Attackers...)
	war.Defenders = append([]string(nil), t.war.Defenders...)
	war.Goals = append([]conflictdomain.Goal(nil), t.war.Goals...)
	return &trackedWar{
		war:              &war,
		attackerStrength: t.attackerStrength,
		defenderStrength: t.defenderStrength,
	}
}

// Scheduler owns the committed world state between turns. It is an
// explicit value with injected dependencies; multiple independent
// schedulers can coexist.
type Scheduler struct {
	cfg  Config
	deps Deps

	mu       sync.Mutex
	state    State
	mode     Mode
	inFlight bool
	stop     chan struct{}

	committed    simdomain.WorldState
	interactions []simdomain.Interaction

	queue     []ComplexEvent
	wars      []*trackedWar
	history   []simdomain.TurnSummary
	observers []Observer
}

// New creates a scheduler in the idle state.
func New(cfg Config, deps Deps) *Scheduler {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if cfg.MaxEventsPerTurn <= 0 {
		cfg.MaxEventsPerTurn = DefaultConfig().MaxEventsPerTurn
	}
	if cfg.MaxPendingEvents <= 0 {
		cfg.MaxPendingEvents = DefaultConfig().MaxPendingEvents
	}
	if cfg.TickDelayMin <= 0 {
		cfg.TickDelayMin = DefaultConfig().TickDelayMin
	}
	if cfg.TickDelayMax < cfg.TickDelayMin {
		cfg.TickDelayMax = DefaultConfig().TickDelayMax
	}
	return &Scheduler{cfg: cfg, deps: deps}
}

// Initialize loads a validated world and authored interaction pool. The
// configuration is rejected here, never at tick time.
func (s *Scheduler) Initialize(world simdomain.WorldState, interactions []simdomain.Interaction) error {
	if err := world.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, interaction := range interactions {
		if err := interaction.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrAlreadyRunning
	}
	s.committed = world.Clone()
	s.interactions = make([]simdomain.Interaction, len(interactions))
	copy(s.interactions, interactions)
	s.state = StateInitialized
	return nil
}

// Restore replaces the committed world with a persisted snapshot, if one
// exists and passes shape validation. An invalid snapshot is discarded and
// treated as no saved state. It reports whether a snapshot was restored.
func (s *Scheduler) Restore(ctx context.Context) (bool, error) {
	if s.deps.Snapshots == nil {
		return false, nil
	}

	data, err := s.deps.Snapshots.LoadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load snapshot: %w", err)
	}

	world, err := simdomain.UnmarshalSnapshot(data)
	if err != nil {
		s.reportPersistError(fmt.Errorf("discarding invalid snapshot: %w", err))
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return false, ErrAlreadyRunning
	}
	s.committed = world
	s.state = StateInitialized
	return true, nil
}

// Start transitions initialized to running in the given mode. In automatic
// mode a ticker goroutine drives turns, paced by the committed TickDelay.
func (s *Scheduler) Start(mode Mode) error {
	if mode != ModeManual && mode != ModeAutomatic {
		return fmt.Errorf("mode %d: %w", mode, ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateRunning:
		return ErrAlreadyRunning
	case StateIdle:
		return ErrNotInitialized
	}

	s.state = StateRunning
	s.mode = mode
	if mode == ModeAutomatic {
		s.stop = make(chan struct{})
		go s.runLoop(s.stop)
	}
	return nil
}

// Stop prevents future turns. A turn already in progress completes; Stop
// never preempts it.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return ErrNotRunning
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.state = StateInitialized
	s.mode = ModeUnspecified
	return nil
}

// Reset returns the scheduler to idle, discarding the loaded world.
func (s *Scheduler) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrAlreadyRunning
	}
	s.committed = simdomain.WorldState{}
	s.interactions = nil
	s.queue = nil
	s.wars = nil
	s.history = nil
	s.state = StateIdle
	return nil
}

// Step advances exactly one turn. It requires a running scheduler in
// manual mode; failures are returned to the caller rather than absorbed.
func (s *Scheduler) Step(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	if s.mode != ModeManual {
		s.mu.Unlock()
		return ErrAutomaticActive
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrTurnInProgress
	}
	s.inFlight = true
	s.mu.Unlock()

	err := s.processTurn(ctx)

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
	return err
}

// Enqueue adds a complex event to the pending queue for a later turn.
func (s *Scheduler) Enqueue(evt ComplexEvent) error {
	if err := evt.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) >= s.cfg.MaxPendingEvents {
		return ErrQueueFull
	}
	s.queue = append(s.queue, evt)
	return nil
}

// Subscribe registers an observer for committed turns.
func (s *Scheduler) Subscribe(observer Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// World returns a deep copy of the committed world state.
func (s *Scheduler) World() simdomain.WorldState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.Clone()
}

// State returns the scheduler lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveMode returns the driving mode while running.
func (s *Scheduler) ActiveMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// History returns the retained turn summaries, oldest first.
func (s *Scheduler) History() []simdomain.TurnSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]simdomain.TurnSummary, len(s.history))
	copy(out, s.history)
	return out
}

// Wars returns copies of the tracked wars.
func (s *Scheduler) Wars() []conflictdomain.War {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]conflictdomain.War, len(s.wars))
	for i, tracked := range s.wars {
		out[i] = *tracked.war
	}
	return out
}

// runLoop drives automatic mode. A timer firing while a turn is still
// executing is a no-op rather than a concurrent turn.
func (s *Scheduler) runLoop(stop chan struct{}) {
	for {
		timer := time.NewTimer(s.currentTickDelay())
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			s.tryProcessTurn()
		}
	}
}

func (s *Scheduler) currentTickDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed.TickDelay > 0 {
		return s.committed.TickDelay
	}
	return s.cfg.TickDelayMin
}

func (s *Scheduler) tryProcessTurn() {
	s.mu.Lock()
	if s.state != StateRunning || s.inFlight {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	if err := s.processTurn(context.Background()); err != nil && s.deps.OnTurnError != nil {
		s.deps.OnTurnError(err)
	}

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *Scheduler) reportPersistError(err error) {
	if s.deps.OnPersistError != nil {
		s.deps.OnPersistError(err)
	}
}
