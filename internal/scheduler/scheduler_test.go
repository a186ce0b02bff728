package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	conflictdomain "github.com/louisbranch/chronicle-engine/internal/conflict/domain"
	conflictservice "github.com/louisbranch/chronicle-engine/internal/conflict/service"
	encounterdomain "github.com/louisbranch/chronicle-engine/internal/encounter/domain"
	encounterservice "github.com/louisbranch/chronicle-engine/internal/encounter/service"
	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
	"github.com/louisbranch/chronicle-engine/internal/state/event"
	"github.com/louisbranch/chronicle-engine/internal/storage"
)

type fakeEventStore struct {
	events []event.Event
}

func (s *fakeEventStore) AppendEvent(_ context.Context, evt event.Event) (event.Event, error) {
	evt.Seq = int64(len(s.events) + 1)
	s.events = append(s.events, evt)
	return evt, nil
}

func (s *fakeEventStore) byType(t event.Type) []event.Event {
	var out []event.Event
	for _, evt := range s.events {
		if evt.Type == t {
			out = append(out, evt)
		}
	}
	return out
}

type fakeSnapshotStore struct {
	data    []byte
	saveErr error
	saves   int
}

func (s *fakeSnapshotStore) SaveSnapshot(_ context.Context, snapshot []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.data = append([]byte(nil), snapshot...)
	return nil
}

func (s *fakeSnapshotStore) LoadSnapshot(_ context.Context) ([]byte, error) {
	if s.data == nil {
		return nil, storage.ErrNotFound
	}
	return s.data, nil
}

func testWorld() simdomain.WorldState {
	world := simdomain.NewWorldState()
	world.Nodes = []simdomain.Node{
		{ID: "node-1", Name: "Rivertown", Kind: simdomain.NodeKindSettlement, Population: 500, Terrain: "plains"},
	}
	world.Entities = []simdomain.Entity{
		{ID: "ent-1", Name: "Asha", Attributes: map[string]int{}, Energy: 50, Health: 90, Mood: 60, Coherence: 0.5, Frequency: 10},
		{ID: "ent-2", Name: "Bren", Attributes: map[string]int{}, Energy: 40, Health: 80, Mood: 70, Coherence: 0.5, Frequency: 10},
	}
	world.Resources["gold"] = 100
	return world
}

func testInteractions() []simdomain.Interaction {
	return []simdomain.Interaction{
		{
			ID:   "rest",
			Type: "rest",
			Branches: []simdomain.Branch{
				{
					Label:  "recover",
					Weight: 1,
					Effects: []simdomain.Effect{
						{Kind: simdomain.EffectVital, Vital: "energy", Delta: 5},
					},
				},
			},
			Repeatable: true,
		},
	}
}

type schedulerFixture struct {
	scheduler *Scheduler
	events    *fakeEventStore
	snapshots *fakeSnapshotStore
}

func newFixture(t *testing.T, cfg Config) *schedulerFixture {
	t.Helper()
	events := &fakeEventStore{}
	snapshots := &fakeSnapshotStore{}
	emitter := event.NewEmitter(events)
	rng := rand.New(rand.NewSource(1))

	sched := New(cfg, Deps{
		Rng:        rng,
		Snapshots:  snapshots,
		Emitter:    emitter,
		Conflicts:  conflictservice.NewEngine(conflictdomain.DefaultConfig(), rng, emitter),
		Encounters: encounterservice.NewLifecycle(rng, emitter, nil),
	})
	return &schedulerFixture{scheduler: sched, events: events, snapshots: snapshots}
}

func startManual(t *testing.T, f *schedulerFixture) {
	t.Helper()
	if err := f.scheduler.Initialize(testWorld(), testInteractions()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := f.scheduler.Start(ModeManual); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func TestInitialize_RejectsMalformedWorld(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	world := testWorld()
	world.Resources = nil
	if err := f.scheduler.Initialize(world, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Initialize() error = %v, want ErrInvalidConfig", err)
	}
	if f.scheduler.State() != StateIdle {
		t.Errorf("State() = %s, want idle after rejected config", f.scheduler.State())
	}
}

func TestStart_RequiresInitializedWorld(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	if err := f.scheduler.Start(ModeManual); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Start() error = %v, want ErrNotInitialized", err)
	}
}

func TestStart_Twice(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	startManual(t, f)

	if err := f.scheduler.Start(ModeManual); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Start() twice error = %v, want ErrAlreadyRunning", err)
	}
}

func TestStep_CommitsTimePlusOne(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	startManual(t, f)

	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	world := f.scheduler.World()
	if world.Time != 1 {
		t.Errorf("Time = %d, want 1", world.Time)
	}
	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if got := f.scheduler.World().Time; got != 2 {
		t.Errorf("Time = %d, want 2", got)
	}

	if completed := f.events.byType(event.TypeTurnCompleted); len(completed) != 2 {
		t.Errorf("turn.completed events = %d, want 2", len(completed))
	}
	if f.snapshots.saves != 2 {
		t.Errorf("snapshot saves = %d, want 2", f.snapshots.saves)
	}
}

func TestStep_RequiresRunningManual(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	if err := f.scheduler.Step(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Step() before start error = %v, want ErrNotRunning", err)
	}

	if err := f.scheduler.Initialize(testWorld(), testInteractions()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := f.scheduler.Start(ModeAutomatic); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = f.scheduler.Stop() }()

	if err := f.scheduler.Step(context.Background()); !errors.Is(err, ErrAutomaticActive) {
		t.Errorf("Step() in automatic mode error = %v, want ErrAutomaticActive", err)
	}
}

func TestStep_RejectedTurnKeepsState(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	interactions := testInteractions()
	// A scripted requirement with no script host fails turn computation.
	interactions[0].Requirements = []simdomain.Condition{
		{Kind: simdomain.ConditionScripted, Script: "return true"},
	}
	if err := f.scheduler.Initialize(testWorld(), interactions); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := f.scheduler.Start(ModeManual); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	before := f.scheduler.World()
	err := f.scheduler.Step(context.Background())
	if !errors.Is(err, ErrTurnRejected) {
		t.Fatalf("Step() error = %v, want ErrTurnRejected", err)
	}

	after := f.scheduler.World()
	if after.Time != before.Time {
		t.Errorf("Time = %d, want unchanged %d", after.Time, before.Time)
	}
	if after.Entities[0].Energy != before.Entities[0].Energy {
		t.Errorf("entity energy changed on rejected turn")
	}
	if f.scheduler.State() != StateRunning {
		t.Errorf("State() = %s, want running after rejected turn", f.scheduler.State())
	}
	if len(f.scheduler.History()) != 0 {
		t.Errorf("history = %d entries, want 0", len(f.scheduler.History()))
	}
}

// entityScriptHost approves every scripted condition except for one
// entity, whose evaluation fails.
type entityScriptHost struct {
	failEntity string
}

func (h *entityScriptHost) EvalCondition(_ string, env simdomain.ConditionEnv) (bool, error) {
	if env.Entity != nil && env.Entity.ID == h.failEntity {
		return false, errors.New("script runtime fault")
	}
	return true, nil
}

func TestStep_RejectedTurnKeepsInteractionPool(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	host := &entityScriptHost{failEntity: "ent-2"}
	f.scheduler.deps.Scripts = host

	interactions := []simdomain.Interaction{
		{
			ID:       "forage",
			Type:     "forage",
			Cooldown: 5,
			Requirements: []simdomain.Condition{
				{Kind: simdomain.ConditionScripted, Script: "return true"},
			},
			Branches: []simdomain.Branch{
				{Label: "find", Weight: 1},
			},
		},
	}
	if err := f.scheduler.Initialize(testWorld(), interactions); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := f.scheduler.Start(ModeManual); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The first entity uses the interaction before the second entity's
	// requirement fails the turn.
	if err := f.scheduler.Step(context.Background()); !errors.Is(err, ErrTurnRejected) {
		t.Fatalf("Step() error = %v, want ErrTurnRejected", err)
	}

	// The rejected turn must not have spent the cooldown, so the next
	// committed turn still gets an action out of the pool.
	host.failEntity = ""
	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	history := f.scheduler.History()
	if len(history) != 1 {
		t.Fatalf("history = %d entries, want 1", len(history))
	}
	if len(history[0].Actions) != 1 {
		t.Fatalf("actions = %d, want 1 from a fresh cooldown", len(history[0].Actions))
	}
	if got := history[0].Actions[0]; got.EntityID != "ent-1" || got.Interaction != "forage" {
		t.Errorf("action = %s/%s, want ent-1/forage", got.EntityID, got.Interaction)
	}
}

func TestStep_RejectedTurnRewindsEncounters(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	if err := f.scheduler.deps.Encounters.Register(encounterdomain.Encounter{
		ID:       "parley",
		Name:     "Parley",
		Duration: 3,
		Cooldown: 4,
		Outcomes: []encounterdomain.Outcome{
			{Label: "accord", Weight: 1},
		},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	startManual(t, f)

	// The political cue triggers the encounter before the malformed war
	// declaration rejects the turn.
	if err := f.scheduler.Enqueue(ComplexEvent{
		Kind:      EventKindPolitical,
		Encounter: &EncounterCue{EncounterID: "parley", NodeID: "node-1", Participants: []string{"ent-1"}},
	}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := f.scheduler.Enqueue(ComplexEvent{
		Kind: EventKindWar,
		War:  &WarDeclaration{Attackers: []string{"north"}, Defenders: []string{"north"}},
	}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if err := f.scheduler.Step(context.Background()); !errors.Is(err, ErrTurnRejected) {
		t.Fatalf("Step() error = %v, want ErrTurnRejected", err)
	}

	if active := f.scheduler.deps.Encounters.Active(); len(active) != 0 {
		t.Errorf("active encounters = %d, want 0 after rejected turn", len(active))
	}
	def, _ := f.scheduler.deps.Encounters.Definition("parley")
	if def.TimesTriggered != 0 || def.LastTriggered != 0 {
		t.Errorf("definition stamp = %d/%d, want untouched 0/0", def.TimesTriggered, def.LastTriggered)
	}

	// The cooldown was not consumed; the cue triggers cleanly next turn.
	if err := f.scheduler.Enqueue(ComplexEvent{
		Kind:      EventKindPolitical,
		Encounter: &EncounterCue{EncounterID: "parley", NodeID: "node-1", Participants: []string{"ent-1"}},
	}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if active := f.scheduler.deps.Encounters.Active(); len(active) != 1 {
		t.Errorf("active encounters = %d, want 1", len(active))
	}
	def, _ = f.scheduler.deps.Encounters.Definition("parley")
	if def.TimesTriggered != 1 {
		t.Errorf("TimesTriggered = %d, want 1", def.TimesTriggered)
	}
}

func TestHistory_FIFOEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryLimit = 3
	f := newFixture(t, cfg)
	startManual(t, f)

	for i := 0; i < 5; i++ {
		if err := f.scheduler.Step(context.Background()); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}

	history := f.scheduler.History()
	if len(history) != 3 {
		t.Fatalf("history = %d entries, want 3", len(history))
	}
	for i, want := range []uint64{3, 4, 5} {
		if history[i].Turn != want {
			t.Errorf("history[%d].Turn = %d, want %d", i, history[i].Turn, want)
		}
	}
}

func TestStep_EntityDecayAndAction(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	startManual(t, f)

	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	history := f.scheduler.History()
	if len(history) != 1 {
		t.Fatalf("history = %d entries, want 1", len(history))
	}
	if len(history[0].Actions) != 2 {
		t.Errorf("actions = %d, want one per entity", len(history[0].Actions))
	}
	for _, action := range history[0].Actions {
		if action.Interaction != "rest" || action.Branch != "recover" {
			t.Errorf("action = %s/%s, want rest/recover", action.Interaction, action.Branch)
		}
		if action.Roll < 1 || action.Roll > 20 {
			t.Errorf("roll = %d, want 1..20", action.Roll)
		}
	}

	// Decay 1.0, recovery +5 on success.
	world := f.scheduler.World()
	if world.Entities[0].Energy != 54 {
		t.Errorf("energy = %f, want 54", world.Entities[0].Energy)
	}
}

func TestTickDelay_ClampedFromCoherence(t *testing.T) {
	tests := []struct {
		name      string
		coherence float64
		want      time.Duration
	}{
		{"low coherence hits floor", 0.01, 100 * time.Millisecond},
		{"mid coherence scales", 0.5, 500 * time.Millisecond},
		{"high coherence hits ceiling", 5, 1000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			world := testWorld()
			for i := range world.Entities {
				world.Entities[i].Coherence = tt.coherence
			}
			if err := f.scheduler.Initialize(world, testInteractions()); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if err := f.scheduler.Start(ModeManual); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if err := f.scheduler.Step(context.Background()); err != nil {
				t.Fatalf("Step() error = %v", err)
			}
			if got := f.scheduler.World().TickDelay; got != tt.want {
				t.Errorf("TickDelay = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEnqueue_TradeShockScaledByConsciousness(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	startManual(t, f)

	// Mean frequency 10 leaves the scaling factor at 1.
	if err := f.scheduler.Enqueue(ComplexEvent{
		Kind:  EventKindTrade,
		Trade: &TradeShock{Resource: "gold", Delta: -30},
	}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	if got := f.scheduler.World().Resources["gold"]; got != 70 {
		t.Errorf("gold = %f, want 70", got)
	}
	if crashes := f.events.byType(event.TypeMarketCrashed); len(crashes) != 1 {
		t.Errorf("market.crashed events = %d, want 1", len(crashes))
	}
}

func TestEnqueue_MalformedAndFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPendingEvents = 1
	f := newFixture(t, cfg)

	if err := f.scheduler.Enqueue(ComplexEvent{Kind: EventKindTrade}); !errors.Is(err, ErrMalformedEvent) {
		t.Errorf("Enqueue() malformed error = %v, want ErrMalformedEvent", err)
	}

	ok := ComplexEvent{Kind: EventKindTrade, Trade: &TradeShock{Resource: "gold", Delta: 1}}
	if err := f.scheduler.Enqueue(ok); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := f.scheduler.Enqueue(ok); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue() over capacity error = %v, want ErrQueueFull", err)
	}
}

func TestWarDeclaration_TrackedAndConcluded(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	startManual(t, f)

	// Overwhelming attacker strength pins momentum at 100, past the
	// termination limit, so the war concludes on its first update.
	if err := f.scheduler.Enqueue(ComplexEvent{
		Kind: EventKindWar,
		War: &WarDeclaration{
			Attackers:        []string{"north"},
			Defenders:        []string{"south"},
			Cause:            "succession",
			AttackerStrength: 1000,
			DefenderStrength: 100,
		},
	}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	wars := f.scheduler.Wars()
	if len(wars) != 1 {
		t.Fatalf("wars = %d, want 1", len(wars))
	}
	if wars[0].Phase != conflictdomain.PhaseConcluded {
		t.Errorf("Phase = %s, want concluded", wars[0].Phase)
	}

	if declared := f.events.byType(event.TypeWarDeclared); len(declared) != 1 {
		t.Errorf("war.declared events = %d, want 1", len(declared))
	}
	if ended := f.events.byType(event.TypeWarEnded); len(ended) != 1 {
		t.Errorf("war.ended events = %d, want 1", len(ended))
	}
}

func TestWar_BattlesDriveAttrition(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	startManual(t, f)

	if err := f.scheduler.Enqueue(ComplexEvent{
		Kind: EventKindWar,
		War: &WarDeclaration{
			Attackers:        []string{"north"},
			Defenders:        []string{"south"},
			Cause:            "border dispute",
			AttackerStrength: 300,
			DefenderStrength: 260,
		},
	}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	// The first turn activates the war; each later turn stages one battle.
	for i := 0; i < 3; i++ {
		if err := f.scheduler.Step(context.Background()); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}

	wars := f.scheduler.Wars()
	if len(wars) != 1 {
		t.Fatalf("wars = %d, want 1", len(wars))
	}
	war := wars[0]
	if war.AttackerCasualties == 0 && war.DefenderCasualties == 0 {
		t.Error("no casualties after two battle turns")
	}
	if battles := f.events.byType(event.TypeBattleResolved); len(battles) != 2 {
		t.Errorf("battle.resolved events = %d, want 2", len(battles))
	}

	// Casualties raise exhaustion above its casualty-free floor.
	floor := conflictdomain.DefaultConfig().ExhaustionBase * 3
	if war.AttackerExhaustion <= floor && war.DefenderExhaustion <= floor {
		t.Errorf("exhaustion = %f/%f, want above %f", war.AttackerExhaustion, war.DefenderExhaustion, floor)
	}
}

func TestObserver_ReceivesCommittedState(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	startManual(t, f)

	var seen []uint64
	f.scheduler.Subscribe(func(world simdomain.WorldState) {
		seen = append(seen, world.Time)
	})

	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("observed turns = %v, want [1 2]", seen)
	}
}

func TestPersistFailure_CommitStands(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.snapshots.saveErr = errors.New("disk full")

	var reported []error
	f.scheduler.deps.OnPersistError = func(err error) { reported = append(reported, err) }

	startManual(t, f)
	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	if f.scheduler.World().Time != 1 {
		t.Errorf("Time = %d, want 1 despite persistence failure", f.scheduler.World().Time)
	}
	if len(reported) == 0 {
		t.Error("persistence failure was not reported")
	}
}

func TestStopAndRestart(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	startManual(t, f)

	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if err := f.scheduler.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if f.scheduler.State() != StateInitialized {
		t.Errorf("State() = %s, want initialized after stop", f.scheduler.State())
	}
	if err := f.scheduler.Step(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Step() after stop error = %v, want ErrNotRunning", err)
	}

	// The world survives a stop; restarting resumes from turn 1.
	if err := f.scheduler.Start(ModeManual); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if err := f.scheduler.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if got := f.scheduler.World().Time; got != 2 {
		t.Errorf("Time = %d, want 2", got)
	}
}

func TestRestore_ValidAndInvalidSnapshots(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	world := testWorld()
	world.Time = 7
	data, err := simdomain.MarshalSnapshot(world)
	if err != nil {
		t.Fatalf("MarshalSnapshot() error = %v", err)
	}
	f.snapshots.data = data

	restored, err := f.scheduler.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if !restored {
		t.Fatal("Restore() = false, want true for a valid snapshot")
	}
	if got := f.scheduler.World().Time; got != 7 {
		t.Errorf("Time = %d, want 7", got)
	}

	// A malformed snapshot is discarded, not a hard failure.
	g := newFixture(t, DefaultConfig())
	g.snapshots.data = []byte(`{"time":-1}`)
	restored, err = g.scheduler.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore() with invalid snapshot error = %v", err)
	}
	if restored {
		t.Error("Restore() = true, want false for an invalid snapshot")
	}
}

func TestAutomaticMode_TicksWithoutOverlap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickDelayMin = 5 * time.Millisecond
	cfg.TickDelayMax = 10 * time.Millisecond
	f := newFixture(t, cfg)

	world := testWorld()
	for i := range world.Entities {
		world.Entities[i].Coherence = 0
	}
	if err := f.scheduler.Initialize(world, testInteractions()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := f.scheduler.Start(ModeAutomatic); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for f.scheduler.World().Time < 3 {
		select {
		case <-deadline:
			t.Fatal("automatic mode did not advance three turns in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if err := f.scheduler.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	stopped := f.scheduler.World().Time
	time.Sleep(30 * time.Millisecond)
	if got := f.scheduler.World().Time; got != stopped {
		t.Errorf("Time advanced after Stop(): %d -> %d", stopped, got)
	}
}
