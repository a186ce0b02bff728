package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	conflictdomain "github.com/louisbranch/chronicle-engine/internal/conflict/domain"
	conflictservice "github.com/louisbranch/chronicle-engine/internal/conflict/service"
	"github.com/louisbranch/chronicle-engine/internal/core/check"
	"github.com/louisbranch/chronicle-engine/internal/core/weighted"
	encounterdomain "github.com/louisbranch/chronicle-engine/internal/encounter/domain"
	encounterservice "github.com/louisbranch/chronicle-engine/internal/encounter/service"
	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
	"github.com/louisbranch/chronicle-engine/internal/state/event"
)

var tracer = otel.Tracer("github.com/louisbranch/chronicle-engine/internal/scheduler")

// processTurn runs one turn under a trace span. A rejected turn leaves
// the committed state untouched and the scheduler running.
func (s *Scheduler) processTurn(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "scheduler.turn")
	defer span.End()

	if err := s.runTurn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn rejected")
		return err
	}
	span.SetAttributes(attribute.Int64("sim.turn", int64(s.World().Time)))
	span.SetStatus(codes.Ok, "")
	return nil
}

// runTurn computes one candidate state from the committed one and
// commits it only if validation passes. The interaction pool, tracked
// wars, and encounter lifecycle follow the same discipline: the turn
// works on copies (or behind a checkpoint) and the shared state changes
// only on commit.
func (s *Scheduler) runTurn(ctx context.Context) error {
	started := s.deps.Clock()

	s.mu.Lock()
	before := s.committed
	pool := make([]simdomain.Interaction, len(s.interactions))
	copy(pool, s.interactions)
	wars := make([]*trackedWar, len(s.wars))
	for i, entry := range s.wars {
		wars[i] = entry.clone()
	}
	s.mu.Unlock()

	var checkpoint encounterservice.Checkpoint
	if s.deps.Encounters != nil {
		checkpoint = s.deps.Encounters.Checkpoint()
	}
	accepted := false
	defer func() {
		if !accepted && s.deps.Encounters != nil {
			s.deps.Encounters.Restore(checkpoint)
		}
	}()

	candidate := before.Clone()
	turn := candidate.Time + 1
	candidate.TickDelay = s.tickDelayFrom(candidate.MeanCoherence())

	var actions []simdomain.EntityAction
	for i := range candidate.Entities {
		action, err := s.updateEntity(&candidate.Entities[i], turn, candidate.Resources, pool)
		if err != nil {
			return fmt.Errorf("%w: entity %s: %v", ErrTurnRejected, candidate.Entities[i].ID, err)
		}
		if action != nil {
			actions = append(actions, *action)
		}
	}

	if s.deps.Encounters != nil {
		encounterActions, err := s.deps.Encounters.Advance(ctx, turn, &candidate)
		if err != nil {
			return fmt.Errorf("%w: encounters: %v", ErrTurnRejected, err)
		}
		actions = append(actions, encounterActions...)
	}

	for _, evt := range s.drainEvents() {
		if err := s.dispatchEvent(ctx, evt, &candidate, &wars, turn); err != nil {
			return fmt.Errorf("%w: dispatch %s event: %v", ErrTurnRejected, evt.Kind, err)
		}
	}

	if err := s.updateWars(ctx, wars, &candidate, turn); err != nil {
		return fmt.Errorf("%w: wars: %v", ErrTurnRejected, err)
	}

	candidate.Time = turn

	if candidate.Time != before.Time+1 {
		return fmt.Errorf("%w: time advanced to %d from %d", ErrTurnRejected, candidate.Time, before.Time)
	}
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrTurnRejected, err)
	}

	s.mu.Lock()
	s.committed = candidate
	s.interactions = pool
	s.wars = wars
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()
	accepted = true

	s.persist(ctx, candidate)

	summary := simdomain.TurnSummary{
		Turn:      turn,
		Timestamp: started,
		Duration:  s.deps.Clock().Sub(started),
		Actions:   actions,
		Deltas:    simdomain.DiffResources(before.Resources, candidate.Resources),
	}
	summary.Digest = summary.BuildDigest()
	s.appendSummary(ctx, summary)

	committed := candidate.Clone()
	for _, observer := range observers {
		observer(committed)
	}

	if _, err := s.deps.Emitter.EmitTurnCompleted(ctx, event.TurnCompletedPayload{
		Turn:    turn,
		Actions: len(actions),
		Digest:  summary.Digest,
	}); err != nil {
		s.reportPersistError(fmt.Errorf("emit turn completed: %w", err))
	}
	return nil
}

// tickDelayFrom maps mean coherence to a pacing delay. Higher coherence
// produces a longer delay, clamped to the configured window.
func (s *Scheduler) tickDelayFrom(meanCoherence float64) time.Duration {
	delay := time.Duration(meanCoherence * float64(time.Second))
	if delay < s.cfg.TickDelayMin {
		return s.cfg.TickDelayMin
	}
	if delay > s.cfg.TickDelayMax {
		return s.cfg.TickDelayMax
	}
	return delay
}

// updateEntity applies vital decay, passive attribute drift, and at most
// one resolved interaction to the entity. The pool is the turn's working
// copy; cooldown stamps land there, not on the committed pool.
func (s *Scheduler) updateEntity(entity *simdomain.Entity, turn uint64, resources map[string]float64, pool []simdomain.Interaction) (*simdomain.EntityAction, error) {
	entity.Energy = simdomain.ClampVital(entity.Energy - s.cfg.EnergyDecay)
	entity.Health = simdomain.ClampVital(entity.Health - s.cfg.HealthDecay)
	entity.Mood = simdomain.ClampVital(entity.Mood - s.cfg.MoodDecay)

	if s.deps.Rng.Float64() < entity.Coherence*s.cfg.DriftRate {
		names := []string{
			simdomain.AttrStrength,
			simdomain.AttrCharisma,
			simdomain.AttrWisdom,
			simdomain.AttrIntellect,
		}
		name := names[s.deps.Rng.Intn(len(names))]
		entity.Attributes[name] = simdomain.ClampAttribute(entity.Attribute(name) + 1)
	}

	interaction, err := s.pickInteraction(entity, turn, resources, pool)
	if err != nil {
		return nil, err
	}
	if interaction == nil {
		return nil, nil
	}

	branch, err := s.selectBranch(*interaction, entity, turn, resources)
	if err != nil {
		return nil, err
	}

	modifiers := []int{simdomain.AttributeModifier(entity.Attribute(simdomain.AttrWisdom))}
	result := check.SkillCheck(s.deps.Rng, modifiers, interaction.Difficulty)
	if result.Success {
		for _, effect := range branch.Effects {
			effect.Apply(entity, resources)
		}
	}

	interaction.MarkUsed(turn)
	entity.LastInteraction = interaction.Type

	return &simdomain.EntityAction{
		EntityID:    entity.ID,
		Interaction: interaction.Type,
		Branch:      branch.Label,
		Roll:        result.Roll,
		Total:       result.Total,
		Difficulty:  interaction.Difficulty,
		Success:     result.Success,
		Critical:    result.Critical,
	}, nil
}

// pickInteraction selects one candidate from the pool: available at this
// turn and with every requirement holding. Returns nil when nothing is
// eligible.
func (s *Scheduler) pickInteraction(entity *simdomain.Entity, turn uint64, resources map[string]float64, pool []simdomain.Interaction) (*simdomain.Interaction, error) {
	env := simdomain.ConditionEnv{
		Turn:      turn,
		Entity:    entity,
		Resources: resources,
		Scripts:   s.deps.Scripts,
	}

	var eligible []*simdomain.Interaction
	for i := range pool {
		interaction := &pool[i]
		if !interaction.Available(turn) {
			continue
		}
		meets := true
		for _, requirement := range interaction.Requirements {
			holds, err := requirement.Holds(env)
			if err != nil {
				return nil, fmt.Errorf("interaction %s: %w", interaction.ID, err)
			}
			if !holds {
				meets = false
				break
			}
		}
		if meets {
			eligible = append(eligible, interaction)
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	return eligible[s.deps.Rng.Intn(len(eligible))], nil
}

// selectBranch draws among the interaction's branches whose condition
// holds, falling back to the full set when none hold.
func (s *Scheduler) selectBranch(interaction simdomain.Interaction, entity *simdomain.Entity, turn uint64, resources map[string]float64) (simdomain.Branch, error) {
	env := simdomain.ConditionEnv{
		Turn:      turn,
		Entity:    entity,
		Resources: resources,
		Scripts:   s.deps.Scripts,
	}

	var eligible []simdomain.Branch
	for _, branch := range interaction.Branches {
		if branch.Condition != nil {
			holds, err := branch.Condition.Holds(env)
			if err != nil {
				return simdomain.Branch{}, fmt.Errorf("interaction %s branch %q: %w", interaction.ID, branch.Label, err)
			}
			if !holds {
				continue
			}
		}
		eligible = append(eligible, branch)
	}
	if len(eligible) == 0 {
		eligible = interaction.Branches
	}

	return weighted.PickFunc(s.deps.Rng, eligible, func(b simdomain.Branch) float64 { return b.Weight })
}

// drainEvents removes up to MaxEventsPerTurn pending events from the
// queue.
func (s *Scheduler) drainEvents() []ComplexEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.queue)
	if count > s.cfg.MaxEventsPerTurn {
		count = s.cfg.MaxEventsPerTurn
	}
	drained := make([]ComplexEvent, count)
	copy(drained, s.queue[:count])
	s.queue = append(s.queue[:0], s.queue[count:]...)
	return drained
}

// dispatchEvent routes one complex event by its kind. The switch is
// exhaustive over the declared kinds. New wars join the turn's working
// set; they reach the tracked set only when the turn commits.
func (s *Scheduler) dispatchEvent(ctx context.Context, evt ComplexEvent, candidate *simdomain.WorldState, wars *[]*trackedWar, turn uint64) error {
	switch evt.Kind {
	case EventKindWar:
		if s.deps.Conflicts == nil {
			return nil
		}
		war, err := s.deps.Conflicts.DeclareWar(ctx, conflictservice.DeclareWarInput{
			Attackers: evt.War.Attackers,
			Defenders: evt.War.Defenders,
			Cause:     evt.War.Cause,
			Goals:     evt.War.Goals,
		}, turn)
		if err != nil {
			return err
		}
		*wars = append(*wars, &trackedWar{
			war:              &war,
			attackerStrength: evt.War.AttackerStrength,
			defenderStrength: evt.War.DefenderStrength,
		})
		return nil

	case EventKindTrade:
		scaled := s.scaleImpact(evt.Trade.Delta, candidate.MeanFrequency())
		next := candidate.Resources[evt.Trade.Resource] + scaled
		if next < 0 {
			next = 0
		}
		candidate.Resources[evt.Trade.Resource] = next
		if scaled < 0 {
			if _, err := s.deps.Emitter.EmitMarketCrashed(ctx, turn, scaled, event.MarketCrashedPayload{
				Resource: evt.Trade.Resource,
				Delta:    scaled,
			}); err != nil {
				return fmt.Errorf("emit market crashed: %w", err)
			}
		}
		return nil

	case EventKindPolitical, EventKindDiplomatic:
		if s.deps.Encounters == nil {
			return nil
		}
		trigger := encounterdomain.TriggerContext{
			Turn:      turn,
			NodeID:    evt.Encounter.NodeID,
			Resources: candidate.Resources,
		}
		if len(evt.Encounter.Participants) > 0 {
			trigger.Entity = candidate.Entity(evt.Encounter.Participants[0])
		}
		_, err := s.deps.Encounters.Trigger(ctx, evt.Encounter.EncounterID, trigger, evt.Encounter.Participants)
		if errors.Is(err, encounterservice.ErrNotEligible) {
			return nil
		}
		return err

	case EventKindUnspecified:
		return fmt.Errorf("kind %d: %w", evt.Kind, ErrMalformedEvent)
	}
	return fmt.Errorf("kind %d: %w", evt.Kind, ErrMalformedEvent)
}

// updateWars progresses every war in the turn's working set. An active
// war fights one engagement first, so its casualties feed the same tick's
// exhaustion and momentum; wars hitting a termination condition resolve.
func (s *Scheduler) updateWars(ctx context.Context, wars []*trackedWar, candidate *simdomain.WorldState, turn uint64) error {
	if s.deps.Conflicts == nil {
		return nil
	}

	goalCheck := func(goal conflictdomain.Goal) bool {
		switch goal.Kind {
		case conflictdomain.GoalResource:
			return candidate.Resources[goal.Resource] >= goal.Amount
		default:
			// Territory and political goals are settled by battles and
			// diplomacy, not derivable from the world state here.
			return goal.Satisfied
		}
	}

	for _, entry := range wars {
		if entry.war.Phase == conflictdomain.PhaseConcluded {
			continue
		}
		if entry.war.Phase == conflictdomain.PhaseActive {
			if err := s.fightBattle(ctx, entry, candidate, turn); err != nil {
				return err
			}
		}
		if err := s.deps.Conflicts.UpdateWar(entry.war, entry.attackerStrength, entry.defenderStrength, goalCheck); err != nil {
			return err
		}
		if !s.deps.Conflicts.ShouldEndWar(*entry.war) {
			continue
		}

		casualties := float64(entry.war.AttackerCasualties + entry.war.DefenderCasualties)
		impact := s.scaleImpact(-casualties/100, candidate.MeanFrequency())
		outcome, err := s.deps.Conflicts.EndWar(ctx, entry.war, turn, impact)
		if err != nil {
			return err
		}
		s.applyWarOutcome(outcome, candidate)
	}
	return nil
}

// fightBattle stages one engagement for an active war. Forces are
// mustered from the tracked strengths, the battlefield is the first
// reachable territory objective or a random node, and the survivors
// carry into the next tick's momentum update.
func (s *Scheduler) fightBattle(ctx context.Context, entry *trackedWar, candidate *simdomain.WorldState, turn uint64) error {
	if entry.attackerStrength <= 0 || entry.defenderStrength <= 0 {
		return nil
	}

	location := s.battleground(entry.war, candidate)
	frequency := candidate.MeanFrequency()
	attacker := musterForce(entry.war.Attackers[0], entry.attackerStrength, frequency)
	defender := musterForce(entry.war.Defenders[0], entry.defenderStrength, frequency)

	result, err := s.deps.Conflicts.ResolveBattle(ctx, entry.war, attacker, defender, location, turn)
	if err != nil {
		return err
	}

	entry.attackerStrength -= float64(result.AttackerCasualties)
	if entry.attackerStrength < 0 {
		entry.attackerStrength = 0
	}
	entry.defenderStrength -= float64(result.DefenderCasualties)
	if entry.defenderStrength < 0 {
		entry.defenderStrength = 0
	}

	// A decisive attacker victory on an objective node captures it.
	if result.Victor == conflictdomain.VictorAttackers && result.Decisive {
		for i := range entry.war.Goals {
			goal := &entry.war.Goals[i]
			if goal.Kind == conflictdomain.GoalTerritory && goal.TargetNode == location.ID {
				goal.Satisfied = true
			}
		}
	}
	return nil
}

// battleground picks where an engagement happens: the first territory
// objective present in the world, else a random node, else open ground.
func (s *Scheduler) battleground(war *conflictdomain.War, candidate *simdomain.WorldState) simdomain.Node {
	for _, goal := range war.Goals {
		if goal.Kind != conflictdomain.GoalTerritory || goal.TargetNode == "" {
			continue
		}
		for _, node := range candidate.Nodes {
			if node.ID == goal.TargetNode {
				return node
			}
		}
	}
	if len(candidate.Nodes) > 0 {
		return candidate.Nodes[s.deps.Rng.Intn(len(candidate.Nodes))]
	}
	return simdomain.Node{ID: "open-ground", Kind: simdomain.NodeKindWilderness}
}

// musterForce builds a single-block force whose strength matches the
// tracked abstract value.
func musterForce(faction string, strength, frequency float64) conflictdomain.Force {
	quantity := int(strength)
	if quantity < 1 {
		quantity = 1
	}
	return conflictdomain.Force{
		FactionID: faction,
		Units: []conflictdomain.Unit{
			{Type: conflictdomain.UnitInfantry, Quantity: quantity, Quality: 1.0},
		},
		Supplies:  1,
		Frequency: frequency,
	}
}

// applyWarOutcome folds a concluded war's consequences into the candidate
// world: economic damage shrinks the resource pool and the frequency
// shifts move every entity's consciousness scalar.
func (s *Scheduler) applyWarOutcome(outcome conflictdomain.Outcome, candidate *simdomain.WorldState) {
	damage := outcome.AttackerEconomicDamage
	if outcome.DefenderEconomicDamage > damage {
		damage = outcome.DefenderEconomicDamage
	}
	if damage > 0 {
		for name, quantity := range candidate.Resources {
			candidate.Resources[name] = quantity * (1 - damage)
		}
	}

	shift := (outcome.AttackerFrequencyShift + outcome.DefenderFrequencyShift) / 2
	if shift != 0 {
		for i := range candidate.Entities {
			candidate.Entities[i].Frequency += shift
		}
	}
}

// scaleImpact folds a numeric impact through consciousness-adjusted
// scaling: high aggregate consciousness dampens negative impacts, low
// amplifies them. Non-negative impacts pass through unchanged.
func (s *Scheduler) scaleImpact(impact, meanFrequency float64) float64 {
	if impact >= 0 {
		return impact
	}
	factor := 1 - (meanFrequency-10)/20
	if factor < 0.5 {
		factor = 0.5
	}
	if factor > 1.5 {
		factor = 1.5
	}
	return impact * factor
}

// persist saves the committed state. Failure is reported, never fatal;
// the in-memory commit stands.
func (s *Scheduler) persist(ctx context.Context, committed simdomain.WorldState) {
	if s.deps.Snapshots == nil {
		return
	}
	data, err := simdomain.MarshalSnapshot(committed)
	if err != nil {
		s.reportPersistError(fmt.Errorf("marshal snapshot: %w", err))
		return
	}
	if err := s.deps.Snapshots.SaveSnapshot(ctx, data); err != nil {
		s.reportPersistError(fmt.Errorf("save snapshot: %w", err))
	}
}

// appendSummary records the turn in the FIFO history and the summary
// store.
func (s *Scheduler) appendSummary(ctx context.Context, summary simdomain.TurnSummary) {
	s.mu.Lock()
	s.history = append(s.history, summary)
	if len(s.history) > s.cfg.HistoryLimit {
		s.history = s.history[len(s.history)-s.cfg.HistoryLimit:]
	}
	s.mu.Unlock()

	if s.deps.Summaries != nil {
		if err := s.deps.Summaries.AppendTurnSummary(ctx, summary); err != nil {
			s.reportPersistError(fmt.Errorf("append turn summary: %w", err))
		}
	}
}
