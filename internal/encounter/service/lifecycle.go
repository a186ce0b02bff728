// Package service implements the encounter lifecycle: trigger evaluation,
// live instance advancement, weighted outcome resolution, and history.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/louisbranch/chronicle-engine/internal/core/check"
	"github.com/louisbranch/chronicle-engine/internal/core/weighted"
	"github.com/louisbranch/chronicle-engine/internal/encounter/domain"
	simdomain "github.com/louisbranch/chronicle-engine/internal/sim/domain"
	"github.com/louisbranch/chronicle-engine/internal/state/event"
)

var (
	// ErrUnknownEncounter indicates a trigger request for an unregistered
	// definition.
	ErrUnknownEncounter = errors.New("encounter is not registered")
	// ErrNotEligible indicates a trigger request whose gates do not pass.
	ErrNotEligible = errors.New("encounter cannot trigger in this context")
)

// Lifecycle owns encounter definitions, their live instances, and the
// archive of completed runs. All randomness flows through the injected
// generator.
type Lifecycle struct {
	rng         *rand.Rand
	emitter     *event.Emitter
	scripts     simdomain.ScriptHost
	idGenerator func() (string, error)

	definitions map[string]*domain.Encounter

	// active preserves trigger order so sequential advancement is stable.
	active  []*domain.Instance
	history []domain.Instance
}

// NewLifecycle creates an encounter lifecycle. A nil emitter disables
// journal output; a nil script host fails scripted triggers and conditions.
func NewLifecycle(rng *rand.Rand, emitter *event.Emitter, scripts simdomain.ScriptHost) *Lifecycle {
	return &Lifecycle{
		rng:         rng,
		emitter:     emitter,
		scripts:     scripts,
		idGenerator: simdomain.NewID,
		definitions: make(map[string]*domain.Encounter),
	}
}

// Register adds a validated encounter definition.
func (l *Lifecycle) Register(enc domain.Encounter) error {
	if err := enc.Validate(); err != nil {
		return err
	}
	l.definitions[enc.ID] = &enc
	return nil
}

// Definition returns a registered definition by id.
func (l *Lifecycle) Definition(id string) (domain.Encounter, bool) {
	enc, ok := l.definitions[id]
	if !ok {
		return domain.Encounter{}, false
	}
	return *enc, true
}

// CanTrigger evaluates the definition's gates in the given context.
func (l *Lifecycle) CanTrigger(id string, ctx domain.TriggerContext) (bool, error) {
	enc, ok := l.definitions[id]
	if !ok {
		return false, fmt.Errorf("encounter %s: %w", id, ErrUnknownEncounter)
	}
	ctx.Scripts = l.scripts
	ctx.Rng = l.rng
	return enc.CanTrigger(ctx)
}

// Trigger creates a live instance of an eligible encounter: the triggering
// turn is recorded, times-triggered incremented, the base interaction
// generated, and the instance registered active. An encounter.triggered
// journal event is emitted.
func (l *Lifecycle) Trigger(ctx context.Context, id string, trigger domain.TriggerContext, participants []string) (domain.Instance, error) {
	enc, ok := l.definitions[id]
	if !ok {
		return domain.Instance{}, fmt.Errorf("encounter %s: %w", id, ErrUnknownEncounter)
	}

	trigger.Scripts = l.scripts
	trigger.Rng = l.rng
	eligible, err := enc.CanTrigger(trigger)
	if err != nil {
		return domain.Instance{}, err
	}
	if !eligible {
		return domain.Instance{}, fmt.Errorf("encounter %s: %w", id, ErrNotEligible)
	}

	instanceID, err := l.idGenerator()
	if err != nil {
		return domain.Instance{}, fmt.Errorf("generate instance id: %w", err)
	}

	enc.MarkTriggered(trigger.Turn)
	instance := &domain.Instance{
		ID:            instanceID,
		EncounterID:   enc.ID,
		Status:        domain.StatusActive,
		TriggeredTurn: trigger.Turn,
		Participants:  participants,
		Base:          enc.BaseInteraction(instanceID),
	}
	l.active = append(l.active, instance)

	if _, err := l.emitter.EmitEncounterTriggered(ctx, trigger.Turn, event.EncounterTriggeredPayload{
		EncounterID:  enc.ID,
		InstanceID:   instanceID,
		Participants: participants,
	}); err != nil {
		return domain.Instance{}, fmt.Errorf("emit encounter triggered: %w", err)
	}

	return *instance, nil
}

// Checkpoint captures the lifecycle's mutable state: definition trigger
// stamps, live instances, and the history length.
type Checkpoint struct {
	definitions map[string]domain.Encounter
	active      []*domain.Instance
	historyLen  int
}

// Checkpoint snapshots the lifecycle ahead of a turn. Callers with
// commit-or-reject turn semantics pair it with Restore to discard the
// turn's encounter progression.
func (l *Lifecycle) Checkpoint() Checkpoint {
	definitions := make(map[string]domain.Encounter, len(l.definitions))
	for id, enc := range l.definitions {
		definitions[id] = *enc
	}
	active := make([]*domain.Instance, len(l.active))
	for i, instance := range l.active {
		copied := instance.Clone()
		active[i] = &copied
	}
	return Checkpoint{definitions: definitions, active: active, historyLen: len(l.history)}
}

// Restore rewinds the lifecycle to a prior checkpoint. Definitions
// registered after the checkpoint are kept; everything captured returns
// to its recorded state.
func (l *Lifecycle) Restore(cp Checkpoint) {
	for id, enc := range cp.definitions {
		restored := enc
		l.definitions[id] = &restored
	}
	l.active = cp.active
	if len(l.history) > cp.historyLen {
		l.history = l.history[:cp.historyLen]
	}
}

// Advance progresses every active instance by one scheduler turn. An
// instance reaching its duration is resolved and archived; otherwise its
// participants are processed per the definition's sequencing mode. The
// actions produced across all instances are returned for the turn summary.
func (l *Lifecycle) Advance(ctx context.Context, turn uint64, world *simdomain.WorldState) ([]simdomain.EntityAction, error) {
	var actions []simdomain.EntityAction
	remaining := l.active[:0]

	for _, instance := range l.active {
		enc, ok := l.definitions[instance.EncounterID]
		if !ok {
			instance.Abort()
			l.history = append(l.history, *instance)
			continue
		}

		if instance.Advance(enc.Duration) {
			if err := l.resolve(ctx, enc, instance, turn, world); err != nil {
				return actions, err
			}
			l.history = append(l.history, *instance)
			continue
		}

		turnActions, err := l.processParticipants(enc, instance, turn, world)
		if err != nil {
			return actions, err
		}
		actions = append(actions, turnActions...)
		remaining = append(remaining, instance)
	}

	l.active = remaining
	return actions, nil
}

// resolve performs the terminal weighted outcome selection over all
// outcomes whose condition currently holds and applies the winner's
// effects: resource effects once, entity effects to every participant.
func (l *Lifecycle) resolve(ctx context.Context, enc *domain.Encounter, instance *domain.Instance, turn uint64, world *simdomain.WorldState) error {
	env := simdomain.ConditionEnv{
		Turn:      turn,
		Resources: world.Resources,
		Scripts:   l.scripts,
	}
	if len(instance.Participants) > 0 {
		env.Entity = world.Entity(instance.Participants[0])
	}

	var eligible []domain.Outcome
	for _, outcome := range enc.Outcomes {
		if outcome.Condition != nil {
			holds, err := outcome.Condition.Holds(env)
			if err != nil {
				return fmt.Errorf("encounter %s outcome %q: %w", enc.ID, outcome.Label, err)
			}
			if !holds {
				continue
			}
		}
		eligible = append(eligible, outcome)
	}
	if len(eligible) == 0 {
		eligible = enc.Outcomes
	}

	selected, err := weighted.PickFunc(l.rng, eligible, func(o domain.Outcome) float64 { return o.Weight })
	if err != nil {
		return fmt.Errorf("encounter %s: select outcome: %w", enc.ID, err)
	}

	for _, effect := range selected.Effects {
		if effect.Kind == simdomain.EffectResource {
			effect.Apply(nil, world.Resources)
			continue
		}
		for _, participant := range instance.Participants {
			effect.Apply(world.Entity(participant), nil)
		}
	}

	instance.Resolve(selected.Label)

	impact := world.MeanFrequency()
	if _, err := l.emitter.EmitEncounterResolved(ctx, turn, impact, event.EncounterResolvedPayload{
		EncounterID: enc.ID,
		InstanceID:  instance.ID,
		Outcome:     selected.Label,
	}); err != nil {
		return fmt.Errorf("emit encounter resolved: %w", err)
	}
	return nil
}

// processParticipants produces one action per participant for this turn.
// Sequential mode resolves each participant in strict slice order, so a
// participant's effects are visible to the next; simultaneous mode selects
// every branch against the pre-turn state before applying any effects.
func (l *Lifecycle) processParticipants(enc *domain.Encounter, instance *domain.Instance, turn uint64, world *simdomain.WorldState) ([]simdomain.EntityAction, error) {
	var actions []simdomain.EntityAction

	if enc.Sequencing == domain.ModeSimultaneous {
		type selection struct {
			participant string
			branch      simdomain.Branch
			result      check.SkillResult
		}
		snapshot := world.Clone()
		var selections []selection
		for _, participant := range instance.Participants {
			entity := snapshot.Entity(participant)
			if entity == nil {
				continue
			}
			branch, result, err := l.selectBranch(instance.Base, entity, turn, snapshot.Resources)
			if err != nil {
				return actions, err
			}
			selections = append(selections, selection{participant, branch, result})
		}
		for _, sel := range selections {
			entity := world.Entity(sel.participant)
			for _, effect := range sel.branch.Effects {
				effect.Apply(entity, world.Resources)
			}
			actions = append(actions, instanceAction(instance, sel.participant, sel.branch, sel.result))
		}
		instance.Actions = append(instance.Actions, actions...)
		return actions, nil
	}

	for _, participant := range instance.Participants {
		entity := world.Entity(participant)
		if entity == nil {
			continue
		}
		branch, result, err := l.selectBranch(instance.Base, entity, turn, world.Resources)
		if err != nil {
			return actions, err
		}
		for _, effect := range branch.Effects {
			effect.Apply(entity, world.Resources)
		}
		actions = append(actions, instanceAction(instance, participant, branch, result))
	}
	instance.Actions = append(instance.Actions, actions...)
	return actions, nil
}

// selectBranch performs the weighted draw over the interaction's eligible
// branches plus the participant's skill check for the action record.
func (l *Lifecycle) selectBranch(base simdomain.Interaction, entity *simdomain.Entity, turn uint64, resources map[string]float64) (simdomain.Branch, check.SkillResult, error) {
	env := simdomain.ConditionEnv{
		Turn:      turn,
		Entity:    entity,
		Resources: resources,
		Scripts:   l.scripts,
	}

	var eligible []simdomain.Branch
	for _, branch := range base.Branches {
		if branch.Condition != nil {
			holds, err := branch.Condition.Holds(env)
			if err != nil {
				return simdomain.Branch{}, check.SkillResult{}, err
			}
			if !holds {
				continue
			}
		}
		eligible = append(eligible, branch)
	}
	if len(eligible) == 0 {
		eligible = base.Branches
	}

	branch, err := weighted.PickFunc(l.rng, eligible, func(b simdomain.Branch) float64 { return b.Weight })
	if err != nil {
		return simdomain.Branch{}, check.SkillResult{}, err
	}

	result := check.SkillCheck(l.rng, nil, base.Difficulty)
	return branch, result, nil
}

func instanceAction(instance *domain.Instance, participant string, branch simdomain.Branch, result check.SkillResult) simdomain.EntityAction {
	return simdomain.EntityAction{
		EntityID:    participant,
		Interaction: instance.Base.Type,
		Branch:      branch.Label,
		Roll:        result.Roll,
		Total:       result.Total,
		Difficulty:  instance.Base.Difficulty,
		Success:     result.Success,
		Critical:    result.Critical,
	}
}

// Active returns copies of the live instances in trigger order.
func (l *Lifecycle) Active() []domain.Instance {
	out := make([]domain.Instance, len(l.active))
	for i, instance := range l.active {
		out[i] = *instance
	}
	return out
}

// History returns the archive of completed instances, oldest first.
func (l *Lifecycle) History() []domain.Instance {
	out := make([]domain.Instance, len(l.history))
	copy(out, l.history)
	return out
}
