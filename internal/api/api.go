// Package api exposes the simulation control surface over HTTP: scheduler
// state, turn stepping, history, and the event journal.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	conflictdomain "github.com/louisbranch/chronicle-engine/internal/conflict/domain"
	"github.com/louisbranch/chronicle-engine/internal/scheduler"
	"github.com/louisbranch/chronicle-engine/internal/state/event"
	"github.com/louisbranch/chronicle-engine/internal/storage"
	"github.com/louisbranch/chronicle-engine/internal/storage/cursor"
)

// Server handles the simulation control endpoints.
type Server struct {
	sched  *scheduler.Scheduler
	events storage.EventStore
	logger *zap.Logger
}

// NewRouter builds the HTTP router over the scheduler and event journal.
// A nil event store disables the /events endpoint; a nil logger is
// replaced with a no-op one.
func NewRouter(sched *scheduler.Scheduler, events storage.EventStore, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{sched: sched, events: events, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/status", s.handleStatus)
	r.Post("/start", s.handleStart)
	r.Post("/stop", s.handleStop)
	r.Post("/step", s.handleStep)
	r.Post("/enqueue", s.handleEnqueue)
	r.Get("/history", s.handleHistory)
	r.Get("/events", s.handleEvents)
	r.Get("/events/export", s.handleEventsExport)
	return r
}

type statusResponse struct {
	State     string             `json:"state"`
	Mode      string             `json:"mode"`
	Turn      uint64             `json:"turn"`
	Entities  int                `json:"entities"`
	Nodes     int                `json:"nodes"`
	Resources map[string]float64 `json:"resources"`
	TickDelay string             `json:"tick_delay"`
	Wars      int                `json:"wars"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	world := s.sched.World()
	s.respond(w, http.StatusOK, statusResponse{
		State:     s.sched.State().String(),
		Mode:      s.sched.ActiveMode().String(),
		Turn:      world.Time,
		Entities:  len(world.Entities),
		Nodes:     len(world.Nodes),
		Resources: world.Resources,
		TickDelay: world.TickDelay.String(),
		Wars:      len(s.sched.Wars()),
	})
}

type startRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	mode := scheduler.ModeAutomatic
	if r.Body != nil && r.ContentLength != 0 {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
		switch req.Mode {
		case "", "automatic":
			mode = scheduler.ModeAutomatic
		case "manual":
			mode = scheduler.ModeManual
		default:
			s.respondError(w, http.StatusBadRequest, errors.New("mode must be manual or automatic"))
			return
		}
	}

	if err := s.sched.Start(mode); err != nil {
		s.respondSchedulerError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"state": s.sched.State().String(), "mode": mode.String()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Stop(); err != nil {
		s.respondSchedulerError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"state": s.sched.State().String()})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Step(r.Context()); err != nil {
		if errors.Is(err, scheduler.ErrTurnRejected) {
			s.respondError(w, http.StatusUnprocessableEntity, err)
			return
		}
		s.respondSchedulerError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]uint64{"turn": s.sched.World().Time})
}

type enqueueRequest struct {
	Kind string `json:"kind"`
	War  *struct {
		Attackers        []string  `json:"attackers"`
		Defenders        []string  `json:"defenders"`
		Cause            string    `json:"cause"`
		Goals            []goalDTO `json:"goals"`
		AttackerStrength float64   `json:"attacker_strength"`
		DefenderStrength float64   `json:"defender_strength"`
	} `json:"war,omitempty"`
	Trade *struct {
		Resource string  `json:"resource"`
		Delta    float64 `json:"delta"`
	} `json:"trade,omitempty"`
	Encounter *struct {
		EncounterID  string   `json:"encounter_id"`
		NodeID       string   `json:"node_id"`
		Participants []string `json:"participants"`
	} `json:"encounter,omitempty"`
}

type goalDTO struct {
	Kind       string  `json:"kind"`
	TargetNode string  `json:"target_node,omitempty"`
	Resource   string  `json:"resource,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	Objective  string  `json:"objective,omitempty"`
}

func (g goalDTO) toDomain() (conflictdomain.Goal, error) {
	goal := conflictdomain.Goal{
		TargetNode: g.TargetNode,
		Resource:   g.Resource,
		Amount:     g.Amount,
		Objective:  g.Objective,
	}
	switch g.Kind {
	case "territory":
		goal.Kind = conflictdomain.GoalTerritory
	case "resource":
		goal.Kind = conflictdomain.GoalResource
	case "political":
		goal.Kind = conflictdomain.GoalPolitical
	default:
		return conflictdomain.Goal{}, fmt.Errorf("unknown goal kind %q", g.Kind)
	}
	return goal, nil
}

func (req enqueueRequest) toEvent() (scheduler.ComplexEvent, error) {
	var evt scheduler.ComplexEvent
	switch req.Kind {
	case "war":
		evt.Kind = scheduler.EventKindWar
	case "trade":
		evt.Kind = scheduler.EventKindTrade
	case "political":
		evt.Kind = scheduler.EventKindPolitical
	case "diplomatic":
		evt.Kind = scheduler.EventKindDiplomatic
	default:
		return scheduler.ComplexEvent{}, fmt.Errorf("unknown event kind %q", req.Kind)
	}
	if req.War != nil {
		declaration := &scheduler.WarDeclaration{
			Attackers:        req.War.Attackers,
			Defenders:        req.War.Defenders,
			Cause:            req.War.Cause,
			AttackerStrength: req.War.AttackerStrength,
			DefenderStrength: req.War.DefenderStrength,
		}
		for _, g := range req.War.Goals {
			goal, err := g.toDomain()
			if err != nil {
				return scheduler.ComplexEvent{}, err
			}
			declaration.Goals = append(declaration.Goals, goal)
		}
		evt.War = declaration
	}
	if req.Trade != nil {
		evt.Trade = &scheduler.TradeShock{Resource: req.Trade.Resource, Delta: req.Trade.Delta}
	}
	if req.Encounter != nil {
		evt.Encounter = &scheduler.EncounterCue{
			EncounterID:  req.Encounter.EncounterID,
			NodeID:       req.Encounter.NodeID,
			Participants: req.Encounter.Participants,
		}
	}
	return evt, nil
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	evt, err := req.toEvent()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.sched.Enqueue(evt); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrMalformedEvent):
			s.respondError(w, http.StatusBadRequest, err)
		case errors.Is(err, scheduler.ErrQueueFull):
			s.respondError(w, http.StatusTooManyRequests, err)
		default:
			s.respondError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.respond(w, http.StatusAccepted, map[string]string{"queued": req.Kind})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := s.sched.History()
	if limit := queryInt(r, "limit"); limit > 0 && limit < len(history) {
		history = history[len(history)-limit:]
	}
	s.respond(w, http.StatusOK, history)
}

type eventsResponse struct {
	Events     []event.Event `json:"events"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		s.respondError(w, http.StatusNotFound, errors.New("event journal is not configured"))
		return
	}

	after := int64(queryInt(r, "after"))
	limit := queryInt(r, "limit")
	typeFilter := r.URL.Query().Get("type")
	if token := r.URL.Query().Get("cursor"); token != "" {
		c, err := cursor.Decode(token)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
		if err := c.ValidFor(typeFilter); err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
		after = c.Seq
	}

	events, err := s.events.ListEvents(r.Context(), after, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	resp := eventsResponse{Events: events}
	if typeFilter != "" {
		// The filter applies within the fetched page; the cursor still
		// advances past every scanned entry.
		filtered := events[:0]
		for _, evt := range events {
			if string(evt.Type) == typeFilter {
				filtered = append(filtered, evt)
			}
		}
		resp.Events = filtered
	}
	if len(events) > 0 {
		token, err := cursor.Encode(cursor.New(events[len(events)-1].Seq, typeFilter))
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err)
			return
		}
		resp.NextCursor = token
	}
	s.respond(w, http.StatusOK, resp)
}

func (s *Server) handleEventsExport(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		s.respondError(w, http.StatusNotFound, errors.New("event journal is not configured"))
		return
	}

	after := int64(queryInt(r, "after"))
	limit := queryInt(r, "limit")
	events, err := s.events.ListEvents(r.Context(), after, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := event.ExportHumanReadable(events, w); err != nil {
		s.logger.Error("export events", zap.Error(err))
	}
}

func (s *Server) respondSchedulerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrNotInitialized),
		errors.Is(err, scheduler.ErrAlreadyRunning),
		errors.Is(err, scheduler.ErrNotRunning),
		errors.Is(err, scheduler.ErrAutomaticActive),
		errors.Is(err, scheduler.ErrTurnInProgress):
		s.respondError(w, http.StatusConflict, err)
	default:
		s.respondError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	s.respond(w, status, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return value
}
