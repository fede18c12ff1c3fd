// Package engine implements the turn state machine: per-session,
// sequential reassembly of parsed stream deltas into bitemporal graph
// mutations and finalized turn records.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	model "engram/internal/domain/models/graph"
	"engram/internal/graph"
	"engram/internal/ingest"
)

// nowFn is swapped in tests for deterministic bitemporal envelopes.
var nowFn = time.Now

// Notifier receives best-effort nodeCreated notifications.
type Notifier func(NodeCreated)

// TurnEngine processes the ordered event stream of one session. Not safe
// for concurrent use: the transport guarantees one consumer per session,
// and the arena hands each session its own engine.
type TurnEngine struct {
	sessionID   string
	graph       graph.Client
	registry    *Registry
	initializer *SessionInitializer
	logger      *slog.Logger
	notify      Notifier

	turns          map[string]*TurnState
	currentTurnID  string
	lastThoughtID  string
	sessionEnsured bool
}

// NewTurnEngine creates an engine for one session. notify may be nil.
func NewTurnEngine(sessionID string, client graph.Client, registry *Registry, logger *slog.Logger, notify Notifier) *TurnEngine {
	return &TurnEngine{
		sessionID:   sessionID,
		graph:       client,
		registry:    registry,
		initializer: NewSessionInitializer(client, logger),
		logger:      logger.With("session_id", sessionID),
		notify:      notify,
		turns:       make(map[string]*TurnState),
	}
}

// Apply processes one parsed event. Graph failures are returned to the
// caller; the consumption loop owns retry policy.
func (e *TurnEngine) Apply(ctx context.Context, event *ingest.ParsedEvent) (Result, error) {
	if !e.sessionEnsured {
		if err := e.initializer.EnsureSession(ctx, e.sessionID); err != nil {
			return Result{}, err
		}
		e.sessionEnsured = true
	}

	turn, err := e.ensureTurn(ctx, event)
	if err != nil {
		return Result{}, err
	}

	if turn.IsFinalized {
		// Redelivery from the at-least-once transport. The turn record is
		// immutable; acknowledge without touching the graph.
		e.logger.Debug("event for finalized turn ignored",
			"turn_id", turn.TurnID, "event_id", event.EventID)
		return Result{Handled: false, Action: "already_finalized"}, nil
	}

	handler := e.registry.HandlerFor(event)
	if handler == nil {
		e.logger.Debug("no handler for event", "type", event.Type, "event_id", event.EventID)
		return Result{Handled: false, Action: "unhandled"}, nil
	}

	hctx := &Context{
		SessionID:       e.sessionID,
		TurnID:          turn.TurnID,
		Graph:           e.graph,
		Logger:          e.logger,
		EmitNodeCreated: e.emitNodeCreated,
	}

	result, err := handler.Handle(ctx, event, turn, hctx)
	if err != nil {
		return Result{}, err
	}

	if turn.IsFinalized {
		// The turn record is immutable now. The state stays in the map so
		// redelivered events route back to it instead of recreating the
		// Thought node; the arena sweep reclaims it with the engine.
		e.currentTurnID = ""
	}

	return result, nil
}

// ensureTurn returns the state for the event's turn, creating the state
// record and the backing Thought node on first touch. New Thoughts are
// chained to the session: TRIGGERS from the Session for the first one,
// NEXT from the previous Thought afterwards, in vt_start order.
func (e *TurnEngine) ensureTurn(ctx context.Context, event *ingest.ParsedEvent) (*TurnState, error) {
	turnID := e.currentTurnID
	if event.Session != nil && event.Session.MessageID != "" {
		turnID = event.Session.MessageID
	}
	if turnID == "" {
		turnID = uuid.NewString()
	}

	if turn, ok := e.turns[turnID]; ok {
		if !turn.IsFinalized {
			e.currentTurnID = turnID
		}
		return turn, nil
	}

	turn := NewTurnState(e.sessionID, turnID)

	bt := model.NewOpenInterval(nowFn())
	params := map[string]any{
		"id":        turnID,
		"sessionId": e.sessionID,
	}
	for k, v := range bt.Props() {
		params[k] = v
	}

	var cypher string
	if e.lastThoughtID == "" {
		cypher = `MATCH (s:Session {id: $sessionId})
			CREATE (t:Thought {
				id: $id, session_id: $sessionId,
				vt_start: $vt_start, vt_end: $vt_end,
				tt_start: $tt_start, tt_end: $tt_end
			})
			CREATE (s)-[:TRIGGERS]->(t)`
	} else {
		cypher = `MATCH (prev:Thought {id: $prevId})
			CREATE (t:Thought {
				id: $id, session_id: $sessionId,
				vt_start: $vt_start, vt_end: $vt_end,
				tt_start: $tt_start, tt_end: $tt_end
			})
			CREATE (prev)-[:NEXT]->(t)`
		params["prevId"] = e.lastThoughtID
	}

	if _, err := e.graph.Query(ctx, cypher, params); err != nil {
		return nil, err
	}

	e.turns[turnID] = turn
	e.currentTurnID = turnID
	e.lastThoughtID = turnID
	turn.SequenceIndex++

	e.emitNodeCreated(NodeCreated{
		Type:    "thought",
		Label:   model.LabelThought,
		NodeID:  turnID,
		TurnID:  turnID,
		Session: e.sessionID,
	})

	return turn, nil
}

// emitNodeCreated forwards to the notifier. Best-effort: the notifier is
// expected to swallow its own failures.
func (e *TurnEngine) emitNodeCreated(n NodeCreated) {
	if e.notify != nil {
		e.notify(n)
	}
}
