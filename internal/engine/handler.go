package engine

import (
	"context"
	"log/slog"

	"engram/internal/graph"
	"engram/internal/ingest"
)

// NodeCreated is the side-channel notification emitted for each new graph
// node, intended for real-time fan-out to UI collaborators. Emission is
// best-effort: a failed notification never fails the handler.
type NodeCreated struct {
	Type    string `json:"type"`
	Label   string `json:"label"`
	NodeID  string `json:"node_id"`
	TurnID  string `json:"turn_id,omitempty"`
	Session string `json:"session_id,omitempty"`
}

// Context carries everything a handler needs beyond the event and turn
// state. It is constructed per dispatch, never held as ambient state.
type Context struct {
	SessionID       string
	TurnID          string
	Graph           graph.Client
	Logger          *slog.Logger
	EmitNodeCreated func(NodeCreated)
}

func (c *Context) emit(n NodeCreated) {
	if c.EmitNodeCreated != nil {
		c.EmitNodeCreated(n)
	}
}

// Result reports what a handler did with an event.
type Result struct {
	Handled bool
	Action  string
	NodeID  string
}

// EventHandler encapsulates the graph-write logic and turn-state mutation
// for one event kind.
type EventHandler interface {
	// EventType is the delta type tag this handler serves.
	EventType() ingest.DeltaType
	// CanHandle reports whether this handler processes the given event.
	CanHandle(event *ingest.ParsedEvent) bool
	// Handle applies the event to the turn, issuing graph writes through
	// hctx.Graph. Graph failures are returned, never swallowed.
	Handle(ctx context.Context, event *ingest.ParsedEvent, turn *TurnState, hctx *Context) (Result, error)
}
