package engine

import (
	"context"

	"engram/internal/ingest"
)

// ControlEventHandler acknowledges control events. No graph mutation, no
// state mutation.
type ControlEventHandler struct{}

func (h *ControlEventHandler) EventType() ingest.DeltaType { return ingest.DeltaControl }

func (h *ControlEventHandler) CanHandle(event *ingest.ParsedEvent) bool {
	return event.Type == ingest.DeltaControl
}

func (h *ControlEventHandler) Handle(ctx context.Context, event *ingest.ParsedEvent, turn *TurnState, hctx *Context) (Result, error) {
	hctx.Logger.Debug("control event acknowledged",
		"session_id", hctx.SessionID,
		"turn_id", hctx.TurnID,
		"event_id", event.EventID,
	)
	return Result{Handled: true, Action: "control_acknowledged"}, nil
}
