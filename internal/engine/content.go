package engine

import (
	"context"

	"engram/internal/ingest"
)

// previewInterval is how much accumulated assistant content, since the
// last checkpoint, forces a preview write to the in-progress Thought node
// so long responses are observable before finalization.
const previewInterval = 500

// ContentEventHandler accumulates assistant content into the turn.
type ContentEventHandler struct{}

func (h *ContentEventHandler) EventType() ingest.DeltaType { return ingest.DeltaContent }

func (h *ContentEventHandler) CanHandle(event *ingest.ParsedEvent) bool {
	return event.Type == ingest.DeltaContent && event.Role == "assistant"
}

func (h *ContentEventHandler) Handle(ctx context.Context, event *ingest.ParsedEvent, turn *TurnState, hctx *Context) (Result, error) {
	turn.AssistantContent += event.Content

	// A content run counts as one block: bump the index only when the
	// previous event was not content.
	if turn.lastBlockType != ingest.DeltaContent {
		turn.ContentBlockIndex++
	}
	turn.lastBlockType = ingest.DeltaContent

	if len(turn.AssistantContent)-turn.previewMark >= previewInterval {
		_, err := hctx.Graph.Query(ctx,
			`MATCH (t:Thought {id: $turnId}) SET t.preview = $preview`,
			map[string]any{
				"turnId":  turn.TurnID,
				"preview": turn.AssistantContent,
			},
		)
		if err != nil {
			return Result{}, err
		}
		turn.previewMark = len(turn.AssistantContent)
	}

	return Result{Handled: true, Action: "content_accumulated"}, nil
}
