package engine

import (
	"context"

	model "engram/internal/domain/models/graph"
	"engram/internal/ingest"
)

// UsageEventHandler finalizes the turn: token counts are recorded, the
// Thought node's final content is written and its transaction interval is
// closed. This is the single point where a turn becomes immutable; a
// usage event for an already-finalized turn is a documented no-op and
// must not issue any graph query.
type UsageEventHandler struct{}

func (h *UsageEventHandler) EventType() ingest.DeltaType { return ingest.DeltaUsage }

func (h *UsageEventHandler) CanHandle(event *ingest.ParsedEvent) bool {
	return event.Type == ingest.DeltaUsage
}

func (h *UsageEventHandler) Handle(ctx context.Context, event *ingest.ParsedEvent, turn *TurnState, hctx *Context) (Result, error) {
	if turn.IsFinalized {
		return Result{Handled: false, Action: "already_finalized"}, nil
	}

	if event.Usage != nil {
		if event.Usage.Input != nil {
			turn.InputTokens = *event.Usage.Input
		}
		if event.Usage.Output != nil {
			turn.OutputTokens = *event.Usage.Output
		}
	}
	turn.IsFinalized = true
	turn.lastBlockType = ingest.DeltaUsage

	params := map[string]any{
		"turnId":       turn.TurnID,
		"content":      turn.AssistantContent,
		"inputTokens":  turn.InputTokens,
		"outputTokens": turn.OutputTokens,
		"toolCalls":    turn.ToolCallsCount,
		"stopReason":   event.StopReason,
		"now":          model.NowMillis(),
	}

	cypher := `MATCH (t:Thought {id: $turnId})
		SET t.content = $content,
		    t.input_tokens = $inputTokens,
		    t.output_tokens = $outputTokens,
		    t.tool_calls_count = $toolCalls,
		    t.stop_reason = $stopReason,
		    t.tt_end = $now`

	if event.Cost != nil {
		params["cost"] = *event.Cost
		cypher += `, t.cost = $cost`
	}
	if event.GitSnapshot != "" {
		params["gitSnapshot"] = event.GitSnapshot
		cypher += `, t.git_snapshot = $gitSnapshot`
	}

	if _, err := hctx.Graph.Query(ctx, cypher, params); err != nil {
		return Result{}, err
	}

	return Result{Handled: true, Action: "turn_finalized", NodeID: turn.TurnID}, nil
}
