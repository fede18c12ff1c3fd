package engine

import (
	"context"

	"github.com/google/uuid"

	model "engram/internal/domain/models/graph"
	"engram/internal/ingest"
)

// ThoughtEventHandler persists each reasoning block as its own bitemporal
// Reasoning node and queues it for linkage to whatever action it triggers.
type ThoughtEventHandler struct{}

func (h *ThoughtEventHandler) EventType() ingest.DeltaType { return ingest.DeltaThought }

func (h *ThoughtEventHandler) CanHandle(event *ingest.ParsedEvent) bool {
	return event.Type == ingest.DeltaThought
}

func (h *ThoughtEventHandler) Handle(ctx context.Context, event *ingest.ParsedEvent, turn *TurnState, hctx *Context) (Result, error) {
	nodeID := uuid.NewString()
	seq := turn.SequenceIndex

	bt := model.NewOpenInterval(nowFn())
	params := map[string]any{
		"id":        nodeID,
		"turnId":    turn.TurnID,
		"sessionId": turn.SessionID,
		"content":   event.Thought,
		"sequence":  seq,
	}
	for k, v := range bt.Props() {
		params[k] = v
	}

	_, err := hctx.Graph.Query(ctx,
		`CREATE (r:Reasoning {
			id: $id, turn_id: $turnId, session_id: $sessionId,
			content: $content, sequence_index: $sequence,
			vt_start: $vt_start, vt_end: $vt_end,
			tt_start: $tt_start, tt_end: $tt_end
		})`,
		params,
	)
	if err != nil {
		return Result{}, err
	}

	turn.ReasoningBlocks = append(turn.ReasoningBlocks, ReasoningBlock{
		ID:            nodeID,
		SequenceIndex: seq,
		Content:       event.Thought,
	})
	turn.PendingReasoningIDs = append(turn.PendingReasoningIDs, nodeID)
	turn.ContentBlockIndex++
	turn.SequenceIndex++
	turn.lastBlockType = ingest.DeltaThought

	hctx.emit(NodeCreated{
		Type:    "reasoning",
		Label:   model.LabelReasoning,
		NodeID:  nodeID,
		TurnID:  turn.TurnID,
		Session: turn.SessionID,
	})

	return Result{Handled: true, Action: "reasoning_created", NodeID: nodeID}, nil
}
