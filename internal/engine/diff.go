package engine

import (
	"context"

	"github.com/google/uuid"

	model "engram/internal/domain/models/graph"
	"engram/internal/ingest"
)

// DiffEventHandler backfills file information onto the most recent tool
// call when a diff event names the file a streamed tool touched. When no
// tool call exists yet the touch is persisted as its own FileTouch node.
type DiffEventHandler struct{}

func (h *DiffEventHandler) EventType() ingest.DeltaType { return ingest.DeltaDiff }

func (h *DiffEventHandler) CanHandle(event *ingest.ParsedEvent) bool {
	return event.Type == ingest.DeltaDiff && event.Diff != nil && event.Diff.File != ""
}

func (h *DiffEventHandler) Handle(ctx context.Context, event *ingest.ParsedEvent, turn *TurnState, hctx *Context) (Result, error) {
	file := event.Diff.File

	if len(turn.ToolCalls) > 0 {
		// Backfill the last tool call. Treat the touch as an edit unless
		// the call's own tool type says otherwise.
		rec := turn.ToolCalls[len(turn.ToolCalls)-1]
		action := fileActionForToolType(rec.ToolType)
		if action == "" {
			action = model.FileActionEdit
		}

		rec.FilePath = file
		rec.FileAction = action
		turn.FilesTouched[file] = FileTouch{
			Action:            action,
			LastSequenceIndex: rec.SequenceIndex,
		}

		_, err := hctx.Graph.Query(ctx,
			`MATCH (tc:ToolCall {id: $id})
			SET tc.file_path = $filePath, tc.file_action = $fileAction`,
			map[string]any{
				"id":         rec.ID,
				"filePath":   file,
				"fileAction": action,
			},
		)
		if err != nil {
			return Result{}, err
		}
		return Result{Handled: true, Action: "diff_applied", NodeID: rec.ID}, nil
	}

	// No tool call to attribute the diff to: record the touch standalone.
	nodeID := uuid.NewString()
	seq := turn.SequenceIndex

	bt := model.NewOpenInterval(nowFn())
	params := map[string]any{
		"id":        nodeID,
		"turnId":    turn.TurnID,
		"sessionId": turn.SessionID,
		"filePath":  file,
		"action":    model.FileActionEdit,
		"sequence":  seq,
	}
	for k, v := range bt.Props() {
		params[k] = v
	}

	_, err := hctx.Graph.Query(ctx,
		`CREATE (f:FileTouch {
			id: $id, turn_id: $turnId, session_id: $sessionId,
			file_path: $filePath, action: $action, sequence_index: $sequence,
			vt_start: $vt_start, vt_end: $vt_end,
			tt_start: $tt_start, tt_end: $tt_end
		})`,
		params,
	)
	if err != nil {
		return Result{}, err
	}

	turn.FilesTouched[file] = FileTouch{
		Action:            model.FileActionEdit,
		LastSequenceIndex: seq,
	}
	turn.SequenceIndex++

	hctx.emit(NodeCreated{
		Type:    "file_touch",
		Label:   model.LabelFileTouch,
		NodeID:  nodeID,
		TurnID:  turn.TurnID,
		Session: turn.SessionID,
	})

	return Result{Handled: true, Action: "diff_applied", NodeID: nodeID}, nil
}
