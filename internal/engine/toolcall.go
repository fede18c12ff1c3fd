package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	model "engram/internal/domain/models/graph"
	"engram/internal/ingest"
)

// toolTypeByName is the fixed name -> type table. Names prefixed mcp__ are
// MCP tools; anything unknown falls into the generic bucket.
var toolTypeByName = map[string]string{
	"Read":  model.ToolTypeFileRead,
	"Write": model.ToolTypeFileWrite,
	"Edit":  model.ToolTypeFileEdit,
	"Bash":  model.ToolTypeBashExec,
	"Glob":  model.ToolTypeFileGlob,
	"Grep":  model.ToolTypeFileGrep,
}

// InferToolType maps a tool name to its type.
func InferToolType(name string) string {
	if t, ok := toolTypeByName[name]; ok {
		return t
	}
	if strings.HasPrefix(name, "mcp__") {
		return model.ToolTypeMCP
	}
	return model.ToolTypeGeneric
}

// fileActionForToolType derives the file action a tool type implies.
func fileActionForToolType(toolType string) string {
	switch toolType {
	case model.ToolTypeFileRead:
		return model.FileActionRead
	case model.ToolTypeFileWrite:
		return model.FileActionWrite
	case model.ToolTypeFileEdit:
		return model.FileActionEdit
	}
	return ""
}

// ToolCallEventHandler creates a ToolCall record on the first fragment of
// a call and accumulates argument JSON across subsequent fragments.
// Duplicate or follow-up fragments for an already-seen call id never
// re-increment counters, which also absorbs at-least-once redelivery.
type ToolCallEventHandler struct{}

func (h *ToolCallEventHandler) EventType() ingest.DeltaType { return ingest.DeltaToolCall }

func (h *ToolCallEventHandler) CanHandle(event *ingest.ParsedEvent) bool {
	return event.Type == ingest.DeltaToolCall && event.ToolCall != nil
}

func (h *ToolCallEventHandler) Handle(ctx context.Context, event *ingest.ParsedEvent, turn *TurnState, hctx *Context) (Result, error) {
	frag := event.ToolCall

	if rec := turn.findToolCall(frag); rec != nil {
		return h.accumulate(ctx, frag, rec, turn, hctx)
	}
	return h.create(ctx, frag, turn, hctx)
}

// create handles the first fragment of a call: new record, counters,
// graph node, YIELDS edge, and TRIGGERS edges from any pending reasoning.
func (h *ToolCallEventHandler) create(ctx context.Context, frag *ingest.ToolCallFragment, turn *TurnState, hctx *Context) (Result, error) {
	rec := &ToolCallRecord{
		ID:            uuid.NewString(),
		CallID:        frag.ID,
		ToolName:      frag.Name,
		ToolType:      InferToolType(frag.Name),
		ArgumentsJSON: frag.ArgsFragment,
		SequenceIndex: turn.SequenceIndex,
	}

	bt := model.NewOpenInterval(nowFn())
	params := map[string]any{
		"id":        rec.ID,
		"turnId":    turn.TurnID,
		"sessionId": turn.SessionID,
		"callId":    rec.CallID,
		"toolName":  rec.ToolName,
		"toolType":  rec.ToolType,
		"sequence":  rec.SequenceIndex,
	}
	for k, v := range bt.Props() {
		params[k] = v
	}

	_, err := hctx.Graph.Query(ctx,
		`MATCH (t:Thought {id: $turnId})
		CREATE (tc:ToolCall {
			id: $id, turn_id: $turnId, session_id: $sessionId,
			call_id: $callId, tool_name: $toolName, tool_type: $toolType,
			sequence_index: $sequence,
			vt_start: $vt_start, vt_end: $vt_end,
			tt_start: $tt_start, tt_end: $tt_end
		})
		CREATE (t)-[:YIELDS]->(tc)`,
		params,
	)
	if err != nil {
		return Result{}, err
	}

	// Link every reasoning block that was waiting for an action, in one
	// batched write with the id list as a parameter.
	if len(turn.PendingReasoningIDs) > 0 {
		pending := make([]string, len(turn.PendingReasoningIDs))
		copy(pending, turn.PendingReasoningIDs)

		_, err := hctx.Graph.Query(ctx,
			`MATCH (r:Reasoning) WHERE r.id IN $reasoningIds
			MATCH (tc:ToolCall {id: $toolCallId})
			CREATE (r)-[:TRIGGERS]->(tc)`,
			map[string]any{
				"reasoningIds": pending,
				"toolCallId":   rec.ID,
			},
		)
		if err != nil {
			return Result{}, err
		}
		rec.TriggeringReasoningIDs = pending
		turn.PendingReasoningIDs = turn.PendingReasoningIDs[:0]
	}

	turn.ToolCalls = append(turn.ToolCalls, rec)
	turn.trackToolCall(frag, rec)
	turn.ToolCallsCount++
	turn.ContentBlockIndex++
	turn.SequenceIndex++
	turn.lastBlockType = ingest.DeltaToolCall

	if err := h.resolveFilePath(ctx, rec, turn, hctx); err != nil {
		return Result{}, err
	}

	hctx.emit(NodeCreated{
		Type:    "tool_call",
		Label:   model.LabelToolCall,
		NodeID:  rec.ID,
		TurnID:  turn.TurnID,
		Session: turn.SessionID,
	})

	return Result{Handled: true, Action: "toolcall_created", NodeID: rec.ID}, nil
}

// accumulate handles follow-up fragments: append arguments, retry file
// path extraction, no counter changes.
func (h *ToolCallEventHandler) accumulate(ctx context.Context, frag *ingest.ToolCallFragment, rec *ToolCallRecord, turn *TurnState, hctx *Context) (Result, error) {
	rec.ArgumentsJSON += frag.ArgsFragment
	turn.trackToolCall(frag, rec)
	turn.lastBlockType = ingest.DeltaToolCall

	if err := h.resolveFilePath(ctx, rec, turn, hctx); err != nil {
		return Result{}, err
	}

	return Result{Handled: true, Action: "toolcall_updated", NodeID: rec.ID}, nil
}

// resolveFilePath probes the accumulated argument JSON for a file_path.
// Fragments that never become valid JSON are tolerated: the path simply
// stays unset.
func (h *ToolCallEventHandler) resolveFilePath(ctx context.Context, rec *ToolCallRecord, turn *TurnState, hctx *Context) error {
	if rec.FilePath != "" || !gjson.Valid(rec.ArgumentsJSON) {
		return nil
	}
	path := gjson.Get(rec.ArgumentsJSON, "file_path").String()
	if path == "" {
		return nil
	}

	rec.FilePath = path
	rec.FileAction = fileActionForToolType(rec.ToolType)
	turn.FilesTouched[path] = FileTouch{
		Action:            rec.FileAction,
		LastSequenceIndex: rec.SequenceIndex,
	}

	_, err := hctx.Graph.Query(ctx,
		`MATCH (tc:ToolCall {id: $id})
		SET tc.file_path = $filePath, tc.file_action = $fileAction`,
		map[string]any{
			"id":         rec.ID,
			"filePath":   rec.FilePath,
			"fileAction": rec.FileAction,
		},
	)
	return err
}
