package engine

import (
	"strconv"

	"engram/internal/domain/models/graph"
	"engram/internal/ingest"
)

// ReasoningBlock is one extracted chain-of-thought segment within a turn.
type ReasoningBlock struct {
	ID            string
	SequenceIndex int
	Content       string
}

// ToolCallRecord tracks one tool invocation as its argument fragments
// stream in.
type ToolCallRecord struct {
	ID                     string // graph node id
	CallID                 string // provider call id
	ToolName               string
	ToolType               string
	ArgumentsJSON          string // accumulated fragments, concatenated in arrival order
	FilePath               string
	FileAction             string
	SequenceIndex          int
	TriggeringReasoningIDs []string
}

// FileTouch records the latest action taken on a path within a turn.
type FileTouch struct {
	Action            string
	LastSequenceIndex int
}

// TurnState is the mutable record for one in-flight conversational turn.
// It is mutated exclusively by event handlers and is not safe for
// concurrent use: one session, one sequential consumer.
//
// ContentBlockIndex increases by exactly 1 each time a distinct block
// (content run, reasoning block, or tool call) starts, never for
// continuations. SequenceIndex is a separate turn-global counter
// incremented on every graph-node-creating event and orders chain edges.
type TurnState struct {
	TurnID              string
	SessionID           string
	UserContent         string
	AssistantContent    string
	ReasoningBlocks     []ReasoningBlock
	ToolCalls           []*ToolCallRecord
	FilesTouched        map[string]FileTouch
	PendingReasoningIDs []string
	ToolCallsCount      int
	ContentBlockIndex   int
	InputTokens         int
	OutputTokens        int
	SequenceIndex       int
	CreatedAt           int64
	IsFinalized         bool

	// continuation tracking: which block type the last event belonged to
	lastBlockType ingest.DeltaType
	// assistantContent length at the last preview checkpoint
	previewMark int
	// fragment routing for tool calls, keyed by call id or index
	callIndex map[string]*ToolCallRecord
}

// NewTurnState creates the state record for a session/turn pair.
func NewTurnState(sessionID, turnID string) *TurnState {
	return &TurnState{
		TurnID:       turnID,
		SessionID:    sessionID,
		FilesTouched: make(map[string]FileTouch),
		CreatedAt:    graph.NowMillis(),
		callIndex:    make(map[string]*ToolCallRecord),
	}
}

// findToolCall returns the record already tracking this fragment's call,
// matching by call id first, then by stream index. An index match is
// rejected when both sides carry call ids that disagree: providers reuse
// stream indexes across distinct calls.
func (t *TurnState) findToolCall(frag *ingest.ToolCallFragment) *ToolCallRecord {
	if t.callIndex == nil {
		t.callIndex = make(map[string]*ToolCallRecord)
	}
	for _, key := range fragmentKeys(frag) {
		if rec, ok := t.callIndex[key]; ok {
			if frag.ID != "" && rec.CallID != "" && rec.CallID != frag.ID {
				continue
			}
			return rec
		}
	}
	return nil
}

// trackToolCall registers a record under the fragment's keys.
func (t *TurnState) trackToolCall(frag *ingest.ToolCallFragment, rec *ToolCallRecord) {
	if t.callIndex == nil {
		t.callIndex = make(map[string]*ToolCallRecord)
	}
	for _, key := range fragmentKeys(frag) {
		t.callIndex[key] = rec
	}
}

func fragmentKeys(frag *ingest.ToolCallFragment) []string {
	var keys []string
	if frag.ID != "" {
		keys = append(keys, "id:"+frag.ID)
	}
	if frag.Index != nil {
		keys = append(keys, "idx:"+strconv.Itoa(*frag.Index))
	}
	return keys
}
