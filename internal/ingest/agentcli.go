package ingest

import "encoding/json"

// AgentCLIParser normalizes the JSON-lines output of agent CLIs in the
// OpenCode style. Event types:
//
//	step_start  - marker, no delta
//	text        - assistant content with timing and session info
//	tool_use    - complete tool invocation with input state
//	step_finish - token usage, cost, git snapshot, stop reason
type AgentCLIParser struct{}

type agentCLIEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionID"`
	Part      *struct {
		ID        string  `json:"id"`
		MessageID string  `json:"messageID"`
		Text      string  `json:"text"`
		CallID    string  `json:"callID"`
		Tool      string  `json:"tool"`
		Reason    string  `json:"reason"`
		Cost      *float64 `json:"cost"`
		Snapshot  string  `json:"snapshot"`
		Time      *struct {
			Start int64 `json:"start"`
			End   int64 `json:"end"`
		} `json:"time"`
		State *struct {
			Status string          `json:"status"`
			Input  json.RawMessage `json:"input"`
		} `json:"state"`
		Tokens *struct {
			Input     int `json:"input"`
			Output    int `json:"output"`
			Reasoning int `json:"reasoning"`
			Cache     *struct {
				Read  int `json:"read"`
				Write int `json:"write"`
			} `json:"cache"`
		} `json:"tokens"`
	} `json:"part"`
}

func (p *AgentCLIParser) Parse(payload json.RawMessage) (*Delta, error) {
	var ev agentCLIEvent
	if err := decodeObject("opencode", payload, &ev); err != nil {
		return nil, err
	}

	switch ev.Type {
	case "text":
		if ev.Part == nil || ev.Part.Text == "" {
			return nil, nil
		}
		delta := &Delta{
			Type:    DeltaContent,
			Role:    "assistant",
			Content: ev.Part.Text,
		}
		if t := ev.Part.Time; t != nil {
			delta.Timing = &Timing{Start: t.Start, End: t.End}
		}
		delta.Session = sessionRef(&ev)
		return delta, nil

	case "tool_use":
		if ev.Part == nil {
			return nil, nil
		}
		args := "{}"
		if ev.Part.State != nil && len(ev.Part.State.Input) > 0 {
			args = string(ev.Part.State.Input)
		}
		// Agent-CLI calls are identified by callID alone; a synthetic
		// stream index would collide across distinct calls in a turn.
		return &Delta{
			Type:    DeltaToolCall,
			Session: sessionRef(&ev),
			ToolCall: &ToolCallFragment{
				ID:           ev.Part.CallID,
				Name:         ev.Part.Tool,
				ArgsFragment: args,
			},
		}, nil

	case "step_finish":
		if ev.Part == nil || ev.Part.Tokens == nil {
			return nil, nil
		}
		tokens := ev.Part.Tokens
		if tokens.Input == 0 && tokens.Output == 0 {
			return nil, nil
		}
		usage := &Usage{
			Input:     intPtr(tokens.Input),
			Output:    intPtr(tokens.Output),
			Reasoning: intPtr(tokens.Reasoning),
		}
		if tokens.Cache != nil {
			usage.CacheRead = intPtr(tokens.Cache.Read)
			usage.CacheWrite = intPtr(tokens.Cache.Write)
		}
		delta := &Delta{
			Type:        DeltaUsage,
			Usage:       usage,
			Cost:        ev.Part.Cost,
			GitSnapshot: ev.Part.Snapshot,
			StopReason:  ev.Part.Reason,
			Session:     sessionRef(&ev),
		}
		return delta, nil

	case "step_start":
		return nil, nil
	}

	return nil, nil
}

func sessionRef(ev *agentCLIEvent) *SessionRef {
	ref := &SessionRef{ID: ev.SessionID}
	if ev.Part != nil {
		ref.MessageID = ev.Part.MessageID
		ref.PartID = ev.Part.ID
	}
	if ref.ID == "" && ref.MessageID == "" && ref.PartID == "" {
		return nil
	}
	return ref
}
