package ingest

import "encoding/json"

// AnthropicParser normalizes Anthropic messages-API stream events:
// content_block_start/content_block_delta for text, thinking and tool-use
// input fragments, message_delta for final usage and stop reason.
//
// message_start is recognized but yields no delta: its input-token count
// reappears on message_delta in current API versions, and emitting a usage
// delta at turn start would finalize the turn before it produced anything.
type AnthropicParser struct{}

type anthropicEvent struct {
	Type  string `json:"type"`
	Index *int   `json:"index"`

	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`

	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`

	Usage *struct {
		InputTokens  *int `json:"input_tokens"`
		OutputTokens *int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *AnthropicParser) Parse(payload json.RawMessage) (*Delta, error) {
	var ev anthropicEvent
	if err := decodeObject("anthropic", payload, &ev); err != nil {
		return nil, err
	}

	switch ev.Type {
	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
			return &Delta{
				Type: DeltaToolCall,
				ToolCall: &ToolCallFragment{
					Index: ev.Index,
					ID:    ev.ContentBlock.ID,
					Name:  ev.ContentBlock.Name,
				},
			}, nil
		}
		return nil, nil

	case "content_block_delta":
		if ev.Delta == nil {
			return nil, nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			return &Delta{Type: DeltaContent, Role: "assistant", Content: ev.Delta.Text}, nil
		case "thinking_delta":
			return &Delta{Type: DeltaThought, Thought: ev.Delta.Thinking}, nil
		case "input_json_delta":
			return &Delta{
				Type: DeltaToolCall,
				ToolCall: &ToolCallFragment{
					Index:        ev.Index,
					ArgsFragment: ev.Delta.PartialJSON,
				},
			}, nil
		}
		return nil, nil

	case "message_delta":
		delta := &Delta{}
		if ev.Usage != nil && (ev.Usage.InputTokens != nil || ev.Usage.OutputTokens != nil) {
			delta.Type = DeltaUsage
			delta.Usage = &Usage{Input: ev.Usage.InputTokens, Output: ev.Usage.OutputTokens}
		}
		if ev.Delta != nil && ev.Delta.StopReason != "" {
			if delta.Type == "" {
				delta.Type = DeltaStop
			}
			delta.StopReason = ev.Delta.StopReason
		}
		if delta.Type == "" {
			return nil, nil
		}
		return delta, nil
	}

	return nil, nil
}
