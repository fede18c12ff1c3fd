package ingest

import "encoding/json"

// OpenAIParser normalizes OpenAI-style chat completion chunks:
// choices[0].delta for content and tool calls, a top-level usage object on
// the final chunk (stream_options include_usage).
type OpenAIParser struct{}

type openAIChunk struct {
	Usage *struct {
		PromptTokens     *int `json:"prompt_tokens"`
		CompletionTokens *int `json:"completion_tokens"`
	} `json:"usage"`
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Delta        *struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    *int   `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
}

func (p *OpenAIParser) Parse(payload json.RawMessage) (*Delta, error) {
	var chunk openAIChunk
	if err := decodeObject("openai", payload, &chunk); err != nil {
		return nil, err
	}

	if chunk.Usage != nil {
		return &Delta{
			Type: DeltaUsage,
			Usage: &Usage{
				Input:  chunk.Usage.PromptTokens,
				Output: chunk.Usage.CompletionTokens,
			},
		}, nil
	}

	if len(chunk.Choices) == 0 {
		return nil, nil
	}
	choice := chunk.Choices[0]

	if delta := choice.Delta; delta != nil {
		if delta.Content != "" {
			role := delta.Role
			if role == "" {
				role = "assistant"
			}
			return &Delta{Type: DeltaContent, Role: role, Content: delta.Content}, nil
		}

		if len(delta.ToolCalls) > 0 {
			// id and name are usually only present in the first chunk;
			// later chunks carry argument fragments keyed by index.
			tc := delta.ToolCalls[0]
			return &Delta{
				Type: DeltaToolCall,
				ToolCall: &ToolCallFragment{
					Index:        tc.Index,
					ID:           tc.ID,
					Name:         tc.Function.Name,
					ArgsFragment: tc.Function.Arguments,
				},
			}, nil
		}
	}

	if choice.FinishReason != "" {
		return &Delta{Type: DeltaStop, StopReason: choice.FinishReason}, nil
	}

	return nil, nil
}
