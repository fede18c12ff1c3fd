package ingest

import (
	"encoding/json"

	"engram/internal/domain"
)

// Parser normalizes one raw provider payload into a canonical Delta.
//
// Returns (nil, nil) when the payload is well-formed but carries no
// actionable delta (e.g. a step-start marker). Only structurally invalid
// payloads produce an error, and it is always a *domain.ParseError.
type Parser interface {
	Parse(payload json.RawMessage) (*Delta, error)
}

// Providers maps a provider name to its parser. Parsers are stateless and
// safe for concurrent use; a single dispatch table is constructed at
// startup and passed where needed, never held as package state.
type Providers map[string]Parser

// DefaultProviders returns the dispatch table for all supported vendors.
func DefaultProviders() Providers {
	return Providers{
		"openai":    &OpenAIParser{},
		"anthropic": &AnthropicParser{},
		"opencode":  &AgentCLIParser{},
	}
}

// Parse dispatches to the parser registered for provider. Unknown
// providers are a parse error: the caller claimed a vendor this build does
// not understand.
func (p Providers) Parse(provider string, payload json.RawMessage) (*Delta, error) {
	parser, ok := p[provider]
	if !ok {
		return nil, &domain.ParseError{Provider: provider, Message: "unknown provider"}
	}
	return parser.Parse(payload)
}

// decodeObject unmarshals a payload that must be a JSON object.
func decodeObject(provider string, payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return &domain.ParseError{Provider: provider, Message: "payload is not a JSON object", Cause: err}
	}
	return nil
}

func intPtr(v int) *int { return &v }
