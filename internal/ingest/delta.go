package ingest

// DeltaType tags the primary concern a canonical delta carries.
type DeltaType string

const (
	DeltaContent  DeltaType = "content"
	DeltaThought  DeltaType = "thought"
	DeltaToolCall DeltaType = "tool_call"
	DeltaUsage    DeltaType = "usage"
	DeltaDiff     DeltaType = "diff"
	DeltaControl  DeltaType = "control"
	DeltaStop     DeltaType = "stop"
)

// ToolCallFragment is a partial tool invocation. Argument JSON arrives as
// fragments that the consumer concatenates in arrival order; they are never
// parsed here.
type ToolCallFragment struct {
	Index        *int   `json:"index,omitempty"`
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	ArgsFragment string `json:"arguments_delta,omitempty"`
}

// Usage carries token counts. Nil means "not present in this chunk",
// not zero.
type Usage struct {
	Input      *int `json:"input,omitempty"`
	Output     *int `json:"output,omitempty"`
	Reasoning  *int `json:"reasoning,omitempty"`
	CacheRead  *int `json:"cache_read,omitempty"`
	CacheWrite *int `json:"cache_write,omitempty"`
}

// Timing is the wall-clock span a provider reported for a part.
type Timing struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// SessionRef identifies where in a session a delta belongs.
type SessionRef struct {
	ID        string `json:"id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	PartID    string `json:"part_id,omitempty"`
}

// Diff is a file diff attached to a stream event.
type Diff struct {
	File string `json:"file,omitempty"`
	Hunk string `json:"hunk,omitempty"`
}

// Delta is the canonical normalized stream event produced by provider
// parsers and consumed by the turn engine. A delta carries at most one
// primary concern (Type), but secondary fields may co-occur (role with
// content, stop reason with usage).
type Delta struct {
	Type        DeltaType         `json:"type,omitempty"`
	Role        string            `json:"role,omitempty"`
	Content     string            `json:"content,omitempty"`
	Thought     string            `json:"thought,omitempty"`
	Diff        *Diff             `json:"diff,omitempty"`
	ToolCall    *ToolCallFragment `json:"tool_call,omitempty"`
	Usage       *Usage            `json:"usage,omitempty"`
	StopReason  string            `json:"stop_reason,omitempty"`
	Timing      *Timing           `json:"timing,omitempty"`
	Session     *SessionRef       `json:"session,omitempty"`
	Cost        *float64          `json:"cost,omitempty"`
	GitSnapshot string            `json:"git_snapshot,omitempty"`
}

// ParsedEvent is a delta enriched with envelope metadata, as published on
// the parsed-events topic.
type ParsedEvent struct {
	Delta
	EventID         string `json:"event_id"`
	OriginalEventID string `json:"original_event_id,omitempty"`
	Timestamp       string `json:"timestamp,omitempty"`
}
