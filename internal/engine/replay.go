package engine

import (
	"context"

	"engram/internal/graph"
)

// TimelineEntry is one Thought in a session's linear history.
type TimelineEntry struct {
	TurnID       string
	Content      string
	InputTokens  int64
	OutputTokens int64
	VTStart      int64
	TTEnd        int64
}

// Replayer reads a session's turn chain back out of the graph.
type Replayer struct {
	graph graph.Client
}

func NewReplayer(client graph.Client) *Replayer {
	return &Replayer{graph: client}
}

// Timeline returns the session's Thoughts in valid-time order by walking
// the TRIGGERS edge and the NEXT chain from the session root. The hop
// bound keeps a corrupted chain from turning into an unbounded traversal.
func (r *Replayer) Timeline(ctx context.Context, sessionID string) ([]TimelineEntry, error) {
	rows, err := r.graph.Query(ctx,
		`MATCH (s:Session {id: $sessionId})-[:TRIGGERS]->(first:Thought)
		 MATCH (first)-[:NEXT*0..100]->(t:Thought)
		 RETURN t.id AS id, t.content AS content,
		        t.input_tokens AS input_tokens, t.output_tokens AS output_tokens,
		        t.vt_start AS vt_start, t.tt_end AS tt_end
		 ORDER BY t.vt_start ASC`,
		map[string]any{"sessionId": sessionID},
	)
	if err != nil {
		return nil, err
	}

	entries := make([]TimelineEntry, 0, len(rows))
	for _, row := range rows {
		var entry TimelineEntry
		entry.InputTokens, _ = row.Int("input_tokens")
		entry.OutputTokens, _ = row.Int("output_tokens")
		entry.VTStart, _ = row.Int("vt_start")
		entry.TTEnd, _ = row.Int("tt_end")
		if id, ok := row["id"].(string); ok {
			entry.TurnID = id
		}
		if content, ok := row["content"].(string); ok {
			entry.Content = content
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
