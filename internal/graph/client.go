// Package graph provides the knowledge-graph store client. Handlers and
// the pruner depend only on the Client interface; the Neo4j-backed
// implementation lives in this package, test fakes live with their tests.
package graph

import "context"

// Node is a graph node as returned by queries.
type Node struct {
	ID     int64
	Labels []string
	Props  map[string]any
}

// Edge is a graph relationship as returned by queries.
type Edge struct {
	ID            int64
	SourceID      int64
	DestinationID int64
	Type          string
	Props         map[string]any
}

// Row is one result row keyed by return alias. Values are Node, Edge,
// []any, or plain scalars depending on the query.
type Row map[string]any

// Node returns the node stored under key, if any.
func (r Row) Node(key string) (Node, bool) {
	n, ok := r[key].(Node)
	return n, ok
}

// Int returns the integer stored under key, tolerating the numeric types
// drivers hand back.
func (r Row) Int(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Strings returns the string list stored under key.
func (r Row) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Map returns the property map stored under key.
func (r Row) Map(key string) map[string]any {
	m, _ := r[key].(map[string]any)
	return m
}

// Client is the graph store contract. Queries are always parameterized;
// untrusted values never reach the statement text. Implementations must be
// safe for concurrent callers (pooled connections).
type Client interface {
	Connect(ctx context.Context) error
	Query(ctx context.Context, cypher string, params map[string]any) ([]Row, error)
	Disconnect(ctx context.Context) error
}
