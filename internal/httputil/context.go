package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	agentIDKey contextKey = "agentID"
)

// WithAgentID adds the authenticated agent id to the request context
func WithAgentID(r *http.Request, agentID string) *http.Request {
	ctx := context.WithValue(r.Context(), agentIDKey, agentID)
	return r.WithContext(ctx)
}

// GetAgentID retrieves the agent id from context, returns empty string if not found
func GetAgentID(r *http.Request) string {
	agentID, _ := r.Context().Value(agentIDKey).(string)
	return agentID
}
