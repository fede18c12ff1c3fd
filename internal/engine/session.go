package engine

import (
	"context"
	"log/slog"
	"strings"

	model "engram/internal/domain/models/graph"
	"engram/internal/graph"
)

// SessionInitializer idempotently ensures a Session node exists before
// any turn processing for that session.
//
// The check-then-create below is two round trips and racy on its own;
// race safety comes from the Session.id uniqueness constraint the graph
// client installs at connect time. A losing concurrent CREATE fails the
// constraint and is treated as success: someone ensured the session.
type SessionInitializer struct {
	graph  graph.Client
	logger *slog.Logger
}

func NewSessionInitializer(client graph.Client, logger *slog.Logger) *SessionInitializer {
	return &SessionInitializer{graph: client, logger: logger}
}

// EnsureSession guarantees at most one Session node per id.
func (si *SessionInitializer) EnsureSession(ctx context.Context, sessionID string) error {
	rows, err := si.graph.Query(ctx,
		`MATCH (s:Session {id: $id}) RETURN s.id AS id`,
		map[string]any{"id": sessionID},
	)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}

	bt := model.NewOpenInterval(nowFn())
	params := map[string]any{"id": sessionID}
	for k, v := range bt.Props() {
		params[k] = v
	}

	_, err = si.graph.Query(ctx,
		`CREATE (s:Session {
			id: $id,
			vt_start: $vt_start, vt_end: $vt_end,
			tt_start: $tt_start, tt_end: $tt_end
		})`,
		params,
	)
	if err != nil {
		if isConstraintViolation(err) {
			si.logger.Debug("session created concurrently", "session_id", sessionID)
			return nil
		}
		return err
	}

	si.logger.Info("session created", "session_id", sessionID)
	return nil
}

func isConstraintViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "ConstraintValidationFailed") ||
		strings.Contains(msg, "already exists")
}
