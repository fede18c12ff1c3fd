package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is the slice of pgxpool.Pool that schema setup needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the journal tables and indexes if they do not
// exist. The unique index on event_id is what makes RecordEvent treat a
// replayed event id as a duplicate instead of a second row.
func EnsureSchema(ctx context.Context, db execer, tables *TableNames) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				event_id TEXT NOT NULL,
				session_id TEXT NOT NULL,
				provider TEXT NOT NULL,
				payload JSONB NOT NULL,
				received_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.RawEvents),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_event_id_unique ON %s (event_id)`,
			tables.RawEvents, tables.RawEvents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_session_received_idx ON %s (session_id, received_at)`,
			tables.RawEvents, tables.RawEvents),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				session_id TEXT NOT NULL,
				provider TEXT NOT NULL,
				payload JSONB NOT NULL,
				reason TEXT NOT NULL,
				received_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.DeadLetters),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_received_idx ON %s (received_at)`,
			tables.DeadLetters, tables.DeadLetters),
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure journal schema: %w", err)
		}
	}
	return nil
}
