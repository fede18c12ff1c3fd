package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeExecer struct {
	stmts []string
	err   error
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	return pgconn.CommandTag{}, f.err
}

func TestEnsureSchema(t *testing.T) {
	ctx := context.Background()
	tables := NewTableNames("test_")

	t.Run("creates both tables", func(t *testing.T) {
		db := &fakeExecer{}
		if err := EnsureSchema(ctx, db, tables); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		all := strings.Join(db.stmts, "\n")
		for _, want := range []string{
			"CREATE TABLE IF NOT EXISTS test_raw_events",
			"CREATE TABLE IF NOT EXISTS test_dead_letters",
		} {
			if !strings.Contains(all, want) {
				t.Errorf("missing statement %q", want)
			}
		}
	})

	t.Run("event id is uniquely indexed", func(t *testing.T) {
		db := &fakeExecer{}
		if err := EnsureSchema(ctx, db, tables); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		found := false
		for _, stmt := range db.stmts {
			if strings.Contains(stmt, "CREATE UNIQUE INDEX") && strings.Contains(stmt, "(event_id)") {
				found = true
			}
		}
		if !found {
			t.Error("no unique index on event_id; duplicate events would journal twice")
		}
	})

	t.Run("propagates exec failures", func(t *testing.T) {
		db := &fakeExecer{err: errors.New("boom")}
		if err := EnsureSchema(ctx, db, tables); err == nil {
			t.Fatal("expected error")
		}
	})
}
