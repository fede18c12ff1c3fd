package pruner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"engram/internal/graph"
)

type recordedQuery struct {
	Cypher string
	Params map[string]any
}

type fakeGraph struct {
	queries     []recordedQuery
	archiveRows []graph.Row
	deleteRuns  []int64
	deleteCalls int
	err         error
}

func (f *fakeGraph) Connect(ctx context.Context) error    { return nil }
func (f *fakeGraph) Disconnect(ctx context.Context) error { return nil }

func (f *fakeGraph) Query(ctx context.Context, cypher string, params map[string]any) ([]graph.Row, error) {
	f.queries = append(f.queries, recordedQuery{Cypher: cypher, Params: params})
	if f.err != nil {
		return nil, f.err
	}
	if strings.Contains(cypher, "DETACH DELETE") {
		deleted := int64(0)
		if f.deleteCalls < len(f.deleteRuns) {
			deleted = f.deleteRuns[f.deleteCalls]
		}
		f.deleteCalls++
		return []graph.Row{{"deleted": deleted}}, nil
	}
	return f.archiveRows, nil
}

type fakeStore struct {
	saves []string
	err   error
}

func (s *fakeStore) Save(ctx context.Context, content string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saves = append(s.saves, content)
	return "file:///archive/deadbeef", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPruneHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes without archiving when no store", func(t *testing.T) {
		fake := &fakeGraph{deleteRuns: []int64{5}}
		p := New(fake, nil, testLogger())

		stats, err := p.PruneHistory(ctx, 24*time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Deleted != 5 || stats.Archived != 0 || stats.ArchiveURI != "" {
			t.Errorf("stats = %+v", stats)
		}
		for _, q := range fake.queries {
			if strings.Contains(q.Cypher, "properties(n)") {
				t.Error("archive query issued with no store configured")
			}
		}
	})

	t.Run("archives matched nodes as JSONL before deleting", func(t *testing.T) {
		fake := &fakeGraph{
			archiveRows: []graph.Row{
				{"node_id": int64(11), "labels": []any{"Thought"}, "props": map[string]any{
					"id": "t1", "content": "hello", "tt_end": int64(100),
				}},
				{"node_id": int64(12), "labels": []any{"Reasoning"}, "props": map[string]any{
					"id": "r1", "tt_end": int64(90),
				}},
			},
			deleteRuns: []int64{2},
		}
		store := &fakeStore{}
		p := New(fake, store, testLogger())

		stats, err := p.PruneHistory(ctx, 24*time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Archived != 2 || stats.Deleted != 2 {
			t.Errorf("stats = %+v", stats)
		}
		if stats.ArchiveURI != "file:///archive/deadbeef" {
			t.Errorf("archive uri = %q", stats.ArchiveURI)
		}

		if len(store.saves) != 1 {
			t.Fatalf("saves = %d, want exactly 1", len(store.saves))
		}
		lines := strings.Split(strings.TrimRight(store.saves[0], "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("archive lines = %d, want 2", len(lines))
		}

		var first map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		if first["_node_id"] != float64(11) {
			t.Errorf("_node_id = %v", first["_node_id"])
		}
		if first["id"] != "t1" || first["content"] != "hello" {
			t.Errorf("props not inlined: %v", first)
		}
		labels, _ := first["labels"].([]any)
		if len(labels) != 1 || labels[0] != "Thought" {
			t.Errorf("labels = %v", first["labels"])
		}
		if _, ok := first["_archived_at"]; !ok {
			t.Error("missing _archived_at")
		}
		if _, ok := first["_threshold"]; !ok {
			t.Error("missing _threshold")
		}
	})

	t.Run("zero matches never touches the store", func(t *testing.T) {
		fake := &fakeGraph{deleteRuns: []int64{0}}
		store := &fakeStore{}
		p := New(fake, store, testLogger())

		stats, err := p.PruneHistory(ctx, 24*time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Archived != 0 || stats.Deleted != 0 {
			t.Errorf("stats = %+v", stats)
		}
		if len(store.saves) != 0 {
			t.Errorf("store saved %d blobs on empty prune", len(store.saves))
		}
	})

	t.Run("archive failure aborts before any delete", func(t *testing.T) {
		fake := &fakeGraph{
			archiveRows: []graph.Row{
				{"node_id": int64(1), "labels": []any{"Thought"}, "props": map[string]any{"id": "t1"}},
			},
		}
		store := &fakeStore{err: errors.New("bucket unreachable")}
		p := New(fake, store, testLogger())

		if _, err := p.PruneHistory(ctx, time.Hour); err == nil {
			t.Fatal("expected error")
		}
		if fake.deleteCalls != 0 {
			t.Errorf("delete ran despite archive failure")
		}
	})

	t.Run("deletes in batches until drained", func(t *testing.T) {
		fake := &fakeGraph{deleteRuns: []int64{deleteBatchSize, deleteBatchSize, 17}}
		p := New(fake, nil, testLogger())

		stats, err := p.PruneHistory(ctx, time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Deleted != 2*deleteBatchSize+17 {
			t.Errorf("deleted = %d", stats.Deleted)
		}
		if fake.deleteCalls != 3 {
			t.Errorf("delete calls = %d, want 3", fake.deleteCalls)
		}
	})

	t.Run("threshold derives from retention", func(t *testing.T) {
		base := time.Now()
		nowFn = func() time.Time { return base }
		defer func() { nowFn = time.Now }()

		fake := &fakeGraph{deleteRuns: []int64{0}}
		p := New(fake, nil, testLogger())

		stats, err := p.PruneHistory(ctx, 48*time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := base.Add(-48 * time.Hour).UnixMilli()
		if stats.Threshold != want {
			t.Errorf("threshold = %d, want %d", stats.Threshold, want)
		}
		if got := fake.queries[0].Params["threshold"]; got != want {
			t.Errorf("query threshold = %v", got)
		}
	})
}
