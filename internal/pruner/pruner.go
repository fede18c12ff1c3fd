// Package pruner removes transaction-time-expired nodes from the graph,
// archiving them to blob storage first. Archive failures abort the prune:
// a node is never deleted before its archive line is durably stored.
package pruner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"engram/internal/graph"
)

// deleteBatchSize bounds each DETACH DELETE so a large backlog cannot
// hold a long write transaction.
const deleteBatchSize = 5000

// ArchiveStore is the subset of blob storage the pruner needs.
type ArchiveStore interface {
	Save(ctx context.Context, content string) (string, error)
}

// Stats reports the outcome of one prune run.
type Stats struct {
	Archived   int
	Deleted    int
	ArchiveURI string
	Threshold  int64
}

// Pruner archives and deletes nodes whose transaction interval closed
// before the retention threshold. store may be nil, in which case nodes
// are deleted without archival.
type Pruner struct {
	graph  graph.Client
	store  ArchiveStore
	logger *slog.Logger
}

func New(client graph.Client, store ArchiveStore, logger *slog.Logger) *Pruner {
	return &Pruner{graph: client, store: store, logger: logger}
}

// PruneHistory removes every node with tt_end earlier than now minus
// retention. The open-end sentinel is MaxInt64, so live nodes never fall
// under any finite threshold.
func (p *Pruner) PruneHistory(ctx context.Context, retention time.Duration) (Stats, error) {
	threshold := nowFn().Add(-retention).UnixMilli()
	stats := Stats{Threshold: threshold}

	if p.store != nil {
		uri, archived, err := p.archive(ctx, threshold)
		if err != nil {
			return stats, err
		}
		stats.Archived = archived
		stats.ArchiveURI = uri
	}

	deleted, err := p.deleteExpired(ctx, threshold)
	if err != nil {
		return stats, err
	}
	stats.Deleted = deleted

	if stats.Deleted > 0 || stats.Archived > 0 {
		p.logger.Info("prune completed",
			"archived", stats.Archived,
			"deleted", stats.Deleted,
			"threshold", threshold,
			"archive_uri", stats.ArchiveURI,
		)
	}
	return stats, nil
}

// archive reads every expired node and writes one JSONL blob, one line
// per node, via a single Save call. Zero matches skips the store entirely.
func (p *Pruner) archive(ctx context.Context, threshold int64) (string, int, error) {
	rows, err := p.graph.Query(ctx,
		`MATCH (n) WHERE n.tt_end < $threshold
		 RETURN id(n) AS node_id, labels(n) AS labels, properties(n) AS props`,
		map[string]any{"threshold": threshold},
	)
	if err != nil {
		return "", 0, err
	}
	if len(rows) == 0 {
		return "", 0, nil
	}

	archivedAt := nowFn().UnixMilli()
	var buf strings.Builder
	for _, row := range rows {
		nodeID, _ := row.Int("node_id")

		record := map[string]any{
			"_archived_at": archivedAt,
			"_threshold":   threshold,
			"_node_id":     nodeID,
			"labels":       row.Strings("labels"),
		}
		for k, v := range row.Map("props") {
			record[k] = v
		}

		line, err := json.Marshal(record)
		if err != nil {
			return "", 0, fmt.Errorf("marshal archive record for node %d: %w", nodeID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	uri, err := p.store.Save(ctx, buf.String())
	if err != nil {
		return "", 0, fmt.Errorf("save archive: %w", err)
	}
	return uri, len(rows), nil
}

// deleteExpired removes expired nodes in bounded batches until none
// remain.
func (p *Pruner) deleteExpired(ctx context.Context, threshold int64) (int, error) {
	total := 0
	for {
		rows, err := p.graph.Query(ctx,
			`MATCH (n) WHERE n.tt_end < $threshold
			 WITH n LIMIT $batch
			 DETACH DELETE n
			 RETURN count(n) AS deleted`,
			map[string]any{"threshold": threshold, "batch": deleteBatchSize},
		)
		if err != nil {
			return total, err
		}

		deleted := int64(0)
		if len(rows) > 0 {
			deleted, _ = rows[0].Int("deleted")
		}
		total += int(deleted)
		if deleted < deleteBatchSize {
			return total, nil
		}
	}
}

// Run prunes on a fixed interval until ctx is done. Failures are logged
// and the next tick retries.
func (p *Pruner) Run(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PruneHistory(ctx, retention); err != nil {
				p.logger.Error("prune failed", "error", err)
			}
		}
	}
}

var nowFn = time.Now
