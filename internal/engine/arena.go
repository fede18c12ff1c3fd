package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"engram/internal/graph"
)

// Arena owns one TurnEngine per active session. Engines are created on
// first use and evicted after sitting idle for the configured TTL, which
// bounds memory for long-running consumers across many short sessions.
type Arena struct {
	graph    graph.Client
	registry *Registry
	logger   *slog.Logger
	notify   Notifier
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]*arenaEntry
}

type arenaEntry struct {
	engine   *TurnEngine
	lastUsed time.Time
}

// NewArena creates an arena. ttl <= 0 disables eviction.
func NewArena(client graph.Client, registry *Registry, logger *slog.Logger, notify Notifier, ttl time.Duration) *Arena {
	return &Arena{
		graph:    client,
		registry: registry,
		logger:   logger,
		notify:   notify,
		ttl:      ttl,
		entries:  make(map[string]*arenaEntry),
	}
}

// Engine returns the engine for sessionID, creating it if needed.
func (a *Arena) Engine(sessionID string) *TurnEngine {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.entries[sessionID]
	if !ok {
		entry = &arenaEntry{
			engine: NewTurnEngine(sessionID, a.graph, a.registry, a.logger, a.notify),
		}
		a.entries[sessionID] = entry
		a.logger.Debug("engine created", "session_id", sessionID)
	}
	entry.lastUsed = nowFn()
	return entry.engine
}

// Evict removes a session's engine, discarding any unfinalized state.
func (a *Arena) Evict(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, sessionID)
}

// Len reports the number of live engines.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Sweep evicts engines idle longer than the TTL and returns how many
// were removed.
func (a *Arena) Sweep() int {
	if a.ttl <= 0 {
		return 0
	}
	cutoff := nowFn().Add(-a.ttl)

	a.mu.Lock()
	defer a.mu.Unlock()

	evicted := 0
	for id, entry := range a.entries {
		if entry.lastUsed.Before(cutoff) {
			delete(a.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		a.logger.Info("idle engines evicted", "count", evicted, "remaining", len(a.entries))
	}
	return evicted
}

// Run sweeps periodically until ctx is done.
func (a *Arena) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep()
		}
	}
}
