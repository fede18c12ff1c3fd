package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"engram/internal/domain"
)

// RawEvent is one accepted provider payload, stored verbatim before any
// normalization so streams can be re-parsed after parser fixes.
type RawEvent struct {
	ID         string
	EventID    string
	SessionID  string
	Provider   string
	Payload    []byte
	ReceivedAt time.Time
}

// DeadLetter is a payload that failed parsing, kept for diagnosis.
type DeadLetter struct {
	ID         string
	SessionID  string
	Provider   string
	Payload    []byte
	Reason     string
	ReceivedAt time.Time
}

// JournalRepository records the ingestion journal.
type JournalRepository interface {
	RecordEvent(ctx context.Context, event *RawEvent) error
	RecordDeadLetter(ctx context.Context, letter *DeadLetter) error
	EventsBySession(ctx context.Context, sessionID string, limit int) ([]RawEvent, error)
	ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error)
}

// PostgresJournalRepository implements the JournalRepository interface
type PostgresJournalRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(config *RepositoryConfig) JournalRepository {
	return &PostgresJournalRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// RecordEvent inserts one raw event. Replaying the same event id is
// treated as success so redelivered payloads journal cleanly.
func (r *PostgresJournalRepository) RecordEvent(ctx context.Context, event *RawEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (event_id, session_id, provider, payload, received_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.tables.RawEvents)

	err := r.pool.QueryRow(ctx, query,
		event.EventID,
		event.SessionID,
		event.Provider,
		event.Payload,
		event.ReceivedAt,
	).Scan(&event.ID)

	if err != nil {
		if isPgDuplicateError(err) {
			return nil
		}
		return &domain.StorageError{Operation: "record event", Cause: err}
	}

	return nil
}

// RecordDeadLetter inserts one rejected payload.
func (r *PostgresJournalRepository) RecordDeadLetter(ctx context.Context, letter *DeadLetter) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (session_id, provider, payload, reason, received_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.tables.DeadLetters)

	err := r.pool.QueryRow(ctx, query,
		letter.SessionID,
		letter.Provider,
		letter.Payload,
		letter.Reason,
		letter.ReceivedAt,
	).Scan(&letter.ID)

	if err != nil {
		return &domain.StorageError{Operation: "record dead letter", Cause: err}
	}

	return nil
}

// EventsBySession retrieves a session's raw events in arrival order.
func (r *PostgresJournalRepository) EventsBySession(ctx context.Context, sessionID string, limit int) ([]RawEvent, error) {
	query := fmt.Sprintf(`
		SELECT id, event_id, session_id, provider, payload, received_at
		FROM %s
		WHERE session_id = $1
		ORDER BY received_at ASC
		LIMIT $2
	`, r.tables.RawEvents)

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, &domain.StorageError{Operation: "list events", Cause: err}
	}
	defer rows.Close()

	var events []RawEvent
	for rows.Next() {
		var ev RawEvent
		err := rows.Scan(
			&ev.ID,
			&ev.EventID,
			&ev.SessionID,
			&ev.Provider,
			&ev.Payload,
			&ev.ReceivedAt,
		)
		if err != nil {
			return nil, &domain.StorageError{Operation: "scan event", Cause: err}
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Operation: "iterate events", Cause: err}
	}

	if events == nil {
		events = []RawEvent{}
	}

	return events, nil
}

// ListDeadLetters retrieves the most recent rejected payloads.
func (r *PostgresJournalRepository) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, provider, payload, reason, received_at
		FROM %s
		ORDER BY received_at DESC
		LIMIT $1
	`, r.tables.DeadLetters)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, &domain.StorageError{Operation: "list dead letters", Cause: err}
	}
	defer rows.Close()

	var letters []DeadLetter
	for rows.Next() {
		var dl DeadLetter
		err := rows.Scan(
			&dl.ID,
			&dl.SessionID,
			&dl.Provider,
			&dl.Payload,
			&dl.Reason,
			&dl.ReceivedAt,
		)
		if err != nil {
			return nil, &domain.StorageError{Operation: "scan dead letter", Cause: err}
		}
		letters = append(letters, dl)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Operation: "iterate dead letters", Cause: err}
	}

	if letters == nil {
		letters = []DeadLetter{}
	}

	return letters, nil
}
