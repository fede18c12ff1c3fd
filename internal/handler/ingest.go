// Package handler exposes the ingestion HTTP API: stream events in,
// timelines and dead letters out.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"engram/internal/domain"
	"engram/internal/httputil"
	"engram/internal/ingest"
	"engram/internal/repository/postgres"
)

// RawStreamEvent is one provider payload submitted for ingestion.
type RawStreamEvent struct {
	SessionID string          `json:"session_id"`
	Provider  string          `json:"provider"`
	EventID   string          `json:"event_id,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Validate checks required fields before any parsing happens.
func (r RawStreamEvent) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SessionID, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Provider, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Payload, validation.Required),
	)
}

// EventPublisher publishes parsed events keyed by session id.
type EventPublisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// IngestHandler accepts raw stream events, journals them, normalizes them
// through the provider parsers, splits inline thinking blocks, redacts
// secrets, and publishes the result.
type IngestHandler struct {
	providers ingest.Providers
	redactor  *ingest.Redactor
	journal   postgres.JournalRepository
	publisher EventPublisher
	logger    *slog.Logger

	// one thinking extractor per session; extractors carry partial-tag
	// state across requests
	mu         sync.Mutex
	extractors map[string]*ingest.Extractor
}

// NewIngestHandler creates the ingestion handler.
func NewIngestHandler(providers ingest.Providers, redactor *ingest.Redactor, journal postgres.JournalRepository, publisher EventPublisher, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{
		providers:  providers,
		redactor:   redactor,
		journal:    journal,
		publisher:  publisher,
		logger:     logger,
		extractors: make(map[string]*ingest.Extractor),
	}
}

type ingestResponse struct {
	Accepted int    `json:"accepted"`
	Ignored  bool   `json:"ignored,omitempty"`
	EventID  string `json:"event_id"`
}

// Ingest handles one stream event
// POST /api/events
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req RawStreamEvent
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.EventID == "" {
		req.EventID = uuid.NewString()
	}

	ctx := r.Context()

	if err := h.journal.RecordEvent(ctx, &postgres.RawEvent{
		EventID:    req.EventID,
		SessionID:  req.SessionID,
		Provider:   req.Provider,
		Payload:    req.Payload,
		ReceivedAt: time.Now(),
	}); err != nil {
		h.logger.Error("journal write failed", "session_id", req.SessionID, "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "journal unavailable")
		return
	}

	delta, err := h.providers.Parse(req.Provider, req.Payload)
	if err != nil {
		var parseErr *domain.ParseError
		if errors.As(err, &parseErr) {
			h.deadLetter(ctx, &req, parseErr)
			httputil.RespondError(w, parseErr.StatusCode(), parseErr.Error())
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, "parse failed")
		return
	}
	if delta == nil {
		httputil.RespondJSON(w, http.StatusOK, ingestResponse{Ignored: true, EventID: req.EventID})
		return
	}

	events := h.expand(&req, delta)
	for _, ev := range events {
		if err := h.publisher.Publish(ctx, req.SessionID, ev); err != nil {
			h.logger.Error("publish failed", "session_id", req.SessionID, "error", err)
			httputil.RespondError(w, http.StatusServiceUnavailable, "event transport unavailable")
			return
		}
	}

	httputil.RespondJSON(w, http.StatusAccepted, ingestResponse{
		Accepted: len(events),
		EventID:  req.EventID,
	})
}

// expand turns one delta into the parsed events to publish. Content
// deltas pass through the session's thinking extractor and may split
// into a content event and a thought event; everything else passes
// through unchanged. Outbound text is always redacted.
func (h *IngestHandler) expand(req *RawStreamEvent, delta *ingest.Delta) []*ingest.ParsedEvent {
	envelope := func(d ingest.Delta) *ingest.ParsedEvent {
		if d.Session == nil {
			d.Session = &ingest.SessionRef{ID: req.SessionID}
		} else if d.Session.ID == "" {
			d.Session.ID = req.SessionID
		}
		return &ingest.ParsedEvent{
			Delta:           d,
			EventID:         uuid.NewString(),
			OriginalEventID: req.EventID,
			Timestamp:       req.Timestamp,
		}
	}

	if delta.Type != ingest.DeltaContent {
		if delta.Thought != "" {
			delta.Thought = h.redactor.Redact(delta.Thought)
		}
		return []*ingest.ParsedEvent{envelope(*delta)}
	}

	extraction := h.extractor(req.SessionID).Process(delta.Content)

	var events []*ingest.ParsedEvent
	if extraction.Content != "" {
		d := *delta
		d.Content = h.redactor.Redact(extraction.Content)
		events = append(events, envelope(d))
	}
	if extraction.Value != "" {
		d := *delta
		d.Type = ingest.DeltaThought
		d.Content = ""
		d.Thought = h.redactor.Redact(extraction.Value)
		events = append(events, envelope(d))
	}
	return events
}

func (h *IngestHandler) extractor(sessionID string) *ingest.Extractor {
	h.mu.Lock()
	defer h.mu.Unlock()
	ex, ok := h.extractors[sessionID]
	if !ok {
		ex = ingest.NewThinkingExtractor()
		h.extractors[sessionID] = ex
	}
	return ex
}

func (h *IngestHandler) deadLetter(ctx context.Context, req *RawStreamEvent, parseErr *domain.ParseError) {
	err := h.journal.RecordDeadLetter(ctx, &postgres.DeadLetter{
		SessionID:  req.SessionID,
		Provider:   req.Provider,
		Payload:    req.Payload,
		Reason:     parseErr.Error(),
		ReceivedAt: time.Now(),
	})
	if err != nil {
		h.logger.Error("dead letter write failed", "session_id", req.SessionID, "error", err)
	}
}

// DeadLetters lists recently rejected payloads
// GET /api/deadletters
func (h *IngestHandler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	letters, err := h.journal.ListDeadLetters(r.Context(), 100)
	if err != nil {
		h.logger.Error("list dead letters failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "journal unavailable")
		return
	}

	type deadLetterView struct {
		ID         string    `json:"id"`
		SessionID  string    `json:"session_id"`
		Provider   string    `json:"provider"`
		Reason     string    `json:"reason"`
		ReceivedAt time.Time `json:"received_at"`
	}
	views := make([]deadLetterView, 0, len(letters))
	for _, dl := range letters {
		views = append(views, deadLetterView{
			ID:         dl.ID,
			SessionID:  dl.SessionID,
			Provider:   dl.Provider,
			Reason:     dl.Reason,
			ReceivedAt: dl.ReceivedAt,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, views)
}

// HealthCheck reports liveness
// GET /health
func (h *IngestHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
