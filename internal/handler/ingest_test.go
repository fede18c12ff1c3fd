package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"engram/internal/ingest"
	"engram/internal/repository/postgres"
)

type fakeJournal struct {
	events      []*postgres.RawEvent
	deadLetters []*postgres.DeadLetter
	eventErr    error
}

func (f *fakeJournal) RecordEvent(ctx context.Context, event *postgres.RawEvent) error {
	if f.eventErr != nil {
		return f.eventErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeJournal) RecordDeadLetter(ctx context.Context, letter *postgres.DeadLetter) error {
	f.deadLetters = append(f.deadLetters, letter)
	return nil
}

func (f *fakeJournal) EventsBySession(ctx context.Context, sessionID string, limit int) ([]postgres.RawEvent, error) {
	return nil, nil
}

func (f *fakeJournal) ListDeadLetters(ctx context.Context, limit int) ([]postgres.DeadLetter, error) {
	out := make([]postgres.DeadLetter, 0, len(f.deadLetters))
	for _, dl := range f.deadLetters {
		out = append(out, *dl)
	}
	return out, nil
}

type fakePublisher struct {
	published []*ingest.ParsedEvent
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, key string, v any) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, v.(*ingest.ParsedEvent))
	return nil
}

func newTestHandler(t *testing.T, journal *fakeJournal, pub *fakePublisher) *IngestHandler {
	t.Helper()
	redactor, err := ingest.NewRedactor()
	if err != nil {
		t.Fatalf("redactor: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewIngestHandler(ingest.DefaultProviders(), redactor, journal, pub, logger)
}

func postEvent(t *testing.T, h *IngestHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Ingest(rec, req)
	return rec
}

func anthropicText(text string) json.RawMessage {
	payload, _ := json.Marshal(map[string]any{
		"type":  "content_block_delta",
		"index": 0,
		"delta": map[string]any{"type": "text_delta", "text": text},
	})
	return payload
}

func TestIngest(t *testing.T) {
	t.Run("rejects missing fields", func(t *testing.T) {
		journal := &fakeJournal{}
		h := newTestHandler(t, journal, &fakePublisher{})

		rec := postEvent(t, h, RawStreamEvent{Provider: "anthropic", Payload: anthropicText("x")})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if len(journal.events) != 0 {
			t.Errorf("invalid request journaled")
		}
	})

	t.Run("journals then publishes content", func(t *testing.T) {
		journal := &fakeJournal{}
		pub := &fakePublisher{}
		h := newTestHandler(t, journal, pub)

		rec := postEvent(t, h, RawStreamEvent{
			SessionID: "sess-1",
			Provider:  "anthropic",
			Payload:   anthropicText("Hello"),
		})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		if len(journal.events) != 1 || journal.events[0].SessionID != "sess-1" {
			t.Errorf("journal = %+v", journal.events)
		}
		if len(pub.published) != 1 {
			t.Fatalf("published = %d, want 1", len(pub.published))
		}
		ev := pub.published[0]
		if ev.Type != ingest.DeltaContent || ev.Content != "Hello" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Session == nil || ev.Session.ID != "sess-1" {
			t.Errorf("session ref = %+v", ev.Session)
		}
		if ev.OriginalEventID == "" || ev.EventID == "" {
			t.Errorf("missing event ids: %+v", ev)
		}
	})

	t.Run("splits inline thinking into a thought event", func(t *testing.T) {
		journal := &fakeJournal{}
		pub := &fakePublisher{}
		h := newTestHandler(t, journal, pub)

		postEvent(t, h, RawStreamEvent{
			SessionID: "sess-1",
			Provider:  "anthropic",
			Payload:   anthropicText("before <thinking>hidden</thinking> after"),
		})

		if len(pub.published) != 2 {
			t.Fatalf("published = %d, want content + thought", len(pub.published))
		}
		if pub.published[0].Type != ingest.DeltaContent || pub.published[0].Content != "before  after" {
			t.Errorf("content event = %+v", pub.published[0])
		}
		if pub.published[1].Type != ingest.DeltaThought || pub.published[1].Thought != "hidden" {
			t.Errorf("thought event = %+v", pub.published[1])
		}
	})

	t.Run("holds partial tags across requests", func(t *testing.T) {
		pub := &fakePublisher{}
		h := newTestHandler(t, &fakeJournal{}, pub)

		postEvent(t, h, RawStreamEvent{
			SessionID: "sess-1", Provider: "anthropic",
			Payload: anthropicText("a<think"),
		})
		postEvent(t, h, RawStreamEvent{
			SessionID: "sess-1", Provider: "anthropic",
			Payload: anthropicText("ing>b</thinking>c"),
		})

		var content, thought string
		for _, ev := range pub.published {
			content += ev.Content
			thought += ev.Thought
		}
		if content != "ac" || thought != "b" {
			t.Errorf("content = %q thought = %q", content, thought)
		}
	})

	t.Run("redacts secrets in outbound content", func(t *testing.T) {
		pub := &fakePublisher{}
		h := newTestHandler(t, &fakeJournal{}, pub)

		postEvent(t, h, RawStreamEvent{
			SessionID: "sess-1",
			Provider:  "anthropic",
			Payload:   anthropicText("key is sk-abcdefghij0123456789xyz ok"),
		})

		if len(pub.published) != 1 {
			t.Fatalf("published = %d", len(pub.published))
		}
		if got := pub.published[0].Content; got != "key is [REDACTED_API_KEY] ok" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("unknown provider dead-letters with 400", func(t *testing.T) {
		journal := &fakeJournal{}
		pub := &fakePublisher{}
		h := newTestHandler(t, journal, pub)

		rec := postEvent(t, h, RawStreamEvent{
			SessionID: "sess-1",
			Provider:  "totally-new-vendor",
			Payload:   json.RawMessage(`{"a":1}`),
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if len(journal.deadLetters) != 1 {
			t.Fatalf("dead letters = %d, want 1", len(journal.deadLetters))
		}
		if journal.deadLetters[0].Reason == "" {
			t.Error("dead letter missing reason")
		}
		if len(pub.published) != 0 {
			t.Error("rejected payload published")
		}
	})

	t.Run("non-actionable payload is ignored with 200", func(t *testing.T) {
		pub := &fakePublisher{}
		h := newTestHandler(t, &fakeJournal{}, pub)

		payload, _ := json.Marshal(map[string]any{"type": "message_start"})
		rec := postEvent(t, h, RawStreamEvent{
			SessionID: "sess-1",
			Provider:  "anthropic",
			Payload:   payload,
		})
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		var resp ingestResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.Ignored {
			t.Error("expected ignored response")
		}
		if len(pub.published) != 0 {
			t.Error("ignored payload published")
		}
	})

	t.Run("journal failure is a 500", func(t *testing.T) {
		journal := &fakeJournal{eventErr: errors.New("db down")}
		pub := &fakePublisher{}
		h := newTestHandler(t, journal, pub)

		rec := postEvent(t, h, RawStreamEvent{
			SessionID: "sess-1",
			Provider:  "anthropic",
			Payload:   anthropicText("x"),
		})
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
		if len(pub.published) != 0 {
			t.Error("unjournaled event published")
		}
	})

	t.Run("publish failure is a 503", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("broker down")}
		h := newTestHandler(t, &fakeJournal{}, pub)

		rec := postEvent(t, h, RawStreamEvent{
			SessionID: "sess-1",
			Provider:  "anthropic",
			Payload:   anthropicText("x"),
		})
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}
