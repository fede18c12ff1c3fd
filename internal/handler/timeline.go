package handler

import (
	"log/slog"
	"net/http"

	"engram/internal/engine"
	"engram/internal/httputil"
)

// TimelineHandler serves read queries over the knowledge graph.
type TimelineHandler struct {
	replayer *engine.Replayer
	logger   *slog.Logger
}

func NewTimelineHandler(replayer *engine.Replayer, logger *slog.Logger) *TimelineHandler {
	return &TimelineHandler{replayer: replayer, logger: logger}
}

type timelineEntryView struct {
	TurnID       string `json:"turn_id"`
	Content      string `json:"content,omitempty"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	VTStart      int64  `json:"vt_start"`
	TTEnd        int64  `json:"tt_end"`
}

// GetTimeline returns a session's turns in valid-time order
// GET /api/sessions/{id}/timeline
func (h *TimelineHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "session id is required")
		return
	}

	entries, err := h.replayer.Timeline(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("timeline query failed", "session_id", sessionID, "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "graph unavailable")
		return
	}

	views := make([]timelineEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, timelineEntryView{
			TurnID:       e.TurnID,
			Content:      e.Content,
			InputTokens:  e.InputTokens,
			OutputTokens: e.OutputTokens,
			VTStart:      e.VTStart,
			TTEnd:        e.TTEnd,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, views)
}
