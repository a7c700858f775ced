package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/worthlabs/worthhub/internal/domain"
)

// EventService defines the methods the events handler requires from the
// service layer.
type EventService interface {
	RecentEvents(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error)
	ListAudit(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// EventsHandler serves the event journal and audit log endpoints.
type EventsHandler struct {
	events EventService
	logger *slog.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(events EventService, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{events: events, logger: logHandler(logger, "events")}
}

// eventEntry pairs a stream position with the decoded event payload so
// clients can resume reading with after=<id>.
type eventEntry struct {
	ID    string          `json:"id"`
	Event json.RawMessage `json:"event"`
}

// ListEvents returns lifecycle events from the durable journal.
// GET /api/events?after=0&limit=100
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	if after == "" {
		after = "0"
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	msgs, err := h.events.RecentEvents(r.Context(), after, limit)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to read events")
		return
	}

	entries := make([]eventEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, eventEntry{ID: m.ID, Event: m.Payload})
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": entries})
}

// ListAudit returns recent audit entries, newest first.
// GET /api/audit?limit=50&offset=0
func (h *EventsHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.events.ListAudit(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to list audit log")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
