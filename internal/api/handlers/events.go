package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
)

// EventsHandler accepts the storage upload notification and the dashboard
// trigger.
type EventsHandler struct {
	uploads    UploadProcessor
	dashboards DashboardService
	maxBody    int64
	log        zerolog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(uploads UploadProcessor, dashboards DashboardService, maxBody int64, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{uploads: uploads, dashboards: dashboards, maxBody: maxBody, log: log}
}

// Upload handles POST /api/events/upload
func (h *EventsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	body, ok := h.read(w, r)
	if !ok {
		return
	}
	writeStage(w, h.uploads.HandleUploadEvent(r.Context(), body))
}

// Dashboard handles POST /api/events/dashboard
func (h *EventsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	body, ok := h.read(w, r)
	if !ok {
		return
	}
	writeStage(w, h.dashboards.Handle(r.Context(), body))
}

func (h *EventsHandler) read(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := readBody(w, r, h.maxBody)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Event body too large")
			return nil, false
		}
		h.log.Warn().Err(err).Msg("Failed to read event body")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return body, true
}
