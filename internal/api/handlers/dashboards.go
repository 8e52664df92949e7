package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
)

// DashboardsHandler lists an owner's rendered dashboards.
type DashboardsHandler struct {
	dashboards DashboardService
	log        zerolog.Logger
}

// NewDashboardsHandler creates a new dashboards handler.
func NewDashboardsHandler(dashboards DashboardService, log zerolog.Logger) *DashboardsHandler {
	return &DashboardsHandler{dashboards: dashboards, log: log}
}

// List handles GET /api/dashboards/{user_id}
func (h *DashboardsHandler) List(w http.ResponseWriter, r *http.Request, userID string) {
	urls, err := h.dashboards.ListDashboards(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", userID).Msg("Failed to list dashboards")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list dashboards")
		return
	}
	if urls == nil {
		urls = []string{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    userID,
		"dashboards": urls,
	})
}
