package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/ender-accounts/internal/api/render"
	"github.com/isdelr/ender-accounts/internal/apperrors"
	"github.com/isdelr/ender-accounts/internal/services"
	"github.com/rs/zerolog/log"
)

// defaultEventLimit applies when ?limit is missing or invalid.
const defaultEventLimit = 20

// EventHandler handles HTTP requests related to account events.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent account activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultEventLimit
	}

	events, err := h.service.GetRecentEvents(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve events")
		render.Error(w, r, apperrors.OperationFailed(err, "Failed to retrieve events"))
		return
	}
	render.JSON(w, http.StatusOK, events)
}
