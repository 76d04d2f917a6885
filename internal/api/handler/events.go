package handler

import (
	"net/http"

	"github.com/mcoot/quill/internal/api/middleware"
	"github.com/mcoot/quill/internal/events"
)

// EventsHandler streams session events to the caller
type EventsHandler struct {
	hubs *events.HubManager
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hubs *events.HubManager) *EventsHandler {
	return &EventsHandler{hubs: hubs}
}

// Stream handles GET /api/v1/auth/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		WriteError(w, NewUnauthorizedError())
		return
	}

	hub := h.hubs.GetOrCreateHub(session.Identity.ID)
	events.ServeSSE(w, r, hub, session.ID)
}
