package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/response"
)

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.catalog.ListEvents(r.Context())
	if err != nil {
		h.fail(w, r, "ListEvents", err)
		return
	}
	response.OK(w, events)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.catalog.GetEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.fail(w, r, "GetEvent", err)
		return
	}
	response.OK(w, event)
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	a, err := h.catalog.GetAvailability(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.fail(w, r, "GetAvailability", err)
		return
	}
	response.OK(w, newAvailabilityResponse(a))
}
