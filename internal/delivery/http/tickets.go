package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/response"
)

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := service.ListTicketsInput{
		EventID: q.Get("event_id"),
		Search:  q.Get("search"),
	}

	var err error
	if v := q.Get("all"); v != "" {
		if in.All, err = strconv.ParseBool(v); err != nil {
			response.ValidationError(w, map[string]string{"all": "bool"})
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		if in.Limit, err = strconv.Atoi(v); err != nil {
			response.ValidationError(w, map[string]string{"limit": "number"})
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if in.Offset, err = strconv.Atoi(v); err != nil {
			response.ValidationError(w, map[string]string{"offset": "number"})
			return
		}
	}
	if !h.validate(w, &in) {
		return
	}

	tickets, err := h.tickets.ListTickets(r.Context(), delivery.IdentityFrom(r.Context()), in)
	if err != nil {
		h.fail(w, r, "ListTickets", err)
		return
	}
	response.OK(w, tickets)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.tickets.GetTicket(r.Context(), delivery.IdentityFrom(r.Context()), chi.URLParam(r, "ticketId"))
	if err != nil {
		h.fail(w, r, "GetTicket", err)
		return
	}
	response.OK(w, t)
}

func (h *Handler) InvalidateTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.tickets.InvalidateTicket(r.Context(), delivery.IdentityFrom(r.Context()), chi.URLParam(r, "ticketId"))
	if err != nil {
		h.fail(w, r, "InvalidateTicket", err)
		return
	}
	response.OK(w, t)
}

func (h *Handler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	var in service.VerifyQRInput
	if !h.decode(w, r, &in) {
		return
	}

	out, err := h.tickets.VerifyQR(r.Context(), delivery.IdentityFrom(r.Context()), in)
	if err != nil {
		h.fail(w, r, "VerifyTicket", err)
		return
	}
	response.OK(w, out)
}
