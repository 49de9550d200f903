package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/response"
)

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	in := service.ReserveInput{
		EventID: chi.URLParam(r, "eventId"),
		Buyer:   delivery.IdentityFrom(r.Context()),
	}
	if !h.validate(w, &in) {
		return
	}

	res, err := h.inventory.Reserve(r.Context(), in)
	if err != nil {
		h.fail(w, r, "Reserve", err)
		return
	}
	response.Created(w, res)
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.inventory.GetReservationFor(r.Context(), delivery.IdentityFrom(r.Context()), chi.URLParam(r, "reservationId"))
	if err != nil {
		h.fail(w, r, "GetReservation", err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.inventory.Cancel(r.Context(), delivery.IdentityFrom(r.Context()), chi.URLParam(r, "reservationId"))
	if err != nil {
		h.fail(w, r, "CancelReservation", err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	out, err := h.payment.BeginCheckout(r.Context(), delivery.IdentityFrom(r.Context()), chi.URLParam(r, "reservationId"))
	if err != nil {
		h.fail(w, r, "Checkout", err)
		return
	}
	response.OK(w, out)
}

// AwaitPayment long-polls the checkout outcome. ?wait accepts a Go duration or
// a number of seconds.
func (h *Handler) AwaitPayment(w http.ResponseWriter, r *http.Request) {
	wait, err := parseWait(r.URL.Query().Get("wait"))
	if err != nil {
		response.Error(w, errInvalidWait)
		return
	}

	out, err := h.payment.AwaitPayment(r.Context(), delivery.IdentityFrom(r.Context()), chi.URLParam(r, "reservationId"), wait)
	if err != nil {
		h.fail(w, r, "AwaitPayment", err)
		return
	}
	response.OK(w, out)
}

func parseWait(v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, strconv.ErrRange
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, strconv.ErrSyntax
	}
	return d, nil
}
