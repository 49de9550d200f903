package http

import (
	"time"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
)

type availabilityResponse struct {
	EventID          string    `json:"event_id"`
	TicketCapacity   int64     `json:"ticket_capacity"`
	AvailableTickets int64     `json:"available_tickets"`
	TicketsSold      int64     `json:"tickets_sold"`
	Held             int64     `json:"held"`
	Seq              int64     `json:"seq"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newAvailabilityResponse(a models.Availability) availabilityResponse {
	return availabilityResponse{
		EventID:          a.EventID,
		TicketCapacity:   a.TicketCapacity,
		AvailableTickets: a.AvailableTickets,
		TicketsSold:      a.TicketsSold,
		Held:             a.Held(),
		Seq:              a.Seq,
		UpdatedAt:        a.UpdatedAt,
	}
}

const (
	paymentEventSucceeded = "payment.succeeded"
	paymentEventFailed    = "payment.failed"
)

type webhookRequest struct {
	Event         string `json:"event" validate:"required"`
	ReservationID string `json:"reservation_id" validate:"required"`
	TxRef         string `json:"tx_ref"`
	Reason        string `json:"reason"`
}

const (
	wsActionSubscribe   = "subscribe"
	wsActionUnsubscribe = "unsubscribe"

	wsTypeAvailability = "availability"
	wsTypeSubscribed   = "subscribed"
	wsTypeUnsubscribed = "unsubscribed"
	wsTypeError        = "error"
)

type wsRequest struct {
	Action  string `json:"action" validate:"required,oneof=subscribe unsubscribe"`
	EventID string `json:"event_id" validate:"required"`
}

type wsMessage struct {
	Type             string     `json:"type"`
	EventID          string     `json:"event_id,omitempty"`
	AvailableTickets *int64     `json:"available_tickets,omitempty"`
	TicketsSold      *int64     `json:"tickets_sold,omitempty"`
	TicketCapacity   *int64     `json:"ticket_capacity,omitempty"`
	Seq              int64      `json:"seq,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
	Message          string     `json:"message,omitempty"`
}

func newWSAvailability(a models.Availability) wsMessage {
	return wsMessage{
		Type:             wsTypeAvailability,
		EventID:          a.EventID,
		AvailableTickets: &a.AvailableTickets,
		TicketsSold:      &a.TicketsSold,
		TicketCapacity:   &a.TicketCapacity,
		Seq:              a.Seq,
		UpdatedAt:        &a.UpdatedAt,
	}
}
