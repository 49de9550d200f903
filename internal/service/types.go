package service

import (
	"time"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/payment"
)

type ReleaseReason string

const (
	ReleaseReasonCancelled     ReleaseReason = "cancelled"
	ReleaseReasonPaymentFailed ReleaseReason = "payment_failed"
	ReleaseReasonExpired       ReleaseReason = "expired"
)

type RegisterEventInput struct {
	ID             string  `json:"id" validate:"required"`
	Title          string  `json:"title" validate:"required"`
	OrganizerID    string  `json:"organizer_id"`
	EventDate      string  `json:"event_date"`
	EventTime      string  `json:"event_time"`
	TicketPrice    float64 `json:"ticket_price" validate:"gte=0"`
	TicketCapacity int64   `json:"ticket_capacity" validate:"gte=0"`
}

type ReserveInput struct {
	EventID string          `json:"event_id" validate:"required"`
	Buyer   models.Identity `json:"-"`
}

type PaymentConfirmedInput struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	TxRef         string `json:"tx_ref"`
}

type PaymentFailedInput struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	TxRef         string `json:"tx_ref"`
	Reason        string `json:"reason"`
}

type CheckoutOutput struct {
	ReservationID string         `json:"reservation_id"`
	EventID       string         `json:"event_id"`
	Amount        int64          `json:"amount"` // minor units
	Currency      string         `json:"currency"`
	ExpiresAt     time.Time      `json:"expires_at"`
	Status        payment.Status `json:"status"`
	TicketID      string         `json:"ticket_id,omitempty"`
}

type PaymentStatusOutput struct {
	ReservationID string                  `json:"reservation_id"`
	State         models.ReservationState `json:"state"`
	payment.Result
}

type ListTicketsInput struct {
	EventID string `json:"event_id"`
	Search  string `json:"search" validate:"max=100"`
	All     bool   `json:"all"`
	Limit   int    `json:"limit" validate:"gte=0,lte=200"`
	Offset  int    `json:"offset" validate:"gte=0"`
}

type VerifyQRInput struct {
	Payload string `json:"payload" validate:"required"`
}

type VerifyQROutput struct {
	Valid  bool           `json:"valid"`
	Ticket *models.Ticket `json:"ticket,omitempty"`
	Reason string         `json:"reason,omitempty"`
}

type SweepResult struct {
	Expired  int `json:"expired"`
	Reissued int `json:"reissued"`
	Failed   int `json:"failed"`
}
