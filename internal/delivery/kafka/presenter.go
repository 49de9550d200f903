package kafka

import "time"

// Events published BY Inventory Service

type ReservationHeldEvent struct {
	ReservationID    string    `json:"reservation_id"`
	EventID          string    `json:"event_id"`
	BuyerID          string    `json:"buyer_id"`
	ExpiresAt        time.Time `json:"expires_at"`
	AvailableTickets int64     `json:"available_tickets"`
	Timestamp        time.Time `json:"timestamp"`
}

type ReservationReleasedEvent struct {
	ReservationID    string    `json:"reservation_id"`
	EventID          string    `json:"event_id"`
	BuyerID          string    `json:"buyer_id"`
	Reason           string    `json:"reason"` // cancelled, payment_failed, expired
	AvailableTickets int64     `json:"available_tickets"`
	Timestamp        time.Time `json:"timestamp"`
}

type TicketIssuedEvent struct {
	ID            string    `json:"id"`
	TicketID      string    `json:"ticket_id"`
	ReservationID string    `json:"reservation_id"`
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	TxRef         string    `json:"tx_ref"`
	IssuedAt      time.Time `json:"issued_at"`
	Timestamp     time.Time `json:"timestamp"`
}

// TicketIssuanceFailedEvent feeds operational alerting: the buyer paid but has no ticket yet.
type TicketIssuanceFailedEvent struct {
	ReservationID string    `json:"reservation_id"`
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	TxRef         string    `json:"tx_ref"`
	Error         string    `json:"error"`
	Timestamp     time.Time `json:"timestamp"`
}

// Events consumed BY Inventory Service (from Payment Service)

type PaymentSucceededEvent struct {
	ReservationID string    `json:"reservation_id"`
	TxRef         string    `json:"tx_ref"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}

type PaymentFailedEvent struct {
	ReservationID string    `json:"reservation_id"`
	TxRef         string    `json:"tx_ref"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}
