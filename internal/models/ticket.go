package models

import "time"

// TicketDetails is the buyer and event snapshot captured at issuance.
type TicketDetails struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	EventName   string  `json:"event_name"`
	EventDate   string  `json:"event_date,omitempty"`
	EventTime   string  `json:"event_time,omitempty"`
	TicketPrice float64 `json:"ticket_price"`
	QR          string  `json:"qr"`
	QRPayload   string  `json:"qr_payload"`
}

type Ticket struct {
	ID            string        `json:"id"`
	TicketID      string        `json:"ticket_id"`
	ReservationID string        `json:"reservation_id"`
	UserID        string        `json:"user_id"`
	EventID       string        `json:"event_id"`
	Details       TicketDetails `json:"details"`
	TxRef         string        `json:"tx_ref,omitempty"`
	IsValid       bool          `json:"is_valid"`
	CreatedAt     time.Time     `json:"created_at"`
	InvalidatedAt *time.Time    `json:"invalidated_at,omitempty"`
}
