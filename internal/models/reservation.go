package models

import "time"

type ReservationState string

const (
	ReservationStateHeld      ReservationState = "held"
	ReservationStateConfirmed ReservationState = "confirmed"
	ReservationStateReleased  ReservationState = "released"
	ReservationStateExpired   ReservationState = "expired"
)

type Reservation struct {
	ID          string           `json:"id"`
	EventID     string           `json:"event_id"`
	BuyerID     string           `json:"buyer_id"`
	BuyerName   string           `json:"buyer_name,omitempty"`
	BuyerEmail  string           `json:"buyer_email,omitempty"`
	State       ReservationState `json:"state"`
	TxRef       string           `json:"tx_ref,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
	ConfirmedAt *time.Time       `json:"confirmed_at,omitempty"`
	ReleasedAt  *time.Time       `json:"released_at,omitempty"`
}

func (r *Reservation) IsHeld() bool {
	return r.State == ReservationStateHeld
}

func (r *Reservation) IsTerminal() bool {
	return r.State == ReservationStateConfirmed ||
		r.State == ReservationStateReleased ||
		r.State == ReservationStateExpired
}

// IsExpired reports whether a held reservation has outlived its hold at now.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.IsHeld() && !now.Before(r.ExpiresAt)
}
