package models

import "time"

// Availability is a versioned snapshot of an event's counters. Seq grows by one
// on every reserve, release, expire and confirm of that event.
type Availability struct {
	EventID          string    `json:"event_id"`
	TicketCapacity   int64     `json:"ticket_capacity"`
	AvailableTickets int64     `json:"available_tickets"`
	TicketsSold      int64     `json:"tickets_sold"`
	Seq              int64     `json:"seq"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Held is the number of seats currently held but not yet paid for.
func (a Availability) Held() int64 {
	return a.TicketCapacity - a.AvailableTickets - a.TicketsSold
}
