package models

import "time"

type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	OrganizerID      string    `json:"organizer_id,omitempty"`
	EventDate        string    `json:"event_date,omitempty"`
	EventTime        string    `json:"event_time,omitempty"`
	TicketPrice      float64   `json:"ticket_price"`
	TicketCapacity   int64     `json:"ticket_capacity"`
	AvailableTickets int64     `json:"available_tickets"`
	TicketsSold      int64     `json:"tickets_sold"`
	CreatedAt        time.Time `json:"created_at"`
}

func (e *Event) IsFree() bool {
	return e.TicketPrice <= 0
}

func (e *Event) IsSoldOut() bool {
	return e.AvailableTickets <= 0
}
