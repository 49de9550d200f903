package repository

import (
	"context"
	"time"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
)

type EventRepository interface {
	// Save creates the event with available = capacity and sold = 0. Saving an
	// existing id refreshes its metadata and leaves the counters untouched.
	Save(ctx context.Context, e *models.Event) error
	Get(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	GetAvailability(ctx context.Context, id string) (models.Availability, error)
}

// Transition is the outcome of a state change on a reservation. Changed is false
// when the call was a no-op; Availability is always the event's current snapshot.
type Transition struct {
	Reservation  *models.Reservation
	Availability models.Availability
	Changed      bool
}

type ReservationRepository interface {
	// Reserve atomically takes one seat from r.EventID and stores r as held.
	// Fails with ErrSoldOut or ErrEventNotFound.
	Reserve(ctx context.Context, r *models.Reservation) (models.Availability, error)
	// Release moves a held reservation to released and returns its seat.
	Release(ctx context.Context, id string, at time.Time) (Transition, error)
	// Expire moves a held reservation whose hold ended at or before now to expired.
	Expire(ctx context.Context, id string, now time.Time) (Transition, error)
	// Confirm moves a held reservation to confirmed. A hold past its expiry is
	// expired instead and ErrReservationExpired is returned with the transition.
	Confirm(ctx context.Context, id, txRef string, now time.Time) (Transition, error)
	Get(ctx context.Context, id string) (*models.Reservation, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)

	AddPendingIssuance(ctx context.Context, id string) error
	ListPendingIssuance(ctx context.Context, limit int) ([]string, error)
	RemovePendingIssuance(ctx context.Context, id string) error
}

type TicketFilter struct {
	UserID  string
	EventID string
	// Search matches holder name, email or event name, case-insensitively.
	Search string
	Limit  int
	Offset int
}

type TicketRepository interface {
	// Create fails with ErrTicketAlreadyIssued when the reservation already has a ticket.
	Create(ctx context.Context, t *models.Ticket) error
	Get(ctx context.Context, id string) (*models.Ticket, error)
	GetByReservation(ctx context.Context, reservationID string) (*models.Ticket, error)
	List(ctx context.Context, f TicketFilter) ([]*models.Ticket, error)
	Invalidate(ctx context.Context, id string, at time.Time) (*models.Ticket, error)
}
