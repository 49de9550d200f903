package service

import (
	"context"
	"time"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
)

type CatalogService interface {
	RegisterEvent(ctx context.Context, in RegisterEventInput) (*models.Event, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)
	GetCapacity(ctx context.Context, eventID string) (int64, error)
	GetAvailable(ctx context.Context, eventID string) (int64, error)
	GetAvailability(ctx context.Context, eventID string) (models.Availability, error)
}

type InventoryService interface {
	Reserve(ctx context.Context, in ReserveInput) (*models.Reservation, error)
	// Release is idempotent: a terminal reservation is returned unchanged.
	Release(ctx context.Context, reservationID string, reason ReleaseReason) (*models.Reservation, error)
	// Cancel releases a reservation on behalf of its buyer or an admin.
	Cancel(ctx context.Context, caller models.Identity, reservationID string) (*models.Reservation, error)
	// Expire reports whether a held reservation past its expiry was expired.
	Expire(ctx context.Context, reservationID string) (bool, error)
	Confirm(ctx context.Context, reservationID, txRef string) (*models.Reservation, error)
	GetReservation(ctx context.Context, reservationID string) (*models.Reservation, error)
	GetReservationFor(ctx context.Context, caller models.Identity, reservationID string) (*models.Reservation, error)
}

type PaymentService interface {
	OnPaymentConfirmed(ctx context.Context, in PaymentConfirmedInput) error
	OnPaymentFailed(ctx context.Context, in PaymentFailedInput) error
	BeginCheckout(ctx context.Context, caller models.Identity, reservationID string) (CheckoutOutput, error)
	AwaitPayment(ctx context.Context, caller models.Identity, reservationID string, wait time.Duration) (PaymentStatusOutput, error)
}

type TicketService interface {
	Issue(ctx context.Context, res *models.Reservation) (*models.Ticket, error)
	GetTicket(ctx context.Context, caller models.Identity, ticketID string) (*models.Ticket, error)
	GetTicketByReservation(ctx context.Context, reservationID string) (*models.Ticket, error)
	ListTickets(ctx context.Context, caller models.Identity, in ListTicketsInput) ([]*models.Ticket, error)
	InvalidateTicket(ctx context.Context, caller models.Identity, ticketID string) (*models.Ticket, error)
	VerifyQR(ctx context.Context, caller models.Identity, in VerifyQRInput) (VerifyQROutput, error)
}

type AuthService interface {
	// Authenticate resolves the caller from a bearer token.
	Authenticate(ctx context.Context, token string) (models.Identity, error)
	IssueToken(ctx context.Context, id models.Identity, ttl time.Duration) (string, error)
}
