package errors

import (
	"errors"
	"fmt"
)

// NotFound family.
var (
	ErrEventNotFound       = errors.New("event not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrTicketNotFound      = errors.New("ticket not found")
)

var (
	ErrSoldOut                 = errors.New("event is sold out")
	ErrInvalidReservationState = errors.New("reservation is not held")

	// ErrReservationExpired is returned when a hold is confirmed after its expiry.
	// It matches ErrInvalidReservationState under errors.Is.
	ErrReservationExpired = fmt.Errorf("reservation hold expired: %w", ErrInvalidReservationState)

	ErrTicketAlreadyIssued = errors.New("ticket already issued for reservation")
	ErrIssuanceFailure     = errors.New("ticket issuance failed")
)

// IsNotFound reports whether err belongs to the NotFound family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrTicketNotFound)
}
