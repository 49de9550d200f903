package service

import "errors"

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrForbidden       = errors.New("not allowed to access this resource")

	ErrInvalidEventSchedule = errors.New("invalid event date or time")

	ErrPaymentNotStarted = errors.New("checkout has not been started for this reservation")
	ErrInvalidQRCode     = errors.New("invalid ticket QR code")
	ErrTicketInvalidated = errors.New("ticket has been invalidated")
)
