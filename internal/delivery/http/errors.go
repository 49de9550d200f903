package http

import (
	"errors"
	"net/http"

	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	pkgErrors "github.com/vogiaan1904/ticketbottle-inventory/pkg/errors"
)

var (
	errInvalidBody      = pkgErrors.NewHTTPError(http.StatusBadRequest, 40000, "Invalid request body")
	errInvalidQRCode    = pkgErrors.NewHTTPError(http.StatusBadRequest, 40001, "Invalid ticket QR code")
	errInvalidSchedule  = pkgErrors.NewHTTPError(http.StatusBadRequest, 40002, "Invalid event date or time")
	errInvalidWait      = pkgErrors.NewHTTPError(http.StatusBadRequest, 40003, "Invalid wait duration")
	errUnauthenticated  = pkgErrors.NewHTTPError(http.StatusUnauthorized, 40100, "Authentication required")
	errInvalidToken     = pkgErrors.NewHTTPError(http.StatusUnauthorized, 40101, "Invalid token")
	errTokenExpired     = pkgErrors.NewHTTPError(http.StatusUnauthorized, 40102, "Token expired")
	errBadSignature     = pkgErrors.NewHTTPError(http.StatusUnauthorized, 40103, "Invalid payment signature")
	errForbidden        = pkgErrors.NewHTTPError(http.StatusForbidden, 40300, "Not allowed to access this resource")
	errEventNotFound    = pkgErrors.NewHTTPError(http.StatusNotFound, 40401, "Event not found")
	errResvNotFound     = pkgErrors.NewHTTPError(http.StatusNotFound, 40402, "Reservation not found")
	errTicketNotFound   = pkgErrors.NewHTTPError(http.StatusNotFound, 40403, "Ticket not found")
	errSoldOut          = pkgErrors.NewHTTPError(http.StatusConflict, 40901, "Tickets are sold out")
	errInvalidState     = pkgErrors.NewHTTPError(http.StatusConflict, 40902, "Reservation is no longer held")
	errPaymentNotBegun  = pkgErrors.NewHTTPError(http.StatusConflict, 40903, "Checkout has not been started")
	errReservationGone  = pkgErrors.NewHTTPError(http.StatusGone, 41001, "Reservation hold expired")
	errUnknownEventType = pkgErrors.NewHTTPError(http.StatusBadRequest, 40004, "Unknown payment event type")
)

// mapHTTPError translates domain errors into their HTTP form. Unknown errors
// pass through and are rendered as 500.
func mapHTTPError(err error) error {
	switch {
	case errors.Is(err, errs.ErrEventNotFound):
		return errEventNotFound
	case errors.Is(err, errs.ErrReservationNotFound):
		return errResvNotFound
	case errors.Is(err, errs.ErrTicketNotFound):
		return errTicketNotFound
	case errors.Is(err, errs.ErrSoldOut):
		return errSoldOut
	case errors.Is(err, errs.ErrReservationExpired):
		return errReservationGone
	case errors.Is(err, errs.ErrInvalidReservationState):
		return errInvalidState
	case errors.Is(err, service.ErrUnauthenticated):
		return errUnauthenticated
	case errors.Is(err, service.ErrTokenExpired):
		return errTokenExpired
	case errors.Is(err, service.ErrInvalidToken):
		return errInvalidToken
	case errors.Is(err, service.ErrForbidden):
		return errForbidden
	case errors.Is(err, service.ErrPaymentNotStarted):
		return errPaymentNotBegun
	case errors.Is(err, service.ErrInvalidQRCode):
		return errInvalidQRCode
	case errors.Is(err, service.ErrInvalidEventSchedule):
		return errInvalidSchedule
	default:
		return err
	}
}
