package grpc

import (
	"errors"

	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	pkgErrors "github.com/vogiaan1904/ticketbottle-inventory/pkg/errors"
	"google.golang.org/grpc/codes"
)

var (
	errEventNotFound       = pkgErrors.NewGRPCError(codes.NotFound, "INV001", "Event not found")
	errReservationNotFound = pkgErrors.NewGRPCError(codes.NotFound, "INV002", "Reservation not found")
	errSoldOut             = pkgErrors.NewGRPCError(codes.ResourceExhausted, "INV003", "Tickets are sold out")
	errInvalidState        = pkgErrors.NewGRPCError(codes.FailedPrecondition, "INV004", "Reservation is no longer held")
	errReservationExpired  = pkgErrors.NewGRPCError(codes.FailedPrecondition, "INV005", "Reservation hold expired")
	errUnauthenticated     = pkgErrors.NewGRPCError(codes.Unauthenticated, "INV006", "Authentication required")
	errInvalidToken        = pkgErrors.NewGRPCError(codes.Unauthenticated, "INV007", "Invalid or expired token")
	errForbidden           = pkgErrors.NewGRPCError(codes.PermissionDenied, "INV008", "Not allowed to access this resource")
	errMissingEventID      = pkgErrors.NewGRPCError(codes.InvalidArgument, "INV009", "event_id is required")
	errMissingID           = pkgErrors.NewGRPCError(codes.InvalidArgument, "INV010", "id is required")
)

func mapGRPCError(err error) error {
	switch {
	case errors.Is(err, errs.ErrEventNotFound):
		return errEventNotFound
	case errors.Is(err, errs.ErrReservationNotFound):
		return errReservationNotFound
	case errors.Is(err, errs.ErrSoldOut):
		return errSoldOut
	case errors.Is(err, errs.ErrReservationExpired):
		return errReservationExpired
	case errors.Is(err, errs.ErrInvalidReservationState):
		return errInvalidState
	case errors.Is(err, service.ErrUnauthenticated):
		return errUnauthenticated
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenExpired):
		return errInvalidToken
	case errors.Is(err, service.ErrForbidden):
		return errForbidden
	default:
		return err
	}
}
