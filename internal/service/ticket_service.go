package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/clock"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka/producer"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/realtime"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type TicketConfig struct {
	QRSecret string
	QRSize   int
}

type ticketService struct {
	repo         repository.TicketRepository
	events       repository.EventRepository
	reservations repository.ReservationRepository
	pub          realtime.Publisher
	prod         producer.Producer
	qr           qrEncoder
	clock        clock.Clock
	l            logger.Logger
}

func NewTicketService(
	repo repository.TicketRepository,
	events repository.EventRepository,
	reservations repository.ReservationRepository,
	pub realtime.Publisher,
	prod producer.Producer,
	c clock.Clock,
	cfg TicketConfig,
	l logger.Logger,
) TicketService {
	return &ticketService{
		repo:         repo,
		events:       events,
		reservations: reservations,
		pub:          pub,
		prod:         prod,
		qr:           newQREncoder(cfg.QRSecret, cfg.QRSize),
		clock:        c,
		l:            l,
	}
}

// Issue creates the ticket of a confirmed reservation. Issuing twice for the
// same reservation returns the ticket created first.
func (s *ticketService) Issue(ctx context.Context, res *models.Reservation) (*models.Ticket, error) {
	if res.State != models.ReservationStateConfirmed {
		return nil, errs.ErrInvalidReservationState
	}

	if existing, err := s.repo.GetByReservation(ctx, res.ID); err == nil {
		s.settled(ctx, res.ID)
		return existing, nil
	} else if !errors.Is(err, errs.ErrTicketNotFound) {
		return nil, fmt.Errorf("%w: %v", errs.ErrIssuanceFailure, err)
	}

	event, err := s.events.Get(ctx, res.EventID)
	if err != nil {
		return nil, fmt.Errorf("%w: load event %s: %v", errs.ErrIssuanceFailure, res.EventID, err)
	}

	ticketID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIssuanceFailure, err)
	}

	t := &models.Ticket{
		ID:            uuid.NewString(),
		TicketID:      ticketID.String(),
		ReservationID: res.ID,
		UserID:        res.BuyerID,
		EventID:       res.EventID,
		Details: models.TicketDetails{
			Name:        res.BuyerName,
			Email:       res.BuyerEmail,
			EventName:   event.Title,
			EventDate:   event.EventDate,
			EventTime:   event.EventTime,
			TicketPrice: event.TicketPrice,
		},
		TxRef:     res.TxRef,
		IsValid:   true,
		CreatedAt: s.clock.Now(),
	}

	if t.Details.QRPayload, err = s.qr.Sign(t); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIssuanceFailure, err)
	}
	if t.Details.QR, err = s.qr.Image(t.Details.QRPayload); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIssuanceFailure, err)
	}

	if err := s.repo.Create(ctx, t); err != nil {
		if errors.Is(err, errs.ErrTicketAlreadyIssued) {
			existing, gerr := s.repo.GetByReservation(ctx, res.ID)
			if gerr != nil {
				return nil, fmt.Errorf("%w: %v", errs.ErrIssuanceFailure, gerr)
			}
			s.settled(ctx, res.ID)
			return existing, nil
		}
		s.l.Errorf(ctx, "service.ticketService.Issue: %v", err)
		return nil, fmt.Errorf("%w: %v", errs.ErrIssuanceFailure, err)
	}

	s.settled(ctx, res.ID)

	s.l.Infof(ctx, "Ticket issued ticket_id=%s reservation_id=%s event_id=%s", t.TicketID, res.ID, res.EventID)

	if avail, err := s.events.GetAvailability(ctx, res.EventID); err == nil && s.pub != nil {
		if err := s.pub.Publish(ctx, avail); err != nil {
			s.l.Warnf(ctx, "Failed to broadcast availability after issuance: %v", err)
		}
	}

	if s.prod != nil {
		if err := s.prod.PublishTicketIssued(ctx, kafka.TicketIssuedEvent{
			ID:            t.ID,
			TicketID:      t.TicketID,
			ReservationID: t.ReservationID,
			EventID:       t.EventID,
			UserID:        t.UserID,
			TxRef:         t.TxRef,
			IssuedAt:      t.CreatedAt,
		}); err != nil {
			s.l.Warnf(ctx, "Failed to publish ticket issued event: %v", err)
		}
	}

	return t, nil
}

func (s *ticketService) settled(ctx context.Context, reservationID string) {
	if err := s.reservations.RemovePendingIssuance(ctx, reservationID); err != nil {
		s.l.Warnf(ctx, "Failed to clear pending issuance reservation_id=%s: %v", reservationID, err)
	}
}

func (s *ticketService) GetTicket(ctx context.Context, caller models.Identity, ticketID string) (*models.Ticket, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthenticated
	}

	t, err := s.repo.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if t.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	return t, nil
}

func (s *ticketService) GetTicketByReservation(ctx context.Context, reservationID string) (*models.Ticket, error) {
	return s.repo.GetByReservation(ctx, reservationID)
}

// ListTickets returns the caller's own tickets. Admins may list all tickets or
// one event's; organizers may list the tickets of events they organize.
func (s *ticketService) ListTickets(ctx context.Context, caller models.Identity, in ListTicketsInput) ([]*models.Ticket, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthenticated
	}

	f := repository.TicketFilter{
		EventID: in.EventID,
		Search:  in.Search,
		Limit:   in.Limit,
		Offset:  in.Offset,
	}

	switch {
	case caller.IsAdmin() && (in.All || in.EventID != ""):
	case caller.Role == models.RoleOrganizer && in.EventID != "":
		event, err := s.events.Get(ctx, in.EventID)
		if err != nil {
			return nil, err
		}
		if event.OrganizerID != caller.UserID {
			return nil, ErrForbidden
		}
	default:
		f.UserID = caller.UserID
	}

	tickets, err := s.repo.List(ctx, f)
	if err != nil {
		s.l.Errorf(ctx, "service.ticketService.ListTickets: %v", err)
		return nil, err
	}
	return tickets, nil
}

// InvalidateTicket soft-deletes a ticket. The seat is not returned to inventory.
func (s *ticketService) InvalidateTicket(ctx context.Context, caller models.Identity, ticketID string) (*models.Ticket, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	t, err := s.repo.Invalidate(ctx, ticketID, s.clock.Now())
	if err != nil {
		if !errors.Is(err, errs.ErrTicketNotFound) {
			s.l.Errorf(ctx, "service.ticketService.InvalidateTicket: %v", err)
		}
		return nil, err
	}

	s.l.Infof(ctx, "Ticket invalidated ticket_id=%s by=%s", t.TicketID, caller.UserID)
	return t, nil
}

func (s *ticketService) VerifyQR(ctx context.Context, caller models.Identity, in VerifyQRInput) (VerifyQROutput, error) {
	if caller.UserID == "" {
		return VerifyQROutput{}, ErrUnauthenticated
	}
	if !caller.CanScan() {
		return VerifyQROutput{}, ErrForbidden
	}

	claims, err := s.qr.Parse(in.Payload)
	if err != nil {
		return VerifyQROutput{}, err
	}

	t, err := s.repo.Get(ctx, claims.TicketID)
	if err != nil {
		if errors.Is(err, errs.ErrTicketNotFound) {
			return VerifyQROutput{Valid: false, Reason: "unknown ticket"}, nil
		}
		return VerifyQROutput{}, err
	}

	if caller.Role == models.RoleOrganizer {
		event, err := s.events.Get(ctx, t.EventID)
		if err != nil {
			return VerifyQROutput{}, err
		}
		if event.OrganizerID != caller.UserID {
			return VerifyQROutput{}, ErrForbidden
		}
	}

	if t.ReservationID != claims.ReservationID || t.TicketID != claims.ID {
		return VerifyQROutput{Valid: false, Reason: "payload does not match ticket"}, nil
	}
	if !t.IsValid {
		return VerifyQROutput{Valid: false, Ticket: t, Reason: ErrTicketInvalidated.Error()}, nil
	}

	return VerifyQROutput{Valid: true, Ticket: t}, nil
}
