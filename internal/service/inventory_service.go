package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/clock"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka/producer"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/payment"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/realtime"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type InventoryConfig struct {
	HoldTTL time.Duration
}

type inventoryService struct {
	repo    repository.ReservationRepository
	pub     realtime.Publisher
	handles *payment.Registry
	prod    producer.Producer
	clock   clock.Clock
	locks   *eventLocks
	cfg     InventoryConfig
	l       logger.Logger
}

func NewInventoryService(
	repo repository.ReservationRepository,
	pub realtime.Publisher,
	handles *payment.Registry,
	prod producer.Producer,
	c clock.Clock,
	cfg InventoryConfig,
	l logger.Logger,
) InventoryService {
	return &inventoryService{
		repo:    repo,
		pub:     pub,
		handles: handles,
		prod:    prod,
		clock:   c,
		locks:   newEventLocks(),
		cfg:     cfg,
		l:       l,
	}
}

func (s *inventoryService) Reserve(ctx context.Context, in ReserveInput) (*models.Reservation, error) {
	if in.Buyer.UserID == "" {
		return nil, ErrUnauthenticated
	}

	now := s.clock.Now()
	res := &models.Reservation{
		ID:         uuid.NewString(),
		EventID:    in.EventID,
		BuyerID:    in.Buyer.UserID,
		BuyerName:  in.Buyer.Name,
		BuyerEmail: in.Buyer.Email,
		State:      models.ReservationStateHeld,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.HoldTTL),
	}

	unlock := s.locks.Lock(in.EventID)
	avail, err := s.repo.Reserve(ctx, res)
	if err == nil {
		s.publish(ctx, avail)
	}
	unlock()

	if err != nil {
		if errors.Is(err, errs.ErrSoldOut) || errors.Is(err, errs.ErrEventNotFound) {
			s.l.Infof(ctx, "service.inventoryService.Reserve: event_id=%s: %v", in.EventID, err)
			return nil, err
		}
		s.l.Errorf(ctx, "service.inventoryService.Reserve: %v", err)
		return nil, err
	}

	s.l.Infof(ctx, "Seat held reservation_id=%s event_id=%s buyer_id=%s available=%d",
		res.ID, res.EventID, res.BuyerID, avail.AvailableTickets)

	if s.prod != nil {
		if err := s.prod.PublishReservationHeld(ctx, kafka.ReservationHeldEvent{
			ReservationID:    res.ID,
			EventID:          res.EventID,
			BuyerID:          res.BuyerID,
			ExpiresAt:        res.ExpiresAt,
			AvailableTickets: avail.AvailableTickets,
		}); err != nil {
			s.l.Warnf(ctx, "Failed to publish reservation held event: %v", err)
		}
	}

	return res, nil
}

func (s *inventoryService) Release(ctx context.Context, reservationID string, reason ReleaseReason) (*models.Reservation, error) {
	tr, err := s.transition(ctx, reservationID, func(now time.Time) (repository.Transition, error) {
		return s.repo.Release(ctx, reservationID, now)
	})
	if err != nil {
		if !errors.Is(err, errs.ErrReservationNotFound) {
			s.l.Errorf(ctx, "service.inventoryService.Release: %v", err)
		}
		return nil, err
	}

	if tr.Changed {
		s.afterFree(ctx, tr, reason)
	}

	return tr.Reservation, nil
}

func (s *inventoryService) Cancel(ctx context.Context, caller models.Identity, reservationID string) (*models.Reservation, error) {
	if _, err := s.GetReservationFor(ctx, caller, reservationID); err != nil {
		return nil, err
	}
	return s.Release(ctx, reservationID, ReleaseReasonCancelled)
}

func (s *inventoryService) Expire(ctx context.Context, reservationID string) (bool, error) {
	tr, err := s.transition(ctx, reservationID, func(now time.Time) (repository.Transition, error) {
		return s.repo.Expire(ctx, reservationID, now)
	})
	if err != nil {
		return false, err
	}

	if tr.Changed {
		s.afterFree(ctx, tr, ReleaseReasonExpired)
	}

	return tr.Changed, nil
}

func (s *inventoryService) Confirm(ctx context.Context, reservationID, txRef string) (*models.Reservation, error) {
	tr, err := s.transition(ctx, reservationID, func(now time.Time) (repository.Transition, error) {
		return s.repo.Confirm(ctx, reservationID, txRef, now)
	})
	if err != nil {
		if errors.Is(err, errs.ErrReservationExpired) {
			s.afterFree(ctx, tr, ReleaseReasonExpired)
		}
		return tr.Reservation, err
	}

	s.l.Infof(ctx, "Reservation confirmed reservation_id=%s event_id=%s tx_ref=%s sold=%d",
		reservationID, tr.Reservation.EventID, txRef, tr.Availability.TicketsSold)

	return tr.Reservation, nil
}

// transition runs op under the reservation's event lock and publishes the
// resulting snapshot while still holding it.
func (s *inventoryService) transition(ctx context.Context, reservationID string, op func(now time.Time) (repository.Transition, error)) (repository.Transition, error) {
	res, err := s.repo.Get(ctx, reservationID)
	if err != nil {
		return repository.Transition{}, err
	}

	unlock := s.locks.Lock(res.EventID)
	defer unlock()

	tr, err := op(s.clock.Now())
	if tr.Changed {
		s.publish(ctx, tr.Availability)
	}
	return tr, err
}

func (s *inventoryService) afterFree(ctx context.Context, tr repository.Transition, reason ReleaseReason) {
	res := tr.Reservation

	s.l.Infof(ctx, "Seat returned reservation_id=%s event_id=%s reason=%s available=%d",
		res.ID, res.EventID, reason, tr.Availability.AvailableTickets)

	if s.handles != nil {
		cancelReason := string(reason)
		if reason == ReleaseReasonExpired {
			cancelReason = payment.ReasonHoldExpired
		}
		s.handles.Cancel(res.ID, cancelReason)
	}

	if s.prod != nil {
		if err := s.prod.PublishReservationReleased(ctx, kafka.ReservationReleasedEvent{
			ReservationID:    res.ID,
			EventID:          res.EventID,
			BuyerID:          res.BuyerID,
			Reason:           string(reason),
			AvailableTickets: tr.Availability.AvailableTickets,
		}); err != nil {
			s.l.Warnf(ctx, "Failed to publish reservation released event: %v", err)
		}
	}
}

func (s *inventoryService) publish(ctx context.Context, a models.Availability) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, a); err != nil {
		// Viewers re-fetch on reconnect; a lost broadcast is not fatal.
		s.l.Warnf(ctx, "Failed to broadcast availability event_id=%s seq=%d: %v", a.EventID, a.Seq, err)
	}
}

func (s *inventoryService) GetReservation(ctx context.Context, reservationID string) (*models.Reservation, error) {
	return s.repo.Get(ctx, reservationID)
}

func (s *inventoryService) GetReservationFor(ctx context.Context, caller models.Identity, reservationID string) (*models.Reservation, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthenticated
	}

	res, err := s.repo.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if res.BuyerID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	return res, nil
}
