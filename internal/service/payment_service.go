package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/clock"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka/producer"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/payment"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type PaymentConfig struct {
	Currency string
	MaxAwait time.Duration
}

type paymentService struct {
	inv          InventoryService
	tickets      TicketService
	events       repository.EventRepository
	reservations repository.ReservationRepository
	handles      *payment.Registry
	prod         producer.Producer
	clock        clock.Clock
	cfg          PaymentConfig
	l            logger.Logger
}

func NewPaymentService(
	inv InventoryService,
	tickets TicketService,
	events repository.EventRepository,
	reservations repository.ReservationRepository,
	handles *payment.Registry,
	prod producer.Producer,
	c clock.Clock,
	cfg PaymentConfig,
	l logger.Logger,
) PaymentService {
	return &paymentService{
		inv:          inv,
		tickets:      tickets,
		events:       events,
		reservations: reservations,
		handles:      handles,
		prod:         prod,
		clock:        c,
		cfg:          cfg,
		l:            l,
	}
}

// OnPaymentConfirmed is safe to call any number of times per reservation. It
// only returns an error when the provider should retry delivery.
func (s *paymentService) OnPaymentConfirmed(ctx context.Context, in PaymentConfirmedInput) error {
	res, err := s.inv.Confirm(ctx, in.ReservationID, in.TxRef)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrReservationNotFound):
			s.l.Errorf(ctx, "ALERT payment for unknown reservation reservation_id=%s tx_ref=%s", in.ReservationID, in.TxRef)
			return nil
		case errors.Is(err, errs.ErrReservationExpired):
			s.l.Errorf(ctx, "ALERT payment arrived after hold expired, refund required reservation_id=%s tx_ref=%s", in.ReservationID, in.TxRef)
			s.handles.Resolve(in.ReservationID, payment.Result{Status: payment.StatusFailed, TxRef: in.TxRef, Reason: payment.ReasonHoldExpired})
			return nil
		case errors.Is(err, errs.ErrInvalidReservationState):
			s.lateConfirmation(ctx, in, res)
			return nil
		default:
			s.l.Errorf(ctx, "service.paymentService.OnPaymentConfirmed: %v", err)
			return err
		}
	}

	t, err := s.tickets.Issue(ctx, res)
	if err != nil {
		s.issuanceFailed(ctx, res, err)
		s.handles.Resolve(res.ID, payment.Result{Status: payment.StatusSucceeded, TxRef: in.TxRef})
		return nil
	}

	s.handles.Resolve(res.ID, payment.Result{Status: payment.StatusSucceeded, TxRef: in.TxRef, TicketID: t.ID})
	return nil
}

// lateConfirmation handles a confirmation for a reservation that already left
// the held state. Only a repeat of the confirming payment is harmless.
func (s *paymentService) lateConfirmation(ctx context.Context, in PaymentConfirmedInput, res *models.Reservation) {
	if res == nil {
		fresh, err := s.inv.GetReservation(ctx, in.ReservationID)
		if err != nil {
			s.l.Errorf(ctx, "ALERT payment for reservation in unknown state, check for refund reservation_id=%s tx_ref=%s: %v", in.ReservationID, in.TxRef, err)
			return
		}
		res = fresh
	}

	switch {
	case res.State == models.ReservationStateReleased || res.State == models.ReservationStateExpired:
		s.l.Errorf(ctx, "ALERT payment arrived for %s reservation, refund required reservation_id=%s tx_ref=%s", res.State, res.ID, in.TxRef)
	case res.State == models.ReservationStateConfirmed && in.TxRef != "" && res.TxRef != in.TxRef:
		s.l.Errorf(ctx, "ALERT second payment for confirmed reservation, refund required reservation_id=%s tx_ref=%s confirmed_tx_ref=%s", res.ID, in.TxRef, res.TxRef)
	default:
		s.l.Infof(ctx, "Duplicate payment confirmation ignored reservation_id=%s state=%s", res.ID, res.State)
	}
}

// issuanceFailed keeps the reservation confirmed and queues it for reissue.
func (s *paymentService) issuanceFailed(ctx context.Context, res *models.Reservation, cause error) {
	s.l.Errorf(ctx, "ALERT ticket issuance failed after payment reservation_id=%s event_id=%s: %v", res.ID, res.EventID, cause)

	if err := s.reservations.AddPendingIssuance(ctx, res.ID); err != nil {
		s.l.Errorf(ctx, "ALERT failed to queue reissue reservation_id=%s: %v", res.ID, err)
	}

	if s.prod != nil {
		if err := s.prod.PublishTicketIssuanceFailed(ctx, kafka.TicketIssuanceFailedEvent{
			ReservationID: res.ID,
			EventID:       res.EventID,
			UserID:        res.BuyerID,
			TxRef:         res.TxRef,
			Error:         cause.Error(),
		}); err != nil {
			s.l.Warnf(ctx, "Failed to publish ticket issuance failed event: %v", err)
		}
	}
}

func (s *paymentService) OnPaymentFailed(ctx context.Context, in PaymentFailedInput) error {
	res, err := s.inv.Release(ctx, in.ReservationID, ReleaseReasonPaymentFailed)
	if err != nil {
		if errors.Is(err, errs.ErrReservationNotFound) {
			s.l.Warnf(ctx, "Payment failure for unknown reservation reservation_id=%s", in.ReservationID)
			return nil
		}
		return err
	}

	s.handles.Resolve(in.ReservationID, payment.Result{Status: payment.StatusFailed, TxRef: in.TxRef, Reason: in.Reason})

	s.l.Infof(ctx, "Payment failed reservation_id=%s state=%s reason=%s", in.ReservationID, res.State, in.Reason)
	return nil
}

// BeginCheckout opens the payment handle of a held reservation. Free events
// skip the provider and are confirmed straight away.
func (s *paymentService) BeginCheckout(ctx context.Context, caller models.Identity, reservationID string) (CheckoutOutput, error) {
	res, err := s.inv.GetReservationFor(ctx, caller, reservationID)
	if err != nil {
		return CheckoutOutput{}, err
	}
	if res.BuyerID != caller.UserID {
		return CheckoutOutput{}, ErrForbidden
	}
	if !res.IsHeld() {
		return CheckoutOutput{}, errs.ErrInvalidReservationState
	}

	event, err := s.events.Get(ctx, res.EventID)
	if err != nil {
		return CheckoutOutput{}, err
	}

	out := CheckoutOutput{
		ReservationID: res.ID,
		EventID:       res.EventID,
		Amount:        int64(math.Round(event.TicketPrice * 100)),
		Currency:      s.cfg.Currency,
		ExpiresAt:     res.ExpiresAt,
		Status:        payment.StatusPending,
	}

	h := s.handles.Begin(res.ID, res.BuyerID, res.ExpiresAt)

	if event.IsFree() {
		if err := s.OnPaymentConfirmed(ctx, PaymentConfirmedInput{ReservationID: res.ID, TxRef: "free:" + res.ID}); err != nil {
			return CheckoutOutput{}, err
		}
		result, done := h.Peek()
		if !done {
			// Confirmed by another call before this one; stored state decides.
			if result, err = s.settleOpenHandle(ctx, res.ID); err != nil {
				return CheckoutOutput{}, err
			}
		}
		out.Status = result.Status
		out.TicketID = result.TicketID
		switch {
		case result.Status == payment.StatusSucceeded:
		case result.Reason == payment.ReasonHoldExpired:
			return out, errs.ErrReservationExpired
		default:
			return out, errs.ErrInvalidReservationState
		}
	}

	return out, nil
}

// AwaitPayment waits up to wait (capped by MaxAwait) for the checkout to
// resolve. A checkout still open at the deadline is reported as pending.
func (s *paymentService) AwaitPayment(ctx context.Context, caller models.Identity, reservationID string, wait time.Duration) (PaymentStatusOutput, error) {
	res, err := s.inv.GetReservationFor(ctx, caller, reservationID)
	if err != nil {
		return PaymentStatusOutput{}, err
	}

	h, ok := s.handles.Get(reservationID)
	if !ok {
		return s.settledStatus(ctx, res)
	}

	if wait <= 0 || wait > s.cfg.MaxAwait {
		wait = s.cfg.MaxAwait
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	result, err := h.Await(waitCtx)
	if err != nil && ctx.Err() != nil {
		return PaymentStatusOutput{}, ctx.Err()
	}

	if res, err = s.inv.GetReservation(ctx, reservationID); err != nil {
		return PaymentStatusOutput{}, err
	}

	return PaymentStatusOutput{ReservationID: reservationID, State: res.State, Result: result}, nil
}

// settleOpenHandle resolves a reservation's handle from stored state.
func (s *paymentService) settleOpenHandle(ctx context.Context, reservationID string) (payment.Result, error) {
	res, err := s.inv.GetReservation(ctx, reservationID)
	if err != nil {
		s.handles.Cancel(reservationID, err.Error())
		return payment.Result{}, err
	}

	st, err := s.settledStatus(ctx, res)
	if err != nil {
		s.handles.Cancel(reservationID, err.Error())
		return payment.Result{}, err
	}

	s.handles.Resolve(reservationID, st.Result)
	return st.Result, nil
}

// settledStatus derives the payment outcome from stored state when no handle is open.
func (s *paymentService) settledStatus(ctx context.Context, res *models.Reservation) (PaymentStatusOutput, error) {
	out := PaymentStatusOutput{ReservationID: res.ID, State: res.State}

	switch res.State {
	case models.ReservationStateHeld:
		// The handle is gone once its hold lapses, before the sweeper runs.
		if res.IsExpired(s.clock.Now()) {
			out.Status = payment.StatusCancelled
			out.Reason = payment.ReasonHoldExpired
			return out, nil
		}
		return out, ErrPaymentNotStarted
	case models.ReservationStateConfirmed:
		out.Status = payment.StatusSucceeded
		out.TxRef = res.TxRef
		t, err := s.tickets.GetTicketByReservation(ctx, res.ID)
		switch {
		case err == nil:
			out.TicketID = t.ID
		case !errors.Is(err, errs.ErrTicketNotFound):
			return PaymentStatusOutput{}, err
		}
	case models.ReservationStateReleased:
		out.Status = payment.StatusCancelled
	case models.ReservationStateExpired:
		out.Status = payment.StatusCancelled
		out.Reason = payment.ReasonHoldExpired
	default:
		return out, fmt.Errorf("unknown reservation state %q", res.State)
	}

	return out, nil
}
