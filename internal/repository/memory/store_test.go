package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store, id string, capacity int64) {
	t.Helper()
	require.NoError(t, s.Save(context.Background(), &models.Event{ID: id, Title: "Event " + id, TicketCapacity: capacity, CreatedAt: t0}))
}

func hold(id, eventID string) *models.Reservation {
	return &models.Reservation{ID: id, EventID: eventID, BuyerID: "u1", CreatedAt: t0, ExpiresAt: t0.Add(10 * time.Minute)}
}

func TestSave_KeepsCounters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "e1", 2)

	_, err := s.Reservations().Reserve(ctx, hold("r1", "e1"))
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, &models.Event{ID: "e1", Title: "Renamed", TicketCapacity: 99}))
	e, err := s.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", e.Title)
	assert.Equal(t, int64(2), e.TicketCapacity)
	assert.Equal(t, int64(1), e.AvailableTickets)
}

func TestReserve_SoldOutAndNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "e1", 1)
	rs := s.Reservations()

	a, err := rs.Reserve(ctx, hold("r1", "e1"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.AvailableTickets)
	assert.Equal(t, int64(1), a.Seq)

	_, err = rs.Reserve(ctx, hold("r2", "e1"))
	assert.ErrorIs(t, err, errs.ErrSoldOut)

	_, err = rs.Reserve(ctx, hold("r3", "missing"))
	assert.ErrorIs(t, err, errs.ErrEventNotFound)
}

func TestReserve_ConcurrentNeverOversells(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "e1", 25)
	rs := s.Reservations()

	var ok, soldOut int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := rs.Reserve(ctx, hold(fmt.Sprintf("r%d", i), "e1"))
			switch err {
			case nil:
				atomic.AddInt64(&ok, 1)
			case errs.ErrSoldOut:
				atomic.AddInt64(&soldOut, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(25), ok)
	assert.Equal(t, int64(175), soldOut)
	a, err := s.GetAvailability(ctx, "e1")
	require.NoError(t, err)
	assert.Zero(t, a.AvailableTickets)
}

func TestRelease_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "e1", 1)
	rs := s.Reservations()

	_, err := rs.Reserve(ctx, hold("r1", "e1"))
	require.NoError(t, err)

	tr, err := rs.Release(ctx, "r1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, tr.Changed)
	assert.Equal(t, models.ReservationStateReleased, tr.Reservation.State)
	assert.Equal(t, int64(1), tr.Availability.AvailableTickets)

	tr, err = rs.Release(ctx, "r1", t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, tr.Changed)
	assert.Equal(t, int64(1), tr.Availability.AvailableTickets)

	_, err = rs.Release(ctx, "nope", t0)
	assert.ErrorIs(t, err, errs.ErrReservationNotFound)
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "e1", 2)
	rs := s.Reservations()

	_, err := rs.Reserve(ctx, hold("r1", "e1"))
	require.NoError(t, err)

	tr, err := rs.Confirm(ctx, "r1", "tx-1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStateConfirmed, tr.Reservation.State)
	assert.Equal(t, "tx-1", tr.Reservation.TxRef)
	assert.Equal(t, int64(1), tr.Availability.TicketsSold)

	_, err = rs.Confirm(ctx, "r1", "tx-1", t0.Add(time.Minute))
	assert.ErrorIs(t, err, errs.ErrInvalidReservationState)

	tr, err = rs.Release(ctx, "r1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, tr.Changed)
	assert.Equal(t, models.ReservationStateConfirmed, tr.Reservation.State)
}

func TestConfirm_ExpiredHold(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "e1", 1)
	rs := s.Reservations()

	_, err := rs.Reserve(ctx, hold("r1", "e1"))
	require.NoError(t, err)

	tr, err := rs.Confirm(ctx, "r1", "tx-late", t0.Add(10*time.Minute))
	assert.ErrorIs(t, err, errs.ErrReservationExpired)
	assert.ErrorIs(t, err, errs.ErrInvalidReservationState)
	assert.True(t, tr.Changed)
	assert.Equal(t, models.ReservationStateExpired, tr.Reservation.State)
	assert.Equal(t, int64(1), tr.Availability.AvailableTickets)
	assert.Zero(t, tr.Availability.TicketsSold)
}

func TestExpire(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "e1", 3)
	rs := s.Reservations()

	for _, id := range []string{"r1", "r2"} {
		_, err := rs.Reserve(ctx, hold(id, "e1"))
		require.NoError(t, err)
	}

	tr, err := rs.Expire(ctx, "r1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, tr.Changed)

	ids, err := rs.ListExpired(ctx, t0.Add(10*time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	ids, err = rs.ListExpired(ctx, t0.Add(10*time.Minute), 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r2"}, ids)

	tr, err = rs.Expire(ctx, "r1", t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, tr.Changed)
	assert.Equal(t, int64(2), tr.Availability.AvailableTickets)
}

func TestPendingIssuance(t *testing.T) {
	ctx := context.Background()
	rs := NewStore().Reservations()

	require.NoError(t, rs.AddPendingIssuance(ctx, "r2"))
	require.NoError(t, rs.AddPendingIssuance(ctx, "r1"))
	require.NoError(t, rs.AddPendingIssuance(ctx, "r1"))

	ids, err := rs.ListPendingIssuance(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids)

	require.NoError(t, rs.RemovePendingIssuance(ctx, "r1"))
	ids, err = rs.ListPendingIssuance(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids)
}

func TestTickets(t *testing.T) {
	ctx := context.Background()
	ts := NewStore().Tickets()

	mk := func(id, resv, user, event, name string, at time.Time) *models.Ticket {
		return &models.Ticket{
			ID: id, ReservationID: resv, UserID: user, EventID: event, IsValid: true, CreatedAt: at,
			Details: models.TicketDetails{Name: name, Email: name + "@example.com", EventName: "Gala " + event},
		}
	}

	require.NoError(t, ts.Create(ctx, mk("t1", "r1", "u1", "e1", "Asha", t0)))
	require.NoError(t, ts.Create(ctx, mk("t2", "r2", "u2", "e1", "Ravi", t0.Add(time.Second))))
	require.NoError(t, ts.Create(ctx, mk("t3", "r3", "u1", "e2", "Asha", t0.Add(2*time.Second))))

	err := ts.Create(ctx, mk("t4", "r1", "u1", "e1", "Asha", t0))
	assert.ErrorIs(t, err, errs.ErrTicketAlreadyIssued)

	got, err := ts.GetByReservation(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, "t2", got.ID)

	list, err := ts.List(ctx, repository.TicketFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t3", list[0].ID)

	list, err = ts.List(ctx, repository.TicketFilter{Search: "RAVI"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = ts.List(ctx, repository.TicketFilter{Search: "gala e2"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = ts.List(ctx, repository.TicketFilter{EventID: "e1", Offset: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].ID)

	inv, err := ts.Invalidate(ctx, "t1", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, inv.IsValid)
	require.NotNil(t, inv.InvalidatedAt)

	_, err = ts.Get(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
}
