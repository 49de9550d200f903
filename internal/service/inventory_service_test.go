package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
)

func TestReserve_HoldsSeat(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 3, 100)

	res := f.reserve(t, "e1", alice)

	assert.Equal(t, models.ReservationStateHeld, res.State)
	assert.Equal(t, alice.UserID, res.BuyerID)
	assert.Equal(t, f.clock.Now().Add(testHoldTTL), res.ExpiresAt)
	assert.Equal(t, int64(2), f.available(t, "e1"))

	last := f.pub.last()
	assert.Equal(t, "e1", last.EventID)
	assert.Equal(t, int64(2), last.AvailableTickets)
	assert.Equal(t, int64(1), last.Held())
}

func TestReserve_Errors(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 1, 100)
	ctx := context.Background()

	_, err := f.inv.Reserve(ctx, ReserveInput{EventID: "missing", Buyer: alice})
	assert.ErrorIs(t, err, errs.ErrEventNotFound)

	_, err = f.inv.Reserve(ctx, ReserveInput{EventID: "e1"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	f.reserve(t, "e1", alice)
	_, err = f.inv.Reserve(ctx, ReserveInput{EventID: "e1", Buyer: bob})
	assert.ErrorIs(t, err, errs.ErrSoldOut)
	assert.Zero(t, f.available(t, "e1"))
}

func TestReserve_ConcurrentLastSeat(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 1, 100)

	var (
		wg      sync.WaitGroup
		won     atomic.Int32
		soldOut atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.inv.Reserve(context.Background(), ReserveInput{EventID: "e1", Buyer: alice})
			switch {
			case err == nil:
				won.Add(1)
			case assert.ErrorIs(t, err, errs.ErrSoldOut):
				soldOut.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, int32(31), soldOut.Load())
	assert.Zero(t, f.available(t, "e1"))
}

func TestPublishedSnapshots_SeqIncreases(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 10, 100)
	ctx := context.Background()

	r1 := f.reserve(t, "e1", alice)
	f.reserve(t, "e1", bob)
	_, err := f.inv.Release(ctx, r1.ID, ReleaseReasonCancelled)
	require.NoError(t, err)

	updates := f.pub.all()
	require.Len(t, updates, 3)
	for i := 1; i < len(updates); i++ {
		assert.Greater(t, updates[i].Seq, updates[i-1].Seq)
	}
	assert.Equal(t, int64(9), updates[2].AvailableTickets)
}

func TestRelease_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 2, 100)
	ctx := context.Background()
	res := f.reserve(t, "e1", alice)

	got, err := f.inv.Release(ctx, res.ID, ReleaseReasonCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStateReleased, got.State)
	assert.Equal(t, int64(2), f.available(t, "e1"))

	published := len(f.pub.all())

	got, err = f.inv.Release(ctx, res.ID, ReleaseReasonCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStateReleased, got.State)
	assert.Equal(t, int64(2), f.available(t, "e1"))
	assert.Len(t, f.pub.all(), published)

	_, err = f.inv.Release(ctx, "nope", ReleaseReasonCancelled)
	assert.ErrorIs(t, err, errs.ErrReservationNotFound)
}

func TestRelease_ConfirmedIsUnchanged(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 2, 100)
	ctx := context.Background()
	res := f.reserve(t, "e1", alice)

	_, err := f.inv.Confirm(ctx, res.ID, "tx-1")
	require.NoError(t, err)

	got, err := f.inv.Release(ctx, res.ID, ReleaseReasonCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStateConfirmed, got.State)
	assert.Equal(t, int64(1), f.available(t, "e1"))
}

func TestCancel_Ownership(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 2, 100)
	ctx := context.Background()
	res := f.reserve(t, "e1", alice)

	_, err := f.inv.Cancel(ctx, bob, res.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.inv.Cancel(ctx, models.Identity{}, res.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	got, err := f.inv.Cancel(ctx, admin, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStateReleased, got.State)
}

func TestExpire(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 1, 100)
	ctx := context.Background()
	res := f.reserve(t, "e1", alice)

	expired, err := f.inv.Expire(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Zero(t, f.available(t, "e1"))

	f.clock.Advance(testHoldTTL)

	expired, err = f.inv.Expire(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, int64(1), f.available(t, "e1"))

	got, err := f.inv.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStateExpired, got.State)

	expired, err = f.inv.Expire(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestConfirm_AfterExpiryReturnsSeat(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 1, 100)
	ctx := context.Background()
	res := f.reserve(t, "e1", alice)

	f.clock.Advance(testHoldTTL + 1)

	got, err := f.inv.Confirm(ctx, res.ID, "tx-late")
	assert.ErrorIs(t, err, errs.ErrReservationExpired)
	assert.ErrorIs(t, err, errs.ErrInvalidReservationState)
	require.NotNil(t, got)
	assert.Equal(t, models.ReservationStateExpired, got.State)
	assert.Equal(t, int64(1), f.available(t, "e1"))
}

func TestRegisterEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.event(t, "e1", 5, 100)
	assert.Equal(t, int64(5), e.AvailableTickets)

	f.reserve(t, "e1", alice)

	// Re-registering refreshes metadata but keeps the counters.
	e, err := f.catalog.RegisterEvent(ctx, RegisterEventInput{ID: "e1", Title: "Renamed", TicketCapacity: 50})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", e.Title)
	assert.Equal(t, int64(5), e.TicketCapacity)
	assert.Equal(t, int64(4), e.AvailableTickets)

	_, err = f.catalog.RegisterEvent(ctx, RegisterEventInput{ID: "e2", Title: "Bad", EventDate: "31-12-2026"})
	assert.ErrorIs(t, err, ErrInvalidEventSchedule)

	_, err = f.catalog.GetEvent(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrEventNotFound)

	capacity, err := f.catalog.GetCapacity(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), capacity)

	events, err := f.catalog.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
