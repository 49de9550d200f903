package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
)

func TestIssue_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 5, 100)
	ctx := context.Background()
	tk := f.purchase(t, "e1", alice)

	res, err := f.inv.GetReservation(ctx, tk.ReservationID)
	require.NoError(t, err)

	again, err := f.tickets.Issue(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, again.ID)
	assert.Equal(t, tk.TicketID, again.TicketID)
}

func TestIssue_RequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 5, 100)
	res := f.reserve(t, "e1", alice)

	_, err := f.tickets.Issue(context.Background(), res)
	assert.ErrorIs(t, err, errs.ErrInvalidReservationState)
}

func TestGetTicket_Ownership(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 5, 100)
	ctx := context.Background()
	tk := f.purchase(t, "e1", alice)

	got, err := f.tickets.GetTicket(ctx, alice, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)

	_, err = f.tickets.GetTicket(ctx, bob, tk.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.tickets.GetTicket(ctx, admin, tk.ID)
	assert.NoError(t, err)

	_, err = f.tickets.GetTicket(ctx, alice, "missing")
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
}

func TestListTickets_Scopes(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 5, 100)
	ctx := context.Background()
	f.purchase(t, "e1", alice)
	f.purchase(t, "e1", alice)
	f.purchase(t, "e1", bob)

	tests := []struct {
		name    string
		caller  models.Identity
		in      ListTicketsInput
		want    int
		wantErr error
	}{
		{name: "own tickets", caller: alice, want: 2},
		{name: "user cannot widen scope", caller: bob, in: ListTicketsInput{All: true, EventID: "e1"}, want: 1},
		{name: "admin all", caller: admin, in: ListTicketsInput{All: true}, want: 3},
		{name: "admin by event", caller: admin, in: ListTicketsInput{EventID: "e1"}, want: 3},
		{name: "admin search", caller: admin, in: ListTicketsInput{All: true, Search: "BOB@"}, want: 1},
		{name: "admin paged", caller: admin, in: ListTicketsInput{All: true, Limit: 2, Offset: 2}, want: 1},
		{name: "organizer own event", caller: org, in: ListTicketsInput{EventID: "e1"}, want: 3},
		{name: "organizer other event", caller: otherOrg, in: ListTicketsInput{EventID: "e1"}, wantErr: ErrForbidden},
		{name: "anonymous", caller: models.Identity{}, wantErr: ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.tickets.ListTickets(ctx, tt.caller, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestInvalidateTicket(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 2, 100)
	ctx := context.Background()
	tk := f.purchase(t, "e1", alice)

	_, err := f.tickets.InvalidateTicket(ctx, alice, tk.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.tickets.InvalidateTicket(ctx, admin, tk.ID)
	require.NoError(t, err)
	assert.False(t, got.IsValid)
	require.NotNil(t, got.InvalidatedAt)

	// The seat stays sold.
	avail, err := f.catalog.GetAvailability(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), avail.AvailableTickets)
	assert.Equal(t, int64(1), avail.TicketsSold)

	_, err = f.tickets.InvalidateTicket(ctx, admin, "missing")
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
}

func TestVerifyQR(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 2, 100)
	ctx := context.Background()
	tk := f.purchase(t, "e1", alice)
	payload := VerifyQRInput{Payload: tk.Details.QRPayload}

	_, err := f.tickets.VerifyQR(ctx, alice, payload)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.tickets.VerifyQR(ctx, otherOrg, payload)
	assert.ErrorIs(t, err, ErrForbidden)

	out, err := f.tickets.VerifyQR(ctx, org, payload)
	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.Equal(t, tk.ID, out.Ticket.ID)

	_, err = f.tickets.VerifyQR(ctx, admin, VerifyQRInput{Payload: "not-a-token"})
	assert.ErrorIs(t, err, ErrInvalidQRCode)

	_, err = f.tickets.InvalidateTicket(ctx, admin, tk.ID)
	require.NoError(t, err)

	out, err = f.tickets.VerifyQR(ctx, admin, payload)
	require.NoError(t, err)
	assert.False(t, out.Valid)
	assert.Equal(t, ErrTicketInvalidated.Error(), out.Reason)
}

func TestVerifyQR_ForeignSecret(t *testing.T) {
	f := newFixture(t)
	f.event(t, "e1", 2, 100)
	tk := f.purchase(t, "e1", alice)

	forged, err := newQREncoder("someone-else", 64).Sign(tk)
	require.NoError(t, err)

	_, err = f.tickets.VerifyQR(context.Background(), admin, VerifyQRInput{Payload: forged})
	assert.ErrorIs(t, err, ErrInvalidQRCode)
}
