package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/clock"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/payment"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository/memory"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

const testHoldTTL = 10 * time.Minute

var (
	alice    = models.Identity{UserID: "u-alice", Name: "Alice", Email: "alice@example.com", Role: models.RoleUser}
	bob      = models.Identity{UserID: "u-bob", Name: "Bob", Email: "bob@example.com", Role: models.RoleUser}
	admin    = models.Identity{UserID: "u-admin", Name: "Admin", Role: models.RoleAdmin}
	org      = models.Identity{UserID: "org-1", Name: "Organizer", Role: models.RoleOrganizer}
	otherOrg = models.Identity{UserID: "org-2", Name: "Other Organizer", Role: models.RoleOrganizer}
)

type recordingPublisher struct {
	mu      sync.Mutex
	updates []models.Availability
}

func (p *recordingPublisher) Publish(ctx context.Context, u models.Availability) error {
	p.mu.Lock()
	p.updates = append(p.updates, u)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) all() []models.Availability {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Availability(nil), p.updates...)
}

func (p *recordingPublisher) last() models.Availability {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.updates) == 0 {
		return models.Availability{}
	}
	return p.updates[len(p.updates)-1]
}

// flakyTickets fails the next failCreate ticket writes.
type flakyTickets struct {
	repository.TicketRepository

	mu         sync.Mutex
	failCreate int
}

func (f *flakyTickets) Create(ctx context.Context, t *models.Ticket) error {
	f.mu.Lock()
	if f.failCreate > 0 {
		f.failCreate--
		f.mu.Unlock()
		return errors.New("tickets table unavailable")
	}
	f.mu.Unlock()
	return f.TicketRepository.Create(ctx, t)
}

func (f *flakyTickets) failNext(n int) {
	f.mu.Lock()
	f.failCreate = n
	f.mu.Unlock()
}

type fixture struct {
	store    *memory.Store
	clock    *clock.Manual
	pub      *recordingPublisher
	handles  *payment.Registry
	ticketDB *flakyTickets

	catalog CatalogService
	inv     InventoryService
	tickets TicketService
	pay     PaymentService
	sweeper Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	l := logger.InitializeTestZapLogger()
	f := &fixture{
		store: memory.NewStore(),
		clock: clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		pub:   &recordingPublisher{},
	}
	f.handles = payment.NewRegistry(f.clock)
	f.ticketDB = &flakyTickets{TicketRepository: f.store.Tickets()}

	f.catalog = NewCatalogService(f.store.Events(), f.clock, l)
	f.inv = NewInventoryService(f.store.Reservations(), f.pub, f.handles, nil, f.clock, InventoryConfig{HoldTTL: testHoldTTL}, l)
	f.tickets = NewTicketService(f.ticketDB, f.store.Events(), f.store.Reservations(), f.pub, nil, f.clock,
		TicketConfig{QRSecret: "qr-test-secret", QRSize: 128}, l)
	f.pay = NewPaymentService(f.inv, f.tickets, f.store.Events(), f.store.Reservations(), f.handles, nil, f.clock,
		PaymentConfig{Currency: "INR", MaxAwait: 2 * time.Second}, l)
	f.sweeper = NewSweeper(f.inv, f.tickets, f.store.Reservations(), f.clock,
		SweeperConfig{Interval: time.Hour, BatchSize: 100, ReissueBatchSize: 10, RetryAttempts: 1}, l)

	t.Cleanup(f.handles.Close)
	return f
}

func (f *fixture) event(t *testing.T, id string, capacity int64, price float64) *models.Event {
	t.Helper()
	e, err := f.catalog.RegisterEvent(context.Background(), RegisterEventInput{
		ID:             id,
		Title:          "Event " + id,
		OrganizerID:    org.UserID,
		EventDate:      "2026-04-01",
		EventTime:      "20:00",
		TicketPrice:    price,
		TicketCapacity: capacity,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) reserve(t *testing.T, eventID string, buyer models.Identity) *models.Reservation {
	t.Helper()
	res, err := f.inv.Reserve(context.Background(), ReserveInput{EventID: eventID, Buyer: buyer})
	require.NoError(t, err)
	return res
}

func (f *fixture) available(t *testing.T, eventID string) int64 {
	t.Helper()
	n, err := f.catalog.GetAvailable(context.Background(), eventID)
	require.NoError(t, err)
	return n
}

// purchase reserves and pays for one seat.
func (f *fixture) purchase(t *testing.T, eventID string, buyer models.Identity) *models.Ticket {
	t.Helper()
	ctx := context.Background()
	res := f.reserve(t, eventID, buyer)
	require.NoError(t, f.pay.OnPaymentConfirmed(ctx, PaymentConfirmedInput{ReservationID: res.ID, TxRef: "tx-" + res.ID}))
	tk, err := f.tickets.GetTicketByReservation(ctx, res.ID)
	require.NoError(t, err)
	return tk
}
