package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
)

// Store keeps events, reservations and tickets in process memory. A single
// mutex makes every counter transition atomic.
type Store struct {
	mu           sync.RWMutex
	events       map[string]*models.Event
	seqs         map[string]int64
	updatedAt    map[string]time.Time
	reservations map[string]*models.Reservation
	pending      map[string]struct{}
	tickets      map[string]*models.Ticket
	byResv       map[string]string
}

func NewStore() *Store {
	return &Store{
		events:       make(map[string]*models.Event),
		seqs:         make(map[string]int64),
		updatedAt:    make(map[string]time.Time),
		reservations: make(map[string]*models.Reservation),
		pending:      make(map[string]struct{}),
		tickets:      make(map[string]*models.Ticket),
		byResv:       make(map[string]string),
	}
}

func (s *Store) Events() repository.EventRepository             { return s }
func (s *Store) Reservations() repository.ReservationRepository { return (*reservationStore)(s) }
func (s *Store) Tickets() repository.TicketRepository           { return (*ticketStore)(s) }

func (s *Store) Save(ctx context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	if cur, ok := s.events[e.ID]; ok {
		cp.TicketCapacity = cur.TicketCapacity
		cp.AvailableTickets = cur.AvailableTickets
		cp.TicketsSold = cur.TicketsSold
		cp.CreatedAt = cur.CreatedAt
	} else {
		cp.AvailableTickets = cp.TicketCapacity
		cp.TicketsSold = 0
		s.updatedAt[e.ID] = cp.CreatedAt
	}
	s.events[e.ID] = &cp
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, errs.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *Store) List(ctx context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Event, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetAvailability(ctx context.Context, id string) (models.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.events[id]; !ok {
		return models.Availability{}, errs.ErrEventNotFound
	}
	return s.snapshot(id), nil
}

// snapshot must be called with mu held.
func (s *Store) snapshot(eventID string) models.Availability {
	e := s.events[eventID]
	return models.Availability{
		EventID:          eventID,
		TicketCapacity:   e.TicketCapacity,
		AvailableTickets: e.AvailableTickets,
		TicketsSold:      e.TicketsSold,
		Seq:              s.seqs[eventID],
		UpdatedAt:        s.updatedAt[eventID],
	}
}

// bump must be called with mu held.
func (s *Store) bump(eventID string, at time.Time) {
	s.seqs[eventID]++
	s.updatedAt[eventID] = at
}

type reservationStore Store

func (rs *reservationStore) Reserve(ctx context.Context, r *models.Reservation) (models.Availability, error) {
	s := (*Store)(rs)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[r.EventID]
	if !ok {
		return models.Availability{}, errs.ErrEventNotFound
	}
	if e.AvailableTickets <= 0 {
		return models.Availability{}, errs.ErrSoldOut
	}

	e.AvailableTickets--
	s.bump(r.EventID, r.CreatedAt)

	cp := *r
	cp.State = models.ReservationStateHeld
	s.reservations[r.ID] = &cp

	return s.snapshot(r.EventID), nil
}

func (rs *reservationStore) Release(ctx context.Context, id string, at time.Time) (repository.Transition, error) {
	return rs.free(id, models.ReservationStateReleased, at, false)
}

func (rs *reservationStore) Expire(ctx context.Context, id string, now time.Time) (repository.Transition, error) {
	return rs.free(id, models.ReservationStateExpired, now, true)
}

func (rs *reservationStore) free(id string, to models.ReservationState, at time.Time, onlyExpired bool) (repository.Transition, error) {
	s := (*Store)(rs)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return repository.Transition{}, errs.ErrReservationNotFound
	}
	if !r.IsHeld() || (onlyExpired && !r.IsExpired(at)) {
		cp := *r
		return repository.Transition{Reservation: &cp, Availability: s.snapshot(r.EventID)}, nil
	}

	s.returnSeat(r, to, at)

	cp := *r
	return repository.Transition{Reservation: &cp, Availability: s.snapshot(r.EventID), Changed: true}, nil
}

// returnSeat must be called with mu held.
func (s *Store) returnSeat(r *models.Reservation, to models.ReservationState, at time.Time) {
	r.State = to
	releasedAt := at
	r.ReleasedAt = &releasedAt
	s.events[r.EventID].AvailableTickets++
	s.bump(r.EventID, at)
}

func (rs *reservationStore) Confirm(ctx context.Context, id, txRef string, now time.Time) (repository.Transition, error) {
	s := (*Store)(rs)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return repository.Transition{}, errs.ErrReservationNotFound
	}
	if !r.IsHeld() {
		cp := *r
		return repository.Transition{Reservation: &cp, Availability: s.snapshot(r.EventID)}, errs.ErrInvalidReservationState
	}
	if r.IsExpired(now) {
		s.returnSeat(r, models.ReservationStateExpired, now)
		cp := *r
		return repository.Transition{Reservation: &cp, Availability: s.snapshot(r.EventID), Changed: true}, errs.ErrReservationExpired
	}

	r.State = models.ReservationStateConfirmed
	r.TxRef = txRef
	confirmedAt := now
	r.ConfirmedAt = &confirmedAt
	s.events[r.EventID].TicketsSold++
	s.bump(r.EventID, now)

	cp := *r
	return repository.Transition{Reservation: &cp, Availability: s.snapshot(r.EventID), Changed: true}, nil
}

func (rs *reservationStore) Get(ctx context.Context, id string) (*models.Reservation, error) {
	s := (*Store)(rs)
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, errs.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (rs *reservationStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	s := (*Store)(rs)
	s.mu.RLock()
	defer s.mu.RUnlock()

	expired := make([]*models.Reservation, 0)
	for _, r := range s.reservations {
		if r.IsExpired(now) {
			expired = append(expired, r)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })

	ids := make([]string, 0, len(expired))
	for _, r := range expired {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (rs *reservationStore) AddPendingIssuance(ctx context.Context, id string) error {
	s := (*Store)(rs)
	s.mu.Lock()
	s.pending[id] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (rs *reservationStore) ListPendingIssuance(ctx context.Context, limit int) ([]string, error) {
	s := (*Store)(rs)
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (rs *reservationStore) RemovePendingIssuance(ctx context.Context, id string) error {
	s := (*Store)(rs)
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
	return nil
}

type ticketStore Store

func (ts *ticketStore) Create(ctx context.Context, t *models.Ticket) error {
	s := (*Store)(ts)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byResv[t.ReservationID]; ok {
		return errs.ErrTicketAlreadyIssued
	}
	cp := *t
	s.tickets[t.ID] = &cp
	s.byResv[t.ReservationID] = t.ID
	return nil
}

func (ts *ticketStore) Get(ctx context.Context, id string) (*models.Ticket, error) {
	s := (*Store)(ts)
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (ts *ticketStore) GetByReservation(ctx context.Context, reservationID string) (*models.Ticket, error) {
	s := (*Store)(ts)
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byResv[reservationID]
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	cp := *s.tickets[id]
	return &cp, nil
}

func (ts *ticketStore) List(ctx context.Context, f repository.TicketFilter) ([]*models.Ticket, error) {
	s := (*Store)(ts)
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*models.Ticket, 0)
	for _, t := range s.tickets {
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		if f.EventID != "" && t.EventID != f.EventID {
			continue
		}
		if search != "" && !matches(t, search) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*models.Ticket{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(t *models.Ticket, search string) bool {
	return strings.Contains(strings.ToLower(t.Details.Name), search) ||
		strings.Contains(strings.ToLower(t.Details.Email), search) ||
		strings.Contains(strings.ToLower(t.Details.EventName), search)
}

func (ts *ticketStore) Invalidate(ctx context.Context, id string, at time.Time) (*models.Ticket, error) {
	s := (*Store)(ts)
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	if t.IsValid {
		t.IsValid = false
		invalidatedAt := at
		t.InvalidatedAt = &invalidatedAt
	}
	cp := *t
	return &cp, nil
}
