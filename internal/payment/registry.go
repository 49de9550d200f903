package payment

import (
	"sync"
	"time"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/clock"
)

const ReasonHoldExpired = "hold expired"

// Registry tracks the open checkout handles of this process by reservation id.
// A handle leaves the registry as soon as it resolves.
type Registry struct {
	clock clock.Clock

	mu      sync.Mutex
	handles map[string]*Handle
}

func NewRegistry(c clock.Clock) *Registry {
	return &Registry{
		clock:   c,
		handles: make(map[string]*Handle),
	}
}

// Begin returns the open handle for the reservation, creating one that cancels
// itself at expiresAt.
func (r *Registry) Begin(reservationID, buyerID string, expiresAt time.Time) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[reservationID]; ok {
		return h
	}

	h := newHandle(reservationID, buyerID, expiresAt)
	h.timer = time.AfterFunc(expiresAt.Sub(r.clock.Now()), func() {
		r.Cancel(reservationID, ReasonHoldExpired)
	})
	r.handles[reservationID] = h

	return h
}

func (r *Registry) Get(reservationID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[reservationID]
	return h, ok
}

// Resolve settles the open handle of the reservation, if any.
func (r *Registry) Resolve(reservationID string, res Result) bool {
	h, ok := r.take(reservationID)
	if !ok {
		return false
	}
	return h.resolve(res)
}

func (r *Registry) Cancel(reservationID, reason string) bool {
	h, ok := r.take(reservationID)
	if !ok {
		return false
	}
	return h.Cancel(reason)
}

func (r *Registry) take(reservationID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[reservationID]
	if ok {
		delete(r.handles, reservationID)
	}
	return h, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Close cancels every open handle.
func (r *Registry) Close() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	for _, h := range handles {
		h.Cancel("shutting down")
	}
}
