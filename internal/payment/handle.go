package payment

import (
	"context"
	"sync"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type Result struct {
	Status   Status `json:"status"`
	TxRef    string `json:"tx_ref,omitempty"`
	TicketID string `json:"ticket_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Handle is the pending outcome of one checkout. It resolves exactly once.
type Handle struct {
	ReservationID string
	BuyerID       string
	ExpiresAt     time.Time

	once   sync.Once
	done   chan struct{}
	result Result
	timer  *time.Timer
}

func newHandle(reservationID, buyerID string, expiresAt time.Time) *Handle {
	return &Handle{
		ReservationID: reservationID,
		BuyerID:       buyerID,
		ExpiresAt:     expiresAt,
		done:          make(chan struct{}),
		result:        Result{Status: StatusPending},
	}
}

// resolve reports whether r became the handle's outcome.
func (h *Handle) resolve(r Result) bool {
	resolved := false
	h.once.Do(func() {
		h.result = r
		resolved = true
		if h.timer != nil {
			h.timer.Stop()
		}
		close(h.done)
	})
	return resolved
}

// Cancel resolves the handle as cancelled unless it already resolved.
func (h *Handle) Cancel(reason string) bool {
	return h.resolve(Result{Status: StatusCancelled, Reason: reason})
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Await blocks until the handle resolves or ctx ends. On ctx end it returns a
// pending result together with ctx.Err().
func (h *Handle) Await(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{Status: StatusPending}, ctx.Err()
	}
}

// Peek returns the outcome without blocking.
func (h *Handle) Peek() (Result, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return Result{Status: StatusPending}, false
	}
}
