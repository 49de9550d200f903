package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
)

var ErrClientClosed = errors.New("realtime client closed")

// Client is one connection's view of the broadcaster. Pending updates are
// coalesced per event so a slow reader only ever sees the latest count, and
// seq never goes backwards for an event.
type Client struct {
	ID string

	mu      sync.Mutex
	pending map[string]models.Availability
	order   []string
	last    map[string]int64
	closed  bool

	notify chan struct{}
	done   chan struct{}
}

func newClient() *Client {
	return &Client{
		ID:      uuid.NewString(),
		pending: make(map[string]models.Availability),
		last:    make(map[string]int64),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Deliver queues u unless an update with an equal or newer seq was already
// queued for the event. It never blocks.
func (c *Client) Deliver(u models.Availability) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if last, ok := c.last[u.EventID]; ok && u.Seq <= last {
		return false
	}

	c.last[u.EventID] = u.Seq
	if _, ok := c.pending[u.EventID]; !ok {
		c.order = append(c.order, u.EventID)
	}
	c.pending[u.EventID] = u

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return true
}

// Next blocks until an update is pending, the client is closed or ctx ends.
func (c *Client) Next(ctx context.Context) (models.Availability, error) {
	for {
		c.mu.Lock()
		if len(c.order) > 0 {
			eventID := c.order[0]
			c.order = c.order[1:]
			u := c.pending[eventID]
			delete(c.pending, eventID)
			c.mu.Unlock()
			return u, nil
		}
		closed := c.closed
		c.mu.Unlock()

		if closed {
			return models.Availability{}, ErrClientClosed
		}

		select {
		case <-ctx.Done():
			return models.Availability{}, ctx.Err()
		case <-c.done:
		case <-c.notify:
		}
	}
}

// Done is closed when the client is disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) forget(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.last, eventID)
	if _, ok := c.pending[eventID]; !ok {
		return
	}
	delete(c.pending, eventID)
	for i, id := range c.order {
		if id == eventID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.pending = make(map[string]models.Availability)
	c.order = nil
	close(c.done)
}
