package realtime

import (
	"context"
	"sync"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

// Publisher is what inventory changes are pushed into.
type Publisher interface {
	Publish(ctx context.Context, u models.Availability) error
}

// Broadcaster owns the per-event subscriber table of this process.
type Broadcaster struct {
	l logger.Logger

	mu      sync.RWMutex
	subs    map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}
	closed  bool
}

func NewBroadcaster(l logger.Logger) *Broadcaster {
	return &Broadcaster{
		l:       l,
		subs:    make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]map[string]struct{}),
	}
}

// Register creates a connection-scoped client with no subscriptions. After
// Close it returns a client that is already closed.
func (b *Broadcaster) Register() *Client {
	c := newClient()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		c.close()
		return c
	}
	b.clients[c] = make(map[string]struct{})

	return c
}

func (b *Broadcaster) Subscribe(c *Client, eventID string) {
	b.TrySubscribe(c, eventID, 0)
}

// TrySubscribe subscribes c to eventID unless c already holds max other
// subscriptions. A max of zero or less means no limit. Re-subscribing to an
// event c already follows always succeeds.
func (b *Broadcaster) TrySubscribe(c *Client, eventID string, max int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	events, ok := b.clients[c]
	if !ok {
		return false
	}
	if _, already := events[eventID]; already {
		return true
	}
	if max > 0 && len(events) >= max {
		return false
	}
	events[eventID] = struct{}{}

	set, ok := b.subs[eventID]
	if !ok {
		set = make(map[*Client]struct{})
		b.subs[eventID] = set
	}
	set[c] = struct{}{}
	return true
}

// Subscriptions returns how many events c follows.
func (b *Broadcaster) Subscriptions(c *Client) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[c])
}

func (b *Broadcaster) Unsubscribe(c *Client, eventID string) {
	b.mu.Lock()
	if events, ok := b.clients[c]; ok {
		delete(events, eventID)
	}
	b.removeLocked(c, eventID)
	c.forget(eventID)
	b.mu.Unlock()
}

// Disconnect drops every subscription of c and closes it.
func (b *Broadcaster) Disconnect(c *Client) {
	b.mu.Lock()
	for eventID := range b.clients[c] {
		b.removeLocked(c, eventID)
	}
	delete(b.clients, c)
	c.close()
	b.mu.Unlock()
}

// Close disconnects every client so their Next returns ErrClientClosed, and
// makes later registrations start closed. Used on shutdown to end streams.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	n := len(b.clients)
	for c := range b.clients {
		c.close()
	}
	b.clients = make(map[*Client]map[string]struct{})
	b.subs = make(map[string]map[*Client]struct{})

	b.l.Infof(context.Background(), "Realtime broadcaster closed clients=%d", n)
}

func (b *Broadcaster) removeLocked(c *Client, eventID string) {
	set, ok := b.subs[eventID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(b.subs, eventID)
	}
}

// Publish hands u to every current subscriber of its event without blocking.
func (b *Broadcaster) Publish(ctx context.Context, u models.Availability) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for c := range b.subs[u.EventID] {
		if c.Deliver(u) {
			delivered++
		}
	}

	if delivered > 0 {
		b.l.Debugf(ctx, "realtime.Broadcaster.Publish: event_id=%s seq=%d available=%d subscribers=%d",
			u.EventID, u.Seq, u.AvailableTickets, delivered)
	}
	return nil
}

func (b *Broadcaster) SubscriberCount(eventID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventID])
}
