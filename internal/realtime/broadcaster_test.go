package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

func upd(eventID string, seq, available int64) models.Availability {
	return models.Availability{EventID: eventID, Seq: seq, AvailableTickets: available, TicketCapacity: 10}
}

func next(t *testing.T, c *Client) models.Availability {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u, err := c.Next(ctx)
	require.NoError(t, err)
	return u
}

func TestPublish_OnlySubscribers(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(logger.InitializeTestZapLogger())

	a := b.Register()
	other := b.Register()
	b.Subscribe(a, "e1")
	b.Subscribe(other, "e2")
	assert.Equal(t, 1, b.SubscriberCount("e1"))

	require.NoError(t, b.Publish(ctx, upd("e1", 1, 9)))

	assert.Equal(t, int64(9), next(t, a).AvailableTickets)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := other.Next(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CoalescesAndDropsStale(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(logger.InitializeTestZapLogger())
	c := b.Register()
	b.Subscribe(c, "e1")
	b.Subscribe(c, "e2")

	require.NoError(t, b.Publish(ctx, upd("e1", 1, 9)))
	require.NoError(t, b.Publish(ctx, upd("e2", 1, 4)))
	require.NoError(t, b.Publish(ctx, upd("e1", 3, 7)))
	// Arrives late through another path; must not overtake seq 3.
	require.NoError(t, b.Publish(ctx, upd("e1", 2, 8)))

	first := next(t, c)
	assert.Equal(t, "e1", first.EventID)
	assert.Equal(t, int64(3), first.Seq)

	second := next(t, c)
	assert.Equal(t, "e2", second.EventID)

	assert.False(t, c.Deliver(upd("e1", 3, 7)))
	assert.True(t, c.Deliver(upd("e1", 4, 6)))
	assert.Equal(t, int64(4), next(t, c).Seq)
}

func TestUnsubscribe_DropsPending(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(logger.InitializeTestZapLogger())
	c := b.Register()
	b.Subscribe(c, "e1")
	b.Subscribe(c, "e2")

	require.NoError(t, b.Publish(ctx, upd("e1", 5, 5)))
	require.NoError(t, b.Publish(ctx, upd("e2", 1, 1)))
	b.Unsubscribe(c, "e1")
	require.NoError(t, b.Publish(ctx, upd("e1", 6, 4)))

	assert.Equal(t, "e2", next(t, c).EventID)
	assert.Zero(t, b.SubscriberCount("e1"))

	// A fresh subscription starts its own sequence.
	b.Subscribe(c, "e1")
	assert.True(t, c.Deliver(upd("e1", 5, 5)))
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(logger.InitializeTestZapLogger())
	c := b.Register()
	b.Subscribe(c, "e1")
	b.Subscribe(c, "e2")

	b.Disconnect(c)
	b.Disconnect(c)

	assert.Zero(t, b.SubscriberCount("e1"))
	assert.Zero(t, b.SubscriberCount("e2"))
	require.NoError(t, b.Publish(ctx, upd("e1", 1, 1)))

	_, err := c.Next(ctx)
	assert.ErrorIs(t, err, ErrClientClosed)

	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}

	// Subscribing a disconnected client is a no-op.
	b.Subscribe(c, "e1")
	assert.Zero(t, b.SubscriberCount("e1"))
}

func TestPublish_OrderedPerSubscriber(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(logger.InitializeTestZapLogger())

	const n = 500
	clients := make([]*Client, 4)
	for i := range clients {
		clients[i] = b.Register()
		b.Subscribe(clients[i], "e1")
	}

	go func() {
		for seq := int64(1); seq <= n; seq++ {
			_ = b.Publish(ctx, upd("e1", seq, n-seq))
		}
	}()

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			var last int64
			for last < n {
				u, err := c.Next(ctx)
				if !assert.NoError(t, err) {
					return
				}
				assert.Greater(t, u.Seq, last)
				last = u.Seq
			}
		}(c)
	}
	wg.Wait()
}

func TestTrySubscribe_Limit(t *testing.T) {
	b := NewBroadcaster(logger.InitializeTestZapLogger())
	c := b.Register()

	assert.True(t, b.TrySubscribe(c, "e1", 2))
	assert.True(t, b.TrySubscribe(c, "e2", 2))
	assert.False(t, b.TrySubscribe(c, "e3", 2))
	assert.True(t, b.TrySubscribe(c, "e1", 2))
	assert.Equal(t, 2, b.Subscriptions(c))
	assert.Zero(t, b.SubscriberCount("e3"))

	b.Unsubscribe(c, "e2")
	assert.True(t, b.TrySubscribe(c, "e3", 2))

	b.Disconnect(c)
	assert.False(t, b.TrySubscribe(c, "e4", 0))
}

func TestClose_EndsEveryClient(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(logger.InitializeTestZapLogger())

	a := b.Register()
	other := b.Register()
	b.Subscribe(a, "e1")
	b.Subscribe(other, "e2")

	waitErr := make(chan error, 1)
	go func() {
		_, err := a.Next(ctx)
		waitErr <- err
	}()

	b.Close()
	b.Close()

	select {
	case err := <-waitErr:
		assert.ErrorIs(t, err, ErrClientClosed)
	case <-time.After(time.Second):
		t.Fatal("Next still blocked after Close")
	}

	_, err := other.Next(ctx)
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.Zero(t, b.SubscriberCount("e1"))
	require.NoError(t, b.Publish(ctx, upd("e1", 5, 1)))

	late := b.Register()
	_, err = late.Next(ctx)
	assert.ErrorIs(t, err, ErrClientClosed)

	// Disconnect after Close stays safe.
	b.Disconnect(a)
}
