package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type fakePayments struct {
	service.PaymentService

	mu        sync.Mutex
	confirmed []service.PaymentConfirmedInput
	failed    []service.PaymentFailedInput
	failTimes int
}

func (f *fakePayments) OnPaymentConfirmed(ctx context.Context, in service.PaymentConfirmedInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTimes > 0 {
		f.failTimes--
		return errors.New("store unavailable")
	}
	f.confirmed = append(f.confirmed, in)
	return nil
}

func (f *fakePayments) OnPaymentFailed(ctx context.Context, in service.PaymentFailedInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, in)
	return nil
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx context.Context

	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.mu.Lock()
	s.marked = append(s.marked, msg.Offset)
	s.mu.Unlock()
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	msgs chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func newTestConsumer(pay *fakePayments, retryDelay time.Duration) *Consumer {
	c := NewConsumer(nil, pay, logger.InitializeTestZapLogger())
	c.retryDelay = retryDelay
	return c
}

func claimOf(msgs ...*sarama.ConsumerMessage) *fakeClaim {
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, len(msgs))}
	for _, m := range msgs {
		claim.msgs <- m
	}
	close(claim.msgs)
	return claim
}

func consume(t *testing.T, pay *fakePayments, msgs ...*sarama.ConsumerMessage) (*fakeSession, error) {
	t.Helper()

	c := newTestConsumer(pay, time.Millisecond)
	ss := &fakeSession{ctx: context.Background()}
	err := c.ConsumeClaim(ss, claimOf(msgs...))
	return ss, err
}

func succeeded(offset int64, reservationID string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic:  kafka.TopicPaymentSucceeded,
		Offset: offset,
		Value:  []byte(`{"reservation_id":"` + reservationID + `","tx_ref":"tx-` + reservationID + `"}`),
	}
}

func TestConsumeClaim(t *testing.T) {
	pay := &fakePayments{}
	ss, err := consume(t, pay,
		&sarama.ConsumerMessage{Topic: kafka.TopicPaymentSucceeded, Offset: 1, Value: []byte(`{"reservation_id":"r1","tx_ref":"tx-1"}`)},
		&sarama.ConsumerMessage{Topic: kafka.TopicPaymentFailed, Offset: 2, Value: []byte(`{"reservation_id":"r2","reason":"declined"}`)},
		&sarama.ConsumerMessage{Topic: kafka.TopicPaymentSucceeded, Offset: 3, Value: []byte(`not json`)},
		&sarama.ConsumerMessage{Topic: kafka.TopicPaymentSucceeded, Offset: 4, Value: []byte(`{"tx_ref":"tx-4"}`)},
		&sarama.ConsumerMessage{Topic: "unrelated", Offset: 5},
	)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ss.marked)
	require.Len(t, pay.confirmed, 1)
	assert.Equal(t, "tx-1", pay.confirmed[0].TxRef)
	require.Len(t, pay.failed, 1)
	assert.Equal(t, "declined", pay.failed[0].Reason)
}

func TestConsumeClaim_RetriesHandlerErrors(t *testing.T) {
	pay := &fakePayments{failTimes: 2}
	ss, err := consume(t, pay, succeeded(7, "r1"))
	require.NoError(t, err)

	assert.Equal(t, []int64{7}, ss.marked)
	assert.Len(t, pay.confirmed, 1)
}

func TestConsumeClaim_StopsWithoutMarkingAfterMaxAttempts(t *testing.T) {
	pay := &fakePayments{failTimes: 10}
	c := newTestConsumer(pay, time.Millisecond)
	ss := &fakeSession{ctx: context.Background()}

	err := c.ConsumeClaim(ss, claimOf(succeeded(8, "r0"), succeeded(9, "r1")))
	require.Error(t, err)

	assert.Empty(t, ss.marked)
	assert.Empty(t, pay.confirmed)
	assert.Equal(t, 7, pay.failTimes)
	assert.True(t, c.stalled.Load())
}

func TestConsumeClaim_SessionEndDuringBackoffLeavesMessageUnmarked(t *testing.T) {
	pay := &fakePayments{failTimes: 1}
	c := newTestConsumer(pay, 500*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	ss := &fakeSession{ctx: ctx}
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err := c.ConsumeClaim(ss, claimOf(succeeded(42, "r1")))
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Empty(t, ss.marked)
	assert.Empty(t, pay.confirmed)
	assert.False(t, c.stalled.Load())
}
