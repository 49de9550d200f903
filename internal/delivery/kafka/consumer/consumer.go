package consumer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type Consumer struct {
	consGr sarama.ConsumerGroup
	paySvc service.PaymentService
	l      logger.Logger
	wg     sync.WaitGroup

	maxAttempts int
	retryDelay  time.Duration
	rejoinDelay time.Duration
	stalled     atomic.Bool
}

func NewConsumer(
	consGr sarama.ConsumerGroup,
	paySvc service.PaymentService,
	l logger.Logger,
) *Consumer {
	return &Consumer{
		consGr: consGr,
		paySvc: paySvc,
		l:      l,

		maxAttempts: 3,
		retryDelay:  200 * time.Millisecond,
		rejoinDelay: 5 * time.Second,
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	switch msg.Topic {
	case kafka.TopicPaymentSucceeded:
		return c.HandlePaymentSucceeded(ctx, msg)
	case kafka.TopicPaymentFailed:
		return c.HandlePaymentFailed(ctx, msg)
	default:
		c.l.Warnf(ctx, "Unknown topic: %s", msg.Topic)
		return nil
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	topics := []string{kafka.TopicPaymentSucceeded, kafka.TopicPaymentFailed}
	c.wg.Go(func() {
		for {
			if err := c.consGr.Consume(ctx, topics, c); err != nil {
				c.l.Errorf(ctx, "delivery.kafka.consumer.consumer.Start: %v", err)
			}

			if ctx.Err() != nil {
				c.l.Infof(ctx, "delivery.kafka.consumer.consumer.Start: %v", ctx.Err())
				return
			}

			// A claim that stopped on a failing message ended the session; rejoin
			// after a pause so the message is redelivered from the committed offset.
			if c.stalled.Swap(false) {
				select {
				case <-time.After(c.rejoinDelay):
				case <-ctx.Done():
					return
				}
			}
		}
	})

	// Handle errors
	c.wg.Go(func() {
		for err := range c.consGr.Errors() {
			c.l.Errorf(ctx, "delivery.kafka.consumer.consumer.Start: %v", err)
		}
	})

	c.l.Infof(ctx, "Consumer is consuming topics: %v", topics)
	return nil
}

func (c *Consumer) Close() error {
	if err := c.consGr.Close(); err != nil {
		return err
	}

	c.wg.Wait()
	return nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	c.l.Debug(context.Background(), "Consumer group session started")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	c.l.Debug(context.Background(), "Consumer group session ended")
	return nil
}

// ConsumeClaim retries a failing handler a few times before giving up on the
// claim. A message is marked only once its handler succeeded; otherwise the
// claim returns without marking it, which ends the session, and the message is
// redelivered from the last committed offset when the group rejoins. Payment
// outcomes are idempotent downstream, so redelivery is harmless.
func (c *Consumer) ConsumeClaim(ss sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			ctx := c.l.WithFields(ss.Context(), "topic", message.Topic, "partition", message.Partition, "offset", message.Offset)
			if err := c.handleWithRetry(ctx, message); err != nil {
				if ss.Context().Err() != nil {
					c.l.Infof(ctx, "Session ended before message was handled, leaving it for redelivery")
					return nil
				}
				c.stalled.Store(true)
				c.l.Errorf(ctx, "ALERT delivery.kafka.consumer.consumer.ConsumeClaim: message unhandled after %d attempts, pausing partition: %v", c.maxAttempts, err)
				return fmt.Errorf("topic %s partition %d offset %d: %w", message.Topic, message.Partition, message.Offset, err)
			}

			ss.MarkMessage(message, "")

		case <-ss.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.processMessage(ctx, msg); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < c.maxAttempts {
			c.l.Warnf(ctx, "Handler failed attempt=%d: %v", attempt, err)
			select {
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}
