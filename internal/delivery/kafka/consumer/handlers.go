package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
)

var errMissingReservationID = errors.New("payment event without reservation_id")

func (c *Consumer) HandlePaymentSucceeded(ctx context.Context, message *sarama.ConsumerMessage) error {
	c.l.Info(ctx, "HandlePaymentSucceeded consumed")

	var e kafka.PaymentSucceededEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		// A poison message would block the partition forever; log and skip it.
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandlePaymentSucceeded: %v", err)
		return nil
	}
	if e.ReservationID == "" {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandlePaymentSucceeded: %v", errMissingReservationID)
		return nil
	}

	if err := c.paySvc.OnPaymentConfirmed(ctx, service.PaymentConfirmedInput{
		ReservationID: e.ReservationID,
		TxRef:         e.TxRef,
	}); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandlePaymentSucceeded: %v", err)
		return err
	}

	return nil
}

func (c *Consumer) HandlePaymentFailed(ctx context.Context, message *sarama.ConsumerMessage) error {
	c.l.Info(ctx, "HandlePaymentFailed consumed")

	var e kafka.PaymentFailedEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandlePaymentFailed: %v", err)
		return nil
	}
	if e.ReservationID == "" {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandlePaymentFailed: %v", errMissingReservationID)
		return nil
	}

	if err := c.paySvc.OnPaymentFailed(ctx, service.PaymentFailedInput{
		ReservationID: e.ReservationID,
		TxRef:         e.TxRef,
		Reason:        e.Reason,
	}); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandlePaymentFailed: %v", err)
		return err
	}

	return nil
}
