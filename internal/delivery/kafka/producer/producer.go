package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	kafka "github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type Producer interface {
	PublishReservationHeld(ctx context.Context, event kafka.ReservationHeldEvent) error
	PublishReservationReleased(ctx context.Context, event kafka.ReservationReleasedEvent) error
	PublishTicketIssued(ctx context.Context, event kafka.TicketIssuedEvent) error
	PublishTicketIssuanceFailed(ctx context.Context, event kafka.TicketIssuanceFailedEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) PublishReservationHeld(ctx context.Context, event kafka.ReservationHeldEvent) error {
	event.Timestamp = time.Now()
	return p.send(ctx, kafka.TopicReservationHeld, event.EventID, event)
}

func (p *implProducer) PublishReservationReleased(ctx context.Context, event kafka.ReservationReleasedEvent) error {
	event.Timestamp = time.Now()
	return p.send(ctx, kafka.TopicReservationReleased, event.EventID, event)
}

func (p *implProducer) PublishTicketIssued(ctx context.Context, event kafka.TicketIssuedEvent) error {
	event.Timestamp = time.Now()
	return p.send(ctx, kafka.TopicTicketIssued, event.EventID, event)
}

func (p *implProducer) PublishTicketIssuanceFailed(ctx context.Context, event kafka.TicketIssuanceFailedEvent) error {
	event.Timestamp = time.Now()
	return p.send(ctx, kafka.TopicTicketIssuanceFailed, event.EventID, event)
}

func (p *implProducer) send(ctx context.Context, topic, eventID string, event any) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.send: %v", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(eventID), // Partition by event_id for ordering
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(time.Now().Format(time.RFC3339)),
			},
		},
	}

	if _, _, err := p.prod.SendMessage(msg); err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.send: topic=%s: %v", topic, err)
		return err
	}

	return nil
}

func (p *implProducer) Close() error {
	if err := p.prod.Close(); err != nil {
		return err
	}

	return nil
}
