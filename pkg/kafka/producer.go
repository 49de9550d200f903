package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type ProducerConfig struct {
	Brokers      []string
	RetryMax     int
	RequiredAcks int
	// Idempotent forces acks from all replicas and one in-flight request.
	Idempotent bool
}

func NewProducer(ctx context.Context, cfg ProducerConfig, l logger.Logger) (sarama.SyncProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errNoBrokers
	}

	saramaCfg := producerConfig(cfg)
	if err := saramaCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka producer config: %w", err)
	}

	prod, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	l.Infof(ctx, "Kafka producer connected to brokers: %v idempotent=%t", cfg.Brokers, cfg.Idempotent)

	return prod, nil
}
