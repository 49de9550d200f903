package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type ConsumerConfig struct {
	Brokers []string
	GroupID string
}

func NewConsumer(ctx context.Context, cfg ConsumerConfig, l logger.Logger) (sarama.ConsumerGroup, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errNoBrokers
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka: consumer group id is required")
	}

	consGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, consumerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer group: %w", err)
	}

	l.Infof(ctx, "Kafka consumer connected to brokers: %v, group: %s", cfg.Brokers, cfg.GroupID)

	return consGroup, nil
}
