package kafka

import (
	"errors"

	"github.com/IBM/sarama"
)

const clientID = "ticketbottle-inventory"

var errNoBrokers = errors.New("kafka: no brokers configured")

func baseConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_8_0_0
	return cfg
}

func producerConfig(cfg ProducerConfig) *sarama.Config {
	c := baseConfig()
	c.Producer.RequiredAcks = sarama.RequiredAcks(cfg.RequiredAcks)
	c.Producer.Retry.Max = cfg.RetryMax
	c.Producer.Return.Successes = true
	// Keyed by event id so one event's updates stay on one partition.
	c.Producer.Partitioner = sarama.NewHashPartitioner

	if cfg.Idempotent {
		c.Producer.Idempotent = true
		c.Producer.RequiredAcks = sarama.WaitForAll
		c.Net.MaxOpenRequests = 1
	}
	return c
}

func consumerConfig() *sarama.Config {
	c := baseConfig()
	c.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	// Payment outcomes must not be skipped across restarts.
	c.Consumer.Offsets.Initial = sarama.OffsetOldest
	c.Consumer.Return.Errors = true
	return c
}
