package producer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafka "github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

func TestPublishTicketIssued(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)

	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, kafka.TopicTicketIssued, msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "e1", string(key))

		val, err := msg.Value.Encode()
		require.NoError(t, err)
		var ev kafka.TicketIssuedEvent
		require.NoError(t, json.Unmarshal(val, &ev))
		assert.Equal(t, "r1", ev.ReservationID)
		assert.False(t, ev.Timestamp.IsZero())

		require.Len(t, msg.Headers, 1)
		assert.Equal(t, "timestamp", string(msg.Headers[0].Key))
		return nil
	})

	p := NewProducer(mp, logger.InitializeTestZapLogger())
	require.NoError(t, p.PublishTicketIssued(context.Background(), kafka.TicketIssuedEvent{
		ID:            "t1",
		ReservationID: "r1",
		EventID:       "e1",
	}))
	require.NoError(t, p.Close())
}

func TestPublish_Error(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducer(mp, logger.InitializeTestZapLogger())
	err := p.PublishReservationReleased(context.Background(), kafka.ReservationReleasedEvent{EventID: "e1", Reason: "expired"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}
