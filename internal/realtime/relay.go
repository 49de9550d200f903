package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

// RedisRelay fans availability updates out to every instance through a Redis
// pub/sub channel. Publishing goes to Redis only; the local broadcaster is fed
// by Run, including for updates this instance published.
type RedisRelay struct {
	cli     *redis.Client
	channel string
	local   Publisher
	l       logger.Logger
}

func NewRedisRelay(cli *redis.Client, channel string, local Publisher, l logger.Logger) *RedisRelay {
	return &RedisRelay{
		cli:     cli,
		channel: channel,
		local:   local,
		l:       l,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, u models.Availability) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}

	if err := r.cli.Publish(ctx, r.channel, data).Err(); err != nil {
		r.l.Errorf(ctx, "realtime.RedisRelay.Publish: %v", err)
		return fmt.Errorf("publish availability: %w", err)
	}

	return nil
}

// Subscribe opens the channel subscription and waits for Redis to confirm it.
func (r *RedisRelay) Subscribe(ctx context.Context) (*redis.PubSub, error) {
	sub := r.cli.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	return sub, nil
}

// Run forwards relayed updates to the local broadcaster until ctx ends.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub, err := r.Subscribe(ctx)
	if err != nil {
		return err
	}
	return r.Forward(ctx, sub)
}

// Forward consumes an open subscription until ctx ends.
func (r *RedisRelay) Forward(ctx context.Context, sub *redis.PubSub) error {
	defer sub.Close()

	r.l.Infof(ctx, "Realtime relay listening on channel %s", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var u models.Availability
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				r.l.Warnf(ctx, "realtime.RedisRelay.Forward: dropping malformed update: %v", err)
				continue
			}

			if err := r.local.Publish(ctx, u); err != nil {
				r.l.Errorf(ctx, "realtime.RedisRelay.Forward: %v", err)
			}
		}
	}
}
