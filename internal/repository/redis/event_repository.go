package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type redisEventRepository struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisEventRepository(cli *redis.Client, l logger.Logger) repository.EventRepository {
	return &redisEventRepository{
		cli: cli,
		l:   l,
	}
}

// eventMeta is the immutable-by-inventory part of an event, stored as JSON.
type eventMeta struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	OrganizerID string  `json:"organizer_id"`
	EventDate   string  `json:"event_date"`
	EventTime   string  `json:"event_time"`
	TicketPrice float64 `json:"ticket_price"`
	CreatedAt   int64   `json:"created_at"`
}

func (r *redisEventRepository) Save(ctx context.Context, e *models.Event) error {
	data, err := json.Marshal(eventMeta{
		ID:          e.ID,
		Title:       e.Title,
		OrganizerID: e.OrganizerID,
		EventDate:   e.EventDate,
		EventTime:   e.EventTime,
		TicketPrice: e.TicketPrice,
		CreatedAt:   toMillis(e.CreatedAt),
	})
	if err != nil {
		return err
	}

	keys := []string{eventKey(e.ID), eventsSetKey}
	if err := saveEventScript.Run(ctx, r.cli, keys, e.ID, data, e.TicketCapacity, toMillis(e.CreatedAt)).Err(); err != nil {
		r.l.Errorf(ctx, "redisEventRepository.Save: %v", err)
		return err
	}

	return nil
}

func (r *redisEventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	vals, err := r.cli.HMGet(ctx, eventKey(id), "data", "capacity", "available", "sold").Result()
	if err != nil {
		r.l.Errorf(ctx, "redisEventRepository.Get: %v", err)
		return nil, err
	}

	return decodeEvent(id, vals)
}

func decodeEvent(id string, vals []any) (*models.Event, error) {
	raw, ok := vals[0].(string)
	if !ok {
		return nil, errs.ErrEventNotFound
	}

	var meta eventMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", id, err)
	}

	counters := make([]int64, 3)
	for i, v := range vals[1:] {
		s, _ := v.(string)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode event %s counters: %w", id, err)
		}
		counters[i] = n
	}

	return &models.Event{
		ID:               id,
		Title:            meta.Title,
		OrganizerID:      meta.OrganizerID,
		EventDate:        meta.EventDate,
		EventTime:        meta.EventTime,
		TicketPrice:      meta.TicketPrice,
		TicketCapacity:   counters[0],
		AvailableTickets: counters[1],
		TicketsSold:      counters[2],
		CreatedAt:        fromMillisInt(meta.CreatedAt),
	}, nil
}

func (r *redisEventRepository) List(ctx context.Context) ([]*models.Event, error) {
	ids, err := r.cli.SMembers(ctx, eventsSetKey).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisEventRepository.List: %v", err)
		return nil, err
	}
	sort.Strings(ids)

	pipe := r.cli.Pipeline()
	cmds := make([]*redis.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HMGet(ctx, eventKey(id), "data", "capacity", "available", "sold")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		r.l.Errorf(ctx, "redisEventRepository.List: %v", err)
		return nil, err
	}

	out := make([]*models.Event, 0, len(ids))
	for i, id := range ids {
		e, err := decodeEvent(id, cmds[i].Val())
		if err != nil {
			if errors.Is(err, errs.ErrEventNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, e)
	}

	return out, nil
}

func (r *redisEventRepository) GetAvailability(ctx context.Context, id string) (models.Availability, error) {
	vals, err := r.cli.HMGet(ctx, eventKey(id), "available", "sold", "capacity", "seq", "updated_at").Result()
	if err != nil {
		r.l.Errorf(ctx, "redisEventRepository.GetAvailability: %v", err)
		return models.Availability{}, err
	}
	if vals[0] == nil {
		return models.Availability{}, errs.ErrEventNotFound
	}

	n := make([]int64, len(vals))
	for i, v := range vals {
		s, _ := v.(string)
		if n[i], err = strconv.ParseInt(s, 10, 64); err != nil {
			return models.Availability{}, fmt.Errorf("decode availability %s: %w", id, err)
		}
	}

	return models.Availability{
		EventID:          id,
		AvailableTickets: n[0],
		TicketsSold:      n[1],
		TicketCapacity:   n[2],
		Seq:              n[3],
		UpdatedAt:        fromMillisInt(n[4]),
	}, nil
}
