package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type redisReservationRepository struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisReservationRepository(cli *redis.Client, l logger.Logger) repository.ReservationRepository {
	return &redisReservationRepository{
		cli: cli,
		l:   l,
	}
}

func (r *redisReservationRepository) Reserve(ctx context.Context, res *models.Reservation) (models.Availability, error) {
	cp := *res
	cp.State = models.ReservationStateHeld
	data, err := json.Marshal(cp)
	if err != nil {
		return models.Availability{}, err
	}

	keys := []string{reservationKey(res.ID), eventKey(res.EventID), expiryIndexKey}
	reply, err := reserveScript.Run(ctx, r.cli, keys,
		res.ID, res.EventID, toMillis(res.ExpiresAt), data, toMillis(res.CreatedAt),
	).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisReservationRepository.Reserve: %v", err)
		return models.Availability{}, err
	}

	code, avail, err := parseReply(res.EventID, reply)
	if err != nil {
		return models.Availability{}, err
	}

	switch code {
	case codeOK:
		r.l.Debugf(ctx, "Reserved seat event_id=%s reservation_id=%s available=%d", res.EventID, res.ID, avail.AvailableTickets)
		return avail, nil
	case codeNotFound:
		return models.Availability{}, errs.ErrEventNotFound
	case codeSoldOut:
		return models.Availability{}, errs.ErrSoldOut
	case codeExists:
		return models.Availability{}, fmt.Errorf("reservation %s already exists", res.ID)
	default:
		return models.Availability{}, fmt.Errorf("unexpected reserve reply code %d", code)
	}
}

func (r *redisReservationRepository) Release(ctx context.Context, id string, at time.Time) (repository.Transition, error) {
	return r.free(ctx, id, models.ReservationStateReleased, at, false)
}

func (r *redisReservationRepository) Expire(ctx context.Context, id string, now time.Time) (repository.Transition, error) {
	return r.free(ctx, id, models.ReservationStateExpired, now, true)
}

func (r *redisReservationRepository) free(ctx context.Context, id string, to models.ReservationState, at time.Time, onlyExpired bool) (repository.Transition, error) {
	eventID, err := r.eventOf(ctx, id)
	if err != nil {
		return repository.Transition{}, err
	}

	flag := "0"
	if onlyExpired {
		flag = "1"
	}

	keys := []string{reservationKey(id), eventKey(eventID), expiryIndexKey}
	reply, err := freeScript.Run(ctx, r.cli, keys, id, string(to), toMillis(at), flag).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisReservationRepository.free: %v", err)
		return repository.Transition{}, err
	}

	code, avail, err := parseReply(eventID, reply)
	if err != nil {
		return repository.Transition{}, err
	}
	if code == codeNotFound {
		return repository.Transition{}, errs.ErrReservationNotFound
	}

	res, err := r.Get(ctx, id)
	if err != nil {
		return repository.Transition{}, err
	}

	return repository.Transition{Reservation: res, Availability: avail, Changed: code == codeOK}, nil
}

func (r *redisReservationRepository) Confirm(ctx context.Context, id, txRef string, now time.Time) (repository.Transition, error) {
	eventID, err := r.eventOf(ctx, id)
	if err != nil {
		return repository.Transition{}, err
	}

	keys := []string{reservationKey(id), eventKey(eventID), expiryIndexKey}
	reply, err := confirmScript.Run(ctx, r.cli, keys, id, txRef, toMillis(now)).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisReservationRepository.Confirm: %v", err)
		return repository.Transition{}, err
	}

	code, avail, err := parseReply(eventID, reply)
	if err != nil {
		return repository.Transition{}, err
	}
	if code == codeNotFound {
		return repository.Transition{}, errs.ErrReservationNotFound
	}

	res, err := r.Get(ctx, id)
	if err != nil {
		return repository.Transition{}, err
	}
	tr := repository.Transition{Reservation: res, Availability: avail}

	switch code {
	case codeOK:
		tr.Changed = true
		return tr, nil
	case codeInvalidState:
		return tr, errs.ErrInvalidReservationState
	case codeExpired:
		tr.Changed = true
		return tr, errs.ErrReservationExpired
	default:
		return tr, fmt.Errorf("unexpected confirm reply code %d", code)
	}
}

func (r *redisReservationRepository) eventOf(ctx context.Context, id string) (string, error) {
	eventID, err := r.cli.HGet(ctx, reservationKey(id), "event_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errs.ErrReservationNotFound
		}
		r.l.Errorf(ctx, "redisReservationRepository.eventOf: %v", err)
		return "", err
	}
	return eventID, nil
}

func (r *redisReservationRepository) Get(ctx context.Context, id string) (*models.Reservation, error) {
	fields, err := r.cli.HGetAll(ctx, reservationKey(id)).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisReservationRepository.Get: %v", err)
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errs.ErrReservationNotFound
	}

	var res models.Reservation
	if err := json.Unmarshal([]byte(fields["data"]), &res); err != nil {
		return nil, fmt.Errorf("decode reservation %s: %w", id, err)
	}

	res.State = models.ReservationState(fields["state"])
	res.TxRef = fields["tx_ref"]
	if v, ok := fields["confirmed_at"]; ok {
		at, err := fromMillis(v)
		if err != nil {
			return nil, fmt.Errorf("decode reservation %s confirmed_at: %w", id, err)
		}
		res.ConfirmedAt = &at
	}
	if v, ok := fields["released_at"]; ok {
		at, err := fromMillis(v)
		if err != nil {
			return nil, fmt.Errorf("decode reservation %s released_at: %w", id, err)
		}
		res.ReleasedAt = &at
	}

	return &res, nil
}

func (r *redisReservationRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	opt := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(toMillis(now), 10),
	}
	if limit > 0 {
		opt.Count = int64(limit)
	}

	ids, err := r.cli.ZRangeByScore(ctx, expiryIndexKey, opt).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisReservationRepository.ListExpired: %v", err)
		return nil, err
	}

	return ids, nil
}

func (r *redisReservationRepository) AddPendingIssuance(ctx context.Context, id string) error {
	if err := r.cli.SAdd(ctx, pendingKey, id).Err(); err != nil {
		r.l.Errorf(ctx, "redisReservationRepository.AddPendingIssuance: %v", err)
		return err
	}
	return nil
}

func (r *redisReservationRepository) ListPendingIssuance(ctx context.Context, limit int) ([]string, error) {
	ids, err := r.cli.SMembers(ctx, pendingKey).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisReservationRepository.ListPendingIssuance: %v", err)
		return nil, err
	}

	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	return ids, nil
}

func (r *redisReservationRepository) RemovePendingIssuance(ctx context.Context, id string) error {
	if err := r.cli.SRem(ctx, pendingKey, id).Err(); err != nil {
		r.l.Errorf(ctx, "redisReservationRepository.RemovePendingIssuance: %v", err)
		return err
	}
	return nil
}
