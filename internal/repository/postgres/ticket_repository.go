package pgrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

const ticketColumns = `id, ticket_id, reservation_id, user_id, event_id, details, tx_ref, is_valid, created_at, invalidated_at`

type pgTicketRepository struct {
	pool *pgxpool.Pool
	l    logger.Logger
}

func NewTicketRepository(pool *pgxpool.Pool, l logger.Logger) repository.TicketRepository {
	return &pgTicketRepository{
		pool: pool,
		l:    l,
	}
}

func (r *pgTicketRepository) Create(ctx context.Context, t *models.Ticket) error {
	details, err := json.Marshal(t.Details)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO tickets (`+ticketColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.TicketID, t.ReservationID, t.UserID, t.EventID, details, t.TxRef, t.IsValid, t.CreatedAt, t.InvalidatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrTicketAlreadyIssued
		}
		r.l.Errorf(ctx, "pgTicketRepository.Create: %v", err)
		return err
	}

	return nil
}

func (r *pgTicketRepository) Get(ctx context.Context, id string) (*models.Ticket, error) {
	if uuid.Validate(id) != nil {
		return nil, errs.ErrTicketNotFound
	}

	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, errs.ErrTicketNotFound
		}
		r.l.Errorf(ctx, "pgTicketRepository.Get: %v", err)
		return nil, err
	}
	return t, nil
}

func (r *pgTicketRepository) GetByReservation(ctx context.Context, reservationID string) (*models.Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE reservation_id = $1`, reservationID)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrTicketNotFound
		}
		r.l.Errorf(ctx, "pgTicketRepository.GetByReservation: %v", err)
		return nil, err
	}
	return t, nil
}

func (r *pgTicketRepository) List(ctx context.Context, f repository.TicketFilter) ([]*models.Ticket, error) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.EventID != "" {
		args = append(args, f.EventID)
		conds = append(conds, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(details->>'name' ILIKE $%d OR details->>'email' ILIKE $%d OR details->>'event_name' ILIKE $%d)", n, n, n,
		))
	}

	q := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.l.Errorf(ctx, "pgTicketRepository.List: %v", err)
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		r.l.Errorf(ctx, "pgTicketRepository.List: %v", err)
		return nil, err
	}

	return out, nil
}

func (r *pgTicketRepository) Invalidate(ctx context.Context, id string, at time.Time) (*models.Ticket, error) {
	if uuid.Validate(id) != nil {
		return nil, errs.ErrTicketNotFound
	}

	row := r.pool.QueryRow(ctx, `
UPDATE tickets
SET is_valid = FALSE,
	invalidated_at = COALESCE(invalidated_at, $2)
WHERE id = $1
RETURNING `+ticketColumns, id, at)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, errs.ErrTicketNotFound
		}
		r.l.Errorf(ctx, "pgTicketRepository.Invalidate: %v", err)
		return nil, err
	}
	return t, nil
}

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var (
		t       models.Ticket
		details []byte
	)
	if err := row.Scan(
		&t.ID, &t.TicketID, &t.ReservationID, &t.UserID, &t.EventID,
		&details, &t.TxRef, &t.IsValid, &t.CreatedAt, &t.InvalidatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(details, &t.Details); err != nil {
		return nil, fmt.Errorf("decode ticket details: %w", err)
	}
	return &t, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
