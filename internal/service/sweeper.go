package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/clock"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

type Sweeper interface {
	Start(ctx context.Context) error
	Stop() error
	// ProcessOnce expires lapsed holds and retries pending ticket issuance.
	ProcessOnce(ctx context.Context) SweepResult
	GetStatus() SweeperStatus
}

type SweeperStatus struct {
	IsRunning     bool      `json:"is_running"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	LastProcessed time.Time `json:"last_processed,omitempty"`
	TotalExpired  int64     `json:"total_expired"`
	TotalReissued int64     `json:"total_reissued"`
	ErrorCount    int64     `json:"error_count"`
}

type SweeperConfig struct {
	Interval              time.Duration // How often to sweep
	BatchSize             int           // Max expired holds per sweep
	ReissueBatchSize      int           // Max pending issuances per sweep
	RetryAttempts         int
	RetryDelay            time.Duration
	ShutdownTimeout       time.Duration
	MaxProcessingDuration time.Duration
}

type sweeper struct {
	inv          InventoryService
	tickets      TicketService
	reservations repository.ReservationRepository
	clock        clock.Clock
	l            logger.Logger

	config SweeperConfig

	mu        sync.RWMutex
	isRunning bool
	startedAt time.Time
	stopCh    chan struct{}
	ticker    *time.Ticker
	wg        sync.WaitGroup

	lastProcessed time.Time
	totalExpired  int64
	totalReissued int64
	errorCount    int64
}

func NewSweeper(
	inv InventoryService,
	tickets TicketService,
	reservations repository.ReservationRepository,
	c clock.Clock,
	cfg SweeperConfig,
	l logger.Logger,
) Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.ReissueBatchSize <= 0 {
		cfg.ReissueBatchSize = 50
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MaxProcessingDuration <= 0 {
		cfg.MaxProcessingDuration = cfg.Interval
	}

	return &sweeper{
		inv:          inv,
		tickets:      tickets,
		reservations: reservations,
		clock:        c,
		l:            l,
		config:       cfg,
		stopCh:       make(chan struct{}),
	}
}

func (sw *sweeper) Start(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.isRunning {
		return errors.New("sweeper is already running")
	}

	sw.l.Infof(ctx, "Starting reservation sweeper interval=%s batch_size=%d", sw.config.Interval, sw.config.BatchSize)

	sw.isRunning = true
	sw.startedAt = sw.clock.Now()
	sw.ticker = time.NewTicker(sw.config.Interval)

	sw.wg.Add(1)
	go sw.loop(ctx)

	return nil
}

func (sw *sweeper) Stop() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if !sw.isRunning {
		return errors.New("sweeper is not running")
	}

	ctx := context.Background()
	sw.l.Info(ctx, "Stopping reservation sweeper...")

	close(sw.stopCh)
	if sw.ticker != nil {
		sw.ticker.Stop()
	}

	done := make(chan struct{})
	go func() {
		sw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		sw.l.Info(ctx, "Reservation sweeper stopped gracefully")
	case <-time.After(sw.config.ShutdownTimeout):
		sw.l.Warn(ctx, "Reservation sweeper shutdown timeout exceeded")
	}

	sw.isRunning = false
	return nil
}

func (sw *sweeper) loop(ctx context.Context) {
	defer sw.wg.Done()

	for {
		select {
		case <-ctx.Done():
			sw.l.Info(ctx, "Reservation sweeper stopped due to context cancellation")
			return
		case <-sw.stopCh:
			return
		case <-sw.ticker.C:
			sw.ProcessOnce(ctx)
		}
	}
}

func (sw *sweeper) ProcessOnce(ctx context.Context) SweepResult {
	start := time.Now()
	var out SweepResult

	defer func() {
		sw.mu.Lock()
		sw.lastProcessed = sw.clock.Now()
		sw.totalExpired += int64(out.Expired)
		sw.totalReissued += int64(out.Reissued)
		sw.errorCount += int64(out.Failed)
		sw.mu.Unlock()

		if d := time.Since(start); d > sw.config.MaxProcessingDuration {
			sw.l.Warnf(ctx, "Sweep took longer than expected duration=%s max=%s", d, sw.config.MaxProcessingDuration)
		}
		if out.Expired > 0 || out.Reissued > 0 || out.Failed > 0 {
			sw.l.Infof(ctx, "Sweep completed expired=%d reissued=%d failed=%d", out.Expired, out.Reissued, out.Failed)
		}
	}()

	sw.expireHolds(ctx, &out)
	sw.reissueTickets(ctx, &out)

	return out
}

func (sw *sweeper) expireHolds(ctx context.Context, out *SweepResult) {
	ids, err := sw.reservations.ListExpired(ctx, sw.clock.Now(), sw.config.BatchSize)
	if err != nil {
		out.Failed++
		sw.l.Errorf(ctx, "service.sweeper.expireHolds: %v", err)
		return
	}

	for _, id := range ids {
		var expired bool
		err := sw.withRetry(ctx, func() error {
			var err error
			expired, err = sw.inv.Expire(ctx, id)
			if errors.Is(err, errs.ErrReservationNotFound) {
				return nil
			}
			return err
		})
		if err != nil {
			out.Failed++
			sw.l.Errorf(ctx, "Failed to expire reservation reservation_id=%s: %v", id, err)
			continue
		}
		if expired {
			out.Expired++
		}
	}
}

func (sw *sweeper) reissueTickets(ctx context.Context, out *SweepResult) {
	ids, err := sw.reservations.ListPendingIssuance(ctx, sw.config.ReissueBatchSize)
	if err != nil {
		out.Failed++
		sw.l.Errorf(ctx, "service.sweeper.reissueTickets: %v", err)
		return
	}

	for _, id := range ids {
		res, err := sw.inv.GetReservation(ctx, id)
		if err != nil {
			if errors.Is(err, errs.ErrReservationNotFound) {
				sw.dropPending(ctx, id)
				continue
			}
			out.Failed++
			sw.l.Errorf(ctx, "Failed to load reservation for reissue reservation_id=%s: %v", id, err)
			continue
		}

		if err := sw.withRetry(ctx, func() error {
			_, err := sw.tickets.Issue(ctx, res)
			return err
		}); err != nil {
			if errors.Is(err, errs.ErrInvalidReservationState) {
				sw.l.Warnf(ctx, "Pending issuance for unconfirmed reservation dropped reservation_id=%s state=%s", id, res.State)
				sw.dropPending(ctx, id)
				continue
			}
			out.Failed++
			sw.l.Errorf(ctx, "ALERT ticket reissue failed reservation_id=%s: %v", id, err)
			continue
		}

		out.Reissued++
	}
}

func (sw *sweeper) dropPending(ctx context.Context, id string) {
	if err := sw.reservations.RemovePendingIssuance(ctx, id); err != nil {
		sw.l.Warnf(ctx, "Failed to clear pending issuance reservation_id=%s: %v", id, err)
	}
}

func (sw *sweeper) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < sw.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sw.config.RetryDelay * time.Duration(attempt)):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}
		// Not worth retrying.
		if errors.Is(err, errs.ErrInvalidReservationState) {
			return err
		}

		lastErr = err
		sw.l.Warnf(ctx, "Operation failed, retrying attempt=%d max_attempts=%d: %v", attempt+1, sw.config.RetryAttempts, err)
	}

	return fmt.Errorf("operation failed after %d attempts: %w", sw.config.RetryAttempts, lastErr)
}

func (sw *sweeper) GetStatus() SweeperStatus {
	sw.mu.RLock()
	defer sw.mu.RUnlock()

	return SweeperStatus{
		IsRunning:     sw.isRunning,
		StartedAt:     sw.startedAt,
		LastProcessed: sw.lastProcessed,
		TotalExpired:  sw.totalExpired,
		TotalReissued: sw.totalReissued,
		ErrorCount:    sw.errorCount,
	}
}
