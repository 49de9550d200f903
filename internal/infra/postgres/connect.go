package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vogiaan1904/ticketbottle-inventory/config"
	"github.com/vogiaan1904/ticketbottle-inventory/migrations"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
)

// Connect opens a pool and applies pending migrations before returning it.
func Connect(ctx context.Context, cfg config.PostgresConfig, l logger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	if err := migrations.Apply(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	l.Infof(ctx, "Connected to Postgres at %s/%s", poolCfg.ConnConfig.Host, poolCfg.ConnConfig.Database)

	return pool, nil
}

func Disconnect(ctx context.Context, pool *pgxpool.Pool, l logger.Logger) {
	if pool == nil {
		return
	}

	pool.Close()

	l.Info(ctx, "Connection to Postgres closed.")
}
