package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metervision/meter-reading-api/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Pool is an alias for pgxpool.Pool
type Pool = pgxpool.Pool

// NewPool creates a new PostgreSQL connection pool. The OnStart hook pings
// the database with a bounded, fixed-delay retry loop and runs pending
// migrations, so the process never serves requests without a working
// schema-complete database.
func NewPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*pgxpool.Pool, error) {
	logger.Info("initializing database connection pool")

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to create connection pool: %w", err)
	}

	attempts := cfg.Database.ConnectAttempts
	retryDelay := time.Duration(cfg.Database.ConnectRetryDelaySec) * time.Second

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pingWithRetry(ctx, pool, logger, attempts, retryDelay); err != nil {
				return err
			}
			if err := Migrate(cfg.Database.URL, logger); err != nil {
				return fmt.Errorf("[DATABASE] failed to run migrations: %w", err)
			}
			logger.Info("database connection established successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Close()
			logger.Info("database connection closed")
			return nil
		},
	})

	return pool, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger, attempts int, delay time.Duration) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Info("attempting to connect to database...",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts))

		if lastErr = pool.Ping(ctx); lastErr == nil {
			return nil
		}

		logger.Error("database ping failed", zap.Error(lastErr), zap.Int("attempt", attempt))

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("[DATABASE CONNECTION FAILED] cannot reach database after %d attempts. Please check: 1) Database is running, 2) DATABASE_URL is correct, 3) Network/firewall allows connection. Error: %w", attempts, lastErr)
}
