package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendease/internal/config"
	"github.com/kozaktomas/attendease/internal/database/postgres"
	"github.com/kozaktomas/attendease/internal/web"
)

// openStores connects to PostgreSQL, runs migrations and wires up the
// repositories. The caller owns the returned pool.
func openStores(ctx context.Context, cfg *config.Config) (*postgres.Pool, web.Stores, error) {
	if cfg.Database.URL == "" {
		return nil, web.Stores{}, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, web.Stores{}, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, web.Stores{}, fmt.Errorf("failed to run migrations: %w", err)
	}

	stores := web.Stores{
		Users:      postgres.NewUserRepository(pool),
		Embeddings: postgres.NewEmbeddingRepository(pool),
		Attendance: postgres.NewAttendanceRepository(pool),
		Leave:      postgres.NewLeaveRepository(pool),
		Summaries:  postgres.NewSummaryRepository(pool),
	}
	return pool, stores, nil
}
