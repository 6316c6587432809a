package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/config"
	"github.com/xkilldash9x/flowlens/internal/observability"
	"github.com/xkilldash9x/flowlens/internal/store"
)

// artifactStore is the part of the store the commands use.
type artifactStore interface {
	schemas.Store
	Migrate(ctx context.Context) error
	History(ctx context.Context, artifactID string) ([]schemas.ChangeRecord, error)
}

// storeProvider creates a store and a cleanup function that releases its
// resources. Tests inject a mock instead of a live database.
type storeProvider interface {
	Create(ctx context.Context, cfg *config.Config) (artifactStore, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the PostgreSQL-backed provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to PostgreSQL and returns the store with a cleanup that
// closes the pool.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (artifactStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (FLOWLENS_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}
