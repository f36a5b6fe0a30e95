package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/engine/refindex"
)

// loadVariantsCSV parses the reference catalogue from a CSV file.
func loadVariantsCSV(ctx context.Context, path string) ([]domain.CanonicalVariant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()
	return refindex.ParseCSV(ctx, f)
}

// openPool connects a pgx pool and verifies the connection.
func openPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}
