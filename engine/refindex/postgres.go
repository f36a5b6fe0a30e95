package refindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carthesien/enrich/engine/domain"
)

const defaultTable = "reference_variants"

// PostgresSource loads (and stores) the variant dataset from a Postgres table
// with the same column names as the CSV export.
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSource creates a source over the given pool.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool, table: defaultTable}
}

func (s *PostgresSource) Load(ctx context.Context) ([]domain.CanonicalVariant, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT brand, model, generation, year_from, year_to, fuel,
		       max_power_kw, fiscal_power_cv, mixed_consumption,
		       co2_g_per_km, label, category
		FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("refindex: query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []domain.CanonicalVariant
	for rows.Next() {
		var v domain.CanonicalVariant
		var fuel, category string
		if err := rows.Scan(&v.Brand, &v.Model, &v.Generation, &v.YearFrom, &v.YearTo,
			&fuel, &v.MaxPowerKW, &v.FiscalPowerCV, &v.MixedConsumption,
			&v.CO2GPerKM, &v.Label, &category); err != nil {
			return nil, fmt.Errorf("refindex: scan: %w", err)
		}
		f, ok := fuelCodes[fuel]
		if !ok {
			continue
		}
		v.Fuel = f
		v.Category = domain.Category(category)
		v.Key = VariantKey(v)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("refindex: rows: %w", err)
	}
	return out, nil
}

// Store bulk-writes variants into the table, replacing its contents. Used by
// the loader CLI to seed the table from a CSV export.
func (s *PostgresSource) Store(ctx context.Context, variants []domain.CanonicalVariant) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("refindex: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE %s", s.table)); err != nil {
		return fmt.Errorf("refindex: truncate %s: %w", s.table, err)
	}

	cols := []string{"brand", "model", "generation", "year_from", "year_to", "fuel",
		"max_power_kw", "fiscal_power_cv", "mixed_consumption", "co2_g_per_km", "label", "category"}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{s.table}, cols,
		pgx.CopyFromSlice(len(variants), func(i int) ([]any, error) {
			v := variants[i]
			return []any{v.Brand, v.Model, v.Generation, v.YearFrom, v.YearTo, string(v.Fuel),
				v.MaxPowerKW, v.FiscalPowerCV, v.MixedConsumption, v.CO2GPerKM, v.Label, string(v.Category)}, nil
		}))
	if err != nil {
		return fmt.Errorf("refindex: copy into %s: %w", s.table, err)
	}
	return tx.Commit(ctx)
}
