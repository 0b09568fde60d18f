package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/soldscout/internal/domain"
)

// RunStore implements domain.RunStore on PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a RunStore backed by the given Client.
func NewRunStore(c *Client) *RunStore {
	return &RunStore{pool: c.Pool()}
}

// CreateRun records a new run in the "running" state.
func (s *RunStore) CreateRun(ctx context.Context, run domain.Run) error {
	const q = `
		INSERT INTO runs (id, mode, input_path, output_path, row_count, started_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, q,
		run.ID, run.Mode, run.InputPath, run.OutputPath,
		run.RowCount, run.StartedAt, run.Status,
	)
	if err != nil {
		return fmt.Errorf("postgres: create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records the terminal state of a run.
func (s *RunStore) FinishRun(ctx context.Context, run domain.Run) error {
	const q = `
		UPDATE runs
		SET status = $2, error = $3, finished_at = $4
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, q, run.ID, run.Status, run.Error, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("postgres: finish run %s: %w", run.ID, err)
	}
	return nil
}

// UpsertRow stores one completed output row for the run. Re-running a row
// (after a retry of the whole run) overwrites the previous record.
func (s *RunStore) UpsertRow(ctx context.Context, runID string, index int, row domain.OutputRow) error {
	const q = `
		INSERT INTO run_rows (
			run_id, row_index, identity, keyword, source_url, derived_url,
			matched_sold_count, recent_matched_count, median_price,
			window_ratio, demand_sale_ratio, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id, row_index) DO UPDATE SET
			identity = EXCLUDED.identity,
			keyword = EXCLUDED.keyword,
			source_url = EXCLUDED.source_url,
			derived_url = EXCLUDED.derived_url,
			matched_sold_count = EXCLUDED.matched_sold_count,
			recent_matched_count = EXCLUDED.recent_matched_count,
			median_price = EXCLUDED.median_price,
			window_ratio = EXCLUDED.window_ratio,
			demand_sale_ratio = EXCLUDED.demand_sale_ratio,
			error = EXCLUDED.error,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, q,
		runID, index, row.Input.Identity, row.Input.Keyword,
		row.Input.SourceURL, row.DerivedURL,
		row.MatchedSoldCount, row.RecentMatchedCount, row.MedianPrice,
		row.WindowRatio, row.DemandSaleRatio, row.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert row %d for run %s: %w", index, runID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.RunStore = (*RunStore)(nil)
