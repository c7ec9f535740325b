package archive

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larsson/nodeload/internal/observability"
)

// PostgresArchive persists one row per completed run via a tuned pgxpool
// connection pool.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

// NewPostgresArchive connects to dsn and ensures the runs table exists.
func NewPostgresArchive(ctx context.Context, dsn string) (*PostgresArchive, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS nodeload_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			spec        JSONB NOT NULL,
			outcomes    JSONB NOT NULL,
			summaries   JSONB NOT NULL
		)
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresArchive{pool: pool}, nil
}

// Save inserts run. If a row with the same RunID exists, its finished_at,
// outcomes and summaries are overwritten; started_at and spec are kept.
func (a *PostgresArchive) Save(ctx context.Context, run RunSummary) error {
	specJSON, err := json.Marshal(run.Spec)
	if err != nil {
		return err
	}
	outcomesJSON, err := json.Marshal(run.Outcomes)
	if err != nil {
		return err
	}
	summariesJSON, err := json.Marshal(run.Summaries)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO nodeload_runs (run_id, started_at, finished_at, spec, outcomes, summaries)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			outcomes    = EXCLUDED.outcomes,
			summaries   = EXCLUDED.summaries
	`
	_, err = a.pool.Exec(ctx, query, run.RunID, run.StartedAt, run.FinishedAt, specJSON, outcomesJSON, summariesJSON)
	if err != nil {
		return err
	}
	observability.RunsArchived.Inc()
	return nil
}

// Close releases the connection pool.
func (a *PostgresArchive) Close() error {
	a.pool.Close()
	return nil
}
