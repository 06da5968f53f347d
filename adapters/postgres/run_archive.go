package postgres

import (
	"context"
	"encoding/json"

	"dashsync/internal/errors"
	"dashsync/internal/synclog"
	"dashsync/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// RunArchive implements ports.RunArchive for PostgreSQL
type RunArchive struct {
	db *sqlx.DB
}

// NewRunArchive creates a new PostgreSQL run archive
func NewRunArchive(db *sqlx.DB) *RunArchive {
	return &RunArchive{db: db}
}

// Record stores a run. The embedded history is dropped since every run has
// its own row. Recording the same run twice is a no-op.
func (a *RunArchive) Record(ctx context.Context, run synclog.RunLog) error {
	run.History = nil
	payload, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "failed to encode run")
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO sync_runs (run_id, started_at, status, duration_seconds, priority_domain_count, data_changed, error_count, log)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO NOTHING
	`, run.RunID, run.LastSync, string(run.Status), run.DurationSeconds, run.PriorityDomainCount,
		len(run.Changes) > 0, len(run.Errors), string(payload))
	if err != nil {
		return errors.DatabaseError("failed to insert sync run", err)
	}
	return nil
}

// Recent lists the newest runs first
func (a *RunArchive) Recent(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	records := []ports.RunSummary{}
	err := a.db.SelectContext(ctx, &records, `
		SELECT run_id, started_at, status, duration_seconds, priority_domain_count, data_changed, error_count
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list sync runs", err)
	}
	return records, nil
}

// Open connects to PostgreSQL
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	return db, nil
}
