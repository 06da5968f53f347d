package migration

import (
	"context"

	"dashsync/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

var _ Migrator = (*MigrationRunner)(nil)

// MigrationRunner creates the run archive schema
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order. Every statement is
// idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSyncRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create sync_runs table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createSyncRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sync_runs (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			priority_domain_count INTEGER NOT NULL DEFAULT 0,
			data_changed BOOLEAN NOT NULL DEFAULT FALSE,
			error_count INTEGER NOT NULL DEFAULT 0,
			log JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs (started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_status ON sync_runs (status)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
