package ports

import (
	"context"
	"time"

	"dashsync/internal/synclog"
)

// RunSummary is one archived run
type RunSummary struct {
	RunID               string    `db:"run_id" json:"run_id"`
	StartedAt           time.Time `db:"started_at" json:"started_at"`
	Status              string    `db:"status" json:"status"`
	DurationSeconds     float64   `db:"duration_seconds" json:"duration_seconds"`
	PriorityDomainCount int       `db:"priority_domain_count" json:"priority_domain_count"`
	DataChanged         bool      `db:"data_changed" json:"data_changed"`
	ErrorCount          int       `db:"error_count" json:"error_count"`
}

// RunArchive keeps every run log beyond the bounded JSON history
type RunArchive interface {
	Record(ctx context.Context, run synclog.RunLog) error
	Recent(ctx context.Context, limit int) ([]RunSummary, error)
}
