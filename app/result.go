package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dashsync/domain/grid"
	"dashsync/internal/dataset"
	"dashsync/ports"

	"go.uber.org/zap"
)

// Outcome is the result of syncing one dataset.
type Outcome struct {
	Dataset string
	Label   string
	Key     string
	// Grid is the merged grid written to Key; nil when the dataset failed
	// before writing.
	Grid grid.Grid
	// PriorityKey and Priority are set when a reduced variant was written.
	PriorityKey string
	Priority    grid.Grid
	Merge       dataset.MergeResult
	Err         error
}

// OK reports whether the dataset synced completely.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Result is the structured summary of one invocation.
type Result struct {
	StatusCode      int             `json:"statusCode"`
	Message         string          `json:"message"`
	RunID           string          `json:"run_id,omitempty"`
	Results         map[string]bool `json:"results,omitempty"`
	Errors          []string        `json:"errors,omitempty"`
	DurationSeconds float64         `json:"duration_seconds"`
	PriorityDomains int             `json:"priority_domains"`
}

// summary is the fold of all dataset outcomes.
type summary struct {
	results   map[string]bool
	errors    []string
	succeeded int
	total     int
}

func summarize(outcomes []Outcome) summary {
	sum := summary{results: make(map[string]bool, len(outcomes)), total: len(outcomes)}
	for _, o := range outcomes {
		sum.results[o.Dataset] = o.OK()
		if o.OK() {
			sum.succeeded++
			continue
		}
		sum.errors = append(sum.errors, fmt.Sprintf("%s: %v", o.Label, o.Err))
	}
	return sum
}

func errorMessage(succeeded, total int, errs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sync completed with errors (%d/%d succeeded)\nErrors:", succeeded, total)
	for _, e := range errs {
		b.WriteString("\n• ")
		b.WriteString(e)
	}
	return b.String()
}

func successMessage(total int, duration time.Duration) string {
	return fmt.Sprintf("All %d sheets synced successfully in %.1fs", total, duration.Seconds())
}

// SetupFailure reports a run that could not start, e.g. because the
// credentials could not be decoded. The alert is best-effort.
func SetupFailure(ctx context.Context, notifier ports.Notifier, err error, logger *zap.Logger) Result {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Error("sync failed during setup", zap.Error(err))

	if notifier != nil {
		msg := fmt.Sprintf("Sync failed with critical error: %v", err)
		if nerr := notifier.Notify(ctx, msg, true); nerr != nil {
			logger.Warn("failed to send notification", zap.Error(nerr))
		}
	}

	return Result{
		StatusCode: http.StatusInternalServerError,
		Message:    "Sync failed",
		Errors:     []string{err.Error()},
	}
}
