// Package synclog builds the JSON run log written after every sync: per-file
// metadata, changes since the previous run and a bounded run history.
package synclog

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"dashsync/domain/grid"
	"dashsync/domain/period"
	"dashsync/internal/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultHistoryLimit is how many runs the history list keeps.
const DefaultHistoryLimit = 20

// Status summarizes a whole run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// StatusFor derives the run status from per-dataset outcomes.
func StatusFor(succeeded, total int) Status {
	switch {
	case total > 0 && succeeded == total:
		return StatusSuccess
	case succeeded > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

var lastUpdatedPattern = regexp.MustCompile(`(?i)last\s*updated\s*[:\-]?\s*(.+)`)

// FileMetadata describes one output file as written in this run.
type FileMetadata struct {
	Rows         int    `json:"rows"`
	Columns      int    `json:"columns"`
	LastUpdated  string `json:"last_updated,omitempty"`
	LatestPeriod string `json:"latest_period,omitempty"`
}

// DataChange records a file whose shape changed since the previous run.
type DataChange struct {
	File         string `json:"file"`
	RowDelta     int    `json:"row_delta"`
	ColumnDelta  int    `json:"column_delta"`
	Rows         int    `json:"rows"`
	Columns      int    `json:"columns"`
	LatestPeriod string `json:"latest_period,omitempty"`
}

// HistoryEntry is one past run in the history list.
type HistoryEntry struct {
	Timestamp           time.Time    `json:"timestamp"`
	RunID               string       `json:"run_id,omitempty"`
	Status              Status       `json:"status"`
	DurationSeconds     float64      `json:"duration_seconds"`
	PriorityDomainCount int          `json:"priority_domain_count"`
	DataChanged         bool         `json:"data_changed"`
	Changes             []DataChange `json:"changes,omitempty"`
}

// RunLog is the persisted sync-log.json document.
type RunLog struct {
	LastSync            time.Time               `json:"last_sync"`
	RunID               string                  `json:"run_id"`
	DurationSeconds     float64                 `json:"duration_seconds"`
	Status              Status                  `json:"status"`
	PriorityDomainCount int                     `json:"priority_domain_count"`
	FileSizes           map[string]int64        `json:"file_sizes"`
	Metadata            map[string]FileMetadata `json:"metadata"`
	Changes             []DataChange            `json:"changes"`
	Errors              []string                `json:"errors"`
	History             []HistoryEntry          `json:"history"`
}

// RunInput is what the orchestrator knows at the end of a run.
type RunInput struct {
	RunID               string
	Started             time.Time
	Duration            time.Duration
	Status              Status
	PriorityDomainCount int
	// Files maps output keys to the grids written this run.
	Files     map[string]grid.Grid
	FileSizes map[string]int64
	Errors    []string
}

// ExtractMetadata measures one output grid. The last-updated text is scraped
// from the first header cell and is empty when the cell carries none.
func ExtractMetadata(g grid.Grid) FileMetadata {
	meta := FileMetadata{
		Rows:    len(g.Rows()),
		Columns: g.Width(),
	}

	header := g.Header()
	if len(header) > 0 {
		if m := lastUpdatedPattern.FindStringSubmatch(header[0]); m != nil {
			meta.LastUpdated = strings.TrimSpace(m[1])
		}
	}

	for _, cell := range header {
		if period.IsPeriodColumn(cell) && cell > meta.LatestPeriod {
			meta.LatestPeriod = cell
		}
	}
	return meta
}

// Reporter assembles run logs.
type Reporter struct {
	historyLimit int
	logger       *zap.Logger
}

// NewReporter creates a reporter keeping historyLimit runs; non-positive
// limits use DefaultHistoryLimit.
func NewReporter(historyLimit int, logger *zap.Logger) *Reporter {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{historyLimit: historyLimit, logger: logger}
}

// Build produces this run's log from the previous one, which may be nil on
// the first run.
func Build(prev *RunLog, in RunInput) RunLog {
	return NewReporter(DefaultHistoryLimit, nil).Build(prev, in)
}

// Build produces this run's log from the previous one, which may be nil on
// the first run.
func (r *Reporter) Build(prev *RunLog, in RunInput) RunLog {
	runID := in.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	started := in.Started
	if started.IsZero() {
		started = time.Now()
	}

	log := RunLog{
		LastSync:            started.UTC(),
		RunID:               runID,
		DurationSeconds:     in.Duration.Seconds(),
		Status:              in.Status,
		PriorityDomainCount: in.PriorityDomainCount,
		FileSizes:           make(map[string]int64, len(in.FileSizes)),
		Metadata:            make(map[string]FileMetadata, len(in.Files)),
		Changes:             []DataChange{},
		Errors:              append([]string{}, in.Errors...),
	}
	for name, size := range in.FileSizes {
		log.FileSizes[name] = size
	}

	names := make([]string, 0, len(in.Files))
	for name := range in.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		meta := ExtractMetadata(in.Files[name])
		log.Metadata[name] = meta

		if prev == nil {
			continue
		}
		before, ok := prev.Metadata[name]
		if !ok {
			continue
		}
		change := DataChange{
			File:         name,
			RowDelta:     meta.Rows - before.Rows,
			ColumnDelta:  meta.Columns - before.Columns,
			Rows:         meta.Rows,
			Columns:      meta.Columns,
			LatestPeriod: meta.LatestPeriod,
		}
		if change.RowDelta != 0 || change.ColumnDelta != 0 {
			log.Changes = append(log.Changes, change)
		}
	}

	entry := HistoryEntry{
		Timestamp:           log.LastSync,
		RunID:               runID,
		Status:              log.Status,
		DurationSeconds:     log.DurationSeconds,
		PriorityDomainCount: log.PriorityDomainCount,
		DataChanged:         len(log.Changes) > 0,
	}
	if entry.DataChanged {
		entry.Changes = log.Changes
	}
	log.History = []HistoryEntry{entry}
	if prev != nil {
		log.History = append(log.History, prev.History...)
	}
	if len(log.History) > r.historyLimit {
		log.History = log.History[:r.historyLimit]
	}

	r.logger.Info("built run log",
		zap.String("run_id", runID),
		zap.String("status", string(log.Status)),
		zap.Int("files", len(log.Metadata)),
		zap.Int("changes", len(log.Changes)),
		zap.Int("history", len(log.History)))
	return log
}

// Encode renders the log as indented JSON.
func (l RunLog) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode run log")
	}
	return data, nil
}

// Decode parses a persisted run log.
func Decode(data []byte) (*RunLog, error) {
	var log RunLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "failed to decode run log"))
	}
	return &log, nil
}
