package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dashsync/domain/grid"
	"dashsync/internal/config"
	"dashsync/internal/dataset"
	"dashsync/internal/errors"
	"dashsync/internal/synclog"
	"dashsync/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SyncOptions tunes one SyncService
type SyncOptions struct {
	Datasets       []config.Dataset
	LogKey         string
	PriorityTopN   int
	HistoryLimit   int
	SheetsTimeout  time.Duration
	StorageTimeout time.Duration
	NotifyTimeout  time.Duration
	NotifySuccess  bool
	// Concurrency bounds the non-revenue fetches; zero means unbounded.
	Concurrency int
}

// OptionsFromConfig maps loaded configuration onto sync options.
func OptionsFromConfig(cfg *config.Config) SyncOptions {
	return SyncOptions{
		Datasets:       cfg.Datasets,
		LogKey:         cfg.Storage.LogKey,
		PriorityTopN:   cfg.Sync.PriorityTopN,
		HistoryLimit:   cfg.Sync.HistoryLimit,
		SheetsTimeout:  cfg.Google.Timeout,
		StorageTimeout: cfg.Storage.Timeout,
		NotifyTimeout:  cfg.Notify.Timeout,
		NotifySuccess:  cfg.Notify.NotifySuccess,
		Concurrency:    cfg.Sync.Concurrency,
	}
}

// SyncService pulls every dataset from the spreadsheet source, merges it
// into the persisted history and publishes the results
type SyncService struct {
	sheets   ports.SheetReader
	store    ports.ObjectStore
	notifier ports.Notifier
	archive  ports.RunArchive
	opts     SyncOptions
	merger   *dataset.Merger
	selector *dataset.PrioritySelector
	reporter *synclog.Reporter
	logger   *zap.Logger
	now      func() time.Time
}

// NewSyncService creates a sync service. notifier and archive may be nil.
func NewSyncService(opts SyncOptions, sheets ports.SheetReader, store ports.ObjectStore, notifier ports.Notifier, archive ports.RunArchive, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LogKey == "" {
		opts.LogKey = "sync-log.json"
	}
	return &SyncService{
		sheets:   sheets,
		store:    store,
		notifier: notifier,
		archive:  archive,
		opts:     opts,
		merger:   dataset.NewMerger(logger),
		selector: dataset.NewPrioritySelector(opts.PriorityTopN, logger),
		reporter: synclog.NewReporter(opts.HistoryLimit, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// Run performs one full sync. It never returns an error: every per-dataset
// failure is folded into the result.
func (s *SyncService) Run(ctx context.Context) Result {
	started := s.now()
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))
	logger.Info("sync started", zap.Int("datasets", len(s.opts.Datasets)))

	revenue, others := splitRevenue(s.opts.Datasets)

	var outcomes []Outcome
	var priority dataset.PrioritySet
	if revenue != nil {
		out := s.syncDataset(ctx, *revenue, nil, logger)
		outcomes = append(outcomes, out)
		if out.OK() {
			priority = s.selector.Select(out.Grid, started)
			if priority.Len() == 0 {
				logger.Warn("revenue produced no priority domains; skipping priority variants")
				priority = nil
			}
		} else {
			logger.Warn("revenue sync failed; skipping priority variants", zap.Error(out.Err))
		}
	}

	results := make([]Outcome, len(others))
	var g errgroup.Group
	if s.opts.Concurrency > 0 {
		g.SetLimit(s.opts.Concurrency)
	}
	for i, ds := range others {
		g.Go(func() error {
			results[i] = s.syncDataset(ctx, ds, priority, logger)
			return nil
		})
	}
	_ = g.Wait()
	outcomes = append(outcomes, results...)

	sum := summarize(outcomes)
	files, sizes := s.collectFiles(ctx, outcomes, logger)
	duration := s.now().Sub(started)

	runLog := s.reporter.Build(s.previousLog(ctx, logger), synclog.RunInput{
		RunID:               runID,
		Started:             started,
		Duration:            duration,
		Status:              synclog.StatusFor(sum.succeeded, sum.total),
		PriorityDomainCount: priority.Len(),
		Files:               files,
		FileSizes:           sizes,
		Errors:              sum.errors,
	})
	if err := s.persistLog(ctx, runLog); err != nil {
		logger.Error("failed to write sync log", zap.Error(err))
		sum.errors = append(sum.errors, fmt.Sprintf("Sync log: %v", err))
	}
	s.archiveRun(ctx, runLog, logger)

	result := Result{
		RunID:           runID,
		Results:         sum.results,
		Errors:          sum.errors,
		DurationSeconds: duration.Seconds(),
		PriorityDomains: priority.Len(),
	}
	if len(sum.errors) > 0 {
		result.StatusCode = http.StatusMultiStatus
		result.Message = "Sync completed with errors"
		s.notify(ctx, errorMessage(sum.succeeded, sum.total, sum.errors), true, logger)
	} else {
		result.StatusCode = http.StatusOK
		result.Message = "Sync completed successfully"
		if s.opts.NotifySuccess {
			s.notify(ctx, successMessage(sum.total, duration), false, logger)
		}
	}

	logger.Info("sync finished",
		zap.Int("succeeded", sum.succeeded),
		zap.Int("total", sum.total),
		zap.Int("errors", len(sum.errors)),
		zap.Duration("duration", duration))
	return result
}

func splitRevenue(datasets []config.Dataset) (*config.Dataset, []config.Dataset) {
	var revenue *config.Dataset
	others := make([]config.Dataset, 0, len(datasets))
	for i := range datasets {
		if revenue == nil && datasets[i].Name == config.DatasetRevenue {
			revenue = &datasets[i]
			continue
		}
		others = append(others, datasets[i])
	}
	return revenue, others
}

// syncDataset fetches, merges and writes one dataset, plus its priority
// variant when priority is non-nil.
func (s *SyncService) syncDataset(ctx context.Context, ds config.Dataset, priority dataset.PrioritySet, logger *zap.Logger) Outcome {
	out := Outcome{Dataset: ds.Name, Label: ds.Label, Key: ds.Key}
	logger = logger.With(zap.String("dataset", ds.Name))

	fresh, err := s.fetch(ctx, ds)
	if err != nil {
		out.Err = err
		logger.Warn("failed to fetch dataset", zap.Error(err))
		return out
	}

	merged := fresh
	if ds.PreserveHistory {
		existing, err := s.loadGrid(ctx, ds.Key)
		if err != nil {
			out.Err = err
			logger.Warn("failed to load persisted dataset", zap.Error(err))
			return out
		}
		merged, out.Merge = s.merger.MergeGrids(existing, fresh)
	}

	if err := s.writeGrid(ctx, ds.Key, merged); err != nil {
		out.Err = err
		logger.Warn("failed to write dataset", zap.Error(err))
		return out
	}
	out.Grid = merged
	logger.Info("synced dataset",
		zap.String("key", ds.Key),
		zap.Int("rows", len(merged.Rows())),
		zap.Int("columns", merged.Width()),
		zap.Int("historical_columns", out.Merge.HistoricalColumns))

	if priority == nil || ds.PriorityKey == "" {
		return out
	}
	filtered := dataset.FilterByEntities(merged, priority)
	if err := s.writeGrid(ctx, ds.PriorityKey, filtered); err != nil {
		out.Err = errors.Wrap(err, "priority variant")
		logger.Warn("failed to write priority variant", zap.Error(err))
		return out
	}
	out.PriorityKey = ds.PriorityKey
	out.Priority = filtered
	logger.Debug("wrote priority variant",
		zap.String("key", ds.PriorityKey),
		zap.Int("rows", len(filtered.Rows())))
	return out
}

func (s *SyncService) fetch(ctx context.Context, ds config.Dataset) (grid.Grid, error) {
	ctx, cancel := withTimeout(ctx, s.opts.SheetsTimeout)
	defer cancel()

	g, err := s.sheets.ReadTab(ctx, ds.SheetID, ds.Tab)
	if err != nil {
		return nil, err
	}
	if ds.FindHeader {
		g = grid.TrimToHeader(g)
	}
	if len(g) == 0 {
		return nil, errors.InvalidInput("no data found in tab " + ds.Tab)
	}
	return g, nil
}

// loadGrid returns the persisted grid under key, or nil on a first run.
func (s *SyncService) loadGrid(ctx context.Context, key string) (grid.Grid, error) {
	ctx, cancel := withTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	data, err := s.store.Get(ctx, key)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read "+key)
	}
	g, err := grid.DecodeCSV(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode "+key)
	}
	return g, nil
}

func (s *SyncService) writeGrid(ctx context.Context, key string, g grid.Grid) error {
	data, err := grid.EncodeCSV(g)
	if err != nil {
		return errors.Wrap(err, "encode "+key)
	}

	ctx, cancel := withTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	if err := s.store.Put(ctx, key, data, grid.ContentTypeCSV); err != nil {
		return errors.Wrap(err, "write "+key)
	}
	return nil
}

// collectFiles gathers the grids written this run and their stored sizes.
// Missing sizes are logged and left out.
func (s *SyncService) collectFiles(ctx context.Context, outcomes []Outcome, logger *zap.Logger) (map[string]grid.Grid, map[string]int64) {
	files := make(map[string]grid.Grid)
	for _, o := range outcomes {
		if o.Grid != nil {
			files[o.Key] = o.Grid
		}
		if o.Priority != nil {
			files[o.PriorityKey] = o.Priority
		}
	}

	sizes := make(map[string]int64, len(files))
	for key := range files {
		hctx, cancel := withTimeout(ctx, s.opts.StorageTimeout)
		info, err := s.store.Head(hctx, key)
		cancel()
		if err != nil {
			logger.Warn("failed to read object size", zap.String("key", key), zap.Error(err))
			continue
		}
		sizes[key] = info.Size
	}
	return files, sizes
}

// previousLog loads the last run log. A missing or unreadable log starts
// a fresh history.
func (s *SyncService) previousLog(ctx context.Context, logger *zap.Logger) *synclog.RunLog {
	ctx, cancel := withTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	data, err := s.store.Get(ctx, s.opts.LogKey)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			logger.Warn("failed to read previous sync log", zap.Error(err))
		}
		return nil
	}
	prev, err := synclog.Decode(data)
	if err != nil {
		logger.Warn("ignoring unreadable sync log", zap.Error(err))
		return nil
	}
	return prev
}

func (s *SyncService) persistLog(ctx context.Context, runLog synclog.RunLog) error {
	data, err := runLog.Encode()
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	return s.store.Put(ctx, s.opts.LogKey, data, "application/json")
}

func (s *SyncService) archiveRun(ctx context.Context, runLog synclog.RunLog, logger *zap.Logger) {
	if s.archive == nil {
		return
	}
	ctx, cancel := withTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	if err := s.archive.Record(ctx, runLog); err != nil {
		logger.Warn("failed to archive run", zap.Error(err))
	}
}

func (s *SyncService) notify(ctx context.Context, message string, isError bool, logger *zap.Logger) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := withTimeout(ctx, s.opts.NotifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, message, isError); err != nil {
		logger.Warn("failed to send notification", zap.Error(err))
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
