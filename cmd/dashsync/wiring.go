package main

import (
	"context"

	"dashsync/adapters/excel"
	"dashsync/adapters/localstore"
	"dashsync/adapters/postgres"
	"dashsync/adapters/s3store"
	"dashsync/adapters/sheets"
	"dashsync/internal/config"
	"dashsync/internal/logging"
	"dashsync/ports"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// bootstrap loads configuration and builds the logger every command uses.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newObjectStore prefers a local directory when one is configured.
func newObjectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.ObjectStore, error) {
	if cfg.Local.StoreDir != "" {
		logger.Info("using local object store", zap.String("dir", cfg.Local.StoreDir))
		return localstore.NewFileStorage(cfg.Local.StoreDir, logger), nil
	}
	return s3store.New(ctx, cfg.Storage.Bucket, cfg.Storage.Region, logger)
}

// newSheetReader prefers a local workbook when one is configured.
func newSheetReader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SheetReader, error) {
	if err := cfg.RequireSheetsCredentials(); err != nil {
		return nil, err
	}
	if cfg.Local.Workbook != "" {
		logger.Info("using local workbook", zap.String("path", cfg.Local.Workbook))
		return excel.NewWorkbookReader(cfg.Local.Workbook, logger), nil
	}
	return sheets.NewFromServiceAccountKey(ctx, cfg.Google.ServiceAccountKey, logger)
}

// openArchive connects the run archive when DATABASE_URL is set. The
// returned close func is never nil.
func openArchive(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.RunArchive, func(), error) {
	if cfg.Database.URL == "" {
		return nil, func() {}, nil
	}
	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, func() {}, err
	}
	logger.Info("run archive enabled")
	return postgres.NewRunArchive(db), closeDB(db, logger), nil
}

func closeDB(db *sqlx.DB, logger *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
