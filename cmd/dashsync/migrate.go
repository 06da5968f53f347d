package main

import (
	"fmt"

	"dashsync/adapters/postgres"
	"dashsync/internal/errors"
	"dashsync/internal/migration"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the run archive schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Database.URL == "" {
				return errors.ConfigInvalid("DATABASE_URL is required")
			}
			db, err := postgres.Open(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			var runner migration.Migrator = migration.NewRunner()
			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("migrations applied", zap.String("version", runner.Version()))
			fmt.Fprintf(cmd.OutOrStdout(), "run archive schema at version %s\n", runner.Version())
			return nil
		},
	}
}
