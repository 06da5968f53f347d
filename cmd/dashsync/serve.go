package main

import (
	"dashsync/adapters/api"
	"dashsync/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard data API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			ctx := cmd.Context()

			if port == "" {
				port = cfg.Server.Port
			}

			store, err := newObjectStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			archive, closeArchive, err := openArchive(ctx, cfg, logger)
			if err != nil {
				logger.Warn("run archive unavailable; /api/sync-runs disabled", zap.Error(err))
			}
			defer closeArchive()

			server := api.NewServer(api.Options{
				Routes:    api.Routes(cfg.Datasets),
				LogKey:    cfg.Storage.LogKey,
				TestToken: cfg.Server.E2ETestToken,
				GinMode:   cfg.Server.GinMode,
			}, store, archive, logger)
			return server.Run(ctx, ":"+port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default $PORT or "+config.DefaultPort+")")
	return cmd
}
