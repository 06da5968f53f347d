package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"dashsync/adapters/slack"
	"dashsync/app"
	"dashsync/internal/config"
	"dashsync/ports"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync of every dataset",
		Long: `Fetch every configured tab, merge it into the persisted history, write the
priority variants and the run log, and alert on failures.

The result is printed as JSON. The command exits non-zero only when the run
could not start; per-dataset failures are reported in the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return printResult(cmd, configFailure(cmd.Context(), err))
			}
			defer func() { _ = logger.Sync() }()

			return printResult(cmd, runSync(cmd.Context(), cfg, logger))
		},
	}
	return cmd
}

// printResult writes the result as JSON and fails the command on a 500.
func printResult(cmd *cobra.Command, result app.Result) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if result.StatusCode == http.StatusInternalServerError {
		return fmt.Errorf("sync failed: %s", result.Message)
	}
	return nil
}

// configFailure reports an invalid configuration as a setup failure. Only
// the notification settings are trusted here.
func configFailure(ctx context.Context, err error) app.Result {
	logger := zap.NewNop()
	notifyCfg := config.LoadNotifyConfig()
	return app.SetupFailure(ctx, enabledNotifier(notifyCfg, logger), err, logger)
}

// enabledNotifier returns nil when no webhook is configured.
func enabledNotifier(cfg config.NotifyConfig, logger *zap.Logger) ports.Notifier {
	if n := slack.NewNotifier(cfg.SlackWebhookURL, cfg.Timeout, logger); n.Enabled() {
		return n
	}
	return nil
}

// runSync wires the collaborators and runs the sync. Any wiring failure is
// reported as a setup failure.
func runSync(ctx context.Context, cfg *config.Config, logger *zap.Logger) app.Result {
	notifier := enabledNotifier(cfg.Notify, logger)

	store, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		return app.SetupFailure(ctx, notifier, err, logger)
	}
	reader, err := newSheetReader(ctx, cfg, logger)
	if err != nil {
		return app.SetupFailure(ctx, notifier, err, logger)
	}

	archive, closeArchive, err := openArchive(ctx, cfg, logger)
	if err != nil {
		logger.Warn("run archive unavailable", zap.Error(err))
	}
	defer closeArchive()

	svc := app.NewSyncService(app.OptionsFromConfig(cfg), reader, store, notifier, archive, logger)
	return svc.Run(ctx)
}
