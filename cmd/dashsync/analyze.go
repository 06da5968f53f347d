package main

import (
	"context"
	"os"

	"dashsync/adapters/excel"
	"dashsync/domain/grid"
	"dashsync/internal/analysis"
	"dashsync/internal/config"
	"dashsync/internal/errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAnalyzeCmd() *cobra.Command {
	var revenuePath, trafficPath, xlsxPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Correlate traffic estimates with monthly revenue",
		Long: `Analyze how well traffic explains revenue across the top sites.

Without --revenue/--traffic the merged history files are read from the
configured object store.

Example: dashsync analyze --revenue revenue-history.csv --traffic traffic-data.csv --xlsx report.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			ctx := cmd.Context()

			revenue, err := loadTable(ctx, cfg, logger, revenuePath, config.DatasetRevenue)
			if err != nil {
				return err
			}
			traffic, err := loadTable(ctx, cfg, logger, trafficPath, config.DatasetTrafficMonthly)
			if err != nil {
				return err
			}

			report, err := analysis.NewAnalyzer(logger).Analyze(revenue, traffic, analysis.Options{})
			if err != nil {
				return err
			}
			if err := report.WriteText(cmd.OutOrStdout()); err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := excel.WriteWorkbook(xlsxPath, report.Sheets()); err != nil {
					return err
				}
				logger.Info("exported analysis workbook", zap.String("path", xlsxPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&revenuePath, "revenue", "", "Merged revenue CSV (default: read from the object store)")
	cmd.Flags().StringVar(&trafficPath, "traffic", "", "Merged traffic CSV (default: read from the object store)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also export the report to this .xlsx file")
	return cmd
}

// loadTable reads a CSV from path, or the named dataset's key from the
// object store when path is empty.
func loadTable(ctx context.Context, cfg *config.Config, logger *zap.Logger, path, datasetName string) (grid.Grid, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		return grid.DecodeCSV(data)
	}

	var key string
	for _, ds := range cfg.Datasets {
		if ds.Name == datasetName {
			key = ds.Key
		}
	}
	if key == "" {
		return nil, errors.ConfigInvalid("no dataset named " + datasetName)
	}

	store, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}
	return grid.DecodeCSV(data)
}
