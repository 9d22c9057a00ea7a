package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rentmap/internal/config"
	"github.com/sells-group/rentmap/internal/listing"
)

var (
	importFile      string
	importBatchSize int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import rental listings from CSV into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stats, err := importCSV(ctx, cfg, importFile, importBatchSize)
		if err != nil {
			return err
		}
		zap.L().Info("import complete",
			zap.String("file", importFile),
			zap.Int("read", stats.Read),
			zap.Int64("written", stats.Written),
			zap.Int("batches", stats.Batches),
		)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the rentals schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		zap.L().Info("schema migrated", zap.String("store", st.Name()))
		return nil
	},
}

func importCSV(ctx context.Context, c *config.Config, path string, batchSize int) (listing.ImportStats, error) {
	if err := c.Validate("import"); err != nil {
		return listing.ImportStats{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return listing.ImportStats{}, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	st, err := openStore(ctx, c)
	if err != nil {
		return listing.ImportStats{}, err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return listing.ImportStats{}, err
	}
	return listing.Import(ctx, st, f, batchSize)
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to listings CSV (required)")
	importCmd.Flags().IntVar(&importBatchSize, "batch-size", 1000, "rows per store write")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd, migrateCmd)
}
