package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/carthesien/enrich/engine/refindex"
)

var (
	loadCSVPath     string
	loadPostgresURL string
)

var loadReferenceCmd = &cobra.Command{
	Use:   "load-reference",
	Short: "Load the canonical variant catalogue from CSV into Postgres",
	Long: `Parse a catalogue CSV and replace the reference table in Postgres.
Without --postgres the command only parses and reports, which is useful to
validate a catalogue export before loading it.`,
	RunE: runLoadReference,
}

func init() {
	loadReferenceCmd.Flags().StringVar(&loadCSVPath, "csv", "", "path to the catalogue CSV (required)")
	loadReferenceCmd.Flags().StringVar(&loadPostgresURL, "postgres", "", "Postgres connection URL (omit for a dry run)")
	loadReferenceCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(loadReferenceCmd)
}

func runLoadReference(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()
	log := newLogger()

	variants, err := loadVariantsCSV(ctx, loadCSVPath)
	if err != nil {
		return err
	}
	log.Info("catalogue parsed", "variants", len(variants))

	if loadPostgresURL == "" {
		fmt.Printf("dry run: %d variants parsed from %s\n", len(variants), loadCSVPath)
		return nil
	}

	pool, err := openPool(ctx, loadPostgresURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := refindex.NewPostgresSource(pool).Store(ctx, variants); err != nil {
		return fmt.Errorf("store catalogue: %w", err)
	}
	fmt.Printf("loaded %d variants\n", len(variants))
	return nil
}
