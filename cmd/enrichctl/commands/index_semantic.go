package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/engine/refindex"
	"github.com/carthesien/enrich/engine/semantic"
	"github.com/carthesien/enrich/pkg/fn"
)

var (
	indexCSVPath     string
	indexPostgresURL string
	indexQdrantAddr  string
	indexCollection  string
	indexBatchSize   int
)

var indexSemanticCmd = &cobra.Command{
	Use:   "index-semantic",
	Short: "Build the semantic recall index from the reference catalogue",
	Long: `Embed every canonical variant and upsert the vectors into Qdrant.
The catalogue is read from Postgres when --postgres is set, else from --csv.`,
	RunE: runIndexSemantic,
}

func init() {
	indexSemanticCmd.Flags().StringVar(&indexCSVPath, "csv", "", "path to the catalogue CSV")
	indexSemanticCmd.Flags().StringVar(&indexPostgresURL, "postgres", "", "Postgres connection URL")
	indexSemanticCmd.Flags().StringVar(&indexQdrantAddr, "qdrant", "localhost:6334", "Qdrant gRPC address")
	indexSemanticCmd.Flags().StringVar(&indexCollection, "collection", "variants", "Qdrant collection name")
	indexSemanticCmd.Flags().IntVar(&indexBatchSize, "batch", 500, "variants per upsert batch")
	rootCmd.AddCommand(indexSemanticCmd)
}

func runIndexSemantic(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()
	log := newLogger()

	variants, err := indexSourceVariants(ctx)
	if err != nil {
		return err
	}
	log.Info("catalogue loaded", "variants", len(variants))

	vectors, err := semantic.New(indexQdrantAddr, indexCollection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectors.Close()

	if err := vectors.EnsureCollection(ctx); err != nil {
		return err
	}

	batches := fn.Chunk(variants, indexBatchSize)
	for i, batch := range batches {
		if err := vectors.IndexVariants(ctx, batch); err != nil {
			return fmt.Errorf("index batch %d/%d: %w", i+1, len(batches), err)
		}
		log.Debug("batch indexed", "batch", i+1, "of", len(batches), "size", len(batch))
	}
	fmt.Printf("indexed %d variants into %s\n", len(variants), indexCollection)
	return nil
}

func indexSourceVariants(ctx context.Context) ([]domain.CanonicalVariant, error) {
	if indexPostgresURL != "" {
		pool, err := openPool(ctx, indexPostgresURL)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return refindex.NewPostgresSource(pool).Load(ctx)
	}
	if indexCSVPath != "" {
		return loadVariantsCSV(ctx, indexCSVPath)
	}
	return nil, fmt.Errorf("no catalogue source: set --postgres or --csv")
}
