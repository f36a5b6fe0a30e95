package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/carthesien/enrich/engine/cost"
	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/engine/enrich"
	"github.com/carthesien/enrich/engine/evidence"
	"github.com/carthesien/enrich/engine/match"
	"github.com/carthesien/enrich/engine/refindex"
	"github.com/carthesien/enrich/engine/score"
)

var (
	enrichCSVPath    string
	enrichListing    string
	enrichPricesPath string
	enrichMonthlyKM  float64
)

// defaultPrices is a rough French pump/kWh table for offline runs.
var defaultPrices = map[domain.Fuel]float64{
	domain.FuelPetrol:       1.82,
	domain.FuelDiesel:       1.71,
	domain.FuelHybrid:       1.82,
	domain.FuelPlugInHybrid: 1.82,
	domain.FuelElectric:     0.25,
	domain.FuelLPG:          0.99,
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run a single listing through the pipeline",
	Long: `Enrich one listing offline against a CSV catalogue and print the
resulting record as JSON. Evidence comes from an empty in-memory store, so
dimension scores reflect only what the listing itself provides; the command is
meant for debugging matching, cost and scoring behaviour.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().StringVar(&enrichCSVPath, "csv", "", "path to the catalogue CSV (required)")
	enrichCmd.Flags().StringVar(&enrichListing, "listing", "", "path to a listing JSON file (required)")
	enrichCmd.Flags().StringVar(&enrichPricesPath, "prices", "", "path to a fuel price JSON table (defaults to a built-in table)")
	enrichCmd.Flags().Float64Var(&enrichMonthlyKM, "km", enrich.DefaultMonthlyKM, "monthly mileage for the cost model")
	enrichCmd.MarkFlagRequired("csv")
	enrichCmd.MarkFlagRequired("listing")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	log := newLogger()

	variants, err := loadVariantsCSV(ctx, enrichCSVPath)
	if err != nil {
		return err
	}
	idx := refindex.NewIndex()
	idx.Swap(variants)

	var listing domain.ListingInput
	raw, err := os.ReadFile(enrichListing)
	if err != nil {
		return fmt.Errorf("read listing: %w", err)
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return fmt.Errorf("decode listing: %w", err)
	}

	prices := defaultPrices
	if enrichPricesPath != "" {
		raw, err := os.ReadFile(enrichPricesPath)
		if err != nil {
			return fmt.Errorf("read prices: %w", err)
		}
		prices = nil
		if err := json.Unmarshal(raw, &prices); err != nil {
			return fmt.Errorf("decode prices: %w", err)
		}
	}

	svc := enrich.NewService(enrich.Deps{
		Matcher:    match.New(idx, match.DefaultThresholds(), match.WithLogger(log)),
		Fuser:      evidence.New(evidence.NewMemoryStore(), evidence.DefaultConfig(), log),
		Feed:       cost.NewFeed(prices),
		CostInputs: cost.DefaultInputs(),
		Scorer:     score.NewScorer(nil, score.Bands{}, nil),
		Logger:     log,
	})

	record, err := svc.Enrich(ctx, enrich.Request{Listing: listing, MonthlyKM: enrichMonthlyKM})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
