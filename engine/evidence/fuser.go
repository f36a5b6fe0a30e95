// Package evidence fuses secondary-source observations (reliability notes,
// sentiment aggregates, recall catalogs) into per-dimension scores with a
// provenance-aware confidence tier.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/engine/normalize"
	"github.com/carthesien/enrich/pkg/fn"
)

// SourceCategory groups evidence sources by kind; Certified requires at
// least two distinct categories.
type SourceCategory string

const (
	CategoryTechnical SourceCategory = "technical"
	CategorySentiment SourceCategory = "user_sentiment"
	CategoryRecall    SourceCategory = "recall"
	CategoryPress     SourceCategory = "press"
)

// Observation is one normalized 0-10 sub-score from a secondary source.
// Source-specific parsing happens upstream; the fuser only sees this schema.
type Observation struct {
	SourceID   string           `json:"source_id"`
	Category   SourceCategory   `json:"category"`
	Dimension  domain.Dimension `json:"dimension"`
	Score      float64          `json:"score"`
	Weight     float64          `json:"weight,omitempty"` // 0 = unweighted
	ObservedAt time.Time        `json:"observed_at"`
}

// Bundle is the fused evidence for one variant (or fallback) key. Historic
// bundles are retained for audit and never mutated.
type Bundle struct {
	VariantKey    string                                     `json:"variant_key"`
	Fallback      bool                                       `json:"fallback,omitempty"`
	Dimensions    map[domain.Dimension]domain.DimensionScore `json:"dimensions,omitempty"`
	KnownFailures []string                                   `json:"known_failures,omitempty"`
	Tier          domain.ConfidenceTier                      `json:"tier"`
	Sources       int                                        `json:"sources"`
	Categories    int                                        `json:"categories"`
	FusedAt       time.Time                                  `json:"fused_at"`
}

// Store is the secondary-source store the fuser reads from and writes fused
// bundles back to.
type Store interface {
	Observations(ctx context.Context, key string) ([]Observation, error)
	Failures(ctx context.Context, key string) ([]string, error)
	SaveBundle(ctx context.Context, b Bundle) error
	LatestBundle(ctx context.Context, key string) (Bundle, bool, error)
}

// Config tunes the fuser.
type Config struct {
	// StalenessWindow bounds how old an observation may be and still count
	// as fresh for the Verified tier.
	StalenessWindow time.Duration
	// FallbackCap is the highest tier a generation-level fallback bundle may
	// reach. Rolled-up evidence never speaks for one exact variant.
	FallbackCap domain.ConfidenceTier
	Now         func() time.Time
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		StalenessWindow: 365 * 24 * time.Hour,
		FallbackCap:     domain.TierVerified,
		Now:             time.Now,
	}
}

// Fuser aggregates observations into bundles.
type Fuser struct {
	store Store
	cfg   Config
	log   *slog.Logger
}

// New creates a Fuser. A nil logger falls back to slog.Default.
func New(store Store, cfg Config, log *slog.Logger) *Fuser {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = DefaultConfig().StalenessWindow
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fuser{store: store, cfg: cfg, log: log}
}

// FallbackKey builds the (brand, model, generation) rollup key used when no
// variant-level evidence exists.
func FallbackKey(brand, model string, generation int) string {
	return strings.Join([]string{
		normalize.Fold(brand), normalize.Fold(model), strconv.Itoa(generation),
	}, "|")
}

// Fuse pulls all observations keyed to the variant, falling back to the
// rollup key when the variant has none. Zero sources is not an error: the
// bundle simply carries the Unknown tier.
func (f *Fuser) Fuse(ctx context.Context, variantKey, fallbackKey string) (Bundle, error) {
	key := variantKey
	fallback := false

	obs, err := f.store.Observations(ctx, key)
	if err != nil {
		return Bundle{}, fmt.Errorf("evidence: observations %s: %w", key, err)
	}
	if len(obs) == 0 && fallbackKey != "" {
		obs, err = f.store.Observations(ctx, fallbackKey)
		if err != nil {
			return Bundle{}, fmt.Errorf("evidence: observations %s: %w", fallbackKey, err)
		}
		if len(obs) > 0 {
			key = fallbackKey
			fallback = true
		}
	}

	failures, err := f.store.Failures(ctx, key)
	if err != nil {
		return Bundle{}, fmt.Errorf("evidence: failures %s: %w", key, err)
	}

	b := f.fuse(variantKey, fallback, obs)
	b.KnownFailures = failures
	if err := f.store.SaveBundle(ctx, b); err != nil {
		// Audit history is best-effort; the fused bundle is still valid.
		f.log.Warn("evidence: save bundle failed", "err", err, "key", variantKey)
	}
	return b, nil
}

// fuse aggregates observations: per-source means first, so a single chatty
// source cannot dominate, then a weighted mean across sources per dimension.
func (f *Fuser) fuse(variantKey string, fallback bool, obs []Observation) Bundle {
	b := Bundle{
		VariantKey: variantKey,
		Fallback:   fallback,
		FusedAt:    f.cfg.Now(),
	}
	if len(obs) == 0 {
		b.Tier = domain.TierUnknown
		return b
	}

	type sourceDim struct {
		source string
		dim    domain.Dimension
	}
	grouped := fn.GroupBy(obs, func(o Observation) sourceDim {
		return sourceDim{o.SourceID, o.Dimension}
	})

	sums := make(map[domain.Dimension]float64)
	weights := make(map[domain.Dimension]float64)
	counts := make(map[domain.Dimension]int)
	for key, group := range grouped {
		var score, weight float64
		for _, o := range group {
			score += o.Score
			w := o.Weight
			if w <= 0 {
				w = 1
			}
			weight += w
		}
		score /= float64(len(group))
		weight /= float64(len(group))
		sums[key.dim] += score * weight
		weights[key.dim] += weight
		counts[key.dim]++
	}

	b.Dimensions = make(map[domain.Dimension]domain.DimensionScore, len(sums))
	for dim, sum := range sums {
		b.Dimensions[dim] = domain.DimensionScore{
			Score:   sum / weights[dim],
			Sources: counts[dim],
		}
	}

	sources := make(map[string]bool)
	categories := make(map[SourceCategory]bool)
	fresh := false
	cutoff := f.cfg.Now().Add(-f.cfg.StalenessWindow)
	for _, o := range obs {
		sources[o.SourceID] = true
		if o.Category != "" {
			categories[o.Category] = true
		}
		if o.ObservedAt.After(cutoff) {
			fresh = true
		}
	}
	b.Sources = len(sources)
	b.Categories = len(categories)
	b.Tier = tier(b.Sources, b.Categories, fresh)
	if fallback && b.Tier > f.cfg.FallbackCap {
		b.Tier = f.cfg.FallbackCap
	}
	return b
}

// tier is monotonic in the distinct-source count: adding a source can never
// lower it.
func tier(sources, categories int, fresh bool) domain.ConfidenceTier {
	switch {
	case sources == 0:
		return domain.TierUnknown
	case sources >= 3 && categories >= 2:
		return domain.TierCertified
	case sources >= 2 && fresh:
		return domain.TierVerified
	default:
		return domain.TierEstimated
	}
}
