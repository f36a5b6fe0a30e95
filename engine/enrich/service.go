// Package enrich composes the full pipeline: validate, normalize, match,
// fuse evidence, cost, score. It owns the terminal EnrichmentRecord contract
// and the service's NATS and HTTP surfaces.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carthesien/enrich/engine/cost"
	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/engine/evidence"
	"github.com/carthesien/enrich/engine/match"
	"github.com/carthesien/enrich/engine/normalize"
	"github.com/carthesien/enrich/engine/score"
	"github.com/carthesien/enrich/pkg/fn"
	"github.com/carthesien/enrich/pkg/metrics"
)

// DefaultMonthlyKM is assumed when the request does not declare mileage.
const DefaultMonthlyKM = 1000

// Request is one enrichment job.
type Request struct {
	Listing   domain.ListingInput `json:"listing"`
	MonthlyKM float64             `json:"monthly_km,omitempty"`
}

// Deps holds the external dependencies of the Service.
type Deps struct {
	Matcher *match.Matcher
	Fuser   *evidence.Fuser
	Feed    *cost.Feed
	// CostInputs carries the calibration tables; prices and mileage are
	// filled in per request from the feed.
	CostInputs cost.Inputs
	Scorer     *score.Scorer
	Metrics    *metrics.Registry
	Logger     *slog.Logger
}

// Service runs listings through the pipeline.
type Service struct {
	deps     Deps
	log      *slog.Logger
	pipeline fn.Stage[*state, *state]

	outcomes *countersByLabel
	tiers    *countersByLabel
	latency  *metrics.Histogram
}

// state is the carrier threaded through the pipeline stages.
type state struct {
	req    Request
	nl     normalize.Listing
	match  match.Result
	bundle evidence.Bundle
	costs  *domain.CostBreakdown
	scored score.Outcome
}

// NewService wires a Service. Matcher, Fuser, Feed and Scorer are required;
// Metrics and Logger default when nil.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	s := &Service{
		deps:     deps,
		log:      deps.Logger,
		outcomes: newCountersByLabel(deps.Metrics, "enrich_match_outcome_total", "Match outcomes by decision", "outcome"),
		tiers:    newCountersByLabel(deps.Metrics, "enrich_tier_total", "Confidence tiers issued", "tier"),
		latency:  deps.Metrics.Histogram("enrich_duration_seconds", "End-to-end enrich latency", nil),
	}
	s.pipeline = fn.Pipeline(
		fn.TracedStage("validate", s.validate),
		fn.TracedStage("normalize", s.normalize),
		fn.TracedStage("match", s.matchStage),
		fn.TracedStage("fuse", s.fuse),
		fn.TracedStage("cost", s.costStage),
		fn.TracedStage("score", s.scoreStage),
	)
	return s
}

// countersByLabel caches labeled counters so the hot path never re-resolves
// registry names.
type countersByLabel struct {
	reg   *metrics.Registry
	name  string
	help  string
	label string
}

func newCountersByLabel(reg *metrics.Registry, name, help, label string) *countersByLabel {
	return &countersByLabel{reg: reg, name: name, help: help, label: label}
}

func (c *countersByLabel) inc(value string) {
	c.reg.Counter(metrics.WithLabels(c.name, c.label, value), c.help).Inc()
}

// Enrich runs one listing end to end. Match and fusion shortfalls degrade
// the record rather than fail it; a cost model that cannot price a resolved
// variant is a hard error.
func (s *Service) Enrich(ctx context.Context, req Request) (domain.EnrichmentRecord, error) {
	start := time.Now()
	defer s.latency.Since(start)

	st := &state{req: req}
	if st.req.MonthlyKM <= 0 {
		st.req.MonthlyKM = DefaultMonthlyKM
	}
	if _, err := s.pipeline(ctx, st).Unwrap(); err != nil {
		return domain.EnrichmentRecord{}, err
	}

	rec := s.assemble(st)
	s.outcomes.inc(st.match.Outcome.String())
	s.tiers.inc(rec.Tier.String())
	s.log.Info("listing enriched",
		"outcome", st.match.Outcome.String(),
		"tier", rec.Tier.String(),
		"global", rec.GlobalScore,
	)
	return rec, nil
}

// EnrichAll fans requests across workers and fails on the first hard error.
func (s *Service) EnrichAll(ctx context.Context, reqs []Request, workers int) ([]domain.EnrichmentRecord, error) {
	results := fn.ParMapResult(reqs, workers, func(req Request) fn.Result[domain.EnrichmentRecord] {
		return fn.FromPair(s.Enrich(ctx, req))
	})
	return fn.Collect(results).Unwrap()
}

func (s *Service) validate(_ context.Context, st *state) fn.Result[*state] {
	if err := domain.ValidateListing(st.req.Listing); err != nil {
		return fn.Err[*state](err)
	}
	return fn.Ok(st)
}

func (s *Service) normalize(_ context.Context, st *state) fn.Result[*state] {
	st.nl = normalize.Normalize(st.req.Listing)
	return fn.Ok(st)
}

func (s *Service) matchStage(ctx context.Context, st *state) fn.Result[*state] {
	st.match = s.deps.Matcher.Match(ctx, st.nl)
	return fn.Ok(st)
}

func (s *Service) fuse(ctx context.Context, st *state) fn.Result[*state] {
	if st.match.Outcome != match.OutcomeResolved {
		return fn.Ok(st)
	}
	v := st.match.Variant
	fallback := evidence.FallbackKey(v.Brand, v.Model, v.Generation)
	bundle, err := s.deps.Fuser.Fuse(ctx, v.Key, fallback)
	if err != nil {
		// Evidence is additive; a down store degrades to Unknown.
		s.log.Warn("evidence fusion failed, degrading", "err", err, "variant", v.Key)
		st.bundle = evidence.Bundle{VariantKey: v.Key, Tier: domain.TierUnknown}
		return fn.Ok(st)
	}
	st.bundle = bundle
	return fn.Ok(st)
}

func (s *Service) costStage(_ context.Context, st *state) fn.Result[*state] {
	if st.match.Outcome != match.OutcomeResolved {
		return fn.Ok(st)
	}
	in := s.deps.CostInputs
	in.MonthlyKM = st.req.MonthlyKM
	in.Prices, _ = s.deps.Feed.Prices()

	breakdown, err := cost.Monthly(st.match.Variant, in)
	if err != nil {
		return fn.Err[*state](fmt.Errorf("enrich: cost model: %w", err))
	}
	st.costs = &breakdown
	return fn.Ok(st)
}

func (s *Service) scoreStage(_ context.Context, st *state) fn.Result[*state] {
	if st.match.Outcome != match.OutcomeResolved {
		return fn.Ok(st)
	}
	segment := domain.SegmentOf(st.match.Variant.Brand)
	st.scored = s.deps.Scorer.Score(segment, st.bundle.Dimensions, st.nl.Tokens)
	return fn.Ok(st)
}

func (s *Service) assemble(st *state) domain.EnrichmentRecord {
	rec := domain.EnrichmentRecord{
		ID:          uuid.NewString(),
		Listing:     st.req.Listing,
		Match:       st.match.Summary(),
		GeneratedAt: time.Now().UTC(),
	}
	if st.match.Outcome != match.OutcomeResolved {
		rec.Tier = domain.TierUnknown
		rec.Badge = rec.Tier.Badge()
		rec.Verdict = domain.Verdict{
			Band: score.BandCautious,
			Text: "Annonce non rapprochée d'une version du catalogue : avis indisponible.",
		}
		return rec
	}
	rec.Tier = st.bundle.Tier
	rec.Badge = rec.Tier.Badge()
	rec.Dimensions = st.scored.Dimensions
	rec.KnownFailures = st.bundle.KnownFailures
	rec.Alerts = st.scored.Alerts
	rec.Costs = st.costs
	rec.GlobalScore = st.scored.Global
	rec.Verdict = st.scored.Verdict
	rec.Pros = st.scored.Pros
	rec.Cons = st.scored.Cons
	return rec
}
