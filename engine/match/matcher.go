// Package match resolves a normalized listing to a canonical variant in two
// stages: brand/model blocking, then token-set re-ranking with power and fuel
// agreement bonuses and explicit decision bands.
package match

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/carthesien/enrich/engine/domain"
	"github.com/carthesien/enrich/engine/normalize"
	"github.com/carthesien/enrich/engine/refindex"
	"github.com/carthesien/enrich/pkg/fn"
)

// Thresholds are the tunable decision constants. Everything that governs
// acceptance lives here, never inline.
type Thresholds struct {
	Auto                float64 // similarity at or above resolves Auto
	Probable            float64 // rejection floor; below this nothing resolves
	AmbiguityEpsilon    float64 // top-two gap under this returns Ambiguous
	PowerTolHP          float64 // DIN hp tolerance for the power bonus
	PowerBonus          float64
	FuelBonus           float64
	FuelMismatchPenalty float64 // large enough that Auto is unreachable
	MaxCandidates       int     // cap on the block fed to re-ranking
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Auto:                92,
		Probable:            85,
		AmbiguityEpsilon:    1.0,
		PowerTolHP:          5,
		PowerBonus:          4,
		FuelBonus:           3,
		FuelMismatchPenalty: 40,
		MaxCandidates:       200,
	}
}

// Outcome tags the match result arm.
type Outcome int

const (
	OutcomeNoMatch Outcome = iota
	OutcomeRejected
	OutcomeAmbiguous
	OutcomeResolved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeAmbiguous:
		return "ambiguous"
	case OutcomeResolved:
		return "resolved"
	default:
		return "no_match"
	}
}

// Reason explains a NoMatch outcome.
type Reason string

const (
	ReasonBrandUnresolved Reason = "brand_unresolved"
	ReasonEmptyBlock      Reason = "empty_block"
	ReasonBelowFloor      Reason = "below_floor"
)

// Candidate is one scored variant.
type Candidate struct {
	Variant        domain.CanonicalVariant
	Score          float64
	PowerAgreement bool
	FuelAgreement  bool
	FuelMismatch   bool
}

// Result is a tagged sum over the match outcomes. Consume via a switch on
// Outcome; only the fields of the active arm are set.
type Result struct {
	Outcome Outcome
	Reason  Reason // NoMatch

	// Ambiguous and Rejected carry the ordered candidate list, best first,
	// for display and manual confirmation. Rejected candidates are not
	// trusted matches.
	Candidates []Candidate

	// Resolved.
	Variant        domain.CanonicalVariant
	Score          float64
	Band           domain.DecisionBand
	PowerAgreement bool
	FuelAgreement  bool
	FuelMismatch   bool

	SnapshotVersion int64
}

func noMatch(reason Reason, version int64) Result {
	return Result{Outcome: OutcomeNoMatch, Reason: reason, SnapshotVersion: version}
}

// Summary flattens the result into the stable output contract.
func (r Result) Summary() domain.MatchSummary {
	s := domain.MatchSummary{Outcome: r.Outcome.String(), Reason: string(r.Reason)}
	switch r.Outcome {
	case OutcomeResolved:
		s.Band = r.Band
		s.Score = r.Score
		s.VariantKey = r.Variant.Key
		s.VariantLabel = r.Variant.Label
		s.PowerAgreement = r.PowerAgreement
		s.FuelAgreement = r.FuelAgreement
		s.FuelMismatch = r.FuelMismatch
	case OutcomeAmbiguous, OutcomeRejected:
		if len(r.Candidates) > 0 {
			s.Band = domain.BandRejected
			if r.Outcome == OutcomeAmbiguous {
				s.Band = ""
			}
			s.Score = r.Candidates[0].Score
		}
	}
	return s
}

// Recaller recovers candidate variant keys by semantic similarity when the
// lexical model-token filter comes up empty. Optional; never required for
// correctness.
type Recaller interface {
	Recall(ctx context.Context, comparison, brand string, topK int) ([]string, error)
}

// Matcher resolves listings against the reference index.
type Matcher struct {
	idx    *refindex.Index
	th     Thresholds
	recall Recaller
	cache  *resultCache
	log    *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithRecaller enables semantic candidate recall.
func WithRecaller(r Recaller) Option {
	return func(m *Matcher) { m.recall = r }
}

// WithCache enables the resolved-match cache, invalidated on snapshot swap.
func WithCache(size int) Option {
	return func(m *Matcher) { m.cache = newResultCache(size) }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Matcher) { m.log = log }
}

// New creates a Matcher over the index.
func New(idx *refindex.Index, th Thresholds, opts ...Option) *Matcher {
	m := &Matcher{idx: idx, th: th, log: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match resolves one normalized listing. Safe for concurrent use; the whole
// resolution runs against a single snapshot.
func (m *Matcher) Match(ctx context.Context, nl normalize.Listing) Result {
	snap := m.idx.Current()
	version := snap.Version()

	if m.cache != nil {
		if r, ok := m.cache.get(nl.Comparison, version); ok {
			return r
		}
	}
	r := m.match(ctx, snap, nl)
	r.SnapshotVersion = version
	if m.cache != nil {
		m.cache.put(nl.Comparison, version, r)
	}
	return r
}

func (m *Matcher) match(ctx context.Context, snap *refindex.Snapshot, nl normalize.Listing) Result {
	version := snap.Version()

	// Stage A: blocking.
	if nl.Brand == "" {
		return noMatch(ReasonBrandUnresolved, version)
	}
	block := snap.Block(nl.Brand)
	if len(block) == 0 {
		return noMatch(ReasonEmptyBlock, version)
	}
	cands := block
	if nl.ModelToken != "" {
		filtered := snap.BlockFiltered(nl.Brand, nl.ModelToken)
		if len(filtered) == 0 && m.recall != nil {
			filtered = m.recallCandidates(ctx, snap, nl)
		}
		if len(filtered) == 0 {
			return noMatch(ReasonEmptyBlock, version)
		}
		cands = filtered
	}
	if len(cands) > m.th.MaxCandidates && m.th.MaxCandidates > 0 {
		cands = cands[:m.th.MaxCandidates]
	}

	// Stage B: re-ranking.
	scored := fn.Map(cands, func(v domain.CanonicalVariant) Candidate {
		return m.score(nl, v)
	})
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Variant.Key < scored[j].Variant.Key
	})

	top := scored[0]
	if top.Score < m.th.Probable {
		return Result{Outcome: OutcomeRejected, Reason: ReasonBelowFloor,
			Candidates: truncate(scored, 5), SnapshotVersion: version}
	}
	if len(scored) > 1 && top.Score-scored[1].Score < m.th.AmbiguityEpsilon {
		pick, ok := yearTieBreak(nl.Year, scored, top.Score-m.th.AmbiguityEpsilon)
		if !ok {
			return Result{Outcome: OutcomeAmbiguous, Candidates: truncate(scored, 5),
				SnapshotVersion: version}
		}
		top = pick
	}

	band := domain.BandProbable
	if top.Score >= m.th.Auto && !top.FuelMismatch {
		band = domain.BandAuto
	}
	return Result{
		Outcome:         OutcomeResolved,
		Variant:         top.Variant,
		Score:           top.Score,
		Band:            band,
		PowerAgreement:  top.PowerAgreement,
		FuelAgreement:   top.FuelAgreement,
		FuelMismatch:    top.FuelMismatch,
		SnapshotVersion: version,
	}
}

func (m *Matcher) recallCandidates(ctx context.Context, snap *refindex.Snapshot, nl normalize.Listing) []domain.CanonicalVariant {
	keys, err := m.recall.Recall(ctx, nl.Comparison, nl.Brand, 20)
	if err != nil {
		m.log.Warn("match: semantic recall failed", "err", err, "brand", nl.Brand)
		return nil
	}
	var out []domain.CanonicalVariant
	for _, key := range keys {
		v, err := snap.Variant(key)
		if err != nil {
			continue // stale point from a previous snapshot
		}
		// Blocking soundness: recall never crosses brands.
		if b, ok := domain.CanonicalBrand(normalize.Fold(v.Brand)); !ok || b != nl.Brand {
			continue
		}
		out = append(out, v)
	}
	return out
}

// score runs the token-set similarity plus agreement re-scoring for one
// candidate. Fuel disagreement is a hard penalty: a different fuel implies a
// different engine family, never the same variant.
func (m *Matcher) score(nl normalize.Listing, v domain.CanonicalVariant) Candidate {
	c := Candidate{Variant: v, Score: Similarity(nl.Tokens, CandidateTokens(v))}

	if nl.PowerHP > 0 && math.Abs(v.PowerHP()-float64(nl.PowerHP)) <= m.th.PowerTolHP {
		c.PowerAgreement = true
		c.Score += m.th.PowerBonus
	}
	if nl.Fuel != domain.FuelUnknown && v.Fuel != domain.FuelUnknown {
		if nl.Fuel == v.Fuel {
			c.FuelAgreement = true
			c.Score += m.th.FuelBonus
		} else {
			c.FuelMismatch = true
			c.Score -= m.th.FuelMismatchPenalty
		}
	}

	if c.Score > 100 {
		c.Score = 100
	}
	if c.Score < 0 {
		c.Score = 0
	}
	return c
}

// CandidateTokens builds the comparison token set for a variant: brand,
// model, generation in both digit and roman form, rounded DIN hp, fuel word
// and label tokens.
func CandidateTokens(v domain.CanonicalVariant) []string {
	toks := normalize.Tokens(strings.Join([]string{v.Brand, v.Model, v.Label}, " "))
	if v.Generation > 0 {
		toks = append(toks, strconv.Itoa(v.Generation), normalize.Roman(v.Generation))
	}
	if hp := int(math.Round(v.PowerHP())); hp > 0 {
		toks = append(toks, strconv.Itoa(hp))
	}
	if w := normalize.FuelWord(v.Fuel); w != "" {
		toks = append(toks, w)
	}
	return fn.Unique(toks)
}

// yearTieBreak resolves a near-tie when the listing year rules out all but
// one of the tied candidates. The generation window is the one trim-level
// signal the token sets do not carry.
func yearTieBreak(year int, scored []Candidate, floor float64) (Candidate, bool) {
	if year == 0 {
		return Candidate{}, false
	}
	var pick Candidate
	n := 0
	for _, c := range scored {
		if c.Score <= floor {
			break
		}
		if c.Variant.InYearRange(year) {
			pick = c
			n++
		}
	}
	if n != 1 {
		return Candidate{}, false
	}
	return pick, true
}

func truncate(c []Candidate, n int) []Candidate {
	if len(c) <= n {
		return c
	}
	return c[:n]
}
