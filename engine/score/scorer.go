package score

import (
	"fmt"
	"sort"

	"github.com/carthesien/enrich/engine/domain"
)

// Verdict band identifiers.
const (
	BandExcellent = "excellent"
	BandGood      = "good"
	BandAverage   = "average"
	BandCautious  = "cautious"
)

// Bands holds the verdict cut points on the 0-20 global note, plus the
// reliability veto floor on the 0-10 dimension scale.
type Bands struct {
	Excellent        float64
	Good             float64
	Average          float64
	ReliabilityFloor float64
}

// DefaultBands returns the calibrated cut points.
func DefaultBands() Bands {
	return Bands{Excellent: 16, Good: 13, Average: 10, ReliabilityFloor: 7}
}

// Thresholds for pros/cons selection on the 0-10 dimension scale.
const (
	strengthFloor = 7.0
	weaknessCeil  = 5.0
)

// Scorer computes global notes and verdicts from fused dimensions.
type Scorer struct {
	weights map[domain.Segment]Weights
	bands   Bands
	alerts  []AlertDef
}

// NewScorer builds a scorer; nil arguments take defaults.
func NewScorer(weights map[domain.Segment]Weights, bands Bands, alerts []AlertDef) *Scorer {
	if weights == nil {
		weights = DefaultSegmentWeights()
	}
	if bands == (Bands{}) {
		bands = DefaultBands()
	}
	if alerts == nil {
		alerts = DefaultAlerts()
	}
	return &Scorer{weights: weights, bands: bands, alerts: alerts}
}

// Outcome is the full scoring result for one listing.
type Outcome struct {
	Global  float64
	Verdict domain.Verdict
	Alerts  []domain.Alert
	Pros    []string
	Cons    []string
	// Dimensions echoes the inputs after alert risk adjustment.
	Dimensions map[domain.Dimension]domain.DimensionScore
}

// Score fuses everything: detect alerts on the listing tokens, adjust the
// reliability dimension, compute the renormalized global note, and derive the
// verdict and pros/cons. Dimensions without data carry no weight; the
// remaining weights are renormalized so partial evidence still lands on the
// full 0-20 scale.
func (s *Scorer) Score(segment domain.Segment, dims map[domain.Dimension]domain.DimensionScore, tokens []string) Outcome {
	out := Outcome{
		Alerts:     DetectAlerts(tokens, s.alerts),
		Dimensions: make(map[domain.Dimension]domain.DimensionScore, len(dims)),
	}
	for dim, ds := range dims {
		out.Dimensions[dim] = ds
	}

	if len(out.Alerts) > 0 {
		if rel, ok := out.Dimensions[domain.DimReliability]; ok {
			adj := rel.Score
			for _, a := range out.Alerts {
				adj += a.RiskAdjustment
			}
			rel.Score = clamp(adj, 0, 10)
			out.Dimensions[domain.DimReliability] = rel
		}
	}

	weights := WeightsFor(s.weights, segment)
	var sum, totalWeight float64
	for dim, w := range weights {
		ds, ok := out.Dimensions[dim]
		if !ok || ds.Sources == 0 {
			continue
		}
		sum += ds.Score * w
		totalWeight += w
	}
	if totalWeight > 0 {
		out.Global = clamp(sum/totalWeight*2, 0, 20)
	}

	out.Verdict = s.verdict(out.Global, out.Dimensions, totalWeight > 0)
	out.Pros, out.Cons = s.prosCons(out.Dimensions, out.Alerts)
	return out
}

// verdict maps the global note to a band, with a reliability veto: a car
// below the reliability floor never rates above cautious advice.
func (s *Scorer) verdict(global float64, dims map[domain.Dimension]domain.DimensionScore, scored bool) domain.Verdict {
	if !scored {
		return domain.Verdict{Band: BandCautious, Text: "Données insuffisantes pour un avis fiable."}
	}
	if rel, ok := dims[domain.DimReliability]; ok && rel.Sources > 0 && rel.Score < s.bands.ReliabilityFloor {
		return domain.Verdict{
			Band: BandCautious,
			Text: "Fiabilité en retrait sur cette motorisation : à inspecter de près avant achat.",
		}
	}
	switch {
	case global >= s.bands.Excellent:
		return domain.Verdict{Band: BandExcellent, Text: "Excellent choix, valeur sûre du segment."}
	case global >= s.bands.Good:
		return domain.Verdict{Band: BandGood, Text: "Bon choix, quelques points à vérifier."}
	case global >= s.bands.Average:
		return domain.Verdict{Band: BandAverage, Text: "Choix correct, comparez avec les alternatives."}
	default:
		return domain.Verdict{Band: BandCautious, Text: "Prudence recommandée sur ce modèle."}
	}
}

var dimensionLabels = map[domain.Dimension]string{
	domain.DimReliability: "fiabilité",
	domain.DimComfort:     "confort",
	domain.DimBudget:      "budget d'usage",
	domain.DimSafety:      "sécurité",
}

func (s *Scorer) prosCons(dims map[domain.Dimension]domain.DimensionScore, alerts []domain.Alert) (pros, cons []string) {
	ordered := make([]domain.Dimension, 0, len(dims))
	for dim := range dims {
		ordered = append(ordered, dim)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	for _, dim := range ordered {
		ds := dims[dim]
		if ds.Sources == 0 {
			continue
		}
		label := dimensionLabels[dim]
		switch {
		case ds.Score >= strengthFloor:
			pros = append(pros, fmt.Sprintf("%s : point fort (%.1f/10)", label, ds.Score))
		case ds.Score < weaknessCeil:
			cons = append(cons, fmt.Sprintf("%s : point faible (%.1f/10)", label, ds.Score))
		}
	}
	for _, a := range alerts {
		cons = append(cons, fmt.Sprintf("moteur %s : défaut connu (%s)", a.EngineFamily, a.Severity))
	}
	return pros, cons
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
