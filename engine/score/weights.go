// Package score turns fused dimension scores into a 0-20 global note, a
// verdict, pros and cons, and known-failure alerts.
package score

import "github.com/carthesien/enrich/engine/domain"

// Weights distributes the global note across dimensions. Shares sum to 1.
type Weights map[domain.Dimension]float64

// DefaultSegmentWeights returns the per-segment weight tables. Budget buyers
// weigh running costs, premium buyers comfort, and so on.
func DefaultSegmentWeights() map[domain.Segment]Weights {
	return map[domain.Segment]Weights{
		domain.SegmentBudget: {
			domain.DimReliability: 0.35,
			domain.DimBudget:      0.35,
			domain.DimComfort:     0.15,
			domain.DimSafety:      0.15,
		},
		domain.SegmentVolume: {
			domain.DimReliability: 0.35,
			domain.DimBudget:      0.25,
			domain.DimComfort:     0.20,
			domain.DimSafety:      0.20,
		},
		domain.SegmentPremium: {
			domain.DimReliability: 0.30,
			domain.DimBudget:      0.15,
			domain.DimComfort:     0.30,
			domain.DimSafety:      0.25,
		},
		domain.SegmentLuxurySport: {
			domain.DimReliability: 0.30,
			domain.DimBudget:      0.10,
			domain.DimComfort:     0.35,
			domain.DimSafety:      0.25,
		},
		domain.SegmentSUVSpecialist: {
			domain.DimReliability: 0.35,
			domain.DimBudget:      0.20,
			domain.DimComfort:     0.20,
			domain.DimSafety:      0.25,
		},
		domain.SegmentElectricFirst: {
			domain.DimReliability: 0.30,
			domain.DimBudget:      0.30,
			domain.DimComfort:     0.20,
			domain.DimSafety:      0.20,
		},
	}
}

// WeightsFor picks the table for a segment, defaulting to volume.
func WeightsFor(tables map[domain.Segment]Weights, seg domain.Segment) Weights {
	if w, ok := tables[seg]; ok {
		return w
	}
	return tables[domain.SegmentVolume]
}
