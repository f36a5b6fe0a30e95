package score

import "github.com/carthesien/enrich/engine/domain"

// AlertDef describes a known-failure alert for an engine family. Detection
// keys off the normalized listing tokens, so "1.2 PureTech 110" and
// "puretech" both hit.
type AlertDef struct {
	EngineFamily   string
	Severity       string
	Issues         []string
	RiskAdjustment float64 // applied to the reliability dimension, negative
}

// DefaultAlerts is the curated engine-family catalog.
func DefaultAlerts() []AlertDef {
	return []AlertDef{
		{
			EngineFamily: "puretech",
			Severity:     "high",
			Issues: []string{
				"wet timing belt degradation clogging the oil circuit",
				"premature oil consumption on pre-2023 builds",
			},
			RiskAdjustment: -2.0,
		},
		{
			EngineFamily: "tce",
			Severity:     "medium",
			Issues: []string{
				"timing chain stretch on early 1.2 TCe",
				"oil consumption above 100k km",
			},
			RiskAdjustment: -1.0,
		},
		{
			EngineFamily: "tsi",
			Severity:     "medium",
			Issues: []string{
				"timing chain tensioner wear on EA111 1.4 TSI",
			},
			RiskAdjustment: -1.0,
		},
		{
			EngineFamily: "thp",
			Severity:     "high",
			Issues: []string{
				"timing chain and VTi/THP tensioner failures",
				"carbon buildup on intake valves",
			},
			RiskAdjustment: -1.5,
		},
		{
			EngineFamily: "dci",
			Severity:     "low",
			Issues: []string{
				"EGR valve clogging in urban-only use",
			},
			RiskAdjustment: -0.5,
		},
		{
			EngineFamily: "bluehdi",
			Severity:     "low",
			Issues: []string{
				"AdBlue injector and NOx sensor failures",
			},
			RiskAdjustment: -0.5,
		},
		{
			EngineFamily: "tfsi",
			Severity:     "medium",
			Issues: []string{
				"oil consumption on EA888 gen 1 and 2",
			},
			RiskAdjustment: -1.0,
		},
		{
			EngineFamily: "ecoboost",
			Severity:     "high",
			Issues: []string{
				"1.0 EcoBoost coolant intrusion and head gasket failures",
			},
			RiskAdjustment: -1.5,
		},
	}
}

// DetectAlerts matches the catalog against normalized listing tokens.
func DetectAlerts(tokens []string, defs []AlertDef) []domain.Alert {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	var out []domain.Alert
	for _, d := range defs {
		if set[d.EngineFamily] {
			out = append(out, domain.Alert{
				EngineFamily:   d.EngineFamily,
				Severity:       d.Severity,
				Issues:         d.Issues,
				RiskAdjustment: d.RiskAdjustment,
			})
		}
	}
	return out
}
