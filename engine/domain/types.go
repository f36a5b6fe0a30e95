// Package domain defines the core types, enums, sentinel errors, brand
// registry, and validation for the enrichment pipeline. It acts as the
// validation gate at pipeline entry points.
package domain

import (
	"fmt"
	"time"
)

// HPPerKW converts kilowatts to DIN horsepower.
const HPPerKW = 1.35962

// Fuel identifies the engine energy type of a listing or variant.
type Fuel string

const (
	FuelPetrol       Fuel = "petrol"
	FuelDiesel       Fuel = "diesel"
	FuelHybrid       Fuel = "hybrid"
	FuelPlugInHybrid Fuel = "plugin_hybrid"
	FuelElectric     Fuel = "electric"
	FuelLPG          Fuel = "lpg"
	FuelCNG          Fuel = "cng"
	FuelUnknown      Fuel = ""
)

// Gearbox identifies the transmission type when it can be inferred.
type Gearbox string

const (
	GearboxManual    Gearbox = "manual"
	GearboxAutomatic Gearbox = "automatic"
	GearboxUnknown   Gearbox = ""
)

// Category is the body-style segment of a canonical variant, used to pick
// maintenance and insurance coefficients.
type Category string

const (
	CategoryA    Category = "A"
	CategoryB    Category = "B"
	CategoryBSUV Category = "B-SUV"
	CategoryC    Category = "C"
	CategoryCSUV Category = "C-SUV"
	CategoryD    Category = "D"
	CategoryDSUV Category = "D-SUV"
	CategoryE    Category = "E"
	CategoryF    Category = "F"
	CategoryMPV  Category = "MPV"
	CategoryLCV  Category = "LCV"
)

// Segment is the market positioning of a brand, used to pick scoring weights.
type Segment string

const (
	SegmentBudget        Segment = "budget"
	SegmentVolume        Segment = "volume"
	SegmentPremium       Segment = "premium"
	SegmentLuxurySport   Segment = "luxury_sport"
	SegmentSUVSpecialist Segment = "suv_specialist"
	SegmentElectricFirst Segment = "electric_first"
)

// Dimension is one of the fused evidence axes shown to the user.
type Dimension string

const (
	DimReliability Dimension = "reliability"
	DimComfort     Dimension = "comfort"
	DimBudget      Dimension = "budget"
	DimSafety      Dimension = "safety"
)

// ListingInput is the raw, noisy listing as received from the outside.
// Ephemeral; produced per request and never persisted by the engine.
type ListingInput struct {
	Brand         string  `json:"brand,omitempty"`
	Model         string  `json:"model,omitempty"`
	Title         string  `json:"title"`
	Subtitle      string  `json:"subtitle,omitempty"`
	DeclaredPower float64 `json:"declared_power,omitempty"` // unit ambiguous: DIN hp or kW
	Fuel          Fuel    `json:"fuel,omitempty"`
	Year          int     `json:"year,omitempty"`
	MileageKM     int     `json:"mileage_km,omitempty"`
}

// CanonicalVariant is one authoritative technical record for a specific
// vehicle configuration. Owned by the reference index; read-only after load.
type CanonicalVariant struct {
	Key              string   `json:"key"`
	Brand            string   `json:"brand"`
	Model            string   `json:"model"`
	Generation       int      `json:"generation,omitempty"` // 0 = unknown
	YearFrom         int      `json:"year_from,omitempty"`
	YearTo           int      `json:"year_to,omitempty"` // 0 = still produced
	Fuel             Fuel     `json:"fuel"`
	MaxPowerKW       float64  `json:"max_power_kw"`
	FiscalPowerCV    int      `json:"fiscal_power_cv"`
	MixedConsumption float64  `json:"mixed_consumption"` // L or kWh per 100 km
	CO2GPerKM        float64  `json:"co2_g_per_km,omitempty"`
	Label            string   `json:"label,omitempty"` // trade designation, e.g. "dCi 90 Energy"
	Category         Category `json:"category,omitempty"`
}

// PowerHP returns the maximum power converted to DIN horsepower.
func (v CanonicalVariant) PowerHP() float64 { return v.MaxPowerKW * HPPerKW }

// InYearRange reports whether a model year falls inside the generation window.
func (v CanonicalVariant) InYearRange(year int) bool {
	if year == 0 || v.YearFrom == 0 {
		return true
	}
	if year < v.YearFrom {
		return false
	}
	return v.YearTo == 0 || year <= v.YearTo
}

// DecisionBand classifies a resolved match by similarity score.
type DecisionBand string

const (
	BandAuto     DecisionBand = "auto"
	BandProbable DecisionBand = "probable"
	BandRejected DecisionBand = "rejected"
)

// ConfidenceTier classifies an evidence bundle by the count, diversity and
// freshness of its sources. Ordered: Unknown < Estimated < Verified < Certified.
type ConfidenceTier int

const (
	TierUnknown ConfidenceTier = iota
	TierEstimated
	TierVerified
	TierCertified
)

func (t ConfidenceTier) String() string {
	switch t {
	case TierEstimated:
		return "estimated"
	case TierVerified:
		return "verified"
	case TierCertified:
		return "certified"
	default:
		return "unknown"
	}
}

// Badge returns the user-facing badge label for the tier.
func (t ConfidenceTier) Badge() string {
	switch t {
	case TierEstimated:
		return "Estimated data"
	case TierVerified:
		return "Verified data"
	case TierCertified:
		return "Certified data"
	default:
		return "Unverified data"
	}
}

// MarshalJSON renders the tier as its string label.
func (t ConfidenceTier) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", t.String())), nil
}

// UnmarshalJSON parses a tier from its string label.
func (t *ConfidenceTier) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"unknown"`:
		*t = TierUnknown
	case `"estimated"`:
		*t = TierEstimated
	case `"verified"`:
		*t = TierVerified
	case `"certified"`:
		*t = TierCertified
	default:
		return fmt.Errorf("unknown confidence tier %s", b)
	}
	return nil
}

// MatchSummary is the stable match portion of the enrichment record.
type MatchSummary struct {
	Outcome        string       `json:"outcome"` // no_match | rejected | ambiguous | resolved
	Reason         string       `json:"reason,omitempty"`
	Band           DecisionBand `json:"band,omitempty"`
	Score          float64      `json:"score,omitempty"`
	VariantKey     string       `json:"variant_key,omitempty"`
	VariantLabel   string       `json:"variant_label,omitempty"`
	PowerAgreement bool         `json:"power_agreement,omitempty"`
	FuelAgreement  bool         `json:"fuel_agreement,omitempty"`
	FuelMismatch   bool         `json:"fuel_mismatch,omitempty"`
}

// DimensionScore is one fused 0-10 sub-score with its contributing source count.
type DimensionScore struct {
	Score   float64 `json:"score"`
	Sources int     `json:"sources"`
}

// Alert is a known-failure warning attached to an engine family.
type Alert struct {
	EngineFamily   string   `json:"engine_family"`
	Severity       string   `json:"severity"` // high | medium | low
	Issues         []string `json:"issues"`
	RiskAdjustment float64  `json:"risk_adjustment"` // applied to the reliability dimension
}

// CostBreakdown is the monthly TCO decomposition. All values are exact sums;
// rounding is a presentation concern outside the engine.
type CostBreakdown struct {
	MonthlyKM         float64 `json:"monthly_km"`
	Fuel              float64 `json:"fuel"`
	Maintenance       float64 `json:"maintenance"`
	InsuranceProxy    float64 `json:"insurance_proxy"`
	Total             float64 `json:"total"`
	FuelType          Fuel    `json:"fuel_type"`
	Consumption       float64 `json:"consumption"`
	ConsumptionSource string  `json:"consumption_source"` // reference | estimated
	PricePerUnit      float64 `json:"price_per_unit"`
}

// Verdict is the expert verdict band with its display text.
type Verdict struct {
	Band string `json:"band"` // excellent | good | average | cautious
	Text string `json:"text"`
}

// EnrichmentRecord is the terminal output of the pipeline. Created fresh per
// request; immutable once returned. Field names and types are the frozen
// contract with the display layer.
type EnrichmentRecord struct {
	ID            string                       `json:"id"`
	Listing       ListingInput                 `json:"listing"`
	Match         MatchSummary                 `json:"match"`
	Tier          ConfidenceTier               `json:"confidence_tier"`
	Badge         string                       `json:"badge"`
	Dimensions    map[Dimension]DimensionScore `json:"dimensions,omitempty"`
	KnownFailures []string                     `json:"known_failures,omitempty"`
	Alerts        []Alert                      `json:"alerts,omitempty"`
	Costs         *CostBreakdown               `json:"costs,omitempty"`
	GlobalScore   float64                      `json:"global_score"`
	Verdict       Verdict                      `json:"verdict"`
	Pros          []string                     `json:"pros,omitempty"`
	Cons          []string                     `json:"cons,omitempty"`
	GeneratedAt   time.Time                    `json:"generated_at"`
}
