// Package cost estimates monthly ownership cost for a matched variant:
// energy, maintenance, and an insurance proxy, from live energy prices and
// per-category calibration tables.
package cost

import (
	"fmt"

	"github.com/carthesien/enrich/engine/domain"
)

// Consumption provenance markers on the cost breakdown.
const (
	ConsumptionReference = "reference"
	ConsumptionEstimated = "estimated"
)

// Inputs carries everything Monthly needs besides the variant itself.
// Missing entries surface as ErrMissingCostInput, never as silent zeros.
type Inputs struct {
	// MonthlyKM is the buyer's declared monthly mileage.
	MonthlyKM float64
	// Prices maps fuel type to price per unit: EUR/L for liquids, EUR/kWh
	// for electric, EUR/kg for CNG.
	Prices map[domain.Fuel]float64
	// MaintenancePerKM maps vehicle category to EUR/km.
	MaintenancePerKM map[domain.Category]float64
	// InsuranceBase and InsurancePerCV parameterize the linear insurance
	// proxy per category as annual EUR: (base + perCV * fiscalPower) / 12
	// gives the monthly share.
	InsuranceBase  map[domain.Category]float64
	InsurancePerCV map[domain.Category]float64
	// EstimatedConsumption supplies a per-fuel fallback (units per 100 km)
	// when the variant has no reference figure.
	EstimatedConsumption map[domain.Fuel]float64
}

// DefaultInputs returns the calibration tables for the French market.
// Prices are intentionally absent: they come from the live feed.
func DefaultInputs() Inputs {
	return Inputs{
		MaintenancePerKM: map[domain.Category]float64{
			domain.CategoryA:    0.062,
			domain.CategoryB:    0.071,
			domain.CategoryBSUV: 0.078,
			domain.CategoryC:    0.086,
			domain.CategoryCSUV: 0.094,
			domain.CategoryD:    0.104,
			domain.CategoryDSUV: 0.112,
			domain.CategoryE:    0.128,
			domain.CategoryF:    0.155,
			domain.CategoryMPV:  0.092,
			domain.CategoryLCV:  0.098,
		},
		InsuranceBase: map[domain.Category]float64{
			domain.CategoryA:    312,
			domain.CategoryB:    360,
			domain.CategoryBSUV: 396,
			domain.CategoryC:    432,
			domain.CategoryCSUV: 480,
			domain.CategoryD:    540,
			domain.CategoryDSUV: 588,
			domain.CategoryE:    696,
			domain.CategoryF:    888,
			domain.CategoryMPV:  456,
			domain.CategoryLCV:  504,
		},
		InsurancePerCV: map[domain.Category]float64{
			domain.CategoryA:    19.2,
			domain.CategoryB:    22.8,
			domain.CategoryBSUV: 25.2,
			domain.CategoryC:    28.8,
			domain.CategoryCSUV: 31.2,
			domain.CategoryD:    36.0,
			domain.CategoryDSUV: 38.4,
			domain.CategoryE:    45.6,
			domain.CategoryF:    58.8,
			domain.CategoryMPV:  30.0,
			domain.CategoryLCV:  32.4,
		},
		EstimatedConsumption: map[domain.Fuel]float64{
			domain.FuelPetrol:       6.8,
			domain.FuelDiesel:       5.4,
			domain.FuelHybrid:       5.0,
			domain.FuelPlugInHybrid: 2.4,
			domain.FuelElectric:     16.5,
			domain.FuelLPG:          8.6,
			domain.FuelCNG:          4.3,
		},
	}
}

func missing(field string, value any) error {
	return domain.NewFieldError(field, fmt.Sprint(value), domain.ErrMissingCostInput)
}

// Monthly computes the cost breakdown for variant at the given inputs.
// Energy scales linearly with mileage: consumption/100 * km * price.
func Monthly(variant domain.CanonicalVariant, in Inputs) (domain.CostBreakdown, error) {
	var zero domain.CostBreakdown
	if in.MonthlyKM <= 0 {
		return zero, missing("monthly_km", in.MonthlyKM)
	}
	if variant.Fuel == "" {
		return zero, missing("fuel", variant.Fuel)
	}

	consumption := variant.MixedConsumption
	source := ConsumptionReference
	if consumption <= 0 {
		consumption = in.EstimatedConsumption[variant.Fuel]
		source = ConsumptionEstimated
		if consumption <= 0 {
			return zero, missing("consumption", variant.Fuel)
		}
	}

	price, ok := in.Prices[variant.Fuel]
	if !ok || price <= 0 {
		return zero, missing(fmt.Sprintf("price[%s]", variant.Fuel), price)
	}

	perKM, ok := in.MaintenancePerKM[variant.Category]
	if !ok {
		return zero, missing(fmt.Sprintf("maintenance[%s]", variant.Category), variant.Category)
	}
	base, ok := in.InsuranceBase[variant.Category]
	if !ok {
		return zero, missing(fmt.Sprintf("insurance_base[%s]", variant.Category), variant.Category)
	}
	perCV, ok := in.InsurancePerCV[variant.Category]
	if !ok {
		return zero, missing(fmt.Sprintf("insurance_per_cv[%s]", variant.Category), variant.Category)
	}

	energy := consumption / 100 * in.MonthlyKM * price
	maintenance := perKM * in.MonthlyKM
	insurance := (base + perCV*float64(variant.FiscalPowerCV)) / 12

	return domain.CostBreakdown{
		MonthlyKM:         in.MonthlyKM,
		Fuel:              energy,
		Maintenance:       maintenance,
		InsuranceProxy:    insurance,
		Total:             energy + maintenance + insurance,
		FuelType:          variant.Fuel,
		Consumption:       consumption,
		ConsumptionSource: source,
		PricePerUnit:      price,
	}, nil
}
