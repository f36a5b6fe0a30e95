package cost

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carthesien/enrich/engine/domain"
)

func dieselClio() domain.CanonicalVariant {
	return domain.CanonicalVariant{
		Brand:            "Renault",
		Model:            "Clio",
		Fuel:             domain.FuelDiesel,
		MaxPowerKW:       66,
		FiscalPowerCV:    4,
		MixedConsumption: 3.7,
		Category:         domain.CategoryB,
	}
}

func testInputs(km float64) Inputs {
	in := DefaultInputs()
	in.MonthlyKM = km
	in.Prices = map[domain.Fuel]float64{
		domain.FuelPetrol:   1.82,
		domain.FuelDiesel:   1.71,
		domain.FuelElectric: 0.25,
	}
	return in
}

func TestMonthly_ReferenceConsumption(t *testing.T) {
	got, err := Monthly(dieselClio(), testInputs(1000))
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	wantEnergy := 3.7 / 100 * 1000 * 1.71
	if math.Abs(got.Fuel-wantEnergy) > 1e-9 {
		t.Errorf("energy = %v, want %v", got.Fuel, wantEnergy)
	}
	wantMaint := 0.071 * 1000
	if math.Abs(got.Maintenance-wantMaint) > 1e-9 {
		t.Errorf("maintenance = %v, want %v", got.Maintenance, wantMaint)
	}
	// Monthly share of the annual premium: (base + perCV*CV) / 12.
	wantIns := (360 + 22.8*4) / 12
	if math.Abs(got.InsuranceProxy-wantIns) > 1e-9 {
		t.Errorf("insurance = %v, want %v", got.InsuranceProxy, wantIns)
	}
	if math.Abs(got.Total-(wantEnergy+wantMaint+wantIns)) > 1e-9 {
		t.Errorf("total = %v does not sum components", got.Total)
	}
	if got.ConsumptionSource != ConsumptionReference {
		t.Errorf("consumption source = %q, want reference", got.ConsumptionSource)
	}
}

func TestMonthly_InsuranceIsMonthlyShareOfAnnual(t *testing.T) {
	v := dieselClio()
	v.FiscalPowerCV = 5
	in := testInputs(1000)
	in.InsuranceBase[domain.CategoryB] = 600
	in.InsurancePerCV[domain.CategoryB] = 24

	got, err := Monthly(v, in)
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	if want := (600.0 + 24*5) / 12; math.Abs(got.InsuranceProxy-want) > 1e-9 {
		t.Errorf("insurance = %v, want annual/12 = %v", got.InsuranceProxy, want)
	}
}

func TestMonthly_MileageLinearity(t *testing.T) {
	at500, err := Monthly(dieselClio(), testInputs(500))
	if err != nil {
		t.Fatalf("Monthly(500): %v", err)
	}
	at1500, err := Monthly(dieselClio(), testInputs(1500))
	if err != nil {
		t.Fatalf("Monthly(1500): %v", err)
	}
	if math.Abs(at1500.Fuel-3*at500.Fuel) > 1e-9 {
		t.Errorf("energy not linear: %v vs 3x %v", at1500.Fuel, at500.Fuel)
	}
	if math.Abs(at1500.Maintenance-3*at500.Maintenance) > 1e-9 {
		t.Errorf("maintenance not linear: %v vs 3x %v", at1500.Maintenance, at500.Maintenance)
	}
	if at1500.InsuranceProxy != at500.InsuranceProxy {
		t.Errorf("insurance varies with mileage: %v vs %v", at1500.InsuranceProxy, at500.InsuranceProxy)
	}
}

func TestMonthly_EstimatedConsumptionFallback(t *testing.T) {
	v := dieselClio()
	v.MixedConsumption = 0

	got, err := Monthly(v, testInputs(1000))
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	if got.ConsumptionSource != ConsumptionEstimated {
		t.Errorf("consumption source = %q, want estimated", got.ConsumptionSource)
	}
	if got.Consumption != 5.4 {
		t.Errorf("consumption = %v, want the diesel fallback 5.4", got.Consumption)
	}
}

func TestMonthly_MissingInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CanonicalVariant, *Inputs)
	}{
		{"zero mileage", func(_ *domain.CanonicalVariant, in *Inputs) { in.MonthlyKM = 0 }},
		{"no fuel", func(v *domain.CanonicalVariant, _ *Inputs) { v.Fuel = "" }},
		{"no price for fuel", func(v *domain.CanonicalVariant, _ *Inputs) { v.Fuel = domain.FuelLPG }},
		{"no consumption anywhere", func(v *domain.CanonicalVariant, in *Inputs) {
			v.MixedConsumption = 0
			delete(in.EstimatedConsumption, domain.FuelDiesel)
		}},
		{"unknown category", func(v *domain.CanonicalVariant, _ *Inputs) { v.Category = "Z" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := dieselClio()
			in := testInputs(1000)
			tt.mutate(&v, &in)
			_, err := Monthly(v, in)
			if !errors.Is(err, domain.ErrMissingCostInput) {
				t.Errorf("err = %v, want ErrMissingCostInput", err)
			}
			var fe *domain.FieldError
			if !errors.As(err, &fe) {
				t.Errorf("err = %v, want a FieldError naming the input", err)
			}
		})
	}
}

func TestMonthly_ElectricUsesKWhPrice(t *testing.T) {
	v := dieselClio()
	v.Fuel = domain.FuelElectric
	v.MixedConsumption = 17.0 // kWh/100km

	got, err := Monthly(v, testInputs(1000))
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	want := 17.0 / 100 * 1000 * 0.25
	if math.Abs(got.Fuel-want) > 1e-9 {
		t.Errorf("energy = %v, want %v", got.Fuel, want)
	}
}

func TestFeed_SwapIsAtomic(t *testing.T) {
	feed := NewFeed(map[domain.Fuel]float64{domain.FuelDiesel: 1.70})
	prices, _ := feed.Prices()
	if prices[domain.FuelDiesel] != 1.70 {
		t.Fatalf("initial price = %v", prices[domain.FuelDiesel])
	}
	feed.store(map[domain.Fuel]float64{domain.FuelDiesel: 1.80})
	prices, _ = feed.Prices()
	if prices[domain.FuelDiesel] != 1.80 {
		t.Errorf("price after swap = %v, want 1.80", prices[domain.FuelDiesel])
	}
}

func TestPoller_FailedFetchKeepsOldTable(t *testing.T) {
	feed := NewFeed(map[domain.Fuel]float64{domain.FuelDiesel: 1.70})
	p := NewPoller(failSource{}, feed, time.Hour, nil)

	if err := p.RefreshOnce(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	prices, _ := feed.Prices()
	if prices[domain.FuelDiesel] != 1.70 {
		t.Errorf("price after failed refresh = %v, want 1.70", prices[domain.FuelDiesel])
	}
}

type failSource struct{}

func (failSource) Fetch(context.Context) (map[domain.Fuel]float64, error) {
	return nil, errors.New("upstream down")
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"petrol": 1.82, "diesel": 1.71}`))
	}))
	defer srv.Close()

	src := &HTTPSource{URL: srv.URL}
	prices, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if prices[domain.FuelDiesel] != 1.71 {
		t.Errorf("diesel = %v, want 1.71", prices[domain.FuelDiesel])
	}
}

func TestHTTPSource_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := (&HTTPSource{URL: srv.URL}).Fetch(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
