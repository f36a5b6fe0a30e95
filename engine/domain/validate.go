package domain

import (
	"fmt"
	"strings"
)

const (
	minListingYear = 1990
	maxListingYear = 2030
	// Declared power bounds cover both plausible DIN hp and kW readings.
	minDeclaredPower = 10
	maxDeclaredPower = 1000
)

// ValidateListing checks an inbound listing before it enters the pipeline.
// Brand, model, fuel and power may legitimately be absent or garbage; the
// normalizer carries those through as unresolved. Only structurally broken
// input is rejected here.
func ValidateListing(l ListingInput) error {
	if strings.TrimSpace(l.Title) == "" {
		return NewFieldError("title", l.Title, ErrMissingTitle)
	}
	if l.Year != 0 && (l.Year < minListingYear || l.Year > maxListingYear) {
		return NewFieldError("year", fmt.Sprintf("%d", l.Year), ErrYearOutOfRange)
	}
	if l.DeclaredPower != 0 && (l.DeclaredPower < minDeclaredPower || l.DeclaredPower > maxDeclaredPower) {
		return NewFieldError("declared_power", fmt.Sprintf("%g", l.DeclaredPower), ErrPowerOutOfRange)
	}
	if l.MileageKM < 0 {
		return NewFieldError("mileage_km", fmt.Sprintf("%d", l.MileageKM), ErrNegativeMileage)
	}
	return nil
}
