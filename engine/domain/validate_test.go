package domain

import (
	"errors"
	"testing"
)

func TestValidateListing_Valid(t *testing.T) {
	cases := []ListingInput{
		{Title: "Clio IV dci 90ch", Brand: "Renault", Year: 2015},
		{Title: "208 PureTech 100", DeclaredPower: 100, MileageKM: 42000},
		{Title: "Model 3 Long Range", Fuel: FuelElectric},
		{Title: "Golf 7 2.0 TDI", DeclaredPower: 110, Year: 2017},
	}
	for _, l := range cases {
		if err := ValidateListing(l); err != nil {
			t.Errorf("expected valid for %+v, got %v", l, err)
		}
	}
}

func TestValidateListing_MissingTitle(t *testing.T) {
	err := ValidateListing(ListingInput{Brand: "Renault"})
	if !errors.Is(err, ErrMissingTitle) {
		t.Errorf("expected ErrMissingTitle, got %v", err)
	}
	err = ValidateListing(ListingInput{Title: "   "})
	if !errors.Is(err, ErrMissingTitle) {
		t.Errorf("expected ErrMissingTitle for blank title, got %v", err)
	}
}

func TestValidateListing_YearOutOfRange(t *testing.T) {
	for _, year := range []int{1971, 2099} {
		err := ValidateListing(ListingInput{Title: "Clio IV", Year: year})
		if !errors.Is(err, ErrYearOutOfRange) {
			t.Errorf("year %d: expected ErrYearOutOfRange, got %v", year, err)
		}
	}
}

func TestValidateListing_PowerOutOfRange(t *testing.T) {
	err := ValidateListing(ListingInput{Title: "Clio IV", DeclaredPower: 5})
	if !errors.Is(err, ErrPowerOutOfRange) {
		t.Errorf("expected ErrPowerOutOfRange, got %v", err)
	}
	err = ValidateListing(ListingInput{Title: "Clio IV", DeclaredPower: 2400})
	if !errors.Is(err, ErrPowerOutOfRange) {
		t.Errorf("expected ErrPowerOutOfRange, got %v", err)
	}
}

func TestValidateListing_NegativeMileage(t *testing.T) {
	err := ValidateListing(ListingInput{Title: "Clio IV", MileageKM: -1})
	if !errors.Is(err, ErrNegativeMileage) {
		t.Errorf("expected ErrNegativeMileage, got %v", err)
	}
}

func TestFieldError_Unwrap(t *testing.T) {
	fe := NewFieldError("title", "", ErrMissingTitle)
	if !errors.Is(fe, ErrMissingTitle) {
		t.Errorf("Unwrap should expose ErrMissingTitle")
	}
	var target *FieldError
	if !errors.As(fe, &target) {
		t.Errorf("errors.As should work for *FieldError")
	}
	if target.Field != "title" {
		t.Errorf("expected field=title, got %s", target.Field)
	}
}
