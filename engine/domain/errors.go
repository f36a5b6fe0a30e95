package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the matching, fusion and cost stages.
var (
	ErrBrandUnresolved  = errors.New("brand unresolved")
	ErrNoMatch          = errors.New("no matching variant")
	ErrAmbiguousMatch   = errors.New("ambiguous match")
	ErrMatchRejected    = errors.New("match rejected")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrMissingCostInput = errors.New("missing cost input")

	ErrMissingTitle    = errors.New("title required")
	ErrYearOutOfRange  = errors.New("year out of range")
	ErrPowerOutOfRange = errors.New("declared power out of range")
	ErrNegativeMileage = errors.New("negative mileage")
)

// FieldError wraps a sentinel with the offending field and value.
type FieldError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Wrapped }

// NewFieldError creates a FieldError.
func NewFieldError(field, value string, wrapped error) *FieldError {
	return &FieldError{Field: field, Value: value, Wrapped: wrapped}
}
