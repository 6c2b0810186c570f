package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrBanned          = errors.New("account suspended")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidState    = errors.New("invalid state transition")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrPaymentRequired = errors.New("payment required")
	ErrProviderFailure = errors.New("provider failure")
)

// ValidationError reports a rejected input field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PaymentRequiredError carries the quote the caller has to pay to proceed.
type PaymentRequiredError struct {
	Purpose     Purpose
	AmountMinor int64
	Currency    string
	Gateway     string
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("payment required for %s: %d %s", e.Purpose, e.AmountMinor, e.Currency)
}

func (e *PaymentRequiredError) Unwrap() error { return ErrPaymentRequired }
