package models

import (
	"errors"
	"fmt"
)

// Guard and taxonomy errors surfaced by the billing engine. Handlers map these
// to HTTP status codes and machine-readable error codes; callers distinguish
// "retry" from "not allowed here" by the specific error.
var (
	ErrNotFound            = errors.New("record not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrImmutableDocument   = errors.New("document items can no longer be edited")
	ErrLedgerLocked        = errors.New("invoice has recorded payments and its items are locked")
	ErrAlreadyConverted    = errors.New("quote has already been converted to an invoice")
	ErrHasActivePayments   = errors.New("invoice has completed payments that are not fully refunded")
	ErrInvoiceVoided       = errors.New("invoice is cancelled")
	ErrExceedsRefundable   = errors.New("refund amount exceeds the remaining refundable balance")
	ErrExpiredDocument     = errors.New("quote validity period has passed")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrMissingTarget       = errors.New("a contact, company or deal reference is required")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
)

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
