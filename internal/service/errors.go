package service

import (
	"errors"
	"fmt"

	"github.com/sartoro/checkout-service/internal/payment"
)

var (
	// ErrPaymentNotReady means commit was attempted before any payment session
	// reached an authorized state. The caller should retry the precondition,
	// not the whole flow.
	ErrPaymentNotReady = errors.New("payment is not authorized yet")
	// ErrExternalUnavailable means the processor or a store was unreachable.
	// Retryable with backoff, bounded attempts.
	ErrExternalUnavailable = errors.New("external dependency unavailable")
	// ErrCartNotFound is the service-level not-found for carts.
	ErrCartNotFound = errors.New("cart not found")
)

// ValidationError is fatal for the current attempt and must be corrected by
// the user before retrying.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid cart: " + e.Reason
}

// ConfigurationError means no candidate provider identifier was accepted.
// Surfaced to an operator, not retryable by the end user.
type ConfigurationError struct {
	Attempts []payment.CandidateAttempt
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("payment integration misconfigured: %d candidate(s) rejected", len(e.Attempts))
}
