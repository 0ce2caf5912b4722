/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All sentinel errors in one place for consistency and discoverability.
  Callers branch with errors.Is/errors.As; no error escapes the public
  contracts undeclared.

ERROR CATEGORIES:
  1. Ledger errors - duplicate and rejected payments
  2. Directory errors - invalid payer records
  3. Store errors - persistence-level failures

NOTE:
  A duplicate payment and an unmatched candidate are NOT errors from
  the driver's point of view; they are enumerated outcomes. The
  sentinels here exist so stores and the ledger can communicate
  precisely.
*/
package recon

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicatePayment is returned by stores when an entry with the
	// same dedup key already exists. Expected behavior for re-observed
	// notifications; the ledger converts it into a Duplicate result.
	ErrDuplicatePayment = errors.New("duplicate payment")

	// ErrUnknownPayer is returned when a payment references a payer id
	// absent from the directory.
	ErrUnknownPayer = errors.New("unknown payer")

	// ErrNonPositiveAmount is returned when a payment amount is zero or
	// negative.
	ErrNonPositiveAmount = errors.New("non-positive amount")

	// ErrInvalidPayer is returned when a directory record violates the
	// payer invariants.
	ErrInvalidPayer = errors.New("invalid payer record")

	// ErrStoreUnavailable wraps persistence failures. The read side
	// reports unavailability rather than pretending a zero balance.
	ErrStoreUnavailable = errors.New("payment store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RejectionError explains why a payment could not be recorded.
// Rejections are data-integrity failures: retrying with the same input
// reproduces the same rejection.
type RejectionError struct {
	PayerID PayerID
	Amount  decimal.Decimal
	Cause   error // ErrUnknownPayer or ErrNonPositiveAmount
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("payment rejected for payer %q (amount %s): %v",
		e.PayerID, e.Amount, e.Cause)
}

func (e *RejectionError) Unwrap() error { return e.Cause }

// IsRejection reports whether err represents a rejected payment.
func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}
