/*
Package recon provides the core payment reconciliation engine.

PURPOSE:
  This package contains the types and algorithms for reconciling raw
  payment-notification text against a directory of known payers:
  structured-field extraction, priority-ordered matching, and an
  append-only payment ledger with derived balances.

KEY CONCEPTS IN THIS FILE (types.go):
  - Payer: A known party expected to make recurring payments
  - Candidate: Structured fields extracted from one notification body
  - Payment: An immutable ledger entry crediting a payer
  - Balance: A derived projection (total paid, due, overdue days)

DESIGN PRINCIPLES:
  1. Immutability: Payments are never modified; corrections are new
     compensating entries
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing payer/payment IDs
  4. Explicit absence: A missing extracted field is represented, never
     signaled as an error

SEE ALSO:
  - extract.go: Notification text parsing
  - match.go: Candidate-to-payer resolution
  - ledger.go: Payment recording and balance projection
*/
package recon

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PayerID string
type PaymentID string

// =============================================================================
// PAYER - A party expected to pay a known recurring amount
// =============================================================================

// Payer is an entry in the payer directory. Records are created by an
// external loader before a reconciliation cycle begins and are treated
// as immutable for the duration of the cycle.
type Payer struct {
	ID             PayerID
	Name           string
	Phone          string // digits only, normalized by the loader
	UPI            string // lowercase, normalized by the loader
	Email          string
	Address        string
	ExpectedAmount decimal.Decimal // must be positive
	EnrolledAt     time.Time
}

// Validate enforces the directory invariants on a single record.
func (p Payer) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("payer: %w: empty payer id", ErrInvalidPayer)
	}
	// "|" is the dedup-key separator; an id containing it could alias
	// another payer's keys.
	if strings.ContainsRune(string(p.ID), '|') {
		return fmt.Errorf("payer %s: %w: id must not contain '|'", p.ID, ErrInvalidPayer)
	}
	if p.Name == "" {
		return fmt.Errorf("payer %s: %w: empty name", p.ID, ErrInvalidPayer)
	}
	if !p.ExpectedAmount.IsPositive() {
		return fmt.Errorf("payer %s: %w: expected amount must be positive, got %s",
			p.ID, ErrInvalidPayer, p.ExpectedAmount)
	}
	if p.EnrolledAt.IsZero() {
		return fmt.Errorf("payer %s: %w: missing enrollment date", p.ID, ErrInvalidPayer)
	}
	return nil
}

// =============================================================================
// CANDIDATE - Fields extracted from one notification body (ephemeral)
// =============================================================================

// Candidate is the structured result of extracting fields from a raw
// notification text, before any payer is attached. Absent fields are
// zero values: extraction never fails.
type Candidate struct {
	UPI           string          // lowercase, "" when absent
	Phone         string          // 10 digits, "" when absent
	Amount        decimal.Decimal // zero when no positive monetary token was found
	ReferenceCode string          // "" when absent
	Raw           string          // source text truncated for audit
}

// HasAmount reports whether a monetary amount was extracted. Only
// positive values survive extraction, so presence and positivity
// coincide.
func (c Candidate) HasAmount() bool { return c.Amount.IsPositive() }

// =============================================================================
// PAYMENT - Immutable ledger entry
// =============================================================================

type PaymentSource string

const (
	// SourceNotification marks payments recorded by the reconciliation
	// driver from a matched notification.
	SourceNotification PaymentSource = "matched-notification"

	// SourceManual marks payments entered directly by an operator.
	SourceManual PaymentSource = "manual"
)

// Payment is an append-only ledger entry. Once persisted it is never
// updated or deleted; corrections are new compensating entries.
type Payment struct {
	ID            PaymentID
	PayerID       PayerID
	Amount        decimal.Decimal // positive
	ReferenceCode string          // "" when the source supplied none
	DedupKey      string          // idempotency key, unique per ledger
	Source        PaymentSource
	RecordedAt    time.Time
}

// =============================================================================
// BALANCE - Derived projection, recomputed on every query
// =============================================================================

// Balance is a read-time projection over the ledger for one payer.
// It is never stored: total paid is the sum of all recorded payments,
// due is expected minus paid, and overdue days count from enrollment
// while any amount remains due.
//
// NOTE: the due amount is lifetime-cumulative against a single lump
// expected amount; there is no per-period bucketing. This mirrors the
// observed contract of the system being replaced.
type Balance struct {
	PayerID        PayerID
	ExpectedAmount decimal.Decimal
	TotalPaid      decimal.Decimal
	DueAmount      decimal.Decimal
	OverdueDays    int
}

// Settled reports whether the payer has no outstanding due amount.
func (b Balance) Settled() bool { return !b.DueAmount.IsPositive() }
