/*
store.go - Persistence interface for the payment ledger

PURPOSE:
  Defines the interface between the ledger and its storage. The store
  maintains append-only semantics: there is no Update and no Delete.

APPEND-ONLY CONTRACT:
  - Append(): the ONLY write operation
  - Insert-if-absent on the dedup key; a second append with the same
    key fails with ErrDuplicatePayment

IMPLEMENTATIONS:
  - store/sqlite:    production store, unique index on dedup_key
  - recon/store:     in-memory store for testing and dev

SEE ALSO:
  - ledger.go: Higher-level recording and projection logic
*/
package recon

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentStore handles persistence of ledger entries.
// IMPORTANT: the store is APPEND-ONLY. No Update, No Delete. Ever.
type PaymentStore interface {
	// Append persists a payment. Returns ErrDuplicatePayment when an
	// entry with the same dedup key already exists.
	Append(ctx context.Context, p Payment) error

	// ExistsKey checks whether a dedup key is already recorded.
	ExistsKey(ctx context.Context, dedupKey string) (bool, error)

	// SumByPayer returns the total recorded amount for one payer.
	SumByPayer(ctx context.Context, payerID PayerID) (decimal.Decimal, error)

	// ListByPayer returns the payer's payments, most recent first.
	ListByPayer(ctx context.Context, payerID PayerID) ([]Payment, error)

	// ListAll returns every payment, most recent first.
	ListAll(ctx context.Context) ([]Payment, error)
}
