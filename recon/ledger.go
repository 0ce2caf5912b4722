/*
ledger.go - Append-only payment ledger

PURPOSE:
  The Ledger is the immutable source of truth for recorded payments.
  Balances are always computed by replaying entries - there is no
  stored "balance" field that can drift out of sync.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, payments cannot be modified
  3. IDEMPOTENT: Same dedup key = same payment (no double credit)

DUPLICATE DETECTION:
  When the source supplied a reference code, the dedup key is
  (payer, reference). When it did not, the key falls back to
  (payer, amount, calendar day) - a heuristic that stops a re-polled
  notification from crediting twice while still letting genuinely
  distinct same-day same-amount payments be entered manually with an
  explicit override.

CONCURRENCY:
  Writes for different payers proceed without contention; writes that
  could collide on the same payer are serialized by a per-payer lock.
  The store's unique constraint on the dedup key is the final guard.
*/
package recon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

type RecordStatus string

const (
	StatusRecorded  RecordStatus = "recorded"
	StatusDuplicate RecordStatus = "duplicate"
	StatusRejected  RecordStatus = "rejected"
)

// RecordResult enumerates the outcome of one recording attempt.
// Duplicate is reported distinctly from Recorded so callers can
// suppress repeat notifications without suppressing the underlying
// payment's existence.
type RecordResult struct {
	Status  RecordStatus
	Payment *Payment        // set when Status == StatusRecorded
	Reject  *RejectionError // set when Status == StatusRejected
}

// RecordRequest describes one payment to record.
type RecordRequest struct {
	PayerID       PayerID
	Amount        decimal.Decimal
	ReferenceCode string
	At            time.Time // zero means now
	Source        PaymentSource

	// Override bypasses the same-day heuristic for reference-less
	// entries, for operators recording a second genuine same-day
	// same-amount payment.
	Override bool
}

// PayerResolver answers whether a payer id is known. Satisfied by
// *DirectoryHandle.
type PayerResolver interface {
	Payer(id PayerID) (Payer, bool)
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger records payments and derives balances. Construct with
// NewLedger; the storage handle is injected, never opened per
// operation.
type Ledger struct {
	store  PaymentStore
	payers PayerResolver
	now    func() time.Time

	mu    sync.Mutex
	locks map[PayerID]*sync.Mutex
}

func NewLedger(store PaymentStore, payers PayerResolver) *Ledger {
	return &Ledger{
		store:  store,
		payers: payers,
		now:    time.Now,
		locks:  make(map[PayerID]*sync.Mutex),
	}
}

// WithClock overrides the ledger's time source. For tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// payerLock returns the mutex serializing writes for one payer.
func (l *Ledger) payerLock(id PayerID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// RecordPayment appends a payment unless it is a duplicate or invalid.
// The returned error is non-nil only for storage failures; duplicates
// and rejections are enumerated in the result.
func (l *Ledger) RecordPayment(ctx context.Context, req RecordRequest) (RecordResult, error) {
	if !req.Amount.IsPositive() {
		return rejected(req, ErrNonPositiveAmount), nil
	}
	if _, ok := l.payers.Payer(req.PayerID); !ok {
		return rejected(req, ErrUnknownPayer), nil
	}

	at := req.At
	if at.IsZero() {
		at = l.now()
	}
	key := dedupKey(req, at)

	lock := l.payerLock(req.PayerID)
	lock.Lock()
	defer lock.Unlock()

	exists, err := l.store.ExistsKey(ctx, key)
	if err != nil {
		return RecordResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if exists {
		return RecordResult{Status: StatusDuplicate}, nil
	}

	p := Payment{
		ID:            PaymentID(uuid.NewString()),
		PayerID:       req.PayerID,
		Amount:        req.Amount,
		ReferenceCode: req.ReferenceCode,
		DedupKey:      key,
		Source:        req.Source,
		RecordedAt:    at,
	}
	if err := l.store.Append(ctx, p); err != nil {
		// Lost a race with a concurrent writer holding the same key:
		// the unique constraint is the final arbiter.
		if errors.Is(err, ErrDuplicatePayment) {
			return RecordResult{Status: StatusDuplicate}, nil
		}
		return RecordResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return RecordResult{Status: StatusRecorded, Payment: &p}, nil
}

// BalanceFor recomputes the balance projection for one payer. Pure
// read; nothing is cached.
func (l *Ledger) BalanceFor(ctx context.Context, payerID PayerID) (Balance, error) {
	payer, ok := l.payers.Payer(payerID)
	if !ok {
		return Balance{}, fmt.Errorf("balance for %q: %w", payerID, ErrUnknownPayer)
	}

	total, err := l.store.SumByPayer(ctx, payerID)
	if err != nil {
		return Balance{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	due := payer.ExpectedAmount.Sub(total)
	overdue := 0
	if due.IsPositive() {
		overdue = daysSince(payer.EnrolledAt, l.now())
	}
	return Balance{
		PayerID:        payerID,
		ExpectedAmount: payer.ExpectedAmount,
		TotalPaid:      total,
		DueAmount:      due,
		OverdueDays:    overdue,
	}, nil
}

// History returns the payer's payments, most recent first.
func (l *Ledger) History(ctx context.Context, payerID PayerID) ([]Payment, error) {
	payments, err := l.store.ListByPayer(ctx, payerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return payments, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// dedupKey builds the idempotency key for a recording attempt.
// With a reference: payer|ref. Without: payer|amount|UTC day, unless
// the caller overrides, in which case a unique key is generated so the
// entry always lands. Payer ids are barred from containing the
// separator by Payer.Validate; reference codes are free-form operator
// input and get escaped here.
func dedupKey(req RecordRequest, at time.Time) string {
	if req.ReferenceCode != "" {
		return fmt.Sprintf("%s|%s", req.PayerID, escapeKeyPart(req.ReferenceCode))
	}
	if req.Override {
		return fmt.Sprintf("%s|manual|%s", req.PayerID, uuid.NewString())
	}
	return fmt.Sprintf("%s|%s|%s", req.PayerID, req.Amount.String(), at.UTC().Format("2006-01-02"))
}

// escapeKeyPart percent-escapes the dedup-key separator so a reference
// code containing "|" cannot alias another key.
func escapeKeyPart(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, "|", "%7C")
}

func rejected(req RecordRequest, cause error) RecordResult {
	return RecordResult{
		Status: StatusRejected,
		Reject: &RejectionError{PayerID: req.PayerID, Amount: req.Amount, Cause: cause},
	}
}

func daysSince(from, now time.Time) int {
	d := int(now.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
