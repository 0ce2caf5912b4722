/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements recon.PaymentStore plus payer-record persistence using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The payments table is append-only:
  - No UPDATE statements on payments
  - No DELETE statements on payments
  - Corrections via new compensating entries only

KEY TABLES:
  payments: Immutable ledger of recorded payments
  payers:   Directory records (loaded/reloaded by the xlsx loader)

INDEXES:
  idx_payments_dedup:  UNIQUE on dedup_key - storage-level idempotency
                       guard, the final arbiter when two observations
                       of the same notification race
  idx_payments_payer:  (payer_id, recorded_at DESC) - balance sums and
                       history scans (hot path)

DECIMALS:
  Amounts are stored as TEXT and summed in Go with shopspring/decimal.
  SQLite's SUM() would coerce to float and lose monetary precision.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: readers don't block, single writer at a time.

USAGE:
  st, err := sqlite.New("./data/reconcile.db")
  if err != nil { ... }
  defer st.Close()
  ledger := recon.NewLedger(st, handle)

SEE ALSO:
  - recon/store.go: Interface definition
  - recon/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ledgerline/reconcile-engine/recon"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store implements recon.PaymentStore and payer persistence on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Payments (append-only ledger)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		payer_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		reference_code TEXT,
		dedup_key TEXT NOT NULL,
		source TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: storage-level idempotency guard. Two simultaneous
	-- observations of the same notification cannot both insert.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_dedup
		ON payments(dedup_key);

	CREATE INDEX IF NOT EXISTS idx_payments_payer
		ON payments(payer_id, recorded_at DESC);

	-- Payer directory records
	CREATE TABLE IF NOT EXISTS payers (
		payer_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		upi_id TEXT,
		email TEXT,
		address TEXT,
		expected_amount TEXT NOT NULL,
		enrolled_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payers_upi ON payers(upi_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PAYMENT STORE (recon.PaymentStore interface)
// =============================================================================

// Append adds a payment to the ledger.
func (s *Store) Append(ctx context.Context, p recon.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments
		(id, payer_id, amount, reference_code, dedup_key, source, recorded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.PayerID,
		p.Amount.String(),
		nullString(p.ReferenceCode),
		p.DedupKey,
		p.Source,
		p.RecordedAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return recon.ErrDuplicatePayment
		}
		return fmt.Errorf("failed to append payment: %w", err)
	}

	return nil
}

// ExistsKey checks whether a dedup key is already recorded.
func (s *Store) ExistsKey(ctx context.Context, dedupKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE dedup_key = ?",
		dedupKey,
	).Scan(&count)

	return count > 0, err
}

// SumByPayer returns the total recorded amount for one payer. Amounts
// are folded as decimals in Go; SQL SUM() on the TEXT column would go
// through float.
func (s *Store) SumByPayer(ctx context.Context, payerID recon.PayerID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT amount FROM payments WHERE payer_id = ?", payerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt amount %q: %w", raw, err)
		}
		total = total.Add(v)
	}
	return total, rows.Err()
}

// ListByPayer returns the payer's payments, most recent first.
func (s *Store) ListByPayer(ctx context.Context, payerID recon.PayerID) ([]recon.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, payer_id, amount, reference_code, dedup_key, source, recorded_at
		FROM payments
		WHERE payer_id = ?
		ORDER BY recorded_at DESC, created_at DESC
	`

	return s.queryPayments(ctx, query, payerID)
}

// ListAll returns every payment, most recent first.
func (s *Store) ListAll(ctx context.Context) ([]recon.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, payer_id, amount, reference_code, dedup_key, source, recorded_at
		FROM payments
		ORDER BY recorded_at DESC, created_at DESC
	`

	return s.queryPayments(ctx, query)
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]recon.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []recon.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

func scanPayment(rows *sql.Rows) (recon.Payment, error) {
	var (
		p          recon.Payment
		amount     string
		reference  sql.NullString
		recordedAt string
	)

	err := rows.Scan(&p.ID, &p.PayerID, &amount, &reference, &p.DedupKey, &p.Source, &recordedAt)
	if err != nil {
		return p, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return p, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	p.ReferenceCode = reference.String
	p.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
	if err != nil {
		return p, fmt.Errorf("corrupt recorded_at %q: %w", recordedAt, err)
	}

	return p, nil
}

// =============================================================================
// PAYER STORE
// =============================================================================

// SavePayer upserts a directory record. Payer records are external
// directory data, not ledger entries, so replacement is allowed here.
func (s *Store) SavePayer(ctx context.Context, p recon.Payer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payers
		(payer_id, name, phone, upi_id, email, address, expected_amount, enrolled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(payer_id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			upi_id = excluded.upi_id,
			email = excluded.email,
			address = excluded.address,
			expected_amount = excluded.expected_amount,
			enrolled_at = excluded.enrolled_at
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Phone, p.UPI, p.Email, p.Address,
		p.ExpectedAmount.String(),
		p.EnrolledAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListPayers returns all directory records ordered by payer id.
func (s *Store) ListPayers(ctx context.Context) ([]recon.Payer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT payer_id, name, phone, upi_id, email, address, expected_amount, enrolled_at
		FROM payers
		ORDER BY payer_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payers []recon.Payer
	for rows.Next() {
		var (
			p          recon.Payer
			phone      sql.NullString
			upi        sql.NullString
			email      sql.NullString
			address    sql.NullString
			amount     string
			enrolledAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &phone, &upi, &email, &address, &amount, &enrolledAt); err != nil {
			return nil, err
		}
		p.Phone = phone.String
		p.UPI = upi.String
		p.Email = email.String
		p.Address = address.String
		p.ExpectedAmount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt expected amount %q: %w", amount, err)
		}
		p.EnrolledAt, err = time.Parse(time.RFC3339, enrolledAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt enrolled_at %q: %w", enrolledAt, err)
		}
		payers = append(payers, p)
	}
	return payers, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
