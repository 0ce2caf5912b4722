// Package store provides PaymentStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ledgerline/reconcile-engine/recon"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	payments map[recon.PayerID][]recon.Payment
	keys     map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		payments: make(map[recon.PayerID][]recon.Payment),
		keys:     make(map[string]bool),
	}
}

// Append adds a single payment. Append-only.
func (m *Memory) Append(_ context.Context, p recon.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.DedupKey != "" && m.keys[p.DedupKey] {
		return recon.ErrDuplicatePayment
	}

	// Keep each payer's slice ordered most recent first.
	list := m.payments[p.PayerID]
	i := sort.Search(len(list), func(i int) bool {
		return list[i].RecordedAt.Before(p.RecordedAt)
	})
	list = append(list, recon.Payment{})
	copy(list[i+1:], list[i:])
	list[i] = p
	m.payments[p.PayerID] = list

	if p.DedupKey != "" {
		m.keys[p.DedupKey] = true
	}
	return nil
}

func (m *Memory) ExistsKey(_ context.Context, dedupKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keys[dedupKey], nil
}

func (m *Memory) SumByPayer(_ context.Context, payerID recon.PayerID) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, p := range m.payments[payerID] {
		total = total.Add(p.Amount)
	}
	return total, nil
}

func (m *Memory) ListByPayer(_ context.Context, payerID recon.PayerID) ([]recon.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]recon.Payment, len(m.payments[payerID]))
	copy(out, m.payments[payerID])
	return out, nil
}

func (m *Memory) ListAll(_ context.Context) ([]recon.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []recon.Payment
	for _, list := range m.payments {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	return out, nil
}
