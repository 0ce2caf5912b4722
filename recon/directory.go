/*
directory.go - Queryable index of known payers

PURPOSE:
  The Directory is an immutable snapshot of payer records, indexed for
  the three lookups the matcher needs: exact UPI, phone substring, and
  exact expected amount. It is read-only during matching.

SNAPSHOT SWAP:
  Reloading the directory must not race with in-flight matches, so the
  mutable part lives in DirectoryHandle: reloads build a complete new
  Directory and swap it in atomically. Matches always run against one
  consistent snapshot.

TIE-BREAKING:
  Every lookup returns its candidates sorted by payer id, so "first
  entry" downstream is a deterministic, documented tie-break instead of
  storage iteration order.
*/
package recon

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DIRECTORY - Immutable snapshot
// =============================================================================

// Directory is an immutable, queryable index of payer records. Build
// one with NewDirectory; never mutate it afterwards.
type Directory struct {
	payers []Payer // sorted by id
	byID   map[PayerID]int
	byUPI  map[string][]int
}

// NewDirectory builds a snapshot from the given records. The slice is
// copied; callers may reuse theirs. Records are sorted by payer id to
// make lookup order deterministic.
func NewDirectory(payers []Payer) *Directory {
	sorted := make([]Payer, len(payers))
	copy(sorted, payers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	d := &Directory{
		payers: sorted,
		byID:   make(map[PayerID]int, len(sorted)),
		byUPI:  make(map[string][]int, len(sorted)),
	}
	for i, p := range sorted {
		d.byID[p.ID] = i
		if p.UPI != "" {
			key := strings.ToLower(p.UPI)
			d.byUPI[key] = append(d.byUPI[key], i)
		}
	}
	return d
}

// Payer returns the record for the given id.
func (d *Directory) Payer(id PayerID) (Payer, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Payer{}, false
	}
	return d.payers[i], true
}

// All returns every payer, sorted by id.
func (d *Directory) All() []Payer {
	out := make([]Payer, len(d.payers))
	copy(out, d.payers)
	return out
}

// Len returns the number of payers in the snapshot.
func (d *Directory) Len() int { return len(d.payers) }

// ByUPI returns payers whose UPI handle equals the given handle,
// case-insensitively. The directory is expected to enforce UPI
// uniqueness upstream, so more than one result is unusual but not an
// error.
func (d *Directory) ByUPI(handle string) []Payer {
	idx := d.byUPI[strings.ToLower(handle)]
	out := make([]Payer, 0, len(idx))
	for _, i := range idx {
		out = append(out, d.payers[i])
	}
	return out
}

// ByPhoneContains returns payers whose stored phone contains the given
// digit sequence as a substring. Substring matching tolerates stored
// numbers that kept a country-code prefix.
func (d *Directory) ByPhoneContains(phone string) []Payer {
	if phone == "" {
		return nil
	}
	var out []Payer
	for _, p := range d.payers {
		if p.Phone != "" && strings.Contains(p.Phone, phone) {
			out = append(out, p)
		}
	}
	return out
}

// ByExpectedAmount returns payers whose expected amount equals the
// given amount exactly.
func (d *Directory) ByExpectedAmount(amount decimal.Decimal) []Payer {
	var out []Payer
	for _, p := range d.payers {
		if p.ExpectedAmount.Equal(amount) {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// DIRECTORY HANDLE - Atomic snapshot swap
// =============================================================================

// DirectoryHandle holds the current directory snapshot and supports
// atomic replacement on reload. Reads never block on a reload; they
// see either the old snapshot or the new one, never a mix.
type DirectoryHandle struct {
	mu   sync.RWMutex
	snap *Directory
}

// NewDirectoryHandle creates a handle with an initial snapshot.
func NewDirectoryHandle(initial *Directory) *DirectoryHandle {
	if initial == nil {
		initial = NewDirectory(nil)
	}
	return &DirectoryHandle{snap: initial}
}

// Snapshot returns the current directory. The result is immutable and
// safe to use for the full duration of a reconciliation.
func (h *DirectoryHandle) Snapshot() *Directory {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

// Swap replaces the current snapshot. Invalid records are rejected
// before anything is replaced, so a failed reload leaves the previous
// snapshot serving.
func (h *DirectoryHandle) Swap(payers []Payer) error {
	for _, p := range payers {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	next := NewDirectory(payers)

	h.mu.Lock()
	h.snap = next
	h.mu.Unlock()
	return nil
}

// Payer resolves a payer id against the current snapshot. Satisfies
// the ledger's PayerResolver.
func (h *DirectoryHandle) Payer(id PayerID) (Payer, bool) {
	return h.Snapshot().Payer(id)
}
