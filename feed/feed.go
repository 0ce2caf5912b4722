/*
Package feed abstracts the inbound notification source.

PURPOSE:
  The reconciliation core only consumes raw text bodies. This package
  is the boundary to whatever produces them - a mail poller, a webhook
  buffer, or a directory of dropped files. Sources yield each message
  at most once.

TRUST:
  Upstream filtering is expected to restrict the source to a known-good
  set of senders. TrustFilter mirrors that gate for sources that carry
  sender metadata; the reconciliation driver itself stays
  source-agnostic.
*/
package feed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Message is one inbound notification.
type Message struct {
	Sender string // "" when the source carries no sender metadata
	Body   string
}

// Source yields new notification bodies. Fetch returns only messages
// not returned before; an empty slice means nothing new.
type Source interface {
	Fetch(ctx context.Context) ([]Message, error)
}

// =============================================================================
// TRUSTED SENDER FILTER
// =============================================================================

// DefaultTrustedSenders are the bank / UPI platform senders accepted
// out of the box.
var DefaultTrustedSenders = []string{
	"upi@phonepe.com", "noreply@paytm.com", "noreply@googlepay.com",
	"noreply@sbi.co.in", "noreply@icicibank.com", "noreply@hdfcbank.com",
}

// TrustFilter drops messages whose sender matches none of the trusted
// senders. Messages without sender metadata pass through: sources that
// cannot attribute a sender are expected to be trusted as a whole.
func TrustFilter(msgs []Message, trusted []string) []Message {
	if len(trusted) == 0 {
		return msgs
	}
	var out []Message
	for _, m := range msgs {
		if m.Sender == "" || isTrusted(m.Sender, trusted) {
			out = append(out, m)
		}
	}
	return out
}

func isTrusted(sender string, trusted []string) bool {
	sender = strings.ToLower(sender)
	for _, t := range trusted {
		if strings.Contains(sender, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// =============================================================================
// STATIC SOURCE - Fixed messages, consumed once (tests/dev)
// =============================================================================

type StaticSource struct {
	mu    sync.Mutex
	msgs  []Message
	drain bool
}

func NewStaticSource(msgs ...Message) *StaticSource {
	return &StaticSource{msgs: msgs}
}

// Push appends messages for the next Fetch.
func (s *StaticSource) Push(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drain {
		s.msgs = append(s.msgs[:0], msgs...)
		s.drain = false
		return
	}
	s.msgs = append(s.msgs, msgs...)
}

func (s *StaticSource) Fetch(_ context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drain {
		return nil, nil
	}
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	s.drain = true
	return out, nil
}

// =============================================================================
// DIR SOURCE - Notification bodies dropped as files into a directory
// =============================================================================

// DirSource reads *.txt files from a directory, each file one
// notification body. Files already seen are skipped, so repeated
// fetches are safe; duplicate protection for re-dropped content is the
// ledger's job.
type DirSource struct {
	dir string

	mu   sync.Mutex
	seen map[string]bool
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir, seen: make(map[string]bool)}
}

func (d *DirSource) Fetch(ctx context.Context) ([]Message, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed directory: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Message
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".txt") || d.seen[name] {
			continue
		}
		body, err := os.ReadFile(filepath.Join(d.dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		d.seen[name] = true
		out = append(out, Message{Body: string(body)})
	}
	return out, nil
}
