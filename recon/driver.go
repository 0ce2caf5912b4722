/*
driver.go - Reconciliation driver

PURPOSE:
  Runs one notification body through Extract -> Match -> RecordPayment
  and classifies the outcome. This is the only entry point external
  collaborators call into.

OUTCOME TAXONOMY:
  Matched(payer, result) - a payer resolved; the ledger's Recorded/
                           Duplicate/Rejected result is passed through
                           unchanged.
  Unmatched(candidate)   - no payer resolved. This is an EXPECTED
                           outcome, not an error: the candidate is
                           carried for audit and manual review.

EVENTS:
  For each Recorded payment the driver emits a RecordedEvent; for each
  unmatched candidate it emits the candidate. Invoice/notification
  collaborators subscribe via EventSink; the driver itself produces no
  documents and sends no mail.
*/
package recon

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// OUTCOME
// =============================================================================

type OutcomeStatus string

const (
	OutcomeMatched   OutcomeStatus = "matched"
	OutcomeUnmatched OutcomeStatus = "unmatched"
)

// Outcome is the result of reconciling one notification body.
type Outcome struct {
	Status    OutcomeStatus
	PayerID   PayerID      // set when matched
	Result    RecordResult // set when matched
	Candidate Candidate    // always set, carried for audit
}

// =============================================================================
// EVENTS
// =============================================================================

// RecordedEvent is emitted for every successfully recorded payment.
type RecordedEvent struct {
	PayerID       PayerID
	Amount        decimal.Decimal
	ReferenceCode string
	RecordedAt    time.Time
}

// EventSink receives reconciliation events. Implementations must not
// block; slow consumers should buffer on their side.
type EventSink interface {
	PaymentRecorded(RecordedEvent)
	CandidateUnmatched(Candidate)
}

// =============================================================================
// DRIVER
// =============================================================================

// Driver wires the extractor, matcher, and ledger together.
type Driver struct {
	dir    *DirectoryHandle
	ledger *Ledger
	sinks  []EventSink
	log    *logrus.Logger
}

func NewDriver(dir *DirectoryHandle, ledger *Ledger, log *logrus.Logger) *Driver {
	if log == nil {
		log = logrus.New()
	}
	return &Driver{dir: dir, ledger: ledger, log: log}
}

// Subscribe registers a sink for reconciliation events. Not safe to
// call concurrently with Reconcile; register sinks during wiring.
func (d *Driver) Subscribe(sink EventSink) {
	d.sinks = append(d.sinks, sink)
}

// Reconcile processes one raw notification body. The error is non-nil
// only when the ledger's storage fails; unmatched and duplicate are
// ordinary outcomes. Processing one notification never mutates state
// for any payer other than the matched one.
func (d *Driver) Reconcile(ctx context.Context, text string) (Outcome, error) {
	candidate := Extract(text)

	// The whole reconciliation runs against one directory snapshot;
	// a concurrent reload cannot split the match from the record.
	snap := d.dir.Snapshot()

	payer, ok := Match(candidate, snap)
	if !ok {
		d.log.WithFields(logrus.Fields{
			"upi":    candidate.UPI,
			"phone":  candidate.Phone,
			"amount": candidate.Amount,
		}).Info("unmatched notification")
		for _, s := range d.sinks {
			s.CandidateUnmatched(candidate)
		}
		return Outcome{Status: OutcomeUnmatched, Candidate: candidate}, nil
	}

	result, err := d.ledger.RecordPayment(ctx, RecordRequest{
		PayerID:       payer.ID,
		Amount:        candidate.Amount,
		ReferenceCode: candidate.ReferenceCode,
		Source:        SourceNotification,
	})
	if err != nil {
		return Outcome{}, err
	}

	switch result.Status {
	case StatusRecorded:
		d.log.WithFields(logrus.Fields{
			"payer":  payer.ID,
			"amount": result.Payment.Amount,
			"ref":    result.Payment.ReferenceCode,
		}).Info("payment recorded")
		for _, s := range d.sinks {
			s.PaymentRecorded(RecordedEvent{
				PayerID:       payer.ID,
				Amount:        result.Payment.Amount,
				ReferenceCode: result.Payment.ReferenceCode,
				RecordedAt:    result.Payment.RecordedAt,
			})
		}
	case StatusDuplicate:
		d.log.WithField("payer", payer.ID).Debug("duplicate notification ignored")
	case StatusRejected:
		d.log.WithField("payer", payer.ID).WithError(result.Reject).Warn("payment rejected")
	}

	return Outcome{
		Status:    OutcomeMatched,
		PayerID:   payer.ID,
		Result:    result,
		Candidate: candidate,
	}, nil
}

// =============================================================================
// SUMMARY - Per-payer rollup across the directory
// =============================================================================

// PayerStatus is one row of the payer summary: the directory record
// joined with its balance projection.
type PayerStatus struct {
	Payer   Payer
	Balance Balance
}

// Summary recomputes the balance projection for every payer in the
// current snapshot, sorted by payer id.
func (d *Driver) Summary(ctx context.Context) ([]PayerStatus, error) {
	snap := d.dir.Snapshot()
	out := make([]PayerStatus, 0, snap.Len())
	for _, p := range snap.All() {
		b, err := d.ledger.BalanceFor(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, PayerStatus{Payer: p, Balance: b})
	}
	return out, nil
}
