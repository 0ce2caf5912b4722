package recon_test

import (
	"context"
	"testing"

	"github.com/ledgerline/reconcile-engine/recon"
	"github.com/ledgerline/reconcile-engine/recon/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestDriver(t *testing.T, payers ...recon.Payer) (*recon.Driver, *recon.Ledger, *recon.DirectoryHandle) {
	t.Helper()
	handle := recon.NewDirectoryHandle(recon.NewDirectory(payers))
	ledger := recon.NewLedger(store.NewMemory(), handle)
	driver := recon.NewDriver(handle, ledger, nil)
	return driver, ledger, handle
}

// testSink collects reconciliation events.
type testSink struct {
	recorded  []recon.RecordedEvent
	unmatched []recon.Candidate
}

func (s *testSink) PaymentRecorded(e recon.RecordedEvent) { s.recorded = append(s.recorded, e) }
func (s *testSink) CandidateUnmatched(c recon.Candidate) { s.unmatched = append(s.unmatched, c) }

// =============================================================================
// END-TO-END RECONCILIATION TESTS
// =============================================================================

func TestDriver_Reconcile_MatchedAndRecorded(t *testing.T) {
	// GIVEN: A directory with one payer known by UPI handle
	// WHEN: Reconciling a notification carrying that handle
	// THEN: The payment is recorded against the payer with the
	//       notification's reference code

	driver, ledger, _ := newTestDriver(t, testPayer("P1", "9876543210", "tenant@upi", 5000))
	ctx := context.Background()

	outcome, err := driver.Reconcile(ctx,
		"Rs 5000 credited to your account via UPI from tenant@upi, UTR: REF123")
	require.NoError(t, err)

	assert.Equal(t, recon.OutcomeMatched, outcome.Status)
	assert.Equal(t, recon.PayerID("P1"), outcome.PayerID)
	assert.Equal(t, recon.StatusRecorded, outcome.Result.Status)
	require.NotNil(t, outcome.Result.Payment)
	assert.Equal(t, "REF123", outcome.Result.Payment.ReferenceCode)
	assert.Equal(t, recon.SourceNotification, outcome.Result.Payment.Source)

	balance, err := ledger.BalanceFor(ctx, "P1")
	require.NoError(t, err)
	assert.True(t, balance.Settled())
}

func TestDriver_Reconcile_RepeatedNotification_Duplicate(t *testing.T) {
	// GIVEN: A notification already reconciled
	// WHEN: The identical body is reconciled again
	// THEN: The outcome is matched/duplicate and the ledger is unchanged

	driver, ledger, _ := newTestDriver(t, testPayer("P1", "", "tenant@upi", 5000))
	ctx := context.Background()
	body := "Rs 5000 credited via UPI from tenant@upi, UTR: REF123"

	first, err := driver.Reconcile(ctx, body)
	require.NoError(t, err)
	require.Equal(t, recon.StatusRecorded, first.Result.Status)

	second, err := driver.Reconcile(ctx, body)
	require.NoError(t, err)

	assert.Equal(t, recon.OutcomeMatched, second.Status)
	assert.Equal(t, recon.StatusDuplicate, second.Result.Status)

	balance, err := ledger.BalanceFor(ctx, "P1")
	require.NoError(t, err)
	assert.True(t, balance.TotalPaid.Equal(decimal.NewFromInt(5000)), "got %s", balance.TotalPaid)
}

func TestDriver_Reconcile_Unmatched_CandidateCarriedForAudit(t *testing.T) {
	// GIVEN: A notification no directory signal resolves
	// WHEN: Reconciling
	// THEN: The outcome is unmatched, no error, candidate retained

	driver, _, _ := newTestDriver(t, testPayer("P1", "", "tenant@upi", 5000))

	outcome, err := driver.Reconcile(context.Background(),
		"Rs 750 credited via UPI from stranger@okaxis")
	require.NoError(t, err)

	assert.Equal(t, recon.OutcomeUnmatched, outcome.Status)
	assert.Equal(t, "stranger@okaxis", outcome.Candidate.UPI)
	assert.True(t, outcome.Candidate.Amount.Equal(decimal.NewFromInt(750)))
}

func TestDriver_Reconcile_NoMoneyInBody_Rejected(t *testing.T) {
	// A matched notification without a positive amount is rejected by
	// the ledger, not silently recorded as zero.

	driver, _, _ := newTestDriver(t, testPayer("P1", "", "tenant@upi", 5000))

	outcome, err := driver.Reconcile(context.Background(),
		"payment received from tenant@upi, thank you")
	require.NoError(t, err)

	assert.Equal(t, recon.OutcomeMatched, outcome.Status)
	assert.Equal(t, recon.StatusRejected, outcome.Result.Status)
	require.NotNil(t, outcome.Result.Reject)
	assert.ErrorIs(t, outcome.Result.Reject, recon.ErrNonPositiveAmount)
}

// =============================================================================
// EVENT TESTS
// =============================================================================

func TestDriver_Events_RecordedAndUnmatched(t *testing.T) {
	driver, _, _ := newTestDriver(t, testPayer("P1", "", "tenant@upi", 5000))
	sink := &testSink{}
	driver.Subscribe(sink)
	ctx := context.Background()

	_, err := driver.Reconcile(ctx, "Rs 5000 credited from tenant@upi, UTR: REF123")
	require.NoError(t, err)
	_, err = driver.Reconcile(ctx, "Rs 5000 credited from tenant@upi, UTR: REF123")
	require.NoError(t, err)
	_, err = driver.Reconcile(ctx, "Rs 300 credited from stranger@okaxis")
	require.NoError(t, err)

	// One recorded event (the duplicate emits nothing), one unmatched.
	require.Len(t, sink.recorded, 1)
	assert.Equal(t, recon.PayerID("P1"), sink.recorded[0].PayerID)
	assert.Equal(t, "REF123", sink.recorded[0].ReferenceCode)
	require.Len(t, sink.unmatched, 1)
	assert.Equal(t, "stranger@okaxis", sink.unmatched[0].UPI)
}

// =============================================================================
// SUMMARY TESTS
// =============================================================================

func TestDriver_Summary_SortedByPayerID(t *testing.T) {
	driver, ledger, _ := newTestDriver(t,
		testPayer("P2", "", "two@upi", 12000),
		testPayer("P1", "", "one@upi", 10000),
	)
	ctx := context.Background()

	_, err := ledger.RecordPayment(ctx, record("P1", 4000, "REF-A"))
	require.NoError(t, err)

	summary, err := driver.Summary(ctx)
	require.NoError(t, err)

	require.Len(t, summary, 2)
	assert.Equal(t, recon.PayerID("P1"), summary[0].Payer.ID)
	assert.True(t, summary[0].Balance.DueAmount.Equal(decimal.NewFromInt(6000)), "got %s", summary[0].Balance.DueAmount)
	assert.Equal(t, recon.PayerID("P2"), summary[1].Payer.ID)
	assert.True(t, summary[1].Balance.TotalPaid.IsZero())
}

// =============================================================================
// DIRECTORY SWAP TESTS
// =============================================================================

func TestDriver_Reconcile_AfterDirectorySwap(t *testing.T) {
	// GIVEN: A handle whose snapshot is replaced at runtime
	// WHEN: Reconciling a notification only the new snapshot can match
	// THEN: The new snapshot serves

	driver, _, handle := newTestDriver(t, testPayer("P1", "", "one@upi", 10000))

	err := handle.Swap([]recon.Payer{
		testPayer("P1", "", "one@upi", 10000),
		testPayer("P2", "", "two@upi", 12000),
	})
	require.NoError(t, err)

	outcome, err := driver.Reconcile(context.Background(),
		"Rs 12000 credited from two@upi, UTR: REF-NEW")
	require.NoError(t, err)

	assert.Equal(t, recon.OutcomeMatched, outcome.Status)
	assert.Equal(t, recon.PayerID("P2"), outcome.PayerID)
}

func TestDirectoryHandle_Swap_RejectsInvalidWithoutReplacing(t *testing.T) {
	// A failed reload must leave the previous snapshot serving.

	handle := recon.NewDirectoryHandle(recon.NewDirectory([]recon.Payer{
		testPayer("P1", "", "one@upi", 10000),
	}))

	err := handle.Swap([]recon.Payer{{ID: "BAD"}}) // no name, no amount

	assert.ErrorIs(t, err, recon.ErrInvalidPayer)
	_, ok := handle.Payer("P1")
	assert.True(t, ok, "previous snapshot should still serve")
}

func TestDirectoryHandle_Swap_RejectsSeparatorInPayerID(t *testing.T) {
	// An id containing the dedup-key separator could alias another
	// payer's ledger keys and is refused at the directory boundary.

	handle := recon.NewDirectoryHandle(nil)

	err := handle.Swap([]recon.Payer{testPayer("P|1", "", "one@upi", 10000)})

	assert.ErrorIs(t, err, recon.ErrInvalidPayer)
}
