/*
scan_test.go - Corrupt-row handling

A row the scanner cannot interpret must surface as an error, never as a
silently zeroed field: history ordering and the directory invariants
both depend on parsed timestamps. Uses the package-internal db handle
to plant rows the public API would refuse to write.
*/
package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAll_CorruptRecordedAt_Errors(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.db.Exec(`
		INSERT INTO payments
		(id, payer_id, amount, reference_code, dedup_key, source, recorded_at, created_at)
		VALUES ('pay-1', 'P1', '5000', NULL, 'k1', 'manual', 'not-a-timestamp', 'not-a-timestamp')
	`)
	require.NoError(t, err)

	_, err = store.ListAll(context.Background())

	assert.ErrorContains(t, err, "corrupt recorded_at")
}

func TestListPayers_CorruptEnrolledAt_Errors(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.db.Exec(`
		INSERT INTO payers
		(payer_id, name, phone, upi_id, email, address, expected_amount, enrolled_at, created_at)
		VALUES ('P1', 'Asha Verma', NULL, NULL, NULL, NULL, '10000', 'June 2024', 'June 2024')
	`)
	require.NoError(t, err)

	_, err = store.ListPayers(context.Background())

	assert.ErrorContains(t, err, "corrupt enrolled_at")
}
