package recon_test

import (
	"strings"
	"testing"

	"github.com/ledgerline/reconcile-engine/recon"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// AMOUNT EXTRACTION TESTS
// =============================================================================

func TestExtract_Amount_MaximumTokenWins(t *testing.T) {
	// GIVEN: A notification repeating the amount next to a smaller fee
	// WHEN: Extracting fields
	// THEN: The largest monetary token is taken as the amount

	c := recon.Extract("₹12,500 credited to your account. Convenience fee ₹150 applied.")

	assert.True(t, c.HasAmount())
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(12500)), "got %s", c.Amount)
}

func TestExtract_Amount_ThousandsSeparatorsAndDecimals(t *testing.T) {
	c := recon.Extract("Payment of Rs 1,500.50 received")

	assert.True(t, c.Amount.Equal(decimal.RequireFromString("1500.50")), "got %s", c.Amount)
}

func TestExtract_Amount_BareDigitRunKeptWhole(t *testing.T) {
	// GIVEN: A comma-less amount of four or more digits
	// WHEN: Extracting fields
	// THEN: The run is taken whole, never split at a thousands boundary

	c := recon.Extract("Rs 5000 credited to your account")
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(5000)), "got %s", c.Amount)

	c = recon.Extract("Rs 15000 received")
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(15000)), "got %s", c.Amount)
}

func TestExtract_Amount_NoneFound(t *testing.T) {
	// GIVEN: A body with no monetary token at all
	// WHEN: Extracting fields
	// THEN: The amount is absent, not an error

	c := recon.Extract("payment received, thank you")

	assert.False(t, c.HasAmount())
	assert.True(t, c.Amount.IsZero())
}

func TestExtract_Amount_DateDigitsDoNotWin(t *testing.T) {
	// The year in a date is a smaller token than the real amount.
	c := recon.Extract("Rs 5000 credited on 2024-01-05")

	assert.True(t, c.Amount.Equal(decimal.NewFromInt(5000)), "got %s", c.Amount)
}

// =============================================================================
// UPI / PHONE / REFERENCE EXTRACTION TESTS
// =============================================================================

func TestExtract_UPI_FirstHandleLowercased(t *testing.T) {
	c := recon.Extract("Received from Tenant.One@OKSBI via UPI")

	assert.Equal(t, "tenant.one@oksbi", c.UPI)
}

func TestExtract_UPI_Absent(t *testing.T) {
	c := recon.Extract("Rs 5000 credited")

	assert.Empty(t, c.UPI)
}

func TestExtract_Phone_TenDigitsStartingSixToNine(t *testing.T) {
	c := recon.Extract("UPI payment from 9876543210 received")

	assert.Equal(t, "9876543210", c.Phone)
}

func TestExtract_Phone_CountryCodePrefixStripped(t *testing.T) {
	c := recon.Extract("from +91 9876543210")

	assert.Equal(t, "9876543210", c.Phone)
}

func TestExtract_Phone_EmbeddedInLongerRunIgnored(t *testing.T) {
	// GIVEN: A 10-digit run that is part of a longer digit sequence
	// WHEN: Extracting the phone
	// THEN: It is not mistaken for a phone number

	c := recon.Extract("account 009876543210123 debited")

	assert.Empty(t, c.Phone)
}

func TestExtract_Reference_LabeledToken(t *testing.T) {
	c := recon.Extract("Rs 5000 credited, UTR: AB12-XYZ/9")

	assert.Equal(t, "AB12-XYZ/9", c.ReferenceCode)
}

func TestExtract_Reference_TxnLabel(t *testing.T) {
	c := recon.Extract("txn 403912765001 successful")

	assert.Equal(t, "403912765001", c.ReferenceCode)
}

// =============================================================================
// AUDIT TEXT TESTS
// =============================================================================

func TestExtract_Raw_TruncatedForAudit(t *testing.T) {
	long := strings.Repeat("x", 450)

	c := recon.Extract(long)

	assert.Len(t, c.Raw, 200)
}

func TestExtract_Raw_ShortBodyKeptWhole(t *testing.T) {
	c := recon.Extract("Rs 500 credited")

	assert.Equal(t, "Rs 500 credited", c.Raw)
}

func TestExtract_NonBreakingSpacesNormalized(t *testing.T) {
	// Bank templates pad amounts with NBSP.
	c := recon.Extract("₹\u00a012,500 credited")

	assert.True(t, c.Amount.Equal(decimal.NewFromInt(12500)), "got %s", c.Amount)
}
