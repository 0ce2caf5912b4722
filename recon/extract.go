/*
extract.go - Structured-field extraction from notification text

PURPOSE:
  Parses free-form bank/UPI notification bodies into a Candidate.
  Extraction never fails: a field the text does not contain is simply
  absent on the result.

FIELDS:
  Amount:    All monetary tokens are collected (optional currency glyph,
             thousands separators, optional two-decimal fraction); the
             MAXIMUM surviving positive value wins. Notification bodies
             often repeat the amount alongside a smaller fee or balance
             figure; the largest plausible figure is the most likely
             transaction amount.
  UPI:       First local-part@domain token, lowercased.
  Phone:     First 10-digit sequence starting 6-9 that is not embedded
             in a longer digit run. A +91 prefix is tolerated but not
             captured.
  Reference: First token after a txn/tx/utr/ref label.

AUDIT:
  The raw text is retained on the Candidate truncated to 200 characters.
*/
package recon

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const rawAuditLimit = 200

var (
	// The grouped form requires at least one comma group; a bare digit
	// run falls through to the second alternative and matches whole
	// instead of being split at a thousands boundary.
	reAmount = regexp.MustCompile(`₹?\s*([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?)`)
	reUPI    = regexp.MustCompile(`([a-zA-Z0-9.\-_]{3,}@[a-zA-Z]{2,})`)
	reRef    = regexp.MustCompile(`(?i)\b(txn|tx|utr|ref)[\s:]*([A-Za-z0-9\-/]+)`)

	// RE2 has no lookaround, so the "not part of a longer digit run"
	// rule is enforced by boundary checks in extractPhone.
	rePhone = regexp.MustCompile(`(\+91[-\s]?)?([6-9][0-9]{9})`)
)

// Extract parses raw notification text into a Candidate. It never
// returns an error; absent fields are zero values.
func Extract(text string) Candidate {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))

	return Candidate{
		UPI:           extractUPI(text),
		Phone:         extractPhone(text),
		Amount:        extractAmount(text),
		ReferenceCode: extractReference(text),
		Raw:           truncateRunes(text, rawAuditLimit),
	}
}

// extractAmount collects every monetary token and returns the maximum
// positive parseable value, or zero when none survives.
func extractAmount(text string) decimal.Decimal {
	var best decimal.Decimal
	for _, m := range reAmount.FindAllStringSubmatch(text, -1) {
		token := strings.ReplaceAll(m[1], ",", "")
		v, err := decimal.NewFromString(token)
		if err != nil || !v.IsPositive() {
			continue
		}
		if v.GreaterThan(best) {
			best = v
		}
	}
	return best
}

func extractUPI(text string) string {
	if m := reUPI.FindStringSubmatch(text); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// extractPhone returns the first 10-digit sequence with leading digit
// 6-9 that is not embedded in a longer digit run. The optional +91
// prefix counts toward the boundary but is not part of the result.
func extractPhone(text string) string {
	for _, m := range rePhone.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if start > 0 && isDigit(text[start-1]) {
			continue
		}
		if end < len(text) && isDigit(text[end]) {
			continue
		}
		return text[m[4]:m[5]]
	}
	return ""
}

func extractReference(text string) string {
	if m := reRef.FindStringSubmatch(text); m != nil {
		return m[2]
	}
	return ""
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
