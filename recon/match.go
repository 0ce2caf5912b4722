/*
match.go - Candidate-to-payer resolution

PURPOSE:
  Resolves an extracted Candidate to at most one payer. Deterministic
  and side-effect-free: the same candidate against the same directory
  snapshot always yields the same answer.

PRIORITY ORDER (first rule that resolves wins and short-circuits):
  1. UPI handle   - strongest identity signal, near-unique
  2. Phone        - weaker but still personal
  3. Amount       - weakest; many payers may share a rent figure, so it
                    only resolves when exactly ONE payer carries the
                    extracted amount

  A candidate with no resolvable signal is an unmatched transaction, to
  be surfaced for manual review, never silently dropped.
*/
package recon

// Match resolves a candidate to a payer using the fixed priority order.
// The boolean reports whether a payer was resolved.
//
// UPI and phone lookups resolve on any non-empty result set; ties are
// broken by taking the first entry, which is deterministic because
// directory lookups sort by payer id. The amount rule is ambiguity-safe
// and requires a unique match.
func Match(c Candidate, d *Directory) (Payer, bool) {
	if c.UPI != "" {
		if payers := d.ByUPI(c.UPI); len(payers) > 0 {
			return payers[0], true
		}
	}
	if c.Phone != "" {
		if payers := d.ByPhoneContains(c.Phone); len(payers) > 0 {
			return payers[0], true
		}
	}
	if c.HasAmount() {
		if payers := d.ByExpectedAmount(c.Amount); len(payers) == 1 {
			return payers[0], true
		}
	}
	return Payer{}, false
}
