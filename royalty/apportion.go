/*
apportion.go - Largest-remainder split apportionment

PURPOSE:
  Divides one monetary total across N ownership percentages so that the
  parts sum back to the total exactly, at the currency's minor unit. This is
  the exact-sum guarantee co-author statements depend on: no cent appears
  or disappears in a split.

ALGORITHM (largest-remainder):
  1. If the total is not positive, every split is zero - no remainder logic
  2. raw_i  = total x (percentage_i / 100), exact decimal
  3. rounded_i = raw_i rounded half-up to the currency's minor unit
  4. residual = total - sum(rounded_i), usually zero, occasionally a cent
  5. The residual lands on the largest-percentage entry (first in input
     order among ties)
  6. Re-verify sum(splits) == total; SplitReconciliationError otherwise

USAGE:
  splits, err := royalty.Apportion(royalty.NewMoney(100.01, royalty.USD),
      []royalty.OwnershipEntry{
          {AuthorID: "auth-1", Percentage: decimal.NewFromInt(33)},
          {AuthorID: "auth-2", Percentage: decimal.NewFromInt(33)},
          {AuthorID: "auth-3", Percentage: decimal.NewFromInt(34)},
      })
  // splits: $33.00, $33.00, $34.01
*/
package royalty

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// OWNERSHIP VALIDATION
// =============================================================================

// ValidateOwnership checks the sum-to-100 invariant on a title's roster.
// The engine and Apportion both call this; neither attempts repair.
func ValidateOwnership(titleID TitleID, entries []OwnershipEntry) error {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Percentage)
	}
	if !sum.Equal(hundred) {
		return &OwnershipSumError{TitleID: titleID, Sum: sum}
	}
	return nil
}

// =============================================================================
// APPORTIONMENT
// =============================================================================

// Apportion divides total across the ownership entries, one split per entry
// in input order. The returned splits sum to the total exactly at the
// currency's minor unit. A non-positive total yields all-zero splits.
func Apportion(total Money, entries []OwnershipEntry) ([]Money, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	if err := ValidateOwnership("", entries); err != nil {
		return nil, err
	}

	splits := make([]Money, len(entries))

	if !total.IsPositive() {
		for i := range splits {
			splits[i] = total.Zero()
		}
		return splits, nil
	}

	// The exact-sum postcondition is only meaningful against a minor-unit
	// total; normalize once here. Already-settled totals pass through.
	total = total.RoundMinor()

	allocated := total.Zero()
	for i, e := range entries {
		// Shift(-2) divides by 100 by moving the exponent; no precision
		// is introduced or lost.
		raw := total.Mul(e.Percentage.Shift(-2))
		splits[i] = raw.RoundMinor()
		allocated = allocated.Add(splits[i])
	}

	if residual := total.Sub(allocated); !residual.IsZero() {
		largest := 0
		for i := 1; i < len(entries); i++ {
			if entries[i].Percentage.GreaterThan(entries[largest].Percentage) {
				largest = i
			}
		}
		splits[largest] = splits[largest].Add(residual)
	}

	// Defensive re-verification. Expected to never trigger; a failure here
	// is a defect, not bad data.
	allocated = total.Zero()
	for _, s := range splits {
		allocated = allocated.Add(s)
	}
	if !allocated.Equal(total) {
		return nil, &SplitReconciliationError{Total: total, Allocated: allocated, Entries: entries}
	}

	return splits, nil
}
