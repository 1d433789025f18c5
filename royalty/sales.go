/*
sales.go - Net sales resolution per format

PURPOSE:
  Turns raw sales and approved-returns counts for one format into the two
  quantities downstream components need: the floored quantity that drives
  tier-band selection, and the signed quantity that decides whether the
  format earns anything at all this period.

NEGATIVE-PERIOD FLOOR:
  A format whose approved returns exceed its sales has a negative signed
  quantity. That format contributes exactly 0 royalty for the period - not
  a negative amount. Returns on one format never eat royalty earned on
  another, and the title total stays non-negative.
*/
package royalty

// =============================================================================
// FORMAT SALES - One format's period input
// =============================================================================

// FormatSales carries one format's raw counts for a period, as supplied by
// the sales ledger. PriorLifetimeUnits is the cumulative quantity sold
// through the end of the previous period; it locates tier bands under
// lifetime mode and is ignored under period mode.
type FormatSales struct {
	FormatID              string
	UnitsSold             int64
	UnitsReturnedApproved int64
	PriorLifetimeUnits    int64

	// UnitPrice is the per-unit amount rates apply to, resolved from the
	// title's list price for this format.
	UnitPrice Money
}

// SignedNetUnits is unitsSold minus approved returns, negative when returns
// dominate.
func (fs FormatSales) SignedNetUnits() int64 {
	return fs.UnitsSold - fs.UnitsReturnedApproved
}

// NetUnits is the signed quantity floored at zero. This is the quantity fed
// to the rate applier.
func (fs FormatSales) NetUnits() int64 {
	return floorUnits(fs.SignedNetUnits())
}

// IsNegativePeriod reports whether returns exceeded sales for this format.
func (fs FormatSales) IsNegativePeriod() bool {
	return fs.SignedNetUnits() < 0
}

// ResolveNetUnits combines raw counts into the floored band-selection
// quantity and the signed royalty-bearing quantity.
func ResolveNetUnits(unitsSold, unitsReturnedApproved int64) (netUnits, signedUnits int64) {
	signedUnits = unitsSold - unitsReturnedApproved
	return floorUnits(signedUnits), signedUnits
}

func floorUnits(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
