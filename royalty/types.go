/*
Package royalty provides the core royalty calculation engine.

PURPOSE:
  This package contains the types and algorithms for computing per-period
  royalty earnings from sales and returns data: tiered rate schedules,
  exact-sum apportionment across co-authors, and advance recoupment against
  individual contracts. Everything here is pure computation; persistence and
  scheduling live with the caller.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: An exact decimal amount with a currency (e.g., $500.00 USD)
  - Contract: The per-(author, title) terms snapshot fed into a calculation
  - OwnershipEntry: A co-author's percentage share of a title
  - CalculationResult: The immutable output of one title/period calculation

DESIGN PRINCIPLES:
  1. Purity: Calculations take snapshots in and return results out; no I/O
  2. Precision: Uses decimal.Decimal so a cent is always a cent
  3. Type Safety: Strong typing for IDs prevents mixing author/title/contract IDs
  4. Atomicity: A result covers every author on the title, or nothing at all

USAGE:
  total := royalty.NewMoney(1000, royalty.USD)
  splits, err := royalty.Apportion(total, []royalty.OwnershipEntry{
      {AuthorID: "auth-1", Percentage: decimal.NewFromInt(60)},
      {AuthorID: "auth-2", Percentage: decimal.NewFromInt(40)},
  })

SEE ALSO:
  - schedule.go: Tier schedules and the rate applier
  - apportion.go: Largest-remainder split apportionment
  - recoup.go: Advance recoupment
  - engine.go: The per-title calculation orchestrator
*/
package royalty

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact decimal amount with currency
// =============================================================================

type Money struct {
	Value    decimal.Decimal
	Currency Currency
}

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
)

// Exponent returns the currency's minor-unit exponent: the number of decimal
// places at which amounts are settled (2 for cents, 0 for yen).
func (c Currency) Exponent() int32 {
	switch c {
	case JPY:
		return 0
	default:
		return 2
	}
}

func NewMoney(value float64, currency Currency) Money {
	return Money{Value: decimal.NewFromFloat(value), Currency: currency}
}

func NewMoneyFromInt(value int, currency Currency) Money {
	return Money{Value: decimal.NewFromInt(int64(value)), Currency: currency}
}

func ZeroMoney(currency Currency) Money {
	return Money{Value: decimal.Zero, Currency: currency}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (m Money) Zero() Money                 { return Money{Value: decimal.Zero, Currency: m.Currency} }
func (m Money) Add(b Money) Money           { return Money{Value: m.Value.Add(b.Value), Currency: m.Currency} }
func (m Money) Sub(b Money) Money           { return Money{Value: m.Value.Sub(b.Value), Currency: m.Currency} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s), Currency: m.Currency} }
func (m Money) Div(s decimal.Decimal) Money { return Money{Value: m.Value.Div(s), Currency: m.Currency} }
func (m Money) Neg() Money                  { return Money{Value: m.Value.Neg(), Currency: m.Currency} }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) GreaterThan(b Money) bool    { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool       { return m.Value.LessThan(b.Value) }
func (m Money) Equal(b Money) bool          { return m.Value.Equal(b.Value) }
func (m Money) Min(b Money) Money {
	if m.LessThan(b) {
		return m
	}
	return b
}

func (m Money) Max(b Money) Money {
	if m.GreaterThan(b) {
		return m
	}
	return b
}

// RoundMinor rounds to the currency's minor unit, half away from zero.
// Every amount in this package is non-negative by the time it is rounded,
// so this is round-half-up in practice.
func (m Money) RoundMinor() Money {
	return Money{Value: m.Value.Round(m.Currency.Exponent()), Currency: m.Currency}
}

// StringFixed renders the amount at the currency's minor unit ("600.00").
func (m Money) StringFixed() string {
	return m.Value.StringFixed(m.Currency.Exponent())
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AuthorID string
type TitleID string
type ContractID string
type StatementID string

// =============================================================================
// CONTRACT - Per-(author, title) terms snapshot
// =============================================================================

// Mode selects how tier bands are located: against this period's units alone,
// or against cumulative lifetime units sold (escalating schedules).
type Mode string

const (
	ModePeriod   Mode = "period"
	ModeLifetime Mode = "lifetime"
)

// Contract is the read-only snapshot of one author's terms for one title.
// The engine never mutates contract state; recoupment comes back as a
// proposed delta for the caller to persist.
type Contract struct {
	ID       ContractID
	AuthorID AuthorID
	TitleID  TitleID

	// Schedules holds one tier schedule per sales-format ID.
	Schedules map[string]TierSchedule

	Mode     Mode
	Currency Currency

	// AdvancePaid is the cumulative advance disbursed to the author.
	// AdvanceRecouped is the cumulative amount already offset against prior
	// royalty; it never decreases and never exceeds AdvancePaid.
	AdvancePaid     Money
	AdvanceRecouped Money
}

// ScheduleFor returns the schedule for a format ID, if the contract has one.
func (c Contract) ScheduleFor(formatID string) (TierSchedule, bool) {
	s, ok := c.Schedules[formatID]
	return s, ok
}

// RemainingAdvance is the unrecouped portion of the advance, floored at zero.
func (c Contract) RemainingAdvance() Money {
	remaining := c.AdvancePaid.Sub(c.AdvanceRecouped)
	if remaining.IsNegative() {
		return c.AdvancePaid.Zero()
	}
	return remaining
}

// =============================================================================
// OWNERSHIP - Co-author percentage shares
// =============================================================================

// OwnershipEntry is one author's share of a title. Percentages across a
// title's roster sum to exactly 100; the engine re-checks the sum and
// never repairs it.
type OwnershipEntry struct {
	AuthorID   AuthorID
	Percentage decimal.Decimal
}

// =============================================================================
// CALCULATION RESULT - Immutable output of one title/period calculation
// =============================================================================

// AdvanceStatus reports an author's advance position after this period's
// proposed recoupment is applied.
type AdvanceStatus struct {
	TotalAdvance             Money
	PreviouslyRecouped       Money
	RemainingAfterThisPeriod Money
}

// AuthorSplit is one author's share of a title's period royalty: the split
// itself, the recoupment proposed against their advance, and what is left
// payable.
type AuthorSplit struct {
	AuthorID   AuthorID
	ContractID ContractID
	Percentage decimal.Decimal

	SplitAmount Money
	Recoupment  Money
	NetPayable  Money
	Advance     AdvanceStatus
}

// CalculationResult is the sole output artifact: created fresh per call,
// never mutated afterwards. Invariant: the split amounts sum exactly to
// TitleTotalRoyalty at the currency's minor unit.
type CalculationResult struct {
	TitleID            TitleID
	Period             Period
	TitleTotalRoyalty  Money
	IsSplitCalculation bool
	AuthorSplits       []AuthorSplit

	// FormatRoyalties records each format's contribution to the title total,
	// after the per-format negative-period floor.
	FormatRoyalties map[string]Money
}
