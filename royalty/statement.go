package royalty

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATEMENT - Frozen per-author line for one title/period
// =============================================================================

// Statement is the persisted form of one AuthorSplit: what one author earned
// on one title in one period, frozen at close time. Used for:
//   - Author-facing statement documents
//   - The recoupment audit trail
//   - Fast reads (avoid replaying the ledger)
type Statement struct {
	ID         StatementID
	ContractID ContractID
	AuthorID   AuthorID
	TitleID    TitleID

	PeriodStart time.Time
	PeriodEnd   time.Time
	PeriodLabel string

	// TitleTotal is the whole title's royalty for the period; SplitAmount
	// is this author's share of it.
	TitleTotal  Money
	Percentage  decimal.Decimal
	SplitAmount Money
	Recoupment  Money
	NetPayable  Money

	// AdvanceRemaining is the unrecouped advance after this period.
	AdvanceRemaining Money

	IsSplit     bool
	GeneratedAt time.Time
}

// NewRecoupedTotal is the cumulative advanceRecouped the caller persists
// alongside this statement.
func (s Statement) NewRecoupedTotal(previouslyRecouped Money) Money {
	return previouslyRecouped.Add(s.Recoupment)
}

// BuildStatements freezes a calculation result into one statement per
// author, in roster order. Pure; persistence is the caller's job.
func BuildStatements(result *CalculationResult, generatedAt time.Time) []Statement {
	statements := make([]Statement, 0, len(result.AuthorSplits))
	for _, split := range result.AuthorSplits {
		statements = append(statements, Statement{
			ID:               statementID(split.ContractID, result.Period),
			ContractID:       split.ContractID,
			AuthorID:         split.AuthorID,
			TitleID:          result.TitleID,
			PeriodStart:      result.Period.Start,
			PeriodEnd:        result.Period.End,
			PeriodLabel:      result.Period.Label(),
			TitleTotal:       result.TitleTotalRoyalty,
			Percentage:       split.Percentage,
			SplitAmount:      split.SplitAmount,
			Recoupment:       split.Recoupment,
			NetPayable:       split.NetPayable,
			AdvanceRemaining: split.Advance.RemainingAfterThisPeriod,
			IsSplit:          result.IsSplitCalculation,
			GeneratedAt:      generatedAt,
		})
	}
	return statements
}

// statementID is deterministic so a re-run of the same close collides with
// the original instead of duplicating it.
func statementID(contractID ContractID, period Period) StatementID {
	return StatementID(string(contractID) + "-" + period.Label())
}
