/*
engine.go - The per-title calculation orchestrator

PURPOSE:
  Composes the pure components in this package into one calculation per
  title per period: resolve net sales per format, apply tier schedules and
  sum to the title total, split across co-authors, recoup each author's
  advance, and assemble a single immutable result.

CALCULATION STEPS:
  1. Validate the period and the ownership roster (sum-to-100)
  2. Match every ownership entry to its contract for THIS title - an
     author's contract for a different title is never substituted
  3. Per format: resolve net units, locate tier bands (period or lifetime
     basis per the contract mode), accumulate royalty; negative formats
     contribute exactly 0
  4. Round the title total to the minor unit, then either take the
     single-author fast path (one entry at 100%, no apportionment) or
     apportion across the roster
  5. Recoup each author's advance independently and assemble the result

ATOMICITY:
  Any step failing aborts the whole title/period calculation. No author
  receives a result unless all do; the caller persists everything in one
  transaction or nothing.

USAGE:
  engine := royalty.NewCalculationEngine()
  result, err := engine.Calculate(royalty.CalculationInput{
      TitleID:   "title-1",
      Period:    period,
      Sales:     sales,
      Contracts: contracts,
      Ownership: roster,
  })

SEE ALSO:
  - schedule.go: Band location and the rate applier
  - apportion.go: The exact-sum split
  - recoup.go: Advance recoupment
*/
package royalty

import (
	"fmt"
)

// =============================================================================
// CALCULATION INPUT
// =============================================================================

// CalculationInput is the full snapshot one calculation consumes. Everything
// is already resolved by the caller: sales totals from the ledger, contract
// state from the contract store, the roster from the ownership store. The
// engine reads, never writes.
type CalculationInput struct {
	TitleID TitleID
	Period  Period

	// Sales carries one entry per format with activity this period.
	Sales []FormatSales

	// Contracts holds the candidate contracts. The engine matches each
	// ownership entry on (author, title); extra contracts are ignored.
	Contracts []Contract

	// Ownership is the title's roster, in statement order. The first entry
	// is the lead author; the lead's contract prices the title total.
	Ownership []OwnershipEntry
}

// =============================================================================
// CALCULATION ENGINE
// =============================================================================

// CalculationEngine runs one title/period calculation. It is stateless and
// safe for concurrent use across titles.
type CalculationEngine struct{}

func NewCalculationEngine() *CalculationEngine {
	return &CalculationEngine{}
}

// Calculate runs the full per-title calculation and returns a fresh result,
// or an error and no result at all.
func (e *CalculationEngine) Calculate(input CalculationInput) (*CalculationResult, error) {
	if err := input.Period.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateOwnership(input.TitleID, input.Ownership); err != nil {
		return nil, err
	}

	contracts, err := e.matchContracts(input)
	if err != nil {
		return nil, err
	}
	lead := contracts[input.Ownership[0].AuthorID]

	titleTotal, formatRoyalties, err := e.titleTotal(input, lead)
	if err != nil {
		return nil, err
	}

	splits, err := e.splitAndRecoup(input, titleTotal, contracts)
	if err != nil {
		return nil, err
	}

	return &CalculationResult{
		TitleID:            input.TitleID,
		Period:             input.Period,
		TitleTotalRoyalty:  titleTotal,
		IsSplitCalculation: len(input.Ownership) > 1,
		AuthorSplits:       splits,
		FormatRoyalties:    formatRoyalties,
	}, nil
}

// matchContracts resolves each ownership entry to its contract for this
// exact title. A missing contract fails the whole calculation, naming the
// author and title.
func (e *CalculationEngine) matchContracts(input CalculationInput) (map[AuthorID]Contract, error) {
	matched := make(map[AuthorID]Contract, len(input.Ownership))
	for _, entry := range input.Ownership {
		found := false
		for _, c := range input.Contracts {
			if c.AuthorID == entry.AuthorID && c.TitleID == input.TitleID {
				matched[entry.AuthorID] = c
				found = true
				break
			}
		}
		if !found {
			return nil, &ContractNotFoundError{AuthorID: entry.AuthorID, TitleID: input.TitleID}
		}
	}
	return matched, nil
}

// titleTotal applies the lead contract's schedules to each format's net
// sales and sums the contributions. The total is settled to the minor unit
// once, here, so the apportionment postcondition is well-defined.
func (e *CalculationEngine) titleTotal(input CalculationInput, lead Contract) (Money, map[string]Money, error) {
	total := ZeroMoney(lead.Currency)
	formatRoyalties := make(map[string]Money, len(input.Sales))

	for _, fs := range input.Sales {
		schedule, ok := lead.ScheduleFor(fs.FormatID)
		if !ok || schedule.IsZero() {
			return Money{}, nil, fmt.Errorf("%w: %s on title %s", ErrScheduleNotFound, fs.FormatID, input.TitleID)
		}

		// A negative period floors this format at zero. It never produces
		// a negative amount that could offset other formats.
		amount := ZeroMoney(lead.Currency)
		if !fs.IsNegativePeriod() {
			basis := BasisForMode(lead.Mode, fs.PriorLifetimeUnits)
			amount = schedule.Apply(fs.NetUnits(), fs.UnitPrice, basis)
		}

		if prev, ok := formatRoyalties[fs.FormatID]; ok {
			amount = prev.Add(amount)
		}
		formatRoyalties[fs.FormatID] = amount
		total = total.Add(amount)
	}

	return total.RoundMinor(), formatRoyalties, nil
}

// splitAndRecoup produces one AuthorSplit per ownership entry, in roster
// order. The single-author fast path skips apportionment entirely; both
// paths recoup each author's advance independently.
func (e *CalculationEngine) splitAndRecoup(input CalculationInput, titleTotal Money, contracts map[AuthorID]Contract) ([]AuthorSplit, error) {
	if len(input.Ownership) == 1 {
		entry := input.Ownership[0]
		return []AuthorSplit{e.buildSplit(entry, contracts[entry.AuthorID], titleTotal)}, nil
	}

	amounts, err := Apportion(titleTotal, input.Ownership)
	if err != nil {
		return nil, err
	}

	splits := make([]AuthorSplit, len(input.Ownership))
	for i, entry := range input.Ownership {
		splits[i] = e.buildSplit(entry, contracts[entry.AuthorID], amounts[i])
	}
	return splits, nil
}

func (e *CalculationEngine) buildSplit(entry OwnershipEntry, contract Contract, amount Money) AuthorSplit {
	recouped := Recoup(amount, contract)
	return AuthorSplit{
		AuthorID:    entry.AuthorID,
		ContractID:  contract.ID,
		Percentage:  entry.Percentage,
		SplitAmount: amount,
		Recoupment:  recouped.Recoupment,
		NetPayable:  recouped.NetPayable,
		Advance:     recouped.Advance,
	}
}
