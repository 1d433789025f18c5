/*
projection.go - Advance earn-out projection

PURPOSE:
  Answers "when does this author's advance earn out?" by simulating future
  periods at an assumed sales pace and recouping the author's share of each
  simulated period's royalty until the advance is repaid.

KEY INSIGHT:
  Earn-out is not linear. Under a lifetime-mode contract the simulated
  periods keep climbing the tier schedule, so later periods can earn at a
  higher rate than the current one; the projection advances the lifetime
  position format by format exactly the way the real calculation would.

PROJECTION vs CALCULATION:
  The projection engine answers "WHEN would this advance be repaid?"
  It proposes nothing for persistence - real recoupment only ever comes
  from the calculation engine operating on actual sales.

EXAMPLE:
  engine := &ProjectionEngine{}
  result, _ := engine.Project(royalty.ProjectionInput{
      Contract:   contract,
      Percentage: decimal.NewFromInt(50),
      Pace: []royalty.FormatPace{
          {FormatID: "hardcover", UnitsPerPeriod: 1200, UnitPrice: price},
      },
      Lifetime: map[string]int64{"hardcover": 8400},
  })

  if result.EarnsOut {
      fmt.Println("earns out in", result.PeriodsToEarnOut, "periods")
  }

SEE ALSO:
  - schedule.go: The band arithmetic the simulation reuses
  - recoup.go: The recoupment rule applied per simulated period
*/
package royalty

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROJECTION ENGINE - Simulates future periods against an advance
// =============================================================================

// DefaultProjectionHorizon bounds the simulation: 40 periods is ten years
// of quarterly statements.
const DefaultProjectionHorizon = 40

// ProjectionEngine simulates earn-out. It is stateless; everything comes in
// through ProjectionInput.
type ProjectionEngine struct{}

// FormatPace is the assumed steady sales rate for one format.
type FormatPace struct {
	FormatID       string
	UnitsPerPeriod int64
	UnitPrice      Money
}

// ProjectionInput contains all inputs for one earn-out simulation.
type ProjectionInput struct {
	Contract Contract

	// Percentage is the author's ownership share of the title (0, 100].
	Percentage decimal.Decimal

	// Pace holds the assumed per-period sales per format.
	Pace []FormatPace

	// Lifetime is the current cumulative quantity sold per format, the
	// starting position for lifetime-mode band selection.
	Lifetime map[string]int64

	// MaxPeriods caps the simulation; 0 means DefaultProjectionHorizon.
	MaxPeriods int
}

// ProjectedPeriod is one simulated period's outcome.
type ProjectedPeriod struct {
	Index          int
	Royalty        Money
	Recoupment     Money
	NetPayable     Money
	RemainingAfter Money
}

// ProjectionResult reports whether and when the advance earns out within
// the horizon.
type ProjectionResult struct {
	// RemainingAdvance is the unrecouped amount at the start.
	RemainingAdvance Money

	// EarnsOut is true when the advance is fully recouped within the
	// horizon (trivially true when nothing remains).
	EarnsOut bool

	// PeriodsToEarnOut is the number of simulated periods until the
	// advance is repaid; 0 when it is already repaid.
	PeriodsToEarnOut int

	// ProjectedRecouped and ProjectedNet accumulate across the simulated
	// periods.
	ProjectedRecouped Money
	ProjectedNet      Money

	Periods []ProjectedPeriod
}

// Project simulates future periods at the given pace until the contract's
// advance earns out or the horizon is reached.
func (pe *ProjectionEngine) Project(input ProjectionInput) (*ProjectionResult, error) {
	if !input.Percentage.IsPositive() || input.Percentage.GreaterThan(hundred) {
		return nil, fmt.Errorf("projection percentage %s outside (0, 100]", input.Percentage)
	}
	for _, pace := range input.Pace {
		if pace.UnitsPerPeriod < 0 {
			return nil, fmt.Errorf("projection pace for %s is negative", pace.FormatID)
		}
		if _, ok := input.Contract.ScheduleFor(pace.FormatID); !ok {
			return nil, fmt.Errorf("%w: %s on title %s", ErrScheduleNotFound, pace.FormatID, input.Contract.TitleID)
		}
	}

	horizon := input.MaxPeriods
	if horizon <= 0 {
		horizon = DefaultProjectionHorizon
	}

	remaining := input.Contract.RemainingAdvance()
	result := &ProjectionResult{
		RemainingAdvance:  remaining,
		ProjectedRecouped: remaining.Zero(),
		ProjectedNet:      remaining.Zero(),
	}
	if remaining.IsZero() {
		result.EarnsOut = true
		return result, nil
	}

	// Copy the lifetime positions; the simulation advances them per period.
	lifetime := make(map[string]int64, len(input.Lifetime))
	for id, units := range input.Lifetime {
		lifetime[id] = units
	}
	share := input.Percentage.Shift(-2)

	for period := 1; period <= horizon; period++ {
		// 1. One simulated period's royalty across all formats.
		total := remaining.Zero()
		for _, pace := range input.Pace {
			if pace.UnitsPerPeriod == 0 {
				continue
			}
			schedule, _ := input.Contract.ScheduleFor(pace.FormatID)
			basis := BasisForMode(input.Contract.Mode, lifetime[pace.FormatID])
			total = total.Add(schedule.Apply(pace.UnitsPerPeriod, pace.UnitPrice, basis))
			lifetime[pace.FormatID] += pace.UnitsPerPeriod
		}

		// 2. The author's share, settled the way a statement would.
		royaltyShare := total.Mul(share).RoundMinor()

		// 3. Recoup against what is still outstanding.
		recoupment := royaltyShare.Min(remaining)
		if recoupment.IsNegative() {
			recoupment = remaining.Zero()
		}
		remaining = remaining.Sub(recoupment)

		result.Periods = append(result.Periods, ProjectedPeriod{
			Index:          period,
			Royalty:        royaltyShare,
			Recoupment:     recoupment,
			NetPayable:     royaltyShare.Sub(recoupment),
			RemainingAfter: remaining,
		})
		result.ProjectedRecouped = result.ProjectedRecouped.Add(recoupment)
		result.ProjectedNet = result.ProjectedNet.Add(royaltyShare.Sub(recoupment))

		if remaining.IsZero() {
			result.EarnsOut = true
			result.PeriodsToEarnOut = period
			return result, nil
		}

		// No format is moving; further periods change nothing.
		if total.IsZero() {
			break
		}
	}

	return result, nil
}

// QuickEarnOut is a convenience wrapper returning only the headline answer.
func (pe *ProjectionEngine) QuickEarnOut(contract Contract, percentage decimal.Decimal, pace []FormatPace, lifetime map[string]int64) (int, bool, error) {
	result, err := pe.Project(ProjectionInput{
		Contract:   contract,
		Percentage: percentage,
		Pace:       pace,
		Lifetime:   lifetime,
	})
	if err != nil {
		return 0, false, err
	}
	return result.PeriodsToEarnOut, result.EarnsOut, nil
}
