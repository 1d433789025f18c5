/*
schedule.go - Tier schedules and the rate applier

PURPOSE:
  Defines the tiered rate schedule attached to each (contract, format) pair
  and the arithmetic that applies it to a period's unit sales. A schedule is
  an ordered sequence of quantity bands, each paying its own rate; the last
  band is open-ended.

KEY CONCEPTS:
  - Band: {MinQuantity, Rate} - units at or above MinQuantity (and below the
    next band's MinQuantity) pay Rate x unit price
  - TierSchedule: a validated, gap-free band sequence for one format
  - RateBasis: where band selection starts - at zero for period mode, or at
    the prior lifetime quantity for escalating (lifetime) schedules

BAND CROSSING:
  With bands [0,1000)@10% and [1000,inf)@15%, 900 prior lifetime units and
  200 period units, the first 100 units pay 10% and the next 100 pay 15%.
  Apply computes the overlap of [start, start+units) with each band, so a
  single period splits across every band it touches.

VALIDATION:
  Schedules are validated once, on construction. NewTierSchedule rejects
  empty schedules, a first band that does not start at 0, non-increasing
  minimums, and negative rates. A TierSchedule obtained from NewTierSchedule
  therefore covers [0, inf) with no gaps and Apply never re-checks it.

SEE ALSO:
  - sales.go: Resolves the net unit quantities Apply consumes
  - engine.go: Applies schedules per format and sums the results
  - catalog/factory.go: Builds schedules from their JSON definitions
*/
package royalty

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BAND - One tier of a schedule
// =============================================================================

// Band pays Rate x unit price for every unit at or above MinQuantity and
// below the next band's MinQuantity. Rate is a non-negative fraction
// (0.10 for 10%).
type Band struct {
	MinQuantity int64
	Rate        decimal.Decimal
}

// =============================================================================
// TIER SCHEDULE - Validated band sequence for one format
// =============================================================================

// TierSchedule is an ordered, gap-free set of bands covering [0, inf) for
// one sales format. The zero value is not usable; construct through
// NewTierSchedule so every schedule in circulation has passed validation.
type TierSchedule struct {
	FormatID string
	bands    []Band
}

// NewTierSchedule validates the band sequence and returns a usable schedule.
// Returns InvalidTierScheduleError if the bands are empty, do not start at 0,
// are not strictly increasing, or carry a negative rate.
func NewTierSchedule(formatID string, bands []Band) (TierSchedule, error) {
	if len(bands) == 0 {
		return TierSchedule{}, &InvalidTierScheduleError{FormatID: formatID, Reason: "schedule has no bands"}
	}
	if bands[0].MinQuantity != 0 {
		return TierSchedule{}, &InvalidTierScheduleError{
			FormatID: formatID,
			Reason:   fmt.Sprintf("first band starts at %d, must start at 0", bands[0].MinQuantity),
		}
	}
	for i, b := range bands {
		if b.Rate.IsNegative() {
			return TierSchedule{}, &InvalidTierScheduleError{
				FormatID: formatID,
				Reason:   fmt.Sprintf("band %d has negative rate %s", i, b.Rate),
			}
		}
		if i > 0 && b.MinQuantity <= bands[i-1].MinQuantity {
			return TierSchedule{}, &InvalidTierScheduleError{
				FormatID: formatID,
				Reason:   fmt.Sprintf("band %d minimum %d does not increase past %d", i, b.MinQuantity, bands[i-1].MinQuantity),
			}
		}
	}

	// Own a copy so later mutation of the caller's slice cannot invalidate us.
	owned := make([]Band, len(bands))
	copy(owned, bands)
	return TierSchedule{FormatID: formatID, bands: owned}, nil
}

// MustNewTierSchedule is NewTierSchedule for static schedule definitions.
// Panics on an invalid schedule; use in catalog setup and tests only.
func MustNewTierSchedule(formatID string, bands []Band) TierSchedule {
	s, err := NewTierSchedule(formatID, bands)
	if err != nil {
		panic(err)
	}
	return s
}

// Bands returns a copy of the validated band sequence, for serialization
// and display.
func (s TierSchedule) Bands() []Band {
	out := make([]Band, len(s.bands))
	copy(out, s.bands)
	return out
}

// IsZero reports whether the schedule was never constructed.
func (s TierSchedule) IsZero() bool {
	return len(s.bands) == 0
}

// =============================================================================
// RATE BASIS - Period vs lifetime band selection
// =============================================================================

// RateBasis selects where band location starts for a period's units. Period
// basis starts at zero every period; lifetime basis starts at the cumulative
// quantity sold through the end of the previous period, so escalating
// schedules keep climbing across periods. The prior quantity only locates
// bands; it earns nothing itself.
type RateBasis struct {
	lifetime bool
	prior    int64
}

// PeriodBasis locates bands against this period's units alone.
func PeriodBasis() RateBasis {
	return RateBasis{}
}

// LifetimeBasis locates bands against cumulative lifetime quantity,
// starting this period's units at priorUnits.
func LifetimeBasis(priorUnits int64) RateBasis {
	if priorUnits < 0 {
		priorUnits = 0
	}
	return RateBasis{lifetime: true, prior: priorUnits}
}

// BasisForMode builds the basis a contract's mode calls for. Period mode
// ignores priorUnits.
func BasisForMode(mode Mode, priorUnits int64) RateBasis {
	if mode == ModeLifetime {
		return LifetimeBasis(priorUnits)
	}
	return PeriodBasis()
}

// IsLifetime reports whether band selection is cumulative.
func (b RateBasis) IsLifetime() bool {
	return b.lifetime
}

func (b RateBasis) startUnits() int64 {
	if b.lifetime {
		return b.prior
	}
	return 0
}

// =============================================================================
// RATE APPLIER
// =============================================================================

// Apply computes the royalty earned by periodUnits units at unitPrice under
// this schedule. Band selection covers [start, start+periodUnits) where
// start comes from the basis; the overlap with each band earns that band's
// rate. All arithmetic is exact decimal.
func (s TierSchedule) Apply(periodUnits int64, unitPrice Money, basis RateBasis) Money {
	amount := unitPrice.Zero()
	if periodUnits <= 0 {
		return amount
	}

	start := basis.startUnits()
	end := start + periodUnits

	for i, band := range s.bands {
		if band.MinQuantity >= end {
			break
		}
		lo := band.MinQuantity
		if start > lo {
			lo = start
		}
		hi := end
		if i+1 < len(s.bands) && s.bands[i+1].MinQuantity < hi {
			hi = s.bands[i+1].MinQuantity
		}
		if hi <= lo {
			continue
		}
		units := decimal.NewFromInt(hi - lo)
		amount = amount.Add(unitPrice.Mul(band.Rate).Mul(units))
	}
	return amount
}

// RateAt returns the rate paid by the band containing quantity. Quantities
// below zero report the first band's rate.
func (s TierSchedule) RateAt(quantity int64) decimal.Decimal {
	if s.IsZero() {
		return decimal.Zero
	}
	rate := s.bands[0].Rate
	for _, band := range s.bands {
		if band.MinQuantity > quantity {
			break
		}
		rate = band.Rate
	}
	return rate
}
