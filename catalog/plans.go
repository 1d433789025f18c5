/*
plans.go - Pre-built royalty plan configurations

PURPOSE:
  Provides ready-to-use tier schedules for common trade-publishing terms.
  These are convenience constructors matching the deal structures royalty
  managers see every day; a contract bundles one schedule per format.

AVAILABLE PLANS:
  StandardHardcoverPlan: The classic trade escalator (10/12.5/15)
  FlatPaperbackPlan:     Flat-rate paperback terms
  EbookPlan:             Flat digital rate, typically 25%
  AudiobookPlan:         Flat audio rate
  TradeTermsFor:         The complete schedule set for a standard deal

ESCALATORS:
  Hardcover escalators are lifetime-based in trade publishing: the rate
  steps up when CUMULATIVE copies sold cross each breakpoint, not per
  period. Pair escalator schedules with royalty.ModeLifetime.

EXAMPLE:
  schedules := catalog.TradeTermsFor(catalog.FormatHardcover,
      catalog.FormatEbook)
  contract := royalty.Contract{
      Schedules: schedules,
      Mode:      royalty.ModeLifetime,
      ...
  }

SEE ALSO:
  - royalty/schedule.go: Band validation and the rate applier
  - factory.go: JSON-based contract creation
*/
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/warp/royalty-engine/royalty"
)

// =============================================================================
// STANDARD PLANS
// =============================================================================

// StandardHardcoverPlan returns the classic trade hardcover escalator:
// 10% to 5,000 copies, 12.5% to 10,000, 15% thereafter, on cumulative
// lifetime sales.
func StandardHardcoverPlan() royalty.TierSchedule {
	return royalty.MustNewTierSchedule(string(FormatHardcover), []royalty.Band{
		{MinQuantity: 0, Rate: rate("0.10")},
		{MinQuantity: 5000, Rate: rate("0.125")},
		{MinQuantity: 10000, Rate: rate("0.15")},
	})
}

// FlatPaperbackPlan returns flat paperback terms, typically 7.5%.
func FlatPaperbackPlan() royalty.TierSchedule {
	return royalty.MustNewTierSchedule(string(FormatPaperback), []royalty.Band{
		{MinQuantity: 0, Rate: rate("0.075")},
	})
}

// MassMarketPlan returns the common 8%-to-150k-then-10% mass market terms.
func MassMarketPlan() royalty.TierSchedule {
	return royalty.MustNewTierSchedule(string(FormatMassMarket), []royalty.Band{
		{MinQuantity: 0, Rate: rate("0.08")},
		{MinQuantity: 150000, Rate: rate("0.10")},
	})
}

// EbookPlan returns the flat digital rate, 25% in most trade deals.
func EbookPlan() royalty.TierSchedule {
	return royalty.MustNewTierSchedule(string(FormatEbook), []royalty.Band{
		{MinQuantity: 0, Rate: rate("0.25")},
	})
}

// AudiobookPlan returns the flat audio rate.
func AudiobookPlan() royalty.TierSchedule {
	return royalty.MustNewTierSchedule(string(FormatAudiobook), []royalty.Band{
		{MinQuantity: 0, Rate: rate("0.25")},
	})
}

// FlatPlan returns a single-band schedule at the given rate for any format.
// Escalator-free deals (work-for-hire, some digital-first imprints) use this.
func FlatPlan(format Format, rateStr string) royalty.TierSchedule {
	return royalty.MustNewTierSchedule(string(format), []royalty.Band{
		{MinQuantity: 0, Rate: rate(rateStr)},
	})
}

// TradeTermsFor bundles the standard plan for each requested format, keyed
// by format ID the way royalty.Contract.Schedules expects.
func TradeTermsFor(formats ...Format) map[string]royalty.TierSchedule {
	schedules := make(map[string]royalty.TierSchedule, len(formats))
	for _, f := range formats {
		schedules[string(f)] = standardPlanFor(f)
	}
	return schedules
}

func standardPlanFor(f Format) royalty.TierSchedule {
	switch f {
	case FormatPaperback:
		return FlatPaperbackPlan()
	case FormatMassMarket:
		return MassMarketPlan()
	case FormatEbook:
		return EbookPlan()
	case FormatAudiobook, FormatAudioDownload:
		return FlatPlan(f, "0.25")
	case FormatLargePrint:
		return FlatPlan(f, "0.10")
	default:
		return StandardHardcoverPlan()
	}
}

func rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
