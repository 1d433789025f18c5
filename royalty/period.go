package royalty

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The statement window a calculation covers
// =============================================================================

// Period is a half-open statement window [Start, End). A calculation is
// always scoped to one period; lifetime totals are everything strictly
// before Start.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t falls within [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Validate checks that the window is well-formed.
func (p Period) Validate() error {
	if !p.End.After(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Label renders a short human identifier: "2025-Q3" for quarters,
// "2025-H1" for halves, "2025-07" for months, "2025" for years.
func (p Period) Label() string {
	months := monthsBetween(p.Start, p.End)
	y, m := p.Start.Year(), p.Start.Month()
	switch months {
	case 1:
		return fmt.Sprintf("%04d-%02d", y, int(m))
	case 3:
		return fmt.Sprintf("%04d-Q%d", y, (int(m)-1)/3+1)
	case 6:
		return fmt.Sprintf("%04d-H%d", y, (int(m)-1)/6+1)
	case 12:
		return fmt.Sprintf("%04d", y)
	default:
		return p.Start.Format("2006-01-02") + ".." + p.End.Format("2006-01-02")
	}
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + ")"
}

func monthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}

// =============================================================================
// PERIOD SCHEME - How a publisher cuts the year into statement windows
// =============================================================================

type PeriodScheme string

const (
	SchemeMonthly    PeriodScheme = "monthly"
	SchemeQuarterly  PeriodScheme = "quarterly"
	SchemeSemiannual PeriodScheme = "semiannual"
	SchemeAnnual     PeriodScheme = "annual"
)

// PeriodConfig defines how statement periods are derived for a catalog.
type PeriodConfig struct {
	Scheme PeriodScheme

	// For non-calendar years: which month opens the statement year (1-12).
	FiscalYearStartMonth time.Month
}

// PeriodFor returns the statement period containing the given date.
func (pc PeriodConfig) PeriodFor(date time.Time) Period {
	months := pc.monthsPerPeriod()
	anchor := time.January
	if pc.FiscalYearStartMonth >= time.January && pc.FiscalYearStartMonth <= time.December && pc.FiscalYearStartMonth != 0 {
		anchor = pc.FiscalYearStartMonth
	}

	// Months elapsed since the most recent statement-year open.
	elapsed := monthsBetween(time.Date(date.Year(), anchor, 1, 0, 0, 0, 0, time.UTC), date)
	if elapsed < 0 {
		elapsed += 12
	}
	offset := (elapsed / months) * months

	yearOpen := time.Date(date.Year(), anchor, 1, 0, 0, 0, 0, time.UTC)
	if date.Before(yearOpen) {
		yearOpen = yearOpen.AddDate(-1, 0, 0)
	}
	start := yearOpen.AddDate(0, offset, 0)
	return Period{Start: start, End: start.AddDate(0, months, 0)}
}

// Previous returns the period immediately before the one containing date.
func (pc PeriodConfig) Previous(date time.Time) Period {
	current := pc.PeriodFor(date)
	return pc.PeriodFor(current.Start.AddDate(0, 0, -1))
}

func (pc PeriodConfig) monthsPerPeriod() int {
	switch pc.Scheme {
	case SchemeMonthly:
		return 1
	case SchemeSemiannual:
		return 6
	case SchemeAnnual:
		return 12
	default:
		return 3
	}
}

// ParsePeriodScheme maps a config string onto a scheme, defaulting to
// quarterly, the common trade-publishing cadence.
func ParsePeriodScheme(s string) PeriodScheme {
	switch s {
	case string(SchemeMonthly):
		return SchemeMonthly
	case string(SchemeSemiannual):
		return SchemeSemiannual
	case string(SchemeAnnual):
		return SchemeAnnual
	default:
		return SchemeQuarterly
	}
}
