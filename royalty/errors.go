/*
errors.go - Centralized error types for the royalty engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Calculation errors are data problems, not transient faults: every one of
  them aborts the whole per-title calculation and nothing is retried here.

ERROR CATEGORIES:
  1. Calculation errors - Bad schedules, rosters, or contract coverage
  2. Invariant errors - Internal defects (apportionment reconciliation)
  3. Store errors - Missing or duplicate records at the persistence boundary

USAGE:
  Callers branch on sentinels:

    if errors.Is(err, royalty.ErrContractNotFound) {
        // surface the failing author/title, skip this title only
    }

SEE ALSO:
  - engine.go: Raises calculation errors
  - apportion.go: Raises OwnershipSumError and SplitReconciliationError
  - store/sqlite: Maps database failures onto the store sentinels
*/
package royalty

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTierSchedule is returned when a schedule has gaps, overlaps,
	// or non-increasing bands. Data problem; never retried.
	ErrInvalidTierSchedule = errors.New("invalid tier schedule")

	// ErrContractNotFound is returned when an ownership entry has no matching
	// contract for the exact title being calculated.
	ErrContractNotFound = errors.New("contract not found")

	// ErrOwnershipSum is returned when a title's ownership percentages do not
	// sum to exactly 100.
	ErrOwnershipSum = errors.New("ownership percentages do not sum to 100")

	// ErrSplitReconciliation is returned when apportioned splits fail to sum
	// back to the total after adjustment. Indicates a defect, not bad data.
	ErrSplitReconciliation = errors.New("apportioned splits do not reconcile to total")

	// ErrScheduleNotFound is returned when a contract carries no schedule for
	// a format that sold in the period.
	ErrScheduleNotFound = errors.New("no schedule for format")

	// ErrTitleNotFound is returned when a referenced title doesn't exist.
	ErrTitleNotFound = errors.New("title not found")

	// ErrAuthorNotFound is returned when a referenced author doesn't exist.
	ErrAuthorNotFound = errors.New("author not found")

	// ErrStatementExists is returned when a statement for the same
	// (contract, period) has already been persisted.
	ErrStatementExists = errors.New("statement already exists for period")

	// ErrContractExists is returned when a second contract is saved for the
	// same (author, title) pair. Upserts by ID are allowed.
	ErrContractExists = errors.New("contract already exists")

	// ErrDuplicateEntry is returned when a sales entry with the same ID is
	// appended twice. Expected behavior for retries.
	ErrDuplicateEntry = errors.New("duplicate sales entry")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTierScheduleError names the offending format and what is wrong with
// its bands.
type InvalidTierScheduleError struct {
	FormatID string
	Reason   string
}

func (e *InvalidTierScheduleError) Error() string {
	if e.FormatID == "" {
		return fmt.Sprintf("invalid tier schedule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid tier schedule for %s: %s", e.FormatID, e.Reason)
}

func (e *InvalidTierScheduleError) Unwrap() error {
	return ErrInvalidTierSchedule
}

// ContractNotFoundError names the author and title so the caller can present
// an actionable message ("Author X has no active contract for title Y").
type ContractNotFoundError struct {
	AuthorID AuthorID
	TitleID  TitleID
}

func (e *ContractNotFoundError) Error() string {
	return fmt.Sprintf("author %s has no contract for title %s", e.AuthorID, e.TitleID)
}

func (e *ContractNotFoundError) Unwrap() error {
	return ErrContractNotFound
}

// OwnershipSumError reports the actual sum found on a title's roster.
type OwnershipSumError struct {
	TitleID TitleID
	Sum     decimal.Decimal
}

func (e *OwnershipSumError) Error() string {
	if e.TitleID == "" {
		return fmt.Sprintf("ownership percentages sum to %s, want 100", e.Sum)
	}
	return fmt.Sprintf("ownership for title %s sums to %s, want 100", e.TitleID, e.Sum)
}

func (e *OwnershipSumError) Unwrap() error {
	return ErrOwnershipSum
}

// SplitReconciliationError carries the full apportionment input so the
// failure can be logged verbatim for postmortem. Treat as a defect.
type SplitReconciliationError struct {
	Total     Money
	Allocated Money
	Entries   []OwnershipEntry
}

func (e *SplitReconciliationError) Error() string {
	return fmt.Sprintf("splits sum to %s, want %s across %d entries",
		e.Allocated.Value, e.Total.Value, len(e.Entries))
}

func (e *SplitReconciliationError) Unwrap() error {
	return ErrSplitReconciliation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrTitleNotFound) ||
		errors.Is(err, ErrAuthorNotFound)
}

// IsClientError returns true if the error is a data problem the caller must
// correct upstream before re-running the title.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTierSchedule) ||
		errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrOwnershipSum) ||
		errors.Is(err, ErrScheduleNotFound) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrDuplicateEntry) ||
		errors.Is(err, ErrStatementExists) ||
		errors.Is(err, ErrContractExists)
}

// IsInvariant returns true for internal invariant violations that should be
// escalated as defects rather than surfaced as user errors.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrSplitReconciliation)
}
