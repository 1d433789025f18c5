/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. The domain
  layer keeps money as exact decimals; DTOs render amounts as fixed-point
  strings ("600.00") so a cent survives the wire the same way it survives
  the database. Floats never touch money.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Catalog:
    AuthorDTO, TitleDTO, OwnershipEntryDTO, ContractDTO

  Sales:
    SalesEntryDTO, RecordEntryRequest

  Calculation / statements:
    CalculationResultDTO, AuthorSplitDTO, StatementDTO

  Period close:
    ClosePeriodRequest, CloseResultDTO, BatchCloseDTO, StatementRunDTO

  Projection:
    ProjectionRequest, ProjectionDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

CONVENTIONS:
  - Amounts and rates are decimal strings, never floats
  - Period bounds are dates ("2025-07-01"), instants are RFC 3339
  - Contract payloads reuse catalog.ContractJSON, the same wire format
    the store persists

SEE ALSO:
  - handlers.go: Uses these types
  - catalog/factory.go: ContractJSON type
*/
package api

import (
	"time"

	"github.com/warp/royalty-engine/catalog"
	"github.com/warp/royalty-engine/royalty"
	"github.com/warp/royalty-engine/statement"
)

// =============================================================================
// CATALOG TYPES
// =============================================================================

// AuthorDTO represents a royalty recipient in API responses.
type AuthorDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CreateAuthorRequest is the request to create an author. ID is optional;
// one is generated when absent.
type CreateAuthorRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// TitleDTO represents a published work with its per-format list prices.
type TitleDTO struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	ReleasedAt string            `json:"released_at,omitempty"`
	Currency   string            `json:"currency"`
	ListPrices map[string]string `json:"list_prices"`
}

// CreateTitleRequest is the request to create a title. List prices are
// decimal strings keyed by format ID ("hardcover": "28.00").
type CreateTitleRequest struct {
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name"`
	ReleasedAt string            `json:"released_at,omitempty"`
	Currency   string            `json:"currency,omitempty"`
	ListPrices map[string]string `json:"list_prices"`
}

// OwnershipEntryDTO is one author's share of a title. Entries are ordered;
// the first is the lead author whose contract prices the title total.
type OwnershipEntryDTO struct {
	AuthorID   string `json:"author_id"`
	Percentage string `json:"percentage"`
}

// SetOwnershipRequest replaces a title's roster.
type SetOwnershipRequest struct {
	Entries []OwnershipEntryDTO `json:"entries"`
}

// ContractDTO is the contract wire format plus derived advance state.
type ContractDTO struct {
	catalog.ContractJSON
	AdvanceRemaining string `json:"advance_remaining"`
}

// =============================================================================
// SALES LEDGER TYPES
// =============================================================================

// SalesEntryDTO is one recorded sale or return.
type SalesEntryDTO struct {
	ID         string `json:"id"`
	TitleID    string `json:"title_id"`
	FormatID   string `json:"format_id"`
	Kind       string `json:"kind"`
	Quantity   int64  `json:"quantity"`
	Status     string `json:"status"`
	OccurredAt string `json:"occurred_at"`
	RecordedAt string `json:"recorded_at"`
	Source     string `json:"source,omitempty"`
}

// RecordEntryRequest is the request to record a sale or a return. The ID
// doubles as the idempotency key; a retried feed write with the same ID
// comes back 409 instead of double-counting.
type RecordEntryRequest struct {
	ID         string `json:"id,omitempty"`
	TitleID    string `json:"title_id"`
	FormatID   string `json:"format_id"`
	Quantity   int64  `json:"quantity"`
	OccurredAt string `json:"occurred_at,omitempty"`
	Source     string `json:"source,omitempty"`
}

// =============================================================================
// CALCULATION AND STATEMENT TYPES
// =============================================================================

// AuthorSplitDTO is one author's share of a period calculation.
type AuthorSplitDTO struct {
	AuthorID         string `json:"author_id"`
	ContractID       string `json:"contract_id"`
	Percentage       string `json:"percentage"`
	SplitAmount      string `json:"split_amount"`
	Recoupment       string `json:"recoupment"`
	NetPayable       string `json:"net_payable"`
	AdvanceRemaining string `json:"advance_remaining"`
}

// CalculationResultDTO is the full outcome of one title/period calculation.
type CalculationResultDTO struct {
	TitleID         string            `json:"title_id"`
	PeriodStart     string            `json:"period_start"`
	PeriodEnd       string            `json:"period_end"`
	PeriodLabel     string            `json:"period_label"`
	Currency        string            `json:"currency"`
	TitleTotal      string            `json:"title_total"`
	IsSplit         bool              `json:"is_split"`
	Authors         []AuthorSplitDTO  `json:"authors"`
	FormatRoyalties map[string]string `json:"format_royalties"`
}

// StatementDTO is one frozen per-author statement line.
type StatementDTO struct {
	ID               string `json:"id"`
	ContractID       string `json:"contract_id"`
	AuthorID         string `json:"author_id"`
	TitleID          string `json:"title_id"`
	PeriodStart      string `json:"period_start"`
	PeriodEnd        string `json:"period_end"`
	PeriodLabel      string `json:"period_label"`
	Currency         string `json:"currency"`
	TitleTotal       string `json:"title_total"`
	Percentage       string `json:"percentage"`
	SplitAmount      string `json:"split_amount"`
	Recoupment       string `json:"recoupment"`
	NetPayable       string `json:"net_payable"`
	AdvanceRemaining string `json:"advance_remaining"`
	IsSplit          bool   `json:"is_split"`
	GeneratedAt      string `json:"generated_at"`
}

// AuthorStatementsDTO aggregates one author's statements across titles,
// with per-currency totals so contracts in different currencies never
// sum into one number.
type AuthorStatementsDTO struct {
	AuthorID        string            `json:"author_id"`
	Statements      []StatementDTO    `json:"statements"`
	TotalNetPayable map[string]string `json:"total_net_payable"`
	TotalRecouped   map[string]string `json:"total_recouped"`
}

// =============================================================================
// PERIOD CLOSE TYPES
// =============================================================================

// ClosePeriodRequest selects the statement period to close. With an empty
// body the most recently ended period is closed. Date picks the period
// containing it; explicit bounds override the configured scheme entirely.
type ClosePeriodRequest struct {
	Date        string `json:"date,omitempty"`
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`
}

// CloseResultDTO is one title's close outcome.
type CloseResultDTO struct {
	TitleID    string                `json:"title_id"`
	Skipped    bool                  `json:"skipped"`
	Result     *CalculationResultDTO `json:"result,omitempty"`
	Statements []StatementDTO        `json:"statements,omitempty"`
}

// CloseFailureDTO names a title whose close failed and why.
type CloseFailureDTO struct {
	TitleID string `json:"title_id"`
	Error   string `json:"error"`
}

// BatchCloseDTO reports a whole-catalog close.
type BatchCloseDTO struct {
	PeriodStart string            `json:"period_start"`
	PeriodEnd   string            `json:"period_end"`
	PeriodLabel string            `json:"period_label"`
	Closed      []CloseResultDTO  `json:"closed"`
	Failures    []CloseFailureDTO `json:"failures"`
}

// PeriodDTO describes one statement window under the configured scheme.
type PeriodDTO struct {
	Scheme      string `json:"scheme"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	PeriodLabel string `json:"period_label"`
}

// StatementRunDTO is one close-run record.
type StatementRunDTO struct {
	ID            string `json:"id"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	PeriodLabel   string `json:"period_label"`
	Trigger       string `json:"trigger"`
	Status        string `json:"status"`
	TitlesClosed  int    `json:"titles_closed"`
	TitlesSkipped int    `json:"titles_skipped"`
	TitlesFailed  int    `json:"titles_failed"`
	Error         string `json:"error,omitempty"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at,omitempty"`
}

// =============================================================================
// PROJECTION TYPES
// =============================================================================

// PaceDTO is the assumed steady per-period sales rate for one format.
// UnitPrice defaults to the title's list price when omitted.
type PaceDTO struct {
	FormatID       string `json:"format_id"`
	UnitsPerPeriod int64  `json:"units_per_period"`
	UnitPrice      string `json:"unit_price,omitempty"`
}

// ProjectionRequest asks when a contract's advance earns out at an assumed
// sales pace. Percentage defaults to the author's share on the title's
// roster.
type ProjectionRequest struct {
	Percentage string    `json:"percentage,omitempty"`
	Pace       []PaceDTO `json:"pace"`
	MaxPeriods int       `json:"max_periods,omitempty"`
}

// ProjectedPeriodDTO is one simulated period's outcome.
type ProjectedPeriodDTO struct {
	Index          int    `json:"index"`
	Royalty        string `json:"royalty"`
	Recoupment     string `json:"recoupment"`
	NetPayable     string `json:"net_payable"`
	RemainingAfter string `json:"remaining_after"`
}

// ProjectionDTO reports whether and when the advance earns out.
type ProjectionDTO struct {
	ContractID        string               `json:"contract_id"`
	RemainingAdvance  string               `json:"remaining_advance"`
	EarnsOut          bool                 `json:"earns_out"`
	PeriodsToEarnOut  int                  `json:"periods_to_earn_out"`
	ProjectedRecouped string               `json:"projected_recouped"`
	ProjectedNet      string               `json:"projected_net"`
	Periods           []ProjectedPeriodDTO `json:"periods"`
}

// =============================================================================
// AUDIT, SCENARIO AND ERROR TYPES
// =============================================================================

// AuditEntryDTO is one audit trail record.
type AuditEntryDTO struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	TitleID    string         `json:"title_id,omitempty"`
	AuthorID   string         `json:"author_id,omitempty"`
	ContractID string         `json:"contract_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

const dateLayout = "2006-01-02"

func toAuthorDTO(a royalty.Author) AuthorDTO {
	return AuthorDTO{ID: string(a.ID), Name: a.Name, Email: a.Email}
}

func toAuthorDTOs(authors []royalty.Author) []AuthorDTO {
	dtos := make([]AuthorDTO, len(authors))
	for i, a := range authors {
		dtos[i] = toAuthorDTO(a)
	}
	return dtos
}

func toTitleDTO(t royalty.Title) TitleDTO {
	prices := make(map[string]string, len(t.ListPrices))
	for formatID, price := range t.ListPrices {
		prices[formatID] = price.StringFixed()
	}
	dto := TitleDTO{
		ID:         string(t.ID),
		Name:       t.Name,
		Currency:   string(t.Currency),
		ListPrices: prices,
	}
	if !t.ReleasedAt.IsZero() {
		dto.ReleasedAt = t.ReleasedAt.Format(dateLayout)
	}
	return dto
}

func toTitleDTOs(titles []royalty.Title) []TitleDTO {
	dtos := make([]TitleDTO, len(titles))
	for i, t := range titles {
		dtos[i] = toTitleDTO(t)
	}
	return dtos
}

func toOwnershipDTOs(entries []royalty.OwnershipEntry) []OwnershipEntryDTO {
	dtos := make([]OwnershipEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = OwnershipEntryDTO{
			AuthorID:   string(e.AuthorID),
			Percentage: e.Percentage.String(),
		}
	}
	return dtos
}

func toContractDTO(factory *catalog.ContractFactory, c royalty.Contract) ContractDTO {
	return ContractDTO{
		ContractJSON:     factory.ToJSON(c),
		AdvanceRemaining: c.RemainingAdvance().StringFixed(),
	}
}

func toSalesEntryDTO(e royalty.SalesEntry) SalesEntryDTO {
	return SalesEntryDTO{
		ID:         e.ID,
		TitleID:    string(e.TitleID),
		FormatID:   e.FormatID,
		Kind:       string(e.Kind),
		Quantity:   e.Quantity,
		Status:     string(e.Status),
		OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
		RecordedAt: e.RecordedAt.UTC().Format(time.RFC3339),
		Source:     e.Source,
	}
}

func toSalesEntryDTOs(entries []royalty.SalesEntry) []SalesEntryDTO {
	dtos := make([]SalesEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toSalesEntryDTO(e)
	}
	return dtos
}

func toCalculationResultDTO(r *royalty.CalculationResult) *CalculationResultDTO {
	if r == nil {
		return nil
	}
	authors := make([]AuthorSplitDTO, len(r.AuthorSplits))
	for i, s := range r.AuthorSplits {
		authors[i] = AuthorSplitDTO{
			AuthorID:         string(s.AuthorID),
			ContractID:       string(s.ContractID),
			Percentage:       s.Percentage.String(),
			SplitAmount:      s.SplitAmount.StringFixed(),
			Recoupment:       s.Recoupment.StringFixed(),
			NetPayable:       s.NetPayable.StringFixed(),
			AdvanceRemaining: s.Advance.RemainingAfterThisPeriod.StringFixed(),
		}
	}
	formats := make(map[string]string, len(r.FormatRoyalties))
	for formatID, amount := range r.FormatRoyalties {
		formats[formatID] = amount.StringFixed()
	}
	return &CalculationResultDTO{
		TitleID:         string(r.TitleID),
		PeriodStart:     r.Period.Start.Format(dateLayout),
		PeriodEnd:       r.Period.End.Format(dateLayout),
		PeriodLabel:     r.Period.Label(),
		Currency:        string(r.TitleTotalRoyalty.Currency),
		TitleTotal:      r.TitleTotalRoyalty.StringFixed(),
		IsSplit:         r.IsSplitCalculation,
		Authors:         authors,
		FormatRoyalties: formats,
	}
}

func toStatementDTO(st royalty.Statement) StatementDTO {
	return StatementDTO{
		ID:               string(st.ID),
		ContractID:       string(st.ContractID),
		AuthorID:         string(st.AuthorID),
		TitleID:          string(st.TitleID),
		PeriodStart:      st.PeriodStart.Format(dateLayout),
		PeriodEnd:        st.PeriodEnd.Format(dateLayout),
		PeriodLabel:      st.PeriodLabel,
		Currency:         string(st.TitleTotal.Currency),
		TitleTotal:       st.TitleTotal.StringFixed(),
		Percentage:       st.Percentage.String(),
		SplitAmount:      st.SplitAmount.StringFixed(),
		Recoupment:       st.Recoupment.StringFixed(),
		NetPayable:       st.NetPayable.StringFixed(),
		AdvanceRemaining: st.AdvanceRemaining.StringFixed(),
		IsSplit:          st.IsSplit,
		GeneratedAt:      st.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

func toStatementDTOs(statements []royalty.Statement) []StatementDTO {
	dtos := make([]StatementDTO, len(statements))
	for i, st := range statements {
		dtos[i] = toStatementDTO(st)
	}
	return dtos
}

func toCloseResultDTO(cr statement.CloseResult) CloseResultDTO {
	return CloseResultDTO{
		TitleID:    string(cr.TitleID),
		Skipped:    cr.Skipped,
		Result:     toCalculationResultDTO(cr.Result),
		Statements: toStatementDTOs(cr.Statements),
	}
}

func toBatchCloseDTO(batch *statement.BatchResult) BatchCloseDTO {
	dto := BatchCloseDTO{
		PeriodStart: batch.Period.Start.Format(dateLayout),
		PeriodEnd:   batch.Period.End.Format(dateLayout),
		PeriodLabel: batch.Period.Label(),
		Closed:      make([]CloseResultDTO, len(batch.Closed)),
		Failures:    make([]CloseFailureDTO, len(batch.Failures)),
	}
	for i, cr := range batch.Closed {
		dto.Closed[i] = toCloseResultDTO(cr)
	}
	for i, f := range batch.Failures {
		dto.Failures[i] = CloseFailureDTO{TitleID: string(f.TitleID), Error: f.Err.Error()}
	}
	return dto
}

func toStatementRunDTO(run royalty.StatementRun) StatementRunDTO {
	dto := StatementRunDTO{
		ID:            run.ID,
		PeriodStart:   run.PeriodStart.Format(dateLayout),
		PeriodEnd:     run.PeriodEnd.Format(dateLayout),
		PeriodLabel:   run.PeriodLabel,
		Trigger:       run.Trigger,
		Status:        string(run.Status),
		TitlesClosed:  run.TitlesClosed,
		TitlesSkipped: run.TitlesSkipped,
		TitlesFailed:  run.TitlesFailed,
		Error:         run.Error,
		StartedAt:     run.StartedAt.UTC().Format(time.RFC3339),
	}
	if run.FinishedAt != nil {
		dto.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toProjectionDTO(contractID royalty.ContractID, r *royalty.ProjectionResult) ProjectionDTO {
	periods := make([]ProjectedPeriodDTO, len(r.Periods))
	for i, p := range r.Periods {
		periods[i] = ProjectedPeriodDTO{
			Index:          p.Index,
			Royalty:        p.Royalty.StringFixed(),
			Recoupment:     p.Recoupment.StringFixed(),
			NetPayable:     p.NetPayable.StringFixed(),
			RemainingAfter: p.RemainingAfter.StringFixed(),
		}
	}
	return ProjectionDTO{
		ContractID:        string(contractID),
		RemainingAdvance:  r.RemainingAdvance.StringFixed(),
		EarnsOut:          r.EarnsOut,
		PeriodsToEarnOut:  r.PeriodsToEarnOut,
		ProjectedRecouped: r.ProjectedRecouped.StringFixed(),
		ProjectedNet:      r.ProjectedNet.StringFixed(),
		Periods:           periods,
	}
}

func toAuditEntryDTO(e royalty.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         e.ID,
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339),
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		TitleID:    string(e.TitleID),
		AuthorID:   string(e.AuthorID),
		ContractID: string(e.ContractID),
		Payload:    e.Payload,
	}
}

func toAuditEntryDTOs(entries []royalty.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	return dtos
}
