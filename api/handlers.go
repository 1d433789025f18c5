/*
handlers.go - HTTP API handlers for the royalty engine

PURPOSE:
  Exposes the royalty engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Authors:
    GET    /api/authors                    List all authors
    POST   /api/authors                    Create author
    GET    /api/authors/{id}               Get author details
    GET    /api/authors/{id}/statements    Statements across all titles

  Titles:
    GET    /api/titles                     List all titles
    POST   /api/titles                     Create title with list prices
    GET    /api/titles/{id}                Get title details
    GET    /api/titles/{id}/ownership      Get ownership roster
    PUT    /api/titles/{id}/ownership      Replace ownership roster
    GET    /api/titles/{id}/contracts      Contracts attached to title
    GET    /api/titles/{id}/sales          Ledger entries for title
    GET    /api/titles/{id}/statements     Statements for title
    POST   /api/titles/{id}/close          Close one title for a period

  Contracts:
    POST   /api/contracts                  Create or amend a contract
    GET    /api/contracts/{id}             Get contract details
    POST   /api/contracts/{id}/projection  Earn-out projection

  Sales:
    POST   /api/sales                      Record a sale
    POST   /api/returns                    Record a return (pending)
    GET    /api/returns/pending            Returns awaiting a decision
    POST   /api/returns/{id}/approve       Approve a pending return
    POST   /api/returns/{id}/reject        Reject a pending return

  Periods:
    GET    /api/periods/current            Current and previous period
    POST   /api/periods/close              Close a period for all titles
    GET    /api/runs                       Close-run history

  Audit:
    GET    /api/audit                      Query the audit trail

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input (bad JSON, bad dates, bad decimals)
  - 404: Resource not found
  - 409: Conflict (duplicate entry, period already closed)
  - 422: Valid JSON but unusable data (bad roster sum, bad schedule)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. The optional X-Actor-ID
  header feeds the audit trail; it is informational, not an identity.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/royalty-engine/catalog"
	"github.com/warp/royalty-engine/royalty"
	"github.com/warp/royalty-engine/statement"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      royalty.TxStore
	Ledger     royalty.SalesLedger
	Engine     *royalty.CalculationEngine
	Projection *royalty.ProjectionEngine
	Factory    *catalog.ContractFactory
	Runner     *statement.Runner
	Periods    royalty.PeriodConfig
	Logger     zerolog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store and period calendar.
func NewHandler(store royalty.TxStore, periods royalty.PeriodConfig, logger zerolog.Logger) *Handler {
	runner := statement.NewRunner(store, logger)
	return &Handler{
		Store:      store,
		Ledger:     runner.Ledger,
		Engine:     runner.Engine,
		Projection: &royalty.ProjectionEngine{},
		Factory:    catalog.NewContractFactory(),
		Runner:     runner,
		Periods:    periods,
		Logger:     logger,
	}
}

// =============================================================================
// AUTHOR HANDLERS
// =============================================================================

// ListAuthors returns all authors.
// GET /api/authors
func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.Store.ListAuthors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list authors", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthorDTOs(authors))
}

// CreateAuthor creates a new author.
// POST /api/authors
func (h *Handler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req CreateAuthorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Author name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = "auth-" + uuid.NewString()
	}

	author := royalty.Author{
		ID:    royalty.AuthorID(req.ID),
		Name:  req.Name,
		Email: req.Email,
	}
	if err := h.Store.PutAuthor(r.Context(), author); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create author", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuthorDTO(author))
}

// GetAuthor returns a single author.
// GET /api/authors/{authorID}
func (h *Handler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	id := royalty.AuthorID(chi.URLParam(r, "authorID"))

	author, err := h.Store.GetAuthor(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get author", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthorDTO(author))
}

// GetAuthorStatements returns an author's statements across all titles,
// with per-currency totals.
// GET /api/authors/{authorID}/statements
func (h *Handler) GetAuthorStatements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := royalty.AuthorID(chi.URLParam(r, "authorID"))

	if _, err := h.Store.GetAuthor(ctx, id); err != nil {
		writeDomainError(w, "Failed to get author", err)
		return
	}
	statements, err := h.Store.StatementsForAuthor(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get statements", err)
		return
	}

	netTotals := make(map[string]royalty.Money)
	recoupedTotals := make(map[string]royalty.Money)
	for _, st := range statements {
		cur := string(st.TitleTotal.Currency)
		if total, ok := netTotals[cur]; ok {
			netTotals[cur] = total.Add(st.NetPayable)
			recoupedTotals[cur] = recoupedTotals[cur].Add(st.Recoupment)
		} else {
			netTotals[cur] = st.NetPayable
			recoupedTotals[cur] = st.Recoupment
		}
	}

	dto := AuthorStatementsDTO{
		AuthorID:        string(id),
		Statements:      toStatementDTOs(statements),
		TotalNetPayable: make(map[string]string, len(netTotals)),
		TotalRecouped:   make(map[string]string, len(recoupedTotals)),
	}
	for cur, total := range netTotals {
		dto.TotalNetPayable[cur] = total.StringFixed()
	}
	for cur, total := range recoupedTotals {
		dto.TotalRecouped[cur] = total.StringFixed()
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// TITLE HANDLERS
// =============================================================================

// ListTitles returns all titles.
// GET /api/titles
func (h *Handler) ListTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.Store.ListTitles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list titles", err)
		return
	}
	writeJSON(w, http.StatusOK, toTitleDTOs(titles))
}

// CreateTitle creates a new title with its per-format list prices.
// POST /api/titles
func (h *Handler) CreateTitle(w http.ResponseWriter, r *http.Request) {
	var req CreateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Title name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = "title-" + uuid.NewString()
	}

	currency := royalty.Currency(strings.ToUpper(strings.TrimSpace(req.Currency)))
	if currency == "" {
		currency = royalty.USD
	}

	prices := make(map[string]royalty.Money, len(req.ListPrices))
	for formatID, raw := range req.ListPrices {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid list price for format %q", formatID), err)
			return
		}
		if !value.IsPositive() {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("List price for format %q must be positive", formatID), nil)
			return
		}
		prices[formatID] = royalty.Money{Value: value, Currency: currency}
	}

	title := royalty.Title{
		ID:         royalty.TitleID(req.ID),
		Name:       req.Name,
		Currency:   currency,
		ListPrices: prices,
	}
	if req.ReleasedAt != "" {
		released, err := time.Parse(dateLayout, req.ReleasedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid released_at format (use YYYY-MM-DD)", err)
			return
		}
		title.ReleasedAt = released
	}

	if err := h.Store.PutTitle(r.Context(), title); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create title", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTitleDTO(title))
}

// GetTitle returns a single title.
// GET /api/titles/{titleID}
func (h *Handler) GetTitle(w http.ResponseWriter, r *http.Request) {
	id := royalty.TitleID(chi.URLParam(r, "titleID"))

	title, err := h.Store.GetTitle(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get title", err)
		return
	}
	writeJSON(w, http.StatusOK, toTitleDTO(title))
}

// GetOwnership returns a title's ownership roster in statement order.
// GET /api/titles/{titleID}/ownership
func (h *Handler) GetOwnership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := royalty.TitleID(chi.URLParam(r, "titleID"))

	if _, err := h.Store.GetTitle(ctx, id); err != nil {
		writeDomainError(w, "Failed to get title", err)
		return
	}
	entries, err := h.Store.OwnershipFor(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get ownership", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title_id": string(id),
		"entries":  toOwnershipDTOs(entries),
	})
}

// SetOwnership replaces a title's ownership roster. Percentages must sum
// to exactly 100; the first entry becomes the lead author.
// PUT /api/titles/{titleID}/ownership
func (h *Handler) SetOwnership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := royalty.TitleID(chi.URLParam(r, "titleID"))

	var req SetOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, err := h.Store.GetTitle(ctx, id); err != nil {
		writeDomainError(w, "Failed to get title", err)
		return
	}

	entries := make([]royalty.OwnershipEntry, len(req.Entries))
	for i, e := range req.Entries {
		pct, err := decimal.NewFromString(e.Percentage)
		if err != nil {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid percentage for author %s", e.AuthorID), err)
			return
		}
		if _, err := h.Store.GetAuthor(ctx, royalty.AuthorID(e.AuthorID)); err != nil {
			writeDomainError(w, fmt.Sprintf("Roster references author %s", e.AuthorID), err)
			return
		}
		entries[i] = royalty.OwnershipEntry{
			AuthorID:   royalty.AuthorID(e.AuthorID),
			Percentage: pct,
		}
	}
	if err := royalty.ValidateOwnership(id, entries); err != nil {
		writeDomainError(w, "Invalid ownership roster", err)
		return
	}

	if err := h.Store.SetOwnership(ctx, id, entries); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to set ownership", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title_id": string(id),
		"entries":  toOwnershipDTOs(entries),
	})
}

// ListTitleContracts returns every contract attached to a title.
// GET /api/titles/{titleID}/contracts
func (h *Handler) ListTitleContracts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := royalty.TitleID(chi.URLParam(r, "titleID"))

	if _, err := h.Store.GetTitle(ctx, id); err != nil {
		writeDomainError(w, "Failed to get title", err)
		return
	}
	contracts, err := h.Store.ContractsForTitle(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}
	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(h.Factory, c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListTitleSales returns a title's ledger entries, optionally bounded by
// ?from= and ?to= (dates or RFC 3339, to exclusive).
// GET /api/titles/{titleID}/sales
func (h *Handler) ListTitleSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := royalty.TitleID(chi.URLParam(r, "titleID"))

	if _, err := h.Store.GetTitle(ctx, id); err != nil {
		writeDomainError(w, "Failed to get title", err)
		return
	}

	var (
		entries []royalty.SalesEntry
		err     error
	)
	fromParam := r.URL.Query().Get("from")
	toParam := r.URL.Query().Get("to")
	if fromParam != "" || toParam != "" {
		from, perr := parseInstantOrZero(fromParam)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid from parameter", perr)
			return
		}
		to, perr := parseInstantOrZero(toParam)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid to parameter", perr)
			return
		}
		if to.IsZero() {
			to = time.Now().UTC().Add(24 * time.Hour)
		}
		entries, err = h.Store.LoadRange(ctx, id, from, to)
	} else {
		entries, err = h.Store.Load(ctx, id)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load sales", err)
		return
	}
	writeJSON(w, http.StatusOK, toSalesEntryDTOs(entries))
}

// GetTitleStatements returns all statements posted for a title.
// GET /api/titles/{titleID}/statements
func (h *Handler) GetTitleStatements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := royalty.TitleID(chi.URLParam(r, "titleID"))

	if _, err := h.Store.GetTitle(ctx, id); err != nil {
		writeDomainError(w, "Failed to get title", err)
		return
	}
	statements, err := h.Store.StatementsForTitle(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get statements", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTOs(statements))
}

// CloseTitle runs the period close for a single title. Closing the same
// period twice is a no-op reported as skipped.
// POST /api/titles/{titleID}/close
func (h *Handler) CloseTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := royalty.TitleID(chi.URLParam(r, "titleID"))

	var req ClosePeriodRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, err := h.resolveClosePeriod(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid close period", err)
		return
	}

	result, err := h.Runner.CloseTitle(ctx, id, period)
	if err != nil {
		writeDomainError(w, "Failed to close title", err)
		return
	}
	writeJSON(w, http.StatusOK, toCloseResultDTO(*result))
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// CreateContract creates or amends a contract from its JSON wire format.
// Re-posting with the same ID amends; a second contract for the same
// (author, title) pair is a conflict.
// POST /api/contracts
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req catalog.ContractJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = "con-" + uuid.NewString()
	}

	contract, err := h.Factory.FromJSON(req)
	if err != nil {
		if royalty.IsClientError(err) {
			writeError(w, http.StatusUnprocessableEntity, "Invalid contract", err)
		} else {
			writeError(w, http.StatusBadRequest, "Invalid contract", err)
		}
		return
	}

	if _, err := h.Store.GetAuthor(ctx, contract.AuthorID); err != nil {
		writeDomainError(w, fmt.Sprintf("Contract references author %s", contract.AuthorID), err)
		return
	}
	title, err := h.Store.GetTitle(ctx, contract.TitleID)
	if err != nil {
		writeDomainError(w, fmt.Sprintf("Contract references title %s", contract.TitleID), err)
		return
	}
	if title.Currency != contract.Currency {
		writeError(w, http.StatusUnprocessableEntity, "Contract currency does not match title",
			fmt.Errorf("contract is %s, title %s is %s", contract.Currency, title.ID, title.Currency))
		return
	}

	if err := h.Store.PutContract(ctx, *contract); err != nil {
		writeDomainError(w, "Failed to save contract", err)
		return
	}
	h.appendAudit(ctx, royalty.AuditEntry{
		ActorID:    actorID(r),
		Action:     royalty.AuditContractChanged,
		TitleID:    contract.TitleID,
		AuthorID:   contract.AuthorID,
		ContractID: contract.ID,
		Payload: map[string]any{
			"mode":         string(contract.Mode),
			"advance_paid": contract.AdvancePaid.StringFixed(),
		},
	})
	writeJSON(w, http.StatusCreated, toContractDTO(h.Factory, *contract))
}

// GetContract returns a single contract.
// GET /api/contracts/{contractID}
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id := royalty.ContractID(chi.URLParam(r, "contractID"))

	contract, err := h.Store.GetContract(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(h.Factory, contract))
}

// ProjectEarnOut simulates future periods at an assumed sales pace and
// reports when the contract's advance earns out.
// POST /api/contracts/{contractID}/projection
func (h *Handler) ProjectEarnOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := royalty.ContractID(chi.URLParam(r, "contractID"))

	contract, err := h.Store.GetContract(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to get contract", err)
		return
	}
	title, err := h.Store.GetTitle(ctx, contract.TitleID)
	if err != nil {
		writeDomainError(w, "Failed to get contract's title", err)
		return
	}

	var req ProjectionRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	percentage, err := h.resolvePercentage(ctx, req.Percentage, contract)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid percentage", err)
		return
	}

	pace := make([]royalty.FormatPace, len(req.Pace))
	lifetime := make(map[string]int64, len(req.Pace))
	now := time.Now().UTC()
	for i, p := range req.Pace {
		if p.FormatID == "" {
			writeError(w, http.StatusBadRequest, "Pace entry needs a format_id", nil)
			return
		}
		price, ok := title.ListPrices[p.FormatID]
		if p.UnitPrice != "" {
			value, perr := decimal.NewFromString(p.UnitPrice)
			if perr != nil {
				writeError(w, http.StatusBadRequest,
					fmt.Sprintf("Invalid unit price for format %q", p.FormatID), perr)
				return
			}
			price = royalty.Money{Value: value, Currency: contract.Currency}
		} else if !ok {
			writeError(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("No list price for format %q and no unit_price given", p.FormatID), nil)
			return
		}
		pace[i] = royalty.FormatPace{
			FormatID:       p.FormatID,
			UnitsPerPeriod: p.UnitsPerPeriod,
			UnitPrice:      price,
		}
		sold, lerr := h.Ledger.LifetimeUnits(ctx, contract.TitleID, p.FormatID, now)
		if lerr != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load lifetime sales", lerr)
			return
		}
		lifetime[p.FormatID] = sold
	}

	result, err := h.Projection.Project(royalty.ProjectionInput{
		Contract:   contract,
		Percentage: percentage,
		Pace:       pace,
		Lifetime:   lifetime,
		MaxPeriods: req.MaxPeriods,
	})
	if err != nil {
		if royalty.IsClientError(err) {
			writeError(w, http.StatusUnprocessableEntity, "Projection failed", err)
		} else {
			writeError(w, http.StatusBadRequest, "Projection failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toProjectionDTO(id, result))
}

// resolvePercentage parses an explicit percentage or falls back to the
// author's share on the title's roster. A title with no roster projects
// at 100, the single-author convention.
func (h *Handler) resolvePercentage(ctx context.Context, raw string, contract royalty.Contract) (decimal.Decimal, error) {
	if raw != "" {
		return decimal.NewFromString(raw)
	}
	roster, err := h.Store.OwnershipFor(ctx, contract.TitleID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	for _, e := range roster {
		if e.AuthorID == contract.AuthorID {
			return e.Percentage, nil
		}
	}
	return decimal.NewFromInt(100), nil
}

// =============================================================================
// SALES HANDLERS
// =============================================================================

// RecordSale appends a sale to the ledger. Sales are approved on entry.
// POST /api/sales
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	h.recordEntry(w, r, royalty.EntrySale)
}

// RecordReturn appends a return to the ledger in pending status. Pending
// returns do not affect calculations until approved.
// POST /api/returns
func (h *Handler) RecordReturn(w http.ResponseWriter, r *http.Request) {
	h.recordEntry(w, r, royalty.EntryReturn)
}

func (h *Handler) recordEntry(w http.ResponseWriter, r *http.Request, kind royalty.EntryKind) {
	ctx := r.Context()

	var req RecordEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TitleID == "" || req.FormatID == "" {
		writeError(w, http.StatusBadRequest, "title_id and format_id are required", nil)
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "Quantity must be positive", nil)
		return
	}
	if _, err := h.Store.GetTitle(ctx, royalty.TitleID(req.TitleID)); err != nil {
		writeDomainError(w, fmt.Sprintf("Entry references title %s", req.TitleID), err)
		return
	}

	now := time.Now().UTC()
	entry := royalty.SalesEntry{
		ID:         req.ID,
		TitleID:    royalty.TitleID(req.TitleID),
		FormatID:   req.FormatID,
		Quantity:   req.Quantity,
		OccurredAt: now,
		RecordedAt: now,
		Source:     req.Source,
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if req.OccurredAt != "" {
		occurred, err := parseInstant(req.OccurredAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid occurred_at (use YYYY-MM-DD or RFC 3339)", err)
			return
		}
		entry.OccurredAt = occurred
	}

	var err error
	var action royalty.AuditAction
	switch kind {
	case royalty.EntrySale:
		entry.Kind = royalty.EntrySale
		entry.Status = royalty.StatusApproved
		action = royalty.AuditSaleRecorded
		err = h.Ledger.RecordSale(ctx, entry)
	default:
		entry.Kind = royalty.EntryReturn
		entry.Status = royalty.StatusPending
		action = royalty.AuditReturnRecorded
		err = h.Ledger.RecordReturn(ctx, entry)
	}
	if err != nil {
		writeDomainError(w, "Failed to record entry", err)
		return
	}

	h.appendAudit(ctx, royalty.AuditEntry{
		ActorID: actorID(r),
		Action:  action,
		TitleID: entry.TitleID,
		Payload: map[string]any{
			"entry_id": entry.ID,
			"format":   entry.FormatID,
			"quantity": entry.Quantity,
			"source":   entry.Source,
		},
	})
	writeJSON(w, http.StatusCreated, toSalesEntryDTO(entry))
}

// ListPendingReturns returns every return still awaiting a decision,
// across all titles. This is the approval queue.
// GET /api/returns/pending
func (h *Handler) ListPendingReturns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	titles, err := h.Store.ListTitles(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load titles", err)
		return
	}

	pending := []SalesEntryDTO{}
	for _, title := range titles {
		entries, err := h.Store.Load(ctx, title.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load entries", err)
			return
		}
		for _, entry := range entries {
			if entry.Kind == royalty.EntryReturn && entry.Status == royalty.StatusPending {
				pending = append(pending, toSalesEntryDTO(entry))
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": pending})
}

// ApproveReturn transitions a pending return to approved, letting it
// count against future calculations.
// POST /api/returns/{entryID}/approve
func (h *Handler) ApproveReturn(w http.ResponseWriter, r *http.Request) {
	h.resolveReturn(w, r, true)
}

// RejectReturn transitions a pending return to rejected.
// POST /api/returns/{entryID}/reject
func (h *Handler) RejectReturn(w http.ResponseWriter, r *http.Request) {
	h.resolveReturn(w, r, false)
}

func (h *Handler) resolveReturn(w http.ResponseWriter, r *http.Request, approve bool) {
	ctx := r.Context()
	entryID := chi.URLParam(r, "entryID")

	exists, err := h.Store.Exists(ctx, entryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up entry", err)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "Sales entry not found", nil)
		return
	}

	// Not-found is ruled out above; what remains is a state conflict
	// (not a return, or already resolved).
	var action royalty.AuditAction
	var status string
	if approve {
		action = royalty.AuditReturnApproved
		status = "approved"
		err = h.Store.ApproveReturn(ctx, entryID)
	} else {
		action = royalty.AuditReturnRejected
		status = "rejected"
		err = h.Store.RejectReturn(ctx, entryID)
	}
	if err != nil {
		writeError(w, http.StatusConflict, "Cannot resolve return", err)
		return
	}

	h.appendAudit(ctx, royalty.AuditEntry{
		ActorID: actorID(r),
		Action:  action,
		Payload: map[string]any{"entry_id": entryID},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"entry_id": entryID,
		"status":   status,
	})
}

// =============================================================================
// PERIOD CLOSE HANDLERS
// =============================================================================

// GetCurrentPeriod reports the period containing today and the most
// recently ended one under the configured calendar.
// GET /api/periods/current
func (h *Handler) GetCurrentPeriod(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	writeJSON(w, http.StatusOK, map[string]any{
		"scheme":   string(h.Periods.Scheme),
		"current":  toPeriodDTO(h.Periods, h.Periods.PeriodFor(now)),
		"previous": toPeriodDTO(h.Periods, h.Periods.Previous(now)),
	})
}

// ClosePeriod closes a period for every title in the catalog and records
// the run. Titles already closed for the period are skipped.
// POST /api/periods/close
func (h *Handler) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ClosePeriodRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, err := h.resolveClosePeriod(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid close period", err)
		return
	}

	batch, run, err := closeAndRecord(ctx, h.Store, h.Runner, period, royalty.TriggerManual, h.Logger)
	if err != nil {
		writeDomainError(w, "Failed to close period", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":    toStatementRunDTO(run),
		"result": toBatchCloseDTO(batch),
	})
}

// ListStatementRuns returns close-run history, newest first.
// GET /api/runs?limit=50
func (h *Handler) ListStatementRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit parameter", err)
			return
		}
		limit = parsed
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	dtos := make([]StatementRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toStatementRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// QueryAuditLog returns audit entries matching the query filters, newest
// first. Filters: title_id, author_id, actor_id, action (comma-separated),
// from, to (dates or RFC 3339, to exclusive).
// GET /api/audit
func (h *Handler) QueryAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter royalty.AuditFilter

	if v := q.Get("title_id"); v != "" {
		id := royalty.TitleID(v)
		filter.TitleID = &id
	}
	if v := q.Get("author_id"); v != "" {
		id := royalty.AuthorID(v)
		filter.AuthorID = &id
	}
	if v := q.Get("actor_id"); v != "" {
		actor := v
		filter.ActorID = &actor
	}
	if v := q.Get("action"); v != "" {
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				filter.Actions = append(filter.Actions, royalty.AuditAction(a))
			}
		}
	}
	if v := q.Get("from"); v != "" {
		from, err := parseInstant(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from parameter", err)
			return
		}
		filter.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseInstant(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to parameter", err)
			return
		}
		filter.To = &to
	}

	entries, err := h.Store.QueryAudit(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit log", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": toAuditEntryDTOs(entries)})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all data. Demo tooling; see also scenario loading.
// POST /api/admin/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// appendAudit records an audit entry, filling ID and timestamp. Audit
// failures are logged, never surfaced; the mutation already succeeded.
func (h *Handler) appendAudit(ctx context.Context, entry royalty.AuditEntry) {
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now().UTC()
	if err := h.Store.AppendAudit(ctx, entry); err != nil {
		h.Logger.Warn().Err(err).Str("action", string(entry.Action)).Msg("audit append failed")
	}
}

// resolveClosePeriod picks the statement period for a close request.
func (h *Handler) resolveClosePeriod(req ClosePeriodRequest) (royalty.Period, error) {
	if req.PeriodStart != "" || req.PeriodEnd != "" {
		if req.PeriodStart == "" || req.PeriodEnd == "" {
			return royalty.Period{}, fmt.Errorf("period_start and period_end must both be set")
		}
		start, err := time.Parse(dateLayout, req.PeriodStart)
		if err != nil {
			return royalty.Period{}, fmt.Errorf("invalid period_start: %w", err)
		}
		end, err := time.Parse(dateLayout, req.PeriodEnd)
		if err != nil {
			return royalty.Period{}, fmt.Errorf("invalid period_end: %w", err)
		}
		period := royalty.Period{Start: start, End: end}
		return period, period.Validate()
	}
	if req.Date != "" {
		at, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			return royalty.Period{}, fmt.Errorf("invalid date: %w", err)
		}
		return h.Periods.PeriodFor(at), nil
	}
	return h.Periods.Previous(time.Now().UTC()), nil
}

func toPeriodDTO(pc royalty.PeriodConfig, p royalty.Period) PeriodDTO {
	return PeriodDTO{
		Scheme:      string(pc.Scheme),
		PeriodStart: p.Start.Format(dateLayout),
		PeriodEnd:   p.End.Format(dateLayout),
		PeriodLabel: p.Label(),
	}
}

// decodeOptional decodes a JSON body, treating an empty body as the zero
// request. Close endpoints default everything.
func decodeOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// parseInstant accepts a date or an RFC 3339 timestamp.
func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}

func parseInstantOrZero(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseInstant(s)
}

// actorID reads the optional X-Actor-ID header for the audit trail.
func actorID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Actor-ID")); v != "" {
		return v
	}
	return "api"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses: conflicts to
// 409, missing resources to 404, unusable data to 422, the rest to 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, royalty.ErrStatementExists),
		errors.Is(err, royalty.ErrDuplicateEntry),
		errors.Is(err, royalty.ErrContractExists):
		writeError(w, http.StatusConflict, message, err)
	case royalty.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case royalty.IsClientError(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
