/*
handlers_test.go - HTTP tests for the REST API

Drives the full router over an in-memory store: catalog CRUD, the sales
and returns workflow, period closes, projections, the audit trail, and
the mapping of domain errors onto 400/404/409/422.
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/royalty-engine/catalog"
	"github.com/warp/royalty-engine/royalty"
	"github.com/warp/royalty-engine/royalty/store"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

// newTestAPI wires a handler over a fresh in-memory store and returns the
// router to drive with recorded requests.
func newTestAPI(t *testing.T) (http.Handler, *Handler) {
	t.Helper()
	h := NewHandler(store.NewTxMemory(), royalty.PeriodConfig{Scheme: royalty.SchemeQuarterly}, zerolog.Nop())
	return NewRouter(h, zerolog.Nop(), nil), h
}

// doJSON performs one request against the router, marshalling body when
// present, and returns the recorder.
func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	return doJSONAs(t, router, method, path, "", body)
}

// doJSONAs is doJSON with an X-Actor-ID header for audit-trail tests.
func doJSONAs(t *testing.T, router http.Handler, method, path, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) *httptest.ResponseRecorder {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

// flatContractJSON is a no-advance 10% hardcover contract in wire form.
func flatContractJSON(id, authorID, titleID string) catalog.ContractJSON {
	return catalog.ContractJSON{
		ID:       id,
		AuthorID: authorID,
		TitleID:  titleID,
		Mode:     "period",
		Currency: "USD",
		Schedules: []catalog.ScheduleJSON{
			{Format: "hardcover", Bands: []catalog.BandJSON{{MinQuantity: 0, Rate: "0.10"}}},
		},
	}
}

// seedCatalog creates an author, a title with a 20.00 hardcover list price,
// a single-author roster and a flat 10% contract, all through the API.
func seedCatalog(t *testing.T, router http.Handler) {
	t.Helper()
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/authors",
		CreateAuthorRequest{ID: "auth-1", Name: "June Harper"}), http.StatusCreated)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID:         "title-1",
		Name:       "The Glass Lake",
		Currency:   "USD",
		ReleasedAt: "2024-09-01",
		ListPrices: map[string]string{"hardcover": "20.00"},
	}), http.StatusCreated)
	mustStatus(t, doJSON(t, router, http.MethodPut, "/api/titles/title-1/ownership", SetOwnershipRequest{
		Entries: []OwnershipEntryDTO{{AuthorID: "auth-1", Percentage: "100"}},
	}), http.StatusOK)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts",
		flatContractJSON("con-1", "auth-1", "title-1")), http.StatusCreated)
}

func seedSale(t *testing.T, router http.Handler, id string, qty int64, occurred string) {
	t.Helper()
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/sales", RecordEntryRequest{
		ID:         id,
		TitleID:    "title-1",
		FormatID:   "hardcover",
		Quantity:   qty,
		OccurredAt: occurred,
		Source:     "ingram",
	}), http.StatusCreated)
}

// closeQ3 is the explicit 2025-Q3 close request used across tests so they
// never depend on the wall clock.
func closeQ3() ClosePeriodRequest {
	return ClosePeriodRequest{PeriodStart: "2025-07-01", PeriodEnd: "2025-10-01"}
}

// =============================================================================
// HEALTH AND LANDING
// =============================================================================

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestAPI(t)

	w := mustStatus(t, doJSON(t, router, http.MethodGet, "/api/health", nil), http.StatusOK)
	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("health status = %q, want ok", body["status"])
	}
}

func TestLandingPageListsEndpoints(t *testing.T) {
	router, _ := newTestAPI(t)

	w := mustStatus(t, doJSON(t, router, http.MethodGet, "/", nil), http.StatusOK)
	if !strings.Contains(w.Body.String(), "Royalty Engine API") {
		t.Error("landing page should name the API")
	}
}

// =============================================================================
// AUTHORS
// =============================================================================

func TestCreateAndGetAuthor(t *testing.T) {
	// GIVEN: A fresh API
	router, _ := newTestAPI(t)

	// WHEN: Creating an author and fetching it back
	w := mustStatus(t, doJSON(t, router, http.MethodPost, "/api/authors", CreateAuthorRequest{
		ID: "auth-1", Name: "June Harper", Email: "june.harper@example.com",
	}), http.StatusCreated)
	var created AuthorDTO
	decode(t, w, &created)

	// THEN: The author round-trips with its fields intact
	if created.ID != "auth-1" || created.Name != "June Harper" {
		t.Errorf("created = %+v", created)
	}

	w = mustStatus(t, doJSON(t, router, http.MethodGet, "/api/authors/auth-1", nil), http.StatusOK)
	var got AuthorDTO
	decode(t, w, &got)
	if got.Email != "june.harper@example.com" {
		t.Errorf("email = %q", got.Email)
	}

	var all []AuthorDTO
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/authors", nil), http.StatusOK), &all)
	if len(all) != 1 {
		t.Errorf("author count = %d, want 1", len(all))
	}
}

func TestCreateAuthorValidation(t *testing.T) {
	router, _ := newTestAPI(t)

	// Missing name is a 400
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/authors",
		CreateAuthorRequest{Email: "x@example.com"}), http.StatusBadRequest)

	// Unknown author is a 404
	mustStatus(t, doJSON(t, router, http.MethodGet, "/api/authors/auth-ghost", nil), http.StatusNotFound)

	// An omitted ID is generated server-side
	w := mustStatus(t, doJSON(t, router, http.MethodPost, "/api/authors",
		CreateAuthorRequest{Name: "Auto ID"}), http.StatusCreated)
	var created AuthorDTO
	decode(t, w, &created)
	if !strings.HasPrefix(created.ID, "auth-") {
		t.Errorf("generated ID = %q, want auth- prefix", created.ID)
	}
}

// =============================================================================
// TITLES AND OWNERSHIP
// =============================================================================

func TestCreateTitleWithListPrices(t *testing.T) {
	// GIVEN: A fresh API
	router, _ := newTestAPI(t)

	// WHEN: Creating a title with per-format prices and a lowercase currency
	w := mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID:         "title-1",
		Name:       "The Glass Lake",
		Currency:   "usd",
		ReleasedAt: "2024-09-01",
		ListPrices: map[string]string{"hardcover": "28.00", "ebook": "9.99"},
	}), http.StatusCreated)

	// THEN: Prices come back as fixed-point strings and the currency is normalized
	var created TitleDTO
	decode(t, w, &created)
	if created.Currency != "USD" {
		t.Errorf("currency = %q, want USD", created.Currency)
	}
	if created.ListPrices["hardcover"] != "28.00" || created.ListPrices["ebook"] != "9.99" {
		t.Errorf("list prices = %v", created.ListPrices)
	}
	if created.ReleasedAt != "2024-09-01" {
		t.Errorf("released_at = %q", created.ReleasedAt)
	}

	mustStatus(t, doJSON(t, router, http.MethodGet, "/api/titles/title-1", nil), http.StatusOK)
}

func TestCreateTitleValidation(t *testing.T) {
	router, _ := newTestAPI(t)

	// Unparseable price
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID: "t-bad", Name: "Bad", ListPrices: map[string]string{"hardcover": "abc"},
	}), http.StatusBadRequest)

	// Non-positive price
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID: "t-neg", Name: "Neg", ListPrices: map[string]string{"hardcover": "-5.00"},
	}), http.StatusBadRequest)

	// Bad release date format
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID: "t-date", Name: "Date", ReleasedAt: "09/01/2024",
	}), http.StatusBadRequest)

	mustStatus(t, doJSON(t, router, http.MethodGet, "/api/titles/title-ghost", nil), http.StatusNotFound)
}

func TestSetOwnershipRoundTrip(t *testing.T) {
	// GIVEN: Two authors and a title
	router, _ := newTestAPI(t)
	for _, a := range []CreateAuthorRequest{{ID: "auth-1", Name: "Ella Marsh"}, {ID: "auth-2", Name: "Theo Voss"}} {
		mustStatus(t, doJSON(t, router, http.MethodPost, "/api/authors", a), http.StatusCreated)
	}
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID: "title-1", Name: "Atlas", ListPrices: map[string]string{"hardcover": "30.00"},
	}), http.StatusCreated)

	// WHEN: Setting a 60/40 roster
	mustStatus(t, doJSON(t, router, http.MethodPut, "/api/titles/title-1/ownership", SetOwnershipRequest{
		Entries: []OwnershipEntryDTO{
			{AuthorID: "auth-1", Percentage: "60"},
			{AuthorID: "auth-2", Percentage: "40"},
		},
	}), http.StatusOK)

	// THEN: The roster reads back in lead-first order
	var got struct {
		Entries []OwnershipEntryDTO `json:"entries"`
	}
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/titles/title-1/ownership", nil), http.StatusOK), &got)
	if len(got.Entries) != 2 {
		t.Fatalf("roster size = %d, want 2", len(got.Entries))
	}
	if got.Entries[0].AuthorID != "auth-1" || got.Entries[0].Percentage != "60" {
		t.Errorf("lead entry = %+v", got.Entries[0])
	}

	// AND: A new roster replaces the old one outright
	mustStatus(t, doJSON(t, router, http.MethodPut, "/api/titles/title-1/ownership", SetOwnershipRequest{
		Entries: []OwnershipEntryDTO{{AuthorID: "auth-2", Percentage: "100"}},
	}), http.StatusOK)
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/titles/title-1/ownership", nil), http.StatusOK), &got)
	if len(got.Entries) != 1 || got.Entries[0].AuthorID != "auth-2" {
		t.Errorf("replaced roster = %+v", got.Entries)
	}
}

func TestSetOwnershipValidation(t *testing.T) {
	router, _ := newTestAPI(t)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/authors",
		CreateAuthorRequest{ID: "auth-1", Name: "Solo"}), http.StatusCreated)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID: "title-1", Name: "Solo Title", ListPrices: map[string]string{"hardcover": "20.00"},
	}), http.StatusCreated)

	// Percentages that do not sum to 100 are unprocessable
	mustStatus(t, doJSON(t, router, http.MethodPut, "/api/titles/title-1/ownership", SetOwnershipRequest{
		Entries: []OwnershipEntryDTO{{AuthorID: "auth-1", Percentage: "70"}},
	}), http.StatusUnprocessableEntity)

	// A roster entry naming an unknown author is a 404
	mustStatus(t, doJSON(t, router, http.MethodPut, "/api/titles/title-1/ownership", SetOwnershipRequest{
		Entries: []OwnershipEntryDTO{
			{AuthorID: "auth-1", Percentage: "50"},
			{AuthorID: "auth-ghost", Percentage: "50"},
		},
	}), http.StatusNotFound)

	// An unparseable percentage is a 400
	mustStatus(t, doJSON(t, router, http.MethodPut, "/api/titles/title-1/ownership", SetOwnershipRequest{
		Entries: []OwnershipEntryDTO{{AuthorID: "auth-1", Percentage: "sixty"}},
	}), http.StatusBadRequest)
}

// =============================================================================
// CONTRACTS
// =============================================================================

func TestContractCreateAmendAndConflict(t *testing.T) {
	// GIVEN: An author and a title
	router, _ := newTestAPI(t)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/authors",
		CreateAuthorRequest{ID: "auth-1", Name: "June Harper"}), http.StatusCreated)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID: "title-1", Name: "The Glass Lake", ListPrices: map[string]string{"hardcover": "28.00"},
	}), http.StatusCreated)

	// WHEN: Creating a contract with a 5,000 advance
	con := flatContractJSON("con-1", "auth-1", "title-1")
	con.AdvancePaid = 5000
	w := mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts", con), http.StatusCreated)

	// THEN: The response carries the derived remaining advance
	var created map[string]any
	decode(t, w, &created)
	if created["id"] != "con-1" {
		t.Errorf("id = %v", created["id"])
	}
	if created["advance_remaining"] != "5000.00" {
		t.Errorf("advance_remaining = %v, want 5000.00", created["advance_remaining"])
	}

	// AND: Re-posting the same ID amends the contract
	con.AdvancePaid = 6000
	decode(t, mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts", con), http.StatusCreated), &created)
	if created["advance_remaining"] != "6000.00" {
		t.Errorf("amended advance_remaining = %v, want 6000.00", created["advance_remaining"])
	}

	// AND: A second contract for the same author and title conflicts
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts",
		flatContractJSON("con-2", "auth-1", "title-1")), http.StatusConflict)

	mustStatus(t, doJSON(t, router, http.MethodGet, "/api/contracts/con-1", nil), http.StatusOK)
	mustStatus(t, doJSON(t, router, http.MethodGet, "/api/contracts/con-ghost", nil), http.StatusNotFound)
}

func TestContractValidation(t *testing.T) {
	router, _ := newTestAPI(t)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/authors",
		CreateAuthorRequest{ID: "auth-1", Name: "June Harper"}), http.StatusCreated)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID: "title-usd", Name: "USD Title", Currency: "USD",
		ListPrices: map[string]string{"hardcover": "28.00"},
	}), http.StatusCreated)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID: "title-eur", Name: "EUR Title", Currency: "EUR",
		ListPrices: map[string]string{"hardcover": "26.00"},
	}), http.StatusCreated)

	// A contract without schedules is rejected
	empty := flatContractJSON("con-empty", "auth-1", "title-usd")
	empty.Schedules = nil
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts", empty), http.StatusBadRequest)

	// A band structure that does not start at zero is unprocessable
	gapped := flatContractJSON("con-gap", "auth-1", "title-usd")
	gapped.Schedules[0].Bands[0].MinQuantity = 500
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts", gapped), http.StatusUnprocessableEntity)

	// A USD contract on a EUR title is unprocessable
	mismatch := flatContractJSON("con-fx", "auth-1", "title-eur")
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts", mismatch), http.StatusUnprocessableEntity)

	// A contract naming an unknown author is a 404
	orphan := flatContractJSON("con-orphan", "auth-ghost", "title-usd")
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts", orphan), http.StatusNotFound)
}

// =============================================================================
// SALES AND RETURNS
// =============================================================================

func TestRecordSaleAndListTitleSales(t *testing.T) {
	// GIVEN: A seeded catalog
	router, _ := newTestAPI(t)
	seedCatalog(t, router)

	// WHEN: Recording two sales in different quarters
	seedSale(t, router, "s-1", 100, "2025-08-10")
	seedSale(t, router, "s-2", 50, "2025-11-05")

	// THEN: The ledger lists both, and range bounds filter them
	var entries []SalesEntryDTO
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/titles/title-1/sales", nil), http.StatusOK), &entries)
	if len(entries) != 2 {
		t.Fatalf("entry count = %d, want 2", len(entries))
	}
	if entries[0].Kind != "sale" || entries[0].Status != "approved" {
		t.Errorf("first entry = %+v", entries[0])
	}

	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet,
		"/api/titles/title-1/sales?from=2025-07-01&to=2025-10-01", nil), http.StatusOK), &entries)
	if len(entries) != 1 || entries[0].ID != "s-1" {
		t.Errorf("Q3 entries = %+v", entries)
	}

	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet,
		"/api/titles/title-1/sales?from=2025-10-01", nil), http.StatusOK), &entries)
	if len(entries) != 1 || entries[0].ID != "s-2" {
		t.Errorf("entries from October = %+v", entries)
	}

	mustStatus(t, doJSON(t, router, http.MethodGet, "/api/titles/title-1/sales?from=bogus", nil), http.StatusBadRequest)

	// AND: Replaying the same entry ID is a conflict, not a double count
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/sales", RecordEntryRequest{
		ID: "s-1", TitleID: "title-1", FormatID: "hardcover", Quantity: 100, OccurredAt: "2025-08-10",
	}), http.StatusConflict)
}

func TestRecordSaleValidation(t *testing.T) {
	router, _ := newTestAPI(t)
	seedCatalog(t, router)

	// Quantity must be positive
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/sales", RecordEntryRequest{
		TitleID: "title-1", FormatID: "hardcover", Quantity: 0,
	}), http.StatusBadRequest)

	// title_id and format_id are required
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/sales", RecordEntryRequest{
		FormatID: "hardcover", Quantity: 10,
	}), http.StatusBadRequest)

	// The title must exist
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/sales", RecordEntryRequest{
		TitleID: "title-ghost", FormatID: "hardcover", Quantity: 10,
	}), http.StatusNotFound)
}

func TestReturnApprovalWorkflow(t *testing.T) {
	// GIVEN: A catalog with one recorded return
	router, _ := newTestAPI(t)
	seedCatalog(t, router)

	w := mustStatus(t, doJSON(t, router, http.MethodPost, "/api/returns", RecordEntryRequest{
		ID: "r-1", TitleID: "title-1", FormatID: "hardcover", Quantity: 40, OccurredAt: "2025-08-20",
	}), http.StatusCreated)
	var recorded SalesEntryDTO
	decode(t, w, &recorded)
	if recorded.Kind != "return" || recorded.Status != "pending" {
		t.Fatalf("recorded return = %+v", recorded)
	}

	// WHEN: Checking the approval queue
	var queue struct {
		Entries []SalesEntryDTO `json:"entries"`
	}
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/returns/pending", nil), http.StatusOK), &queue)
	if len(queue.Entries) != 1 || queue.Entries[0].ID != "r-1" {
		t.Fatalf("pending queue = %+v", queue.Entries)
	}

	// THEN: Approving drains the queue and the decision is terminal
	var resolved map[string]string
	decode(t, mustStatus(t, doJSON(t, router, http.MethodPost, "/api/returns/r-1/approve", nil), http.StatusOK), &resolved)
	if resolved["status"] != "approved" {
		t.Errorf("resolution = %v", resolved)
	}
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/returns/pending", nil), http.StatusOK), &queue)
	if len(queue.Entries) != 0 {
		t.Errorf("queue after approval = %+v", queue.Entries)
	}
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/returns/r-1/approve", nil), http.StatusConflict)

	// AND: Rejection works the same way; unknown entries are 404
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/returns", RecordEntryRequest{
		ID: "r-2", TitleID: "title-1", FormatID: "hardcover", Quantity: 10, OccurredAt: "2025-08-21",
	}), http.StatusCreated)
	decode(t, mustStatus(t, doJSON(t, router, http.MethodPost, "/api/returns/r-2/reject", nil), http.StatusOK), &resolved)
	if resolved["status"] != "rejected" {
		t.Errorf("resolution = %v", resolved)
	}
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/returns/r-ghost/approve", nil), http.StatusNotFound)
}

// =============================================================================
// PERIOD CLOSE
// =============================================================================

func TestCloseTitleEndpoint(t *testing.T) {
	// GIVEN: A seeded catalog with one quarter of sales
	router, _ := newTestAPI(t)
	seedCatalog(t, router)
	seedSale(t, router, "s-1", 100, "2025-08-10")

	// WHEN: Closing the title for Q3 with explicit bounds
	w := mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles/title-1/close", closeQ3()), http.StatusOK)

	// THEN: The statement freezes 100 x 20.00 x 10% = 200.00
	var res CloseResultDTO
	decode(t, w, &res)
	if res.Skipped {
		t.Fatal("first close should not be skipped")
	}
	if res.Result == nil || res.Result.TitleTotal != "200.00" {
		t.Fatalf("result = %+v", res.Result)
	}
	if len(res.Statements) != 1 {
		t.Fatalf("statement count = %d, want 1", len(res.Statements))
	}
	st := res.Statements[0]
	if st.ID != "con-1-2025-Q3" || st.NetPayable != "200.00" || st.IsSplit {
		t.Errorf("statement = %+v", st)
	}

	// AND: The statement is visible on the title and on the author with totals
	var titleStatements []StatementDTO
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/titles/title-1/statements", nil), http.StatusOK), &titleStatements)
	if len(titleStatements) != 1 {
		t.Errorf("title statements = %d, want 1", len(titleStatements))
	}

	var authorView AuthorStatementsDTO
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/authors/auth-1/statements", nil), http.StatusOK), &authorView)
	if authorView.TotalNetPayable["USD"] != "200.00" {
		t.Errorf("author net total = %v", authorView.TotalNetPayable)
	}

	// AND: Closing the same period again is reported as skipped
	decode(t, mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles/title-1/close", closeQ3()), http.StatusOK), &res)
	if !res.Skipped {
		t.Error("second close should be skipped")
	}
}

func TestClosePeriodRecordsRun(t *testing.T) {
	// GIVEN: A seeded catalog with sales
	router, _ := newTestAPI(t)
	seedCatalog(t, router)
	seedSale(t, router, "s-1", 100, "2025-08-10")

	// WHEN: Closing the period across the catalog
	w := mustStatus(t, doJSON(t, router, http.MethodPost, "/api/periods/close", closeQ3()), http.StatusOK)

	// THEN: The response pairs the batch outcome with a completed run record
	var resp struct {
		Run    StatementRunDTO `json:"run"`
		Result BatchCloseDTO   `json:"result"`
	}
	decode(t, w, &resp)
	if resp.Run.Status != "completed" || resp.Run.Trigger != "manual" {
		t.Errorf("run = %+v", resp.Run)
	}
	if resp.Run.TitlesClosed != 1 || resp.Run.TitlesSkipped != 0 || resp.Run.TitlesFailed != 0 {
		t.Errorf("run counts = %d/%d/%d", resp.Run.TitlesClosed, resp.Run.TitlesSkipped, resp.Run.TitlesFailed)
	}
	if resp.Run.PeriodLabel != "2025-Q3" || resp.Run.FinishedAt == "" {
		t.Errorf("run = %+v", resp.Run)
	}
	if len(resp.Result.Closed) != 1 || resp.Result.Closed[0].TitleID != "title-1" {
		t.Errorf("closed = %+v", resp.Result.Closed)
	}

	// AND: The run shows up in history
	var history struct {
		Runs []StatementRunDTO `json:"runs"`
	}
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/runs", nil), http.StatusOK), &history)
	if len(history.Runs) != 1 || history.Runs[0].ID != resp.Run.ID {
		t.Errorf("run history = %+v", history.Runs)
	}
}

func TestClosePeriodValidation(t *testing.T) {
	router, _ := newTestAPI(t)

	// Half-specified explicit bounds
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/periods/close",
		ClosePeriodRequest{PeriodStart: "2025-07-01"}), http.StatusBadRequest)

	// End before start
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/periods/close",
		ClosePeriodRequest{PeriodStart: "2025-10-01", PeriodEnd: "2025-07-01"}), http.StatusBadRequest)

	// Unparseable date
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/periods/close",
		ClosePeriodRequest{Date: "July 1"}), http.StatusBadRequest)
}

func TestGetCurrentPeriod(t *testing.T) {
	router, h := newTestAPI(t)

	var resp struct {
		Scheme   string    `json:"scheme"`
		Current  PeriodDTO `json:"current"`
		Previous PeriodDTO `json:"previous"`
	}
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/periods/current", nil), http.StatusOK), &resp)

	if resp.Scheme != "quarterly" {
		t.Errorf("scheme = %q", resp.Scheme)
	}
	now := time.Now().UTC()
	if want := h.Periods.PeriodFor(now).Label(); resp.Current.PeriodLabel != want {
		t.Errorf("current label = %q, want %q", resp.Current.PeriodLabel, want)
	}
	if want := h.Periods.Previous(now).Label(); resp.Previous.PeriodLabel != want {
		t.Errorf("previous label = %q, want %q", resp.Previous.PeriodLabel, want)
	}
}

// =============================================================================
// PROJECTION
// =============================================================================

func TestProjectionEndpoint(t *testing.T) {
	// GIVEN: A contract with a 1,000 advance and a flat 10% hardcover rate
	router, _ := newTestAPI(t)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/authors",
		CreateAuthorRequest{ID: "auth-1", Name: "June Harper"}), http.StatusCreated)
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/titles", CreateTitleRequest{
		ID: "title-1", Name: "The Glass Lake", ListPrices: map[string]string{"hardcover": "20.00"},
	}), http.StatusCreated)
	mustStatus(t, doJSON(t, router, http.MethodPut, "/api/titles/title-1/ownership", SetOwnershipRequest{
		Entries: []OwnershipEntryDTO{{AuthorID: "auth-1", Percentage: "100"}},
	}), http.StatusOK)
	con := flatContractJSON("con-1", "auth-1", "title-1")
	con.AdvancePaid = 1000
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts", con), http.StatusCreated)

	// WHEN: Projecting at 500 copies per period on the list price
	w := mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts/con-1/projection", ProjectionRequest{
		Pace: []PaceDTO{{FormatID: "hardcover", UnitsPerPeriod: 500}},
	}), http.StatusOK)

	// THEN: 500 x 20.00 x 10% = 1000.00 per period earns out in one period
	var proj ProjectionDTO
	decode(t, w, &proj)
	if proj.RemainingAdvance != "1000.00" {
		t.Errorf("remaining advance = %q", proj.RemainingAdvance)
	}
	if !proj.EarnsOut || proj.PeriodsToEarnOut != 1 {
		t.Errorf("earn-out = %v in %d periods", proj.EarnsOut, proj.PeriodsToEarnOut)
	}
	if len(proj.Periods) != 1 {
		t.Fatalf("period count = %d, want 1", len(proj.Periods))
	}
	p := proj.Periods[0]
	if p.Royalty != "1000.00" || p.Recoupment != "1000.00" || p.RemainingAfter != "0.00" {
		t.Errorf("period = %+v", p)
	}
	if proj.ProjectedRecouped != "1000.00" || proj.ProjectedNet != "0.00" {
		t.Errorf("projection totals = %+v", proj)
	}

	// AND: A format with no list price and no unit price is unprocessable
	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts/con-1/projection", ProjectionRequest{
		Pace: []PaceDTO{{FormatID: "mass_market", UnitsPerPeriod: 100}},
	}), http.StatusUnprocessableEntity)

	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/contracts/con-ghost/projection",
		ProjectionRequest{}), http.StatusNotFound)
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

func TestAuditTrailThroughAPI(t *testing.T) {
	// GIVEN: A catalog where one sale is recorded under a named actor
	router, _ := newTestAPI(t)
	seedCatalog(t, router)
	mustStatus(t, doJSONAs(t, router, http.MethodPost, "/api/sales", "royalty-ops", RecordEntryRequest{
		ID: "s-audit", TitleID: "title-1", FormatID: "hardcover", Quantity: 25, OccurredAt: "2025-08-12",
	}), http.StatusCreated)

	// WHEN: Querying the trail by actor
	var resp struct {
		Entries []AuditEntryDTO `json:"entries"`
	}
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/audit?actor_id=royalty-ops", nil), http.StatusOK), &resp)

	// THEN: Only the named actor's action comes back
	if len(resp.Entries) != 1 {
		t.Fatalf("entry count = %d, want 1", len(resp.Entries))
	}
	e := resp.Entries[0]
	if e.Action != "sale_recorded" || e.ActorID != "royalty-ops" {
		t.Errorf("entry = %+v", e)
	}
	if e.Payload["entry_id"] != "s-audit" {
		t.Errorf("payload = %v", e.Payload)
	}

	// AND: The contract change from seeding is on the trail under its action
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/audit?action=contract_changed", nil), http.StatusOK), &resp)
	if len(resp.Entries) != 1 || resp.Entries[0].ContractID != "con-1" {
		t.Errorf("contract trail = %+v", resp.Entries)
	}

	mustStatus(t, doJSON(t, router, http.MethodGet, "/api/audit?from=bogus", nil), http.StatusBadRequest)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestAdminResetClearsCatalog(t *testing.T) {
	router, _ := newTestAPI(t)
	seedCatalog(t, router)

	mustStatus(t, doJSON(t, router, http.MethodPost, "/api/admin/reset", nil), http.StatusOK)

	var authors []AuthorDTO
	decode(t, mustStatus(t, doJSON(t, router, http.MethodGet, "/api/authors", nil), http.StatusOK), &authors)
	if len(authors) != 0 {
		t.Errorf("authors after reset = %d, want 0", len(authors))
	}
}
