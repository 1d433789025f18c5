/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates authors, titles,
	contracts and sales history, then closes the most recently ended
	statement period so statements are immediately visible.

AVAILABLE SCENARIOS:

	backlist-single:    One author, one title, flat rates
	coauthor-split:     60/40 co-author split with exact-sum statements
	advance-recoupment: Royalties withheld against an unrecouped advance
	lifetime-escalator: A rate band crossed mid-period on lifetime sales
	returns-season:     Mixed formats with returns in every workflow state

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create authors and titles with list prices
 3. Set the ownership roster
 4. Create contracts from catalog plans
 5. Seed the sales ledger
 6. Close the last ended period

DATE HANDLING:

	Scenarios anchor on the most recently ended period under the
	configured calendar, so they stay meaningful whenever loaded.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "coauthor-split"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxx(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - catalog/plans.go: The tier schedules the contracts use
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/royalty-engine/catalog"
	"github.com/warp/royalty-engine/royalty"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "backlist-single",
		Name:        "Single-Author Backlist",
		Description: "One author, one title, flat rates. The simplest catalog: a quarter of sales is closed and the statement shows the royalty with no splits and no advance.",
		Category:    "basics",
	},
	{
		ID:          "coauthor-split",
		Name:        "60/40 Co-Author Split",
		Description: "Two authors share one title 60/40. The title's royalty is computed once, apportioned, and the two statements sum back to the exact total.",
		Category:    "splits",
	},
	{
		ID:          "advance-recoupment",
		Name:        "Advance Recoupment",
		Description: "A title with a large unrecouped advance. The whole period royalty is withheld against the advance and the statement nets to zero. Use the projection endpoint to see when it earns out.",
		Category:    "advances",
	},
	{
		ID:          "lifetime-escalator",
		Name:        "Lifetime Escalator",
		Description: "A hardcover escalator on cumulative sales. History sits just below the 5,000-copy breakpoint, so the closed period crosses into the higher rate mid-period.",
		Category:    "escalators",
	},
	{
		ID:          "returns-season",
		Name:        "Mixed Formats & Returns",
		Description: "Hardcover, ebook and audiobook sales with a wave of returns. Approved returns offset the period, rejected ones do not, and one return is left pending in the approval queue.",
		Category:    "returns",
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenario": current})
}

// LoadScenario resets the database and loads the requested scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset database first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "backlist-single":
		err = h.loadBacklistSingle(ctx)
	case "coauthor-split":
		err = h.loadCoauthorSplit(ctx)
	case "advance-recoupment":
		err = h.loadAdvanceRecoupment(ctx)
	case "lifetime-escalator":
		err = h.loadLifetimeEscalator(ctx)
	case "returns-season":
		err = h.loadReturnsSeason(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Logger.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadBacklistSingle creates one author with one backlist title on flat
// terms and closes the last period.
func (h *Handler) loadBacklistSingle(ctx context.Context) error {
	prev := h.Periods.Previous(time.Now().UTC())

	author := royalty.Author{ID: "auth-harper", Name: "June Harper", Email: "june.harper@example.com"}
	if err := h.Store.PutAuthor(ctx, author); err != nil {
		return err
	}

	title := royalty.Title{
		ID:         "title-glasslake",
		Name:       "The Glass Lake",
		ReleasedAt: prev.Start.AddDate(-2, 0, 0),
		Currency:   royalty.USD,
		ListPrices: map[string]royalty.Money{
			string(catalog.FormatHardcover): royalty.NewMoney(28.00, royalty.USD),
			string(catalog.FormatEbook):     royalty.NewMoney(9.99, royalty.USD),
		},
	}
	if err := h.Store.PutTitle(ctx, title); err != nil {
		return err
	}
	if err := h.Store.SetOwnership(ctx, title.ID, []royalty.OwnershipEntry{
		{AuthorID: author.ID, Percentage: pct(100)},
	}); err != nil {
		return err
	}

	contract := royalty.Contract{
		ID:       "con-glasslake-harper",
		AuthorID: author.ID,
		TitleID:  title.ID,
		Schedules: map[string]royalty.TierSchedule{
			string(catalog.FormatHardcover): catalog.FlatPlan(catalog.FormatHardcover, "0.10"),
			string(catalog.FormatEbook):     catalog.EbookPlan(),
		},
		Mode:            royalty.ModePeriod,
		Currency:        royalty.USD,
		AdvancePaid:     royalty.ZeroMoney(royalty.USD),
		AdvanceRecouped: royalty.ZeroMoney(royalty.USD),
	}
	if err := h.Store.PutContract(ctx, contract); err != nil {
		return err
	}

	// A quiet backlist quarter:
	//   hardcover: 450 x 28.00 x 10%  = 1260.00
	//   ebook:    1200 x  9.99 x 25%  = 2997.00
	//   total royalty                 = 4257.00
	sales := []seedEntry{
		{"gl-hc-001", string(catalog.FormatHardcover), 180, prev.Start.AddDate(0, 0, 12), "ingram"},
		{"gl-hc-002", string(catalog.FormatHardcover), 160, prev.Start.AddDate(0, 1, 3), "bn"},
		{"gl-hc-003", string(catalog.FormatHardcover), 110, prev.Start.AddDate(0, 2, 1), "direct"},
		{"gl-eb-001", string(catalog.FormatEbook), 700, prev.Start.AddDate(0, 0, 20), "kindle"},
		{"gl-eb-002", string(catalog.FormatEbook), 500, prev.Start.AddDate(0, 1, 25), "kobo"},
	}
	if err := h.seedSales(ctx, title.ID, sales); err != nil {
		return err
	}

	_, err := h.Runner.CloseTitle(ctx, title.ID, prev)
	return err
}

// loadCoauthorSplit creates two authors sharing one title 60/40 and
// closes the last period so both statements are visible.
func (h *Handler) loadCoauthorSplit(ctx context.Context) error {
	prev := h.Periods.Previous(time.Now().UTC())

	ella := royalty.Author{ID: "auth-marsh", Name: "Ella Marsh", Email: "ella.marsh@example.com"}
	theo := royalty.Author{ID: "auth-voss", Name: "Theo Voss", Email: "theo.voss@example.com"}
	for _, a := range []royalty.Author{ella, theo} {
		if err := h.Store.PutAuthor(ctx, a); err != nil {
			return err
		}
	}

	title := royalty.Title{
		ID:         "title-atlas",
		Name:       "Atlas of Small Hours",
		ReleasedAt: prev.Start.AddDate(-1, 0, 0),
		Currency:   royalty.USD,
		ListPrices: map[string]royalty.Money{
			string(catalog.FormatHardcover): royalty.NewMoney(30.00, royalty.USD),
			string(catalog.FormatEbook):     royalty.NewMoney(14.99, royalty.USD),
		},
	}
	if err := h.Store.PutTitle(ctx, title); err != nil {
		return err
	}

	// Ella is first on the roster, so her contract prices the title total.
	if err := h.Store.SetOwnership(ctx, title.ID, []royalty.OwnershipEntry{
		{AuthorID: ella.ID, Percentage: pct(60)},
		{AuthorID: theo.ID, Percentage: pct(40)},
	}); err != nil {
		return err
	}

	contractIDs := []royalty.ContractID{"con-atlas-marsh", "con-atlas-voss"}
	for i, a := range []royalty.Author{ella, theo} {
		contract := royalty.Contract{
			ID:              contractIDs[i],
			AuthorID:        a.ID,
			TitleID:         title.ID,
			Schedules:       catalog.TradeTermsFor(catalog.FormatHardcover, catalog.FormatEbook),
			Mode:            royalty.ModePeriod,
			Currency:        royalty.USD,
			AdvancePaid:     royalty.ZeroMoney(royalty.USD),
			AdvanceRecouped: royalty.ZeroMoney(royalty.USD),
		}
		if err := h.Store.PutContract(ctx, contract); err != nil {
			return err
		}
	}

	// The quarter:
	//   hardcover: 1000 x 30.00 x 10% = 3000.00
	//   ebook:      800 x 14.99 x 25% = 2998.00
	//   total 5998.00 -> Ella 3598.80 (60%), Theo 2399.20 (40%)
	sales := []seedEntry{
		{"at-hc-001", string(catalog.FormatHardcover), 620, prev.Start.AddDate(0, 0, 9), "ingram"},
		{"at-hc-002", string(catalog.FormatHardcover), 380, prev.Start.AddDate(0, 1, 14), "bn"},
		{"at-eb-001", string(catalog.FormatEbook), 800, prev.Start.AddDate(0, 1, 2), "kindle"},
	}
	if err := h.seedSales(ctx, title.ID, sales); err != nil {
		return err
	}

	_, err := h.Runner.CloseTitle(ctx, title.ID, prev)
	return err
}

// loadAdvanceRecoupment creates a frontlist title whose advance swallows
// the whole period royalty.
func (h *Handler) loadAdvanceRecoupment(ctx context.Context) error {
	prev := h.Periods.Previous(time.Now().UTC())

	author := royalty.Author{ID: "auth-quill", Name: "Iris Quill", Email: "iris.quill@example.com"}
	if err := h.Store.PutAuthor(ctx, author); err != nil {
		return err
	}

	title := royalty.Title{
		ID:         "title-embers",
		Name:       "Embers of the North",
		ReleasedAt: prev.Start.AddDate(0, -4, 0),
		Currency:   royalty.USD,
		ListPrices: map[string]royalty.Money{
			string(catalog.FormatHardcover): royalty.NewMoney(32.00, royalty.USD),
			string(catalog.FormatAudiobook): royalty.NewMoney(24.00, royalty.USD),
		},
	}
	if err := h.Store.PutTitle(ctx, title); err != nil {
		return err
	}
	if err := h.Store.SetOwnership(ctx, title.ID, []royalty.OwnershipEntry{
		{AuthorID: author.ID, Percentage: pct(100)},
	}); err != nil {
		return err
	}

	// 15,000 advance with 4,000 recouped by earlier periods leaves 11,000.
	contract := royalty.Contract{
		ID:              "con-embers-quill",
		AuthorID:        author.ID,
		TitleID:         title.ID,
		Schedules:       catalog.TradeTermsFor(catalog.FormatHardcover, catalog.FormatAudiobook),
		Mode:            royalty.ModePeriod,
		Currency:        royalty.USD,
		AdvancePaid:     royalty.NewMoney(15000, royalty.USD),
		AdvanceRecouped: royalty.NewMoney(4000, royalty.USD),
	}
	if err := h.Store.PutContract(ctx, contract); err != nil {
		return err
	}

	// The quarter:
	//   hardcover: 1800 x 32.00 x 10% = 5760.00
	//   audiobook:  350 x 24.00 x 25% = 2100.00
	//   total 7860.00, all withheld: net 0.00, remaining advance 3140.00
	sales := []seedEntry{
		{"em-hc-001", string(catalog.FormatHardcover), 1100, prev.Start.AddDate(0, 0, 6), "ingram"},
		{"em-hc-002", string(catalog.FormatHardcover), 700, prev.Start.AddDate(0, 1, 19), "bn"},
		{"em-au-001", string(catalog.FormatAudiobook), 350, prev.Start.AddDate(0, 1, 8), "audible"},
	}
	if err := h.seedSales(ctx, title.ID, sales); err != nil {
		return err
	}

	_, err := h.Runner.CloseTitle(ctx, title.ID, prev)
	return err
}

// loadLifetimeEscalator places cumulative hardcover sales just below the
// 5,000-copy breakpoint, so the closed period crosses into 12.5% partway.
func (h *Handler) loadLifetimeEscalator(ctx context.Context) error {
	prev := h.Periods.Previous(time.Now().UTC())

	author := royalty.Author{ID: "auth-solt", Name: "Mira Solt", Email: "mira.solt@example.com"}
	if err := h.Store.PutAuthor(ctx, author); err != nil {
		return err
	}

	title := royalty.Title{
		ID:         "title-signal",
		Name:       "The Signal Garden",
		ReleasedAt: prev.Start.AddDate(-1, -3, 0),
		Currency:   royalty.USD,
		ListPrices: map[string]royalty.Money{
			string(catalog.FormatHardcover): royalty.NewMoney(25.00, royalty.USD),
		},
	}
	if err := h.Store.PutTitle(ctx, title); err != nil {
		return err
	}
	if err := h.Store.SetOwnership(ctx, title.ID, []royalty.OwnershipEntry{
		{AuthorID: author.ID, Percentage: pct(100)},
	}); err != nil {
		return err
	}

	contract := royalty.Contract{
		ID:       "con-signal-solt",
		AuthorID: author.ID,
		TitleID:  title.ID,
		Schedules: map[string]royalty.TierSchedule{
			string(catalog.FormatHardcover): catalog.StandardHardcoverPlan(),
		},
		Mode:            royalty.ModeLifetime,
		Currency:        royalty.USD,
		AdvancePaid:     royalty.ZeroMoney(royalty.USD),
		AdvanceRecouped: royalty.ZeroMoney(royalty.USD),
	}
	if err := h.Store.PutContract(ctx, contract); err != nil {
		return err
	}

	// 4,600 lifetime copies before the period. The period sells 800 more,
	// crossing 5,000 at copy 400:
	//   400 x 25.00 x 10%   = 1000.00
	//   400 x 25.00 x 12.5% = 1250.00
	//   period royalty      = 2250.00
	history := []seedEntry{
		{"sg-hc-h01", string(catalog.FormatHardcover), 2600, prev.Start.AddDate(0, -5, 10), "ingram"},
		{"sg-hc-h02", string(catalog.FormatHardcover), 2000, prev.Start.AddDate(0, -2, 4), "ingram"},
	}
	if err := h.seedSales(ctx, title.ID, history); err != nil {
		return err
	}
	sales := []seedEntry{
		{"sg-hc-001", string(catalog.FormatHardcover), 800, prev.Start.AddDate(0, 1, 7), "ingram"},
	}
	if err := h.seedSales(ctx, title.ID, sales); err != nil {
		return err
	}

	_, err := h.Runner.CloseTitle(ctx, title.ID, prev)
	return err
}

// loadReturnsSeason creates mixed-format sales with returns in each state
// of the approval workflow.
func (h *Handler) loadReturnsSeason(ctx context.Context) error {
	prev := h.Periods.Previous(time.Now().UTC())

	author := royalty.Author{ID: "auth-rook", Name: "Nadia Rook", Email: "nadia.rook@example.com"}
	if err := h.Store.PutAuthor(ctx, author); err != nil {
		return err
	}

	title := royalty.Title{
		ID:         "title-harbor",
		Name:       "A Harbor in Winter",
		ReleasedAt: prev.Start.AddDate(0, -7, 0),
		Currency:   royalty.USD,
		ListPrices: map[string]royalty.Money{
			string(catalog.FormatHardcover): royalty.NewMoney(27.00, royalty.USD),
			string(catalog.FormatEbook):     royalty.NewMoney(12.99, royalty.USD),
			string(catalog.FormatAudiobook): royalty.NewMoney(19.99, royalty.USD),
		},
	}
	if err := h.Store.PutTitle(ctx, title); err != nil {
		return err
	}
	if err := h.Store.SetOwnership(ctx, title.ID, []royalty.OwnershipEntry{
		{AuthorID: author.ID, Percentage: pct(100)},
	}); err != nil {
		return err
	}

	contract := royalty.Contract{
		ID:              "con-harbor-rook",
		AuthorID:        author.ID,
		TitleID:         title.ID,
		Schedules:       catalog.TradeTermsFor(catalog.FormatHardcover, catalog.FormatEbook, catalog.FormatAudiobook),
		Mode:            royalty.ModePeriod,
		Currency:        royalty.USD,
		AdvancePaid:     royalty.ZeroMoney(royalty.USD),
		AdvanceRecouped: royalty.ZeroMoney(royalty.USD),
	}
	if err := h.Store.PutContract(ctx, contract); err != nil {
		return err
	}

	// The quarter, after returns:
	//   hardcover: (900 - 120 approved) x 27.00 x 10% = 2106.00
	//   ebook:     1500 x 12.99 x 25%                 = 4871.25
	//   audiobook:  200 x 19.99 x 25%                 =  999.50
	//   total royalty                                 = 7976.75
	// The rejected 60 and the pending 40 never count.
	sales := []seedEntry{
		{"hb-hc-001", string(catalog.FormatHardcover), 520, prev.Start.AddDate(0, 0, 8), "ingram"},
		{"hb-hc-002", string(catalog.FormatHardcover), 380, prev.Start.AddDate(0, 1, 11), "bn"},
		{"hb-eb-001", string(catalog.FormatEbook), 1500, prev.Start.AddDate(0, 1, 1), "kindle"},
		{"hb-au-001", string(catalog.FormatAudiobook), 200, prev.Start.AddDate(0, 2, 3), "audible"},
	}
	if err := h.seedSales(ctx, title.ID, sales); err != nil {
		return err
	}

	returns := []seedEntry{
		{"hb-ret-001", string(catalog.FormatHardcover), 120, prev.Start.AddDate(0, 2, 12), "ingram"},
		{"hb-ret-002", string(catalog.FormatHardcover), 60, prev.Start.AddDate(0, 2, 15), "bn"},
		{"hb-ret-003", string(catalog.FormatEbook), 40, prev.Start.AddDate(0, 2, 18), "kindle"},
	}
	for _, re := range returns {
		if err := h.Ledger.RecordReturn(ctx, royalty.SalesEntry{
			ID:         re.id,
			TitleID:    title.ID,
			FormatID:   re.formatID,
			Quantity:   re.quantity,
			OccurredAt: re.occurredAt,
			RecordedAt: re.occurredAt,
			Source:     re.source,
		}); err != nil {
			return err
		}
	}
	if err := h.Store.ApproveReturn(ctx, "hb-ret-001"); err != nil {
		return err
	}
	if err := h.Store.RejectReturn(ctx, "hb-ret-002"); err != nil {
		return err
	}
	// hb-ret-003 stays pending for the approval queue.

	_, err := h.Runner.CloseTitle(ctx, title.ID, prev)
	return err
}

// =============================================================================
// LOADER HELPERS
// =============================================================================

type seedEntry struct {
	id         string
	formatID   string
	quantity   int64
	occurredAt time.Time
	source     string
}

func (h *Handler) seedSales(ctx context.Context, titleID royalty.TitleID, entries []seedEntry) error {
	for _, e := range entries {
		if err := h.Ledger.RecordSale(ctx, royalty.SalesEntry{
			ID:         e.id,
			TitleID:    titleID,
			FormatID:   e.formatID,
			Quantity:   e.quantity,
			OccurredAt: e.occurredAt,
			RecordedAt: e.occurredAt,
			Source:     e.source,
		}); err != nil {
			return err
		}
	}
	return nil
}

func pct(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}
