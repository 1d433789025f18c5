package royalty_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/royalty-engine/royalty"
	"github.com/warp/royalty-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestSalesLedger(t *testing.T) (*royalty.DefaultSalesLedger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ledger := royalty.NewSalesLedger(store)
	return ledger, store
}

func saleEntry(id, formatID string, qty int64, at time.Time) royalty.SalesEntry {
	return royalty.SalesEntry{
		ID:         id,
		TitleID:    "title-1",
		FormatID:   formatID,
		Quantity:   qty,
		OccurredAt: at,
		Source:     "feed-test",
	}
}

func ledgerTitle() royalty.Title {
	return royalty.Title{
		ID:       "title-1",
		Name:     "Sample Title",
		Currency: royalty.USD,
		ListPrices: map[string]royalty.Money{
			"hardcover": royalty.NewMoney(20, royalty.USD),
			"ebook":     royalty.NewMoney(10, royalty.USD),
		},
	}
}

func ledgerQ3() royalty.Period {
	return royalty.Period{
		Start: time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// RECORDING TESTS
// =============================================================================

func TestSalesLedger_RecordSale_ApprovedOnEntry(t *testing.T) {
	// GIVEN: A sales feed entry
	// WHEN: Recorded as a sale
	// THEN: It is stored as an approved sale, whatever the entry claimed

	ledger, store := newTestSalesLedger(t)
	ctx := context.Background()

	entry := saleEntry("s-1", "hardcover", 100, time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC))
	entry.Kind = royalty.EntryReturn      // Ledger overrides
	entry.Status = royalty.StatusRejected // Ledger overrides

	require.NoError(t, ledger.RecordSale(ctx, entry))

	stored, err := store.Load(ctx, "title-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	assert.Equal(t, royalty.EntrySale, stored[0].Kind)
	assert.Equal(t, royalty.StatusApproved, stored[0].Status)
	assert.Equal(t, int64(100), stored[0].Quantity)
}

func TestSalesLedger_RecordReturn_EntersPending(t *testing.T) {
	ledger, store := newTestSalesLedger(t)
	ctx := context.Background()

	entry := saleEntry("r-1", "hardcover", 20, time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, ledger.RecordReturn(ctx, entry))

	stored, err := store.Load(ctx, "title-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	assert.Equal(t, royalty.EntryReturn, stored[0].Kind)
	assert.Equal(t, royalty.StatusPending, stored[0].Status, "returns wait for approval")
}

func TestSalesLedger_MissingID_Generated(t *testing.T) {
	ledger, store := newTestSalesLedger(t)
	ctx := context.Background()

	entry := saleEntry("", "hardcover", 10, time.Time{})
	require.NoError(t, ledger.RecordSale(ctx, entry))

	stored, err := store.Load(ctx, "title-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	assert.NotEmpty(t, stored[0].ID, "ledger should assign an ID")
	assert.False(t, stored[0].OccurredAt.IsZero(), "ledger should default OccurredAt")
	assert.False(t, stored[0].RecordedAt.IsZero(), "ledger should default RecordedAt")
}

func TestSalesLedger_NonPositiveQuantity_Rejected(t *testing.T) {
	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()

	err := ledger.RecordSale(ctx, saleEntry("s-1", "hardcover", 0, time.Now()))
	assert.Error(t, err, "zero quantity should be rejected")

	err = ledger.RecordSale(ctx, saleEntry("s-2", "hardcover", -10, time.Now()))
	assert.Error(t, err, "negative quantity should be rejected")
	assert.Contains(t, err.Error(), "must be positive")
}

func TestSalesLedger_MissingTitleOrFormat_Rejected(t *testing.T) {
	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()

	noTitle := saleEntry("s-1", "hardcover", 10, time.Now())
	noTitle.TitleID = ""
	assert.Error(t, ledger.RecordSale(ctx, noTitle))

	noFormat := saleEntry("s-2", "", 10, time.Now())
	assert.Error(t, ledger.RecordSale(ctx, noFormat))
}

func TestSalesLedger_DuplicateID_Rejected(t *testing.T) {
	// GIVEN: An entry already recorded under ID s-1
	// WHEN: The feed retries the same ID
	// THEN: The retry is rejected, not double-counted

	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()

	at := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-1", "hardcover", 100, at)))

	err := ledger.RecordSale(ctx, saleEntry("s-1", "hardcover", 100, at))
	assert.ErrorIs(t, err, royalty.ErrDuplicateEntry)
}

// =============================================================================
// PERIOD DERIVATION TESTS
// =============================================================================

func TestSalesLedger_PeriodSales_SplitsAtPeriodBoundary(t *testing.T) {
	// GIVEN: Sales before, inside and after Q3
	// WHEN: Deriving Q3's per-format sales
	// THEN: Prior units feed the lifetime position, Q3 units feed the period,
	//       later units are invisible

	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-prior", "hardcover", 400,
		time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-in", "hardcover", 250,
		time.Date(2025, time.August, 5, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-after", "hardcover", 999,
		time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC))))

	sales, err := ledger.PeriodSales(ctx, ledgerTitle(), ledgerQ3())
	require.NoError(t, err)
	require.Len(t, sales, 1)

	assert.Equal(t, "hardcover", sales[0].FormatID)
	assert.Equal(t, int64(250), sales[0].UnitsSold)
	assert.Equal(t, int64(400), sales[0].PriorLifetimeUnits)
	assert.True(t, sales[0].UnitPrice.Equal(royalty.NewMoney(20, royalty.USD)))
}

func TestSalesLedger_PeriodSales_PeriodStartIsInclusive(t *testing.T) {
	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()
	period := ledgerQ3()

	// Exactly at Start counts for the period; exactly at End does not.
	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-start", "hardcover", 10, period.Start)))
	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-end", "hardcover", 99, period.End)))

	sales, err := ledger.PeriodSales(ctx, ledgerTitle(), period)
	require.NoError(t, err)
	require.Len(t, sales, 1)

	assert.Equal(t, int64(10), sales[0].UnitsSold)
}

func TestSalesLedger_PeriodSales_OnlyApprovedReturnsCount(t *testing.T) {
	// GIVEN: 300 sales and three returns: one approved, one rejected, one
	//        still pending
	// THEN: Only the approved return reduces the period's net

	ledger, store := newTestSalesLedger(t)
	ctx := context.Background()
	august := time.Date(2025, time.August, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-1", "hardcover", 300, august)))
	require.NoError(t, ledger.RecordReturn(ctx, saleEntry("r-approved", "hardcover", 30, august)))
	require.NoError(t, ledger.RecordReturn(ctx, saleEntry("r-rejected", "hardcover", 40, august)))
	require.NoError(t, ledger.RecordReturn(ctx, saleEntry("r-pending", "hardcover", 50, august)))

	require.NoError(t, store.ApproveReturn(ctx, "r-approved"))
	require.NoError(t, store.RejectReturn(ctx, "r-rejected"))

	sales, err := ledger.PeriodSales(ctx, ledgerTitle(), ledgerQ3())
	require.NoError(t, err)
	require.Len(t, sales, 1)

	assert.Equal(t, int64(300), sales[0].UnitsSold)
	assert.Equal(t, int64(30), sales[0].UnitsReturnedApproved)
	assert.Equal(t, int64(270), sales[0].NetUnits())
}

func TestSalesLedger_PeriodSales_FormatsInIDOrder(t *testing.T) {
	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()
	august := time.Date(2025, time.August, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-1", "hardcover", 100, august)))
	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-2", "ebook", 200, august)))

	sales, err := ledger.PeriodSales(ctx, ledgerTitle(), ledgerQ3())
	require.NoError(t, err)
	require.Len(t, sales, 2)

	assert.Equal(t, "ebook", sales[0].FormatID, "formats should come back sorted")
	assert.Equal(t, "hardcover", sales[1].FormatID)
}

func TestSalesLedger_PeriodSales_InactiveFormatOmitted(t *testing.T) {
	// A format with prior-period sales but no activity this period does not
	// produce a FormatSales row.
	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-old", "ebook", 500,
		time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-new", "hardcover", 100,
		time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC))))

	sales, err := ledger.PeriodSales(ctx, ledgerTitle(), ledgerQ3())
	require.NoError(t, err)
	require.Len(t, sales, 1)

	assert.Equal(t, "hardcover", sales[0].FormatID)
}

func TestSalesLedger_PeriodSales_MissingListPrice_Fails(t *testing.T) {
	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-1", "audiobook", 100,
		time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC))))

	// ledgerTitle prices hardcover and ebook only.
	_, err := ledger.PeriodSales(ctx, ledgerTitle(), ledgerQ3())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no list price")
}

func TestSalesLedger_PeriodSales_InvalidPeriod_Fails(t *testing.T) {
	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()

	inverted := royalty.Period{Start: ledgerQ3().End, End: ledgerQ3().Start}
	_, err := ledger.PeriodSales(ctx, ledgerTitle(), inverted)

	assert.ErrorIs(t, err, royalty.ErrInvalidPeriod)
}

// =============================================================================
// LIFETIME POSITION TESTS
// =============================================================================

func TestSalesLedger_LifetimeUnits_StrictlyBefore(t *testing.T) {
	// GIVEN: Sales before and exactly at the period start
	// THEN: Only units strictly before the instant count; the boundary entry
	//       belongs to the new period

	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()
	boundary := ledgerQ3().Start

	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-before", "hardcover", 400,
		boundary.Add(-24*time.Hour))))
	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-boundary", "hardcover", 100, boundary)))

	units, err := ledger.LifetimeUnits(ctx, "title-1", "hardcover", boundary)
	require.NoError(t, err)

	assert.Equal(t, int64(400), units)
}

func TestSalesLedger_LifetimeUnits_ApprovedReturnsSubtract(t *testing.T) {
	ledger, store := newTestSalesLedger(t)
	ctx := context.Background()
	may := time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-1", "hardcover", 400, may)))
	require.NoError(t, ledger.RecordReturn(ctx, saleEntry("r-1", "hardcover", 50, may)))
	require.NoError(t, store.ApproveReturn(ctx, "r-1"))

	units, err := ledger.LifetimeUnits(ctx, "title-1", "hardcover", ledgerQ3().Start)
	require.NoError(t, err)

	assert.Equal(t, int64(350), units)
}

func TestSalesLedger_LifetimeUnits_FlooredAtZero(t *testing.T) {
	// Returns dominating history never drive the lifetime position negative.
	ledger, store := newTestSalesLedger(t)
	ctx := context.Background()
	may := time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-1", "hardcover", 100, may)))
	require.NoError(t, ledger.RecordReturn(ctx, saleEntry("r-1", "hardcover", 300, may)))
	require.NoError(t, store.ApproveReturn(ctx, "r-1"))

	units, err := ledger.LifetimeUnits(ctx, "title-1", "hardcover", ledgerQ3().Start)
	require.NoError(t, err)

	assert.Equal(t, int64(0), units)
}

func TestSalesLedger_LifetimeUnits_OtherFormatsIgnored(t *testing.T) {
	ledger, _ := newTestSalesLedger(t)
	ctx := context.Background()
	may := time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-hc", "hardcover", 400, may)))
	require.NoError(t, ledger.RecordSale(ctx, saleEntry("s-eb", "ebook", 900, may)))

	units, err := ledger.LifetimeUnits(ctx, "title-1", "hardcover", ledgerQ3().Start)
	require.NoError(t, err)

	assert.Equal(t, int64(400), units)
}
