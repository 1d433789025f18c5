/*
ledger.go - Sales ledger on top of SalesStore

PURPOSE:
  The ledger is the source of truth for unit movement. Every sale and
  return is recorded here; period quantities and lifetime positions are
  always computed by replaying entries, so there is no separate counter
  that can drift out of sync.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: entries are never edited; corrections append
  2. APPROVED RETURNS ONLY: pending and rejected returns never reach a
     calculation
  3. NO DOUBLE COUNTING: prior lifetime quantity is everything strictly
     before the period start, so the period's own units are never counted
     twice

EXAMPLE FLOW:
  1. Feed records 1,200 hardcover sales: RecordSale x N
  2. Retailer files 80 returns: RecordReturn (pending)
  3. Royalty manager approves 75, rejects 5
  4. Period close reads net 1,125 approved units for the period

SEE ALSO:
  - store.go: The SalesStore interface this wraps
  - engine.go: Consumes the FormatSales this produces
*/
package royalty

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SALES LEDGER
// =============================================================================

// SalesLedger records unit movement and derives the per-format inputs a
// calculation consumes.
type SalesLedger interface {
	// RecordSale appends one sale entry. Sales are approved on entry.
	RecordSale(ctx context.Context, entry SalesEntry) error

	// RecordReturn appends one return entry in pending status.
	RecordReturn(ctx context.Context, entry SalesEntry) error

	// PeriodSales derives one FormatSales per format active in the period,
	// in format-ID order, priced from the title's list prices.
	PeriodSales(ctx context.Context, title Title, period Period) ([]FormatSales, error)

	// LifetimeUnits is the cumulative approved net quantity for one format
	// strictly before the given instant, floored at zero.
	LifetimeUnits(ctx context.Context, titleID TitleID, formatID string, before time.Time) (int64, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using SalesStore
// =============================================================================

type DefaultSalesLedger struct {
	Store SalesStore
}

func NewSalesLedger(store SalesStore) *DefaultSalesLedger {
	return &DefaultSalesLedger{Store: store}
}

func (l *DefaultSalesLedger) RecordSale(ctx context.Context, entry SalesEntry) error {
	entry.Kind = EntrySale
	entry.Status = StatusApproved
	return l.record(ctx, entry)
}

func (l *DefaultSalesLedger) RecordReturn(ctx context.Context, entry SalesEntry) error {
	entry.Kind = EntryReturn
	entry.Status = StatusPending
	return l.record(ctx, entry)
}

func (l *DefaultSalesLedger) record(ctx context.Context, entry SalesEntry) error {
	if entry.Quantity <= 0 {
		return fmt.Errorf("ledger entry quantity must be positive, got %d", entry.Quantity)
	}
	if entry.TitleID == "" || entry.FormatID == "" {
		return fmt.Errorf("ledger entry needs a title and format")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = entry.RecordedAt
	}
	return l.Store.Append(ctx, entry)
}

// PeriodSales replays the title's entries once and splits them at the
// period boundary: everything strictly before Start feeds the lifetime
// position, everything in [Start, End) feeds the period counts.
func (l *DefaultSalesLedger) PeriodSales(ctx context.Context, title Title, period Period) ([]FormatSales, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	entries, err := l.Store.Load(ctx, title.ID)
	if err != nil {
		return nil, err
	}

	type tally struct {
		sold, returned, prior int64
	}
	tallies := make(map[string]*tally)
	active := make(map[string]bool)

	for _, e := range entries {
		if !e.Counts() {
			continue
		}
		t := tallies[e.FormatID]
		if t == nil {
			t = &tally{}
			tallies[e.FormatID] = t
		}
		switch {
		case e.OccurredAt.Before(period.Start):
			if e.Kind == EntryReturn {
				t.prior -= e.Quantity
			} else {
				t.prior += e.Quantity
			}
		case period.Contains(e.OccurredAt):
			active[e.FormatID] = true
			if e.Kind == EntryReturn {
				t.returned += e.Quantity
			} else {
				t.sold += e.Quantity
			}
		}
	}

	formatIDs := make([]string, 0, len(active))
	for id := range active {
		formatIDs = append(formatIDs, id)
	}
	sort.Strings(formatIDs)

	sales := make([]FormatSales, 0, len(formatIDs))
	for _, id := range formatIDs {
		price, ok := title.ListPrices[id]
		if !ok {
			return nil, fmt.Errorf("title %s has no list price for format %s", title.ID, id)
		}
		t := tallies[id]
		sales = append(sales, FormatSales{
			FormatID:              id,
			UnitsSold:             t.sold,
			UnitsReturnedApproved: t.returned,
			PriorLifetimeUnits:    floorUnits(t.prior),
			UnitPrice:             price,
		})
	}
	return sales, nil
}

func (l *DefaultSalesLedger) LifetimeUnits(ctx context.Context, titleID TitleID, formatID string, before time.Time) (int64, error) {
	entries, err := l.Store.LoadRange(ctx, titleID, time.Time{}, before)
	if err != nil {
		return 0, err
	}
	var net int64
	for _, e := range entries {
		if !e.Counts() || e.FormatID != formatID {
			continue
		}
		if e.Kind == EntryReturn {
			net -= e.Quantity
		} else {
			net += e.Quantity
		}
	}
	return floorUnits(net), nil
}
