package royalty_test

import (
	"testing"

	"github.com/warp/royalty-engine/royalty"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// Note: usd and dec are defined in schedule_test.go

func advanceContract(paid, recouped float64) royalty.Contract {
	return royalty.Contract{
		ID:              "con-1",
		AuthorID:        "auth-1",
		TitleID:         "title-1",
		Mode:            royalty.ModePeriod,
		Currency:        royalty.USD,
		AdvancePaid:     usd(paid),
		AdvanceRecouped: usd(recouped),
	}
}

// =============================================================================
// RECOUPMENT TESTS
// =============================================================================

func TestRecoup_PartialRecoupment(t *testing.T) {
	// GIVEN: $10000 advance, $9500 already recouped, $800 split
	// THEN: $500 recoups, $300 is payable, nothing remains outstanding

	result := royalty.Recoup(usd(800), advanceContract(10000, 9500))

	if !result.Recoupment.Equal(usd(500)) {
		t.Errorf("expected recoupment 500.00, got %s", result.Recoupment.StringFixed())
	}
	if !result.NetPayable.Equal(usd(300)) {
		t.Errorf("expected net payable 300.00, got %s", result.NetPayable.StringFixed())
	}
	if !result.Advance.RemainingAfterThisPeriod.IsZero() {
		t.Errorf("expected no remaining advance, got %s", result.Advance.RemainingAfterThisPeriod.StringFixed())
	}
}

func TestRecoup_FullWithholding(t *testing.T) {
	// The whole split is withheld while the advance is still deep.
	result := royalty.Recoup(usd(800), advanceContract(10000, 2000))

	if !result.Recoupment.Equal(usd(800)) {
		t.Errorf("expected recoupment 800.00, got %s", result.Recoupment.StringFixed())
	}
	if !result.NetPayable.IsZero() {
		t.Errorf("expected zero net payable, got %s", result.NetPayable.StringFixed())
	}
	if !result.Advance.RemainingAfterThisPeriod.Equal(usd(7200)) {
		t.Errorf("expected 7200.00 remaining, got %s", result.Advance.RemainingAfterThisPeriod.StringFixed())
	}
}

func TestRecoup_NoAdvance_FullPayout(t *testing.T) {
	result := royalty.Recoup(usd(800), advanceContract(0, 0))

	if !result.Recoupment.IsZero() {
		t.Errorf("expected zero recoupment, got %s", result.Recoupment.StringFixed())
	}
	if !result.NetPayable.Equal(usd(800)) {
		t.Errorf("expected net payable 800.00, got %s", result.NetPayable.StringFixed())
	}
}

func TestRecoup_ZeroSplit_NothingMoves(t *testing.T) {
	// A zero period neither recoups nor reverses anything.
	result := royalty.Recoup(usd(0), advanceContract(10000, 4000))

	if !result.Recoupment.IsZero() {
		t.Errorf("expected zero recoupment, got %s", result.Recoupment.StringFixed())
	}
	if !result.NetPayable.IsZero() {
		t.Errorf("expected zero net payable, got %s", result.NetPayable.StringFixed())
	}
	if !result.Advance.RemainingAfterThisPeriod.Equal(usd(6000)) {
		t.Errorf("expected remaining 6000.00 untouched, got %s", result.Advance.RemainingAfterThisPeriod.StringFixed())
	}
}

func TestRecoup_NegativeSplit_NoReversal(t *testing.T) {
	result := royalty.Recoup(usd(-100), advanceContract(10000, 4000))

	if !result.Recoupment.IsZero() {
		t.Errorf("expected zero recoupment for negative split, got %s", result.Recoupment.StringFixed())
	}
	if !result.NetPayable.Equal(usd(-100)) {
		t.Errorf("expected net payable -100.00, got %s", result.NetPayable.StringFixed())
	}
}

func TestRecoup_OverRecoupedContract_FlooredAtZero(t *testing.T) {
	// Recouped beyond paid should never surface as a negative remaining
	// advance; the split pays out in full.
	result := royalty.Recoup(usd(400), advanceContract(5000, 6000))

	if !result.Recoupment.IsZero() {
		t.Errorf("expected zero recoupment, got %s", result.Recoupment.StringFixed())
	}
	if !result.NetPayable.Equal(usd(400)) {
		t.Errorf("expected full payout 400.00, got %s", result.NetPayable.StringFixed())
	}
	if result.Advance.RemainingAfterThisPeriod.IsNegative() {
		t.Errorf("remaining advance went negative: %s", result.Advance.RemainingAfterThisPeriod.StringFixed())
	}
}

func TestRecoup_ReportsAdvancePosition(t *testing.T) {
	result := royalty.Recoup(usd(1000), advanceContract(15000, 4000))

	if !result.Advance.TotalAdvance.Equal(usd(15000)) {
		t.Errorf("expected total advance 15000.00, got %s", result.Advance.TotalAdvance.StringFixed())
	}
	if !result.Advance.PreviouslyRecouped.Equal(usd(4000)) {
		t.Errorf("expected previously recouped 4000.00, got %s", result.Advance.PreviouslyRecouped.StringFixed())
	}
	if !result.Advance.RemainingAfterThisPeriod.Equal(usd(10000)) {
		t.Errorf("expected remaining 10000.00, got %s", result.Advance.RemainingAfterThisPeriod.StringFixed())
	}
}

func TestRemainingAdvance_FloorsAtZero(t *testing.T) {
	over := advanceContract(5000, 6000)
	if !over.RemainingAdvance().IsZero() {
		t.Errorf("expected zero remaining, got %s", over.RemainingAdvance().StringFixed())
	}

	normal := advanceContract(5000, 1500)
	if !normal.RemainingAdvance().Equal(usd(3500)) {
		t.Errorf("expected 3500.00 remaining, got %s", normal.RemainingAdvance().StringFixed())
	}
}
