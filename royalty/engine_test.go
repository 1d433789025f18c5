package royalty_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/warp/royalty-engine/royalty"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// Note: usd, dec, twoTier are defined in schedule_test.go; owner in
// apportion_test.go; date in period_test.go

func q1() royalty.Period {
	return royalty.Period{Start: date(2025, time.January, 1), End: date(2025, time.April, 1)}
}

func flatSchedule(formatID, rate string) royalty.TierSchedule {
	return royalty.MustNewTierSchedule(formatID, []royalty.Band{{MinQuantity: 0, Rate: dec(rate)}})
}

func testContract(id, author string, schedules ...royalty.TierSchedule) royalty.Contract {
	byFormat := make(map[string]royalty.TierSchedule, len(schedules))
	for _, s := range schedules {
		byFormat[s.FormatID] = s
	}
	return royalty.Contract{
		ID:              royalty.ContractID(id),
		AuthorID:        royalty.AuthorID(author),
		TitleID:         "title-1",
		Schedules:       byFormat,
		Mode:            royalty.ModePeriod,
		Currency:        royalty.USD,
		AdvancePaid:     usd(0),
		AdvanceRecouped: usd(0),
	}
}

func hardcoverSales(sold int64, price float64) royalty.FormatSales {
	return royalty.FormatSales{FormatID: "hardcover", UnitsSold: sold, UnitPrice: usd(price)}
}

// =============================================================================
// SINGLE AUTHOR CALCULATIONS
// =============================================================================

func TestCalculate_SingleAuthor_FlatRate(t *testing.T) {
	// 100 units x $20.00 x 10% = $200.00, all to the sole author
	engine := royalty.NewCalculationEngine()

	result, err := engine.Calculate(royalty.CalculationInput{
		TitleID:   "title-1",
		Period:    q1(),
		Sales:     []royalty.FormatSales{hardcoverSales(100, 20)},
		Contracts: []royalty.Contract{testContract("con-1", "auth-1", flatSchedule("hardcover", "0.10"))},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 100)},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TitleTotalRoyalty.Equal(usd(200)) {
		t.Errorf("expected total 200.00, got %s", result.TitleTotalRoyalty.StringFixed())
	}
	if result.IsSplitCalculation {
		t.Error("single-author calculation should not be marked as split")
	}
	if len(result.AuthorSplits) != 1 {
		t.Fatalf("expected 1 split, got %d", len(result.AuthorSplits))
	}

	split := result.AuthorSplits[0]
	if split.AuthorID != "auth-1" || split.ContractID != "con-1" {
		t.Errorf("split attributed to %s/%s, want auth-1/con-1", split.AuthorID, split.ContractID)
	}
	if !split.NetPayable.Equal(usd(200)) {
		t.Errorf("expected net payable 200.00, got %s", split.NetPayable.StringFixed())
	}
	if !result.FormatRoyalties["hardcover"].Equal(usd(200)) {
		t.Errorf("expected hardcover contribution 200.00, got %s",
			result.FormatRoyalties["hardcover"].StringFixed())
	}
}

func TestCalculate_NoSales_ZeroEverything(t *testing.T) {
	engine := royalty.NewCalculationEngine()

	result, err := engine.Calculate(royalty.CalculationInput{
		TitleID:   "title-1",
		Period:    q1(),
		Contracts: []royalty.Contract{testContract("con-1", "auth-1", flatSchedule("hardcover", "0.10"))},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 100)},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TitleTotalRoyalty.IsZero() {
		t.Errorf("expected zero total, got %s", result.TitleTotalRoyalty.StringFixed())
	}
	if !result.AuthorSplits[0].SplitAmount.IsZero() {
		t.Errorf("expected zero split, got %s", result.AuthorSplits[0].SplitAmount.StringFixed())
	}
}

// =============================================================================
// TIER AND MODE BEHAVIOR
// =============================================================================

func TestCalculate_TierBoundary_PeriodMode(t *testing.T) {
	// GIVEN: 10% to 5000 units, 12.5% beyond, $20.00 hardcover
	// THEN: Unit 5000 is the first to earn the higher rate

	engine := royalty.NewCalculationEngine()
	escalator := royalty.MustNewTierSchedule("hardcover", []royalty.Band{
		{MinQuantity: 0, Rate: dec("0.10")},
		{MinQuantity: 5000, Rate: dec("0.125")},
	})
	input := func(units int64) royalty.CalculationInput {
		return royalty.CalculationInput{
			TitleID:   "title-1",
			Period:    q1(),
			Sales:     []royalty.FormatSales{hardcoverSales(units, 20)},
			Contracts: []royalty.Contract{testContract("con-1", "auth-1", escalator)},
			Ownership: []royalty.OwnershipEntry{owner("auth-1", 100)},
		}
	}

	atBoundary, err := engine.Calculate(input(5000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !atBoundary.TitleTotalRoyalty.Equal(usd(10000)) {
		t.Errorf("expected 10000.00 at boundary, got %s", atBoundary.TitleTotalRoyalty.StringFixed())
	}

	pastBoundary, err := engine.Calculate(input(5001))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pastBoundary.TitleTotalRoyalty.Equal(usd(10002.50)) {
		t.Errorf("expected 10002.50 past boundary, got %s", pastBoundary.TitleTotalRoyalty.StringFixed())
	}
}

func TestCalculate_LifetimeMode_EscalatorCrossesMidPeriod(t *testing.T) {
	// GIVEN: Lifetime escalator 10%/12.5%@5000 on a $25.00 hardcover,
	//        4600 units sold in prior periods
	// WHEN: 800 units sell this period
	// THEN: 400 pay 10% (1000.00) and 400 pay 12.5% (1250.00)

	engine := royalty.NewCalculationEngine()
	contract := testContract("con-1", "auth-1", royalty.MustNewTierSchedule("hardcover", []royalty.Band{
		{MinQuantity: 0, Rate: dec("0.10")},
		{MinQuantity: 5000, Rate: dec("0.125")},
	}))
	contract.Mode = royalty.ModeLifetime

	result, err := engine.Calculate(royalty.CalculationInput{
		TitleID: "title-1",
		Period:  q1(),
		Sales: []royalty.FormatSales{{
			FormatID:           "hardcover",
			UnitsSold:          800,
			PriorLifetimeUnits: 4600,
			UnitPrice:          usd(25),
		}},
		Contracts: []royalty.Contract{contract},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 100)},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TitleTotalRoyalty.Equal(usd(2250)) {
		t.Errorf("expected 2250.00, got %s", result.TitleTotalRoyalty.StringFixed())
	}
}

func TestCalculate_MultiFormat_ContributionsSum(t *testing.T) {
	engine := royalty.NewCalculationEngine()
	contract := testContract("con-1", "auth-1",
		flatSchedule("hardcover", "0.10"),
		flatSchedule("ebook", "0.25"),
	)

	result, err := engine.Calculate(royalty.CalculationInput{
		TitleID: "title-1",
		Period:  q1(),
		Sales: []royalty.FormatSales{
			hardcoverSales(100, 20), // 200.00
			{FormatID: "ebook", UnitsSold: 200, UnitPrice: usd(10)}, // 500.00
		},
		Contracts: []royalty.Contract{contract},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 100)},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TitleTotalRoyalty.Equal(usd(700)) {
		t.Errorf("expected total 700.00, got %s", result.TitleTotalRoyalty.StringFixed())
	}
	if !result.FormatRoyalties["hardcover"].Equal(usd(200)) {
		t.Errorf("expected hardcover 200.00, got %s", result.FormatRoyalties["hardcover"].StringFixed())
	}
	if !result.FormatRoyalties["ebook"].Equal(usd(500)) {
		t.Errorf("expected ebook 500.00, got %s", result.FormatRoyalties["ebook"].StringFixed())
	}
}

func TestCalculate_NegativeFormat_FlooredWithoutOffsettingOthers(t *testing.T) {
	// GIVEN: Hardcover returns exceed sales; ebook had a normal period
	// THEN: Hardcover contributes zero, never a negative that eats the ebook

	engine := royalty.NewCalculationEngine()
	contract := testContract("con-1", "auth-1",
		flatSchedule("hardcover", "0.10"),
		flatSchedule("ebook", "0.25"),
	)

	result, err := engine.Calculate(royalty.CalculationInput{
		TitleID: "title-1",
		Period:  q1(),
		Sales: []royalty.FormatSales{
			{FormatID: "hardcover", UnitsSold: 100, UnitsReturnedApproved: 150, UnitPrice: usd(20)},
			{FormatID: "ebook", UnitsSold: 200, UnitPrice: usd(10)},
		},
		Contracts: []royalty.Contract{contract},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 100)},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.FormatRoyalties["hardcover"].IsZero() {
		t.Errorf("expected hardcover floored to zero, got %s", result.FormatRoyalties["hardcover"].StringFixed())
	}
	if !result.TitleTotalRoyalty.Equal(usd(500)) {
		t.Errorf("expected total 500.00, got %s", result.TitleTotalRoyalty.StringFixed())
	}
}

func TestCalculate_LeadContractPricesTheTitle(t *testing.T) {
	// The first roster entry's contract supplies the schedules, whatever the
	// co-author's own terms say.
	engine := royalty.NewCalculationEngine()
	lead := testContract("con-lead", "auth-lead", flatSchedule("hardcover", "0.10"))
	coauthor := testContract("con-co", "auth-co", flatSchedule("hardcover", "0.50"))

	result, err := engine.Calculate(royalty.CalculationInput{
		TitleID:   "title-1",
		Period:    q1(),
		Sales:     []royalty.FormatSales{hardcoverSales(500, 20)},
		Contracts: []royalty.Contract{coauthor, lead},
		Ownership: []royalty.OwnershipEntry{owner("auth-lead", 60), owner("auth-co", 40)},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 500 x $20 x 10% = 1000.00, not the co-author's 50%.
	if !result.TitleTotalRoyalty.Equal(usd(1000)) {
		t.Errorf("expected lead-priced total 1000.00, got %s", result.TitleTotalRoyalty.StringFixed())
	}
}

// =============================================================================
// SPLIT CALCULATIONS
// =============================================================================

func TestCalculate_SixtyFortySplit_ExactAmounts(t *testing.T) {
	// GIVEN: A $1000.00 title total split 60/40
	// THEN: $600.00 and $400.00 in roster order, flagged as a split

	engine := royalty.NewCalculationEngine()
	contracts := []royalty.Contract{
		testContract("con-1", "auth-1", flatSchedule("hardcover", "0.10")),
		testContract("con-2", "auth-2", flatSchedule("hardcover", "0.10")),
	}

	result, err := engine.Calculate(royalty.CalculationInput{
		TitleID:   "title-1",
		Period:    q1(),
		Sales:     []royalty.FormatSales{hardcoverSales(500, 20)},
		Contracts: contracts,
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 60), owner("auth-2", 40)},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsSplitCalculation {
		t.Error("two-author calculation should be marked as split")
	}
	if len(result.AuthorSplits) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(result.AuthorSplits))
	}
	if !result.AuthorSplits[0].SplitAmount.Equal(usd(600)) {
		t.Errorf("expected 600.00 for the lead, got %s", result.AuthorSplits[0].SplitAmount.StringFixed())
	}
	if !result.AuthorSplits[1].SplitAmount.Equal(usd(400)) {
		t.Errorf("expected 400.00 for the co-author, got %s", result.AuthorSplits[1].SplitAmount.StringFixed())
	}
}

func TestCalculate_ResidualCent_ExactSumPreserved(t *testing.T) {
	// 10001 units x $0.10 x 10% = $100.01, split 33/33/34. The odd cent must
	// end up on exactly one statement.
	engine := royalty.NewCalculationEngine()
	contracts := []royalty.Contract{
		testContract("con-1", "auth-1", flatSchedule("ebook", "0.10")),
		testContract("con-2", "auth-2", flatSchedule("ebook", "0.10")),
		testContract("con-3", "auth-3", flatSchedule("ebook", "0.10")),
	}

	result, err := engine.Calculate(royalty.CalculationInput{
		TitleID:   "title-1",
		Period:    q1(),
		Sales:     []royalty.FormatSales{{FormatID: "ebook", UnitsSold: 10001, UnitPrice: usd(0.10)}},
		Contracts: contracts,
		Ownership: []royalty.OwnershipEntry{
			owner("auth-1", 33), owner("auth-2", 33), owner("auth-3", 34),
		},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TitleTotalRoyalty.StringFixed() != "100.01" {
		t.Fatalf("expected total 100.01, got %s", result.TitleTotalRoyalty.StringFixed())
	}

	want := []string{"33.00", "33.00", "34.01"}
	sum := result.TitleTotalRoyalty.Zero()
	for i, split := range result.AuthorSplits {
		if split.SplitAmount.StringFixed() != want[i] {
			t.Errorf("split %d: expected %s, got %s", i, want[i], split.SplitAmount.StringFixed())
		}
		sum = sum.Add(split.SplitAmount)
	}
	if !sum.Equal(result.TitleTotalRoyalty) {
		t.Errorf("splits sum to %s, want %s", sum.StringFixed(), result.TitleTotalRoyalty.StringFixed())
	}
}

func TestCalculate_SplitsSumExactly_AcrossRosterSizes(t *testing.T) {
	// 337 units x $9.99 x 10% = 336.663, rounds to 336.66. Whatever the
	// roster size, the statements must reassemble the total to the cent.
	engine := royalty.NewCalculationEngine()

	for n := 2; n <= 10; n++ {
		contracts := make([]royalty.Contract, n)
		roster := make([]royalty.OwnershipEntry, n)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("auth-%d", i)
			contracts[i] = testContract(fmt.Sprintf("con-%d", i), id, flatSchedule("hardcover", "0.10"))
			if i < n-1 {
				roster[i] = owner(id, 7)
			} else {
				roster[i] = owner(id, int64(100-7*(n-1)))
			}
		}

		result, err := engine.Calculate(royalty.CalculationInput{
			TitleID:   "title-1",
			Period:    q1(),
			Sales:     []royalty.FormatSales{hardcoverSales(337, 9.99)},
			Contracts: contracts,
			Ownership: roster,
		})
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}

		sum := result.TitleTotalRoyalty.Zero()
		for _, split := range result.AuthorSplits {
			sum = sum.Add(split.SplitAmount)
		}
		if !sum.Equal(result.TitleTotalRoyalty) {
			t.Errorf("n=%d: splits sum to %s, want %s",
				n, sum.StringFixed(), result.TitleTotalRoyalty.StringFixed())
		}
	}
}

func TestCalculate_RecoupmentPerAuthor_Independent(t *testing.T) {
	// GIVEN: A 60/40 split where only the lead has an advance outstanding
	// THEN: The lead's split is withheld against it; the co-author is paid

	engine := royalty.NewCalculationEngine()
	lead := testContract("con-1", "auth-1", flatSchedule("hardcover", "0.10"))
	lead.AdvancePaid = usd(10000)
	lead.AdvanceRecouped = usd(9800)
	coauthor := testContract("con-2", "auth-2", flatSchedule("hardcover", "0.10"))

	result, err := engine.Calculate(royalty.CalculationInput{
		TitleID:   "title-1",
		Period:    q1(),
		Sales:     []royalty.FormatSales{hardcoverSales(500, 20)}, // $1000 total
		Contracts: []royalty.Contract{lead, coauthor},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 60), owner("auth-2", 40)},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := result.AuthorSplits[0]
	if !first.Recoupment.Equal(usd(200)) {
		t.Errorf("expected lead recoupment 200.00, got %s", first.Recoupment.StringFixed())
	}
	if !first.NetPayable.Equal(usd(400)) {
		t.Errorf("expected lead net 400.00, got %s", first.NetPayable.StringFixed())
	}
	if !first.Advance.RemainingAfterThisPeriod.IsZero() {
		t.Errorf("expected lead advance cleared, got %s", first.Advance.RemainingAfterThisPeriod.StringFixed())
	}

	second := result.AuthorSplits[1]
	if !second.Recoupment.IsZero() {
		t.Errorf("expected no co-author recoupment, got %s", second.Recoupment.StringFixed())
	}
	if !second.NetPayable.Equal(usd(400)) {
		t.Errorf("expected co-author net 400.00, got %s", second.NetPayable.StringFixed())
	}
}

// =============================================================================
// FAILURE MODES
// =============================================================================

func TestCalculate_MissingContract_FailsWholeTitle(t *testing.T) {
	engine := royalty.NewCalculationEngine()

	_, err := engine.Calculate(royalty.CalculationInput{
		TitleID:   "title-1",
		Period:    q1(),
		Sales:     []royalty.FormatSales{hardcoverSales(100, 20)},
		Contracts: []royalty.Contract{testContract("con-1", "auth-1", flatSchedule("hardcover", "0.10"))},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 60), owner("auth-2", 40)},
	})

	if !errors.Is(err, royalty.ErrContractNotFound) {
		t.Fatalf("expected ErrContractNotFound, got %v", err)
	}

	var notFound *royalty.ContractNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatal("expected ContractNotFoundError")
	}
	if notFound.AuthorID != "auth-2" {
		t.Errorf("expected auth-2 named in the error, got %s", notFound.AuthorID)
	}
}

func TestCalculate_ContractForOtherTitle_NotSubstituted(t *testing.T) {
	// An author's contract for a different title never satisfies the match.
	engine := royalty.NewCalculationEngine()
	wrongTitle := testContract("con-1", "auth-1", flatSchedule("hardcover", "0.10"))
	wrongTitle.TitleID = "title-other"

	_, err := engine.Calculate(royalty.CalculationInput{
		TitleID:   "title-1",
		Period:    q1(),
		Sales:     []royalty.FormatSales{hardcoverSales(100, 20)},
		Contracts: []royalty.Contract{wrongTitle},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 100)},
	})

	if !errors.Is(err, royalty.ErrContractNotFound) {
		t.Errorf("expected ErrContractNotFound, got %v", err)
	}
}

func TestCalculate_MissingSchedule_FailsWholeTitle(t *testing.T) {
	// Ebook units sold but the lead contract only covers hardcover.
	engine := royalty.NewCalculationEngine()

	_, err := engine.Calculate(royalty.CalculationInput{
		TitleID: "title-1",
		Period:  q1(),
		Sales: []royalty.FormatSales{
			hardcoverSales(100, 20),
			{FormatID: "ebook", UnitsSold: 50, UnitPrice: usd(10)},
		},
		Contracts: []royalty.Contract{testContract("con-1", "auth-1", flatSchedule("hardcover", "0.10"))},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 100)},
	})

	if !errors.Is(err, royalty.ErrScheduleNotFound) {
		t.Errorf("expected ErrScheduleNotFound, got %v", err)
	}
}

func TestCalculate_BadOwnershipSum_Fails(t *testing.T) {
	engine := royalty.NewCalculationEngine()

	_, err := engine.Calculate(royalty.CalculationInput{
		TitleID:   "title-1",
		Period:    q1(),
		Sales:     []royalty.FormatSales{hardcoverSales(100, 20)},
		Contracts: []royalty.Contract{testContract("con-1", "auth-1", flatSchedule("hardcover", "0.10"))},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 70)}, // 70 != 100
	})

	if !errors.Is(err, royalty.ErrOwnershipSum) {
		t.Errorf("expected ErrOwnershipSum, got %v", err)
	}
}

func TestCalculate_InvalidPeriod_Fails(t *testing.T) {
	engine := royalty.NewCalculationEngine()

	_, err := engine.Calculate(royalty.CalculationInput{
		TitleID: "title-1",
		Period: royalty.Period{
			Start: date(2025, time.April, 1),
			End:   date(2025, time.January, 1),
		},
		Sales:     []royalty.FormatSales{hardcoverSales(100, 20)},
		Contracts: []royalty.Contract{testContract("con-1", "auth-1", flatSchedule("hardcover", "0.10"))},
		Ownership: []royalty.OwnershipEntry{owner("auth-1", 100)},
	})

	if !errors.Is(err, royalty.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}
