package pricing

import (
	"testing"

	"github.com/noah-isme/backend-printquote/internal/money"
)

func TestLegacyTotalsDiscount(t *testing.T) {
	lines := []Line{
		{LineTotal: money.FromInt(2000), Category: CategoryPrint},
		{LineTotal: money.FromInt(1500), Category: CategoryPostage},
	}
	totals := LegacyTotals{}.Totals(lines, 20000, money.FromInt(20))

	if !totals.Subtotal.Equal(money.FromInt(3500)) {
		t.Fatalf("expected subtotal 3500, got %s", totals.Subtotal)
	}
	if !totals.Discount.Equal(money.FromInt(700)) {
		t.Fatalf("expected discount 700, got %s", totals.Discount)
	}
	if !totals.Total.Equal(money.FromInt(2800)) {
		t.Fatalf("expected total 2800, got %s", totals.Total)
	}
	if totals.Categories != nil || totals.Categorised {
		t.Fatal("legacy totals must not carry a category breakdown")
	}
	if !totals.PricePerThousand.IsZero() {
		t.Fatal("legacy totals must not derive price-per-thousand")
	}
}

func TestCategoryTotalsCompleteness(t *testing.T) {
	lines := []Line{
		{LineTotal: money.FromInt(2000), Category: CategoryPrint},
		{LineTotal: money.FromInt(800), Category: CategoryPostage},
	}
	totals := CategoryTotals{}.Totals(lines, 20000, money.FromInt(20))

	if len(totals.Categories) != 7 {
		t.Fatalf("expected all 7 category buckets, got %d", len(totals.Categories))
	}
	for _, c := range Categories() {
		if _, ok := totals.Categories[c]; !ok {
			t.Fatalf("missing category bucket %s", c)
		}
	}
	if !totals.Categories[CategoryPrint].Equal(money.FromInt(2000)) {
		t.Fatalf("print bucket: got %s", totals.Categories[CategoryPrint])
	}
	if !totals.Categories[CategoryEnvelopes].IsZero() {
		t.Fatalf("unused buckets must stay zero, got %s", totals.Categories[CategoryEnvelopes])
	}
	if !totals.Subtotal.Equal(money.FromInt(2800)) {
		t.Fatalf("expected subtotal 2800, got %s", totals.Subtotal)
	}
	// total 2240 at 20000 → pricePerThousand 112
	if !totals.PricePerThousand.Equal(money.FromInt(112)) {
		t.Fatalf("expected price-per-thousand 112, got %s", totals.PricePerThousand)
	}
}

func TestCategoryTotalsPricePerThousand(t *testing.T) {
	lines := []Line{{LineTotal: money.FromInt(2800), Category: CategoryPrint}}
	totals := CategoryTotals{}.Totals(lines, 20000, money.Zero())
	if !totals.PricePerThousand.Equal(money.FromInt(140)) {
		t.Fatalf("expected 140, got %s", totals.PricePerThousand)
	}

	zeroQty := CategoryTotals{}.Totals(lines, 0, money.Zero())
	if !zeroQty.PricePerThousand.IsZero() {
		t.Fatalf("zero quantity must yield zero price-per-thousand, got %s", zeroQty.PricePerThousand)
	}
}

func TestEndToEndScenario(t *testing.T) {
	// quantity 20000, one PER_1K line (50/1k + 30 make-ready) and one
	// ENCLOSE line without the insert multiplier (25/1k + 50 make-ready).
	perThousand := Card{
		ID: "rc-a", Code: "A4-SIMPLEX", Name: "Personalise A4 Simplex",
		Unit: UnitPerThousand, Category: CategoryPersonalisation,
		Bands: []Band{{FromQty: 1, ToQty: 100000, PricePerThousand: money.FromInt(50), MakeReadyFixed: money.FromInt(30)}},
	}
	enclose := Card{
		ID: "rc-b", Code: "ENCLOSE", Name: "Enclose Items",
		Unit: UnitPerInsert, Category: CategoryEnclosing,
		Bands: []Band{{FromQty: 1, ToQty: 100000, PricePerThousand: money.FromInt(25), MakeReadyFixed: money.FromInt(50)}},
	}

	first, err := CalculateLine(perThousand, 20000, 2, InsertPolicyIgnore)
	if err != nil {
		t.Fatalf("first line: %v", err)
	}
	second, err := CalculateLine(enclose, 20000, 2, InsertPolicyIgnore)
	if err != nil {
		t.Fatalf("second line: %v", err)
	}

	if !first.LineTotal.Equal(money.FromInt(1030)) {
		t.Fatalf("expected first line total 1030, got %s", first.LineTotal)
	}
	if !second.LineTotal.Equal(money.FromInt(550)) {
		t.Fatalf("expected second line total 550, got %s", second.LineTotal)
	}

	totals := CategoryTotals{}.Totals([]Line{first, second}, 20000, money.Zero())
	if !totals.Subtotal.Equal(money.FromInt(1580)) {
		t.Fatalf("expected subtotal 1580, got %s", totals.Subtotal)
	}
	if !totals.Total.Equal(money.FromInt(1580)) {
		t.Fatalf("expected total 1580 with no discount, got %s", totals.Total)
	}
}

func TestStrategyFor(t *testing.T) {
	if _, ok := StrategyFor(true).(CategoryTotals); !ok {
		t.Fatal("enabled decision must select the categorised strategy")
	}
	if _, ok := StrategyFor(false).(LegacyTotals); !ok {
		t.Fatal("disabled decision must select the legacy strategy")
	}
}
