package pricing

import "github.com/noah-isme/backend-printquote/internal/money"

// Totals aggregates priced lines with a discount applied. Categories is nil
// in legacy mode and always carries all seven buckets in categorised mode so
// downstream rendering stays stable.
type Totals struct {
	Subtotal           money.Money
	DiscountPercentage money.Money
	Discount           money.Money
	Total              money.Money
	PricePerThousand   money.Money
	Categories         map[Category]money.Money
	Categorised        bool
}

// TotalsStrategy folds priced lines into quote totals.
type TotalsStrategy interface {
	Totals(lines []Line, quantity int, discountPct money.Money) Totals
}

// LegacyTotals is the uncategorised aggregation kept for quotes that predate
// category tracking.
type LegacyTotals struct{}

// Totals sums line totals and applies the discount. No category breakdown,
// no price-per-thousand.
func (LegacyTotals) Totals(lines []Line, _ int, discountPct money.Money) Totals {
	subtotal := money.Zero()
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	discount := money.Percent(subtotal, discountPct)
	return Totals{
		Subtotal:           subtotal,
		DiscountPercentage: discountPct,
		Discount:           discount,
		Total:              subtotal.Sub(discount),
	}
}

// CategoryTotals breaks the subtotal down into the seven cost categories and
// derives the price-per-thousand unit economics figure.
type CategoryTotals struct{}

// Totals initialises every bucket to zero, sums each line into its bucket,
// applies the discount and derives price-per-thousand from the run quantity.
func (CategoryTotals) Totals(lines []Line, quantity int, discountPct money.Money) Totals {
	buckets := make(map[Category]money.Money, 7)
	for _, c := range Categories() {
		buckets[c] = money.Zero()
	}
	subtotal := money.Zero()
	for _, l := range lines {
		cat := l.Category
		if _, ok := buckets[cat]; !ok {
			cat = CategoryPrint
		}
		buckets[cat] = buckets[cat].Add(l.LineTotal)
		subtotal = subtotal.Add(l.LineTotal)
	}
	discount := money.Percent(subtotal, discountPct)
	total := subtotal.Sub(discount)
	return Totals{
		Subtotal:           subtotal,
		DiscountPercentage: discountPct,
		Discount:           discount,
		Total:              total,
		PricePerThousand:   money.PerThousand(total, quantity),
		Categories:         buckets,
		Categorised:        true,
	}
}

// StrategyFor returns the aggregation matching a rollout decision.
func StrategyFor(categorised bool) TotalsStrategy {
	if categorised {
		return CategoryTotals{}
	}
	return LegacyTotals{}
}
