package money

import "github.com/shopspring/decimal"

// Money is an exact decimal amount in major currency units. The alias keeps
// decimal's arithmetic API available without a wrapper layer; currency maths
// in this codebase never touches floats.
type Money = decimal.Decimal

var (
	thousand = decimal.NewFromInt(1000)
	hundred  = decimal.NewFromInt(100)
)

// Zero returns a zero amount.
func Zero() Money { return decimal.Zero }

// FromInt converts an integer amount.
func FromInt(v int64) Money { return decimal.NewFromInt(v) }

// Parse converts a decimal string into an amount.
func Parse(s string) (Money, error) { return decimal.NewFromString(s) }

// MustParse parses a literal amount and panics on malformed input. Intended
// for seed data and tests only.
func MustParse(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// UnitsPerThousand converts a run quantity into thousands.
func UnitsPerThousand(quantity int) Money {
	return decimal.NewFromInt(int64(quantity)).Div(thousand)
}

// Percent returns pct percent of amount.
func Percent(amount, pct Money) Money {
	return amount.Mul(pct).Div(hundred)
}

// PerThousand derives the price-per-thousand unit economics of a total at the
// given run quantity. Zero or negative quantities yield zero rather than a
// division error.
func PerThousand(total Money, quantity int) Money {
	if quantity <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(quantity))).Mul(thousand)
}

// Sum adds the provided amounts.
func Sum(values ...Money) Money {
	out := decimal.Zero
	for _, v := range values {
		out = out.Add(v)
	}
	return out
}
