package catalog

import (
	"fmt"

	"github.com/noah-isme/backend-printquote/internal/common"
	"github.com/noah-isme/backend-printquote/internal/money"
)

// Bounds enforced on rate card bands at the write boundary.
const (
	maxBands   = 50
	maxToQty   = 10_000_000
	maxPriceS  = "999999.99"
	minFromQty = 1
)

var maxPrice = money.MustParse(maxPriceS)

// parsedBand is a BandInput with its money fields decoded.
type parsedBand struct {
	FromQty          int
	ToQty            int
	PricePerThousand money.Money
	MakeReadyFixed   money.Money
}

// ValidateBands checks band bounds, ordering, and overlap. Bands must be
// sorted ascending by fromQty and must not overlap; gaps between bands are
// legal and surfaced separately via BandGaps.
func ValidateBands(inputs []BandInput) ([]parsedBand, error) {
	if len(inputs) == 0 {
		return nil, common.Validation("at least one band is required", nil)
	}
	if len(inputs) > maxBands {
		return nil, common.Validation(fmt.Sprintf("at most %d bands are allowed", maxBands), map[string]any{"bands": len(inputs)})
	}
	parsed := make([]parsedBand, len(inputs))
	for i, in := range inputs {
		if in.FromQty < minFromQty {
			return nil, bandError(i, fmt.Sprintf("fromQty must be at least %d", minFromQty))
		}
		if in.ToQty > maxToQty {
			return nil, bandError(i, fmt.Sprintf("toQty must not exceed %d", maxToQty))
		}
		if in.ToQty < in.FromQty {
			return nil, bandError(i, "toQty must be greater than or equal to fromQty")
		}
		price, err := money.Parse(in.PricePerThousand)
		if err != nil {
			return nil, bandError(i, "pricePerThousand is not a valid amount")
		}
		makeReady, err := money.Parse(in.MakeReadyFixed)
		if err != nil {
			return nil, bandError(i, "makeReady is not a valid amount")
		}
		if price.IsNegative() || makeReady.IsNegative() {
			return nil, bandError(i, "prices must not be negative")
		}
		if price.GreaterThan(maxPrice) || makeReady.GreaterThan(maxPrice) {
			return nil, bandError(i, fmt.Sprintf("prices must not exceed %s", maxPriceS))
		}
		if i > 0 {
			prev := parsed[i-1]
			if in.FromQty < prev.FromQty {
				return nil, bandError(i, "bands must be sorted ascending by fromQty")
			}
			if in.FromQty <= prev.ToQty {
				return nil, bandError(i, "band overlaps the previous band")
			}
		}
		parsed[i] = parsedBand{
			FromQty:          in.FromQty,
			ToQty:            in.ToQty,
			PricePerThousand: price,
			MakeReadyFixed:   makeReady,
		}
	}
	return parsed, nil
}

// Gap is an unpriced quantity range between two adjacent bands.
type Gap struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// BandGaps returns the uncovered ranges between adjacent bands. Quantities
// inside a gap fail pricing at quote time, so writers log them.
func BandGaps(bands []parsedBand) []Gap {
	var gaps []Gap
	for i := 1; i < len(bands); i++ {
		prevEnd := bands[i-1].ToQty
		if bands[i].FromQty > prevEnd+1 {
			gaps = append(gaps, Gap{From: prevEnd + 1, To: bands[i].FromQty - 1})
		}
	}
	return gaps
}

func bandError(index int, message string) *common.AppError {
	return common.Validation(message, map[string]any{"band": index})
}
