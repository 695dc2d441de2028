package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-printquote/internal/money"
)

// Unit identifies how a rate card charges for a production run.
type Unit string

const (
	// UnitPerThousand charges per thousand items processed.
	UnitPerThousand Unit = "PER_1K"
	// UnitPerJob charges a flat make-ready amount regardless of quantity.
	UnitPerJob Unit = "JOB"
	// UnitPerInsert is the enclosing unit; how its quantity converts to
	// units is governed by InsertPolicy.
	UnitPerInsert Unit = "ENCLOSE"
)

// ParseUnit validates a wire-format unit name.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToUpper(strings.TrimSpace(s))) {
	case UnitPerThousand:
		return UnitPerThousand, nil
	case UnitPerJob:
		return UnitPerJob, nil
	case UnitPerInsert:
		return UnitPerInsert, nil
	}
	return "", fmt.Errorf("unknown pricing unit %q", s)
}

// Category buckets quote lines for the categorised totals breakdown.
type Category string

const (
	CategoryEnvelopes       Category = "ENVELOPES"
	CategoryPrint           Category = "PRINT"
	CategoryDataProcessing  Category = "DATA_PROCESSING"
	CategoryPersonalisation Category = "PERSONALISATION"
	CategoryFinishing       Category = "FINISHING"
	CategoryEnclosing       Category = "ENCLOSING"
	CategoryPostage         Category = "POSTAGE"
)

// Categories returns every bucket in display order.
func Categories() []Category {
	return []Category{
		CategoryEnvelopes,
		CategoryPrint,
		CategoryDataProcessing,
		CategoryPersonalisation,
		CategoryFinishing,
		CategoryEnclosing,
		CategoryPostage,
	}
}

// NormaliseCategory maps a stored category value onto a known bucket,
// defaulting to PRINT for absent or unrecognised values.
func NormaliseCategory(s string) Category {
	candidate := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, c := range Categories() {
		if c == candidate {
			return c
		}
	}
	return CategoryPrint
}

// Band is one quantity tier of a rate card. Bounds are inclusive.
type Band struct {
	FromQty          int
	ToQty            int
	PricePerThousand money.Money
	MakeReadyFixed   money.Money
}

// Contains reports whether quantity falls inside the band.
func (b Band) Contains(quantity int) bool {
	return quantity >= b.FromQty && quantity <= b.ToQty
}

// Card is the pricing engine's read-only view of a rate card. Bands are
// expected pre-sorted ascending by FromQty; the catalog write boundary
// enforces that.
type Card struct {
	ID       string
	Code     string
	Name     string
	Unit     Unit
	Category Category
	Bands    []Band
}

// ErrNoBand is the sentinel for quantities that fall outside every band.
var ErrNoBand = errors.New("no pricing band matches quantity")

// NoBandError reports the card and quantity that could not be priced.
type NoBandError struct {
	CardCode string
	Quantity int
}

func (e *NoBandError) Error() string {
	return fmt.Sprintf("no pricing band for rate card %s at quantity %d", e.CardCode, e.Quantity)
}

// Is matches against ErrNoBand.
func (e *NoBandError) Is(target error) bool { return target == ErrNoBand }

// SelectBand returns the first band containing quantity, in ascending
// FromQty order.
func SelectBand(bands []Band, quantity int) (Band, bool) {
	for _, b := range bands {
		if b.Contains(quantity) {
			return b, true
		}
	}
	return Band{}, false
}

// InsertPolicy versions the enclosing (PER_INSERT) unit calculation. The
// system historically shipped both semantics; the active one is an explicit
// deployment parameter rather than a hard-coded choice.
type InsertPolicy string

const (
	// InsertPolicyIgnore prices enclosing by run quantity alone.
	InsertPolicyIgnore InsertPolicy = "ignore"
	// InsertPolicyMultiply scales the run quantity by the inserts count
	// before converting to thousands.
	InsertPolicyMultiply InsertPolicy = "multiply"
)

// ParseInsertPolicy validates a configured insert policy value.
func ParseInsertPolicy(s string) (InsertPolicy, error) {
	switch InsertPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case InsertPolicyIgnore, "":
		return InsertPolicyIgnore, nil
	case InsertPolicyMultiply:
		return InsertPolicyMultiply, nil
	}
	return "", fmt.Errorf("unknown insert policy %q", s)
}

// UnitsFor converts a run quantity into chargeable units-in-thousands for
// the given unit type.
func UnitsFor(unit Unit, quantity, inserts int, policy InsertPolicy) money.Money {
	switch unit {
	case UnitPerJob:
		return money.Zero()
	case UnitPerInsert:
		if policy == InsertPolicyMultiply {
			return decimal.NewFromInt(int64(quantity)).
				Mul(decimal.NewFromInt(int64(inserts))).
				Div(decimal.NewFromInt(1000))
		}
		return money.UnitsPerThousand(quantity)
	default:
		return money.UnitsPerThousand(quantity)
	}
}

// Line is a priced quote line.
type Line struct {
	RateCardID           string
	Description          string
	UnitPricePerThousand money.Money
	MakeReadyFixed       money.Money
	UnitsInThousands     money.Money
	LineTotal            money.Money
	Category             Category
	IsManualItem         bool
}

// CalculateLine prices one selected rate card at the given quantity. A
// quantity outside every band is a hard error for the line; callers must
// abort the whole calculation rather than default the line to zero.
func CalculateLine(card Card, quantity, inserts int, policy InsertPolicy) (Line, error) {
	band, ok := SelectBand(card.Bands, quantity)
	if !ok {
		return Line{}, &NoBandError{CardCode: card.Code, Quantity: quantity}
	}
	units := UnitsFor(card.Unit, quantity, inserts, policy)
	return Line{
		RateCardID:           card.ID,
		Description:          card.Name,
		UnitPricePerThousand: band.PricePerThousand,
		MakeReadyFixed:       band.MakeReadyFixed,
		UnitsInThousands:     units,
		LineTotal:            band.MakeReadyFixed.Add(units.Mul(band.PricePerThousand)),
		Category:             NormaliseCategory(string(card.Category)),
	}, nil
}

// ManualRateCardID marks bespoke lines in persisted quote data.
const ManualRateCardID = "custom"

// ManualUnit is the pricing basis of a bespoke line.
type ManualUnit string

const (
	ManualPerItem     ManualUnit = "PER_ITEM"
	ManualPerThousand ManualUnit = "PER_1K"
)

// ParseManualUnit validates a bespoke pricing unit, defaulting to per-item.
func ParseManualUnit(s string) (ManualUnit, error) {
	switch ManualUnit(strings.ToUpper(strings.TrimSpace(s))) {
	case ManualPerItem, "":
		return ManualPerItem, nil
	case ManualPerThousand:
		return ManualPerThousand, nil
	}
	return "", fmt.Errorf("unknown manual pricing unit %q", s)
}

// CalculateManualLine prices a bespoke line entered by the estimator.
// Bespoke items are not separately categorised and land in PRINT.
func CalculateManualLine(description string, setup, price money.Money, unit ManualUnit, quantity int) Line {
	units := money.UnitsPerThousand(quantity)
	var total money.Money
	if unit == ManualPerThousand {
		total = setup.Add(price.Mul(units))
	} else {
		total = setup.Add(price.Mul(decimal.NewFromInt(int64(quantity))))
	}
	return Line{
		RateCardID:           ManualRateCardID,
		Description:          description,
		UnitPricePerThousand: price,
		MakeReadyFixed:       setup,
		UnitsInThousands:     units,
		LineTotal:            total,
		Category:             CategoryPrint,
		IsManualItem:         true,
	}
}
