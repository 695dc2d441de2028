package quote

import (
	"testing"

	"github.com/noah-isme/backend-printquote/internal/money"
	"github.com/noah-isme/backend-printquote/internal/pricing"
)

func TestDiffFields(t *testing.T) {
	before := Quote{
		ClientName:         "Acme",
		ProjectName:        "Spring mailer",
		Quantity:           20000,
		InsertsCount:       2,
		DiscountPercentage: money.FromInt(10),
	}
	after := before
	after.Quantity = 25000
	after.DiscountPercentage = money.FromInt(15)

	changes := DiffFields(before, after)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d: %v", len(changes), changes)
	}
	if c := changes["quantity"]; c.From != 20000 || c.To != 25000 {
		t.Fatalf("unexpected quantity change %+v", c)
	}
	if c := changes["discountPercentage"]; c.From != "10" || c.To != "15" {
		t.Fatalf("unexpected discount change %+v", c)
	}
}

func TestDiffFieldsEqualDecimalScales(t *testing.T) {
	before := Quote{DiscountPercentage: money.MustParse("10.0")}
	after := Quote{DiscountPercentage: money.MustParse("10")}
	if changes := DiffFields(before, after); len(changes) != 0 {
		t.Fatalf("10.0 and 10 should be equal, got %v", changes)
	}
}

func TestDiffLines(t *testing.T) {
	before := []pricing.Line{
		{RateCardID: "card-a"},
		{RateCardID: "custom", Description: "Hand finishing", IsManualItem: true},
	}
	after := []pricing.Line{
		{RateCardID: "card-a"},
		{RateCardID: "card-b"},
	}
	added, removed := DiffLines(before, after)
	if len(added) != 1 || added[0] != "card-b" {
		t.Fatalf("unexpected added %v", added)
	}
	if len(removed) != 1 || removed[0] != "manual:Hand finishing" {
		t.Fatalf("unexpected removed %v", removed)
	}
}

func TestDiffLinesStableOrder(t *testing.T) {
	before := []pricing.Line{
		{RateCardID: "card-z"},
		{RateCardID: "card-m"},
		{RateCardID: "card-a"},
	}
	after := []pricing.Line{
		{RateCardID: "card-q"},
		{RateCardID: "card-b"},
		{RateCardID: "card-x"},
	}
	for i := 0; i < 20; i++ {
		added, removed := DiffLines(before, after)
		if len(added) != 3 || added[0] != "card-b" || added[1] != "card-q" || added[2] != "card-x" {
			t.Fatalf("unexpected added order %v", added)
		}
		if len(removed) != 3 || removed[0] != "card-a" || removed[1] != "card-m" || removed[2] != "card-z" {
			t.Fatalf("unexpected removed order %v", removed)
		}
	}
}
