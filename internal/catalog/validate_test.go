package catalog

import (
	"testing"

	"github.com/noah-isme/backend-printquote/internal/money"
)

func mustMoney(t *testing.T, s string) money.Money {
	t.Helper()
	m, err := money.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return m
}

func band(from, to int, price, makeReady string) BandInput {
	return BandInput{FromQty: from, ToQty: to, PricePerThousand: price, MakeReadyFixed: makeReady}
}

func TestValidateBandsAccepts(t *testing.T) {
	parsed, err := ValidateBands([]BandInput{
		band(1, 10000, "33.33", "15.00"),
		band(10001, 50000, "27.50", "15.00"),
		band(50001, 10_000_000, "22.00", "0"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("expected 3 bands, got %d", len(parsed))
	}
	if !parsed[0].PricePerThousand.Equal(mustMoney(t, "33.33")) {
		t.Fatalf("price not parsed exactly: %s", parsed[0].PricePerThousand)
	}
}

func TestValidateBandsRejectsBounds(t *testing.T) {
	cases := map[string][]BandInput{
		"empty":          {},
		"zero fromQty":   {band(0, 100, "1", "0")},
		"huge toQty":     {band(1, 10_000_001, "1", "0")},
		"inverted":       {band(100, 50, "1", "0")},
		"bad price":      {band(1, 100, "abc", "0")},
		"negative price": {band(1, 100, "-1", "0")},
		"price too high": {band(1, 100, "1000000.00", "0")},
		"unsorted":       {band(100, 200, "1", "0"), band(1, 50, "1", "0")},
		"overlap":        {band(1, 100, "1", "0"), band(100, 200, "1", "0")},
	}
	for name, inputs := range cases {
		if _, err := ValidateBands(inputs); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestValidateBandsRejectsTooMany(t *testing.T) {
	inputs := make([]BandInput, 51)
	from := 1
	for i := range inputs {
		inputs[i] = band(from, from+9, "1.00", "0")
		from += 10
	}
	if _, err := ValidateBands(inputs); err == nil {
		t.Fatal("expected error for 51 bands")
	}
}

func TestBandGaps(t *testing.T) {
	parsed, err := ValidateBands([]BandInput{
		band(1, 1000, "5", "0"),
		band(2001, 5000, "4", "0"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gaps := BandGaps(parsed)
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}
	if gaps[0].From != 1001 || gaps[0].To != 2000 {
		t.Fatalf("unexpected gap %+v", gaps[0])
	}

	contiguous, err := ValidateBands([]BandInput{
		band(1, 1000, "5", "0"),
		band(1001, 5000, "4", "0"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gaps := BandGaps(contiguous); len(gaps) != 0 {
		t.Fatalf("expected no gaps, got %v", gaps)
	}
}
