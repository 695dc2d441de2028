package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-printquote/internal/dashboard"
	"github.com/noah-isme/backend-printquote/internal/money"
	"github.com/noah-isme/backend-printquote/internal/pricing"
	"github.com/noah-isme/backend-printquote/internal/quote"
)

type stubQueries struct {
	quotes   []quote.Quote
	allCalls int
}

func (s *stubQueries) AllQuotes(ctx context.Context) ([]quote.Quote, error) {
	s.allCalls++
	return s.quotes, nil
}

func (s *stubQueries) RecentQuotes(ctx context.Context, limit int) ([]quote.Quote, error) {
	if limit > len(s.quotes) {
		limit = len(s.quotes)
	}
	return s.quotes[:limit], nil
}

func sampleQuote(ref string, status quote.Status, lineTotal string) quote.Quote {
	return quote.Quote{
		ID:         uuid.New(),
		Reference:  ref,
		ClientName: "Acme Mailing",
		Quantity:   1000,
		Status:     status,
		Lines: []pricing.Line{{
			RateCardID:  "card",
			Description: "Print run",
			LineTotal:   money.MustParse(lineTotal),
		}},
		UpdatedAt: time.Now(),
	}
}

func TestStatsOverview(t *testing.T) {
	queries := &stubQueries{quotes: []quote.Quote{
		sampleQuote("Q00001-0", quote.StatusDraft, "100"),
		sampleQuote("Q00002-0", quote.StatusSent, "200"),
		sampleQuote("Q00003-0", quote.StatusWon, "300"),
		sampleQuote("Q00004-0", quote.StatusLost, "50"),
	}}
	svc := &dashboard.Service{Q: queries}

	ov, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if ov.TotalQuotes != 4 || ov.DraftQuotes != 1 || ov.SentQuotes != 1 || ov.WonQuotes != 1 || ov.LostQuotes != 1 {
		t.Fatalf("unexpected counts: %+v", ov)
	}
	if !ov.ConversionRate.Equal(money.FromInt(50)) {
		t.Fatalf("expected conversion rate 50, got %s", ov.ConversionRate)
	}
	if !ov.TotalValue.Equal(money.MustParse("300")) {
		t.Fatalf("expected won value 300, got %s", ov.TotalValue)
	}
	if !ov.PipelineValue.Equal(money.MustParse("200")) {
		t.Fatalf("expected pipeline value 200, got %s", ov.PipelineValue)
	}
}

func TestStatsNoClosedQuotes(t *testing.T) {
	queries := &stubQueries{quotes: []quote.Quote{
		sampleQuote("Q00001-0", quote.StatusDraft, "100"),
	}}
	svc := &dashboard.Service{Q: queries}

	ov, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !ov.ConversionRate.IsZero() {
		t.Fatalf("expected zero conversion rate, got %s", ov.ConversionRate)
	}
}

func TestStatsCached(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queries := &stubQueries{quotes: []quote.Quote{
		sampleQuote("Q00001-0", quote.StatusWon, "300"),
	}}
	svc := &dashboard.Service{Q: queries, R: rdb, TTL: time.Minute}

	first, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.allCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.allCalls)
	}
	if !first.TotalValue.Equal(second.TotalValue) {
		t.Fatalf("cached overview diverged: %s vs %s", first.TotalValue, second.TotalValue)
	}
}

func TestRecentDerivesTotals(t *testing.T) {
	q := sampleQuote("Q00001-0", quote.StatusSent, "170")
	q.DiscountPercentage = money.FromInt(10)
	queries := &stubQueries{quotes: []quote.Quote{q}}
	svc := &dashboard.Service{Q: queries}

	activity, err := svc.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(activity) != 1 {
		t.Fatalf("expected 1 row, got %d", len(activity))
	}
	if activity[0].Reference != "Q00001-0" {
		t.Fatalf("unexpected reference %s", activity[0].Reference)
	}
	if !activity[0].Total.Equal(money.MustParse("153")) {
		t.Fatalf("expected discounted total 153, got %s", activity[0].Total)
	}
}
