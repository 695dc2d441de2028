package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-printquote/internal/money"
	"github.com/noah-isme/backend-printquote/internal/pricing"
	"github.com/noah-isme/backend-printquote/internal/quote"
)

// Querier defines the quote access required for dashboard aggregation.
type Querier interface {
	AllQuotes(ctx context.Context) ([]quote.Quote, error)
	RecentQuotes(ctx context.Context, limit int) ([]quote.Quote, error)
}

// Service aggregates sales statistics over the quote book, with an optional
// redis cache in front of the full-table scan.
type Service struct {
	Q   Querier
	R   *redis.Client
	TTL time.Duration
}

// Overview summarises the quote book by lifecycle state.
type Overview struct {
	TotalQuotes    int         `json:"totalQuotes"`
	DraftQuotes    int         `json:"draftQuotes"`
	SentQuotes     int         `json:"sentQuotes"`
	WonQuotes      int         `json:"wonQuotes"`
	LostQuotes     int         `json:"lostQuotes"`
	ConversionRate money.Money `json:"conversionRate"`
	TotalValue     money.Money `json:"totalValue"`
	PipelineValue  money.Money `json:"pipelineValue"`
}

// Activity is one row of the recent-updates feed.
type Activity struct {
	ID         string       `json:"id"`
	Reference  string       `json:"reference"`
	ClientName string       `json:"clientName"`
	Status     quote.Status `json:"status"`
	Total      money.Money  `json:"total"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

const statsCacheKey = "dash:stats"

// Stats derives the overview from every quote's recomputed total.
// ConversionRate is won over closed (won plus lost) as a percentage;
// TotalValue sums won quotes and PipelineValue sums sent ones.
func (s *Service) Stats(ctx context.Context) (Overview, error) {
	if s == nil || s.Q == nil {
		return Overview{}, fmt.Errorf("dashboard service not configured")
	}
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}
	quotes, err := s.Q.AllQuotes(ctx)
	if err != nil {
		return Overview{}, err
	}

	ov := Overview{
		TotalQuotes:    len(quotes),
		ConversionRate: money.Zero(),
		TotalValue:     money.Zero(),
		PipelineValue:  money.Zero(),
	}
	for _, q := range quotes {
		total := quoteTotal(q)
		switch q.Status {
		case quote.StatusDraft:
			ov.DraftQuotes++
		case quote.StatusSent:
			ov.SentQuotes++
			ov.PipelineValue = ov.PipelineValue.Add(total)
		case quote.StatusWon:
			ov.WonQuotes++
			ov.TotalValue = ov.TotalValue.Add(total)
		case quote.StatusLost:
			ov.LostQuotes++
		}
	}
	closed := ov.WonQuotes + ov.LostQuotes
	if closed > 0 {
		ov.ConversionRate = money.FromInt(int64(ov.WonQuotes)).
			Div(money.FromInt(int64(closed))).
			Mul(money.FromInt(100))
	}

	s.store(ctx, ov)
	return ov, nil
}

// Recent returns the limit most recently updated quotes with their
// recomputed totals, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Activity, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("dashboard service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	quotes, err := s.Q.RecentQuotes(ctx, limit)
	if err != nil {
		return nil, err
	}
	activity := make([]Activity, len(quotes))
	for i, q := range quotes {
		activity[i] = Activity{
			ID:         q.ID.String(),
			Reference:  q.Reference,
			ClientName: q.ClientName,
			Status:     q.Status,
			Total:      quoteTotal(q),
			UpdatedAt:  q.UpdatedAt,
		}
	}
	return activity, nil
}

// quoteTotal re-derives a quote's grand total from its persisted lines. The
// grand total does not depend on the aggregation strategy, so the legacy
// path serves both sides of the rollout.
func quoteTotal(q quote.Quote) money.Money {
	return pricing.LegacyTotals{}.Totals(q.Lines, q.Quantity, q.DiscountPercentage).Total
}

func (s *Service) fromCache(ctx context.Context) (Overview, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Overview{}, false
	}
	data, err := s.R.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return Overview{}, false
	}
	var ov Overview
	if err := json.Unmarshal(data, &ov); err != nil {
		return Overview{}, false
	}
	return ov, true
}

func (s *Service) store(ctx context.Context, ov Overview) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(ov)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, statsCacheKey, data, s.TTL).Err()
}
