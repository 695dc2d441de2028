package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printquote/internal/common"
	"github.com/noah-isme/backend-printquote/internal/pricing"
)

type fakeStore struct {
	cards   map[uuid.UUID]RateCard
	created []RateCardInput
}

func newFakeStore(cards ...RateCard) *fakeStore {
	s := &fakeStore{cards: map[uuid.UUID]RateCard{}}
	for _, c := range cards {
		s.cards[c.ID] = c
	}
	return s
}

func (s *fakeStore) ListRateCards(_ context.Context) ([]RateCard, error) {
	out := make([]RateCard, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeStore) GetRateCard(_ context.Context, id uuid.UUID) (RateCard, error) {
	c, ok := s.cards[id]
	if !ok {
		return RateCard{}, common.NotFound("rate card", nil)
	}
	return c, nil
}

func (s *fakeStore) GetRateCardsByIDs(_ context.Context, ids []uuid.UUID) ([]RateCard, error) {
	var out []RateCard
	for _, id := range ids {
		if c, ok := s.cards[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateRateCard(_ context.Context, input RateCardInput, bands []parsedBand) (RateCard, error) {
	s.created = append(s.created, input)
	card := RateCard{ID: uuid.New(), Code: input.Code, Name: input.Name, Unit: pricing.Unit(input.Unit), Category: pricing.Category(input.Category), Bands: bandViews(bands)}
	s.cards[card.ID] = card
	return card, nil
}

func (s *fakeStore) UpdateRateCard(_ context.Context, id uuid.UUID, input RateCardInput, bands []parsedBand) (RateCard, error) {
	if _, ok := s.cards[id]; !ok {
		return RateCard{}, common.NotFound("rate card", nil)
	}
	card := RateCard{ID: id, Code: input.Code, Name: input.Name, Unit: pricing.Unit(input.Unit), Category: pricing.Category(input.Category), Bands: bandViews(bands)}
	s.cards[id] = card
	return card, nil
}

func (s *fakeStore) DeleteRateCard(_ context.Context, id uuid.UUID) error {
	if _, ok := s.cards[id]; !ok {
		return common.NotFound("rate card", nil)
	}
	delete(s.cards, id)
	return nil
}

func newTestService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{Store: store, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCardsByIDsPreservesOrder(t *testing.T) {
	first := RateCard{ID: uuid.New(), Code: "ENV-C5", Unit: pricing.UnitPerJob, Category: pricing.CategoryEnvelopes}
	second := RateCard{ID: uuid.New(), Code: "A4-SIMPLEX", Unit: pricing.UnitPerThousand, Category: pricing.CategoryPrint}
	svc := newTestService(t, newFakeStore(first, second))

	cards, err := svc.CardsByIDs(context.Background(), []string{second.ID.String(), first.ID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].Code != "A4-SIMPLEX" || cards[1].Code != "ENV-C5" {
		t.Fatalf("order not preserved: %s, %s", cards[0].Code, cards[1].Code)
	}
}

func TestCardsByIDsUnknownID(t *testing.T) {
	svc := newTestService(t, newFakeStore())

	_, err := svc.CardsByIDs(context.Background(), []string{uuid.New().String()})
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
	if !common.IsAppError(err) {
		t.Fatalf("expected AppError, got %T", err)
	}
}

func TestCreateNormalisesUnitAndCategory(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)

	card, err := svc.Create(context.Background(), RateCardInput{
		Code:     "enclose",
		Name:     "Enclosing",
		Unit:     "enclose",
		Category: "enclosing",
		Bands:    []BandInput{band(1, 1_000_000, "12.00", "25.00")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.Unit != pricing.UnitPerInsert {
		t.Fatalf("unit not normalised: %s", card.Unit)
	}
	if card.Category != pricing.CategoryEnclosing {
		t.Fatalf("category not normalised: %s", card.Category)
	}
}

func TestCreateRejectsUnknownUnit(t *testing.T) {
	svc := newTestService(t, newFakeStore())

	_, err := svc.Create(context.Background(), RateCardInput{
		Code:  "X",
		Name:  "X",
		Unit:  "PER_SHEET",
		Bands: []BandInput{band(1, 100, "1", "0")},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
}
