package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printquote/internal/common"
	"github.com/noah-isme/backend-printquote/internal/pricing"
)

type store interface {
	ListRateCards(ctx context.Context) ([]RateCard, error)
	GetRateCard(ctx context.Context, id uuid.UUID) (RateCard, error)
	GetRateCardsByIDs(ctx context.Context, ids []uuid.UUID) ([]RateCard, error)
	CreateRateCard(ctx context.Context, input RateCardInput, bands []parsedBand) (RateCard, error)
	UpdateRateCard(ctx context.Context, id uuid.UUID, input RateCardInput, bands []parsedBand) (RateCard, error)
	DeleteRateCard(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates rate card reads, writes, validation, and caching.
type Service struct {
	store  store
	cache  *Cache
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  store
	Cache  *Cache
	Logger zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// List returns all rate cards, served from cache when warm.
func (s *Service) List(ctx context.Context) ([]RateCard, error) {
	var cached []RateCard
	hit, err := s.cache.GetJSON(ctx, listCacheKey, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rate card cache read failed")
	}
	if hit {
		return cached, nil
	}
	cards, err := s.store.ListRateCards(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, listCacheKey, cards); err != nil {
		s.logger.Warn().Err(err).Msg("rate card cache write failed")
	}
	return cards, nil
}

// Get returns one rate card by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (RateCard, error) {
	return s.store.GetRateCard(ctx, id)
}

// Create validates and stores a new rate card.
func (s *Service) Create(ctx context.Context, input RateCardInput) (RateCard, error) {
	normalised, bands, err := s.prepare(input)
	if err != nil {
		return RateCard{}, err
	}
	card, err := s.store.CreateRateCard(ctx, normalised, bands)
	if err != nil {
		return RateCard{}, err
	}
	s.invalidate(ctx)
	return card, nil
}

// Update validates and fully replaces a rate card, bands included.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input RateCardInput) (RateCard, error) {
	normalised, bands, err := s.prepare(input)
	if err != nil {
		return RateCard{}, err
	}
	card, err := s.store.UpdateRateCard(ctx, id, normalised, bands)
	if err != nil {
		return RateCard{}, err
	}
	s.invalidate(ctx)
	return card, nil
}

// Delete removes a rate card.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteRateCard(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// CardsByIDs resolves rate card IDs into engine cards, preserving request
// order. Any unknown ID fails the whole lookup.
func (s *Service) CardsByIDs(ctx context.Context, ids []string) ([]pricing.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, common.NotFound("rate card "+raw, err)
		}
		parsed = append(parsed, id)
	}
	records, err := s.store.GetRateCardsByIDs(ctx, parsed)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]RateCard, len(records))
	for _, rc := range records {
		byID[rc.ID.String()] = rc
	}
	cards := make([]pricing.Card, 0, len(ids))
	for _, raw := range ids {
		rc, ok := byID[raw]
		if !ok {
			return nil, common.NotFound("rate card "+raw, nil)
		}
		cards = append(cards, rc.PricingCard())
	}
	return cards, nil
}

func (s *Service) prepare(input RateCardInput) (RateCardInput, []parsedBand, error) {
	unit, err := pricing.ParseUnit(input.Unit)
	if err != nil {
		return RateCardInput{}, nil, common.Validation("unit must be one of PER_1K, JOB, ENCLOSE", map[string]any{"unit": input.Unit})
	}
	input.Unit = string(unit)
	input.Category = string(pricing.NormaliseCategory(input.Category))
	bands, err := ValidateBands(input.Bands)
	if err != nil {
		return RateCardInput{}, nil, err
	}
	if gaps := BandGaps(bands); len(gaps) > 0 {
		s.logger.Warn().
			Str("code", input.Code).
			Interface("gaps", gaps).
			Msg("rate card has uncovered quantity ranges")
	}
	return input, bands, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, listCacheKey); err != nil {
		s.logger.Warn().Err(err).Msg(fmt.Sprintf("invalidate %s", listCacheKey))
	}
}
