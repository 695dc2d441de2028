package quote

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printquote/internal/common"
	"github.com/noah-isme/backend-printquote/internal/events"
	"github.com/noah-isme/backend-printquote/internal/history"
	"github.com/noah-isme/backend-printquote/internal/money"
	"github.com/noah-isme/backend-printquote/internal/obs"
	"github.com/noah-isme/backend-printquote/internal/pricing"
	"github.com/noah-isme/backend-printquote/internal/rollout"
)

// FlagCategoryTotals gates the categorised totals calculation during its
// progressive rollout. Quotes priced with the flag off use the legacy
// uncategorised aggregation.
const FlagCategoryTotals = "CATEGORY_TOTALS"

type store interface {
	GetQuote(ctx context.Context, id uuid.UUID) (Quote, error)
	ListQuotes(ctx context.Context, search string, page, perPage int) ([]Quote, int, error)
	CreateQuote(ctx context.Context, q Quote, action string, payload []byte) (Quote, error)
	ReplaceQuote(ctx context.Context, q Quote, action string, payload []byte) (Quote, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, payload []byte) (Quote, error)
	AppendHistory(ctx context.Context, quoteID uuid.UUID, action string, payload []byte) error
	ListHistory(ctx context.Context, quoteID uuid.UUID) ([]HistoryEntry, error)
	MaxRevision(ctx context.Context, base string) (int, bool, error)
}

// CardSource resolves rate card IDs into engine cards.
type CardSource interface {
	CardsByIDs(ctx context.Context, ids []string) ([]pricing.Card, error)
}

// Service orchestrates quote pricing, persistence, numbering, and auditing.
type Service struct {
	store        store
	counter      Counter
	cards        CardSource
	flags        *rollout.Evaluator
	events       *events.Bus
	retry        *history.Enqueuer
	insertPolicy pricing.InsertPolicy
	logger       zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        store
	Counter      Counter
	Cards        CardSource
	Flags        *rollout.Evaluator
	Events       *events.Bus
	Retry        *history.Enqueuer
	InsertPolicy pricing.InsertPolicy
	Logger       zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("quote: store is required")
	}
	if cfg.Counter == nil {
		return nil, errors.New("quote: counter is required")
	}
	if cfg.Cards == nil {
		return nil, errors.New("quote: card source is required")
	}
	policy := cfg.InsertPolicy
	if policy == "" {
		policy = pricing.InsertPolicyIgnore
	}
	return &Service{
		store:        cfg.Store,
		counter:      cfg.Counter,
		cards:        cfg.Cards,
		flags:        cfg.Flags,
		events:       cfg.Events,
		retry:        cfg.Retry,
		insertPolicy: policy,
		logger:       cfg.Logger,
	}, nil
}

// Preview prices the input without persisting anything. Preview and create
// share one pricing path, so a previewed total always matches the saved one.
func (s *Service) Preview(ctx context.Context, input Input) (Quote, error) {
	lines, totals, err := s.price(ctx, input)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		ClientName:         input.ClientName,
		ProjectName:        input.ProjectName,
		Quantity:           input.Quantity,
		InsertsCount:       input.InsertsCount,
		DiscountPercentage: input.DiscountPercentage,
		Status:             StatusDraft,
		Lines:              lines,
		Totals:             totals,
	}, nil
}

// Create prices and stores a new quote under a freshly allocated reference.
func (s *Service) Create(ctx context.Context, input Input) (Quote, error) {
	lines, totals, err := s.price(ctx, input)
	if err != nil {
		return Quote{}, err
	}
	n, err := s.counter.Next(ctx)
	if err != nil {
		return Quote{}, common.Internal("allocate quote number", err)
	}
	base := FormatBase(n)
	q := Quote{
		ID:                 uuid.New(),
		BaseReference:      base,
		RevisionNumber:     0,
		Reference:          Reference(base, 0),
		ClientName:         input.ClientName,
		ProjectName:        input.ProjectName,
		Quantity:           input.Quantity,
		InsertsCount:       input.InsertsCount,
		DiscountPercentage: input.DiscountPercentage,
		Status:             StatusDraft,
		Lines:              lines,
		Totals:             totals,
	}
	payload, err := EncodePayload(CreatedPayload{
		Reference: q.Reference,
		Quantity:  q.Quantity,
		Lines:     SnapshotLines(lines),
		Totals:    SnapshotTotals(totals),
	})
	if err != nil {
		return Quote{}, common.Internal("encode quote history", err)
	}
	stored, err := s.store.CreateQuote(ctx, q, ActionCreated, payload)
	if err != nil {
		return Quote{}, err
	}
	stored.Totals = totals
	s.emit(ctx, events.TopicQuoteCreated, stored.ID, map[string]any{
		"reference": stored.Reference,
		"total":     stored.Totals.Total,
	})
	return stored, nil
}

// Update re-prices a quote from fresh input and replaces its lines, keeping
// reference and status. Prior history entries are untouched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input) (Quote, error) {
	existing, err := s.store.GetQuote(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	lines, totals, err := s.price(ctx, input)
	if err != nil {
		return Quote{}, err
	}
	updated := existing
	updated.ClientName = input.ClientName
	updated.ProjectName = input.ProjectName
	updated.Quantity = input.Quantity
	updated.InsertsCount = input.InsertsCount
	updated.DiscountPercentage = input.DiscountPercentage
	updated.Lines = lines
	updated.Totals = totals

	added, removed := DiffLines(existing.Lines, lines)
	payload, err := EncodePayload(UpdatedPayload{
		Changes:      DiffFields(existing, updated),
		LinesAdded:   added,
		LinesRemoved: removed,
		Lines:        SnapshotLines(lines),
		Totals:       SnapshotTotals(totals),
	})
	if err != nil {
		return Quote{}, common.Internal("encode quote history", err)
	}
	stored, err := s.store.ReplaceQuote(ctx, updated, ActionUpdated, payload)
	if err != nil {
		return Quote{}, err
	}
	stored.Totals = totals
	s.emit(ctx, events.TopicQuoteUpdated, stored.ID, map[string]any{
		"reference": stored.Reference,
		"total":     stored.Totals.Total,
	})
	return stored, nil
}

// Revise snapshots a quote into a new revision under the same base
// reference. The copy starts as a draft; pricing is carried over verbatim.
func (s *Service) Revise(ctx context.Context, id uuid.UUID) (Quote, error) {
	source, err := s.store.GetQuote(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	s.deriveTotals(ctx, &source)
	max, found, err := s.store.MaxRevision(ctx, source.BaseReference)
	if err != nil {
		return Quote{}, common.Internal("resolve next revision", err)
	}
	next := 0
	if found {
		next = max + 1
	}
	revision := source
	revision.ID = uuid.New()
	revision.RevisionNumber = next
	revision.Reference = Reference(source.BaseReference, next)
	revision.Status = StatusDraft

	payload, err := EncodePayload(CreatedPayload{
		Reference: revision.Reference,
		Quantity:  revision.Quantity,
		Lines:     SnapshotLines(revision.Lines),
		Totals:    SnapshotTotals(revision.Totals),
	})
	if err != nil {
		return Quote{}, common.Internal("encode quote history", err)
	}
	stored, err := s.store.CreateQuote(ctx, revision, ActionCreated, payload)
	if err != nil {
		return Quote{}, err
	}
	stored.Totals = revision.Totals
	s.emit(ctx, events.TopicQuoteCreated, stored.ID, map[string]any{
		"reference":  stored.Reference,
		"revisionOf": source.Reference,
	})
	return stored, nil
}

// Get loads one quote with totals re-derived from its persisted lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Quote, error) {
	q, err := s.store.GetQuote(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	s.deriveTotals(ctx, &q)
	return q, nil
}

// List pages through quotes matching the optional search term.
func (s *Service) List(ctx context.Context, search string, page, perPage int) ([]Quote, int, error) {
	quotes, total, err := s.store.ListQuotes(ctx, search, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	refs := make([]*Quote, len(quotes))
	for i := range quotes {
		refs[i] = &quotes[i]
	}
	s.deriveTotals(ctx, refs...)
	return quotes, total, nil
}

// SetStatus transitions a quote's lifecycle state. Any state may move to
// any other, and every explicit request appends a STATUS_CHANGED entry,
// including a request for the state the quote is already in.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status) (Quote, error) {
	existing, err := s.store.GetQuote(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	payload, err := EncodePayload(StatusChangedPayload{From: existing.Status, To: status})
	if err != nil {
		return Quote{}, common.Internal("encode quote history", err)
	}
	stored, err := s.store.UpdateStatus(ctx, id, status, payload)
	if err != nil {
		return Quote{}, err
	}
	s.deriveTotals(ctx, &stored)
	if obs.QuoteStatusTransitions != nil {
		obs.QuoteStatusTransitions.WithLabelValues(string(status)).Inc()
	}
	s.emit(ctx, events.TopicQuoteStatusChanged, stored.ID, map[string]any{
		"reference": stored.Reference,
		"from":      existing.Status,
		"to":        status,
	})
	return stored, nil
}

// History returns a quote's audit trail, newest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]HistoryEntry, error) {
	if _, err := s.store.GetQuote(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, id)
}

// RecordPdfGenerated appends a PDF_GENERATED entry to the audit trail.
func (s *Service) RecordPdfGenerated(ctx context.Context, id uuid.UUID, fileName string) error {
	q, err := s.store.GetQuote(ctx, id)
	if err != nil {
		return err
	}
	payload, err := EncodePayload(PdfGeneratedPayload{FileName: fileName})
	if err != nil {
		return common.Internal("encode quote history", err)
	}
	s.appendWithRetry(ctx, q.ID, ActionPdfGenerated, payload)
	s.emit(ctx, events.TopicQuotePdfGenerated, q.ID, map[string]any{
		"reference": q.Reference,
		"fileName":  fileName,
	})
	return nil
}

// RecordEmailSent appends an EMAIL_SENT entry to the audit trail.
func (s *Service) RecordEmailSent(ctx context.Context, id uuid.UUID, recipient, subject string) error {
	q, err := s.store.GetQuote(ctx, id)
	if err != nil {
		return err
	}
	payload, err := EncodePayload(EmailSentPayload{Recipient: recipient, Subject: subject})
	if err != nil {
		return common.Internal("encode quote history", err)
	}
	s.appendWithRetry(ctx, q.ID, ActionEmailSent, payload)
	s.emit(ctx, events.TopicQuoteEmailSent, q.ID, map[string]any{
		"reference": q.Reference,
		"recipient": recipient,
	})
	return nil
}

// price validates the input and runs the full pricing calculation. Every
// caller that produces totals goes through here.
func (s *Service) price(ctx context.Context, input Input) ([]pricing.Line, pricing.Totals, error) {
	if err := validateInput(input); err != nil {
		return nil, pricing.Totals{}, err
	}

	start := time.Now()
	categorised := s.categorised(ctx)
	mode := "legacy"
	if categorised {
		mode = "categorised"
	}

	var cardIDs []string
	for _, sel := range input.Lines {
		if !sel.IsManual() {
			cardIDs = append(cardIDs, sel.RateCardID)
		}
	}
	cards, err := s.cards.CardsByIDs(ctx, cardIDs)
	if err != nil {
		s.countPricing(mode, "error")
		return nil, pricing.Totals{}, err
	}
	byID := make(map[string]pricing.Card, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	lines := make([]pricing.Line, 0, len(input.Lines))
	for _, sel := range input.Lines {
		quantity := input.Quantity
		if sel.Quantity != nil {
			quantity = *sel.Quantity
		}
		if sel.IsManual() {
			lines = append(lines, pricing.CalculateManualLine(
				sel.ManualDescription, sel.ManualSetupCharge, sel.ManualPrice, sel.ManualUnit, quantity))
			continue
		}
		card := byID[sel.RateCardID]
		line, err := pricing.CalculateLine(card, quantity, input.InsertsCount, s.insertPolicy)
		if err != nil {
			var noBand *pricing.NoBandError
			if errors.As(err, &noBand) {
				s.countPricing(mode, "no_band")
				return nil, pricing.Totals{}, common.NoPricingBand(noBand.CardCode, noBand.Quantity, err)
			}
			s.countPricing(mode, "error")
			return nil, pricing.Totals{}, common.Internal("price quote line", err)
		}
		lines = append(lines, line)
	}

	totals := pricing.StrategyFor(categorised).Totals(lines, input.Quantity, input.DiscountPercentage)
	s.countPricing(mode, "ok")
	if obs.PricingDuration != nil {
		obs.PricingDuration.WithLabelValues(mode).Observe(obs.DurationMillis(time.Since(start)))
	}
	return lines, totals, nil
}

// deriveTotals recomputes aggregate figures from persisted lines. Totals are
// never stored; the line set plus the quote's discount is the source of
// truth, aggregated with the strategy the calling user is rolled onto.
func (s *Service) deriveTotals(ctx context.Context, quotes ...*Quote) {
	if len(quotes) == 0 {
		return
	}
	strategy := pricing.StrategyFor(s.categorised(ctx))
	for _, q := range quotes {
		q.Totals = strategy.Totals(q.Lines, q.Quantity, q.DiscountPercentage)
	}
}

// categorised evaluates the rollout flag for the calling user.
func (s *Service) categorised(ctx context.Context) bool {
	if s.flags == nil {
		return false
	}
	userID, _ := common.UserID(ctx)
	decision := s.flags.Decide(ctx, FlagCategoryTotals, rollout.Context{UserID: userID})
	if obs.RolloutDecisionTotal != nil {
		obs.RolloutDecisionTotal.WithLabelValues(decision.Flag, decision.Reason).Inc()
	}
	return decision.Enabled
}

func (s *Service) countPricing(mode, result string) {
	if obs.QuotesPricedTotal != nil {
		obs.QuotesPricedTotal.WithLabelValues(mode, result).Inc()
	}
}

// appendWithRetry writes a history entry, deferring to the retry queue when
// the direct write fails. The audit trail must not silently lose entries,
// but a failed append never fails the caller's request either.
func (s *Service) appendWithRetry(ctx context.Context, quoteID uuid.UUID, action string, payload []byte) {
	err := s.store.AppendHistory(ctx, quoteID, action, payload)
	if err == nil {
		return
	}
	s.logger.Warn().Err(err).
		Str("quote_id", quoteID.String()).
		Str("action", action).
		Msg("direct history append failed")
	if s.retry != nil {
		s.retry.Enqueue(ctx, history.AppendPayload{QuoteID: quoteID, Action: action, Payload: payload})
	}
}

func (s *Service) emit(ctx context.Context, topic string, id uuid.UUID, payload any) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Emit(ctx, topic, id, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("emit domain event")
	}
}

func validateInput(input Input) error {
	if input.Quantity <= 0 {
		return common.Validation("quantity must be greater than zero", map[string]any{"quantity": input.Quantity})
	}
	if input.InsertsCount < 0 {
		return common.Validation("insertsCount must not be negative", map[string]any{"insertsCount": input.InsertsCount})
	}
	if input.DiscountPercentage.IsNegative() || input.DiscountPercentage.GreaterThan(money.FromInt(100)) {
		return common.Validation("discountPercentage must be between 0 and 100", nil)
	}
	if len(input.Lines) == 0 {
		return common.Validation("at least one line is required", nil)
	}
	for i, sel := range input.Lines {
		if sel.Quantity != nil && *sel.Quantity <= 0 {
			return common.Validation("line quantity override must be greater than zero", map[string]any{"line": i})
		}
		if sel.IsManual() {
			if sel.ManualDescription == "" {
				return common.Validation("manual lines require a description", map[string]any{"line": i})
			}
			if sel.ManualPrice.IsNegative() || sel.ManualSetupCharge.IsNegative() {
				return common.Validation("manual prices must not be negative", map[string]any{"line": i})
			}
		}
	}
	return nil
}
