package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-printquote/internal/common"
	"github.com/noah-isme/backend-printquote/internal/pricing"
)

// Repo persists rate cards and their bands in Postgres.
type Repo struct {
	Pool *pgxpool.Pool
}

const rateCardColumns = `id, code, name, unit, category, notes, created_at, updated_at`

// ListRateCards returns every rate card with bands, ordered by code.
func (r Repo) ListRateCards(ctx context.Context) ([]RateCard, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+rateCardColumns+` FROM rate_cards ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list rate cards: %w", err)
	}
	cards, err := scanRateCards(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachBands(ctx, cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetRateCard loads a single rate card with its bands.
func (r Repo) GetRateCard(ctx context.Context, id uuid.UUID) (RateCard, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+rateCardColumns+` FROM rate_cards WHERE id = $1`, id)
	card, err := scanRateCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RateCard{}, common.NotFound("rate card", err)
		}
		return RateCard{}, fmt.Errorf("get rate card: %w", err)
	}
	cards := []RateCard{card}
	if err := r.attachBands(ctx, cards); err != nil {
		return RateCard{}, err
	}
	return cards[0], nil
}

// GetRateCardsByIDs loads the given rate cards with bands. Missing IDs are
// simply absent from the result; callers decide whether that is an error.
func (r Repo) GetRateCardsByIDs(ctx context.Context, ids []uuid.UUID) ([]RateCard, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+rateCardColumns+` FROM rate_cards WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get rate cards by ids: %w", err)
	}
	cards, err := scanRateCards(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachBands(ctx, cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// CreateRateCard inserts a rate card and its bands atomically.
func (r Repo) CreateRateCard(ctx context.Context, input RateCardInput, bands []parsedBand) (RateCard, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return RateCard{}, fmt.Errorf("begin create rate card: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.New()
	row := tx.QueryRow(ctx, `
		INSERT INTO rate_cards (id, code, name, unit, category, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+rateCardColumns,
		id, input.Code, input.Name, input.Unit, input.Category, input.Notes)
	card, err := scanRateCard(row)
	if err != nil {
		return RateCard{}, mapWriteError("create rate card", err)
	}
	if err := insertBands(ctx, tx, id, bands); err != nil {
		return RateCard{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return RateCard{}, fmt.Errorf("commit create rate card: %w", err)
	}
	card.Bands = bandViews(bands)
	return card, nil
}

// UpdateRateCard replaces a rate card's fields and full band set atomically.
func (r Repo) UpdateRateCard(ctx context.Context, id uuid.UUID, input RateCardInput, bands []parsedBand) (RateCard, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return RateCard{}, fmt.Errorf("begin update rate card: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE rate_cards
		SET code = $2, name = $3, unit = $4, category = $5, notes = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+rateCardColumns,
		id, input.Code, input.Name, input.Unit, input.Category, input.Notes)
	card, err := scanRateCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RateCard{}, common.NotFound("rate card", err)
		}
		return RateCard{}, mapWriteError("update rate card", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rate_card_bands WHERE rate_card_id = $1`, id); err != nil {
		return RateCard{}, fmt.Errorf("clear rate card bands: %w", err)
	}
	if err := insertBands(ctx, tx, id, bands); err != nil {
		return RateCard{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return RateCard{}, fmt.Errorf("commit update rate card: %w", err)
	}
	card.Bands = bandViews(bands)
	return card, nil
}

// DeleteRateCard removes a rate card; bands cascade at the schema level.
func (r Repo) DeleteRateCard(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM rate_cards WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete rate card", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound("rate card", pgx.ErrNoRows)
	}
	return nil
}

func (r Repo) attachBands(ctx context.Context, cards []RateCard) error {
	if len(cards) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(cards))
	index := make(map[uuid.UUID]int, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
		index[c.ID] = i
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT rate_card_id, from_qty, to_qty, price_per_thousand, make_ready
		FROM rate_card_bands
		WHERE rate_card_id = ANY($1)
		ORDER BY rate_card_id, from_qty`, ids)
	if err != nil {
		return fmt.Errorf("list rate card bands: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cardID uuid.UUID
		var b Band
		if err := rows.Scan(&cardID, &b.FromQty, &b.ToQty, &b.PricePerThousand, &b.MakeReadyFixed); err != nil {
			return fmt.Errorf("scan rate card band: %w", err)
		}
		if i, ok := index[cardID]; ok {
			cards[i].Bands = append(cards[i].Bands, b)
		}
	}
	return rows.Err()
}

func insertBands(ctx context.Context, tx pgx.Tx, cardID uuid.UUID, bands []parsedBand) error {
	for _, b := range bands {
		_, err := tx.Exec(ctx, `
			INSERT INTO rate_card_bands (id, rate_card_id, from_qty, to_qty, price_per_thousand, make_ready)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), cardID, b.FromQty, b.ToQty, b.PricePerThousand, b.MakeReadyFixed)
		if err != nil {
			return fmt.Errorf("insert rate card band: %w", err)
		}
	}
	return nil
}

func bandViews(bands []parsedBand) []Band {
	out := make([]Band, len(bands))
	for i, b := range bands {
		out[i] = Band{
			FromQty:          b.FromQty,
			ToQty:            b.ToQty,
			PricePerThousand: b.PricePerThousand,
			MakeReadyFixed:   b.MakeReadyFixed,
		}
	}
	return out
}

func scanRateCard(row pgx.Row) (RateCard, error) {
	var rc RateCard
	var unit, category string
	if err := row.Scan(&rc.ID, &rc.Code, &rc.Name, &unit, &category, &rc.Notes, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
		return RateCard{}, err
	}
	rc.Unit = pricingUnit(unit)
	rc.Category = pricingCategory(category)
	return rc, nil
}

func scanRateCards(rows pgx.Rows) ([]RateCard, error) {
	defer rows.Close()
	var cards []RateCard
	for rows.Next() {
		card, err := scanRateCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// Stored unit values predate strict parsing; unknown values degrade to the
// per-thousand default instead of failing reads.
func pricingUnit(s string) pricing.Unit {
	u, err := pricing.ParseUnit(s)
	if err != nil {
		return pricing.UnitPerThousand
	}
	return u
}

func pricingCategory(s string) pricing.Category {
	return pricing.NormaliseCategory(s)
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return common.Conflict("rate card code already exists", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
