package quote

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

// PgStore persists quotes, lines, and the append-only history in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

const quoteColumns = `id, base_reference, revision_number, reference, client_name, project_name,
	quantity, inserts_count, discount_percentage, status, created_at, updated_at`

// GetQuote loads a quote with its lines.
func (s PgStore) GetQuote(ctx context.Context, id uuid.UUID) (Quote, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, common.NotFound("quote", err)
		}
		return Quote{}, fmt.Errorf("get quote: %w", err)
	}
	lines, err := s.loadLines(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	q.Lines = lines
	return q, nil
}

// ListQuotes pages through quotes, optionally filtering by client name or
// reference. Lines are attached so callers can derive totals.
func (s PgStore) ListQuotes(ctx context.Context, search string, page, perPage int) ([]Quote, int, error) {
	pattern := "%" + search + "%"
	var total int
	err := s.Pool.QueryRow(ctx, `
		SELECT count(*) FROM quotes
		WHERE $1 = '' OR client_name ILIKE $2 OR reference ILIKE $2`,
		search, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count quotes: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+quoteColumns+` FROM quotes
		WHERE $1 = '' OR client_name ILIKE $2 OR reference ILIKE $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		search, pattern, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list quotes: %w", err)
	}
	quotes, err := scanQuotes(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachLines(ctx, quotes); err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

// AllQuotes loads every quote with its lines, oldest first.
func (s PgStore) AllQuotes(ctx context.Context) ([]Quote, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+quoteColumns+` FROM quotes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("load quotes: %w", err)
	}
	quotes, err := scanQuotes(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachLines(ctx, quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// RecentQuotes returns the most recently updated quotes with their lines.
func (s PgStore) RecentQuotes(ctx context.Context, limit int) ([]Quote, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+quoteColumns+` FROM quotes
		ORDER BY updated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent quotes: %w", err)
	}
	quotes, err := scanQuotes(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachLines(ctx, quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// CreateQuote stores a new quote, its lines, and the initial history entry
// in one transaction.
func (s PgStore) CreateQuote(ctx context.Context, q Quote, action string, payload []byte) (Quote, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("begin create quote: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO quotes (id, base_reference, revision_number, reference, client_name, project_name,
			quantity, inserts_count, discount_percentage, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+quoteColumns,
		q.ID, q.BaseReference, q.RevisionNumber, q.Reference, q.ClientName, q.ProjectName,
		q.Quantity, q.InsertsCount, q.DiscountPercentage, q.Status)
	stored, err := scanQuote(row)
	if err != nil {
		return Quote{}, mapQuoteWriteError("create quote", err)
	}
	if err := insertLines(ctx, tx, q.ID, q.Lines); err != nil {
		return Quote{}, err
	}
	if err := appendHistoryTx(ctx, tx, q.ID, action, payload); err != nil {
		return Quote{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Quote{}, fmt.Errorf("commit create quote: %w", err)
	}
	stored.Lines = q.Lines
	return stored, nil
}

// ReplaceQuote overwrites a quote's fields and full line set and appends the
// update history entry, all in one transaction.
func (s PgStore) ReplaceQuote(ctx context.Context, q Quote, action string, payload []byte) (Quote, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("begin replace quote: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE quotes
		SET client_name = $2, project_name = $3, quantity = $4, inserts_count = $5,
			discount_percentage = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+quoteColumns,
		q.ID, q.ClientName, q.ProjectName, q.Quantity, q.InsertsCount, q.DiscountPercentage)
	stored, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, common.NotFound("quote", err)
		}
		return Quote{}, mapQuoteWriteError("replace quote", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM quote_lines WHERE quote_id = $1`, q.ID); err != nil {
		return Quote{}, fmt.Errorf("clear quote lines: %w", err)
	}
	if err := insertLines(ctx, tx, q.ID, q.Lines); err != nil {
		return Quote{}, err
	}
	if err := appendHistoryTx(ctx, tx, q.ID, action, payload); err != nil {
		return Quote{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Quote{}, fmt.Errorf("commit replace quote: %w", err)
	}
	stored.Lines = q.Lines
	return stored, nil
}

// UpdateStatus transitions a quote and appends the status history entry in
// one transaction.
func (s PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, payload []byte) (Quote, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("begin update status: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE quotes SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+quoteColumns, id, status)
	stored, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, common.NotFound("quote", err)
		}
		return Quote{}, fmt.Errorf("update status: %w", err)
	}
	if err := appendHistoryTx(ctx, tx, id, ActionStatusChanged, payload); err != nil {
		return Quote{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Quote{}, fmt.Errorf("commit update status: %w", err)
	}
	lines, err := s.loadLines(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	stored.Lines = lines
	return stored, nil
}

// AppendHistory appends a standalone history entry outside a quote mutation.
func (s PgStore) AppendHistory(ctx context.Context, quoteID uuid.UUID, action string, payload []byte) error {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO quote_history (id, quote_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		uuid.New(), quoteID, action, payload)
	if err != nil {
		return fmt.Errorf("append quote history: %w", err)
	}
	return nil
}

// ListHistory returns a quote's audit trail, newest first.
func (s PgStore) ListHistory(ctx context.Context, quoteID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, quote_id, action, payload, created_at
		FROM quote_history
		WHERE quote_id = $1
		ORDER BY created_at DESC, id DESC`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("list quote history: %w", err)
	}
	defer rows.Close()
	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.QuoteID, &e.Action, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MaxRevision returns the highest revision number stored for a base
// reference. found is false when no quote uses the base.
func (s PgStore) MaxRevision(ctx context.Context, base string) (int, bool, error) {
	var max *int
	err := s.Pool.QueryRow(ctx, `
		SELECT max(revision_number) FROM quotes WHERE base_reference = $1`, base).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("max revision: %w", err)
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

func (s PgStore) loadLines(ctx context.Context, quoteID uuid.UUID) ([]pricing.Line, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT rate_card_id, description, unit_price, make_ready, units, line_total, category, is_manual
		FROM quote_lines
		WHERE quote_id = $1
		ORDER BY position`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("list quote lines: %w", err)
	}
	defer rows.Close()
	var lines []pricing.Line
	for rows.Next() {
		var l pricing.Line
		var category string
		if err := rows.Scan(&l.RateCardID, &l.Description, &l.UnitPricePerThousand,
			&l.MakeReadyFixed, &l.UnitsInThousands, &l.LineTotal, &category, &l.IsManualItem); err != nil {
			return nil, fmt.Errorf("scan quote line: %w", err)
		}
		l.Category = pricing.NormaliseCategory(category)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s PgStore) attachLines(ctx context.Context, quotes []Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(quotes))
	index := make(map[uuid.UUID]int, len(quotes))
	for i, q := range quotes {
		ids[i] = q.ID
		index[q.ID] = i
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT quote_id, rate_card_id, description, unit_price, make_ready, units, line_total, category, is_manual
		FROM quote_lines
		WHERE quote_id = ANY($1)
		ORDER BY quote_id, position`, ids)
	if err != nil {
		return fmt.Errorf("list quote lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var quoteID uuid.UUID
		var l pricing.Line
		var category string
		if err := rows.Scan(&quoteID, &l.RateCardID, &l.Description, &l.UnitPricePerThousand,
			&l.MakeReadyFixed, &l.UnitsInThousands, &l.LineTotal, &category, &l.IsManualItem); err != nil {
			return fmt.Errorf("scan quote line: %w", err)
		}
		l.Category = pricing.NormaliseCategory(category)
		if i, ok := index[quoteID]; ok {
			quotes[i].Lines = append(quotes[i].Lines, l)
		}
	}
	return rows.Err()
}

func insertLines(ctx context.Context, tx pgx.Tx, quoteID uuid.UUID, lines []pricing.Line) error {
	for i, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO quote_lines (id, quote_id, position, rate_card_id, description,
				unit_price, make_ready, units, line_total, category, is_manual)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.New(), quoteID, i, l.RateCardID, l.Description,
			l.UnitPricePerThousand, l.MakeReadyFixed, l.UnitsInThousands, l.LineTotal,
			string(l.Category), l.IsManualItem)
		if err != nil {
			return fmt.Errorf("insert quote line: %w", err)
		}
	}
	return nil
}

func appendHistoryTx(ctx context.Context, tx pgx.Tx, quoteID uuid.UUID, action string, payload []byte) error {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO quote_history (id, quote_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		uuid.New(), quoteID, action, payload)
	if err != nil {
		return fmt.Errorf("append quote history: %w", err)
	}
	return nil
}

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	var status string
	err := row.Scan(&q.ID, &q.BaseReference, &q.RevisionNumber, &q.Reference,
		&q.ClientName, &q.ProjectName, &q.Quantity, &q.InsertsCount,
		&q.DiscountPercentage, &status, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return Quote{}, err
	}
	q.Status = Status(status)
	return q, nil
}

func scanQuotes(rows pgx.Rows) ([]Quote, error) {
	defer rows.Close()
	var quotes []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func mapQuoteWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return common.Conflict("quote reference already exists", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
