package quote

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Counter allocates monotonically increasing quote numbers.
type Counter interface {
	Next(ctx context.Context) (int64, error)
}

// PgCounter backs Counter with a single-row Postgres table. The upsert
// increments and reads in one statement, so concurrent allocations can never
// observe the same number.
type PgCounter struct {
	Pool *pgxpool.Pool
}

// Next allocates the next quote number.
func (c PgCounter) Next(ctx context.Context) (int64, error) {
	const q = `
		INSERT INTO quote_counter (id, last_number)
		VALUES ('singleton', 1)
		ON CONFLICT (id) DO UPDATE SET last_number = quote_counter.last_number + 1
		RETURNING last_number`
	var n int64
	if err := c.Pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("allocate quote number: %w", err)
	}
	return n, nil
}

// FormatBase renders an allocated number as a base reference, e.g. Q00042.
func FormatBase(n int64) string {
	return fmt.Sprintf("Q%05d", n)
}

// Reference renders the full quote reference including its revision suffix.
// A fresh quote is revision zero: Q00042-0.
func Reference(base string, revision int) string {
	return fmt.Sprintf("%s-%d", base, revision)
}
