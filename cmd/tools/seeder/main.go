package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	ensureSchema(db)
	seedRateCards(db)

	log.Println("Seeding completed successfully!")
}

func ensureSchema(db *sql.DB) {
	fmt.Println("Ensuring schema...")
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rate_cards (
			id UUID PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			unit TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'PRINT',
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS rate_card_bands (
			id UUID PRIMARY KEY,
			rate_card_id UUID NOT NULL REFERENCES rate_cards(id) ON DELETE CASCADE,
			from_qty INTEGER NOT NULL,
			to_qty INTEGER NOT NULL,
			price_per_thousand NUMERIC(12,2) NOT NULL,
			make_ready NUMERIC(12,2) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rate_card_bands_card
			ON rate_card_bands (rate_card_id, from_qty)`,
		`CREATE TABLE IF NOT EXISTS quotes (
			id UUID PRIMARY KEY,
			base_reference TEXT NOT NULL,
			revision_number INTEGER NOT NULL DEFAULT 0,
			reference TEXT NOT NULL UNIQUE,
			client_name TEXT NOT NULL,
			project_name TEXT,
			quantity INTEGER NOT NULL,
			inserts_count INTEGER NOT NULL DEFAULT 0,
			discount_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'DRAFT',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_base_reference
			ON quotes (base_reference)`,
		`CREATE TABLE IF NOT EXISTS quote_lines (
			id UUID PRIMARY KEY,
			quote_id UUID NOT NULL REFERENCES quotes(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			rate_card_id TEXT NOT NULL,
			description TEXT NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			make_ready NUMERIC(12,2) NOT NULL,
			units NUMERIC(12,4) NOT NULL,
			line_total NUMERIC(12,2) NOT NULL,
			category TEXT NOT NULL,
			is_manual BOOLEAN NOT NULL DEFAULT false
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quote_lines_quote
			ON quote_lines (quote_id, position)`,
		`CREATE TABLE IF NOT EXISTS quote_history (
			id UUID PRIMARY KEY,
			quote_id UUID NOT NULL REFERENCES quotes(id) ON DELETE CASCADE,
			action TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quote_history_quote
			ON quote_history (quote_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS quote_counter (
			id TEXT PRIMARY KEY,
			last_number BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS domain_events (
			id UUID PRIMARY KEY,
			topic TEXT NOT NULL,
			aggregate_id UUID NOT NULL,
			payload JSONB NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
	}
}

type band struct {
	FromQty          int
	ToQty            int
	PricePerThousand string
	MakeReady        string
}

type rateCard struct {
	Code     string
	Name     string
	Unit     string
	Category string
	Notes    string
	Bands    []band
}

func seedRateCards(db *sql.DB) {
	cards := []rateCard{
		{
			Code: "DATA-IN", Name: "Data Ingestion", Unit: "PER_1K", Category: "DATA_PROCESSING",
			Notes: "Standard data preparation and validation.",
			Bands: []band{
				{1, 10000, "35", "45"},
				{10001, 50000, "28", "45"},
				{50001, 200000, "22", "35"},
			},
		},
		{
			Code: "A4-SIMPLEX", Name: "Personalise A4 Simplex", Unit: "PER_1K", Category: "PERSONALISATION",
			Notes: "Digital print simplex.",
			Bands: []band{
				{1, 10000, "70", "65"},
				{10001, 50000, "55", "65"},
				{50001, 200000, "48", "55"},
			},
		},
		{
			Code: "FOLD-A4-A5", Name: "Fold A4 to A5", Unit: "PER_1K", Category: "FINISHING",
			Bands: []band{
				{1, 10000, "25", "30"},
				{10001, 50000, "19", "28"},
				{50001, 200000, "16", "26"},
			},
		},
		{
			Code: "ENV-C5", Name: "Envelope Supply C5", Unit: "JOB", Category: "ENVELOPES",
			Bands: []band{
				{1, 999999, "0", "135"},
			},
		},
		{
			Code: "ENCLOSE", Name: "Enclose Items", Unit: "ENCLOSE", Category: "ENCLOSING",
			Notes: "Insert-aware enclosing line.",
			Bands: []band{
				{1, 10000, "40", "60"},
				{10001, 50000, "32", "60"},
				{50001, 200000, "27", "55"},
			},
		},
		{
			Code: "POST-C5-STANDARD", Name: "Postage C5 Standard", Unit: "PER_1K", Category: "POSTAGE",
			Notes: "Royal Mail standard class.",
			Bands: []band{
				{1, 10000, "295", "0"},
				{10001, 50000, "285", "0"},
				{50001, 200000, "275", "0"},
			},
		},
	}

	fmt.Println("Seeding Rate Cards...")
	for _, c := range cards {
		var notes sql.NullString
		if c.Notes != "" {
			notes = sql.NullString{String: c.Notes, Valid: true}
		}

		var cardID string
		err := db.QueryRow(`
			INSERT INTO rate_cards (id, code, name, unit, category, notes)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
			ON CONFLICT (code) DO UPDATE SET
				name = EXCLUDED.name,
				unit = EXCLUDED.unit,
				category = EXCLUDED.category,
				notes = EXCLUDED.notes,
				updated_at = now()
			RETURNING id;
		`, c.Code, c.Name, c.Unit, c.Category, notes).Scan(&cardID)
		if err != nil {
			log.Printf("Failed to seed rate card %s: %v", c.Code, err)
			continue
		}

		if _, err := db.Exec(`DELETE FROM rate_card_bands WHERE rate_card_id = $1`, cardID); err != nil {
			log.Printf("Failed to clear bands for %s: %v", c.Code, err)
			continue
		}
		for _, b := range c.Bands {
			_, err := db.Exec(`
				INSERT INTO rate_card_bands (id, rate_card_id, from_qty, to_qty, price_per_thousand, make_ready)
				VALUES (gen_random_uuid(), $1, $2, $3, $4, $5);
			`, cardID, b.FromQty, b.ToQty, b.PricePerThousand, b.MakeReady)
			if err != nil {
				log.Printf("Failed to seed band for %s: %v", c.Code, err)
			}
		}
	}
}
