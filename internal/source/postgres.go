package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"compsbot/internal/config"
	"compsbot/internal/domain"
	"compsbot/internal/infra/postgres"
)

const maxComps = 12

var zipRe = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)

// extractZip pulls the ZIP code out of a free-text address. US addresses put
// the ZIP last, so the last 5-digit run wins over street numbers.
func extractZip(address string) string {
	ms := zipRe.FindAllStringSubmatch(address, -1)
	if len(ms) == 0 {
		return ""
	}
	return ms[len(ms)-1][1]
}

// Postgres reads comparable sales from a comparable_sales table, matched by
// the subject's ZIP code, most recent sales first.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects and ensures the comps schema exists.
func NewPostgres(cfg config.PostgresConfig) (*Postgres, error) {
	db, err := postgres.Open(cfg)
	if err != nil {
		return nil, err
	}
	p := &Postgres{db: db}
	if err := p.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl1 := `CREATE TABLE IF NOT EXISTS comparable_sales (
		id BIGSERIAL PRIMARY KEY,
		address TEXT NOT NULL,
		zip TEXT NOT NULL,
		sold_price INTEGER NOT NULL,
		sold_date DATE NOT NULL,
		beds INTEGER NOT NULL DEFAULT 0,
		baths DOUBLE PRECISION NOT NULL DEFAULT 0,
		sqft INTEGER NOT NULL DEFAULT 0,
		year_built INTEGER NOT NULL DEFAULT 0
	);`
	ddl2 := `CREATE INDEX IF NOT EXISTS idx_comparable_sales_zip ON comparable_sales (zip, sold_date);`
	if _, err := p.db.ExecContext(ctx, ddl1); err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, ddl2); err != nil {
		return err
	}
	return nil
}

// FetchComps returns recent sales sharing the subject's ZIP code.
func (p *Postgres) FetchComps(ctx context.Context, address string) ([]domain.Comp, error) {
	zip := extractZip(address)
	if zip == "" {
		return nil, fmt.Errorf("%w: address %q has no ZIP code to match comps on", domain.ErrValidation, address)
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT address, sold_price, sold_date, beds, baths, sqft, year_built
		 FROM comparable_sales
		 WHERE zip = $1
		 ORDER BY sold_date DESC
		 LIMIT $2;`, zip, maxComps)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Comp
	for rows.Next() {
		var c domain.Comp
		if err := rows.Scan(&c.Address, &c.SoldPrice, &c.SoldDate, &c.Beds, &c.Baths, &c.Sqft, &c.Year); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
