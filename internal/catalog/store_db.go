package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const productColumns = `id, title, category, region, grape, vintage, price_cents, original_price_cents, variant_id, image_url`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

// listQuery renders the SQL for f. Sorting by discount is done in Go since
// it is a derived value.
func listQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Category != "" {
		where = append(where, "lower(category) = lower("+arg(f.Category)+")")
	}
	if f.Region != "" {
		where = append(where, "lower(region) = lower("+arg(f.Region)+")")
	}
	if f.MinPriceCents > 0 {
		where = append(where, "price_cents >= "+arg(f.MinPriceCents))
	}
	if f.MaxPriceCents > 0 {
		where = append(where, "price_cents <= "+arg(f.MaxPriceCents))
	}
	if f.OnSale {
		where = append(where, "original_price_cents > price_cents")
	}
	if f.Query != "" {
		// literal substring match, as in MemStore
		p := arg("%" + likeEscaper.Replace(f.Query) + "%")
		where = append(where, "(title ILIKE "+p+` ESCAPE '\' OR grape ILIKE `+p+` ESCAPE '\' OR region ILIKE `+p+` ESCAPE '\')`)
	}

	var b strings.Builder
	b.WriteString("SELECT " + productColumns + " FROM products")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	switch f.Sort {
	case SortPriceAsc:
		b.WriteString(" ORDER BY price_cents ASC, id ASC")
	case SortPriceDesc:
		b.WriteString(" ORDER BY price_cents DESC, id ASC")
	case SortName:
		b.WriteString(" ORDER BY lower(title) ASC, id ASC")
	default:
		b.WriteString(" ORDER BY id ASC")
	}
	return b.String(), args
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		q, args := listQuery(f)
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if f.Sort == SortDiscount {
		out = Filter{Sort: SortDiscount}.Apply(out)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Product, bool, error) {
	var (
		p   Product
		err error
	)

	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
		p, err = scanProduct(row)
		return err
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (Product, error) {
	var (
		p        Product
		grape    sql.NullString
		vintage  sql.NullInt64
		original sql.NullInt64
		image    sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Category, &p.Region, &grape, &vintage,
		&p.PriceCents, &original, &p.VariantID, &image); err != nil {
		return Product{}, err
	}
	p.Grape = grape.String
	p.Vintage = int(vintage.Int64)
	p.OriginalPriceCents = original.Int64
	p.ImageURL = image.String
	return p, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
