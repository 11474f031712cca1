package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// Dialect selects the SQL flavour of SQLKV.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

type queries struct {
	schema string
	load   string
	save   string
}

var dialectQueries = map[Dialect]queries{
	Postgres: {
		schema: `
			CREATE TABLE IF NOT EXISTS storefront_state (
				key        TEXT PRIMARY KEY,
				value      BYTEA NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
		load: `SELECT value FROM storefront_state WHERE key = $1`,
		save: `
			INSERT INTO storefront_state (key, value, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	},
	SQLite: {
		schema: `
			CREATE TABLE IF NOT EXISTS storefront_state (
				key        TEXT PRIMARY KEY,
				value      BLOB NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
		load: `SELECT value FROM storefront_state WHERE key = ?`,
		save: `
			INSERT INTO storefront_state (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE
			SET value = excluded.value, updated_at = excluded.updated_at`,
	},
}

// SQLKV stores envelopes in a single storefront_state table.
// The same type serves PostgreSQL (pgx stdlib driver) and SQLite (modernc).
type SQLKV struct {
	db      *sql.DB
	dialect Dialect
	q       queries
}

func NewSQLKV(db *sql.DB, dialect Dialect) (*SQLKV, error) {
	q, ok := dialectQueries[dialect]
	if !ok {
		return nil, fmt.Errorf("persist: unknown dialect %s", dialect)
	}
	return &SQLKV{db: db, dialect: dialect, q: q}, nil
}

// EnsureSchema creates the state table when missing.
func (s *SQLKV) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if _, err := s.db.ExecContext(ctx, s.q.schema); err != nil {
			return unavailable(s.dialect.String()+" schema", err)
		}
		return nil
	})
}

func (s *SQLKV) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		if err := s.db.PingContext(ctx); err != nil {
			return unavailable(s.dialect.String()+" ping", err)
		}
		return nil
	})
}

func (s *SQLKV) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.q.load, key).Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable(s.dialect.String()+" load", err)
	}
	return data, true, nil
}

func (s *SQLKV) Save(ctx context.Context, key string, data []byte) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if _, err := s.db.ExecContext(ctx, s.q.save, key, data, time.Now().UTC()); err != nil {
			return unavailable(s.dialect.String()+" save", err)
		}
		return nil
	})
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
