package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Options struct {
	Backend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	TTL           time.Duration

	// Postgres is an already opened pgx-backed pool, shared with other stores.
	Postgres *sql.DB

	SQLitePath string
}

// Open builds the configured backend. The returned close func releases
// connections the backend opened itself; it never closes opts.Postgres.
func Open(ctx context.Context, opts Options) (KV, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case "", BackendMemory:
		return NewMemKV(), noop, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisKV(client, opts.RedisPrefix, opts.TTL), client.Close, nil

	case BackendPostgres:
		if opts.Postgres == nil {
			return nil, nil, fmt.Errorf("persist: postgres backend needs a database")
		}
		kv, err := NewSQLKV(opts.Postgres, Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := kv.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return kv, noop, nil

	case BackendSQLite:
		db, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		kv, err := NewSQLKV(db, SQLite)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := kv.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return kv, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("persist: unknown backend %q", opts.Backend)
	}
}

// OpenSQLite opens a file-backed database with the pure-Go driver.
// SQLite allows one writer, so the pool is pinned to a single connection.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
