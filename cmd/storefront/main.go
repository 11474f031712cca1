package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"VinoStore/internal/catalog"
	"VinoStore/internal/checkout"
	"VinoStore/internal/config"
	"VinoStore/internal/persist"
	"VinoStore/internal/session"
	"VinoStore/internal/storefront"
	"VinoStore/pkg/kit"
)

const (
	service      = "storefront"
	flushTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("storefront stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var db *sql.DB
	if cfg.UsesPostgres() {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
	}

	kv, closeKV, err := persist.Open(ctx, persist.Options{
		Backend:       cfg.PersistBackend,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisPrefix:   cfg.RedisPrefix,
		TTL:           cfg.StateTTL,
		Postgres:      db,
		SQLitePath:    cfg.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer func() { _ = closeKV() }()

	reg := prometheus.NewRegistry()
	kv = persist.Instrument(kv, cfg.PersistBackend, persist.NewMetrics(reg))

	products, err := catalogStore(cfg, db)
	if err != nil {
		return err
	}

	var accounts session.AccountStore = session.NewMemStore()
	if db != nil {
		pg := session.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("customers schema: %w", err)
		}
		accounts = pg
	}

	sessions := storefront.NewSessions(kv, log, reg)
	go sessions.RunSweeper(ctx, cfg.SweepInterval, cfg.SessionIdleTTL)

	h := storefront.NewHandler(storefront.Deps{
		Catalog:  products,
		KV:       kv,
		Sessions: sessions,
		Accounts: accounts,
		JWT:      session.NewTokenMaker(cfg.JWTSecret),
		TokenTTL: cfg.TokenTTL,
		Checkout: checkout.NewClient(cfg.CommerceURL),
	}, storefront.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   cfg.MetricsToken,
	})

	log.Info("starting",
		zap.String("addr", cfg.Addr()),
		zap.String("persist_backend", cfg.PersistBackend),
		zap.String("catalog_backend", cfg.CatalogBackend),
	)
	serveErr := kit.RunHTTPServer(ctx, cfg.Addr(), h, log)

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := sessions.FlushAll(flushCtx); err != nil {
		log.Error("unsaved session state on shutdown", zap.Error(err))
	}

	return serveErr
}

func catalogStore(cfg *config.Config, db *sql.DB) (catalog.Store, error) {
	if cfg.CatalogBackend == "postgres" {
		return catalog.NewPostgresStore(db), nil
	}
	if cfg.CatalogSeed == "" {
		return catalog.NewStore(), nil
	}

	products, err := catalog.LoadSeedFile(cfg.CatalogSeed)
	if err != nil {
		return nil, fmt.Errorf("load catalog seed: %w", err)
	}
	return catalog.NewMemStore(products), nil
}
