package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"VinoStore/internal/catalog"
	"VinoStore/internal/config"
	"VinoStore/pkg/kit"
)

func main() {
	service := "catalog"

	cfg, err := config.LoadCatalog()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store catalog.Store
	switch {
	case cfg.CatalogBackend == "postgres":
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("open postgres failed", zap.Error(err))
		}
		defer db.Close()
		store = catalog.NewPostgresStore(db)
	case cfg.CatalogSeed != "":
		products, err := catalog.LoadSeedFile(cfg.CatalogSeed)
		if err != nil {
			log.Fatal("load catalog seed failed", zap.Error(err))
		}
		store = catalog.NewMemStore(products)
	default:
		store = catalog.NewStore()
	}

	h := catalog.NewHandler(&catalog.Server{Store: store, Log: log}, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: true,
		MetricsToken:   cfg.MetricsToken,
	})

	if err := kit.RunHTTPServer(ctx, cfg.Addr(), h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
