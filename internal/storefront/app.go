// Package storefront wires the storefront state service: catalog, sessions,
// the per-session cart and wishlist stores, and checkout hand-off.
package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"VinoStore/internal/cart"
	"VinoStore/internal/catalog"
	"VinoStore/internal/persist"
	"VinoStore/internal/session"
	"VinoStore/internal/wishlist"
	"VinoStore/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

type Deps struct {
	Catalog  catalog.Store
	KV       persist.KV
	Sessions *Sessions
	Accounts session.AccountStore
	JWT      *session.TokenMaker
	TokenTTL time.Duration
	Checkout cart.CheckoutStarter
}

const readyTimeout = 2 * time.Second

func NewHandler(deps Deps, httpDeps HTTPDeps) http.Handler {
	log := httpDeps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	kit.Base(r, log)
	setupMetrics(r, httpDeps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(deps, log))

	(&catalog.Server{Store: deps.Catalog, Log: log}).Mount(r)
	(&session.Server{Log: log, Accounts: deps.Accounts, JWT: deps.JWT, TTL: deps.TokenTTL}).Mount(r)

	r.Group(func(pr chi.Router) {
		pr.Use(session.RequireSession(deps.JWT))

		(&cart.Server{
			Carts:    deps.Sessions,
			Products: deps.Catalog,
			Checkout: deps.Checkout,
			Log:      log,
		}).Mount(pr)

		(&wishlist.Server{
			Wishlists: deps.Sessions,
			Products:  deps.Catalog,
			Log:       log,
		}).Mount(pr)
	})

	return r
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// readyz probes the state store and the catalog in parallel.
func readyz(deps Deps, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return deps.KV.Ping(gctx) })
		g.Go(func() error { return deps.Catalog.Ping(gctx) })
		if deps.Accounts != nil {
			g.Go(func() error { return deps.Accounts.Ping(gctx) })
		}

		if err := g.Wait(); err != nil {
			log.Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
