package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"VinoStore/internal/cart"
	"VinoStore/internal/persist"
	"VinoStore/internal/wishlist"
)

// bag is one visitor session's pair of stores.
type bag struct {
	cart     *cart.Store
	wishlist *wishlist.Store

	hydrateMu sync.Mutex
	lastUsed  time.Time
}

// Sessions creates a session's stores on first use and hydrates them
// before handing them out. It implements cart.Resolver and wishlist.Resolver.
type Sessions struct {
	kv  persist.KV
	log *zap.Logger
	now func() time.Time

	mu   sync.Mutex
	bags map[string]*bag

	active prometheus.Gauge
}

func NewSessions(kv persist.KV, log *zap.Logger, reg prometheus.Registerer) *Sessions {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sessions{
		kv:   kv,
		log:  log,
		now:  time.Now,
		bags: map[string]*bag{},
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_sessions_active",
			Help: "Visitor sessions with stores held in memory",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.active)
	}
	return s
}

func (s *Sessions) Cart(ctx context.Context, sessionID string) (*cart.Store, error) {
	b, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return b.cart, nil
}

func (s *Sessions) Wishlist(ctx context.Context, sessionID string) (*wishlist.Store, error) {
	b, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return b.wishlist, nil
}

// Len reports how many sessions are held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bags)
}

func (s *Sessions) get(ctx context.Context, sessionID string) (*bag, error) {
	if sessionID == "" {
		return nil, errors.New("empty session id")
	}

	s.mu.Lock()
	b, ok := s.bags[sessionID]
	if !ok {
		b = &bag{
			cart:     cart.NewStore(persist.SessionKey(persist.CartKey, sessionID), s.kv, s.log),
			wishlist: wishlist.NewStore(persist.SessionKey(persist.WishlistKey, sessionID), s.kv, s.log),
		}
		s.bags[sessionID] = b
		s.active.Set(float64(len(s.bags)))
	}
	b.lastUsed = s.now()
	s.mu.Unlock()

	if err := b.hydrate(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// hydrate loads both stores concurrently. Stores that already hydrated are
// skipped, so a partial failure is retried only for the missing half.
func (b *bag) hydrate(ctx context.Context) error {
	b.hydrateMu.Lock()
	defer b.hydrateMu.Unlock()

	if b.cart.Hydrated() && b.wishlist.Hydrated() {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.cart.Hydrate(gctx) })
	g.Go(func() error { return b.wishlist.Hydrate(gctx) })
	return g.Wait()
}

func (b *bag) flush(ctx context.Context) error {
	return errors.Join(b.cart.Flush(ctx), b.wishlist.Flush(ctx))
}

// Sweep flushes and drops sessions idle for longer than idle. Sessions whose
// flush fails are kept so their unsaved state is not lost.
func (s *Sessions) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	var stale []string
	for id, b := range s.bags {
		if b.lastUsed.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	evicted := 0
	for _, id := range stale {
		s.mu.Lock()
		b, ok := s.bags[id]
		s.mu.Unlock()
		if !ok {
			continue
		}

		if err := b.flush(ctx); err != nil {
			s.log.Warn("keeping idle session with unsaved state", zap.String("session_id", id), zap.Error(err))
			continue
		}

		s.mu.Lock()
		if cur, ok := s.bags[id]; ok && cur == b && b.lastUsed.Before(cutoff) {
			delete(s.bags, id)
			evicted++
		}
		s.active.Set(float64(len(s.bags)))
		s.mu.Unlock()
	}
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(ctx, idle); n > 0 {
				s.log.Debug("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

// FlushAll saves every dirty store; used on shutdown.
func (s *Sessions) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	bags := make([]*bag, 0, len(s.bags))
	for _, b := range s.bags {
		bags = append(bags, b)
	}
	s.mu.Unlock()

	var errs []error
	for _, b := range bags {
		errs = append(errs, b.flush(ctx))
	}
	return errors.Join(errs...)
}
