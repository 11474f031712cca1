// Package wishlist keeps the products a visitor saved for later, unique by id.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"VinoStore/internal/catalog"
	"VinoStore/internal/persist"
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrPersist        = errors.New("wishlist not persisted")
	// ErrNotHydrated rejects changes until the persisted wishlist is loaded.
	ErrNotHydrated = errors.New("wishlist not hydrated")
)

type State struct {
	Items      []catalog.Product `json:"items"`
	IsHydrated bool              `json:"is_hydrated"`
	Dirty      bool              `json:"dirty"`
	Version    uint64            `json:"version"`
}

func (s State) Contains(productID string) bool {
	return indexOf(s.Items, productID) >= 0
}

type persisted struct {
	Items []catalog.Product `json:"items"`
}

// Store mirrors cart.Store: serialized transitions, a snapshot per
// transition, save-on-change.
type Store struct {
	mu        sync.Mutex
	key       string
	kv        persist.KV
	log       *zap.Logger
	state     State
	listeners persist.Listeners[State]
}

// NewStore creates an unhydrated wishlist; changes fail with ErrNotHydrated
// until Hydrate or SetHydrated has run.
func NewStore(key string, kv persist.KV, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		key:   key,
		kv:    kv,
		log:   log.With(zap.String("store", "wishlist"), zap.String("key", key)),
		state: State{Items: []catalog.Product{}},
	}
}

func (s *Store) Key() string { return s.key }

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	return s.listeners.Add(fn)
}

// AddItem saves p unless a product with the same id is already there.
func (s *Store) AddItem(ctx context.Context, p catalog.Product) (State, error) {
	if strings.TrimSpace(p.ID) == "" {
		return State{}, ErrInvalidProduct
	}
	return s.mutate(ctx, func(items []catalog.Product) []catalog.Product {
		if indexOf(items, p.ID) >= 0 {
			return items
		}
		return append(items, p)
	})
}

func (s *Store) RemoveItem(ctx context.Context, productID string) (State, error) {
	return s.mutate(ctx, func(items []catalog.Product) []catalog.Product {
		return remove(items, productID)
	})
}

// ToggleItem removes p when present and adds it otherwise. added reports
// which of the two happened.
func (s *Store) ToggleItem(ctx context.Context, p catalog.Product) (state State, added bool, err error) {
	if strings.TrimSpace(p.ID) == "" {
		return State{}, false, ErrInvalidProduct
	}
	state, err = s.mutate(ctx, func(items []catalog.Product) []catalog.Product {
		if indexOf(items, p.ID) >= 0 {
			return remove(items, p.ID)
		}
		added = true
		return append(items, p)
	})
	return state, added, err
}

func (s *Store) IsInWishlist(productID string) bool {
	return s.Snapshot().Contains(productID)
}

func (s *Store) ClearWishlist(ctx context.Context) (State, error) {
	return s.mutate(ctx, func([]catalog.Product) []catalog.Product { return []catalog.Product{} })
}

// SetHydrated flips IsHydrated once; later calls do nothing.
func (s *Store) SetHydrated() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsHydrated {
		return
	}
	next := s.state
	next.IsHydrated = true
	next.Version++
	s.publishLocked(next)
}

func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsHydrated
}

// Hydrate loads the persisted wishlist. See cart.Store.Hydrate for the
// error contract.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsHydrated {
		return nil
	}

	items := []catalog.Product{}
	if s.kv != nil {
		data, found, err := s.kv.Load(ctx, s.key)
		if err != nil {
			return fmt.Errorf("hydrate wishlist: %w", err)
		}
		if found {
			p, err := persist.Decode[persisted](data)
			if err != nil {
				s.log.Warn("discarding persisted wishlist", zap.Error(err))
			} else {
				items = dedupe(p.Items)
			}
		}
	}

	next := s.state
	next.Items = items
	next.IsHydrated = true
	next.Dirty = false
	next.Version++
	s.publishLocked(next)
	return nil
}

func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Dirty {
		return nil
	}
	if err := s.saveLocked(ctx, s.state.Items); err != nil {
		return err
	}
	next := s.state
	next.Dirty = false
	next.Version++
	s.publishLocked(next)
	return nil
}

func (s *Store) mutate(ctx context.Context, fn func([]catalog.Product) []catalog.Product) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsHydrated {
		return s.state, ErrNotHydrated
	}

	next := s.state
	items := make([]catalog.Product, len(s.state.Items))
	copy(items, s.state.Items)
	next.Items = fn(items)
	next.Version++

	err := s.saveLocked(ctx, next.Items)
	next.Dirty = err != nil

	s.publishLocked(next)
	return next, err
}

func (s *Store) publishLocked(next State) {
	s.state = next
	s.listeners.Notify(next)
}

func (s *Store) saveLocked(ctx context.Context, items []catalog.Product) error {
	if s.kv == nil {
		return nil
	}

	data, err := persist.Encode(persisted{Items: items})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := s.kv.Save(ctx, s.key, data); err != nil {
		s.log.Warn("wishlist save failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func indexOf(items []catalog.Product, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func remove(items []catalog.Product, id string) []catalog.Product {
	if i := indexOf(items, id); i >= 0 {
		return append(items[:i], items[i+1:]...)
	}
	return items
}

func dedupe(items []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, 0, len(items))
	for _, p := range items {
		if p.ID != "" && indexOf(out, p.ID) < 0 {
			out = append(out, p)
		}
	}
	return out
}
