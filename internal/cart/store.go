package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"VinoStore/internal/catalog"
	"VinoStore/internal/persist"
)

// Store owns one session's cart. Transitions are serialized by mu and each
// one publishes a fresh snapshot to listeners before returning. Listeners run
// inside the transition and must not call back into the Store.
type Store struct {
	mu        sync.Mutex
	key       string
	kv        persist.KV
	log       *zap.Logger
	newID     func() string
	state     State
	listeners persist.Listeners[State]
}

// NewStore creates an empty, not yet hydrated cart saved under key.
// A nil kv keeps the cart in memory only. Item changes fail with
// ErrNotHydrated until Hydrate or SetHydrated has run.
func NewStore(key string, kv persist.KV, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		key:   key,
		kv:    kv,
		log:   log.With(zap.String("store", "cart"), zap.String("key", key)),
		newID: func() string { return "li_" + uuid.NewString() },
		state: State{Items: []Item{}},
	}
}

func (s *Store) Key() string { return s.key }

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every future snapshot.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	return s.listeners.Add(fn)
}

// AddItem merges quantity into the line for p, or appends a new line.
func (s *Store) AddItem(ctx context.Context, p catalog.Product, quantity int) (State, error) {
	if strings.TrimSpace(p.ID) == "" || p.PriceCents < 0 {
		return State{}, ErrInvalidProduct
	}
	if quantity < 1 {
		return State{}, ErrInvalidQuantity
	}

	return s.mutate(ctx, func(items []Item) []Item {
		for i := range items {
			if items[i].Product.ID == p.ID {
				items[i].Product = p
				items[i].Quantity += quantity
				return items
			}
		}
		return append(items, Item{ID: s.newID(), Product: p, Quantity: quantity})
	})
}

// RemoveItem deletes the line itemID; unknown ids are a no-op.
func (s *Store) RemoveItem(ctx context.Context, itemID string) (State, error) {
	return s.mutate(ctx, func(items []Item) []Item {
		return removeLine(items, itemID)
	})
}

// UpdateQuantity sets the quantity of itemID. A quantity of zero or less
// removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) (State, error) {
	return s.mutate(ctx, func(items []Item) []Item {
		if quantity <= 0 {
			return removeLine(items, itemID)
		}
		for i := range items {
			if items[i].ID == itemID {
				items[i].Quantity = quantity
				break
			}
		}
		return items
	})
}

func (s *Store) ClearCart(ctx context.Context) (State, error) {
	return s.mutate(ctx, func([]Item) []Item { return []Item{} })
}

func (s *Store) OpenCart() State   { return s.setOpen(func(bool) bool { return true }) }
func (s *Store) CloseCart() State  { return s.setOpen(func(bool) bool { return false }) }
func (s *Store) ToggleCart() State { return s.setOpen(func(open bool) bool { return !open }) }

// SetHydrated marks the initial load as finished. Only the first call has an effect.
func (s *Store) SetHydrated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setHydratedLocked()
}

func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsHydrated
}

// Hydrate replaces the items with the persisted ones and marks the store
// hydrated. Storage errors leave it unhydrated so the caller can retry;
// corrupt data is discarded and the cart starts empty.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsHydrated {
		return nil
	}

	items := []Item{}
	if s.kv != nil {
		data, found, err := s.kv.Load(ctx, s.key)
		if err != nil {
			return fmt.Errorf("hydrate cart: %w", err)
		}
		if found {
			p, err := persist.Decode[persisted](data)
			if err != nil {
				s.log.Warn("discarding persisted cart", zap.Error(err))
			} else {
				items = sanitize(p.Items)
			}
		}
	}

	next := s.state
	next.Items = items
	next.IsHydrated = true
	next.Dirty = false
	next.Version++
	s.publishLocked(withTotals(next))
	return nil
}

// Flush retries a failed save. It is a no-op when storage is up to date.
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

func (s *Store) mutate(ctx context.Context, fn func(items []Item) []Item) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsHydrated {
		return s.state, ErrNotHydrated
	}

	next := s.state
	next.Items = fn(cloneItems(s.state.Items))
	next = withTotals(next)
	next.Version++

	err := s.saveLocked(ctx, next.Items)
	next.Dirty = err != nil

	s.publishLocked(next)
	return next, err
}

func (s *Store) setOpen(fn func(bool) bool) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.IsOpen = fn(next.IsOpen)
	next.Version++
	s.publishLocked(next)
	return next
}

func (s *Store) setHydratedLocked() {
	if s.state.IsHydrated {
		return
	}
	next := s.state
	next.IsHydrated = true
	next.Version++
	s.publishLocked(next)
}

func (s *Store) publishLocked(next State) {
	s.state = next
	s.listeners.Notify(next)
}

func (s *Store) saveLocked(ctx context.Context, items []Item) error {
	if s.kv == nil {
		return nil
	}

	data, err := persist.Encode(persisted{Items: items})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := s.kv.Save(ctx, s.key, data); err != nil {
		s.log.Warn("cart save failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func removeLine(items []Item, itemID string) []Item {
	for i := range items {
		if items[i].ID == itemID {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}

// IsPersistError reports whether err only signals a failed save.
func IsPersistError(err error) bool {
	return errors.Is(err, ErrPersist)
}
