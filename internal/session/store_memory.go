package session

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

type MemStore struct {
	mu      sync.RWMutex
	byEmail map[string]Account
	cost    int
}

func NewMemStore() *MemStore {
	return &MemStore{byEmail: make(map[string]Account), cost: bcrypt.DefaultCost}
}

// NewFastMemStore uses the minimum bcrypt cost; meant for tests.
func NewFastMemStore() *MemStore {
	s := NewMemStore()
	s.cost = bcrypt.MinCost
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Create(ctx context.Context, id, email, password string) error {
	email = normalizeEmail(email)
	password = normalizePassword(password)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return ErrEmailExists
	}
	s.byEmail[email] = Account{ID: id, Email: email, Hash: hash}
	return nil
}

func (s *MemStore) Verify(ctx context.Context, email, password string) (Account, error) {
	email = normalizeEmail(email)
	password = normalizePassword(password)

	s.mu.RLock()
	a, ok := s.byEmail[email]
	s.mu.RUnlock()

	if !ok {
		return Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.Hash, []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return a, nil
}
