package session

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Account struct {
	ID    string
	Email string
	Hash  []byte
}

type AccountStore interface {
	Create(ctx context.Context, id, email, password string) error
	Verify(ctx context.Context, email, password string) (Account, error)
	Ping(ctx context.Context) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePassword(password string) string {
	return strings.TrimSpace(password)
}
