// Package persist holds the durable key-value layer behind the cart and
// wishlist stores: the KV contract, the versioned envelope the stores are
// serialized in, and the Redis, PostgreSQL, SQLite and in-memory backends.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Base keys of the persisted stores. Per-session keys append ":<session id>".
const (
	CartKey     = "vpl-cart"
	WishlistKey = "vpl-wishlist"
)

// EnvelopeVersion is written into every saved envelope.
const EnvelopeVersion = 0

var (
	// ErrUnavailable wraps every backend failure (connection, timeout, quota).
	ErrUnavailable = errors.New("storage unavailable")
	// ErrCorrupt is returned by Decode when the stored bytes are not an envelope.
	ErrCorrupt = errors.New("corrupt persisted state")
)

// KV is the narrow load/save contract the stores depend on.
// Load reports found=false, with a nil error, when the key was never saved.
type KV interface {
	Load(ctx context.Context, key string) (data []byte, found bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Ping(ctx context.Context) error
}

// SessionKey returns the storage key of one session's store.
func SessionKey(base, sessionID string) string {
	return base + ":" + sessionID
}

// Envelope is the on-disk shape: {"state": {...}, "version": 0}.
type Envelope[S any] struct {
	State   S   `json:"state"`
	Version int `json:"version"`
}

func Encode[S any](state S) ([]byte, error) {
	b, err := json.Marshal(Envelope[S]{State: state, Version: EnvelopeVersion})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return b, nil
}

func Decode[S any](data []byte) (S, error) {
	var env Envelope[S]
	if err := json.Unmarshal(data, &env); err != nil {
		var zero S
		return zero, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version > EnvelopeVersion {
		var zero S
		return zero, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, env.Version)
	}
	return env.State, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
