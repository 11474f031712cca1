// Package session identifies storefront visitors. A session id selects the
// visitor's cart and wishlist; guests get a random one, customers a stable
// one derived from their account so their state follows them across devices.
package session

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"VinoStore/pkg/kit"
)

type Session struct {
	ID         string `json:"session_id"`
	Kind       Kind   `json:"kind"`
	CustomerID string `json:"customer_id,omitempty"`
	Email      string `json:"email,omitempty"`
}

func NewGuest() Session {
	return Session{ID: "g_" + uuid.NewString(), Kind: KindGuest}
}

func ForCustomer(a Account) Session {
	return Session{ID: "c_" + a.ID, Kind: KindCustomer, CustomerID: a.ID, Email: a.Email}
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// RequireSession rejects requests without a valid bearer token and stores
// the session in the request context.
func RequireSession(tm *TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := kit.BearerToken(r)
			if !ok {
				kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
				return
			}

			s, err := tm.Parse(tok)
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
