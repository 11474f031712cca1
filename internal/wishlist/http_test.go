package wishlist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"VinoStore/internal/catalog"
	"VinoStore/internal/session"
)

type fixedWishlists struct{ store *Store }

func (f fixedWishlists) Wishlist(context.Context, string) (*Store, error) { return f.store, nil }

type fixedProducts map[string]catalog.Product

func (f fixedProducts) Get(_ context.Context, id string) (catalog.Product, bool, error) {
	p, ok := f[id]
	return p, ok, nil
}

func newWishlistRouter(store *Store) http.Handler {
	s := &Server{
		Wishlists: fixedWishlists{store: store},
		Products:  fixedProducts{p1.ID: p1},
		Log:       zap.NewNop(),
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), session.NewGuest())))
		})
	})
	s.Mount(r)
	return r
}

func TestServer_ChangesBeforeHydrateAreUnavailable(t *testing.T) {
	h := newWishlistRouter(NewStore("k", nil, nil))

	for _, path := range []string{"/wishlist/items", "/wishlist/toggle"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"product_id":"w-barolo-2018"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s status=%d want 503 body=%s", path, rec.Code, rec.Body.String())
		}
	}
}
