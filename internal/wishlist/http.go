package wishlist

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"VinoStore/internal/catalog"
	"VinoStore/internal/session"
	"VinoStore/pkg/kit"
)

type Resolver interface {
	Wishlist(ctx context.Context, sessionID string) (*Store, error)
}

type Products interface {
	Get(ctx context.Context, id string) (catalog.Product, bool, error)
}

type Server struct {
	Wishlists Resolver
	Products  Products
	Log       *zap.Logger
}

type productReq struct {
	ProductID string `json:"product_id"`
}

type toggleResp struct {
	State
	Added bool `json:"added"`
}

type membershipResp struct {
	ProductID  string `json:"product_id"`
	InWishlist bool   `json:"in_wishlist"`
}

// Mount registers the wishlist routes; r must already require a session.
func (s *Server) Mount(r chi.Router) {
	r.Route("/wishlist", func(wr chi.Router) {
		wr.Get("/", s.get)
		wr.Delete("/", s.clear)
		wr.Post("/items", s.add)
		wr.Get("/items/{productID}", s.contains)
		wr.Delete("/items/{productID}", s.remove)
		wr.Post("/toggle", s.toggle)
	})
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no session", nil)
		return nil, false
	}

	st, err := s.Wishlists.Wishlist(r.Context(), sess.ID)
	if err != nil {
		s.Log.Warn("wishlist unavailable", zap.Error(err), zap.String("session_id", sess.ID))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "wishlist unavailable", nil)
		return nil, false
	}
	return st, true
}

// product decodes {product_id} and resolves it against the catalog.
func (s *Server) product(w http.ResponseWriter, r *http.Request) (catalog.Product, bool) {
	var req productReq
	if err := kit.DecodeJSON(w, r, &req); err != nil || req.ProductID == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "product_id required", nil)
		return catalog.Product{}, false
	}

	p, found, err := s.Products.Get(r.Context(), req.ProductID)
	if err != nil {
		s.Log.Error("product lookup failed", zap.Error(err), zap.String("product_id", req.ProductID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return catalog.Product{}, false
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "product not found", map[string]any{"product_id": req.ProductID})
		return catalog.Product{}, false
	}
	return p, true
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Server) contains(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "productID")
	kit.WriteJSON(w, http.StatusOK, membershipResp{ProductID: id, InWishlist: st.IsInWishlist(id)})
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	p, ok := s.product(w, r)
	if !ok {
		return
	}
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	state, err := st.AddItem(r.Context(), p)
	s.respond(w, r, state, err)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	p, ok := s.product(w, r)
	if !ok {
		return
	}
	st, ok := s.store(w, r)
	if !ok {
		return
	}

	state, added, err := st.ToggleItem(r.Context(), p)
	if err != nil && !errors.Is(err, ErrPersist) {
		s.respond(w, r, state, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, toggleResp{State: state, Added: added})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	state, err := st.RemoveItem(r.Context(), chi.URLParam(r, "productID"))
	s.respond(w, r, state, err)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	state, err := st.ClearWishlist(r.Context())
	s.respond(w, r, state, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, state State, err error) {
	switch {
	case err == nil, errors.Is(err, ErrPersist):
		kit.WriteJSON(w, http.StatusOK, state)
	case errors.Is(err, ErrNotHydrated):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "wishlist not loaded", nil)
	case errors.Is(err, ErrInvalidProduct):
		kit.WriteError(w, r, http.StatusBadRequest, "bad product", nil)
	default:
		s.Log.Error("wishlist operation failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}
