package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"VinoStore/internal/catalog"
	"VinoStore/internal/checkout"
	"VinoStore/internal/session"
	"VinoStore/pkg/kit"
)

// Resolver hands out the hydrated cart of a session.
type Resolver interface {
	Cart(ctx context.Context, sessionID string) (*Store, error)
}

type Products interface {
	Get(ctx context.Context, id string) (catalog.Product, bool, error)
}

type CheckoutStarter interface {
	Start(ctx context.Context, lines []checkout.Line) (checkout.Session, error)
}

type Server struct {
	Carts    Resolver
	Products Products
	Checkout CheckoutStarter
	Log      *zap.Logger
}

type addReq struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type updateReq struct {
	Quantity *int `json:"quantity"`
}

// Mount registers the cart routes; r must already require a session.
func (s *Server) Mount(r chi.Router) {
	r.Route("/cart", func(cr chi.Router) {
		cr.Get("/", s.get)
		cr.Delete("/", s.clear)
		cr.Post("/items", s.add)
		cr.Patch("/items/{id}", s.update)
		cr.Delete("/items/{id}", s.remove)
		cr.Post("/open", s.visibility((*Store).OpenCart))
		cr.Post("/close", s.visibility((*Store).CloseCart))
		cr.Post("/toggle", s.visibility((*Store).ToggleCart))
		cr.Get("/events", s.events)
		cr.Post("/checkout", s.checkout)
	})
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no session", nil)
		return nil, false
	}

	st, err := s.Carts.Cart(r.Context(), sess.ID)
	if err != nil {
		s.Log.Warn("cart unavailable", zap.Error(err), zap.String("session_id", sess.ID))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "cart unavailable", nil)
		return nil, false
	}
	return st, true
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var req addReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	st, ok := s.store(w, r)
	if !ok {
		return
	}

	p, found, err := s.Products.Get(r.Context(), req.ProductID)
	if err != nil {
		s.Log.Error("product lookup failed", zap.Error(err), zap.String("product_id", req.ProductID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "product not found", map[string]any{"product_id": req.ProductID})
		return
	}

	state, err := st.AddItem(r.Context(), p, qty)
	s.respond(w, r, state, err)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var req updateReq
	if err := kit.DecodeJSON(w, r, &req); err != nil || req.Quantity == nil {
		kit.WriteError(w, r, http.StatusBadRequest, "quantity required", nil)
		return
	}

	st, ok := s.store(w, r)
	if !ok {
		return
	}
	state, err := st.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), *req.Quantity)
	s.respond(w, r, state, err)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	state, err := st.RemoveItem(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, state, err)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	state, err := st.ClearCart(r.Context())
	s.respond(w, r, state, err)
}

func (s *Server) visibility(fn func(*Store) State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := s.store(w, r)
		if !ok {
			return
		}
		kit.WriteJSON(w, http.StatusOK, fn(st))
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, state State, err error) {
	switch {
	case err == nil:
		kit.WriteJSON(w, http.StatusOK, state)
	case IsPersistError(err):
		// applied in memory; the snapshot carries dirty=true
		kit.WriteJSON(w, http.StatusOK, state)
	case errors.Is(err, ErrNotHydrated):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "cart not loaded", nil)
	case errors.Is(err, ErrInvalidQuantity):
		kit.WriteError(w, r, http.StatusBadRequest, "bad quantity", nil)
	case errors.Is(err, ErrInvalidProduct):
		kit.WriteError(w, r, http.StatusBadRequest, "bad product", nil)
	default:
		s.Log.Error("cart operation failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

type checkoutResp struct {
	CheckoutURL string `json:"checkout_url"`
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}

	lines := st.Snapshot().CheckoutLines()
	if len(lines) == 0 {
		kit.WriteError(w, r, http.StatusConflict, "cart is empty", nil)
		return
	}

	cs, err := s.Checkout.Start(r.Context(), lines)
	if err != nil {
		s.writeCheckoutError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, checkoutResp{CheckoutURL: cs.CheckoutURL})
}

func (s *Server) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checkout.ErrBackendUnavailable):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "checkout unavailable", nil)
	case errors.Is(err, checkout.ErrBackendRejected):
		kit.WriteError(w, r, http.StatusUnprocessableEntity, "checkout rejected", nil)
	case errors.Is(err, checkout.ErrBackendBadStatus):
		s.Log.Warn("checkout backend error", zap.Error(err))
		kit.WriteError(w, r, http.StatusBadGateway, "checkout error", nil)
	default:
		s.Log.Error("checkout failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

// CheckoutLines maps the cart onto the commerce backend's variant ids.
func (s State) CheckoutLines() []checkout.Line {
	lines := make([]checkout.Line, 0, len(s.Items))
	for _, it := range s.Items {
		lines = append(lines, checkout.Line{VariantID: it.Product.VariantID, Quantity: it.Quantity})
	}
	return lines
}

// events streams snapshots as server-sent events until the client goes away.
// Slow clients only ever see the latest snapshot.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}

	latest := make(chan State, 1)
	cancel := st.Subscribe(func(state State) {
		for {
			select {
			case latest <- state:
				return
			default:
				select {
				case <-latest:
				default:
				}
			}
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	send := func(state State) bool {
		if err := kit.WriteEvent(w, "cart", state.Version, state); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send(st.Snapshot()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case state := <-latest:
			if !send(state) {
				return
			}
		}
	}
}
