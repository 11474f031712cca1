package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"VinoStore/internal/price"
	"VinoStore/pkg/kit"
)

type Server struct {
	Store Store
	Log   *zap.Logger
}

// Listing is a product as shown on listing pages, with derived price labels.
type Listing struct {
	Product
	PriceLabel         string `json:"price_label"`
	OriginalPriceLabel string `json:"original_price_label,omitempty"`
	DiscountPercent    int    `json:"discount_percent,omitempty"`
}

func NewListing(p Product) Listing {
	l := Listing{
		Product:    p,
		PriceLabel: price.Format(p.PriceCents),
	}
	if price.HasDiscount(p.PriceCents, p.OriginalPriceCents) {
		l.OriginalPriceLabel = price.Format(p.OriginalPriceCents)
		l.DiscountPercent = price.DiscountPercent(p.PriceCents, p.OriginalPriceCents)
	}
	return l
}

// Mount registers the product routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/products", s.list)
	r.Get("/products/{id}", s.get)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad filter", map[string]any{"cause": err.Error()})
		return
	}

	products, err := s.Store.List(r.Context(), f)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("list products failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	out := make([]Listing, 0, len(products))
	for _, p := range products {
		out = append(out, NewListing(p))
	}
	kit.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok, err := s.Store.Get(r.Context(), id)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("get product failed", zap.Error(err), zap.String("id", id))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, NewListing(p))
}
