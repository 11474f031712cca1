// Package cart is the per-session shopping cart: line items, derived totals,
// the drawer visibility flag, and hydration from persisted storage.
package cart

import (
	"errors"

	"VinoStore/internal/catalog"
)

const (
	// FreeShippingThresholdCents waives shipping once the subtotal reaches it.
	FreeShippingThresholdCents int64 = 3500
	ShippingCostCents          int64 = 495
)

var (
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrNotHydrated rejects item changes until the persisted cart is loaded,
	// so a save cannot overwrite data Hydrate has not read yet.
	ErrNotHydrated = errors.New("cart not hydrated")
	// ErrPersist wraps a failed save. The transition itself was applied.
	ErrPersist = errors.New("cart not persisted")
)

// Item is one line of the cart. ID identifies the line, not the product.
type Item struct {
	ID       string          `json:"id"`
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// State is an immutable snapshot. Totals are always derived from Items.
type State struct {
	Items         []Item `json:"items"`
	ItemCount     int    `json:"item_count"`
	SubtotalCents int64  `json:"subtotal_cents"`
	ShippingCents int64  `json:"shipping_cents"`
	TotalCents    int64  `json:"total_cents"`
	IsOpen        bool   `json:"is_open"`
	IsHydrated    bool   `json:"is_hydrated"`
	// Dirty is set while in-memory items are ahead of storage.
	Dirty   bool   `json:"dirty"`
	Version uint64 `json:"version"`
}

// persisted is what goes into the envelope; UI flags stay in memory.
type persisted struct {
	Items []Item `json:"items"`
}

// Shipping returns the shipping charge for a non-empty cart's subtotal.
func Shipping(subtotalCents int64) int64 {
	if subtotalCents >= FreeShippingThresholdCents {
		return 0
	}
	return ShippingCostCents
}

func withTotals(s State) State {
	s.ItemCount = 0
	s.SubtotalCents = 0
	for _, it := range s.Items {
		s.ItemCount += it.Quantity
		s.SubtotalCents += it.Product.PriceCents * int64(it.Quantity)
	}
	s.ShippingCents = 0
	if len(s.Items) > 0 {
		s.ShippingCents = Shipping(s.SubtotalCents)
	}
	s.TotalCents = s.SubtotalCents + s.ShippingCents
	return s
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// sanitize drops lines that could not have been produced by the store.
func sanitize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ID == "" || it.Product.ID == "" || it.Quantity < 1 {
			continue
		}
		if _, dup := seen[it.Product.ID]; dup {
			continue
		}
		seen[it.Product.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
