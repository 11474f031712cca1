package catalog

import "context"

// Product is an immutable catalog entry. Prices are in euro cents;
// OriginalPriceCents is zero when the product is not discounted.
type Product struct {
	ID                 string `json:"id" yaml:"id"`
	Title              string `json:"title" yaml:"title"`
	Category           string `json:"category" yaml:"category"`
	Region             string `json:"region" yaml:"region"`
	Grape              string `json:"grape,omitempty" yaml:"grape"`
	Vintage            int    `json:"vintage,omitempty" yaml:"vintage"`
	PriceCents         int64  `json:"price_cents" yaml:"price_cents"`
	OriginalPriceCents int64  `json:"original_price_cents,omitempty" yaml:"original_price_cents"`
	VariantID          string `json:"variant_id" yaml:"variant_id"`
	ImageURL           string `json:"image_url,omitempty" yaml:"image_url"`
}

type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context, f Filter) ([]Product, error)
	Get(ctx context.Context, id string) (Product, bool, error)
}
