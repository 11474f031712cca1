package catalog

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"VinoStore/internal/price"
)

type Sort string

const (
	SortFeatured  Sort = "featured"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortName      Sort = "name"
	SortDiscount  Sort = "discount"
)

func (s Sort) valid() bool {
	switch s {
	case SortFeatured, SortPriceAsc, SortPriceDesc, SortName, SortDiscount:
		return true
	}
	return false
}

// Filter narrows a listing. Zero values mean "no constraint".
type Filter struct {
	Category      string
	Region        string
	MinPriceCents int64
	MaxPriceCents int64
	OnSale        bool
	Query         string
	Sort          Sort
}

// ParseFilter reads listing query parameters. Prices are given in cents.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Category: strings.TrimSpace(q.Get("category")),
		Region:   strings.TrimSpace(q.Get("region")),
		Query:    strings.TrimSpace(q.Get("q")),
		Sort:     SortFeatured,
	}

	var err error
	if f.MinPriceCents, err = parseCents(q, "min_price"); err != nil {
		return Filter{}, err
	}
	if f.MaxPriceCents, err = parseCents(q, "max_price"); err != nil {
		return Filter{}, err
	}
	if f.MaxPriceCents > 0 && f.MinPriceCents > f.MaxPriceCents {
		return Filter{}, fmt.Errorf("min_price greater than max_price")
	}

	if v := q.Get("on_sale"); v != "" {
		if f.OnSale, err = strconv.ParseBool(v); err != nil {
			return Filter{}, fmt.Errorf("bad on_sale: %q", v)
		}
	}

	if v := q.Get("sort"); v != "" {
		f.Sort = Sort(v)
		if !f.Sort.valid() {
			return Filter{}, fmt.Errorf("bad sort: %q", v)
		}
	}
	return f, nil
}

func parseCents(q url.Values, key string) (int64, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad %s: %q", key, v)
	}
	return n, nil
}

func (f Filter) Match(p Product) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Region != "" && !strings.EqualFold(p.Region, f.Region) {
		return false
	}
	if f.MinPriceCents > 0 && p.PriceCents < f.MinPriceCents {
		return false
	}
	if f.MaxPriceCents > 0 && p.PriceCents > f.MaxPriceCents {
		return false
	}
	if f.OnSale && !price.HasDiscount(p.PriceCents, p.OriginalPriceCents) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Grape), q) &&
			!strings.Contains(strings.ToLower(p.Region), q) {
			return false
		}
	}
	return true
}

// Apply filters and sorts ps without modifying it. Ties keep id order.
func (f Filter) Apply(ps []Product) []Product {
	out := make([]Product, 0, len(ps))
	for _, p := range ps {
		if f.Match(p) {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	switch f.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].PriceCents > out[j].PriceCents })
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	case SortDiscount:
		sort.SliceStable(out, func(i, j int) bool {
			return price.DiscountPercent(out[i].PriceCents, out[i].OriginalPriceCents) >
				price.DiscountPercent(out[j].PriceCents, out[j].OriginalPriceCents)
		})
	}
	return out
}
