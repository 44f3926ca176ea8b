package catalog

import (
	"context"
	"encoding/json"
	"errors"
)

// Document names served by the catalog service, one per cached slice.
const (
	DocCategories         = "categories"
	DocAllCategories      = "all-categories"
	DocKits               = "kits"
	DocPremiumProducts    = "premium-products"
	DocNonPremiumProducts = "non-premium-products"
	DocAllProducts        = "all-products"
	DocDiscounts          = "discounts"
	DocPriceRanges        = "price-ranges"
	DocAnnouncement       = "announcement"
)

var ErrUnknownDocument = errors.New("unknown catalog document")

var Documents = []string{
	DocCategories,
	DocAllCategories,
	DocKits,
	DocPremiumProducts,
	DocNonPremiumProducts,
	DocAllProducts,
	DocDiscounts,
	DocPriceRanges,
	DocAnnouncement,
}

func KnownDocument(name string) bool {
	for _, d := range Documents {
		if d == name {
			return true
		}
	}
	return false
}

// Store holds one JSON document per catalog slice.
type Store interface {
	Ping(ctx context.Context) error
	Document(ctx context.Context, name string) (json.RawMessage, bool, error)
	Put(ctx context.Context, name string, body json.RawMessage) error
}

// Fixture is a typed bundle of every catalog document, used to seed stores.
type Fixture struct {
	Categories         []Category
	AllCategories      []Category
	Kits               []Kit
	PremiumProducts    []ProductGroup
	NonPremiumProducts []ProductGroup
	AllProducts        []ProductGroup
	Discounts          []Discount
	PriceRanges        PriceRangeTable
	Announcement       Announcement
}

func (f Fixture) documents() map[string]any {
	return map[string]any{
		DocCategories:         nonNil(f.Categories),
		DocAllCategories:      nonNil(f.AllCategories),
		DocKits:               nonNil(f.Kits),
		DocPremiumProducts:    nonNil(f.PremiumProducts),
		DocNonPremiumProducts: nonNil(f.NonPremiumProducts),
		DocAllProducts:        nonNil(f.AllProducts),
		DocDiscounts:          nonNil(f.Discounts),
		DocPriceRanges:        f.PriceRanges,
		DocAnnouncement:       f.Announcement,
	}
}

// Seed writes every document of f into s.
func Seed(ctx context.Context, s Store, f Fixture) error {
	for name, v := range f.documents() {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if err := s.Put(ctx, name, b); err != nil {
			return err
		}
	}
	return nil
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
