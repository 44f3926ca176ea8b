package datasync

import (
	"context"
	"fmt"

	"Storefront/internal/cache"
	"Storefront/internal/catalog"
)

// RemoteCatalog is the upstream catalog, one call per slice.
type RemoteCatalog interface {
	Categories(ctx context.Context) ([]catalog.Category, error)
	AllCategories(ctx context.Context) ([]catalog.Category, error)
	Kits(ctx context.Context) ([]catalog.Kit, error)
	PremiumProducts(ctx context.Context) ([]catalog.ProductGroup, error)
	NonPremiumProducts(ctx context.Context) ([]catalog.ProductGroup, error)
	AllProducts(ctx context.Context) ([]catalog.ProductGroup, error)
	Discounts(ctx context.Context) ([]catalog.Discount, error)
	PriceRanges(ctx context.Context) (catalog.PriceRangeTable, error)
	Announcement(ctx context.Context) (catalog.Announcement, error)
}

func fetchSlice(ctx context.Context, r RemoteCatalog, s cache.Slice) (cache.Payload, error) {
	switch s {
	case cache.SliceCategories:
		v, err := r.Categories(ctx)
		return cache.Categories(v), err
	case cache.SliceAllCategories:
		v, err := r.AllCategories(ctx)
		return cache.AllCategories(v), err
	case cache.SliceKits:
		v, err := r.Kits(ctx)
		return cache.Kits(v), err
	case cache.SlicePremiumProducts:
		v, err := r.PremiumProducts(ctx)
		return cache.PremiumProducts(v), err
	case cache.SliceNonPremiumProducts:
		v, err := r.NonPremiumProducts(ctx)
		return cache.NonPremiumProducts(v), err
	case cache.SliceAllProducts:
		v, err := r.AllProducts(ctx)
		return cache.AllProducts(v), err
	case cache.SliceDiscounts:
		v, err := r.Discounts(ctx)
		return cache.Discounts(v), err
	case cache.SlicePriceRanges:
		v, err := r.PriceRanges(ctx)
		return cache.PriceRanges(v), err
	case cache.SliceAnnouncement:
		v, err := r.Announcement(ctx)
		return cache.Announcement(v), err
	default:
		return nil, fmt.Errorf("fetch %s: unknown slice", s)
	}
}
