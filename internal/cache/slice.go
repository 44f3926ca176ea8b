package cache

import "Storefront/internal/catalog"

// Slice names one collection held by the cache.
type Slice int

const (
	SliceCategories Slice = iota
	SliceAllCategories
	SliceKits
	SlicePremiumProducts
	SliceNonPremiumProducts
	SliceAllProducts
	SliceDiscounts
	SlicePriceRanges
	SliceAnnouncement

	sliceCount
)

// Topics published on the bus. TopicUpdate follows every slice topic.
const (
	TopicUpdate             = "update"
	TopicCategories         = "updateCategories"
	TopicAllCategories      = "updateAllCategories"
	TopicKits               = "updateKits"
	TopicPremiumProducts    = "updatePremiumProducts"
	TopicNonPremiumProducts = "updateNonPremiumProducts"
	TopicAllProducts        = "updateAllProducts"
	TopicDiscounts          = "updateDiscountProducts"
	TopicPriceRanges        = "UpdatePriceRanges"
	TopicAnnouncement       = "UpdateAnnouncement"
)

var sliceInfo = [sliceCount]struct {
	name  string
	topic string
	doc   string
}{
	SliceCategories:         {"categories", TopicCategories, catalog.DocCategories},
	SliceAllCategories:      {"allCategories", TopicAllCategories, catalog.DocAllCategories},
	SliceKits:               {"kits", TopicKits, catalog.DocKits},
	SlicePremiumProducts:    {"premiumProducts", TopicPremiumProducts, catalog.DocPremiumProducts},
	SliceNonPremiumProducts: {"nonPremiumProducts", TopicNonPremiumProducts, catalog.DocNonPremiumProducts},
	SliceAllProducts:        {"allProducts", TopicAllProducts, catalog.DocAllProducts},
	SliceDiscounts:          {"discounts", TopicDiscounts, catalog.DocDiscounts},
	SlicePriceRanges:        {"priceRanges", TopicPriceRanges, catalog.DocPriceRanges},
	SliceAnnouncement:       {"announcement", TopicAnnouncement, catalog.DocAnnouncement},
}

func (s Slice) Valid() bool { return s >= 0 && s < sliceCount }

func (s Slice) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return sliceInfo[s].name
}

// Topic is the slice-specific topic emitted before TopicUpdate.
func (s Slice) Topic() string {
	if !s.Valid() {
		return ""
	}
	return sliceInfo[s].topic
}

// Document is the catalog document the slice is fetched from.
func (s Slice) Document() string {
	if !s.Valid() {
		return ""
	}
	return sliceInfo[s].doc
}

// Slices lists every slice in fetch order.
func Slices() []Slice {
	out := make([]Slice, 0, sliceCount)
	for s := Slice(0); s < sliceCount; s++ {
		out = append(out, s)
	}
	return out
}

// Payload is the whole new content of one slice. The set of payload types is closed.
type Payload interface {
	Slice() Slice
	isPayload()
}

type (
	Categories         []catalog.Category
	AllCategories      []catalog.Category
	Kits               []catalog.Kit
	PremiumProducts    []catalog.ProductGroup
	NonPremiumProducts []catalog.ProductGroup
	AllProducts        []catalog.ProductGroup
	Discounts          []catalog.Discount
	PriceRanges        catalog.PriceRangeTable
	Announcement       catalog.Announcement
)

func (Categories) Slice() Slice         { return SliceCategories }
func (AllCategories) Slice() Slice      { return SliceAllCategories }
func (Kits) Slice() Slice               { return SliceKits }
func (PremiumProducts) Slice() Slice    { return SlicePremiumProducts }
func (NonPremiumProducts) Slice() Slice { return SliceNonPremiumProducts }
func (AllProducts) Slice() Slice        { return SliceAllProducts }
func (Discounts) Slice() Slice          { return SliceDiscounts }
func (PriceRanges) Slice() Slice        { return SlicePriceRanges }
func (Announcement) Slice() Slice       { return SliceAnnouncement }

func (Categories) isPayload()         {}
func (AllCategories) isPayload()      {}
func (Kits) isPayload()               {}
func (PremiumProducts) isPayload()    {}
func (NonPremiumProducts) isPayload() {}
func (AllProducts) isPayload()        {}
func (Discounts) isPayload()          {}
func (PriceRanges) isPayload()        {}
func (Announcement) isPayload()       {}

func emptyPayload(s Slice) Payload {
	switch s {
	case SliceCategories:
		return Categories{}
	case SliceAllCategories:
		return AllCategories{}
	case SliceKits:
		return Kits{}
	case SlicePremiumProducts:
		return PremiumProducts{}
	case SliceNonPremiumProducts:
		return NonPremiumProducts{}
	case SliceAllProducts:
		return AllProducts{}
	case SliceDiscounts:
		return Discounts{}
	case SlicePriceRanges:
		return PriceRanges{}
	case SliceAnnouncement:
		return Announcement{}
	}
	return nil
}
