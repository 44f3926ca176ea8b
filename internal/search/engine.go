// Package search answers storefront queries over the cached catalog.
//
// The engine keeps derived views (listings, tag set, price bounds) and
// rebuilds them from cache events. Queries never fail; no match is an empty
// result.
package search

import (
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Storefront/internal/cache"
	"Storefront/internal/catalog"
)

// Listing is one searchable product or kit.
type Listing struct {
	Kind           cache.Kind `json:"-"`
	KindName       string     `json:"kind"`
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Tags           []string   `json:"tags,omitempty"`
	Price          float64    `json:"price"`
	EffectivePrice float64    `json:"effective_price"`
	BasePrice      float64    `json:"base_price"`
	Rating         int        `json:"rating"`
	CreatedAt      time.Time  `json:"created_at,omitzero"`
}

type Results struct {
	Products []Listing `json:"products"`
	Kits     []Listing `json:"kits"`
	Empty    bool      `json:"empty"`
}

type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Engine struct {
	cache *cache.Cache
	log   *zap.Logger

	mu        sync.RWMutex
	products  []catalog.Product
	kits      []catalog.Kit
	discounts []catalog.Discount
	ranges    catalog.PriceRangeTable

	productListings []Listing
	kitListings     []Listing
	tags            []string
	bounds          Bounds

	tokens []cache.Token
}

// New builds an engine over the current contents of c and keeps it in step
// with later replacements until Close.
func New(c *cache.Cache, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{cache: c, log: log}

	e.mu.Lock()
	e.products = catalog.Flatten(c.AllProducts())
	e.kits = c.Kits()
	e.discounts = c.Discounts()
	e.ranges = c.PriceRanges()
	e.rebuildLocked()
	e.mu.Unlock()

	e.tokens = []cache.Token{
		c.Subscribe(cache.TopicAllProducts, e.onEvent),
		c.Subscribe(cache.TopicKits, e.onEvent),
		c.Subscribe(cache.TopicDiscounts, e.onEvent),
		c.Subscribe(cache.TopicPriceRanges, e.onEvent),
	}
	return e
}

// Close stops following the cache.
func (e *Engine) Close() {
	for _, tok := range e.tokens {
		e.cache.Unsubscribe(tok)
	}
	e.tokens = nil
}

// onEvent reads the slice back from the cache rather than using the event
// payload: events from concurrent writers may arrive out of order, the cache
// slot never does.
func (e *Engine) onEvent(ev cache.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Slice {
	case cache.SliceAllProducts:
		e.products = catalog.Flatten(e.cache.AllProducts())
	case cache.SliceKits:
		e.kits = e.cache.Kits()
	case cache.SliceDiscounts:
		e.discounts = e.cache.Discounts()
	case cache.SlicePriceRanges:
		e.ranges = e.cache.PriceRanges()
		return
	default:
		return
	}
	e.rebuildLocked()

	e.log.Debug("search index rebuilt",
		zap.String("topic", ev.Topic),
		zap.Int("products", len(e.productListings)),
		zap.Int("kits", len(e.kitListings)),
	)
}

func (e *Engine) rebuildLocked() {
	percent := discountIndex(e.discounts)

	e.productListings = make([]Listing, 0, len(e.products))
	seen := make(map[string]struct{}, len(e.products))
	for _, p := range e.products {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		e.productListings = append(e.productListings, Listing{
			Kind:           cache.KindProduct,
			KindName:       cache.KindProduct.String(),
			ID:             p.ID,
			Name:           p.Name,
			Tags:           slices.Clone(p.Tags),
			Price:          p.Price,
			EffectivePrice: applyPercent(p.Price, percent[p.ID]),
			BasePrice:      p.Price,
			Rating:         p.Rating(),
			CreatedAt:      p.CreatedAt,
		})
	}

	e.kitListings = make([]Listing, 0, len(e.kits))
	for _, k := range e.kits {
		e.kitListings = append(e.kitListings, Listing{
			Kind:           cache.KindKit,
			KindName:       cache.KindKit.String(),
			ID:             k.ID,
			Name:           k.Name,
			Tags:           slices.Clone(k.Tags),
			Price:          k.Price,
			EffectivePrice: k.Price,
			BasePrice:      k.BasePrice(),
			Rating:         k.Rating(),
		})
	}

	tagSet := make(map[string]struct{})
	for _, l := range e.all() {
		for _, t := range l.Tags {
			tagSet[t] = struct{}{}
		}
	}
	e.tags = make([]string, 0, len(tagSet))
	for t := range tagSet {
		e.tags = append(e.tags, t)
	}
	sort.Strings(e.tags)

	e.bounds = priceBounds(e.all())
}

// all returns products followed by kits; callers must not modify it.
func (e *Engine) all() []Listing {
	out := make([]Listing, 0, len(e.productListings)+len(e.kitListings))
	out = append(out, e.productListings...)
	return append(out, e.kitListings...)
}

// discountIndex maps product id to the best percent among published discounts.
func discountIndex(ds []catalog.Discount) map[string]float64 {
	out := make(map[string]float64)
	for _, d := range ds {
		for _, it := range d.Items {
			if it.Percent > out[it.ProductID] {
				out[it.ProductID] = it.Percent
			}
		}
	}
	return out
}

func applyPercent(price, percent float64) float64 {
	if percent <= 0 {
		return price
	}
	if percent > 100 {
		percent = 100
	}
	p := decimal.NewFromFloat(price)
	off := p.Mul(decimal.NewFromFloat(percent)).Div(decimal.NewFromInt(100))
	v, _ := p.Sub(off).Round(2).Float64()
	return v
}

func priceBounds(ls []Listing) Bounds {
	if len(ls) == 0 {
		return Bounds{Min: 0, Max: 1}
	}
	b := Bounds{Min: ls[0].EffectivePrice, Max: ls[0].EffectivePrice}
	for _, l := range ls[1:] {
		b.Min = min(b.Min, l.EffectivePrice)
		b.Max = max(b.Max, l.EffectivePrice)
	}
	if b.Max <= b.Min {
		b.Max = b.Min + 1
	}
	return b
}

// Search ranks items by name: a prefix match scores 2, a substring match 1.
// Whitespace-only text returns everything and never sets Empty. Other text is
// lower-cased and matched as given, surrounding spaces included.
func (e *Engine) Search(text string) Results {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if strings.TrimSpace(text) == "" {
		return Results{
			Products: slices.Clone(e.productListings),
			Kits:     slices.Clone(e.kitListings),
		}
	}

	q := strings.ToLower(text)
	res := Results{
		Products: rank(e.productListings, q),
		Kits:     rank(e.kitListings, q),
	}
	res.Empty = len(res.Products) == 0 && len(res.Kits) == 0
	return res
}

func rank(ls []Listing, q string) []Listing {
	type scored struct {
		l     Listing
		score int
	}
	var hits []scored
	for _, l := range ls {
		name := strings.ToLower(l.Name)
		switch {
		case strings.HasPrefix(name, q):
			hits = append(hits, scored{l, 2})
		case strings.Contains(name, q):
			hits = append(hits, scored{l, 1})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Listing, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.l)
	}
	return out
}

// PriceRange is inclusive on both ends and ignored unless Active.
type PriceRange struct {
	Active bool
	Min    float64
	Max    float64
}

type Filter struct {
	Tags  []string
	Price PriceRange
	// MinRating 0 disables the rating filter; otherwise the rating must equal it.
	MinRating int
}

func (f Filter) match(l Listing) bool {
	if len(f.Tags) > 0 && !intersects(f.Tags, l.Tags) {
		return false
	}
	if f.Price.Active && (l.EffectivePrice < f.Price.Min || l.EffectivePrice > f.Price.Max) {
		return false
	}
	if f.MinRating != 0 && l.Rating != f.MinRating {
		return false
	}
	return true
}

func intersects(want, have []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func (e *Engine) Filter(f Filter) Results {
	e.mu.RLock()
	defer e.mu.RUnlock()

	res := Results{
		Products: make([]Listing, 0),
		Kits:     make([]Listing, 0),
	}
	for _, l := range e.productListings {
		if f.match(l) {
			res.Products = append(res.Products, l)
		}
	}
	for _, l := range e.kitListings {
		if f.match(l) {
			res.Kits = append(res.Kits, l)
		}
	}
	res.Empty = len(res.Products) == 0 && len(res.Kits) == 0
	return res
}

// SortByPrice merges products and kits ordered by effective price.
func (e *Engine) SortByPrice(ascending bool) []Listing {
	e.mu.RLock()
	out := e.all()
	e.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].EffectivePrice < out[j].EffectivePrice
		}
		return out[i].EffectivePrice > out[j].EffectivePrice
	})
	return out
}

// PriceField selects one price projection for PriceLookup.
type PriceField int

const (
	PriceRaw PriceField = iota + 1
	PriceDiscounted
	PriceBase
)

func ParsePriceField(s string) (PriceField, bool) {
	switch s {
	case "raw", "price":
		return PriceRaw, true
	case "discounted", "effective":
		return PriceDiscounted, true
	case "base":
		return PriceBase, true
	default:
		return 0, false
	}
}

// PriceLookup returns the requested price of the product or kit with id.
// A miss or an unknown field yields 0.
func (e *Engine) PriceLookup(id string, field PriceField) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	l, ok := e.find(id)
	if !ok {
		return 0
	}
	switch field {
	case PriceRaw:
		return l.Price
	case PriceDiscounted:
		return l.EffectivePrice
	case PriceBase:
		return l.BasePrice
	default:
		return 0
	}
}

func (e *Engine) find(id string) (Listing, bool) {
	for _, l := range e.productListings {
		if l.ID == id {
			return l, true
		}
	}
	for _, l := range e.kitListings {
		if l.ID == id {
			return l, true
		}
	}
	return Listing{}, false
}

// Tags is the sorted union of every product and kit tag.
func (e *Engine) Tags() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.tags)
}

func (e *Engine) PriceBounds() Bounds {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bounds
}

func (e *Engine) PriceBands() []catalog.PriceBand {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ranges.Bands()
}
