// Package cache holds the process-wide catalog snapshot and its topic bus.
package cache

import (
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"Storefront/internal/catalog"
)

type slot struct {
	mu    sync.Mutex // serializes writers of this slice
	cycle uint64
	val   atomic.Pointer[entry]
}

type entry struct {
	payload Payload
}

// Cache is the single owner of every catalog slice. Replace and ReplaceAt are
// the only write paths; getters return copies.
type Cache struct {
	log   *zap.Logger
	bus   *bus
	slots [sliceCount]slot
}

func New(log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache{log: log, bus: newBus(log)}
	for s := range c.slots {
		c.slots[s].val.Store(&entry{payload: emptyPayload(Slice(s))})
	}
	return c
}

// Replace swaps the payload's slice unconditionally and notifies subscribers.
func (c *Cache) Replace(p Payload) {
	c.ReplaceAt(0, p)
}

// ReplaceAt swaps the slice unless a newer cycle already wrote it. Cycle 0 is
// untagged and always applies. It reports whether the payload was applied.
func (c *Cache) ReplaceAt(cycle uint64, p Payload) bool {
	if p == nil || !p.Slice().Valid() {
		return false
	}
	s := p.Slice()
	sl := &c.slots[s]

	sl.mu.Lock()
	if cycle != 0 && cycle < sl.cycle {
		applied := sl.cycle
		sl.mu.Unlock()
		c.log.Debug("stale slice write discarded",
			zap.Stringer("slice", s),
			zap.Uint64("cycle", cycle),
			zap.Uint64("applied_cycle", applied),
		)
		return false
	}
	if cycle > sl.cycle {
		sl.cycle = cycle
	}
	sl.val.Store(&entry{payload: p})
	sl.mu.Unlock()

	ev := Event{Topic: s.Topic(), Slice: s, Cycle: cycle, Payload: p}
	c.bus.publish(ev)
	ev.Topic = TopicUpdate
	c.bus.publish(ev)
	return true
}

// Reset empties a slice without notifying anyone.
func (c *Cache) Reset(s Slice) {
	if !s.Valid() {
		return
	}
	sl := &c.slots[s]
	sl.mu.Lock()
	sl.val.Store(&entry{payload: emptyPayload(s)})
	sl.mu.Unlock()
}

// Cycle returns the newest cycle that wrote s.
func (c *Cache) Cycle(s Slice) uint64 {
	if !s.Valid() {
		return 0
	}
	sl := &c.slots[s]
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.cycle
}

// Subscribe registers h for topic. Handlers run synchronously on the writer's
// goroutine and must not block; there is no replay of earlier events.
func (c *Cache) Subscribe(topic string, h Handler) Token {
	return c.bus.subscribe(topic, h)
}

func (c *Cache) Unsubscribe(tok Token) bool {
	return c.bus.unsubscribe(tok)
}

func (c *Cache) Subscribers(topic string) int {
	return c.bus.count(topic)
}

// Get returns the current payload of s, or nil for an unknown slice.
func (c *Cache) Get(s Slice) Payload {
	if !s.Valid() {
		return nil
	}
	return c.slots[s].val.Load().payload
}

func (c *Cache) Categories() []catalog.Category {
	return slices.Clone([]catalog.Category(c.Get(SliceCategories).(Categories)))
}

func (c *Cache) AllCategories() []catalog.Category {
	return slices.Clone([]catalog.Category(c.Get(SliceAllCategories).(AllCategories)))
}

func (c *Cache) Kits() []catalog.Kit {
	return slices.Clone([]catalog.Kit(c.Get(SliceKits).(Kits)))
}

func (c *Cache) PremiumProducts() []catalog.ProductGroup {
	return slices.Clone([]catalog.ProductGroup(c.Get(SlicePremiumProducts).(PremiumProducts)))
}

func (c *Cache) NonPremiumProducts() []catalog.ProductGroup {
	return slices.Clone([]catalog.ProductGroup(c.Get(SliceNonPremiumProducts).(NonPremiumProducts)))
}

func (c *Cache) AllProducts() []catalog.ProductGroup {
	return slices.Clone([]catalog.ProductGroup(c.Get(SliceAllProducts).(AllProducts)))
}

// Discounts returns the reconciled active discounts.
func (c *Cache) Discounts() []catalog.Discount {
	return slices.Clone([]catalog.Discount(c.Get(SliceDiscounts).(Discounts)))
}

func (c *Cache) PriceRanges() catalog.PriceRangeTable {
	t := catalog.PriceRangeTable(c.Get(SlicePriceRanges).(PriceRanges))
	t.Boundaries = slices.Clone(t.Boundaries)
	return t
}

func (c *Cache) Announcement() catalog.Announcement {
	return catalog.Announcement(c.Get(SliceAnnouncement).(Announcement))
}

// Kind selects the pool LookupByID searches.
type Kind int

const (
	KindProduct Kind = iota
	KindKit
)

func (k Kind) String() string {
	switch k {
	case KindProduct:
		return "product"
	case KindKit:
		return "kit"
	}
	return "unknown"
}

func ParseKind(s string) (Kind, bool) {
	switch s {
	case "product", "products":
		return KindProduct, true
	case "kit", "kits":
		return KindKit, true
	}
	return 0, false
}

// Entity is the result of LookupByID; exactly one of Product or Kit is set per Kind.
type Entity struct {
	Kind    Kind
	Product catalog.Product
	Kit     catalog.Kit
}

// LookupByID finds a product in the premium, non-premium and general pools, in
// that order, or a kit in the kit slice.
func (c *Cache) LookupByID(kind Kind, id string) (Entity, bool) {
	switch kind {
	case KindProduct:
		for _, s := range []Slice{SlicePremiumProducts, SliceNonPremiumProducts, SliceAllProducts} {
			if p, ok := findProduct(c.groups(s), id); ok {
				return Entity{Kind: KindProduct, Product: p}, true
			}
		}
	case KindKit:
		for _, k := range c.Get(SliceKits).(Kits) {
			if k.ID == id {
				return Entity{Kind: KindKit, Kit: k}, true
			}
		}
	}
	return Entity{}, false
}

// RecentlyAdded returns up to limit products of the general pool, unique by id,
// newest first; equal timestamps keep pool order.
func (c *Cache) RecentlyAdded(limit int) []catalog.Product {
	if limit <= 0 {
		return []catalog.Product{}
	}

	all := catalog.Flatten(c.groups(SliceAllProducts))
	seen := make(map[string]struct{}, len(all))
	out := make([]catalog.Product, 0, len(all))
	for _, p := range all {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Snapshot is a point-in-time copy of every slice.
type Snapshot struct {
	Categories         []catalog.Category      `json:"categories"`
	AllCategories      []catalog.Category      `json:"all_categories"`
	Kits               []catalog.Kit           `json:"kits"`
	PremiumProducts    []catalog.ProductGroup  `json:"premium_products"`
	NonPremiumProducts []catalog.ProductGroup  `json:"non_premium_products"`
	AllProducts        []catalog.ProductGroup  `json:"all_products"`
	Discounts          []catalog.Discount      `json:"discounts"`
	PriceRanges        catalog.PriceRangeTable `json:"price_ranges"`
	Announcement       catalog.Announcement    `json:"announcement"`
}

// Snapshot reads each slice atomically; slices may come from different cycles.
func (c *Cache) Snapshot() Snapshot {
	return Snapshot{
		Categories:         c.Categories(),
		AllCategories:      c.AllCategories(),
		Kits:               c.Kits(),
		PremiumProducts:    c.PremiumProducts(),
		NonPremiumProducts: c.NonPremiumProducts(),
		AllProducts:        c.AllProducts(),
		Discounts:          c.Discounts(),
		PriceRanges:        c.PriceRanges(),
		Announcement:       c.Announcement(),
	}
}

func (c *Cache) groups(s Slice) []catalog.ProductGroup {
	switch p := c.Get(s).(type) {
	case PremiumProducts:
		return p
	case NonPremiumProducts:
		return p
	case AllProducts:
		return p
	}
	return nil
}

func findProduct(groups []catalog.ProductGroup, id string) (catalog.Product, bool) {
	for _, g := range groups {
		for _, p := range g.Products {
			if p.ID == id {
				return p, true
			}
		}
	}
	return catalog.Product{}, false
}
