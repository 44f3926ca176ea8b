package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Storefront/internal/cache"
	"Storefront/internal/catalog"
)

func group(ps ...catalog.Product) cache.AllProducts {
	return cache.AllProducts{{CategoryID: "c1", CategoryName: "All", Products: ps}}
}

func names(ls []Listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Name)
	}
	return out
}

func newEngine(t *testing.T) (*Engine, *cache.Cache) {
	t.Helper()
	c := cache.New(zap.NewNop())
	e := New(c, zap.NewNop())
	t.Cleanup(e.Close)
	return e, c
}

func TestSearch_RanksPrefixBeforeSubstring(t *testing.T) {
	e, c := newEngine(t)
	c.Replace(group(
		catalog.Product{ID: "p1", Name: "Almond Milk"},
		catalog.Product{ID: "p2", Name: "Milk"},
		catalog.Product{ID: "p3", Name: "Buttermilk"},
		catalog.Product{ID: "p4", Name: "Bread"},
	))

	res := e.Search("milk")
	assert.Equal(t, []string{"Milk", "Almond Milk", "Buttermilk"}, names(res.Products))
	assert.False(t, res.Empty)

	res = e.Search("MILK")
	assert.Equal(t, []string{"Milk", "Almond Milk", "Buttermilk"}, names(res.Products))
}

func TestSearch_KeepsSurroundingSpaces(t *testing.T) {
	e, c := newEngine(t)
	c.Replace(group(
		catalog.Product{ID: "p1", Name: "Almond Milk"},
		catalog.Product{ID: "p2", Name: "Milk"},
		catalog.Product{ID: "p3", Name: "Buttermilk"},
	))

	res := e.Search(" Milk")
	assert.Equal(t, []string{"Almond Milk"}, names(res.Products))

	res = e.Search("milk ")
	assert.Empty(t, res.Products)
	assert.True(t, res.Empty)
}

func TestSearch_BlankShowsEverything(t *testing.T) {
	e, c := newEngine(t)
	c.Replace(group(catalog.Product{ID: "p1", Name: "Milk"}))
	c.Replace(cache.Kits{{ID: "k1", Name: "Kit"}})

	res := e.Search("   ")
	assert.Len(t, res.Products, 1)
	assert.Len(t, res.Kits, 1)
	assert.False(t, res.Empty)

	res = e.Search("zzz")
	assert.Empty(t, res.Products)
	assert.Empty(t, res.Kits)
	assert.True(t, res.Empty)
}

func TestSearch_EmptyFlagNeedsBothPoolsEmpty(t *testing.T) {
	e, c := newEngine(t)
	c.Replace(group(catalog.Product{ID: "p1", Name: "Milk"}))
	c.Replace(cache.Kits{{ID: "k1", Name: "Breakfast Kit"}})

	res := e.Search("kit")
	assert.Empty(t, res.Products)
	assert.Len(t, res.Kits, 1)
	assert.False(t, res.Empty)
}

func TestPriceBounds(t *testing.T) {
	e, c := newEngine(t)
	assert.Equal(t, Bounds{Min: 0, Max: 1}, e.PriceBounds())

	c.Replace(group(
		catalog.Product{ID: "p1", Name: "A", Price: 10},
		catalog.Product{ID: "p2", Name: "B", Price: 25},
	))
	assert.Equal(t, Bounds{Min: 10, Max: 25}, e.PriceBounds())

	c.Replace(group(catalog.Product{ID: "p1", Name: "A", Price: 10}))
	assert.Equal(t, Bounds{Min: 10, Max: 11}, e.PriceBounds())

	c.Replace(cache.Kits{{ID: "k1", Name: "Kit", Price: 40}})
	assert.Equal(t, Bounds{Min: 10, Max: 40}, e.PriceBounds())
}

func TestFilter(t *testing.T) {
	e, c := newEngine(t)
	c.Replace(group(
		catalog.Product{ID: "p1", Name: "Milk", Tags: []string{"dairy"}, Price: 1, Ratings: []int{4}},
		catalog.Product{ID: "p2", Name: "Cheese", Tags: []string{"dairy", "aged"}, Price: 8, Ratings: []int{5}},
		catalog.Product{ID: "p3", Name: "Bread", Tags: []string{"bakery"}, Price: 3, Ratings: []int{4}},
	))
	c.Replace(cache.Kits{{ID: "k1", Name: "Kit", Tags: []string{"bakery"}, Price: 5, Ratings: []int{5}}})

	res := e.Filter(Filter{})
	assert.Len(t, res.Products, 3)
	assert.Len(t, res.Kits, 1)

	res = e.Filter(Filter{Tags: []string{"aged", "bakery"}})
	assert.Equal(t, []string{"Cheese", "Bread"}, names(res.Products))
	assert.Equal(t, []string{"Kit"}, names(res.Kits))

	res = e.Filter(Filter{Price: PriceRange{Active: true, Min: 3, Max: 5}})
	assert.Equal(t, []string{"Bread"}, names(res.Products))
	assert.Equal(t, []string{"Kit"}, names(res.Kits))

	// Rating is an exact match, not a lower bound.
	res = e.Filter(Filter{MinRating: 4})
	assert.Equal(t, []string{"Milk", "Bread"}, names(res.Products))
	assert.Empty(t, res.Kits)

	res = e.Filter(Filter{MinRating: 3})
	assert.True(t, res.Empty)
}

func TestDiscountsDriveEffectivePrice(t *testing.T) {
	e, c := newEngine(t)
	c.Replace(group(
		catalog.Product{ID: "p1", Name: "Almond Milk", Price: 2.9},
		catalog.Product{ID: "p2", Name: "Milk", Price: 1.2},
	))
	c.Replace(cache.Discounts{{
		ID:     "d1",
		EndsAt: time.Now().Add(time.Hour),
		Items:  []catalog.DiscountItem{{ID: "i1", ProductID: "p1", Percent: 10}},
	}})

	assert.Equal(t, 2.61, e.PriceLookup("p1", PriceDiscounted))
	assert.Equal(t, 2.9, e.PriceLookup("p1", PriceRaw))
	assert.Equal(t, 1.2, e.PriceLookup("p2", PriceDiscounted))

	c.Replace(cache.Discounts{})
	assert.Equal(t, 2.9, e.PriceLookup("p1", PriceDiscounted))
}

func TestSortByPrice(t *testing.T) {
	e, c := newEngine(t)
	c.Replace(group(
		catalog.Product{ID: "p1", Name: "B", Price: 3},
		catalog.Product{ID: "p2", Name: "A", Price: 1},
	))
	c.Replace(cache.Kits{{ID: "k1", Name: "K", Price: 2}})

	assert.Equal(t, []string{"A", "K", "B"}, names(e.SortByPrice(true)))
	assert.Equal(t, []string{"B", "K", "A"}, names(e.SortByPrice(false)))
}

func TestPriceLookup(t *testing.T) {
	e, c := newEngine(t)
	c.Replace(cache.Kits{{
		ID: "k1", Name: "Kit", Price: 5,
		Items: []catalog.KitItem{{ProductID: "p1", Quantity: 2, UnitPrice: 3}},
	}})

	assert.Equal(t, 5.0, e.PriceLookup("k1", PriceRaw))
	assert.Equal(t, 6.0, e.PriceLookup("k1", PriceBase))
	assert.Zero(t, e.PriceLookup("missing", PriceRaw))
	assert.Zero(t, e.PriceLookup("k1", PriceField(42)))

	_, ok := ParsePriceField("nope")
	assert.False(t, ok)
	f, ok := ParsePriceField("base")
	require.True(t, ok)
	assert.Equal(t, PriceBase, f)
}

func TestTagsAndBands(t *testing.T) {
	e, c := newEngine(t)
	c.Replace(group(catalog.Product{ID: "p1", Name: "Milk", Tags: []string{"fresh", "dairy"}}))
	c.Replace(cache.Kits{{ID: "k1", Name: "Kit", Tags: []string{"bundle", "fresh"}}})
	c.Replace(cache.PriceRanges{Boundaries: []float64{5, 10}})

	assert.Equal(t, []string{"bundle", "dairy", "fresh"}, e.Tags())

	bands := e.PriceBands()
	require.Len(t, bands, 3)
	assert.Equal(t, "under 5", bands[0].Label)
	assert.Equal(t, "5-10", bands[1].Label)
	assert.Equal(t, "10+", bands[2].Label)
}

func TestNewReadsCurrentCache(t *testing.T) {
	c := cache.New(zap.NewNop())
	c.Replace(group(catalog.Product{ID: "p1", Name: "Milk", Price: 2}))

	e := New(c, zap.NewNop())
	assert.Len(t, e.Search("").Products, 1)

	e.Close()
	assert.Zero(t, c.Subscribers(cache.TopicAllProducts))

	c.Replace(group())
	assert.Len(t, e.Search("").Products, 1)
}

func TestOutOfOrderEventsKeepNewestSlice(t *testing.T) {
	c := cache.New(zap.NewNop())

	// Registered before the engine, so it runs first and can hold cycle 1's
	// delivery while cycle 2 is written and delivered.
	entered := make(chan struct{})
	release := make(chan struct{})
	c.Subscribe(cache.TopicKits, func(ev cache.Event) {
		if ev.Cycle == 1 {
			close(entered)
			<-release
		}
	})

	e := New(c, zap.NewNop())
	t.Cleanup(e.Close)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.ReplaceAt(1, cache.Kits{{ID: "k-old", Name: "Old"}})
	}()
	<-entered

	require.True(t, c.ReplaceAt(2, cache.Kits{{ID: "k-new", Name: "New"}}))
	assert.Equal(t, []string{"New"}, names(e.Search("").Kits))

	close(release)
	wg.Wait()

	assert.Equal(t, "k-new", c.Kits()[0].ID)
	assert.Equal(t, []string{"New"}, names(e.Search("").Kits))
}
