package cache_test

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

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	return cache.New(zap.NewNop())
}

func TestReplace_EmitsSliceTopicThenUpdate(t *testing.T) {
	c := newCache(t)

	var got []string
	c.Subscribe(cache.TopicUpdate, func(ev cache.Event) { got = append(got, "update:"+ev.Slice.String()) })
	c.Subscribe(cache.TopicKits, func(ev cache.Event) { got = append(got, ev.Topic) })

	kits := cache.Kits{{ID: "k1", Name: "Kit"}}
	c.Replace(kits)

	assert.Equal(t, []string{cache.TopicKits, "update:kits"}, got)
	assert.Equal(t, []catalog.Kit{{ID: "k1", Name: "Kit"}}, c.Kits())
}

func TestReplace_HandlersRunInRegistrationOrderOncePerCall(t *testing.T) {
	c := newCache(t)

	var calls []int
	for i := 0; i < 3; i++ {
		c.Subscribe(cache.TopicAnnouncement, func(cache.Event) { calls = append(calls, i) })
	}

	c.Replace(cache.Announcement{Message: "a"})
	c.Replace(cache.Announcement{Message: "b"})

	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, calls)
	assert.Equal(t, "b", c.Announcement().Message)
}

func TestReplace_LastValueWinsPerSlice(t *testing.T) {
	c := newCache(t)

	c.Replace(cache.Kits{{ID: "k1"}})
	c.Replace(cache.PriceRanges{Boundaries: []float64{1, 2}})
	c.Replace(cache.Kits{{ID: "k2"}})
	c.Replace(cache.AllCategories{{ID: "c1"}})

	require.Len(t, c.Kits(), 1)
	assert.Equal(t, "k2", c.Kits()[0].ID)
	assert.Equal(t, []float64{1, 2}, c.PriceRanges().Boundaries)
	assert.Equal(t, "c1", c.AllCategories()[0].ID)
	assert.Empty(t, c.Categories())
}

func TestUnsubscribe(t *testing.T) {
	c := newCache(t)

	n := 0
	tok := c.Subscribe(cache.TopicKits, func(cache.Event) { n++ })
	c.Replace(cache.Kits{})
	require.True(t, c.Unsubscribe(tok))
	require.False(t, c.Unsubscribe(tok))
	c.Replace(cache.Kits{})

	assert.Equal(t, 1, n)
	assert.Zero(t, c.Subscribers(cache.TopicKits))
}

func TestSubscribe_NoReplay(t *testing.T) {
	c := newCache(t)
	c.Replace(cache.Kits{{ID: "k1"}})

	n := 0
	c.Subscribe(cache.TopicKits, func(cache.Event) { n++ })

	assert.Zero(t, n)
	assert.Len(t, c.Kits(), 1)
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	c := newCache(t)

	reached := false
	c.Subscribe(cache.TopicKits, func(cache.Event) { panic("boom") })
	c.Subscribe(cache.TopicKits, func(cache.Event) { reached = true })

	require.NotPanics(t, func() { c.Replace(cache.Kits{}) })
	assert.True(t, reached)
}

func TestReplaceAt_DiscardsStaleCycle(t *testing.T) {
	c := newCache(t)

	require.True(t, c.ReplaceAt(5, cache.Kits{{ID: "new"}}))
	require.False(t, c.ReplaceAt(4, cache.Kits{{ID: "old"}}))
	require.True(t, c.ReplaceAt(5, cache.Kits{{ID: "same-cycle"}}))

	assert.Equal(t, "same-cycle", c.Kits()[0].ID)
	assert.Equal(t, uint64(5), c.Cycle(cache.SliceKits))

	require.True(t, c.ReplaceAt(2, cache.Announcement{Message: "other slice"}))
}

func TestReset_ClearsWithoutEmitting(t *testing.T) {
	c := newCache(t)
	c.Replace(cache.Kits{{ID: "k1"}})

	n := 0
	c.Subscribe(cache.TopicUpdate, func(cache.Event) { n++ })
	c.Reset(cache.SliceKits)

	assert.Empty(t, c.Kits())
	assert.Zero(t, n)

	c.Replace(cache.Kits{{ID: "k2"}})
	assert.Equal(t, 1, n)
}

func TestEmptySlicesReturnEmptyResults(t *testing.T) {
	c := newCache(t)

	assert.Empty(t, c.Kits())
	assert.Empty(t, c.Discounts())
	assert.Empty(t, c.RecentlyAdded(5))
	_, ok := c.LookupByID(cache.KindProduct, "nope")
	assert.False(t, ok)
	assert.Nil(t, c.Get(cache.Slice(99)))
}

func TestLookupByID_PoolPriority(t *testing.T) {
	c := newCache(t)

	c.Replace(cache.AllProducts{{CategoryID: "c", Products: []catalog.Product{{ID: "p1", Name: "general"}, {ID: "p2", Name: "general-only"}}}})
	c.Replace(cache.NonPremiumProducts{{CategoryID: "c", Products: []catalog.Product{{ID: "p1", Name: "non-premium"}}}})
	c.Replace(cache.PremiumProducts{{CategoryID: "c", Products: []catalog.Product{{ID: "p1", Name: "premium"}}}})
	c.Replace(cache.Kits{{ID: "k1", Name: "kit"}})

	e, ok := c.LookupByID(cache.KindProduct, "p1")
	require.True(t, ok)
	assert.Equal(t, "premium", e.Product.Name)

	e, ok = c.LookupByID(cache.KindProduct, "p2")
	require.True(t, ok)
	assert.Equal(t, "general-only", e.Product.Name)

	e, ok = c.LookupByID(cache.KindKit, "k1")
	require.True(t, ok)
	assert.Equal(t, cache.KindKit, e.Kind)
	assert.Equal(t, "kit", e.Kit.Name)

	_, ok = c.LookupByID(cache.KindKit, "p1")
	assert.False(t, ok)
}

func TestRecentlyAdded(t *testing.T) {
	c := newCache(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Replace(cache.AllProducts{
		{CategoryID: "a", Products: []catalog.Product{
			{ID: "p1", CreatedAt: base.Add(1 * time.Hour)},
			{ID: "p2", CreatedAt: base.Add(3 * time.Hour)},
			{ID: "tie-a", CreatedAt: base},
		}},
		{CategoryID: "b", Products: []catalog.Product{
			{ID: "p2", CreatedAt: base.Add(9 * time.Hour)},
			{ID: "p3", CreatedAt: base.Add(2 * time.Hour)},
			{ID: "tie-b", CreatedAt: base},
		}},
	})

	got := c.RecentlyAdded(10)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p2", "p3", "p1", "tie-a", "tie-b"}, ids)

	top := c.RecentlyAdded(2)
	require.Len(t, top, 2)
	assert.Equal(t, "p2", top[0].ID)
	assert.Empty(t, c.RecentlyAdded(0))
}

func TestGettersReturnCopies(t *testing.T) {
	c := newCache(t)
	c.Replace(cache.Kits{{ID: "k1"}})

	got := c.Kits()
	got[0].ID = "mutated"

	assert.Equal(t, "k1", c.Kits()[0].ID)
}

func TestConcurrentWritersOnDistinctAndSameSlices(t *testing.T) {
	c := newCache(t)

	var mu sync.Mutex
	counts := map[string]int{}
	for _, topic := range []string{cache.TopicKits, cache.TopicAnnouncement, cache.TopicUpdate} {
		c.Subscribe(topic, func(ev cache.Event) {
			mu.Lock()
			counts[ev.Topic]++
			mu.Unlock()
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Replace(cache.Kits{{ID: "k"}})
		}()
		go func() {
			defer wg.Done()
			c.Replace(cache.Announcement{Message: "m"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counts[cache.TopicKits])
	assert.Equal(t, 50, counts[cache.TopicAnnouncement])
	assert.Equal(t, 100, counts[cache.TopicUpdate])
	assert.Equal(t, "k", c.Kits()[0].ID)
}
