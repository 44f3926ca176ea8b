// Package discount decides which fetched discounts are shown to the current user.
//
// Every discount and discount item id moves through at most three states:
// tracked (active, with an end time), hidden (excluded for this user) and
// done. Done is terminal for the life of the process.
package discount

import (
	"slices"
	"sort"
	"sync"
	"time"

	"Storefront/internal/catalog"
)

// IdentityProvider exposes the signed-in user's phone number, if any.
type IdentityProvider interface {
	PhoneNumber() (string, bool)
}

// Result partitions one reconciled discount list.
type Result struct {
	Active   []catalog.Discount
	Excluded []string
	Done     []string // ids from the input list that are done

	// Transitions made by this call.
	Expired []string
	Removed []string
}

type Tracker struct {
	mu        sync.Mutex
	tracked   map[string]time.Time
	done      map[string]struct{}
	published []catalog.Discount
}

func NewTracker() *Tracker {
	return &Tracker{
		tracked: make(map[string]time.Time),
		done:    make(map[string]struct{}),
	}
}

// Reconcile applies a freshly fetched discount list for the user identified by phone.
func (t *Tracker) Reconcile(now time.Time, discounts []catalog.Discount, phone string) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	var res Result

	present := make(map[string]struct{}, len(discounts)*2)
	for _, d := range discounts {
		present[d.ID] = struct{}{}
		for _, it := range d.Items {
			present[it.ID] = struct{}{}
		}
	}
	for id := range t.tracked {
		if _, ok := present[id]; !ok {
			delete(t.tracked, id)
			if t.markDone(id) {
				res.Removed = append(res.Removed, id)
			}
		}
	}

	res.Active = make([]catalog.Discount, 0, len(discounts))
	for _, d := range discounts {
		if d.ExcludedFor(phone) {
			res.Excluded = append(res.Excluded, d.ID)
			t.untrack(d)
			continue
		}
		if _, done := t.done[d.ID]; done {
			res.Done = append(res.Done, d.ID)
			t.untrack(d)
			continue
		}

		if !d.EndsAt.After(now) {
			t.untrack(d)
			if t.markDone(d.ID) {
				res.Expired = append(res.Expired, d.ID)
			}
			for _, it := range d.Items {
				t.markDone(it.ID)
			}
			res.Done = append(res.Done, d.ID)
			continue
		}

		d = t.withoutDoneItems(d)
		t.tracked[d.ID] = d.EndsAt
		for _, it := range d.Items {
			t.tracked[it.ID] = d.EndsAt
		}
		res.Active = append(res.Active, d)
	}

	sort.Strings(res.Removed)
	t.published = res.Active
	return res
}

// Sweep retires tracked ids whose end time has passed and returns the last
// published active list without them. changed is false when nothing expired.
func (t *Tracker) Sweep(now time.Time) (active []catalog.Discount, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, end := range t.tracked {
		if !end.After(now) {
			delete(t.tracked, id)
			t.markDone(id)
			changed = true
		}
	}
	if !changed {
		return slices.Clone(t.published), false
	}

	kept := make([]catalog.Discount, 0, len(t.published))
	for _, d := range t.published {
		if _, done := t.done[d.ID]; done {
			continue
		}
		kept = append(kept, t.withoutDoneItems(d))
	}
	t.published = kept
	return slices.Clone(kept), true
}

// NextExpiry returns the earliest end time among tracked ids.
func (t *Tracker) NextExpiry() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		next  time.Time
		found bool
	)
	for _, end := range t.tracked {
		if !found || end.Before(next) {
			next, found = end, true
		}
	}
	return next, found
}

func (t *Tracker) IsDone(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.done[id]
	return ok
}

// Counts reports the sizes of the tracked and done sets.
func (t *Tracker) Counts() (tracked, done int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracked), len(t.done)
}

// Tracked returns a copy of the active id -> end time map.
func (t *Tracker) Tracked() map[string]time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]time.Time, len(t.tracked))
	for id, end := range t.tracked {
		out[id] = end
	}
	return out
}

func (t *Tracker) markDone(id string) bool {
	if _, ok := t.done[id]; ok {
		return false
	}
	t.done[id] = struct{}{}
	return true
}

func (t *Tracker) untrack(d catalog.Discount) {
	delete(t.tracked, d.ID)
	for _, it := range d.Items {
		delete(t.tracked, it.ID)
	}
}

func (t *Tracker) withoutDoneItems(d catalog.Discount) catalog.Discount {
	items := make([]catalog.DiscountItem, 0, len(d.Items))
	for _, it := range d.Items {
		if _, done := t.done[it.ID]; !done {
			items = append(items, it)
		}
	}
	d.Items = items
	return d
}
