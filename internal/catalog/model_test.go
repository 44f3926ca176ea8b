package catalog

import (
	"errors"
	"testing"
	"time"
)

func TestRating(t *testing.T) {
	cases := []struct {
		in   []int
		want int
	}{
		{nil, 0},
		{[]int{4}, 4},
		{[]int{4, 5}, 5},
		{[]int{3, 4, 4}, 4},
	}
	for _, tc := range cases {
		if got := (Product{Ratings: tc.in}).Rating(); got != tc.want {
			t.Fatalf("Rating(%v)=%d want %d", tc.in, got, tc.want)
		}
	}
}

func TestExcludedFor(t *testing.T) {
	d := Discount{ID: "d1", ExcludedPhones: []string{"+1 (555) 010-0"}}

	if !d.ExcludedFor("15550100") {
		t.Fatalf("normalized phone should match")
	}
	if d.ExcludedFor("") {
		t.Fatalf("anonymous visitor must not be excluded")
	}
	if d.ExcludedFor("5550199") {
		t.Fatalf("other phone excluded")
	}
}

func TestValidate(t *testing.T) {
	if err := (Product{Name: "x"}).Validate(); !errors.Is(err, ErrMissingID) {
		t.Fatalf("product without id: %v", err)
	}
	if err := (Kit{ID: "k", Price: -1}).Validate(); err == nil {
		t.Fatalf("negative kit price accepted")
	}
	d := Discount{ID: "d", EndsAt: time.Now(), Items: []DiscountItem{{ProductID: "p"}}}
	if err := d.Validate(); !errors.Is(err, ErrMissingID) {
		t.Fatalf("discount item without id: %v", err)
	}
	if err := (PriceRangeTable{Boundaries: []float64{5, 5}}).Validate(); err == nil {
		t.Fatalf("non-ascending boundaries accepted")
	}
}

func TestBands(t *testing.T) {
	bands := PriceRangeTable{Boundaries: []float64{2.5, 10}}.Bands()
	want := []string{"under 2.50", "2.50-10", "10+"}
	if len(bands) != len(want) {
		t.Fatalf("bands=%v", bands)
	}
	for i, b := range bands {
		if b.Label != want[i] {
			t.Fatalf("band %d label=%q want %q", i, b.Label, want[i])
		}
	}
	if bands[2].Max != 0 || bands[2].Min != 10 {
		t.Fatalf("last band=%+v", bands[2])
	}
	if (PriceRangeTable{}).Bands() != nil {
		t.Fatalf("empty table should have no bands")
	}
}

func TestKitBasePrice(t *testing.T) {
	k := Kit{Items: []KitItem{{Quantity: 2, UnitPrice: 1.5}, {Quantity: 1, UnitPrice: 4}}}
	if got := k.BasePrice(); got != 7 {
		t.Fatalf("BasePrice=%v", got)
	}
}
