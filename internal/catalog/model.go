package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var ErrMissingID = errors.New("missing id")

type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CategoryID string    `json:"category_id"`
	Tags       []string  `json:"tags,omitempty"`
	Price      float64   `json:"price"`
	DiscountID string    `json:"discount_id,omitempty"`
	Ratings    []int     `json:"ratings,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("product %q: %w", p.Name, ErrMissingID)
	}
	if p.Price < 0 || math.IsNaN(p.Price) {
		return fmt.Errorf("product %s: negative price", p.ID)
	}
	return nil
}

func (p Product) Rating() int { return meanRating(p.Ratings) }

type KitItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Kit struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Tags    []string  `json:"tags,omitempty"`
	Price   float64   `json:"price"`
	Items   []KitItem `json:"items"`
	Ratings []int     `json:"ratings,omitempty"`
}

func (k Kit) Validate() error {
	if strings.TrimSpace(k.ID) == "" {
		return fmt.Errorf("kit %q: %w", k.Name, ErrMissingID)
	}
	if k.Price < 0 || math.IsNaN(k.Price) {
		return fmt.Errorf("kit %s: negative price", k.ID)
	}
	return nil
}

func (k Kit) Rating() int { return meanRating(k.Ratings) }

// BasePrice is what the kit's items would cost bought separately.
func (k Kit) BasePrice() float64 {
	var sum float64
	for _, it := range k.Items {
		sum += it.UnitPrice * float64(it.Quantity)
	}
	return sum
}

type CategoryProduct struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Category struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Products []CategoryProduct `json:"products"`
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("category %q: %w", c.Name, ErrMissingID)
	}
	return nil
}

// ProductGroup is one category bucket of the grouped product endpoints.
type ProductGroup struct {
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Products     []Product `json:"products"`
}

func (g ProductGroup) Validate() error {
	if strings.TrimSpace(g.CategoryID) == "" {
		return fmt.Errorf("product group %q: %w", g.CategoryName, ErrMissingID)
	}
	return nil
}

// Flatten concatenates the products of every group in order.
func Flatten(groups []ProductGroup) []Product {
	n := 0
	for _, g := range groups {
		n += len(g.Products)
	}
	out := make([]Product, 0, n)
	for _, g := range groups {
		out = append(out, g.Products...)
	}
	return out
}

type DiscountItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Percent   float64 `json:"percent"`
}

type Discount struct {
	ID             string         `json:"id"`
	EndsAt         time.Time      `json:"ends_at"`
	ExcludedPhones []string       `json:"excluded_phones,omitempty"`
	Items          []DiscountItem `json:"items"`
}

func (d Discount) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("discount: %w", ErrMissingID)
	}
	for i, it := range d.Items {
		if strings.TrimSpace(it.ID) == "" {
			return fmt.Errorf("discount %s item %d: %w", d.ID, i, ErrMissingID)
		}
	}
	return nil
}

// ExcludedFor reports whether the discount must be hidden from phone.
// An anonymous visitor (empty phone) is never excluded.
func (d Discount) ExcludedFor(phone string) bool {
	phone = NormalizePhone(phone)
	if phone == "" {
		return false
	}
	for _, p := range d.ExcludedPhones {
		if NormalizePhone(p) == phone {
			return true
		}
	}
	return false
}

func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type PriceRangeTable struct {
	Boundaries []float64 `json:"boundaries"`
}

type PriceBand struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"` // 0 means unbounded
}

// Bands turns ascending boundaries [a, b, c] into "under a", "a-b", "b-c" and "c+".
func (t PriceRangeTable) Bands() []PriceBand {
	if len(t.Boundaries) == 0 {
		return nil
	}
	out := make([]PriceBand, 0, len(t.Boundaries)+1)
	out = append(out, PriceBand{Label: "under " + formatPrice(t.Boundaries[0]), Max: t.Boundaries[0]})
	for i := 1; i < len(t.Boundaries); i++ {
		lo, hi := t.Boundaries[i-1], t.Boundaries[i]
		out = append(out, PriceBand{Label: formatPrice(lo) + "-" + formatPrice(hi), Min: lo, Max: hi})
	}
	last := t.Boundaries[len(t.Boundaries)-1]
	out = append(out, PriceBand{Label: formatPrice(last) + "+", Min: last})
	return out
}

func (t PriceRangeTable) Validate() error {
	for i := 1; i < len(t.Boundaries); i++ {
		if t.Boundaries[i] <= t.Boundaries[i-1] {
			return fmt.Errorf("price ranges: boundaries not ascending at %d", i)
		}
	}
	return nil
}

type Announcement struct {
	Message string `json:"message"`
}

func meanRating(rs []int) int {
	if len(rs) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rs {
		sum += r
	}
	return int(math.Round(float64(sum) / float64(len(rs))))
}

func formatPrice(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
