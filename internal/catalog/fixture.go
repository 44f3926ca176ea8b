package catalog

import "time"

// DemoFixture is the small catalog served by a fresh dev catalog service.
func DemoFixture(now time.Time) Fixture {
	day := 24 * time.Hour

	dairy := []Product{
		{ID: "p-milk", Name: "Milk", CategoryID: "c-dairy", Tags: []string{"dairy", "fresh"}, Price: 1.2, Ratings: []int{5, 4}, CreatedAt: now.Add(-3 * day)},
		{ID: "p-almond", Name: "Almond Milk", CategoryID: "c-dairy", Tags: []string{"vegan", "dairy-free"}, Price: 2.9, DiscountID: "d-spring", Ratings: []int{4}, CreatedAt: now.Add(-1 * day)},
		{ID: "p-butter", Name: "Buttermilk", CategoryID: "c-dairy", Tags: []string{"dairy"}, Price: 1.8, CreatedAt: now.Add(-7 * day)},
	}
	bakery := []Product{
		{ID: "p-bread", Name: "Sourdough Bread", CategoryID: "c-bakery", Tags: []string{"bakery", "fresh"}, Price: 4.5, Ratings: []int{5, 5, 4}, CreatedAt: now.Add(-2 * day)},
		{ID: "p-croissant", Name: "Croissant", CategoryID: "c-bakery", Tags: []string{"bakery"}, Price: 1.5, DiscountID: "d-spring", Ratings: []int{3}, CreatedAt: now.Add(-5 * day)},
	}

	groups := []ProductGroup{
		{CategoryID: "c-dairy", CategoryName: "Dairy", Products: dairy},
		{CategoryID: "c-bakery", CategoryName: "Bakery", Products: bakery},
	}

	categories := []Category{
		{ID: "c-dairy", Name: "Dairy", Products: categoryProducts(dairy)},
		{ID: "c-bakery", Name: "Bakery", Products: categoryProducts(bakery)},
	}

	return Fixture{
		Categories:    categories[:1],
		AllCategories: categories,
		Kits: []Kit{
			{
				ID: "k-breakfast", Name: "Breakfast Kit", Tags: []string{"bundle", "fresh"}, Price: 6.5,
				Items: []KitItem{
					{ProductID: "p-milk", Quantity: 1, UnitPrice: 1.2},
					{ProductID: "p-bread", Quantity: 1, UnitPrice: 4.5},
					{ProductID: "p-croissant", Quantity: 2, UnitPrice: 1.5},
				},
				Ratings: []int{4, 5},
			},
		},
		PremiumProducts:    []ProductGroup{{CategoryID: "c-bakery", CategoryName: "Bakery", Products: bakery[:1]}},
		NonPremiumProducts: []ProductGroup{{CategoryID: "c-dairy", CategoryName: "Dairy", Products: dairy}},
		AllProducts:        groups,
		Discounts: []Discount{
			{
				ID:     "d-spring",
				EndsAt: now.Add(14 * day),
				Items: []DiscountItem{
					{ID: "di-almond", ProductID: "p-almond", Percent: 10},
					{ID: "di-croissant", ProductID: "p-croissant", Percent: 20},
				},
			},
			{
				ID:     "d-winter",
				EndsAt: now.Add(-30 * day),
				Items:  []DiscountItem{{ID: "di-bread", ProductID: "p-bread", Percent: 15}},
			},
		},
		PriceRanges:  PriceRangeTable{Boundaries: []float64{2, 5, 10}},
		Announcement: Announcement{Message: "Free delivery on orders over 20"},
	}
}

func categoryProducts(ps []Product) []CategoryProduct {
	out := make([]CategoryProduct, 0, len(ps))
	for _, p := range ps {
		out = append(out, CategoryProduct{ID: p.ID, Name: p.Name, Price: p.Price})
	}
	return out
}
