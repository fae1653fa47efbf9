// Package discovery finds a restaurant's menu through an ordered cascade of
// strategies: web search, review mining and menu photos.
package discovery

import (
	"context"
	"strings"

	"menubox/internal/domain"
	"menubox/internal/extract"
)

// Source tags reported alongside discovered items.
const (
	SourceCached    = "cached"
	SourceWebSearch = "web_search"
	SourceReviews   = "reviews"
	SourceVision    = "vision"
	SourceNone      = "none"
)

// Request carries everything a strategy may draw on.
type Request struct {
	Identity    domain.RestaurantIdentity
	Reviews     []domain.ReviewRecord
	Images      []domain.Image
	CuisineHint string
}

// Strategy produces candidate menu items. It returns an empty result for
// "nothing found" and domain.ErrServiceUnavailable when the capability it
// depends on is not configured.
type Strategy interface {
	Name() string
	Discover(ctx context.Context, req Request) ([]domain.MenuItem, error)
}

// conditional is implemented by strategies that only run for some requests.
type conditional interface {
	Applies(req Request) bool
}

// itemsFromRows converts extracted records to normalized, deduplicated items.
func itemsFromRows(rows []map[string]any, category string) []domain.MenuItem {
	items := make([]domain.MenuItem, 0, len(rows))
	for _, row := range rows {
		it := domain.MenuItem{
			Name:        extract.String(extract.Lookup(row, "name", "item_name", "dish")),
			Description: extract.String(row["description"]),
			Category:    extract.String(row["category"]),
		}
		if category != "" {
			it.Category = category
		}
		if p, ok := extract.Float(row["price"]); ok {
			it.Price = &p
		}
		items = append(items, it)
	}
	return domain.DedupeItems(items)
}

func restaurantLine(id domain.RestaurantIdentity, cuisine string) string {
	var b strings.Builder
	b.WriteString("Restaurant: " + id.Name + "\n")
	if id.Location != "" {
		b.WriteString("Location: " + id.Location + "\n")
	}
	if cuisine == "" {
		cuisine = id.CuisineType
	}
	if cuisine != "" {
		b.WriteString("Cuisine Type: " + cuisine + "\n")
	}
	return b.String()
}
