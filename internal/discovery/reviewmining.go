package discovery

import (
	"context"
	"fmt"

	"menubox/internal/domain"
	"menubox/internal/reviews"
)

// PopularItemsCategory labels items mined from reviews.
const PopularItemsCategory = "Popular Items"

// PopularDishSource extracts dish names from reviews.
type PopularDishSource interface {
	PopularDishes(ctx context.Context, reviews []domain.ReviewRecord) ([]reviews.PopularDish, error)
}

// ReviewMining builds a menu from dishes reviewers mention. Items carry no
// price.
type ReviewMining struct {
	source PopularDishSource
}

func NewReviewMining(source PopularDishSource) *ReviewMining {
	return &ReviewMining{source: source}
}

func (r *ReviewMining) Name() string { return SourceReviews }

// Applies reports whether there is a review corpus to mine.
func (r *ReviewMining) Applies(req Request) bool { return len(req.Reviews) > 0 }

func (r *ReviewMining) Discover(ctx context.Context, req Request) ([]domain.MenuItem, error) {
	if len(req.Reviews) == 0 {
		return nil, nil
	}
	dishes, err := r.source.PopularDishes(ctx, req.Reviews)
	if err != nil {
		return nil, fmt.Errorf("review mining: %w", err)
	}
	items := make([]domain.MenuItem, 0, len(dishes))
	for _, d := range dishes {
		items = append(items, domain.MenuItem{
			Name:        d.Name,
			Description: d.Description,
			Category:    PopularItemsCategory,
		})
	}
	return domain.DedupeItems(items), nil
}
