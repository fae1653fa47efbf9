// Package places holds map and listing provider clients that resolve
// restaurants and fetch their reviews.
package places

import (
	"context"
	"fmt"

	"menubox/internal/domain"
	"menubox/internal/reviews"
)

// Unavailable stands in for a provider that is not configured.
type Unavailable struct {
	Reason string
}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return domain.ErrServiceUnavailable
	}
	return fmt.Errorf("%s: %w", u.Reason, domain.ErrServiceUnavailable)
}

func (u Unavailable) Resolve(context.Context, string, string) (*domain.RestaurantIdentity, error) {
	return nil, u.err()
}

func (u Unavailable) FetchReviews(context.Context, domain.RestaurantIdentity) ([]domain.ReviewRecord, error) {
	return nil, u.err()
}

func (u Unavailable) Listing(context.Context, string, string) (*reviews.Listing, error) {
	return nil, u.err()
}
