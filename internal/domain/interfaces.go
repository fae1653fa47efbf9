package domain

import "context"

// Image is an uploaded menu photo.
type Image struct {
	Data     []byte
	MIMEType string
}

// TextCompleter generates free text from a prompt.
// Implementations return ErrServiceUnavailable when not configured.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

// VisionCompleter generates free text from a prompt and one image.
type VisionCompleter interface {
	CompleteWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// WebSearchCompleter generates free text from a prompt, grounding the answer
// with web search. Multi-part answers are concatenated by the implementation.
type WebSearchCompleter interface {
	CompleteWithSearch(ctx context.Context, prompt string) (string, error)
}

// PlaceResolver looks a restaurant up at a map provider.
// It returns ErrNotFound when the provider has no match.
type PlaceResolver interface {
	Resolve(ctx context.Context, name, location string) (*RestaurantIdentity, error)
}

// ReviewProvider fetches a small, provider-bounded set of reviews.
type ReviewProvider interface {
	FetchReviews(ctx context.Context, identity RestaurantIdentity) ([]ReviewRecord, error)
}

// IdentityStore persists restaurant identities.
type IdentityStore interface {
	FindByExternalKey(ctx context.Context, provider, key string) (*RestaurantIdentity, error)
	FindByID(ctx context.Context, id string) (*RestaurantIdentity, error)
	// Save stores identity. If a record for the same restaurant exists, its
	// external IDs are extended and the stored record is returned.
	Save(ctx context.Context, identity RestaurantIdentity) (RestaurantIdentity, error)
}

// MenuItemStore persists the menu of each restaurant.
type MenuItemStore interface {
	ListFor(ctx context.Context, identityID string) ([]MenuItem, error)
	// SaveAll stores items for identityID unless a menu is already present.
	SaveAll(ctx context.Context, identityID string, items []MenuItem) error
}

// RecommendationStore is an append-only log of recommendation results.
type RecommendationStore interface {
	Append(ctx context.Context, result RecommendationResult) (string, error)
	Get(ctx context.Context, id string) (*RecommendationResult, error)
	// ListFor returns up to limit results for userID, newest first.
	ListFor(ctx context.Context, userID string, limit int) ([]RecommendationResult, error)
}
