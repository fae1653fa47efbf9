// Package domain holds the menubox data model, error taxonomy and the
// interfaces the pipeline consumes.
package domain

import (
	"strings"
	"time"
)

// Provider names used as keys in RestaurantIdentity.ExternalIDs.
const (
	ProviderGoogle = "google"
	ProviderYelp   = "yelp"
	// ProviderUpload keys restaurants created from menu photos.
	ProviderUpload = "upload"
)

// DefaultCategory is assigned to menu items that arrive without one.
const DefaultCategory = "Other"

// RestaurantIdentity identifies a restaurant across map providers.
type RestaurantIdentity struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Location    string            `json:"location,omitempty"`
	CuisineType string            `json:"cuisine_type,omitempty"`
	PriceRange  string            `json:"price_range,omitempty"`
	Rating      float64           `json:"rating,omitempty"`
	Website     string            `json:"website,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SameRestaurant reports whether two identities describe the same
// restaurant. A shared non-empty provider key wins. Two different keys for
// the same provider mean two restaurants. Otherwise normalized name and
// location must both match.
func SameRestaurant(a, b RestaurantIdentity) bool {
	conflict := false
	for provider, key := range a.ExternalIDs {
		if key == "" {
			continue
		}
		other := b.ExternalIDs[provider]
		if other == key {
			return true
		}
		if other != "" {
			conflict = true
		}
	}
	if conflict {
		return false
	}
	return NormalizeName(a.Name) == NormalizeName(b.Name) &&
		NormalizeName(a.Location) == NormalizeName(b.Location)
}

// MergeExternalIDs appends provider keys from src that dst does not carry yet.
// Existing keys are never overwritten. It reports whether dst changed.
func (r *RestaurantIdentity) MergeExternalIDs(src map[string]string) bool {
	changed := false
	for provider, key := range src {
		if key == "" {
			continue
		}
		if r.ExternalIDs == nil {
			r.ExternalIDs = make(map[string]string)
		}
		if _, ok := r.ExternalIDs[provider]; ok {
			continue
		}
		r.ExternalIDs[provider] = key
		changed = true
	}
	return changed
}

// MenuItem is a single dish or drink.
type MenuItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// Normalize trims text fields, defaults the category and drops negative
// prices. ok is false when the item has no usable name.
func (m MenuItem) Normalize() (MenuItem, bool) {
	m.Name = strings.Join(strings.Fields(m.Name), " ")
	m.Description = strings.TrimSpace(m.Description)
	m.Category = strings.TrimSpace(m.Category)
	if m.Category == "" {
		m.Category = DefaultCategory
	}
	if m.Price != nil && *m.Price < 0 {
		m.Price = nil
	}
	return m, m.Name != ""
}

// Key is the deduplication key of the item.
func (m MenuItem) Key() string { return NormalizeName(m.Name) }

// SpiceLevel is the preferred heat of dishes.
type SpiceLevel string

const (
	SpiceNone     SpiceLevel = "none"
	SpiceMild     SpiceLevel = "mild"
	SpiceMedium   SpiceLevel = "medium"
	SpiceHot      SpiceLevel = "hot"
	SpiceExtraHot SpiceLevel = "extra_hot"
)

// Valid reports whether s is one of the known levels.
func (s SpiceLevel) Valid() bool {
	switch s {
	case SpiceNone, SpiceMild, SpiceMedium, SpiceHot, SpiceExtraHot:
		return true
	}
	return false
}

// PricePreference is the preferred price band.
type PricePreference string

const (
	PriceBudget   PricePreference = "budget"
	PriceModerate PricePreference = "moderate"
	PriceUpscale  PricePreference = "upscale"
	PriceAny      PricePreference = "any"
)

// Valid reports whether p is one of the known bands.
func (p PricePreference) Valid() bool {
	switch p {
	case PriceBudget, PriceModerate, PriceUpscale, PriceAny:
		return true
	}
	return false
}

// PreferenceProfile describes what a user likes to eat.
type PreferenceProfile struct {
	DietaryRestrictions []string        `json:"dietary_restrictions"`
	FavoriteCuisines    []string        `json:"favorite_cuisines"`
	DislikedIngredients []string        `json:"disliked_ingredients"`
	SpicePreference     SpiceLevel      `json:"spice_preference"`
	PricePreference     PricePreference `json:"price_preference"`
	CustomNotes         string          `json:"custom_notes,omitempty"`
}

// DefaultPreferences returns a profile with no restrictions and the default
// spice and price settings.
func DefaultPreferences() PreferenceProfile {
	return PreferenceProfile{
		DietaryRestrictions: []string{},
		FavoriteCuisines:    []string{},
		DislikedIngredients: []string{},
		SpicePreference:     SpiceMedium,
		PricePreference:     PriceAny,
	}
}

// Snapshot returns a deep copy of the profile with set semantics applied:
// duplicate entries are removed and unknown enum values fall back to defaults.
func (p PreferenceProfile) Snapshot() PreferenceProfile {
	out := PreferenceProfile{
		DietaryRestrictions: uniqueStrings(p.DietaryRestrictions),
		FavoriteCuisines:    uniqueStrings(p.FavoriteCuisines),
		DislikedIngredients: uniqueStrings(p.DislikedIngredients),
		SpicePreference:     p.SpicePreference,
		PricePreference:     p.PricePreference,
		CustomNotes:         strings.TrimSpace(p.CustomNotes),
	}
	if !out.SpicePreference.Valid() {
		out.SpicePreference = SpiceMedium
	}
	if !out.PricePreference.Valid() {
		out.PricePreference = PriceAny
	}
	return out
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ReviewRecord is one customer review.
type ReviewRecord struct {
	Text            string     `json:"text"`
	Rating          int        `json:"rating"`
	SourceTimestamp *time.Time `json:"source_timestamp,omitempty"`
	Author          string     `json:"author,omitempty"`
}

// Sentiment classifies how reviewers feel about a dish.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
	SentimentUnknown  Sentiment = "unknown"
)

// ParseSentiment maps free text onto a Sentiment.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	case SentimentMixed:
		return SentimentMixed
	}
	return SentimentUnknown
}

// Quote limits for DishMention.
const (
	MaxQuotes      = 2
	MaxQuoteLength = 100
)

// DishMention summarizes what reviews say about one dish.
type DishMention struct {
	DishName     string    `json:"dish_name"`
	MentionCount int       `json:"mention_count"`
	Sentiment    Sentiment `json:"sentiment"`
	Quotes       []string  `json:"quotes"`
}

// AddQuote appends q if there is room, truncated to MaxQuoteLength runes.
func (d *DishMention) AddQuote(q string) {
	q = strings.TrimSpace(q)
	if q == "" || len(d.Quotes) >= MaxQuotes {
		return
	}
	if r := []rune(q); len(r) > MaxQuoteLength {
		q = string(r[:MaxQuoteLength])
	}
	d.Quotes = append(d.Quotes, q)
}

// RecommendedItem is one ranked dish.
type RecommendedItem struct {
	ItemName  string `json:"item_name"`
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// Recommendation count bounds.
const (
	MinRecommendations     = 1
	MaxRecommendations     = 10
	DefaultRecommendations = 5
)

// ClampRecommendations forces n into [MinRecommendations, MaxRecommendations].
func ClampRecommendations(n int) int {
	if n < MinRecommendations {
		return MinRecommendations
	}
	if n > MaxRecommendations {
		return MaxRecommendations
	}
	return n
}

// RecommendationResult is an immutable record of one recommendation request.
type RecommendationResult struct {
	ID                  string            `json:"id"`
	UserID              string            `json:"user_id"`
	RestaurantID        string            `json:"restaurant_id,omitempty"`
	Items               []RecommendedItem `json:"items"`
	PreferencesSnapshot PreferenceProfile `json:"preferences_snapshot"`
	CreatedAt           time.Time         `json:"created_at"`
}
