// Package google resolves restaurants and fetches their reviews via the
// Places API.
package google

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"menubox/internal/domain"
	"menubox/internal/httpclient"
)

// Client resolves restaurants with the Places text search and fetches their
// reviews from place details.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
}

// Config configures the Places client.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// NewClient creates a Places client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://maps.googleapis.com/maps/api/place"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  key,
		http: httpclient.New(httpclient.Config{
			Timeout:           t,
			RequestsPerSecond: cfg.RequestsPerSecond,
			RateLimitWait:     2 * time.Second,
			MaxRetries:        1,
		}),
	}, nil
}

type searchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID          string   `json:"place_id"`
		Name             string   `json:"name"`
		FormattedAddress string   `json:"formatted_address"`
		Rating           float64  `json:"rating"`
		PriceLevel       *int     `json:"price_level"`
		Types            []string `json:"types"`
	} `json:"results"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name    string `json:"name"`
		Website string `json:"website"`
		Reviews []struct {
			AuthorName string `json:"author_name"`
			Rating     int    `json:"rating"`
			Text       string `json:"text"`
			Time       int64  `json:"time"`
		} `json:"reviews"`
	} `json:"result"`
}

// Resolve returns the first text search match for the restaurant.
func (c *Client) Resolve(ctx context.Context, name, location string) (*domain.RestaurantIdentity, error) {
	query := strings.TrimSpace(name)
	if location = strings.TrimSpace(location); location != "" {
		query += " " + location
	}
	params := url.Values{}
	params.Set("query", query+" restaurant")
	params.Set("type", "restaurant")
	params.Set("key", c.apiKey)

	var out searchResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/textsearch/json?"+params.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("places search: %w", err)
	}
	if err := statusErr(out.Status); err != nil {
		return nil, fmt.Errorf("places search %q: %w", query, err)
	}
	if len(out.Results) == 0 {
		return nil, fmt.Errorf("places search %q: %w", query, domain.ErrNotFound)
	}
	place := out.Results[0]
	loc := place.FormattedAddress
	if loc == "" {
		loc = location
	}
	return &domain.RestaurantIdentity{
		Name:        place.Name,
		Location:    loc,
		CuisineType: CuisineType(place.Types, place.Name),
		PriceRange:  PriceRange(place.PriceLevel),
		Rating:      place.Rating,
		ExternalIDs: map[string]string{domain.ProviderGoogle: place.PlaceID},
	}, nil
}

// FetchReviews returns the reviews place details carries for identity.
// Identities without a Places ID have no reviews here.
func (c *Client) FetchReviews(ctx context.Context, identity domain.RestaurantIdentity) ([]domain.ReviewRecord, error) {
	placeID := identity.ExternalIDs[domain.ProviderGoogle]
	if placeID == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "name,website,rating,reviews,price_level,types")
	params.Set("key", c.apiKey)

	var out detailsResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/details/json?"+params.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("places details: %w", err)
	}
	if err := statusErr(out.Status); err != nil {
		return nil, fmt.Errorf("places details %s: %w", placeID, err)
	}
	records := make([]domain.ReviewRecord, 0, len(out.Result.Reviews))
	for _, r := range out.Result.Reviews {
		rec := domain.ReviewRecord{Text: r.Text, Rating: r.Rating, Author: r.AuthorName}
		if r.Time > 0 {
			t := time.Unix(r.Time, 0).UTC()
			rec.SourceTimestamp = &t
		}
		records = append(records, rec)
	}
	return records, nil
}

func statusErr(status string) error {
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return domain.ErrNotFound
	case "REQUEST_DENIED":
		return domain.ErrServiceUnavailable
	case "OVER_QUERY_LIMIT":
		return domain.ErrRateLimited
	default:
		return fmt.Errorf("places status %s", status)
	}
}
