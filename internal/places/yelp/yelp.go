// Package yelp fetches business listings and reviews from the Yelp Fusion API.
package yelp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"menubox/internal/domain"
	"menubox/internal/httpclient"
	"menubox/internal/reviews"
)

const timeLayout = "2006-01-02 15:04:05"

// Client is a Yelp Fusion client for business lookup and reviews.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
}

// Config configures the Yelp client.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// NewClient creates a Yelp client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.yelp.com/v3"
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

type business struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Price       string  `json:"price"`
	Categories  []struct {
		Title string `json:"title"`
	} `json:"categories"`
}

type reviewsResponse struct {
	Reviews []struct {
		Text        string `json:"text"`
		Rating      int    `json:"rating"`
		TimeCreated string `json:"time_created"`
		User        struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"reviews"`
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// Listing looks the business up by name and location and fetches its reviews.
func (c *Client) Listing(ctx context.Context, name, location string) (*reviews.Listing, error) {
	b, err := c.search(ctx, name, location)
	if err != nil {
		return nil, err
	}
	recs, err := c.reviews(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	cats := make([]string, 0, len(b.Categories))
	for _, cat := range b.Categories {
		if cat.Title != "" {
			cats = append(cats, cat.Title)
		}
	}
	return &reviews.Listing{
		Provider: domain.ProviderYelp,
		ID:       b.ID,
		Summary:  reviews.BusinessSummary{Rating: b.Rating, ReviewCount: b.ReviewCount, Price: b.Price, Categories: cats},
		Reviews:  recs,
	}, nil
}

// FetchReviews returns up to three reviews for identity, searching for the
// business when identity carries no Yelp ID.
func (c *Client) FetchReviews(ctx context.Context, identity domain.RestaurantIdentity) ([]domain.ReviewRecord, error) {
	id := identity.ExternalIDs[domain.ProviderYelp]
	if id == "" {
		b, err := c.search(ctx, identity.Name, identity.Location)
		if err != nil {
			return nil, err
		}
		id = b.ID
	}
	return c.reviews(ctx, id)
}

func (c *Client) search(ctx context.Context, name, location string) (*business, error) {
	params := url.Values{}
	params.Set("term", name)
	params.Set("location", location)
	params.Set("categories", "restaurants,food")
	params.Set("limit", "1")

	var out struct {
		Businesses []business `json:"businesses"`
	}
	if err := c.http.GetJSON(ctx, c.baseURL+"/businesses/search?"+params.Encode(), c.headers(), &out); err != nil {
		return nil, fmt.Errorf("yelp search: %w", err)
	}
	if len(out.Businesses) == 0 {
		return nil, fmt.Errorf("yelp search %q: %w", name, domain.ErrNotFound)
	}
	return &out.Businesses[0], nil
}

func (c *Client) reviews(ctx context.Context, businessID string) ([]domain.ReviewRecord, error) {
	params := url.Values{}
	params.Set("limit", "3")
	params.Set("sort_by", "yelp_sort")

	var out reviewsResponse
	u := c.baseURL + "/businesses/" + url.PathEscape(businessID) + "/reviews?" + params.Encode()
	if err := c.http.GetJSON(ctx, u, c.headers(), &out); err != nil {
		return nil, fmt.Errorf("yelp reviews: %w", err)
	}
	recs := make([]domain.ReviewRecord, 0, len(out.Reviews))
	for _, r := range out.Reviews {
		rec := domain.ReviewRecord{Text: r.Text, Rating: r.Rating, Author: r.User.Name}
		if ts, err := time.Parse(timeLayout, r.TimeCreated); err == nil {
			ts = ts.UTC()
			rec.SourceTimestamp = &ts
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
