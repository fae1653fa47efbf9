package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"menubox/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_GOOGLE_KEY", "gkey")
	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_GOOGLE_KEY", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestResolve(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/textsearch/json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("query"); q != "Luigi's Boston restaurant" {
			t.Errorf("query = %q", q)
		}
		if r.URL.Query().Get("key") != "gkey" {
			t.Error("missing key")
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[
			{"place_id":"p1","name":"Luigi's Trattoria","formatted_address":"1 Main St, Boston","rating":4.6,"price_level":3,"types":["restaurant","food"]},
			{"place_id":"p2","name":"Other"}]}`))
	})
	id, err := c.Resolve(context.Background(), "Luigi's", "Boston")
	if err != nil {
		t.Fatal(err)
	}
	if id.ExternalIDs[domain.ProviderGoogle] != "p1" || id.Name != "Luigi's Trattoria" || id.Location != "1 Main St, Boston" {
		t.Errorf("identity = %+v", id)
	}
	if id.PriceRange != "$$$" || id.CuisineType != "Restaurant" || id.Rating != 4.6 {
		t.Errorf("identity = %+v", id)
	}
}

func TestResolveStatuses(t *testing.T) {
	tests := map[string]error{
		"ZERO_RESULTS":     domain.ErrNotFound,
		"REQUEST_DENIED":   domain.ErrServiceUnavailable,
		"OVER_QUERY_LIMIT": domain.ErrRateLimited,
	}
	for status, want := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"` + status + `","results":[]}`))
		})
		if _, err := c.Resolve(context.Background(), "x", ""); !errors.Is(err, want) {
			t.Errorf("%s: err = %v, want %v", status, err, want)
		}
	}
}

func TestFetchReviews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") != "p1" {
			t.Errorf("place_id = %q", r.URL.Query().Get("place_id"))
		}
		_, _ = w.Write([]byte(`{"status":"OK","result":{"reviews":[
			{"author_name":"Ana","rating":5,"text":"Great gnocchi","time":1700000000},
			{"author_name":"Bo","rating":2,"text":"Slow"}]}}`))
	})
	got, err := c.FetchReviews(context.Background(), domain.RestaurantIdentity{ExternalIDs: map[string]string{"google": "p1"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Text != "Great gnocchi" || got[0].SourceTimestamp == nil || got[1].SourceTimestamp != nil {
		t.Fatalf("reviews = %+v", got)
	}

	none, err := c.FetchReviews(context.Background(), domain.RestaurantIdentity{Name: "no id"})
	if err != nil || none != nil {
		t.Fatalf("without place id: %v %v", none, err)
	}
}

func TestCuisineAndPrice(t *testing.T) {
	if got := CuisineType([]string{"meal_takeaway", "thai_restaurant"}, "Bangkok House"); got != "Thai" {
		t.Errorf("types cuisine = %q", got)
	}
	if got := CuisineType([]string{"restaurant"}, "Joe's Pizza"); got != "Italian" {
		t.Errorf("name cuisine = %q", got)
	}
	zero, four, odd := 0, 4, 9
	for _, tt := range []struct {
		level *int
		want  string
	}{{nil, "$$"}, {&zero, "$"}, {&four, "$$$$"}, {&odd, "$$"}} {
		if got := PriceRange(tt.level); got != tt.want {
			t.Errorf("PriceRange = %q, want %q", got, tt.want)
		}
	}
}
