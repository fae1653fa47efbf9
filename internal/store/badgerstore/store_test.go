package badgerstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"menubox/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIdentitiesSaveAndFind(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.Identities.Save(ctx, domain.RestaurantIdentity{Name: "Pho 1", Location: "Seattle", ExternalIDs: map[string]string{"google": "g1"}})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == "" {
		t.Fatal("expected id")
	}

	// same google key, different spelling
	second, err := s.Identities.Save(ctx, domain.RestaurantIdentity{Name: "PHO ONE", ExternalIDs: map[string]string{"google": "g1", "yelp": "y1"}})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID || second.Name != "Pho 1" || second.ExternalIDs["yelp"] != "y1" {
		t.Fatalf("second = %+v", second)
	}

	// same name and location, no shared key
	third, err := s.Identities.Save(ctx, domain.RestaurantIdentity{Name: "pho 1", Location: " seattle"})
	if err != nil {
		t.Fatal(err)
	}
	if third.ID != first.ID {
		t.Fatalf("third id = %s, want %s", third.ID, first.ID)
	}

	got, err := s.Identities.FindByExternalKey(ctx, "yelp", "y1")
	if err != nil || got.ID != first.ID {
		t.Fatalf("FindByExternalKey = %+v, %v", got, err)
	}
	if _, err := s.Identities.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestMenusCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	price := 9.5
	if err := s.Menus.SaveAll(ctx, "r1", []domain.MenuItem{{Name: "Pho", Price: &price, Category: "Soup"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Menus.SaveAll(ctx, "r1", []domain.MenuItem{{Name: "Other"}}); err != nil {
		t.Fatal(err)
	}
	items, err := s.Menus.ListFor(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != "Pho" || *items[0].Price != 9.5 {
		t.Fatalf("items = %+v", items)
	}
	empty, err := s.Menus.ListFor(ctx, "r2")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty = %v, %v", empty, err)
	}
}

func TestRecommendationsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if _, err := s.Recommendations.Append(ctx, domain.RecommendationResult{
			ID:        id,
			UserID:    "u1",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Items:     []domain.RecommendedItem{{ItemName: "Pho", Score: 90}},
		}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Recommendations.Append(ctx, domain.RecommendationResult{ID: "z", UserID: "u10", CreatedAt: base}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recommendations.ListFor(ctx, "u1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("got %+v", got)
	}
	all, _ := s.Recommendations.ListFor(ctx, "u1", 0)
	if len(all) != 3 {
		t.Fatalf("all = %d", len(all))
	}

	rec, err := s.Recommendations.Get(ctx, "a")
	if err != nil || rec.Items[0].ItemName != "Pho" {
		t.Fatalf("Get = %+v, %v", rec, err)
	}
}

func TestRecommendationsListForExactUser(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, uid := range []string{"alice", "alice:evil", "alice:"} {
		if _, err := s.Recommendations.Append(ctx, domain.RecommendationResult{
			ID:        uid + "-rec",
			UserID:    uid,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recommendations.ListFor(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].UserID != "alice" {
		t.Fatalf("ListFor(alice) = %+v", got)
	}
	evil, err := s.Recommendations.ListFor(ctx, "alice:evil", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(evil) != 1 || evil[0].UserID != "alice:evil" {
		t.Fatalf("ListFor(alice:evil) = %+v", evil)
	}
}

func TestIdentitiesNameIndexKeepsFirstRecord(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.Identities.Save(ctx, domain.RestaurantIdentity{Name: "Uploaded Menu", Location: "Uploaded via photo", ExternalIDs: map[string]string{domain.ProviderUpload: "u1"}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Identities.Save(ctx, domain.RestaurantIdentity{Name: "Uploaded Menu", Location: "Uploaded via photo", ExternalIDs: map[string]string{domain.ProviderUpload: "u2"}})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatal("conflicting upload keys were merged")
	}

	// a keyless save matches the first record, as the memory store does
	third, err := s.Identities.Save(ctx, domain.RestaurantIdentity{Name: "uploaded menu", Location: "uploaded via photo"})
	if err != nil {
		t.Fatal(err)
	}
	if third.ID != first.ID {
		t.Fatalf("third id = %s, want %s", third.ID, first.ID)
	}
}
