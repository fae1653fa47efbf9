// Package memory holds process-local implementations of the domain stores.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"menubox/internal/domain"
)

// Store bundles the three in-memory stores.
type Store struct {
	Identities      *Identities
	Menus           *Menus
	Recommendations *Recommendations
}

func New() *Store {
	return &Store{
		Identities:      NewIdentities(),
		Menus:           NewMenus(),
		Recommendations: NewRecommendations(),
	}
}

// Identities is an in-memory IdentityStore.
type Identities struct {
	mu      sync.RWMutex
	records []domain.RestaurantIdentity
}

func NewIdentities() *Identities { return &Identities{} }

func (s *Identities) FindByExternalKey(_ context.Context, provider, key string) (*domain.RestaurantIdentity, error) {
	if provider == "" || key == "" {
		return nil, domain.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ExternalIDs[provider] == key {
			out := copyIdentity(r)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Identities) FindByID(_ context.Context, id string) (*domain.RestaurantIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			out := copyIdentity(r)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Identities) Save(_ context.Context, identity domain.RestaurantIdentity) (domain.RestaurantIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if domain.SameRestaurant(s.records[i], identity) {
			s.records[i].MergeExternalIDs(identity.ExternalIDs)
			return copyIdentity(s.records[i]), nil
		}
	}
	rec := copyIdentity(identity)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, rec)
	return copyIdentity(rec), nil
}

func copyIdentity(r domain.RestaurantIdentity) domain.RestaurantIdentity {
	if r.ExternalIDs != nil {
		ids := make(map[string]string, len(r.ExternalIDs))
		for k, v := range r.ExternalIDs {
			ids[k] = v
		}
		r.ExternalIDs = ids
	}
	return r
}

// Menus is an in-memory MenuItemStore.
type Menus struct {
	mu    sync.RWMutex
	items map[string][]domain.MenuItem
}

func NewMenus() *Menus { return &Menus{items: make(map[string][]domain.MenuItem)} }

func (s *Menus) ListFor(_ context.Context, identityID string) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyItems(s.items[identityID]), nil
}

// SaveAll stores items unless identityID already has a menu.
func (s *Menus) SaveAll(_ context.Context, identityID string, items []domain.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items[identityID]) > 0 {
		return nil
	}
	s.items[identityID] = copyItems(items)
	return nil
}

func copyItems(in []domain.MenuItem) []domain.MenuItem {
	out := make([]domain.MenuItem, len(in))
	for i, it := range in {
		if it.Price != nil {
			p := *it.Price
			it.Price = &p
		}
		out[i] = it
	}
	return out
}

// Recommendations is an in-memory, append-only RecommendationStore.
type Recommendations struct {
	mu      sync.RWMutex
	records []domain.RecommendationResult
}

func NewRecommendations() *Recommendations { return &Recommendations{} }

func (s *Recommendations) Append(_ context.Context, result domain.RecommendationResult) (string, error) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	result = copyResult(result)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, result)
	return result.ID, nil
}

func (s *Recommendations) Get(_ context.Context, id string) (*domain.RecommendationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			out := copyResult(r)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListFor returns up to limit results for userID, newest first.
func (s *Recommendations) ListFor(_ context.Context, userID string, limit int) ([]domain.RecommendationResult, error) {
	s.mu.RLock()
	var out []domain.RecommendationResult
	// walk backwards so equal timestamps keep newest-appended first
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID == userID {
			out = append(out, copyResult(s.records[i]))
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyResult(r domain.RecommendationResult) domain.RecommendationResult {
	r.Items = append([]domain.RecommendedItem(nil), r.Items...)
	r.PreferencesSnapshot = r.PreferencesSnapshot.Snapshot()
	return r
}
