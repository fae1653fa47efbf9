// Package badgerstore is the durable implementation of the domain stores on top
// of a single Badger key-value database.
package badgerstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"menubox/internal/domain"
)

const (
	restaurantKeyPrefix     = "restaurant:"
	restaurantExtKeyPrefix  = "restaurant_ext:"
	restaurantNameKeyPrefix = "restaurant_name:"
	menuKeyPrefix           = "menu:"
	recKeyPrefix            = "rec:"
	recUserKeyPrefix        = "rec_user:"

	conflictRetries = 3
)

// Store owns the database and exposes the three domain stores over it.
type Store struct {
	db              *badger.DB
	Identities      *Identities
	Menus           *Menus
	Recommendations *Recommendations
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return New(db), nil
}

// New wraps an already open database.
func New(db *badger.DB) *Store {
	return &Store{
		db:              db,
		Identities:      &Identities{db: db},
		Menus:           &Menus{db: db},
		Recommendations: &Recommendations{db: db},
	}
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func getString(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	val, err := item.ValueCopy(nil)
	return string(val), err
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// update retries fn when a concurrent transaction conflicts with it.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// Identities is a Badger-backed IdentityStore.
type Identities struct {
	db *badger.DB
}

func extKey(provider, key string) string {
	return restaurantExtKeyPrefix + provider + ":" + key
}

func nameKey(r domain.RestaurantIdentity) string {
	return restaurantNameKeyPrefix + domain.NormalizeName(r.Name) + "|" + domain.NormalizeName(r.Location)
}

func (s *Identities) FindByExternalKey(_ context.Context, provider, key string) (*domain.RestaurantIdentity, error) {
	if provider == "" || key == "" {
		return nil, domain.ErrNotFound
	}
	var out domain.RestaurantIdentity
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := getString(txn, extKey(provider, key))
		if err != nil {
			return err
		}
		return getJSON(txn, restaurantKeyPrefix+id, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Identities) FindByID(_ context.Context, id string) (*domain.RestaurantIdentity, error) {
	var out domain.RestaurantIdentity
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, restaurantKeyPrefix+id, &out)
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Save stores identity or extends the external IDs of the stored record for
// the same restaurant.
func (s *Identities) Save(_ context.Context, identity domain.RestaurantIdentity) (domain.RestaurantIdentity, error) {
	var saved domain.RestaurantIdentity
	err := update(s.db, func(txn *badger.Txn) error {
		existingID, err := s.match(txn, identity)
		if err != nil {
			return err
		}
		var rec domain.RestaurantIdentity
		if existingID != "" {
			if err := getJSON(txn, restaurantKeyPrefix+existingID, &rec); err != nil {
				return err
			}
			rec.MergeExternalIDs(identity.ExternalIDs)
		} else {
			rec = identity
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = time.Now().UTC()
			}
			// the name index keeps pointing at the first record with that name
			if _, err := getString(txn, nameKey(rec)); errors.Is(err, domain.ErrNotFound) {
				if err := txn.Set([]byte(nameKey(rec)), []byte(rec.ID)); err != nil {
					return fmt.Errorf("set name index: %w", err)
				}
			} else if err != nil {
				return err
			}
		}
		for provider, key := range rec.ExternalIDs {
			if key == "" {
				continue
			}
			if err := txn.Set([]byte(extKey(provider, key)), []byte(rec.ID)); err != nil {
				return fmt.Errorf("set external index: %w", err)
			}
		}
		if err := setJSON(txn, restaurantKeyPrefix+rec.ID, rec); err != nil {
			return err
		}
		saved = rec
		return nil
	})
	return saved, err
}

// match finds the stored record for the same restaurant: a shared provider
// key first, then normalized name and location.
func (s *Identities) match(txn *badger.Txn, identity domain.RestaurantIdentity) (string, error) {
	for provider, key := range identity.ExternalIDs {
		if key == "" {
			continue
		}
		id, err := getString(txn, extKey(provider, key))
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}
	id, err := getString(txn, nameKey(identity))
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var existing domain.RestaurantIdentity
	if err := getJSON(txn, restaurantKeyPrefix+id, &existing); err != nil {
		return "", err
	}
	if !domain.SameRestaurant(existing, identity) {
		return "", nil
	}
	return id, nil
}

// Menus is a Badger-backed MenuItemStore.
type Menus struct {
	db *badger.DB
}

func (s *Menus) ListFor(_ context.Context, identityID string) ([]domain.MenuItem, error) {
	var items []domain.MenuItem
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, menuKeyPrefix+identityID, &items)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.MenuItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SaveAll stores items unless identityID already has a menu.
func (s *Menus) SaveAll(_ context.Context, identityID string, items []domain.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	return update(s.db, func(txn *badger.Txn) error {
		key := []byte(menuKeyPrefix + identityID)
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get menu: %w", err)
		}
		return setJSON(txn, string(key), items)
	})
}

// Recommendations is a Badger-backed, append-only RecommendationStore.
type Recommendations struct {
	db *badger.DB
}

// userPrefix hex-encodes the user ID so no ID can extend another's prefix.
func userPrefix(userID string) string {
	return recUserKeyPrefix + hex.EncodeToString([]byte(userID)) + ":"
}

// userKey sorts a user's records newest first.
func userKey(r domain.RecommendationResult) string {
	rev := math.MaxInt64 - r.CreatedAt.UnixNano()
	return fmt.Sprintf("%s%019d:%s", userPrefix(r.UserID), rev, r.ID)
}

func (s *Recommendations) Append(_ context.Context, result domain.RecommendationResult) (string, error) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	err := update(s.db, func(txn *badger.Txn) error {
		if err := setJSON(txn, recKeyPrefix+result.ID, result); err != nil {
			return err
		}
		return txn.Set([]byte(userKey(result)), []byte(result.ID))
	})
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

func (s *Recommendations) Get(_ context.Context, id string) (*domain.RecommendationResult, error) {
	var out domain.RecommendationResult
	if err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, recKeyPrefix+id, &out)
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFor returns up to limit results for userID, newest first.
func (s *Recommendations) ListFor(_ context.Context, userID string, limit int) ([]domain.RecommendationResult, error) {
	var out []domain.RecommendationResult
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userPrefix(userID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var r domain.RecommendationResult
			if err := getJSON(txn, recKeyPrefix+string(id), &r); err != nil {
				return err
			}
			if r.UserID != userID {
				continue
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return out, nil
}
