// Package service wires resolution, discovery, review analysis and scoring
// into the request-level operations the front ends call.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"menubox/internal/discovery"
	"menubox/internal/domain"
	"menubox/internal/logging"
	"menubox/internal/recommend"
	"menubox/internal/reviews"
)

const (
	// UploadedName names a photo-discovered restaurant with no detected name.
	UploadedName = "Uploaded Menu"
	// UploadedLocation marks identities created from menu photos.
	UploadedLocation = "Uploaded via photo"
	// SourceDatabase labels menus read back by ID.
	SourceDatabase = "database"
	// DefaultHistoryLimit bounds History when no limit is given.
	DefaultHistoryLimit = 10
)

// ListingProvider looks a restaurant up at a review listing provider and
// returns its summary and reviews in one call.
type ListingProvider interface {
	Listing(ctx context.Context, name, location string) (*reviews.Listing, error)
}

// Deps are the collaborators of a Pipeline. Vision may be nil when photo
// discovery is disabled.
type Deps struct {
	Resolver        domain.PlaceResolver
	Reviews         domain.ReviewProvider
	Listings        ListingProvider
	Identities      domain.IdentityStore
	Menus           domain.MenuItemStore
	Recommendations domain.RecommendationStore
	Discovery       *discovery.Orchestrator
	Vision          *discovery.Vision
	Analyzer        *reviews.Analyzer
	Scorer          *recommend.Chain
}

// Options tune a Pipeline.
type Options struct {
	MaxRecommendations int
	ReviewWindow       int
}

// MenuResult is a restaurant with its discovered menu.
type MenuResult struct {
	Restaurant      domain.RestaurantIdentity `json:"restaurant"`
	Items           []domain.MenuItem         `json:"menu_items"`
	Source          string                    `json:"source"`
	ReviewsAnalyzed int                       `json:"reviews_analyzed"`
}

// RecommendRequest asks for a ranked shortlist of one restaurant's menu.
// A nil Preferences is treated as "no preferences set".
type RecommendRequest struct {
	UserID       string
	RestaurantID string
	Preferences  *domain.PreferenceProfile
	MaxItems     int
}

type Pipeline struct {
	deps               Deps
	maxRecommendations int
	reviewWindow       int
	now                func() time.Time
}

func New(deps Deps, opts Options) *Pipeline {
	if opts.MaxRecommendations <= 0 {
		opts.MaxRecommendations = domain.DefaultRecommendations
	}
	return &Pipeline{
		deps:               deps,
		maxRecommendations: domain.ClampRecommendations(opts.MaxRecommendations),
		reviewWindow:       reviews.ClampWindow(opts.ReviewWindow),
		now:                time.Now,
	}
}

// SearchRestaurant resolves name at the map provider, gathers reviews from
// both providers and runs menu discovery for the stored identity.
//
// When discovery fails because every capability is unavailable, the result
// (with source "none") is returned together with the error.
func (p *Pipeline) SearchRestaurant(ctx context.Context, name, location string) (*MenuResult, error) {
	name = strings.TrimSpace(name)
	location = strings.TrimSpace(location)
	if name == "" {
		return nil, errors.New("restaurant name is required")
	}
	var (
		identity *domain.RestaurantIdentity
		mapRevs  []domain.ReviewRecord
		listing  *reviews.Listing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := p.deps.Resolver.Resolve(gctx, name, location)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", name, err)
		}
		identity = id
		revs, err := p.deps.Reviews.FetchReviews(gctx, *id)
		if err != nil {
			logProviderErr(gctx, "reviews", name, err)
			return nil
		}
		mapRevs = revs
		return nil
	})
	g.Go(func() error {
		listing = p.listing(gctx, name, location)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if listing != nil && listing.ID != "" {
		identity.MergeExternalIDs(map[string]string{listing.Provider: listing.ID})
	}
	saved, err := p.deps.Identities.Save(ctx, *identity)
	if err != nil {
		return nil, fmt.Errorf("save restaurant: %w", err)
	}

	all := combine(mapRevs, listing)
	res, err := p.deps.Discovery.Discover(ctx, discovery.Request{
		Identity:    saved,
		Reviews:     all,
		CuisineHint: saved.CuisineType,
	})
	out := &MenuResult{
		Restaurant:      saved,
		Items:           nonNil(res.Items),
		Source:          res.Source,
		ReviewsAnalyzed: len(mapRevs),
	}
	return out, err
}

// UploadMenu extracts a menu from photos and stores it under a new
// restaurant named after the first detected name.
func (p *Pipeline) UploadMenu(ctx context.Context, images []domain.Image) (*MenuResult, error) {
	if p.deps.Vision == nil {
		return nil, fmt.Errorf("menu photos: vision disabled: %w", domain.ErrServiceUnavailable)
	}
	if len(images) == 0 {
		return nil, errors.New("at least one image is required")
	}
	scan, err := p.deps.Vision.Scan(ctx, images)
	if err != nil {
		return nil, err
	}
	name := scan.DetectedName
	if name == "" {
		name = UploadedName
	}
	saved, err := p.deps.Identities.Save(ctx, domain.RestaurantIdentity{
		Name:        name,
		Location:    UploadedLocation,
		ExternalIDs: map[string]string{domain.ProviderUpload: uuid.NewString()},
	})
	if err != nil {
		return nil, fmt.Errorf("save restaurant: %w", err)
	}
	if len(scan.Items) > 0 {
		if err := p.deps.Menus.SaveAll(ctx, saved.ID, scan.Items); err != nil {
			return nil, fmt.Errorf("save menu: %w", err)
		}
	}
	logging.Ctx(ctx).Info().Str("restaurant", name).Int("images", len(images)).Int("items", len(scan.Items)).Msg("menu uploaded")
	return &MenuResult{Restaurant: saved, Items: nonNil(scan.Items), Source: discovery.SourceVision}, nil
}

// GetMenu returns a stored restaurant and its menu.
func (p *Pipeline) GetMenu(ctx context.Context, restaurantID string) (*MenuResult, error) {
	identity, err := p.deps.Identities.FindByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	items, err := p.deps.Menus.ListFor(ctx, identity.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return &MenuResult{Restaurant: *identity, Items: nonNil(items), Source: SourceDatabase}, nil
}

// Recommend ranks the stored menu of a restaurant for a user and appends
// the result, with a snapshot of the preferences used, to the history.
func (p *Pipeline) Recommend(ctx context.Context, req RecommendRequest) (*domain.RecommendationResult, error) {
	identity, err := p.deps.Identities.FindByID(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	items, err := p.deps.Menus.ListFor(ctx, identity.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", identity.Name, domain.ErrNoMenu)
	}

	snapshot := domain.DefaultPreferences()
	var profile *domain.PreferenceProfile
	if req.Preferences != nil {
		snapshot = req.Preferences.Snapshot()
		scoring := snapshot.Snapshot()
		profile = &scoring
	}

	maxItems := req.MaxItems
	if maxItems <= 0 {
		maxItems = p.maxRecommendations
	}
	ranked := p.deps.Scorer.Recommend(ctx, recommend.Input{
		Items:    items,
		Profile:  profile,
		Reviews:  p.reviewContext(ctx, *identity, items),
		MaxItems: maxItems,
	})

	result := domain.RecommendationResult{
		UserID:              req.UserID,
		RestaurantID:        identity.ID,
		Items:               ranked,
		PreferencesSnapshot: snapshot,
		CreatedAt:           p.now().UTC(),
	}
	id, err := p.deps.Recommendations.Append(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("save recommendation: %w", err)
	}
	result.ID = id
	logging.Ctx(ctx).Info().Str("restaurant", identity.Name).Int("items", len(ranked)).Msg("recommendations created")
	return &result, nil
}

// History lists a user's recommendations, newest first.
func (p *Pipeline) History(ctx context.Context, userID string, limit int) ([]domain.RecommendationResult, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	out, err := p.deps.Recommendations.ListFor(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Recommendation returns one stored result. Results owned by another user
// are reported as not found.
func (p *Pipeline) Recommendation(ctx context.Context, userID, id string) (*domain.RecommendationResult, error) {
	rec, err := p.deps.Recommendations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("recommendation %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// reviewContext gathers provider reviews for identity and cross-references
// them with the menu. Photo uploads have no provider presence.
func (p *Pipeline) reviewContext(ctx context.Context, identity domain.RestaurantIdentity, items []domain.MenuItem) *reviews.Context {
	if identity.Location == UploadedLocation {
		return nil
	}
	var (
		mapRevs []domain.ReviewRecord
		listing *reviews.Listing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		revs, err := p.deps.Reviews.FetchReviews(gctx, identity)
		if err != nil {
			logProviderErr(gctx, "reviews", identity.Name, err)
			return nil
		}
		mapRevs = revs
		return nil
	})
	g.Go(func() error {
		listing = p.listing(gctx, identity.Name, identity.Location)
		return nil
	})
	_ = g.Wait()

	all := combine(mapRevs, listing)
	rc := &reviews.Context{
		Rating:  identity.Rating,
		Reviews: reviews.Recent(all, p.reviewWindow),
	}
	if listing != nil {
		summary := listing.Summary
		rc.Summary = &summary
	}
	if len(all) > 0 && p.deps.Analyzer != nil {
		rc.Mentions = p.deps.Analyzer.CrossReference(ctx, all, domain.ItemNames(items))
	}
	if rc.Empty() {
		return nil
	}
	return rc
}

// listing absorbs every listing provider failure.
func (p *Pipeline) listing(ctx context.Context, name, location string) *reviews.Listing {
	if p.deps.Listings == nil {
		return nil
	}
	l, err := p.deps.Listings.Listing(ctx, name, location)
	if err != nil {
		logProviderErr(ctx, "listing", name, err)
		return nil
	}
	return l
}

// logProviderErr logs an absorbed provider failure. Transient failures are
// warnings; a missing listing or an unconfigured provider is routine.
func logProviderErr(ctx context.Context, stage, restaurant string, err error) {
	log := logging.Ctx(ctx)
	ev := log.Debug()
	if domain.IsAbsorbable(err) {
		ev = log.Warn()
	}
	ev.Str("stage", stage).Str("restaurant", restaurant).Err(err).Msg("provider lookup failed")
}

func combine(mapRevs []domain.ReviewRecord, listing *reviews.Listing) []domain.ReviewRecord {
	out := append([]domain.ReviewRecord(nil), mapRevs...)
	if listing != nil {
		out = append(out, listing.Reviews...)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
