package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"menubox/internal/completion"
	"menubox/internal/completion/anthropic"
	"menubox/internal/completion/openai"
	"menubox/internal/config"
	"menubox/internal/discovery"
	"menubox/internal/domain"
	"menubox/internal/logging"
	"menubox/internal/places"
	"menubox/internal/places/google"
	"menubox/internal/places/yelp"
	"menubox/internal/recommend"
	"menubox/internal/reviews"
	"menubox/internal/service"
	"menubox/internal/store/badgerstore"
	"menubox/internal/store/memory"
	"menubox/internal/tui"
)

type stores struct {
	identities      domain.IdentityStore
	menus           domain.MenuItemStore
	recommendations domain.RecommendationStore
	close           func() error
}

func main() {
	_ = godotenv.Load()

	var (
		cfgPath    string
		jsonOut    bool
		name       string
		location   string
		images     string
		userID     string
		prefsPath  string
		recommendN int
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/menubox/config.yaml if not provided)")
	flag.BoolVar(&jsonOut, "json", false, "Run once and print JSON instead of starting the TUI")
	flag.StringVar(&name, "name", "", "Restaurant name (with --json)")
	flag.StringVar(&location, "location", "", "Restaurant location (with --json)")
	flag.StringVar(&images, "images", "", "Comma-separated menu photo paths (with --json)")
	flag.StringVar(&userID, "user", "local", "User ID recorded with recommendations")
	flag.StringVar(&prefsPath, "prefs", "", "Path to a JSON preference profile")
	flag.IntVar(&recommendN, "recommend", 0, "Number of recommendations to produce (with --json; 0 skips)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logOut, closeLog := logOutput(cfg.Log, jsonOut)
	defer closeLog()
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: logOut})

	prefs, err := loadPreferences(prefsPath)
	if err != nil {
		log.Fatalf("failed to load preferences: %v", err)
	}

	llm := completion.NewBreaker(cfg.Completion.Provider, completionClient(cfg.Completion), cfg.Breaker)
	resolver, reviewSource, listings := placeClients(cfg.Places)

	st, err := openStores(cfg.Store)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer func() {
		if err := st.close(); err != nil {
			logging.Error().Err(err).Msg("store close failed")
		}
	}()

	analyzer := reviews.NewAnalyzer(llm, cfg.Pipeline.ReviewWindow)
	var vision *discovery.Vision
	if cfg.Pipeline.VisionEnabled {
		vision = discovery.NewVision(llm)
	}
	svc := service.New(service.Deps{
		Resolver:        resolver,
		Reviews:         reviewSource,
		Listings:        listings,
		Identities:      st.identities,
		Menus:           st.menus,
		Recommendations: st.recommendations,
		Discovery: discovery.NewOrchestrator(st.menus,
			discovery.NewWebSearch(llm),
			discovery.NewReviewMining(analyzer),
		),
		Vision:   vision,
		Analyzer: analyzer,
		Scorer:   recommend.NewChain(recommend.NewSemantic(llm)),
	}, service.Options{
		MaxRecommendations: cfg.Pipeline.MaxRecommendations,
		ReviewWindow:       cfg.Pipeline.ReviewWindow,
	})

	if jsonOut {
		if err := runOnce(svc, name, location, images, userID, prefs, recommendN); err != nil {
			log.Fatal(err)
		}
		return
	}

	m := tui.New(svc, userID, prefs)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

// completionClient picks the configured provider. A provider without an
// API key is replaced by a stand-in that reports itself unavailable.
func completionClient(cfg config.CompletionConfig) completion.Client {
	switch cfg.Provider {
	case "anthropic", "":
		p := cfg.Anthropic
		client, err := anthropic.NewClient(anthropic.Config{
			BaseURL:           p.BaseURL,
			APIKeyEnv:         p.APIKeyEnv,
			Model:             p.Model,
			MaxTokens:         p.MaxTokens,
			Timeout:           p.Timeout(),
			RateLimitWait:     p.RateLimitWait(),
			RequestsPerSecond: p.RequestsPerSecond,
		})
		if err != nil {
			logging.Warn().Str("provider", "anthropic").Err(err).Msg("completion disabled")
			return completion.Unavailable{Reason: "anthropic: " + err.Error()}
		}
		return client
	case "openai":
		p := cfg.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:           p.BaseURL,
			APIKeyEnv:         p.APIKeyEnv,
			Model:             p.Model,
			SearchModel:       p.SearchModel,
			MaxTokens:         p.MaxTokens,
			Timeout:           p.Timeout(),
			RateLimitWait:     p.RateLimitWait(),
			RequestsPerSecond: p.RequestsPerSecond,
		})
		if err != nil {
			logging.Warn().Str("provider", "openai").Err(err).Msg("completion disabled")
			return completion.Unavailable{Reason: "openai: " + err.Error()}
		}
		return client
	case "none":
		return completion.Unavailable{Reason: "completion provider disabled"}
	default:
		log.Fatalf("unknown completion provider: %s", cfg.Provider)
	}
	return nil
}

func placeClients(cfg config.PlacesConfig) (domain.PlaceResolver, domain.ReviewProvider, service.ListingProvider) {
	var (
		resolver     domain.PlaceResolver
		reviewSource domain.ReviewProvider
		listings     service.ListingProvider
	)
	g, err := google.NewClient(google.Config{
		BaseURL:           cfg.Google.BaseURL,
		APIKeyEnv:         cfg.Google.APIKeyEnv,
		Timeout:           cfg.Google.Timeout(),
		RequestsPerSecond: cfg.Google.RequestsPerSecond,
	})
	if err != nil {
		logging.Warn().Str("provider", domain.ProviderGoogle).Err(err).Msg("restaurant lookup disabled")
		u := places.Unavailable{Reason: "google: " + err.Error()}
		resolver, reviewSource = u, u
	} else {
		resolver, reviewSource = g, g
	}

	y, err := yelp.NewClient(yelp.Config{
		BaseURL:           cfg.Yelp.BaseURL,
		APIKeyEnv:         cfg.Yelp.APIKeyEnv,
		Timeout:           cfg.Yelp.Timeout(),
		RequestsPerSecond: cfg.Yelp.RequestsPerSecond,
	})
	if err != nil {
		logging.Warn().Str("provider", domain.ProviderYelp).Err(err).Msg("listing reviews disabled")
		listings = places.Unavailable{Reason: "yelp: " + err.Error()}
	} else {
		listings = y
	}
	return resolver, reviewSource, listings
}

func openStores(cfg config.StoreConfig) (*stores, error) {
	switch cfg.Type {
	case "memory", "":
		m := memory.New()
		return &stores{identities: m.Identities, menus: m.Menus, recommendations: m.Recommendations, close: func() error { return nil }}, nil
	case "badger":
		b, err := badgerstore.Open(cfg.Badger.Path)
		if err != nil {
			return nil, err
		}
		return &stores{identities: b.Identities, menus: b.Menus, recommendations: b.Recommendations, close: b.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store: %s", cfg.Type)
	}
}

// logOutput sends logs to stderr in one-shot mode. The TUI owns the
// terminal, so there logs go to the configured file or nowhere.
func logOutput(cfg config.LogConfig, oneShot bool) (io.Writer, func()) {
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			return f, func() { _ = f.Close() }
		}
		fmt.Fprintf(os.Stderr, "log file %s: %v\n", cfg.File, err)
	}
	if oneShot {
		return os.Stderr, func() {}
	}
	return io.Discard, func() {}
}

func loadPreferences(path string) (*domain.PreferenceProfile, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := domain.DefaultPreferences()
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &p, nil
}

func loadImages(list string) ([]domain.Image, error) {
	var out []domain.Image
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Image{Data: data, MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))})
	}
	return out, nil
}

type onceOutput struct {
	Menu            *service.MenuResult          `json:"menu,omitempty"`
	Recommendations *domain.RecommendationResult `json:"recommendations,omitempty"`
	Warning         string                       `json:"warning,omitempty"`
}

func runOnce(svc *service.Pipeline, name, location, images, userID string, prefs *domain.PreferenceProfile, n int) error {
	ctx := logging.ContextWithNewRequestID(context.Background())
	var (
		out onceOutput
		err error
	)
	if images != "" {
		imgs, ierr := loadImages(images)
		if ierr != nil {
			return ierr
		}
		out.Menu, err = svc.UploadMenu(ctx, imgs)
	} else {
		out.Menu, err = svc.SearchRestaurant(ctx, name, location)
	}
	if err != nil {
		if out.Menu == nil {
			return err
		}
		out.Warning = err.Error()
	}

	if n > 0 && len(out.Menu.Items) > 0 {
		out.Recommendations, err = svc.Recommend(ctx, service.RecommendRequest{
			UserID:       userID,
			RestaurantID: out.Menu.Restaurant.ID,
			Preferences:  prefs,
			MaxItems:     n,
		})
		if err != nil {
			return err
		}
	}

	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}
