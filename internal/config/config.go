package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// ProviderConfig holds connection details for a completion provider.
type ProviderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	SearchModel       string  `yaml:"search_model,omitempty"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxTokens         int     `yaml:"max_tokens"`
	RateLimitWaitSecs int     `yaml:"rate_limit_wait_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// CompletionConfig selects the text/vision/search completion provider.
type CompletionConfig struct {
	Provider  string          `yaml:"provider"`
	Anthropic *ProviderConfig `yaml:"anthropic,omitempty"`
	OpenAI    *ProviderConfig `yaml:"openai,omitempty"`
}

// BreakerConfig tunes the circuit breaker around completion calls.
type BreakerConfig struct {
	MaxRequests  uint32  `yaml:"max_requests"`
	IntervalSecs int     `yaml:"interval_secs"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio"`
}

// PlaceProviderConfig holds connection details for a map/review provider.
type PlaceProviderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// PlacesConfig configures the restaurant lookup and review providers.
type PlacesConfig struct {
	Google PlaceProviderConfig `yaml:"google"`
	Yelp   PlaceProviderConfig `yaml:"yelp"`
}

// BadgerConfig configures the on-disk store.
type BadgerConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects the persistence implementation.
type StoreConfig struct {
	Type   string        `yaml:"type"`
	Badger *BadgerConfig `yaml:"badger,omitempty"`
}

// PipelineConfig tunes request-level behaviour.
type PipelineConfig struct {
	MaxRecommendations int  `yaml:"max_recommendations"`
	ReviewWindow       int  `yaml:"review_window"`
	VisionEnabled      bool `yaml:"vision_enabled"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log        LogConfig        `yaml:"log"`
	Completion CompletionConfig `yaml:"completion"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	Places     PlacesConfig     `yaml:"places"`
	Store      StoreConfig      `yaml:"store"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
}

// Timeout converts TimeoutSecs into a duration.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// RateLimitWait converts RateLimitWaitSecs into a duration.
func (p ProviderConfig) RateLimitWait() time.Duration {
	return time.Duration(p.RateLimitWaitSecs) * time.Second
}

// Timeout converts TimeoutSecs into a duration.
func (p PlaceProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/menubox/config.yaml.
// If neither exists, it writes defaults to ~/.config/menubox/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "menubox", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Log:        LogConfig{Level: "info", Format: "json"},
		Completion: CompletionConfig{Provider: "anthropic"},
		Store:      StoreConfig{Type: "memory"},
		Pipeline:   PipelineConfig{VisionEnabled: true},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	switch cfg.Completion.Provider {
	case "anthropic", "":
		if cfg.Completion.Anthropic == nil {
			cfg.Completion.Anthropic = &ProviderConfig{}
		}
		providerDefaults(cfg.Completion.Anthropic, "https://api.anthropic.com/v1", "ANTHROPIC_API_KEY", "claude-sonnet-4-20250514")
	case "openai":
		if cfg.Completion.OpenAI == nil {
			cfg.Completion.OpenAI = &ProviderConfig{}
		}
		providerDefaults(cfg.Completion.OpenAI, "https://api.openai.com/v1", "OPENAI_API_KEY", "gpt-4o-mini")
	}

	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker.MaxRequests = 3
	}
	if cfg.Breaker.IntervalSecs == 0 {
		cfg.Breaker.IntervalSecs = 60
	}
	if cfg.Breaker.TimeoutSecs == 0 {
		cfg.Breaker.TimeoutSecs = 120
	}
	if cfg.Breaker.MinRequests == 0 {
		cfg.Breaker.MinRequests = 10
	}
	if cfg.Breaker.FailureRatio == 0 {
		cfg.Breaker.FailureRatio = 0.6
	}

	placeDefaults(&cfg.Places.Google, "https://maps.googleapis.com/maps/api/place", "GOOGLE_PLACES_API_KEY")
	placeDefaults(&cfg.Places.Yelp, "https://api.yelp.com/v3", "YELP_API_KEY")

	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.Type == "badger" {
		if cfg.Store.Badger == nil {
			cfg.Store.Badger = &BadgerConfig{}
		}
		if cfg.Store.Badger.Path == "" {
			cfg.Store.Badger.Path = "menubox-data"
		}
	}

	if cfg.Pipeline.MaxRecommendations == 0 {
		cfg.Pipeline.MaxRecommendations = 5
	}
	// analysis never looks past the 10 most recent reviews
	if cfg.Pipeline.ReviewWindow <= 0 || cfg.Pipeline.ReviewWindow > 10 {
		cfg.Pipeline.ReviewWindow = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func providerDefaults(p *ProviderConfig, baseURL, keyEnv, model string) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = keyEnv
	}
	if p.Model == "" {
		p.Model = model
	}
	if p.TimeoutSecs == 0 {
		p.TimeoutSecs = 60
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = 4096
	}
	if p.RateLimitWaitSecs == 0 {
		p.RateLimitWaitSecs = 5
	}
	if p.RequestsPerSecond == 0 {
		p.RequestsPerSecond = 2
	}
}

func placeDefaults(p *PlaceProviderConfig, baseURL, keyEnv string) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = keyEnv
	}
	if p.TimeoutSecs == 0 {
		p.TimeoutSecs = 10
	}
	if p.RequestsPerSecond == 0 {
		p.RequestsPerSecond = 5
	}
}
