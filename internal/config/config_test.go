package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Completion.Provider != "anthropic" {
		t.Errorf("provider = %q", cfg.Completion.Provider)
	}
	if cfg.Completion.Anthropic == nil || cfg.Completion.Anthropic.APIKeyEnv != "ANTHROPIC_API_KEY" {
		t.Fatalf("anthropic defaults not applied: %+v", cfg.Completion.Anthropic)
	}
	if cfg.Pipeline.MaxRecommendations != 5 || cfg.Pipeline.ReviewWindow != 10 {
		t.Errorf("pipeline defaults = %+v", cfg.Pipeline)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("store type = %q", cfg.Store.Type)
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
completion:
  provider: openai
  openai:
    model: my-model
store:
  type: badger
pipeline:
  max_recommendations: 3
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Completion.OpenAI.Model != "my-model" {
		t.Errorf("model = %q", cfg.Completion.OpenAI.Model)
	}
	if cfg.Completion.OpenAI.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("base url = %q", cfg.Completion.OpenAI.BaseURL)
	}
	if cfg.Store.Badger == nil || cfg.Store.Badger.Path == "" {
		t.Errorf("badger defaults missing: %+v", cfg.Store.Badger)
	}
	if cfg.Pipeline.MaxRecommendations != 3 {
		t.Errorf("max recommendations = %d", cfg.Pipeline.MaxRecommendations)
	}
	if cfg.Places.Yelp.APIKeyEnv != "YELP_API_KEY" {
		t.Errorf("yelp key env = %q", cfg.Places.Yelp.APIKeyEnv)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Log.Level = "debug"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Log.Level != "debug" {
		t.Errorf("level = %q", got.Log.Level)
	}
}

func TestReviewWindowIsCapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  review_window: 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pipeline.ReviewWindow != 10 {
		t.Fatalf("review window = %d, want 10", cfg.Pipeline.ReviewWindow)
	}
}
