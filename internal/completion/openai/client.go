// Package openai is a chat completions client for OpenAI-compatible APIs.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"menubox/internal/domain"
	"menubox/internal/httpclient"
)

// Client is an OpenAI-compatible chat completions client.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	searchModel string
	maxTokens   int
	http        *httpclient.Client
}

// Config configures the OpenAI-compatible chat client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	// SearchModel serves CompleteWithSearch. It must accept web_search_options.
	SearchModel       string
	MaxTokens         int
	Timeout           time.Duration
	RateLimitWait     time.Duration
	RequestsPerSecond float64
}

// NewClient creates a new chat client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.SearchModel == "" {
		cfg.SearchModel = "gpt-4o-mini-search-preview"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      key,
		model:       cfg.Model,
		searchModel: cfg.SearchModel,
		maxTokens:   cfg.MaxTokens,
		http: httpclient.New(httpclient.Config{
			Timeout:           cfg.Timeout,
			RateLimitWait:     cfg.RateLimitWait,
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxRetries:        2,
		}),
	}, nil
}

// Name returns the identifier of this provider.
func (c *Client) Name() string { return "openai" }

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	MaxTokens        int           `json:"max_tokens"`
	Messages         []chatMessage `json:"messages"`
	WebSearchOptions *struct{}     `json:"web_search_options,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete generates text for prompt.
func (c *Client) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	return c.send(ctx, chatRequest{
		Model:     c.model,
		MaxTokens: maxOutputTokens,
		Messages:  []chatMessage{{Role: "user", Content: []contentPart{{Type: "text", Text: prompt}}}},
	})
}

// CompleteWithImage sends the image as a data URL followed by prompt.
func (c *Client) CompleteWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	url := "data:" + domain.ImageMediaType(mimeType) + ";base64," + base64.StdEncoding.EncodeToString(image)
	return c.send(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{{Role: "user", Content: []contentPart{
			{Type: "image_url", ImageURL: &imageURL{URL: url}},
			{Type: "text", Text: prompt},
		}}},
	})
}

// CompleteWithSearch answers prompt with the search-enabled model.
func (c *Client) CompleteWithSearch(ctx context.Context, prompt string) (string, error) {
	return c.send(ctx, chatRequest{
		Model:            c.searchModel,
		Messages:         []chatMessage{{Role: "user", Content: []contentPart{{Type: "text", Text: prompt}}}},
		WebSearchOptions: &struct{}{},
	})
}

func (c *Client) send(ctx context.Context, body chatRequest) (string, error) {
	if body.MaxTokens <= 0 {
		body.MaxTokens = c.maxTokens
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	var out chatResponse
	if err := c.http.PostJSON(ctx, c.baseURL+"/chat/completions", headers, body, &out); err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("openai chat: no completion returned")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
