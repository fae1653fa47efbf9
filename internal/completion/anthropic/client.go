// Package anthropic is a Messages API client for text, image and web-search
// completion.
package anthropic

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

const apiVersion = "2023-06-01"

// Client is a Messages API client implementing the text, vision and web
// search completion interfaces.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	http      *httpclient.Client
}

// Config configures the Anthropic client.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Model             string
	MaxTokens         int
	Timeout           time.Duration
	RateLimitWait     time.Duration
	RequestsPerSecond float64
}

// NewClient creates a new Messages API client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    key,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		http: httpclient.New(httpclient.Config{
			Timeout:           cfg.Timeout,
			RateLimitWait:     cfg.RateLimitWait,
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxRetries:        2,
		}),
	}, nil
}

// Name returns the identifier of this provider.
func (c *Client) Name() string { return "anthropic" }

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type tool struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
	Tools     []tool    `json:"tools,omitempty"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete generates text for prompt.
func (c *Client) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	return c.send(ctx, request{
		MaxTokens: maxOutputTokens,
		Messages:  []message{{Role: "user", Content: []contentBlock{{Type: "text", Text: prompt}}}},
	})
}

// CompleteWithImage sends image ahead of prompt in a single user turn.
func (c *Client) CompleteWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return c.send(ctx, request{
		Messages: []message{{Role: "user", Content: []contentBlock{
			{Type: "image", Source: &imageSource{
				Type:      "base64",
				MediaType: domain.ImageMediaType(mimeType),
				Data:      base64.StdEncoding.EncodeToString(image),
			}},
			{Type: "text", Text: prompt},
		}}},
	})
}

// CompleteWithSearch lets the model run web searches while answering prompt.
func (c *Client) CompleteWithSearch(ctx context.Context, prompt string) (string, error) {
	return c.send(ctx, request{
		Messages: []message{{Role: "user", Content: []contentBlock{{Type: "text", Text: prompt}}}},
		Tools:    []tool{{Type: "web_search_20250305", Name: "web_search"}},
	})
}

func (c *Client) send(ctx context.Context, body request) (string, error) {
	body.Model = c.model
	if body.MaxTokens <= 0 {
		body.MaxTokens = c.maxTokens
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": apiVersion,
	}
	var out response
	if err := c.http.PostJSON(ctx, c.baseURL+"/messages", headers, body, &out); err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	// Search answers interleave tool blocks with several text blocks.
	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic messages: no text returned")
	}
	return strings.TrimSpace(sb.String()), nil
}
