package anthropic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"menubox/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_ANTHROPIC_KEY", "secret")
	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_ANTHROPIC_KEY", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_MISSING", "")
	if _, err := NewClient(Config{APIKeyEnv: "TEST_ANTHROPIC_MISSING"}); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestCompleteSendsHeadersAndReturnsText(t *testing.T) {
	var got request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":" [] "}]}`))
	})
	out, err := c.Complete(context.Background(), "hello", 1024)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "[]" {
		t.Errorf("out = %q", out)
	}
	if got.MaxTokens != 1024 || got.Model == "" || len(got.Tools) != 0 {
		t.Errorf("request = %+v", got)
	}
}

func TestCompleteWithSearchConcatenatesTextBlocks(t *testing.T) {
	var got request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"content":[
			{"type":"text","text":"Here is [{\"name\":"},
			{"type":"server_tool_use","text":""},
			{"type":"text","text":"\"Tacos\"}]"}
		]}`))
	})
	out, err := c.CompleteWithSearch(context.Background(), "find menu")
	if err != nil {
		t.Fatalf("CompleteWithSearch() error = %v", err)
	}
	if out != `Here is [{"name":"Tacos"}]` {
		t.Errorf("out = %q", out)
	}
	if len(got.Tools) != 1 || got.Tools[0].Type != "web_search_20250305" {
		t.Errorf("tools = %+v", got.Tools)
	}
	if got.MaxTokens != 4096 {
		t.Errorf("max tokens = %d", got.MaxTokens)
	}
}

func TestCompleteWithImageEncodesImage(t *testing.T) {
	var got request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{}"}]}`))
	})
	if _, err := c.CompleteWithImage(context.Background(), "read", []byte("abc"), "image/jpg"); err != nil {
		t.Fatal(err)
	}
	blocks := got.Messages[0].Content
	if len(blocks) != 2 || blocks[0].Source == nil {
		t.Fatalf("blocks = %+v", blocks)
	}
	if blocks[0].Source.MediaType != "image/jpeg" || blocks[0].Source.Data != "YWJj" {
		t.Errorf("source = %+v", blocks[0].Source)
	}
}

func TestUnauthorizedIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Complete(context.Background(), "hello", 10)
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("err = %v", err)
	}
}
