// Package httpclient is the shared outbound HTTP layer for provider clients.
// It paces requests, applies the single wait-and-abandon policy on 429
// responses and maps transport failures onto the domain error taxonomy.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"menubox/internal/domain"
)

// Config configures a Client.
type Config struct {
	Timeout time.Duration
	// RateLimitWait caps the one wait performed after a 429 response.
	RateLimitWait time.Duration
	// RequestsPerSecond paces outbound calls. Zero disables pacing.
	RequestsPerSecond float64
	// MaxRetries bounds retries of 5xx responses and connection errors.
	MaxRetries int
}

// Client wraps http.Client with pacing and error mapping.
type Client struct {
	http          *http.Client
	limiter       *rate.Limiter
	rateLimitWait time.Duration
	maxRetries    int
}

// New creates a Client.
func New(cfg Config) *Client {
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	c := &Client{
		http:          &http.Client{Timeout: t},
		rateLimitWait: cfg.RateLimitWait,
		maxRetries:    cfg.MaxRetries,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// StatusError is returned for non-2xx responses that do not map to a sentinel.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.Body)
}

// Do sends req and returns the response body of a 2xx response.
// Server errors and connection failures are retried with backoff when the
// request body can be replayed; 429 is never retried.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		payload, retry, err := c.send(req)
		if err == nil || !retry || attempt >= c.maxRetries || ctx.Err() != nil {
			return payload, err
		}
		if req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, err
			}
			req.Body = body
		} else if req.Body != nil && req.Body != http.NoBody {
			return nil, err
		}
		if !sleep(ctx, retryDelay(attempt)) {
			return nil, err
		}
	}
}

func (c *Client) send(req *http.Request) ([]byte, bool, error) {
	ctx := req.Context()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, false, mapTransportErr(err)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		mapped := mapTransportErr(err)
		return nil, !errors.Is(mapped, domain.ErrTimeout), mapped
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, mapTransportErr(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.waitOnce(ctx, resp.Header.Get("Retry-After"))
		return nil, false, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, domain.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("%s %s: %s: %w", req.Method, req.URL.Path, resp.Status, domain.ErrServiceUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, domain.ErrNotFound)
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return nil, false, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, domain.ErrTimeout)
	case resp.StatusCode >= 500:
		return nil, true, &StatusError{Status: resp.StatusCode, Body: truncate(string(payload), 200)}
	case resp.StatusCode >= 300:
		return nil, false, &StatusError{Status: resp.StatusCode, Body: truncate(string(payload), 200)}
	}
	return payload, false, nil
}

// PostJSON marshals body, posts it to url with headers and decodes into out.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.decode(req, out)
}

// GetJSON issues a GET to url with headers and decodes into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.decode(req, out)
}

func (c *Client) decode(req *http.Request, out any) error {
	payload, err := c.Do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// waitOnce sleeps for Retry-After (seconds) capped at rateLimitWait, or
// rateLimitWait when the header is absent.
func (c *Client) waitOnce(ctx context.Context, retryAfter string) {
	d := c.rateLimitWait
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		if ra := time.Duration(secs) * time.Second; ra < d {
			d = ra
		}
	}
	sleep(ctx, d)
}

// sleep waits for d or until ctx is done. It reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func mapTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, domain.ErrTimeout)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%v: %w", err, domain.ErrTimeout)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
