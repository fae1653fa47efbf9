package completion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"

	"menubox/internal/config"
	"menubox/internal/discovery"
	"menubox/internal/domain"
	"menubox/internal/store/memory"
)

type flakyClient struct {
	calls int
	err   error
}

func (f *flakyClient) Complete(context.Context, string, int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "ok", nil
}

func (f *flakyClient) CompleteWithImage(ctx context.Context, p string, _ []byte, _ string) (string, error) {
	return f.Complete(ctx, p, 0)
}

func (f *flakyClient) CompleteWithSearch(ctx context.Context, p string) (string, error) {
	return f.Complete(ctx, p, 0)
}

func TestBreakerOpensAndFailsFast(t *testing.T) {
	next := &flakyClient{err: errors.New("boom")}
	b := NewBreaker("test", next, config.BreakerConfig{MaxRequests: 1, IntervalSecs: 60, TimeoutSecs: 60, MinRequests: 2, FailureRatio: 0.5})

	for i := 0; i < 2; i++ {
		if _, err := b.Complete(context.Background(), "p", 10); err == nil {
			t.Fatal("expected failure")
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	_, err := b.CompleteWithSearch(context.Background(), "p")
	if !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if errors.Is(err, domain.ErrServiceUnavailable) || !domain.IsAbsorbable(err) {
		t.Fatalf("open circuit must be absorbable, got %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("calls = %d, want 2", next.calls)
	}
}

func TestBreakerPassesThrough(t *testing.T) {
	next := &flakyClient{}
	b := NewBreaker("test", next, config.BreakerConfig{})
	out, err := b.CompleteWithImage(context.Background(), "p", []byte{1}, "image/png")
	if err != nil || out != "ok" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestUnavailable(t *testing.T) {
	var c Client = Unavailable{Reason: "no key"}
	if _, err := c.Complete(context.Background(), "p", 1); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestOpenCircuitDoesNotReportUnavailable(t *testing.T) {
	ctx := context.Background()
	next := &flakyClient{err: fmt.Errorf("messages: %w", domain.ErrTimeout)}
	b := NewBreaker("anthropic", next, config.BreakerConfig{})
	o := discovery.NewOrchestrator(memory.NewMenus(), discovery.NewWebSearch(b))
	req := discovery.Request{Identity: domain.RestaurantIdentity{ID: "r1", Name: "Luigi's"}}

	for i := 0; i < 15; i++ {
		res, err := o.Discover(ctx, req)
		if err != nil {
			t.Fatalf("run %d: err = %v, want nil", i, err)
		}
		if res.Source != discovery.SourceNone {
			t.Fatalf("run %d: source = %q", i, res.Source)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
}
