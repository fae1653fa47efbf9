// Package completion holds the provider-independent layer around text,
// vision and web-search completion clients.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"menubox/internal/config"
	"menubox/internal/domain"
	"menubox/internal/logging"
)

// Client is the full capability set a provider implements.
type Client interface {
	domain.TextCompleter
	domain.VisionCompleter
	domain.WebSearchCompleter
}

// Breaker wraps a Client with a circuit breaker. While the circuit is open
// every call fails fast with domain.ErrCircuitOpen.
type Breaker struct {
	next Client
	cb   *gobreaker.CircuitBreaker[string]
	name string
}

// NewBreaker wraps next. A zero cfg takes the config package defaults.
func NewBreaker(name string, next Client, cfg config.BreakerConfig) *Breaker {
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 10
	}
	if cfg.FailureRatio == 0 {
		cfg.FailureRatio = 0.6
	}
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.IntervalSecs) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).Msg("opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state transition")
		},
		// Caller cancellation says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{next: next, cb: cb, name: name}
}

// State reports the current circuit state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) execute(fn func() (string, error)) (string, error) {
	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%s: %v: %w", b.name, err, domain.ErrCircuitOpen)
	}
	return out, err
}

func (b *Breaker) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	return b.execute(func() (string, error) { return b.next.Complete(ctx, prompt, maxOutputTokens) })
}

func (b *Breaker) CompleteWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return b.execute(func() (string, error) { return b.next.CompleteWithImage(ctx, prompt, image, mimeType) })
}

func (b *Breaker) CompleteWithSearch(ctx context.Context, prompt string) (string, error) {
	return b.execute(func() (string, error) { return b.next.CompleteWithSearch(ctx, prompt) })
}
