package completion

import (
	"context"
	"fmt"

	"menubox/internal/domain"
)

// Unavailable stands in for a provider that is not configured. Every call
// returns domain.ErrServiceUnavailable with Reason attached.
type Unavailable struct {
	Reason string
}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return domain.ErrServiceUnavailable
	}
	return fmt.Errorf("%s: %w", u.Reason, domain.ErrServiceUnavailable)
}

func (u Unavailable) Complete(context.Context, string, int) (string, error) { return "", u.err() }

func (u Unavailable) CompleteWithImage(context.Context, string, []byte, string) (string, error) {
	return "", u.err()
}

func (u Unavailable) CompleteWithSearch(context.Context, string) (string, error) { return "", u.err() }
