package domain

import "errors"

var (
	// ErrServiceUnavailable means a required external capability is not
	// configured or is refusing calls.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrNotFound means a lookup yielded nothing.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited means the provider asked us to slow down and the single
	// allowed wait did not help.
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout means an external call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrCircuitOpen means calls to a configured provider are being rejected
	// after repeated failures. It is transient and absorbed like ErrTimeout.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrNoMenu means the restaurant is known but has no menu items.
	ErrNoMenu = errors.New("restaurant has no menu items")
)

// IsAbsorbable reports whether err is a stage-local failure that the
// pipeline converts into "no data for this stage".
func IsAbsorbable(err error) bool {
	if err == nil {
		return true
	}
	return !errors.Is(err, ErrServiceUnavailable) && !errors.Is(err, ErrNotFound)
}
