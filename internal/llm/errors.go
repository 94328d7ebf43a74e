// Package llm holds the headline prompt protocol shared by every scorer
// backend, plus the errors the scoring session reacts to.
package llm

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnparseable means the model answered but not with YES, NO or UNKNOWN.
	ErrUnparseable = errors.New("llm: response is not YES, NO or UNKNOWN")
	// ErrEmptyResponse means the model returned no text.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrScorerDisabled is returned by the noop scorer.
	ErrScorerDisabled = errors.New("llm: no scorer configured")
	// ErrMissingAPIKey is returned by constructors when the key env var is unset.
	ErrMissingAPIKey = errors.New("llm: API key missing")
)

// RateLimitError marks a provider rejection that is worth retrying after a
// delay. RetryAfter is the provider's hint and may be zero.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err is, or wraps, a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
