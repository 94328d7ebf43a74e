// Package sentiment scores headlines through a rate-limited session and
// folds the results into per-ticker aggregates.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/llm"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/metrics"
	"sentiment-trader/internal/types"
)

// ErrRetriesExhausted wraps the last rate-limit error once every retry failed.
var ErrRetriesExhausted = errors.New("sentiment: rate limit retries exhausted")

type SessionConfig struct {
	MaxCalls   int
	Period     time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultSessionConfig allows 30 calls a minute and three 5s retries.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{MaxCalls: 30, Period: time.Minute, MaxRetries: 3, RetryDelay: 5 * time.Second}
}

// Session serializes scoring calls for one run. It owns the limiter state,
// so separate runs in one process never share pacing.
type Session struct {
	scorer  interfaces.Scorer
	limiter *rate.Limiter
	cfg     SessionConfig
	metrics *metrics.Recorder

	calls int
}

var _ interfaces.Scorer = (*Session)(nil)

func NewSession(scorer interfaces.Scorer, cfg SessionConfig, rec *metrics.Recorder) *Session {
	def := DefaultSessionConfig()
	if cfg.MaxCalls <= 0 {
		cfg.MaxCalls = def.MaxCalls
	}
	if cfg.Period <= 0 {
		cfg.Period = def.Period
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	// Even spacing keeps any rolling window of Period at or under MaxCalls.
	every := cfg.Period / time.Duration(cfg.MaxCalls)
	return &Session{
		scorer:  scorer,
		limiter: rate.NewLimiter(rate.Every(every), 1),
		cfg:     cfg,
		metrics: rec,
	}
}

// Calls returns how many times the underlying scorer was invoked.
func (s *Session) Calls() int { return s.calls }

// Score waits for a call slot and scores h. Rate-limit rejections are
// retried after RetryDelay (or the provider's longer hint) up to MaxRetries
// times; any other error is returned at once.
func (s *Session) Score(ctx context.Context, ticker string, h types.Headline) (types.Verdict, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.cfg.RetryDelay
			var rl *llm.RateLimitError
			if errors.As(lastErr, &rl) && rl.RetryAfter > delay {
				delay = rl.RetryAfter
			}
			logger.Warn(ctx, "Rate limited, retrying",
				"ticker", ticker,
				"attempt", attempt,
				"max_retries", s.cfg.MaxRetries,
				"delay", delay.String(),
			)
			s.metrics.Retry()
			if err := sleep(ctx, delay); err != nil {
				return types.Verdict{}, err
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return types.Verdict{}, fmt.Errorf("rate limiter wait: %w", err)
		}

		s.calls++
		v, err := s.scorer.Score(ctx, ticker, h)
		if err == nil {
			return v, nil
		}
		if !llm.IsRateLimit(err) {
			return types.Verdict{}, err
		}
		lastErr = err
	}
	return types.Verdict{}, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, s.cfg.MaxRetries+1, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
