// Package schedule plans runs from the exchange calendar: each run fires a
// fixed lead before the next session boundary, so consecutive runs cover
// consecutive collection windows with no gap, early closes included.
package schedule

import (
	"context"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

const defaultRetry = time.Hour

// Resolver maps a reference instant to its trade period.
type Resolver interface {
	Resolve(ref time.Time) (types.TradePeriod, error)
}

// Job runs one pass for p using ref as the reference instant.
type Job func(ctx context.Context, p types.TradePeriod, ref time.Time)

type Scheduler struct {
	resolver Resolver
	lead     time.Duration
	retry    time.Duration
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

type Option func(*Scheduler)

// WithClock replaces the wall clock and timer, mainly for tests.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
		s.after = after
	}
}

// WithRetry sets how long to wait before resolving again when the calendar
// has no boundary in range.
func WithRetry(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.retry = d
		}
	}
}

func New(r Resolver, lead time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		resolver: r,
		lead:     lead,
		retry:    defaultRetry,
		now:      time.Now,
		after:    time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the period to run after the one that closed at last (zero
// on start-up), when to fire it and the reference instant to run with.
// The reference is never after the buy time, so the engine resolves the
// same period. A fire time already in the past means run now.
func (s *Scheduler) Next(now, last time.Time) (types.TradePeriod, time.Time, error) {
	ref := now
	if !last.IsZero() && !ref.After(last) {
		ref = last.Add(time.Nanosecond)
	}

	p, err := s.resolver.Resolve(ref)
	if err != nil {
		return types.TradePeriod{}, time.Time{}, err
	}

	fire := p.BuyTime.Add(-s.lead)
	if fire.Before(ref) {
		fire = ref
	}
	return p, fire, nil
}

// Run calls job once per session boundary until ctx is done. A run that
// overruns the following boundary makes that window unreachable; it is
// logged and the schedule resumes with the current one.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	var last time.Time
	for {
		p, fire, err := s.Next(s.now(), last)
		if err != nil {
			logger.Warn(ctx, "No session boundary to schedule, retrying later", "error", err, "retry_in", s.retry)
			if !s.wait(ctx, s.retry) {
				return nil
			}
			continue
		}
		if !last.IsZero() && !p.HeadlineStart.Equal(last) {
			logger.Warn(ctx, "Missed collection window",
				"from", last, "to", p.HeadlineStart)
		}

		logger.Info(ctx, "Next run scheduled",
			"fire_at", fire,
			"buy_time", p.BuyTime,
			"headline_start", p.HeadlineStart)
		if !s.wait(ctx, fire.Sub(s.now())) {
			return nil
		}

		job(ctx, p, fire)
		last = p.BuyTime
	}
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.after(d):
		return true
	}
}

// IsSessionClose reports whether t is the close of its trading day.
func IsSessionClose(cal interfaces.TradingCalendar, t time.Time) bool {
	sess, ok := cal.Session(t)
	return ok && sess.Close.Equal(t)
}

