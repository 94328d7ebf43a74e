// Package period turns wall-clock instants into trading-session instants:
// the run-wide collection window and the session at which a single headline
// becomes tradable.
package period

import (
	"errors"
	"sort"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/types"
)

const defaultHorizon = 10 * 24 * time.Hour

// ErrHorizonExhausted means no session boundary brackets the reference
// instant within the lookback and lookahead horizon.
var ErrHorizonExhausted = errors.New("period: no session boundary within calendar horizon")

type Resolver struct {
	cal       interfaces.TradingCalendar
	lookback  time.Duration
	lookahead time.Duration
}

type ResolverOption func(*Resolver)

func WithLookback(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.lookback = d
		}
	}
}

func WithLookahead(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.lookahead = d
		}
	}
}

func NewResolver(cal interfaces.TradingCalendar, opts ...ResolverOption) *Resolver {
	r := &Resolver{cal: cal, lookback: defaultHorizon, lookahead: defaultHorizon}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Boundaries returns every open and close between from and to, in time order.
func Boundaries(cal interfaces.TradingCalendar, from, to time.Time) []time.Time {
	days := cal.ValidTradingDays(from, to)
	seq := make([]time.Time, 0, 2*len(days))
	for _, d := range days {
		s, ok := cal.Session(d)
		if !ok {
			continue
		}
		seq = append(seq, s.Open, s.Close)
	}
	sort.Slice(seq, func(i, j int) bool { return seq[i].Before(seq[j]) })
	return seq
}

// Resolve computes the trade period for ref. The collection window runs
// from the last boundary strictly before ref up to the first boundary at or
// after it; that boundary is also the buy time and the one after it the
// sell time (zero when outside the lookahead).
func (r *Resolver) Resolve(ref time.Time) (types.TradePeriod, error) {
	seq := Boundaries(r.cal, ref.Add(-r.lookback), ref.Add(r.lookahead))

	i := sort.Search(len(seq), func(i int) bool { return !seq[i].Before(ref) })
	if i == len(seq) || i == 0 {
		return types.TradePeriod{}, ErrHorizonExhausted
	}

	p := types.TradePeriod{
		HeadlineStart: seq[i-1],
		HeadlineEnd:   seq[i],
		BuyTime:       seq[i],
	}
	if i+1 < len(seq) {
		p.SellTime = seq[i+1]
	}
	return p, nil
}
