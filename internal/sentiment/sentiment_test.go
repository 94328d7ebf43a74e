package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/llm"
	"sentiment-trader/internal/types"
)

// countingScorer answers from a URL table and counts calls.
type countingScorer struct {
	verdicts map[string]types.Sentiment
	errs     map[string]error
	calls    map[string]int
}

func newCountingScorer() *countingScorer {
	return &countingScorer{
		verdicts: map[string]types.Sentiment{},
		errs:     map[string]error{},
		calls:    map[string]int{},
	}
}

func (c *countingScorer) Score(_ context.Context, _ string, h types.Headline) (types.Verdict, error) {
	c.calls[h.URL]++
	if err := c.errs[h.URL]; err != nil {
		return types.Verdict{}, err
	}
	s := c.verdicts[h.URL]
	return types.Verdict{Sentiment: s, Response: s.String()}, nil
}

func (c *countingScorer) total() int {
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func hl(url string) types.Headline {
	return types.Headline{URL: url, Title: "headline " + url, Published: time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)}
}

func TestAggregateEmpty(t *testing.T) {
	sc := newCountingScorer()
	agg := NewAggregator(sc, nil).Aggregate(context.Background(), "AAPL", nil, nil)

	assert.Equal(t, "AAPL", agg.Ticker)
	assert.Len(t, agg.Records, 0)
	assert.Nil(t, agg.AverageScore)
	_, ok := agg.Average()
	assert.False(t, ok)
	assert.Zero(t, sc.total())
}

func TestAggregateScores(t *testing.T) {
	sc := newCountingScorer()
	sc.verdicts["a"] = types.Positive
	sc.verdicts["b"] = types.Negative
	sc.verdicts["c"] = types.Negative
	sc.verdicts["d"] = types.Neutral

	agg := NewAggregator(sc, nil).Aggregate(context.Background(), "AAPL",
		[]types.Headline{hl("a"), hl("b"), hl("c"), hl("d")}, nil)

	require.Len(t, agg.Records, 4)
	assert.Equal(t, -1.0, agg.TotalScore)
	avg, ok := agg.Average()
	require.True(t, ok)
	assert.Equal(t, -0.25, avg)
}

func TestAggregateReusesCache(t *testing.T) {
	sc := newCountingScorer()
	sc.verdicts["a"] = types.Positive
	sc.verdicts["b"] = types.Negative
	a := NewAggregator(sc, nil)

	first := a.Aggregate(context.Background(), "AAPL", []types.Headline{hl("a")}, nil)
	require.Len(t, first.Records, 1)

	second := a.Aggregate(context.Background(), "AAPL", []types.Headline{hl("a"), hl("b")}, first.Records)

	assert.Equal(t, 1, sc.calls["a"])
	assert.Equal(t, 1, sc.calls["b"])
	require.Len(t, second.Records, 2)
	assert.Equal(t, first.Records[0], second.Records[0])
	assert.Equal(t, 0.0, second.TotalScore)
}

func TestAggregateCachedRecordIsVerbatim(t *testing.T) {
	sc := newCountingScorer()
	sc.verdicts["a"] = types.Positive

	cached := []types.Record{{Headline: hl("a"), Sentiment: types.Negative, Response: "NO earlier answer"}}
	agg := NewAggregator(sc, nil).Aggregate(context.Background(), "AAPL", []types.Headline{hl("a")}, cached)

	assert.Zero(t, sc.total())
	assert.Equal(t, cached, agg.Records)
	assert.Equal(t, -1.0, agg.TotalScore)
}

func TestAggregateDropsFailures(t *testing.T) {
	sc := newCountingScorer()
	sc.verdicts["a"] = types.Positive
	sc.errs["b"] = llm.ErrUnparseable

	agg := NewAggregator(sc, nil).Aggregate(context.Background(), "AAPL", []types.Headline{hl("a"), hl("b")}, nil)

	require.Len(t, agg.Records, 1)
	assert.Equal(t, "a", agg.Records[0].Headline.URL)
	avg, _ := agg.Average()
	assert.Equal(t, 1.0, avg)
}

func TestAggregateAllFailuresIsUndefined(t *testing.T) {
	sc := newCountingScorer()
	sc.errs["a"] = llm.ErrScorerDisabled

	agg := NewAggregator(sc, nil).Aggregate(context.Background(), "AAPL", []types.Headline{hl("a")}, nil)
	assert.Empty(t, agg.Records)
	assert.Nil(t, agg.AverageScore)
}

func TestSummarize(t *testing.T) {
	total, avg := Summarize(nil)
	assert.Zero(t, total)
	assert.Nil(t, avg)

	total, avg = Summarize([]types.Record{{Sentiment: types.Neutral}})
	assert.Zero(t, total)
	require.NotNil(t, avg)
	assert.Zero(t, *avg)
}

// flakyScorer returns a rate limit error for the first n calls.
type flakyScorer struct {
	failures int
	calls    int
	err      error
}

func (f *flakyScorer) Score(context.Context, string, types.Headline) (types.Verdict, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.err != nil {
			return types.Verdict{}, f.err
		}
		return types.Verdict{}, &llm.RateLimitError{Provider: "test", Err: errors.New("429")}
	}
	return types.Verdict{Sentiment: types.Positive, Response: "YES"}, nil
}

func fastConfig() SessionConfig {
	return SessionConfig{MaxCalls: 1000, Period: time.Second, MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestSessionRetriesRateLimits(t *testing.T) {
	f := &flakyScorer{failures: 2}
	s := NewSession(f, fastConfig(), nil)

	v, err := s.Score(context.Background(), "AAPL", hl("a"))
	require.NoError(t, err)
	assert.Equal(t, types.Positive, v.Sentiment)
	assert.Equal(t, 3, f.calls)
	assert.Equal(t, 3, s.Calls())
}

func TestSessionGivesUpAfterMaxRetries(t *testing.T) {
	f := &flakyScorer{failures: 10}
	s := NewSession(f, fastConfig(), nil)

	_, err := s.Score(context.Background(), "AAPL", hl("a"))
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.True(t, llm.IsRateLimit(err))
	assert.Equal(t, 4, f.calls)
}

func TestSessionDoesNotRetryOtherErrors(t *testing.T) {
	f := &flakyScorer{failures: 10, err: llm.ErrUnparseable}
	s := NewSession(f, fastConfig(), nil)

	_, err := s.Score(context.Background(), "AAPL", hl("a"))
	assert.ErrorIs(t, err, llm.ErrUnparseable)
	assert.Equal(t, 1, f.calls)
}

func TestSessionSpacesCalls(t *testing.T) {
	f := &flakyScorer{}
	s := NewSession(f, SessionConfig{MaxCalls: 2, Period: 100 * time.Millisecond}, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := s.Score(context.Background(), "AAPL", hl("a"))
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestSessionHonoursCancellation(t *testing.T) {
	f := &flakyScorer{failures: 10}
	cfg := fastConfig()
	cfg.RetryDelay = time.Hour
	s := NewSession(f, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Score(ctx, "AAPL", hl("a"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.calls)
}

func TestAggregatorThroughSessionDropsExhausted(t *testing.T) {
	f := &flakyScorer{failures: 100}
	s := NewSession(f, fastConfig(), nil)

	agg := NewAggregator(s, nil).Aggregate(context.Background(), "AAPL", []types.Headline{hl("a"), hl("b")}, nil)
	assert.Empty(t, agg.Records)
	assert.Equal(t, 8, f.calls)
}
