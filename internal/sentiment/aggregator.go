package sentiment

import (
	"context"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/llm"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/metrics"
	"sentiment-trader/internal/types"
)

type Aggregator struct {
	scorer  interfaces.Scorer
	metrics *metrics.Recorder
}

func NewAggregator(scorer interfaces.Scorer, rec *metrics.Recorder) *Aggregator {
	return &Aggregator{scorer: scorer, metrics: rec}
}

// Aggregate merges cached records for ticker with scores for any headline
// whose URL is not cached yet. Cached records are reused verbatim and never
// rescored. A headline that fails to score is dropped, not counted as
// neutral. Buy and sell times are left for the caller.
func (a *Aggregator) Aggregate(ctx context.Context, ticker string, headlines []types.Headline, cached []types.Record) types.TickerAggregate {
	records := make([]types.Record, 0, len(cached)+len(headlines))
	known := make(map[string]bool, len(cached)+len(headlines))
	for _, r := range cached {
		if known[r.Headline.URL] {
			continue
		}
		known[r.Headline.URL] = true
		records = append(records, r)
	}

	for _, h := range headlines {
		if known[h.URL] {
			a.metrics.CacheHit(ticker)
			continue
		}
		if ctx.Err() != nil {
			break
		}

		v, err := a.scorer.Score(ctx, ticker, h)
		if err != nil {
			kind := "score"
			if llm.IsRateLimit(err) {
				kind = "rate_limit"
			}
			a.metrics.Error(kind)
			logger.Warn(ctx, "Dropping unscored headline",
				"ticker", ticker,
				"url", h.URL,
				"error", err,
			)
			continue
		}

		known[h.URL] = true
		records = append(records, types.Record{Headline: h, Sentiment: v.Sentiment, Response: v.Response})
		a.metrics.HeadlineScored(v.Sentiment.String())
	}

	total, avg := Summarize(records)
	return types.TickerAggregate{
		Ticker:       ticker,
		Records:      records,
		TotalScore:   total,
		AverageScore: avg,
	}
}

// Summarize recomputes the sum and mean of record scores. The mean is nil
// for an empty record set.
func Summarize(records []types.Record) (total float64, average *float64) {
	if len(records) == 0 {
		return 0, nil
	}
	for _, r := range records {
		total += r.Sentiment.Value()
	}
	avg := total / float64(len(records))
	return total, &avg
}
