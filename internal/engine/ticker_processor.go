package engine

import (
	"context"
	"fmt"
	"time"

	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/sentiment"
	"sentiment-trader/internal/types"
)

// processTicker fetches, scores and caches one ticker. A fetch error skips
// the ticker; cache errors are logged and the run goes on with what it has.
func (e *Engine) processTicker(ctx context.Context, agg *sentiment.Aggregator, p types.TradePeriod, window, ticker string) (types.TickerAggregate, error) {
	op := logger.StartOperation(ctx, "engine.ProcessTicker", "ticker", ticker, "window", window)
	ctx = op.GetContext()
	start := time.Now()
	defer e.metrics.Since("process_ticker", start)

	headlines, err := e.news.Headlines(ctx, ticker, p)
	if err != nil {
		op.EndWithError(err)
		return types.TickerAggregate{}, err
	}
	logger.Info(ctx, "Found headlines", "ticker", ticker, "count", len(headlines))
	if n := tradableElsewhere(headlines, p.BuyTime); n > 0 {
		logger.Warn(ctx, "Headlines map to a different session than this buy time",
			"ticker", ticker, "count", n, "buy_time", p.BuyTime)
		e.metrics.Mismatched(ticker, n)
	}

	cached, err := e.cache.Load(ctx, window, ticker)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load record cache, rescoring", err, "ticker", ticker)
		cached = nil
	}

	a := agg.Aggregate(ctx, ticker, headlines, cached)
	a.BuyTime = p.BuyTime
	a.SellTime = p.SellTime
	if err := ctx.Err(); err != nil {
		op.EndWithError(err)
		return a, fmt.Errorf("%s: %w", ticker, err)
	}

	if err := e.cache.Save(ctx, window, ticker, a.Records); err != nil {
		logger.ErrorWithErr(ctx, "Failed to save record cache", err, "ticker", ticker)
	}

	if avg, ok := a.Average(); ok {
		e.metrics.AverageScore(ticker, avg)
		logger.Info(ctx, "Average score", "ticker", ticker, "average_score", avg, "total_score", a.TotalScore, "records", len(a.Records))
	} else {
		logger.Info(ctx, "No scored headlines", "ticker", ticker)
	}

	op.End("records", len(a.Records), "cached", len(cached))
	return a, nil
}

// tradableElsewhere counts headlines whose mapped session start is known and
// differs from buy. Unmapped headlines are not counted.
func tradableElsewhere(headlines []types.Headline, buy time.Time) int {
	n := 0
	for _, h := range headlines {
		if !h.TradableAt.IsZero() && !h.TradableAt.Equal(buy) {
			n++
		}
	}
	return n
}
