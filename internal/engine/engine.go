package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentiment-trader/internal/history"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/metrics"
	"sentiment-trader/internal/news"
	"sentiment-trader/internal/period"
	"sentiment-trader/internal/selection"
	"sentiment-trader/internal/sentiment"
	"sentiment-trader/internal/store"
	"sentiment-trader/internal/types"
)

// HeadlineFetcher returns the cleaned, in-window headlines for a ticker.
type HeadlineFetcher interface {
	Headlines(ctx context.Context, ticker string, window types.TradePeriod) ([]types.Headline, error)
}

// DecisionWriter stores the per-trade decision record.
type DecisionWriter interface {
	WriteDecision(window string, action types.Action, e types.HistoryEntry) (string, error)
}

// Deps are the collaborators a run needs. Decisions and Metrics may be nil.
type Deps struct {
	Calendar  interfaces.TradingCalendar
	News      HeadlineFetcher
	Scorer    interfaces.Scorer
	Cache     interfaces.RecordCache
	History   interfaces.HistoryStore
	Ledger    interfaces.Ledger
	Decisions DecisionWriter
	Metrics   *metrics.Recorder
}

type Engine struct {
	tickers  []string
	worst    int
	best     int
	session  sentiment.SessionConfig
	resolver *period.Resolver
	loc      *time.Location

	news    HeadlineFetcher
	scorer  interfaces.Scorer
	cache   interfaces.RecordCache
	history interfaces.HistoryStore
	metrics *metrics.Recorder

	recorder *decisionRecorder
}

func newEngine(cfg *store.Config, d Deps) *Engine {
	return &Engine{
		tickers: cfg.Tickers,
		worst:   cfg.Selection.Worst,
		best:    cfg.Selection.Best,
		session: sentiment.SessionConfig{
			MaxCalls:   cfg.RateLimit.MaxCalls,
			Period:     cfg.RateLimit.Period,
			MaxRetries: cfg.RateLimit.MaxRetries,
			RetryDelay: cfg.RateLimit.RetryDelay,
		},
		resolver: NewResolver(cfg, d.Calendar),
		loc:      d.Calendar.Location(),
		news:     d.News,
		scorer:   d.Scorer,
		cache:    d.Cache,
		history:  d.History,
		metrics:  d.Metrics,
		recorder: newDecisionRecorder(d.History, d.Decisions, d.Ledger, d.Metrics),
	}
}

// Run resolves the trade period containing ref, aggregates every ticker
// and records the final selections. A horizon error aborts before anything
// is written. A cancelled context stops the ticker loop and returns the
// partial result with the context error.
func (e *Engine) Run(ctx context.Context, ref time.Time) (*types.RunResult, error) {
	p, err := e.resolver.Resolve(ref)
	if err != nil {
		logger.ErrorWithErr(ctx, "No trade period for reference time", err, "ref", ref)
		return nil, fmt.Errorf("resolve trade period: %w", err)
	}

	window := history.WindowName(p, e.loc)
	logger.Info(ctx, "Trade period resolved",
		"window", window,
		"headline_start", p.HeadlineStart,
		"headline_end", p.HeadlineEnd,
		"buy_time", p.BuyTime,
		"sell_time", p.SellTime,
	)

	// One session and one page cache per run: neither limiter state nor
	// scraped pages leak into the next run.
	ctx = news.WithPageCache(ctx, news.NewPageCache())
	session := sentiment.NewSession(e.scorer, e.session, e.metrics)
	agg := sentiment.NewAggregator(session, e.metrics)

	res := &types.RunResult{
		Period:     p,
		Window:     window,
		Selections: make(map[types.Action]types.RankedSelection),
	}

	for _, ticker := range e.tickers {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		a, err := e.processTicker(ctx, agg, p, window, ticker)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			logger.Warn(ctx, "Skipping ticker", "ticker", ticker, "error", err)
			res.Skipped = append(res.Skipped, ticker)
			continue
		}
		res.Aggregates = append(res.Aggregates, a)

		if e.worst > 0 {
			worst := selection.Rank(res.Aggregates, selection.Worst, e.worst)
			if err := e.recorder.checkpoint(ctx, window, worst); err != nil {
				logger.ErrorWithErr(ctx, "Failed to checkpoint worst selection", err, "ticker", ticker)
			}
		}
	}

	logger.Info(ctx, "Finished processing all tickers",
		"processed", len(res.Aggregates),
		"skipped", len(res.Skipped),
		"scoring_calls", session.Calls(),
	)

	for _, dir := range []selection.Direction{selection.Worst, selection.Best} {
		target := e.worst
		if dir == selection.Best {
			target = e.best
		}
		if target <= 0 {
			continue
		}
		sel := selection.Rank(res.Aggregates, dir, target)
		res.Selections[dir.Action()] = sel
		if err := e.recorder.record(ctx, window, dir.Action(), sel); err != nil {
			return res, fmt.Errorf("record %s selection: %w", dir, err)
		}
	}
	return res, nil
}
