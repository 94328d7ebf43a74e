package engineobs

import (
	"context"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Run(ctx context.Context, ref time.Time) (*types.RunResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Run")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting sentiment run",
		"ref", ref,
	)

	result, err := oe.engine.Run(ctx, ref)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Sentiment run failed", err,
			"ref", ref,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return result, err
	}

	logger.InfoSkip(ctx, 1, "Sentiment run completed",
		"window", result.Window,
		"tickers", len(result.Aggregates),
		"skipped", len(result.Skipped),
		"short_sell", result.Selections[types.ActionShortSell].Tickers(),
		"buy", result.Selections[types.ActionBuy].Tickers(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
