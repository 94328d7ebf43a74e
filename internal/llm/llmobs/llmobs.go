package llmobs

import (
	"context"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

// observableScorer wraps a Scorer with logging and tracing
type observableScorer struct {
	scorer   interfaces.Scorer
	provider string
}

var _ interfaces.Scorer = (*observableScorer)(nil)

func Wrap(scorer interfaces.Scorer, provider string) interfaces.Scorer {
	return &observableScorer{scorer: scorer, provider: provider}
}

func (s *observableScorer) Score(ctx context.Context, ticker string, h types.Headline) (types.Verdict, error) {
	ctx, span := trace.StartSpan(ctx, "scorer.Score")
	defer span.End()

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Scoring headline",
		"provider", s.provider,
		"ticker", ticker,
		"url", h.URL,
	)

	v, err := s.scorer.Score(ctx, ticker, h)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Headline scoring failed", err,
			"provider", s.provider,
			"ticker", ticker,
			"url", h.URL,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return v, err
	}

	logger.InfoSkip(ctx, 1, "Headline scored",
		"provider", s.provider,
		"ticker", ticker,
		"sentiment", v.Sentiment.String(),
		"headline", h.Title,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return v, nil
}
