package noop

import (
	"context"

	"sentiment-trader/internal/llm"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// Scorer is used when no LLM provider is configured. Every headline fails
// to score, so tickers end up with no records rather than fake neutrals.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

func (s *Scorer) Score(ctx context.Context, ticker string, h types.Headline) (types.Verdict, error) {
	logger.Debug(ctx, "Noop scorer called", "ticker", ticker, "url", h.URL)
	return types.Verdict{}, llm.ErrScorerDisabled
}
