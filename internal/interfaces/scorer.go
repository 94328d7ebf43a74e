package interfaces

import (
	"context"

	"sentiment-trader/internal/types"
)

// Scorer classifies one headline for one ticker.
type Scorer interface {
	Score(ctx context.Context, ticker string, h types.Headline) (types.Verdict, error)
}
