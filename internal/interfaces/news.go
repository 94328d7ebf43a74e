package interfaces

import (
	"context"

	"sentiment-trader/internal/types"
)

// HeadlineSource returns the raw headlines published for a ticker inside the
// collection window. Implementations may return headlines outside it; callers
// filter.
type HeadlineSource interface {
	FetchHeadlines(ctx context.Context, ticker string, window types.TradePeriod) ([]types.Headline, error)
}
