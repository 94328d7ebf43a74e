package interfaces

import (
	"context"
	"time"

	"sentiment-trader/internal/types"
)

// Engine runs one full pass over the configured tickers for the trade
// period that contains ref.
type Engine interface {
	Run(ctx context.Context, ref time.Time) (*types.RunResult, error)
}
