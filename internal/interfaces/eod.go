package interfaces

import (
	"context"
	"time"
)

// EodSummarizer turns a day's ledger rows into a summary CSV.
type EodSummarizer interface {
	SummarizeDay(ctx context.Context, day time.Time) (csvPath string, err error)
	ShouldRunNow(now time.Time) (shouldRun bool, csvPath string)
}
