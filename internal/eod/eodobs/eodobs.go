package eodobs

import (
	"context"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
)

type observableSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableSummarizer{
		summarizer: summarizer,
	}
}

func (s *observableSummarizer) SummarizeDay(ctx context.Context, day time.Time) (string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeDay")
	defer span.End()

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Starting EOD summary", "date", day.Format("2006-01-02"))

	csvPath, err := s.summarizer.SummarizeDay(ctx, day)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD summary failed", err,
			"date", day.Format("2006-01-02"),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No selections to summarize", "date", day.Format("2006-01-02"))
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "EOD summary written",
		"date", day.Format("2006-01-02"),
		"csv_path", csvPath,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return csvPath, nil
}

func (s *observableSummarizer) ShouldRunNow(now time.Time) (bool, string) {
	return s.summarizer.ShouldRunNow(now)
}
