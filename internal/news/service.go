package news

import (
	"context"
	"fmt"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/metrics"
	"sentiment-trader/internal/period"
	"sentiment-trader/internal/types"
)

// Service turns raw source rows into the headlines a run scores: cleaned,
// limited to the collection window and tagged with the session at which
// each becomes tradable.
type Service struct {
	source  interfaces.HeadlineSource
	mapper  *period.Mapper
	metrics *metrics.Recorder
}

// NewService wires a source. mapper may be nil to skip session tagging.
func NewService(source interfaces.HeadlineSource, mapper *period.Mapper, rec *metrics.Recorder) *Service {
	return &Service{source: source, mapper: mapper, metrics: rec}
}

func (s *Service) Headlines(ctx context.Context, ticker string, window types.TradePeriod) ([]types.Headline, error) {
	op := logger.StartOperation(ctx, "news.Fetch", "ticker", ticker)
	ctx = op.GetContext()
	start := time.Now()
	defer s.metrics.Since("news_fetch", start)

	raw, err := s.source.FetchHeadlines(ctx, ticker, window)
	if err != nil {
		s.metrics.Error("fetch")
		op.EndWithError(err)
		return nil, fmt.Errorf("fetch headlines for %s: %w", ticker, err)
	}

	headlines := InWindow(Preprocess(raw), window)
	if s.mapper != nil {
		mapped := s.mapper.Annotate(headlines)
		logger.Debug(ctx, "Mapped headlines to sessions", "ticker", ticker, "mapped", mapped, "total", len(headlines))
	}
	s.metrics.HeadlinesFetched(ticker, len(headlines))

	op.End("raw", len(raw), "kept", len(headlines))
	return headlines, nil
}
