package engine

import (
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/period"
	"sentiment-trader/internal/store"
)

func New(cfg *store.Config, d Deps) interfaces.Engine {
	return newEngine(cfg, d)
}

// NewResolver builds the period resolver a run uses, so callers that plan
// runs ahead of time agree with the engine on every window.
func NewResolver(cfg *store.Config, cal interfaces.TradingCalendar) *period.Resolver {
	day := 24 * time.Hour
	return period.NewResolver(cal,
		period.WithLookback(time.Duration(cfg.Calendar.LookbackDays)*day),
		period.WithLookahead(time.Duration(cfg.Calendar.LookaheadDays)*day),
	)
}
