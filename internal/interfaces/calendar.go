package interfaces

import (
	"time"

	"sentiment-trader/internal/types"
)

type TradingCalendar interface {
	// ValidTradingDays lists session dates between start and end, inclusive.
	ValidTradingDays(start, end time.Time) []time.Time
	// Session returns the open and close on t's exchange-local date.
	Session(t time.Time) (types.SessionBoundary, bool)
	Location() *time.Location
}
