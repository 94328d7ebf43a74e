package period

import (
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/types"
)

// Mapper assigns a single headline to the session boundary at which it is
// first tradable, independent of the current time.
type Mapper struct {
	cal interfaces.TradingCalendar
	// ProbeDays is how many calendar days past the publish date are searched
	// for the next open.
	ProbeDays int
}

func NewMapper(cal interfaces.TradingCalendar, probeDays int) *Mapper {
	if probeDays < 1 {
		probeDays = 1
	}
	return &Mapper{cal: cal, ProbeDays: probeDays}
}

// MapToSession returns the open or close at which published becomes
// tradable. It reports false when the publish date is not a trading day or
// no open is found within ProbeDays.
func (m *Mapper) MapToSession(published time.Time) (time.Time, bool) {
	local := published.In(m.cal.Location())
	s, ok := m.cal.Session(local)
	if !ok {
		return time.Time{}, false
	}

	switch {
	case !local.After(s.Open):
		return s.Open, true
	case !local.After(s.Close):
		return s.Close, true
	}

	y, mo, d := local.Date()
	for i := 1; i <= m.ProbeDays; i++ {
		next := time.Date(y, mo, d+i, 12, 0, 0, 0, local.Location())
		if ns, ok := m.cal.Session(next); ok {
			return ns.Open, true
		}
	}
	return time.Time{}, false
}

// Annotate sets TradableAt on each headline that maps to a session and
// returns how many did.
func (m *Mapper) Annotate(headlines []types.Headline) int {
	n := 0
	for i := range headlines {
		if at, ok := m.MapToSession(headlines[i].Published); ok {
			headlines[i].TradableAt = at
			n++
		}
	}
	return n
}
