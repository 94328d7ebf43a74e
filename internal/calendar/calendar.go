// Package calendar provides exchange trading sessions: which dates trade and
// when each session opens and closes in the exchange's timezone.
package calendar

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"sentiment-trader/internal/types"
)

const dateLayout = "2006-01-02"

// Config describes an exchange. Times are "HH:MM" in the exchange timezone.
type Config struct {
	Name        string
	Timezone    string
	Open        string
	Close       string
	EarlyClose  string
	Holidays    []string // extra closed dates, YYYY-MM-DD
	EarlyCloses []string // extra early-close dates, YYYY-MM-DD
	NYSERules   bool     // apply built-in NYSE holiday and early-close rules
}

// NYSEConfig is the default US equities calendar.
func NYSEConfig() Config {
	return Config{
		Name:       "NYSE",
		Timezone:   "America/New_York",
		Open:       "09:30",
		Close:      "16:00",
		EarlyClose: "13:00",
		NYSERules:  true,
	}
}

type clock struct{ hour, minute int }

func parseClock(s string) (clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return clock{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return clock{hour: t.Hour(), minute: t.Minute()}, nil
}

// Exchange implements interfaces.TradingCalendar.
type Exchange struct {
	name        string
	loc         *time.Location
	open        clock
	close       clock
	earlyClose  clock
	nyseRules   bool
	holidays    map[string]bool
	earlyCloses map[string]bool

	mu         sync.Mutex
	ruleYears  map[int]yearRules
	workingDay [7]bool
}

type yearRules struct {
	holidays    map[string]bool
	earlyCloses map[string]bool
}

func New(cfg Config) (*Exchange, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
	}
	open, err := parseClock(cfg.Open)
	if err != nil {
		return nil, err
	}
	cls, err := parseClock(cfg.Close)
	if err != nil {
		return nil, err
	}
	early := cls
	if cfg.EarlyClose != "" {
		if early, err = parseClock(cfg.EarlyClose); err != nil {
			return nil, err
		}
	}
	if open.hour*60+open.minute >= cls.hour*60+cls.minute {
		return nil, fmt.Errorf("open %s must be before close %s", cfg.Open, cfg.Close)
	}

	e := &Exchange{
		name:        cfg.Name,
		loc:         loc,
		open:        open,
		close:       cls,
		earlyClose:  early,
		nyseRules:   cfg.NYSERules,
		holidays:    make(map[string]bool),
		earlyCloses: make(map[string]bool),
		ruleYears:   make(map[int]yearRules),
	}
	for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		e.workingDay[wd] = true
	}
	for _, d := range cfg.Holidays {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", d, err)
		}
		e.holidays[d] = true
	}
	for _, d := range cfg.EarlyCloses {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("invalid early close %q: %w", d, err)
		}
		e.earlyCloses[d] = true
	}
	return e, nil
}

// NewNYSE returns the built-in NYSE calendar.
func NewNYSE() *Exchange {
	e, err := New(NYSEConfig())
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Exchange) Name() string             { return e.name }
func (e *Exchange) Location() *time.Location { return e.loc }

// IsTradingDay reports whether the exchange-local date of t is a session day.
func (e *Exchange) IsTradingDay(t time.Time) bool {
	local := t.In(e.loc)
	if !e.workingDay[local.Weekday()] {
		return false
	}
	key := local.Format(dateLayout)
	if e.holidays[key] {
		return false
	}
	if e.nyseRules && e.rulesFor(local.Year()).holidays[key] {
		return false
	}
	return true
}

// ValidTradingDays lists session dates (local midnight) between the
// exchange-local dates of start and end, inclusive.
func (e *Exchange) ValidTradingDays(start, end time.Time) []time.Time {
	s := startOfDay(start.In(e.loc))
	last := startOfDay(end.In(e.loc))
	var days []time.Time
	for d := s; !d.After(last); d = d.AddDate(0, 0, 1) {
		if e.IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// Session returns the open and close of the session on t's exchange-local date.
func (e *Exchange) Session(t time.Time) (types.SessionBoundary, bool) {
	if !e.IsTradingDay(t) {
		return types.SessionBoundary{}, false
	}
	local := t.In(e.loc)
	y, m, d := local.Date()
	cls := e.close
	if e.isEarlyClose(local) {
		cls = e.earlyClose
	}
	return types.SessionBoundary{
		Open:  time.Date(y, m, d, e.open.hour, e.open.minute, 0, 0, e.loc),
		Close: time.Date(y, m, d, cls.hour, cls.minute, 0, 0, e.loc),
	}, true
}

func (e *Exchange) isEarlyClose(local time.Time) bool {
	key := local.Format(dateLayout)
	if e.earlyCloses[key] {
		return true
	}
	return e.nyseRules && e.rulesFor(local.Year()).earlyCloses[key]
}

func (e *Exchange) rulesFor(year int) yearRules {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.ruleYears[year]
	if !ok {
		r = nyseRules(year, e.loc)
		e.ruleYears[year] = r
	}
	return r
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
