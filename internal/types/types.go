package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sentiment is the three-way classification returned for a headline.
// It is categorical; use Value only when aggregating.
type Sentiment int8

const (
	Negative Sentiment = -1
	Neutral  Sentiment = 0
	Positive Sentiment = 1
)

func (s Sentiment) Value() float64 { return float64(s) }

func (s Sentiment) String() string {
	switch s {
	case Negative:
		return "NEGATIVE"
	case Neutral:
		return "NEUTRAL"
	case Positive:
		return "POSITIVE"
	}
	return fmt.Sprintf("Sentiment(%d)", int8(s))
}

func (s Sentiment) Valid() bool {
	return s == Negative || s == Neutral || s == Positive
}

// MarshalJSON writes the numeric score (-1, 0, 1) so persisted records stay
// readable by anything that treats score as a float.
func (s Sentiment) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid sentiment %d", int8(s))
	}
	return json.Marshal(s.Value())
}

func (s *Sentiment) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("sentiment: %w", err)
	}
	v := Sentiment(int8(f))
	if float64(v) != f || !v.Valid() {
		return fmt.Errorf("sentiment: score %v is not one of -1, 0, 1", f)
	}
	*s = v
	return nil
}

// Verdict is what a scorer returns for one headline.
type Verdict struct {
	Sentiment Sentiment
	Response  string
}

type Headline struct {
	URL        string    `json:"url"`
	Title      string    `json:"headline"`
	Published  time.Time `json:"publish_time"`
	Source     string    `json:"source,omitempty"`
	TradableAt time.Time `json:"tradable_at,omitempty"`
}

// Record is a scored headline. Once created it is reused verbatim for the
// same ticker and URL.
type Record struct {
	Headline  Headline  `json:"headline"`
	Sentiment Sentiment `json:"score"`
	Response  string    `json:"response"`
}

type SessionBoundary struct {
	Open  time.Time
	Close time.Time
}

// TradePeriod is resolved once per run. A zero field means no session was
// found inside the calendar horizon.
type TradePeriod struct {
	HeadlineStart time.Time `json:"headline_start_time"`
	HeadlineEnd   time.Time `json:"headline_end_time"`
	BuyTime       time.Time `json:"trade_buy_time"`
	SellTime      time.Time `json:"trade_sell_time"`
}

func (p TradePeriod) IsZero() bool {
	return p.HeadlineStart.IsZero() && p.HeadlineEnd.IsZero() && p.BuyTime.IsZero() && p.SellTime.IsZero()
}

// Contains reports whether t falls in the collection window (start, end].
func (p TradePeriod) Contains(t time.Time) bool {
	return t.After(p.HeadlineStart) && !t.After(p.HeadlineEnd)
}

type TickerAggregate struct {
	Ticker       string    `json:"ticker"`
	Records      []Record  `json:"records"`
	TotalScore   float64   `json:"total_score"`
	AverageScore *float64  `json:"average_score"`
	BuyTime      time.Time `json:"buy_time"`
	SellTime     time.Time `json:"sell_time"`
}

// Average returns the mean score and false when there are no records.
func (a TickerAggregate) Average() (float64, bool) {
	if a.AverageScore == nil {
		return 0, false
	}
	return *a.AverageScore, true
}

type RankedSelection []TickerAggregate

func (s RankedSelection) Tickers() []string {
	out := make([]string, len(s))
	for i, a := range s {
		out[i] = a.Ticker
	}
	return out
}

type Action string

const (
	ActionBuy       Action = "buy"
	ActionShortSell Action = "short_sell"
)

type HistoryEntry struct {
	Ticker        string    `json:"ticker"`
	Records       []Record  `json:"records"`
	TotalArticles int       `json:"total_articles"`
	AverageScore  *float64  `json:"average_score"`
	TotalScore    float64   `json:"total_score"`
	BuyTime       time.Time `json:"buy_time"`
	SellTime      time.Time `json:"sell_time"`
}

func NewHistoryEntry(a TickerAggregate) HistoryEntry {
	return HistoryEntry{
		Ticker:        a.Ticker,
		Records:       a.Records,
		TotalArticles: len(a.Records),
		AverageScore:  a.AverageScore,
		TotalScore:    a.TotalScore,
		BuyTime:       a.BuyTime,
		SellTime:      a.SellTime,
	}
}

type LedgerEntry struct {
	Ticker        string
	Action        Action
	TotalArticles int
	AverageScore  float64
	TotalScore    float64
	BuyTime       time.Time
	SellTime      time.Time
}

type RunResult struct {
	Period     TradePeriod                `json:"period"`
	Aggregates []TickerAggregate          `json:"aggregates"`
	Skipped    []string                   `json:"skipped,omitempty"`
	Selections map[Action]RankedSelection `json:"selections"`
	Window     string                     `json:"window"`
}
