// Package eod writes a per-day CSV of the selections recorded in the trade
// ledger.
package eod

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/types"
)

// LedgerReader is the read side of the trade ledger.
type LedgerReader interface {
	Read() ([]types.LedgerEntry, error)
}

type aggRow struct {
	Ticker     string
	ShortSells int
	Buys       int
	Articles   int
	ScoreSum   float64
	Selections int
}

type eodSummarizer struct {
	dir    string
	cal    interfaces.TradingCalendar
	ledger LedgerReader
}

var _ interfaces.EodSummarizer = (*eodSummarizer)(nil)

// NewSummarizer writes summaries under <dir>/eod.
func NewSummarizer(dir string, cal interfaces.TradingCalendar, ledger LedgerReader) interfaces.EodSummarizer {
	return &eodSummarizer{dir: dir, cal: cal, ledger: ledger}
}

func (s *eodSummarizer) csvPath(day time.Time) string {
	return filepath.Join(s.dir, "eod", day.In(s.cal.Location()).Format("2006-01-02")+".csv")
}

// SummarizeDay aggregates the ledger rows whose buy time falls on day's
// exchange-local date. It returns "" when there is nothing to write.
func (s *eodSummarizer) SummarizeDay(ctx context.Context, day time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	entries, err := s.ledger.Read()
	if err != nil {
		return "", err
	}

	loc := s.cal.Location()
	y, m, d := day.In(loc).Date()
	aggs := map[string]*aggRow{}
	for _, e := range entries {
		ey, em, ed := e.BuyTime.In(loc).Date()
		if ey != y || em != m || ed != d {
			continue
		}
		row := aggs[e.Ticker]
		if row == nil {
			row = &aggRow{Ticker: e.Ticker}
			aggs[e.Ticker] = row
		}
		switch e.Action {
		case types.ActionShortSell:
			row.ShortSells++
		case types.ActionBuy:
			row.Buys++
		}
		row.Articles += e.TotalArticles
		row.ScoreSum += e.AverageScore
		row.Selections++
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := s.csvPath(day)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{"ticker", "short_sells", "buys", "articles", "mean_average_score"}
	if err := w.Write(headers); err != nil {
		return "", err
	}
	var shorts, buys, articles int
	for _, k := range keys {
		r := aggs[k]
		rec := []string{
			r.Ticker,
			strconv.Itoa(r.ShortSells),
			strconv.Itoa(r.Buys),
			strconv.Itoa(r.Articles),
			fmt.Sprintf("%.4f", r.ScoreSum/float64(r.Selections)),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		shorts += r.ShortSells
		buys += r.Buys
		articles += r.Articles
	}
	_ = w.Write([]string{"TOTAL", strconv.Itoa(shorts), strconv.Itoa(buys), strconv.Itoa(articles), ""})
	w.Flush()
	return outPath, w.Error()
}

// ShouldRunNow reports true once now is past the day's close on a trading
// day and that day's summary has not been written yet.
func (s *eodSummarizer) ShouldRunNow(now time.Time) (bool, string) {
	outPath := s.csvPath(now)
	sess, ok := s.cal.Session(now)
	if !ok || now.Before(sess.Close) {
		return false, outPath
	}
	if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
		return true, outPath
	}
	return false, outPath
}
