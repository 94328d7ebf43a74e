package news

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"sentiment-trader/internal/api"
	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

const (
	DefaultFinvizURL = "https://finviz.com/quote.ashx"
	sourceFinviz     = "finviz"
)

// ErrNoNewsTable means the quote page had no news table, usually an unknown
// ticker or a blocked request.
var ErrNoNewsTable = errors.New("news: quote page has no news table")

type FinvizConfig struct {
	BaseURL   string
	Location  *time.Location // timezone the site prints timestamps in
	Timeout   time.Duration
	UserAgent string
}

// FinvizSource scrapes the news table on a finviz quote page. When ctx
// carries a PageCache, repeated lookups inside that run hit the site once.
type FinvizSource struct {
	cfg FinvizConfig
	now func() time.Time
}

var _ interfaces.HeadlineSource = (*FinvizSource)(nil)

func NewFinvizSource(cfg FinvizConfig) *FinvizSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFinvizURL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = api.BrowserHeaders()["User-Agent"]
	}
	return &FinvizSource{cfg: cfg, now: time.Now}
}

// FetchHeadlines returns the rows newer than window.HeadlineStart, newest
// first. Rows after HeadlineEnd are included; callers filter.
func (s *FinvizSource) FetchHeadlines(ctx context.Context, ticker string, window types.TradePeriod) ([]types.Headline, error) {
	cache := PageCacheFrom(ctx)
	if cache != nil {
		if h, ok := cache.get(ticker, window.BuyTime); ok {
			return h, nil
		}
	}

	headlines, err := s.scrape(ctx, ticker, window.HeadlineStart)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.put(ticker, window.BuyTime, headlines)
	}
	return headlines, nil
}

func (s *FinvizSource) scrape(ctx context.Context, ticker string, since time.Time) ([]types.Headline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(s.cfg.BaseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		for k, v := range api.BrowserHeaders() {
			r.Headers.Set(k, v)
		}
		r.Headers.Set("User-Agent", s.cfg.UserAgent)
	})

	var (
		headlines []types.Headline
		found     bool
		parseErr  error
	)
	c.OnHTML("table#news-table", func(e *colly.HTMLElement) {
		found = true
		headlines, parseErr = parseNewsTable(e.DOM, s.cfg.Location, s.now(), since)
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("finviz %s: status %d: %w", ticker, r.StatusCode, err)
	})

	pageURL := s.cfg.BaseURL + "?t=" + url.QueryEscape(ticker)
	logger.Debug(ctx, "Fetching quote page", "ticker", ticker, "url", pageURL)
	if err := c.Visit(pageURL); err != nil && scrapeErr == nil {
		scrapeErr = fmt.Errorf("failed to visit %s: %w", pageURL, err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoNewsTable)
	}
	if parseErr != nil {
		logger.Warn(ctx, "Stopped parsing news table early", "ticker", ticker, "error", parseErr, "rows", len(headlines))
	}
	return headlines, nil
}

// parseNewsTable reads rows newest first. Rows carrying only a time inherit
// the date of the row above them. Parsing stops at the first row at or
// before since.
func parseNewsTable(table *goquery.Selection, loc *time.Location, now time.Time, since time.Time) ([]types.Headline, error) {
	var (
		out     []types.Headline
		lastDay time.Time
		err     error
	)

	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if _, ok := row.Attr("id"); ok {
			return true
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}

		raw := strings.TrimSpace(cells.First().Text())
		var ts time.Time
		ts, lastDay, err = parseTimestamp(raw, lastDay, loc, now)
		if err != nil {
			return false
		}
		if !since.IsZero() && !ts.After(since) {
			return false
		}

		link := cells.Eq(1).Find("div.news-link-left a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if href == "" {
			link = cells.Eq(1).Find("a").First()
			href, _ = link.Attr("href")
			title = strings.TrimSpace(link.Text())
		}
		if href == "" {
			return true
		}

		source := strings.TrimSpace(cells.Eq(1).Find("div.news-link-right span").First().Text())
		source = strings.TrimSuffix(strings.TrimPrefix(source, "("), ")")

		out = append(out, types.Headline{
			URL:       href,
			Title:     title,
			Published: ts,
			Source:    source,
		})
		return true
	})
	return out, err
}

// parseTimestamp accepts "Jan-02-06 03:04PM", "Today 03:04PM" and a bare
// "03:04PM" that belongs to the day of the previous row.
func parseTimestamp(raw string, lastDay time.Time, loc *time.Location, now time.Time) (time.Time, time.Time, error) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 2:
		var day time.Time
		if strings.EqualFold(fields[0], "Today") {
			n := now.In(loc)
			day = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
		} else {
			d, err := time.ParseInLocation("Jan-02-06", fields[0], loc)
			if err != nil {
				return time.Time{}, lastDay, fmt.Errorf("bad news date %q: %w", raw, err)
			}
			day = d
		}
		ts, err := atClock(day, fields[1], loc)
		return ts, day, err
	case 1:
		if lastDay.IsZero() {
			return time.Time{}, lastDay, fmt.Errorf("news time %q has no preceding date", raw)
		}
		ts, err := atClock(lastDay, fields[0], loc)
		return ts, lastDay, err
	}
	return time.Time{}, lastDay, fmt.Errorf("bad news timestamp %q", raw)
}

func atClock(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	c, err := time.Parse("03:04PM", strings.ToUpper(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("bad news time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}

func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
