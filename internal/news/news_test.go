package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/calendar"
	"sentiment-trader/internal/period"
	"sentiment-trader/internal/types"
)

var ny = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return loc
}()

func et(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, ny)
}

func row(ts, href, title, source string) string {
	return fmt.Sprintf(`<tr><td width="130" align="right">%s</td><td align="left"><div class="news-link-container">`+
		`<div class="news-link-left"><a class="tab-link-news" href="%s" target="_blank">%s</a></div>`+
		`<div class="news-link-right"><span>(%s)</span></div></div></td></tr>`, ts, href, title, source)
}

var quotePage = `<html><body><table id="news-table" class="fullview-news-outer">` +
	row("Mar-13-24 10:15AM", "https://example.com/a", "Apple beats   estimates", "Reuters") +
	row("09:05AM", "https://example.com/b", "Apple recalls chargers", "Bloomberg") +
	`<tr id="ad-row"><td>Sponsored</td><td><a href="https://ads.example.com">Buy now</a></td></tr>` +
	row("Mar-12-24 05:00PM", "https://example.com/c", "Apple supplier warns", "MarketWatch") +
	row("Mar-12-24 03:00PM", "https://example.com/d", "Old news", "Reuters") +
	`</table></body></html>`

func newFinvizServer(t *testing.T, body string, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "AAPL", r.URL.Query().Get("t"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func window() types.TradePeriod {
	return types.TradePeriod{
		HeadlineStart: et(2024, 3, 12, 16, 0),
		HeadlineEnd:   et(2024, 3, 13, 16, 0),
		BuyTime:       et(2024, 3, 13, 16, 0),
		SellTime:      et(2024, 3, 14, 9, 30),
	}
}

func TestFinvizFetchHeadlines(t *testing.T) {
	srv, hits := newFinvizServer(t, quotePage, http.StatusOK)
	src := NewFinvizSource(FinvizConfig{BaseURL: srv.URL + "/quote.ashx", Location: ny})

	got, err := src.FetchHeadlines(context.Background(), "AAPL", window())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "https://example.com/a", got[0].URL)
	assert.Equal(t, "Apple beats   estimates", got[0].Title)
	assert.Equal(t, "Reuters", got[0].Source)
	assert.True(t, et(2024, 3, 13, 10, 15).Equal(got[0].Published))

	assert.True(t, et(2024, 3, 13, 9, 5).Equal(got[1].Published), "time-only row inherits the date above")
	assert.True(t, et(2024, 3, 12, 17, 0).Equal(got[2].Published))

	_, err = src.FetchHeadlines(context.Background(), "AAPL", window())
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load(), "no page cache outside a run")
}

func TestFinvizPageCacheScopedToRun(t *testing.T) {
	srv, hits := newFinvizServer(t, quotePage, http.StatusOK)
	src := NewFinvizSource(FinvizConfig{BaseURL: srv.URL + "/quote.ashx", Location: ny})
	ctx := WithPageCache(context.Background(), NewPageCache())

	_, err := src.FetchHeadlines(ctx, "AAPL", window())
	require.NoError(t, err)
	_, err = src.FetchHeadlines(ctx, "AAPL", window())
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load(), "same window is served from the run's cache")

	next := window()
	next.BuyTime = et(2024, 3, 14, 9, 30)
	_, err = src.FetchHeadlines(ctx, "AAPL", next)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestFinvizRerunSeesNewRows(t *testing.T) {
	late := `<html><body><table id="news-table" class="fullview-news-outer">` +
		row("Mar-13-24 11:00AM", "https://example.com/e", "Apple wins contract", "Reuters") +
		quotePage[len(`<html><body><table id="news-table" class="fullview-news-outer">`):]

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := quotePage
		if hits.Add(1) > 1 {
			body = late
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	src := NewFinvizSource(FinvizConfig{BaseURL: srv.URL + "/quote.ashx", Location: ny})

	first, err := src.FetchHeadlines(WithPageCache(context.Background(), NewPageCache()), "AAPL", window())
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := src.FetchHeadlines(WithPageCache(context.Background(), NewPageCache()), "AAPL", window())
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load(), "each run scrapes the page")
	require.Len(t, second, 4)
	assert.Equal(t, "Apple wins contract", second[0].Title)
	assert.True(t, et(2024, 3, 13, 11, 0).Equal(second[0].Published))
}

func TestPageCacheFromEmptyContext(t *testing.T) {
	assert.Nil(t, PageCacheFrom(context.Background()))
}

func TestFinvizNoNewsTable(t *testing.T) {
	srv, _ := newFinvizServer(t, "<html><body>No such ticker</body></html>", http.StatusOK)
	src := NewFinvizSource(FinvizConfig{BaseURL: srv.URL, Location: ny})

	_, err := src.FetchHeadlines(context.Background(), "AAPL", window())
	assert.ErrorIs(t, err, ErrNoNewsTable)
}

func TestFinvizHTTPError(t *testing.T) {
	srv, _ := newFinvizServer(t, "forbidden", http.StatusForbidden)
	src := NewFinvizSource(FinvizConfig{BaseURL: srv.URL, Location: ny})

	_, err := src.FetchHeadlines(context.Background(), "AAPL", window())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoNewsTable)
}

func TestFinvizCancelledContext(t *testing.T) {
	srv, hits := newFinvizServer(t, quotePage, http.StatusOK)
	src := NewFinvizSource(FinvizConfig{BaseURL: srv.URL, Location: ny})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.FetchHeadlines(ctx, "AAPL", window())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}

func TestParseTimestamp(t *testing.T) {
	now := et(2024, 3, 13, 11, 0)

	ts, day, err := parseTimestamp("Today 08:01AM", time.Time{}, ny, now)
	require.NoError(t, err)
	assert.True(t, et(2024, 3, 13, 8, 1).Equal(ts))

	ts, _, err = parseTimestamp("12:30PM", day, ny, now)
	require.NoError(t, err)
	assert.True(t, et(2024, 3, 13, 12, 30).Equal(ts))

	ts, _, err = parseTimestamp("Dec-31-23 12:05AM", time.Time{}, ny, now)
	require.NoError(t, err)
	assert.True(t, et(2023, 12, 31, 0, 5).Equal(ts))

	_, _, err = parseTimestamp("09:00AM", time.Time{}, ny, now)
	assert.Error(t, err)
	_, _, err = parseTimestamp("yesterday-ish", time.Time{}, ny, now)
	assert.Error(t, err)
}

func TestPreprocess(t *testing.T) {
	in := []types.Headline{
		{URL: "u1", Title: "  First\n headline "},
		{URL: "u1", Title: "dupe"},
		{URL: "u2", Title: "   "},
		{URL: "", Title: "no url"},
		{URL: "u3", Title: "Third"},
	}

	got := Preprocess(in)
	require.Len(t, got, 2)
	assert.Equal(t, "First headline", got[0].Title)
	assert.Equal(t, "u3", got[1].URL)
}

type stubSource struct {
	headlines []types.Headline
	err       error
}

func (s stubSource) FetchHeadlines(context.Context, string, types.TradePeriod) ([]types.Headline, error) {
	return s.headlines, s.err
}

func TestServiceFiltersAndMaps(t *testing.T) {
	src := stubSource{headlines: []types.Headline{
		{URL: "late", Title: "after buy time", Published: et(2024, 3, 13, 16, 30)},
		{URL: "in", Title: "intraday", Published: et(2024, 3, 13, 12, 0)},
		{URL: "edge", Title: "at window end", Published: et(2024, 3, 13, 16, 0)},
		{URL: "start", Title: "at window start", Published: et(2024, 3, 12, 16, 0)},
	}}
	svc := NewService(src, period.NewMapper(calendar.NewNYSE(), 1), nil)

	got, err := svc.Headlines(context.Background(), "AAPL", window())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "in", got[0].URL)
	assert.Equal(t, "edge", got[1].URL)
	assert.True(t, et(2024, 3, 13, 16, 0).Equal(got[0].TradableAt))
}

func TestServiceWrapsFetchErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewService(stubSource{err: boom}, nil, nil).Headlines(context.Background(), "AAPL", window())
	assert.ErrorIs(t, err, boom)
}
