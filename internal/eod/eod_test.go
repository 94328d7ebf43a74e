package eod

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/calendar"
	"sentiment-trader/internal/types"
)

type staticLedger []types.LedgerEntry

func (l staticLedger) Read() ([]types.LedgerEntry, error) { return l, nil }

func et(y int, m time.Month, d, h, min int) time.Time {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return time.Date(y, m, d, h, min, 0, 0, ny)
}

func TestSummarizeDay(t *testing.T) {
	dir := t.TempDir()
	ledger := staticLedger{
		{Ticker: "AAA", Action: types.ActionShortSell, TotalArticles: 3, AverageScore: -1, BuyTime: et(2024, 3, 13, 9, 30)},
		{Ticker: "AAA", Action: types.ActionShortSell, TotalArticles: 5, AverageScore: -0.5, BuyTime: et(2024, 3, 13, 16, 0)},
		{Ticker: "CCC", Action: types.ActionBuy, TotalArticles: 2, AverageScore: 0.5, BuyTime: et(2024, 3, 13, 16, 0)},
		{Ticker: "ZZZ", Action: types.ActionBuy, TotalArticles: 9, AverageScore: 1, BuyTime: et(2024, 3, 14, 9, 30)},
	}
	s := NewSummarizer(dir, calendar.NewNYSE(), ledger)

	path, err := s.SummarizeDay(context.Background(), et(2024, 3, 13, 17, 0))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "eod", "2024-03-13.csv"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "AAA,2,0,8,-0.7500", lines[1])
	assert.Equal(t, "CCC,0,1,2,0.5000", lines[2])
	assert.Equal(t, "TOTAL,2,1,10,", lines[3])
}

func TestSummarizeEmptyDay(t *testing.T) {
	s := NewSummarizer(t.TempDir(), calendar.NewNYSE(), staticLedger{})
	path, err := s.SummarizeDay(context.Background(), et(2024, 3, 13, 17, 0))
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestShouldRunNow(t *testing.T) {
	dir := t.TempDir()
	s := NewSummarizer(dir, calendar.NewNYSE(), staticLedger{
		{Ticker: "AAA", Action: types.ActionBuy, TotalArticles: 2, AverageScore: 1, BuyTime: et(2024, 3, 13, 16, 0)},
	})

	ok, _ := s.ShouldRunNow(et(2024, 3, 13, 15, 0))
	assert.False(t, ok, "before the close")

	ok, _ = s.ShouldRunNow(et(2024, 3, 16, 18, 0))
	assert.False(t, ok, "weekend")

	ok, path := s.ShouldRunNow(et(2024, 3, 13, 16, 5))
	assert.True(t, ok)

	_, err := s.SummarizeDay(context.Background(), et(2024, 3, 13, 16, 5))
	require.NoError(t, err)
	ok, again := s.ShouldRunNow(et(2024, 3, 13, 16, 30))
	assert.False(t, ok, "already written")
	assert.Equal(t, path, again)
}
