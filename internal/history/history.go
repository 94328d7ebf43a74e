// Package history persists run artifacts as JSON files grouped by trade
// window:
//
//	<dir>/<window>/cache/<TICKER>.json
//	<dir>/<window>/buy.json
//	<dir>/<window>/short_sell.json
//	<dir>/<window>/<TICKER>_<avg>_<total>_data.json
package history

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/selection"
	"sentiment-trader/internal/types"
)

// WindowLayout names a trade window directory: BuyTime in exchange-local time.
const WindowLayout = "2006-01-02_1504"

// WindowName keys every artifact of one trading window.
func WindowName(p types.TradePeriod, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return p.BuyTime.In(loc).Format(WindowLayout)
}

// Store is the history file for each window and action. Every Append
// rewrites the file deduplicated, so the on-disk list never holds a ticker
// twice.
type Store struct {
	dir string
	mu  sync.Mutex
}

var _ interfaces.HistoryStore = (*Store)(nil)

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(window string, action types.Action) string {
	return filepath.Join(s.dir, window, string(action)+".json")
}

// Append adds entries to the action's history for window and returns the
// stored list.
func (s *Store) Append(ctx context.Context, window string, action types.Action, entries []types.HistoryEntry) ([]types.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(window, action)
	var existing []types.HistoryEntry
	if err := readJSON(path, &existing); err != nil {
		return nil, fmt.Errorf("load %s history: %w", action, err)
	}

	merged := selection.Deduplicate(append(existing, entries...))
	if err := writeJSON(path, merged); err != nil {
		return nil, fmt.Errorf("write %s history: %w", action, err)
	}
	return merged, nil
}

func (s *Store) Load(ctx context.Context, window string, action types.Action) ([]types.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []types.HistoryEntry
	if err := readJSON(s.path(window, action), &entries); err != nil {
		return nil, fmt.Errorf("load %s history: %w", action, err)
	}
	return entries, nil
}

// Cache keeps scored records per window and ticker in plain JSON files.
type Cache struct {
	dir string
	mu  sync.Mutex
}

var _ interfaces.RecordCache = (*Cache)(nil)

func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) path(window, ticker string) string {
	return filepath.Join(c.dir, window, "cache", strings.ToUpper(ticker)+".json")
}

// Load returns nil when the ticker was never cached for window.
func (c *Cache) Load(ctx context.Context, window, ticker string) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var records []types.Record
	if err := readJSON(c.path(window, ticker), &records); err != nil {
		return nil, fmt.Errorf("load cache %s/%s: %w", window, ticker, err)
	}
	return records, nil
}

func (c *Cache) Save(ctx context.Context, window, ticker string, records []types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if records == nil {
		records = []types.Record{}
	}
	if err := writeJSON(c.path(window, ticker), records); err != nil {
		return fmt.Errorf("save cache %s/%s: %w", window, ticker, err)
	}
	return nil
}
