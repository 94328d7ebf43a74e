// Package cache holds the embedded record cache used when storage.cache is
// "badger".
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// entry is one ticker's records for one window.
type entry struct {
	Key       string
	Window    string `badgerhold:"index"`
	Ticker    string
	Records   []types.Record
	UpdatedAt time.Time
}

type BadgerStore struct {
	store *badgerhold.Store
	path  string
}

var _ interfaces.RecordCache = (*BadgerStore)(nil)

// Open creates the database directory if needed.
func Open(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}
	logger.Debug(context.Background(), "Badger record cache opened", "path", path)
	return &BadgerStore{store: store, path: path}, nil
}

func key(window, ticker string) string {
	return window + "/" + ticker
}

// Load returns nil when the ticker was never cached for window.
func (s *BadgerStore) Load(ctx context.Context, window, ticker string) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var e entry
	if err := s.store.Get(key(window, ticker), &e); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cached records: %w", err)
	}
	return e.Records, nil
}

func (s *BadgerStore) Save(ctx context.Context, window, ticker string, records []types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := entry{
		Key:       key(window, ticker),
		Window:    window,
		Ticker:    ticker,
		Records:   records,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.Upsert(e.Key, &e); err != nil {
		return fmt.Errorf("failed to save cached records: %w", err)
	}
	return nil
}

// Tickers lists the tickers cached for window.
func (s *BadgerStore) Tickers(window string) ([]string, error) {
	var entries []entry
	if err := s.store.Find(&entries, badgerhold.Where("Window").Eq(window).Index("Window").SortBy("Ticker")); err != nil {
		return nil, fmt.Errorf("failed to list cached tickers: %w", err)
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Ticker
	}
	return out, nil
}

// Purge drops every window older than before (by window name order).
func (s *BadgerStore) Purge(before string) (int, error) {
	q := badgerhold.Where("Window").Lt(before)
	n, err := s.store.Count(&entry{}, q)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale entries: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.store.DeleteMatching(&entry{}, q); err != nil {
		return 0, fmt.Errorf("failed to purge stale entries: %w", err)
	}
	return int(n), nil
}

// Compact runs value log GC until badger has nothing left to rewrite.
func (s *BadgerStore) Compact() error {
	for {
		err := s.store.Badger().RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("value log gc: %w", err)
		}
	}
}

func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
