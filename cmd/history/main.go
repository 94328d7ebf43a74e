// Command history re-applies deduplication to the stored selection history
// and optionally trims the badger record cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"sentiment-trader/internal/cache"
	"sentiment-trader/internal/history"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	window := flag.String("window", "", "only compact this window (e.g. 2024-03-13_1600)")
	purgeBefore := flag.String("purge-before", "", "drop badger cache entries for windows before this one")
	flag.Parse()

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()

	cfg, err := store.LoadConfig(*configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", *configPath)
		os.Exit(1)
	}

	hist := history.NewStore(cfg.Storage.DataDir)
	if err := compactHistory(ctx, hist, *window); err != nil {
		logger.ErrorWithErr(ctx, "History compaction failed", err)
		os.Exit(1)
	}

	if cfg.Storage.Cache == "badger" {
		windows, err := hist.Windows()
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to list history windows", err)
			os.Exit(1)
		}
		if _, err := maintainCache(ctx, cfg.Storage.BadgerDir, windows, *purgeBefore); err != nil {
			logger.ErrorWithErr(ctx, "Cache maintenance failed", err)
			os.Exit(1)
		}
	} else if *purgeBefore != "" {
		logger.Warn(ctx, "-purge-before only applies to the badger cache", "cache", cfg.Storage.Cache)
	}
}

func compactHistory(ctx context.Context, s *history.Store, only string) error {
	windows := []string{only}
	if only == "" {
		var err error
		if windows, err = s.Windows(); err != nil {
			return err
		}
	}

	total := 0
	for _, w := range windows {
		n, err := s.Compact(w)
		if err != nil {
			return fmt.Errorf("window %s: %w", w, err)
		}
		if n > 0 {
			logger.Info(ctx, "Removed duplicate history entries", "window", w, "removed", n)
		}
		total += n
	}
	logger.Info(ctx, "History compacted", "windows", len(windows), "removed", total)
	return nil
}

// maintainCache logs the cached tickers of every known window older than
// purgeBefore, purges them and runs value log GC. It returns what was listed.
func maintainCache(ctx context.Context, dir string, windows []string, purgeBefore string) (map[string][]string, error) {
	c, err := cache.Open(dir)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	stale := make(map[string][]string)
	if purgeBefore != "" {
		for _, w := range windows {
			if w >= purgeBefore {
				continue
			}
			tickers, err := c.Tickers(w)
			if err != nil {
				return nil, fmt.Errorf("window %s: %w", w, err)
			}
			if len(tickers) > 0 {
				stale[w] = tickers
				logger.Info(ctx, "Purging cached tickers", "window", w, "tickers", tickers)
			}
		}

		n, err := c.Purge(purgeBefore)
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "Purged cached records", "before", purgeBefore, "entries", n)
	}
	return stale, c.Compact()
}
