// Package tradelog is the append-only CSV journal of selected trades.
package tradelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/types"
)

var header = []string{
	"ticker", "action", "total_articles", "average_score", "total_score", "buy_time", "sell_time",
}

type Ledger struct {
	path string
	mu   sync.Mutex
}

var _ interfaces.Ledger = (*Ledger)(nil)

func New(path string) *Ledger {
	return &Ledger{path: path}
}

func (l *Ledger) Path() string { return l.path }

// Append writes one row per entry, adding the header when the file is new.
func (l *Ledger) Append(entries ...types.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	fresh := false
	if info, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) || (err == nil && info.Size() == 0) {
		fresh = true
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := w.Write(row(e)); err != nil {
			return fmt.Errorf("write ledger row %s: %w", e.Ticker, err)
		}
	}
	w.Flush()
	return w.Error()
}

func row(e types.LedgerEntry) []string {
	return []string{
		e.Ticker,
		string(e.Action),
		strconv.Itoa(e.TotalArticles),
		strconv.FormatFloat(e.AverageScore, 'f', -1, 64),
		strconv.FormatFloat(e.TotalScore, 'f', -1, 64),
		e.BuyTime.Format(time.RFC3339),
		e.SellTime.Format(time.RFC3339),
	}
}

// Read returns every row in the ledger, oldest first.
func (l *Ledger) Read() ([]types.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var out []types.LedgerEntry
	for i, rec := range rows {
		if i == 0 && rec[0] == header[0] {
			continue
		}
		e, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", i+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseRow(rec []string) (types.LedgerEntry, error) {
	var (
		e   types.LedgerEntry
		err error
	)
	e.Ticker = rec[0]
	e.Action = types.Action(rec[1])
	if e.TotalArticles, err = strconv.Atoi(rec[2]); err != nil {
		return e, err
	}
	if e.AverageScore, err = strconv.ParseFloat(rec[3], 64); err != nil {
		return e, err
	}
	if e.TotalScore, err = strconv.ParseFloat(rec[4], 64); err != nil {
		return e, err
	}
	if e.BuyTime, err = time.Parse(time.RFC3339, rec[5]); err != nil {
		return e, err
	}
	if e.SellTime, err = time.Parse(time.RFC3339, rec[6]); err != nil {
		return e, err
	}
	return e, nil
}
