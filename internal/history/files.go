package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"sentiment-trader/internal/selection"
	"sentiment-trader/internal/types"
)

// readJSON leaves v untouched when path does not exist.
func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Decision is the per-trade record written next to the window's history.
type Decision struct {
	Action types.Action `json:"action"`
	types.HistoryEntry
}

// DecisionFile is "<TICKER>_<avg>_<total>_data.json" with the average at two
// decimals and the total score rounded to an integer.
func DecisionFile(e types.HistoryEntry) string {
	avg := "nan"
	if e.AverageScore != nil {
		r := math.Round(*e.AverageScore*100) / 100
		if r == 0 {
			r = 0 // drop the sign of -0
		}
		avg = strconv.FormatFloat(r, 'f', -1, 64)
	}
	return fmt.Sprintf("%s_%s_%d_data.json", e.Ticker, avg, int(math.Round(e.TotalScore)))
}

// WriteDecision stores the decision record for one selected ticker and
// returns its path.
func (s *Store) WriteDecision(window string, action types.Action, e types.HistoryEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.WindowDecisionPath(window, e)
	if err := writeJSON(path, Decision{Action: action, HistoryEntry: e}); err != nil {
		return "", fmt.Errorf("write decision %s: %w", e.Ticker, err)
	}
	return path, nil
}

// Windows lists the window directories under the data dir, oldest first.
func (s *Store) Windows() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Compact re-applies deduplication to every history file of window. It
// returns how many entries were removed.
func (s *Store) Compact(window string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, action := range []types.Action{types.ActionBuy, types.ActionShortSell} {
		path := s.path(window, action)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		var entries []types.HistoryEntry
		if err := readJSON(path, &entries); err != nil {
			return removed, fmt.Errorf("read %s: %w", path, err)
		}
		deduped := selection.Deduplicate(entries)
		if len(deduped) == len(entries) {
			continue
		}
		if err := writeJSON(path, deduped); err != nil {
			return removed, fmt.Errorf("write %s: %w", path, err)
		}
		removed += len(entries) - len(deduped)
	}
	return removed, nil
}

// WindowDecisionPath is where WriteDecision puts the record for e.
func (s *Store) WindowDecisionPath(window string, e types.HistoryEntry) string {
	return filepath.Join(s.dir, window, DecisionFile(e))
}
