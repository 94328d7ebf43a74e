package selection

import "sentiment-trader/internal/types"

// Deduplicate keeps one entry per ticker: the one with the most records.
// Ties go to the latest BuyTime, then to the entry appended last. Tickers
// keep the order of their first appearance.
func Deduplicate(entries []types.HistoryEntry) []types.HistoryEntry {
	best := make(map[string]int, len(entries))
	var order []string

	for i, e := range entries {
		j, seen := best[e.Ticker]
		if !seen {
			best[e.Ticker] = i
			order = append(order, e.Ticker)
			continue
		}
		if preferred(e, entries[j]) {
			best[e.Ticker] = i
		}
	}

	out := make([]types.HistoryEntry, 0, len(order))
	for _, t := range order {
		out = append(out, entries[best[t]])
	}
	return out
}

// preferred reports whether later entry a should replace earlier entry b.
func preferred(a, b types.HistoryEntry) bool {
	if len(a.Records) != len(b.Records) {
		return len(a.Records) > len(b.Records)
	}
	return !a.BuyTime.Before(b.BuyTime)
}
