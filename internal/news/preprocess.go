package news

import (
	"strings"

	"sentiment-trader/internal/types"
)

// Preprocess trims titles, drops rows without a URL or title, and keeps the
// first occurrence of each URL. Input order is preserved.
func Preprocess(headlines []types.Headline) []types.Headline {
	seen := make(map[string]bool, len(headlines))
	out := make([]types.Headline, 0, len(headlines))
	for _, h := range headlines {
		h.Title = strings.Join(strings.Fields(h.Title), " ")
		h.URL = strings.TrimSpace(h.URL)
		if h.URL == "" || h.Title == "" || seen[h.URL] {
			continue
		}
		seen[h.URL] = true
		out = append(out, h)
	}
	return out
}

// InWindow keeps the headlines published inside the collection window.
func InWindow(headlines []types.Headline, window types.TradePeriod) []types.Headline {
	out := make([]types.Headline, 0, len(headlines))
	for _, h := range headlines {
		if window.Contains(h.Published) {
			out = append(out, h)
		}
	}
	return out
}
