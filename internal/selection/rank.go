// Package selection picks trade candidates from per-ticker aggregates and
// keeps persisted decision history free of duplicate tickers.
package selection

import (
	"fmt"
	"sort"

	"sentiment-trader/internal/types"
)

type Direction int

const (
	// Worst ranks by ascending average score (short-sell candidates).
	Worst Direction = iota
	// Best ranks by descending average score (buy candidates).
	Best
)

func (d Direction) String() string {
	switch d {
	case Worst:
		return "worst"
	case Best:
		return "best"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Action is the trade a direction's selection feeds.
func (d Direction) Action() types.Action {
	if d == Best {
		return types.ActionBuy
	}
	return types.ActionShortSell
}

// MinRecords is the evidence a ticker needs to occupy a selection slot.
const MinRecords = 2

// Rank orders aggs by average score in the given direction and walks the
// result. A ticker backed by fewer than MinRecords records is always
// included but widens the selection by one, so only well-evidenced tickers
// count toward target. Tickers without an average are skipped. Equal
// averages keep input order.
func Rank(aggs []types.TickerAggregate, dir Direction, target int) types.RankedSelection {
	if target <= 0 {
		return nil
	}

	ranked := make([]types.TickerAggregate, 0, len(aggs))
	for _, a := range aggs {
		if a.AverageScore != nil {
			ranked = append(ranked, a)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if dir == Best {
			return *ranked[i].AverageScore > *ranked[j].AverageScore
		}
		return *ranked[i].AverageScore < *ranked[j].AverageScore
	})

	var out types.RankedSelection
	strong := 0
	for _, a := range ranked {
		if strong >= target {
			break
		}
		out = append(out, a)
		if len(a.Records) >= MinRecords {
			strong++
		}
	}
	return out
}
