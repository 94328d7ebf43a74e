package interfaces

import (
	"context"

	"sentiment-trader/internal/types"
)

// RecordCache persists scored records per trade window and ticker so a
// re-run never scores the same URL twice.
type RecordCache interface {
	Load(ctx context.Context, window, ticker string) ([]types.Record, error)
	Save(ctx context.Context, window, ticker string, records []types.Record) error
}

// HistoryStore keeps one deduplicated entry list per window and action.
type HistoryStore interface {
	Append(ctx context.Context, window string, action types.Action, entries []types.HistoryEntry) ([]types.HistoryEntry, error)
	Load(ctx context.Context, window string, action types.Action) ([]types.HistoryEntry, error)
}

// Ledger is the append-only trade journal.
type Ledger interface {
	Append(entries ...types.LedgerEntry) error
}
