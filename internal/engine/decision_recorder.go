package engine

import (
	"context"
	"fmt"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/metrics"
	"sentiment-trader/internal/types"
)

// decisionRecorder persists selections: history, decision files and ledger
// rows. No orders are placed.
type decisionRecorder struct {
	history   interfaces.HistoryStore
	decisions DecisionWriter
	ledger    interfaces.Ledger
	metrics   *metrics.Recorder
}

func newDecisionRecorder(h interfaces.HistoryStore, d DecisionWriter, l interfaces.Ledger, rec *metrics.Recorder) *decisionRecorder {
	return &decisionRecorder{history: h, decisions: d, ledger: l, metrics: rec}
}

func entries(sel types.RankedSelection) []types.HistoryEntry {
	out := make([]types.HistoryEntry, len(sel))
	for i, a := range sel {
		out[i] = types.NewHistoryEntry(a)
	}
	return out
}

// checkpoint writes the current worst selection so a crash mid-run keeps
// what was scored so far.
func (r *decisionRecorder) checkpoint(ctx context.Context, window string, worst types.RankedSelection) error {
	if len(worst) == 0 {
		return nil
	}
	_, err := r.history.Append(ctx, window, types.ActionShortSell, entries(worst))
	return err
}

func (r *decisionRecorder) record(ctx context.Context, window string, action types.Action, sel types.RankedSelection) error {
	r.metrics.Selected(string(action), len(sel))
	if len(sel) == 0 {
		logger.Info(ctx, "Nothing selected", "action", action)
		return nil
	}

	hist := entries(sel)
	if _, err := r.history.Append(ctx, window, action, hist); err != nil {
		return err
	}

	rows := make([]types.LedgerEntry, 0, len(sel))
	for _, h := range hist {
		avg := 0.0
		if h.AverageScore != nil {
			avg = *h.AverageScore
		}

		fields := []any{"window", window, "total_score", h.TotalScore, "buy_time", h.BuyTime, "sell_time", h.SellTime}
		if r.decisions != nil {
			path, err := r.decisions.WriteDecision(window, action, h)
			if err != nil {
				return fmt.Errorf("decision %s: %w", h.Ticker, err)
			}
			fields = append(fields, "file", path)
		}
		logger.Decision(ctx, h.Ticker, string(action), avg, h.TotalArticles, fields...)

		rows = append(rows, types.LedgerEntry{
			Ticker:        h.Ticker,
			Action:        action,
			TotalArticles: h.TotalArticles,
			AverageScore:  avg,
			TotalScore:    h.TotalScore,
			BuyTime:       h.BuyTime,
			SellTime:      h.SellTime,
		})
	}

	if r.ledger == nil {
		return nil
	}
	return r.ledger.Append(rows...)
}
