package llm

import (
	"fmt"
	"strings"

	"sentiment-trader/internal/types"
)

// DefaultSystemPrompt asks for a one-word verdict on the first line.
const DefaultSystemPrompt = "You are a financial expert with stock recommendation experience. " +
	"Answer \"YES\" if good news, \"NO\" if bad news, or \"UNKNOWN\" if uncertain in the first line. " +
	"Then elaborate with one short and concise sentence on the next line."

// UserPrompt renders the per-headline question.
func UserPrompt(ticker, headline string) string {
	return fmt.Sprintf("Is this headline good or bad for the stock price of %s in the short term? Headline: %s",
		ticker, strings.TrimSpace(headline))
}

// ParseVerdict maps a raw model reply to a Verdict. Only the first word is
// significant; the reply is kept with newlines flattened for the record.
func ParseVerdict(raw string) (types.Verdict, error) {
	flat := strings.Join(strings.Fields(raw), " ")
	if flat == "" {
		return types.Verdict{}, ErrEmptyResponse
	}

	first := strings.ToUpper(strings.Trim(strings.Fields(flat)[0], "\"'*.,:;!"))
	v := types.Verdict{Response: flat}
	switch {
	case strings.Contains(first, "YES"):
		v.Sentiment = types.Positive
	case strings.Contains(first, "UNKNOWN"):
		v.Sentiment = types.Neutral
	case strings.Contains(first, "NO"):
		v.Sentiment = types.Negative
	default:
		return types.Verdict{Response: flat}, fmt.Errorf("%w: %q", ErrUnparseable, truncate(flat, 80))
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
