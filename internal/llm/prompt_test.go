package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/types"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		raw  string
		want types.Sentiment
	}{
		{"YES\nStrong earnings beat.", types.Positive},
		{"yes, guidance raised", types.Positive},
		{"\"NO\"\nLawsuit filed.", types.Negative},
		{"No. Recall announced.", types.Negative},
		{"UNKNOWN\nMixed signals.", types.Neutral},
		{"**Unknown**: hard to say", types.Neutral},
	}
	for _, tt := range tests {
		v, err := ParseVerdict(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, v.Sentiment, tt.raw)
		assert.NotContains(t, v.Response, "\n")
	}
}

func TestParseVerdictFailures(t *testing.T) {
	_, err := ParseVerdict("   \n ")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = ParseVerdict("Maybe, it depends")
	assert.ErrorIs(t, err, ErrUnparseable)

	v, err := ParseVerdict("N/A")
	assert.ErrorIs(t, err, ErrUnparseable)
	assert.Equal(t, "N/A", v.Response)
}

func TestUserPrompt(t *testing.T) {
	p := UserPrompt("AAPL", "  Apple beats estimates ")
	assert.Equal(t, "Is this headline good or bad for the stock price of AAPL in the short term? Headline: Apple beats estimates", p)
}

func TestRateLimitError(t *testing.T) {
	base := errors.New("429")
	err := fmt.Errorf("score: %w", &RateLimitError{Provider: "openai", Err: base})
	assert.True(t, IsRateLimit(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsRateLimit(base))
}
