package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trader/internal/llm"
	"sentiment-trader/internal/store"
	"sentiment-trader/internal/types"
)

func newTestScorer(t *testing.T, h http.HandlerFunc) *Scorer {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg := store.Default()
	cfg.LLM.BaseURL = srv.URL
	s, err := NewScorer(cfg)
	require.NoError(t, err)
	return s
}

func TestScore(t *testing.T) {
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, defaultModel, req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, llm.DefaultSystemPrompt, req.Messages[0].Content)
		assert.Contains(t, req.Messages[1].Content, "stock price of AAPL")
		assert.Contains(t, req.Messages[1].Content, "Apple recalls iPhones")

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"NO\nA recall hurts near-term sales."}}]}`))
	})

	v, err := s.Score(context.Background(), "AAPL", types.Headline{Title: "Apple recalls iPhones"})
	require.NoError(t, err)
	assert.Equal(t, types.Negative, v.Sentiment)
	assert.Equal(t, "NO A recall hurts near-term sales.", v.Response)
}

func TestScoreRateLimited(t *testing.T) {
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := s.Score(context.Background(), "AAPL", types.Headline{Title: "x"})
	var rl *llm.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "openai", rl.Provider)
	assert.EqualValues(t, 2e9, rl.RetryAfter)
}

func TestScoreUnparseable(t *testing.T) {
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Perhaps."}}]}`))
	})

	_, err := s.Score(context.Background(), "AAPL", types.Headline{Title: "x"})
	assert.ErrorIs(t, err, llm.ErrUnparseable)
	assert.False(t, llm.IsRateLimit(err))
}

func TestScoreNoChoices(t *testing.T) {
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := s.Score(context.Background(), "AAPL", types.Headline{Title: "x"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestNewScorerRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewScorer(store.Default())
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}
