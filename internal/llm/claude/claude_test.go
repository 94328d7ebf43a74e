package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg := store.Default()
	cfg.LLM.BaseURL = srv.URL
	s, err := NewScorer(cfg)
	require.NoError(t, err)
	return s
}

const messageJSON = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-haiku-latest",
  "content": [{"type": "text", "text": "YES\nRecord quarterly revenue."}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 40, "output_tokens": 8}
}`

func TestScore(t *testing.T) {
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, defaultModel, body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageJSON))
	})

	v, err := s.Score(context.Background(), "MSFT", types.Headline{Title: "Microsoft posts record revenue"})
	require.NoError(t, err)
	assert.Equal(t, types.Positive, v.Sentiment)
	assert.Equal(t, "YES Record quarterly revenue.", v.Response)
}

func TestScoreRateLimited(t *testing.T) {
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	})

	_, err := s.Score(context.Background(), "MSFT", types.Headline{Title: "x"})
	var rl *llm.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 3*time.Second, rl.RetryAfter)
}

func TestScoreServerError(t *testing.T) {
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	})

	_, err := s.Score(context.Background(), "MSFT", types.Headline{Title: "x"})
	require.Error(t, err)
	assert.False(t, llm.IsRateLimit(err))
}

func TestNewScorerRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewScorer(store.Default())
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}
