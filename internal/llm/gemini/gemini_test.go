package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"sentiment-trader/internal/llm"
	"sentiment-trader/internal/store"
	"sentiment-trader/internal/types"
)

type fakeModels struct {
	text   string
	err    error
	model  string
	prompt string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.prompt = contents[0].Parts[0].Text
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(f.text, genai.RoleModel)},
		},
	}, nil
}

func TestScore(t *testing.T) {
	f := &fakeModels{text: "UNKNOWN\nGuidance is unchanged."}
	s := newScorer(f, store.Default())

	v, err := s.Score(context.Background(), "NVDA", types.Headline{Title: "Nvidia holds guidance"})
	require.NoError(t, err)
	assert.Equal(t, types.Neutral, v.Sentiment)
	assert.Equal(t, defaultModel, f.model)
	assert.Contains(t, f.prompt, "Nvidia holds guidance")
}

func TestScoreRateLimited(t *testing.T) {
	f := &fakeModels{err: errors.New("Error 429, Message: Please retry in 12.5s., Status: RESOURCE_EXHAUSTED")}
	s := newScorer(f, store.Default())

	_, err := s.Score(context.Background(), "NVDA", types.Headline{Title: "x"})
	var rl *llm.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 12500*time.Millisecond, rl.RetryAfter)
}

func TestScoreEmpty(t *testing.T) {
	s := newScorer(&fakeModels{text: ""}, store.Default())

	_, err := s.Score(context.Background(), "NVDA", types.Headline{Title: "x"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestScoreOtherError(t *testing.T) {
	s := newScorer(&fakeModels{err: errors.New("Error 400, invalid argument")}, store.Default())

	_, err := s.Score(context.Background(), "NVDA", types.Headline{Title: "x"})
	require.Error(t, err)
	assert.False(t, llm.IsRateLimit(err))
}
