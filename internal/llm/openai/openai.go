package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"sentiment-trader/internal/api"
	"sentiment-trader/internal/llm"
	"sentiment-trader/internal/store"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultKeyEnv  = "OPENAI_API_KEY"
)

// Scorer asks the chat completions endpoint for a YES/NO/UNKNOWN verdict.
type Scorer struct {
	client      *api.Client
	model       string
	system      string
	maxTokens   int
	temperature float32
	retry       *api.RetryConfig
}

func NewScorer(cfg *store.Config) (*Scorer, error) {
	keyEnv := cfg.LLM.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultKeyEnv
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", llm.ErrMissingAPIKey, keyEnv)
	}

	baseURL := strings.TrimRight(cfg.LLM.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.LLM.Model
	if model == "" {
		model = defaultModel
	}
	system := cfg.LLM.System
	if system == "" {
		system = llm.DefaultSystemPrompt
	}

	return &Scorer{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(cfg.LLM.Timeout),
			api.WithHeader("Authorization", "Bearer "+apiKey),
			api.WithLogging(true),
		),
		model:       model,
		system:      system,
		maxTokens:   cfg.LLM.MaxTokens,
		temperature: cfg.LLM.Temperature,
		retry:       &api.RetryConfig{MaxAttempts: 2, InitialWait: time.Second, MaxWait: 2 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *Scorer) Score(ctx context.Context, ticker string, h types.Headline) (types.Verdict, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	body := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: s.system},
			{Role: "user", Content: llm.UserPrompt(ticker, h.Title)},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}

	req := api.NewRequest(ctx, http.MethodPost, "/chat/completions").WithBody(body)
	resp, err := s.client.DoWithRetry(req, s.retry)
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
			return types.Verdict{}, &llm.RateLimitError{Provider: "openai", RetryAfter: se.RetryAfter, Err: err}
		}
		return types.Verdict{}, fmt.Errorf("openai: %w", err)
	}

	var r chatResponse
	if err := resp.ParseJSON(&r); err != nil {
		return types.Verdict{}, fmt.Errorf("openai: %w", err)
	}
	if len(r.Choices) == 0 {
		return types.Verdict{}, fmt.Errorf("openai: %w", llm.ErrEmptyResponse)
	}

	return llm.ParseVerdict(r.Choices[0].Message.Content)
}
