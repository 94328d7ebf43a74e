package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"sentiment-trader/internal/llm"
	"sentiment-trader/internal/store"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

const (
	defaultModel  = "claude-3-5-haiku-latest"
	defaultKeyEnv = "ANTHROPIC_API_KEY"
)

// Scorer classifies headlines with the Anthropic Messages API.
type Scorer struct {
	client      anthropic.Client
	model       string
	system      string
	maxTokens   int64
	temperature float32
}

// NewScorer builds a scorer from the llm config section. SDK-level retries
// are disabled; rate limits surface as llm.RateLimitError for the session.
func NewScorer(cfg *store.Config, opts ...option.RequestOption) (*Scorer, error) {
	keyEnv := cfg.LLM.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultKeyEnv
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", llm.ErrMissingAPIKey, keyEnv)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.LLM.Timeout),
	}
	if cfg.LLM.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.LLM.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	model := cfg.LLM.Model
	if model == "" {
		model = defaultModel
	}
	system := cfg.LLM.System
	if system == "" {
		system = llm.DefaultSystemPrompt
	}

	return &Scorer{
		client:      anthropic.NewClient(reqOpts...),
		model:       model,
		system:      system,
		maxTokens:   int64(cfg.LLM.MaxTokens),
		temperature: cfg.LLM.Temperature,
	}, nil
}

func (s *Scorer) Score(ctx context.Context, ticker string, h types.Headline) (types.Verdict, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: s.system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(llm.UserPrompt(ticker, h.Title))),
		},
		Temperature: anthropic.Float(float64(s.temperature)),
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return types.Verdict{}, &llm.RateLimitError{
				Provider:   "claude",
				RetryAfter: retryAfter(apiErr.Response),
				Err:        err,
			}
		}
		return types.Verdict{}, fmt.Errorf("claude: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return llm.ParseVerdict(text.String())
}

func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
