package gemini

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"sentiment-trader/internal/llm"
	"sentiment-trader/internal/store"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

const (
	defaultModel  = "gemini-2.0-flash"
	defaultKeyEnv = "GEMINI_API_KEY"
)

// generator is the part of *genai.Models the scorer uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Scorer struct {
	models      generator
	model       string
	system      string
	maxTokens   int32
	temperature float32
}

func NewScorer(ctx context.Context, cfg *store.Config) (*Scorer, error) {
	keyEnv := cfg.LLM.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultKeyEnv
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", llm.ErrMissingAPIKey, keyEnv)
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.LLM.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.LLM.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return newScorer(client.Models, cfg), nil
}

func newScorer(models generator, cfg *store.Config) *Scorer {
	model := cfg.LLM.Model
	if model == "" {
		model = defaultModel
	}
	system := cfg.LLM.System
	if system == "" {
		system = llm.DefaultSystemPrompt
	}
	return &Scorer{
		models:      models,
		model:       model,
		system:      system,
		maxTokens:   int32(cfg.LLM.MaxTokens),
		temperature: cfg.LLM.Temperature,
	}
}

func (s *Scorer) Score(ctx context.Context, ticker string, h types.Headline) (types.Verdict, error) {
	ctx, span := trace.StartSpan(ctx, "gemini-api-call")
	defer span.End()

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(s.temperature),
		MaxOutputTokens:   s.maxTokens,
		SystemInstruction: genai.NewContentFromText(s.system, genai.RoleUser),
	}
	contents := []*genai.Content{genai.NewContentFromText(llm.UserPrompt(ticker, h.Title), genai.RoleUser)}

	resp, err := s.models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		if isRateLimit(err) {
			return types.Verdict{}, &llm.RateLimitError{Provider: "gemini", RetryAfter: retryDelay(err), Err: err}
		}
		return types.Verdict{}, fmt.Errorf("gemini: %w", err)
	}

	var text strings.Builder
	if resp != nil {
		for _, c := range resp.Candidates {
			if c == nil || c.Content == nil {
				continue
			}
			for _, p := range c.Content.Parts {
				if p != nil {
					text.WriteString(p.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}
	return llm.ParseVerdict(text.String())
}

// The genai client reports quota rejections only in the error text.
func isRateLimit(err error) bool {
	s := err.Error()
	return strings.Contains(s, "429") ||
		strings.Contains(s, "RESOURCE_EXHAUSTED") ||
		strings.Contains(s, "quota")
}

var retryDelayRe = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

func retryDelay(err error) time.Duration {
	m := retryDelayRe.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return 0
	}
	secs, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
