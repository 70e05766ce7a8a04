// Package analysis issues analysis requests to the language model, consulting
// the response cache first.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/pario-ai/fxanalyst/pkg/cache"
	"github.com/pario-ai/fxanalyst/pkg/config"
	"github.com/pario-ai/fxanalyst/pkg/llm"
	"github.com/pario-ai/fxanalyst/pkg/models"
)

// recentCandles is how many trailing bars are sent to the model.
const recentCandles = 10

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("API key not configured")
	// ErrEmptyPrompt is returned for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrRequestTooLong is returned when the model rejects the request size.
	ErrRequestTooLong = errors.New("analysis request too long, try a shorter prompt or less market data")
)

// Completer performs the external language model call.
type Completer interface {
	Complete(ctx context.Context, req models.ChatCompletionRequest) (*llm.Completion, error)
}

// KeyChecker is implemented by completers that know which credentials their
// routes use. Without it the requester requires settings.APIKey.
type KeyChecker interface {
	HasAPIKey(model string) bool
}

// ResponseCache is the subset of *cache.Cache the requester uses.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, data string) error
}

// Result is an analysis and whether it was served from cache.
type Result struct {
	Text   string
	Cached bool
}

// Requester runs analyses. A nil cache disables caching.
type Requester struct {
	settings *config.Settings
	llm      Completer
	cache    ResponseCache
}

// New creates a Requester. settings is read on every call.
func New(settings *config.Settings, c Completer, rc ResponseCache) *Requester {
	return &Requester{settings: settings, llm: c, cache: rc}
}

// Analyze returns commentary on prompt given the market data.
//
// The cache key covers the prompt, the full market data, the model and the
// language. A cache read failure is logged and treated as a miss; a cache
// write failure is logged and the fresh result is still returned.
func (r *Requester) Analyze(ctx context.Context, prompt string, market []models.Candle) (Result, error) {
	s := r.settings
	if !r.hasAPIKey() {
		return Result{}, ErrMissingAPIKey
	}
	if strings.TrimSpace(prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}

	if len(market) == 0 {
		market = nil
	}
	key, err := cache.DeriveKey(prompt, market, s.Model, s.Language)
	if err != nil {
		return Result{}, err
	}

	if r.cache != nil {
		data, ok, err := r.cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Printf("analysis cache read failed, treating as miss: %v", err)
		case ok:
			return Result{Text: data, Cached: true}, nil
		}
	}

	req, err := r.buildRequest(prompt, market)
	if err != nil {
		return Result{}, err
	}

	out, err := r.llm.Complete(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrContextLength) {
			return Result{}, ErrRequestTooLong
		}
		return Result{}, fmt.Errorf("analysis: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, out.Content); err != nil {
			log.Printf("analysis cache write failed: %v", err)
		}
	}
	return Result{Text: out.Content}, nil
}

func (r *Requester) hasAPIKey() bool {
	if kc, ok := r.llm.(KeyChecker); ok {
		return kc.HasAPIKey(r.settings.Model)
	}
	return r.settings.APIKey != ""
}

func (r *Requester) buildRequest(prompt string, market []models.Candle) (models.ChatCompletionRequest, error) {
	s := r.settings

	recent, err := json.Marshal(summarize(market))
	if err != nil {
		return models.ChatCompletionRequest{}, fmt.Errorf("encode market data: %w", err)
	}

	system := strings.ReplaceAll(s.SystemPrompt, "{language}", s.Language)
	req := models.ChatCompletionRequest{
		Model: s.Model,
		Messages: []models.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt + "\n\nRecent market data: " + string(recent)},
		},
	}
	if s.Temperature > 0 {
		temp := s.Temperature
		req.Temperature = &temp
	}
	if s.MaxTokens > 0 {
		maxTokens := s.MaxTokens
		req.MaxTokens = &maxTokens
	}
	return req, nil
}

// summarize keeps the trailing bars and drops volume.
func summarize(market []models.Candle) []models.Candle {
	if len(market) > recentCandles {
		market = market[len(market)-recentCandles:]
	}
	out := make([]models.Candle, len(market))
	for i, c := range market {
		out[i] = models.Candle{Time: c.Time, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
	}
	return out
}
