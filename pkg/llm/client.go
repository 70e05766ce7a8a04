// Package llm calls OpenAI-compatible chat completion endpoints, trying the
// routes the router resolves for a model in order.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pario-ai/fxanalyst/pkg/models"
	"github.com/pario-ai/fxanalyst/pkg/router"
)

const completionsPath = "/v1/chat/completions"

// Resolver yields the ordered provider routes for a model.
type Resolver interface {
	Resolve(model string) ([]router.Route, error)
}

// Completion is a successful model answer.
type Completion struct {
	Content  string
	Model    string
	Provider string
	Usage    *models.Usage
}

// Client sends chat completion requests.
type Client struct {
	resolver   Resolver
	http       *http.Client
	maxRetries int
	backoff    func(attempt int) time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetries sets how many times a rate-limited request is retried per route.
func WithRetries(n int, backoff func(attempt int) time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		if backoff != nil {
			c.backoff = backoff
		}
	}
}

// New creates a Client.
func New(resolver Resolver, opts ...Option) *Client {
	c := &Client{
		resolver:   resolver,
		http:       &http.Client{Timeout: 120 * time.Second},
		maxRetries: 3,
		backoff:    exponentialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends req to the first route that answers. The request's model
// selects the routes; each route may rewrite it.
func (c *Client) Complete(ctx context.Context, req models.ChatCompletionRequest) (*Completion, error) {
	routes, err := c.resolver.Resolve(req.Model)
	if err != nil {
		return nil, fmt.Errorf("resolve routes: %w", err)
	}

	var lastErr error
	for _, route := range routes {
		var out *Completion
		err := retryWithBackoff(ctx, c.maxRetries, c.backoff, func() error {
			var err error
			out, err = c.do(ctx, route, req)
			return err
		})
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !nextRoute(err) {
			return nil, err
		}
		log.Printf("upstream %s failed: %v, trying next", route.Provider, err)
		lastErr = err
	}
	return nil, fmt.Errorf("all upstream providers failed: %w", lastErr)
}

// HasAPIKey reports whether any route for model carries an API key. A
// resolve failure reports true so that Complete returns the real error.
func (c *Client) HasAPIKey(model string) bool {
	routes, err := c.resolver.Resolve(model)
	if err != nil {
		return true
	}
	for _, r := range routes {
		if r.APIKey != "" {
			return true
		}
	}
	return false
}

func (c *Client) do(ctx context.Context, route router.Route, req models.ChatCompletionRequest) (*Completion, error) {
	req.Model = route.Model
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, route.URL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+route.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(route.Provider, resp.StatusCode, body)
	}

	var result models.ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	return &Completion{
		Content:  result.Choices[0].Message.Content,
		Model:    result.Model,
		Provider: route.Provider,
		Usage:    result.Usage,
	}, nil
}

func statusError(provider string, status int, body []byte) error {
	se := &StatusError{Provider: provider, StatusCode: status}
	var apiErr models.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		se.Code = apiErr.Error.Code
		se.Message = apiErr.Error.Message
	} else {
		se.Message = string(bytes.TrimSpace(body))
	}
	return se
}
