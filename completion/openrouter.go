package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tluyben/huntflow/schema"
)

const (
	// DefaultOpenRouterURL is the OpenRouter API base URL.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout bounds one completion, retries included.
	DefaultTimeout = 60 * time.Second

	maxResponseBytes = 10 * 1024 * 1024
)

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type jsonSchemaFormat struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenRouter completes prompts through the OpenRouter chat completions API.
type OpenRouter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	siteURL    string
	siteName   string
}

// Option is a functional option for configuring the OpenRouter client.
type Option func(*OpenRouter)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *OpenRouter) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *OpenRouter) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the deadline for one completion.
func WithTimeout(d time.Duration) Option {
	return func(c *OpenRouter) {
		c.timeout = d
	}
}

// WithMaxRetries sets how many times a rate-limited or 5xx response is
// retried.
func WithMaxRetries(n int) Option {
	return func(c *OpenRouter) {
		c.maxRetries = n
	}
}

// WithBackoff sets the delay before the first retry; it doubles on each
// subsequent attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *OpenRouter) {
		c.backoff = d
	}
}

// NewOpenRouter creates an OpenRouter client for the given model.
func NewOpenRouter(apiKey, model string, opts ...Option) *OpenRouter {
	c := &OpenRouter{
		apiKey:     apiKey,
		model:      model,
		baseURL:    DefaultOpenRouterURL,
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		maxRetries: 3,
		backoff:    time.Second,
		siteURL:    "https://github.com/tluyben/huntflow",
		siteName:   "huntflow",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete implements Client.
func (c *OpenRouter) Complete(ctx context.Context, prompt string, out schema.Schema) (any, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	system, err := Instructions(out)
	if err != nil {
		return nil, err
	}
	doc, err := schema.Document(out)
	if err != nil {
		return nil, err
	}

	jsonBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   "output",
				Schema: doc,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	for attempt := 0; ; attempt++ {
		text, retry, err := c.send(ctx, jsonBody)
		if err == nil {
			v, err := ParseOutput(text)
			if err != nil {
				return nil, withProvider(err, "openrouter")
			}
			return v, nil
		}
		if !retry || attempt >= c.maxRetries {
			return nil, err
		}

		delay := c.backoff << attempt
		slog.Debug("retrying completion",
			slog.String("provider", "openrouter"),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil, transportError(ctx, "openrouter", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// send performs one request. It reports whether a failure may be retried.
func (c *OpenRouter) send(ctx context.Context, body []byte) (string, bool, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.siteURL)
	req.Header.Set("X-Title", c.siteName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("completion request failed",
			slog.String("model", c.model),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return "", false, transportError(ctx, "openrouter", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", false, transportError(ctx, "openrouter", fmt.Errorf("reading response body: %w", err))
	}

	slog.Debug("completion request completed",
		slog.String("model", c.model),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retry, &Error{
			Kind:       ServiceError,
			Provider:   "openrouter",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(respBody))),
		}
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", false, &Error{Kind: ServiceError, Provider: "openrouter", Err: fmt.Errorf("unmarshaling response: %w", err)}
	}
	if chat.Error != nil {
		return "", false, &Error{Kind: ServiceError, Provider: "openrouter", Err: fmt.Errorf("%s", chat.Error.Message)}
	}
	if len(chat.Choices) == 0 {
		return "", false, &Error{Kind: ServiceError, Provider: "openrouter", Err: fmt.Errorf("no choices returned")}
	}
	return chat.Choices[0].Message.Content, false, nil
}
