package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/tluyben/huntflow/schema"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini completes prompts through the Google GenAI API using a response
// JSON schema.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini client. A zero timeout disables the deadline.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

// Complete implements Client.
func (g *Gemini) Complete(ctx context.Context, prompt string, out schema.Schema) (any, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	system, err := Instructions(out)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(schema.Describe(out))
	if err != nil {
		return nil, err
	}
	var responseSchema map[string]any
	if err := json.Unmarshal(raw, &responseSchema); err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction:  genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: responseSchema,
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		slog.Debug("completion request failed",
			slog.String("model", g.model),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &Error{Kind: ServiceError, Provider: "gemini", StatusCode: apiErr.Code, Err: err}
		}
		return nil, transportError(ctx, "gemini", err)
	}
	slog.Debug("completion request completed",
		slog.String("model", g.model),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	v, err := ParseOutput(resp.Text())
	if err != nil {
		return nil, withProvider(err, "gemini")
	}
	return v, nil
}
