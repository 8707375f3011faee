// Package semantic decides whether a candidate texture name refers to the
// same real-world material as an existing catalog entry, using structured
// generative-model calls for cross-language comparison, and classifies
// unmatched candidates into the closed category set.
package semantic

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/atelierapp/atelier-server/internal/errors"
)

// Generator issues a single structured-output request to the model provider
// and decodes the response into out. Implementations must respect ctx
// cancellation and deadlines.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema, out any) error
}

// GeminiClient is a rate-limited Generator backed by the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	timeout time.Duration
}

// GeminiConfig configures the Gemini-backed generator.
type GeminiConfig struct {
	APIKey  string
	Model   string
	RPS     float64
	Burst   int
	Timeout time.Duration
}

// NewGeminiClient creates a Gemini-backed generator.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		timeout: cfg.Timeout,
	}, nil
}

// GenerateStructured implements Generator. The per-call timeout bounds the
// model request; the rate limiter smooths outbound traffic.
func (c *GeminiClient) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return errors.ModelUnavailable(err)
	}

	text := resp.Text()
	if text == "" {
		return errors.ModelUnavailable(fmt.Errorf("empty model response"))
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return errors.InvalidInferencef("model response is not valid JSON: %v", err)
	}
	return nil
}
