package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/atelierapp/atelier-server/internal/errors"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

// Inferencer classifies an unmatched candidate into the closed set of known
// material categories. Unlike matching, a final failure here is fatal for
// the enclosing creation: a mis-categorized record is worse than a blocked
// one.
type Inferencer struct {
	gen      Generator
	recorder *telemetry.Recorder
	logger   *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// NewInferencer creates a category inferencer.
func NewInferencer(gen Generator, recorder *telemetry.Recorder, logger *slog.Logger, maxRetries int, retryBackoff time.Duration) *Inferencer {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if retryBackoff <= 0 {
		retryBackoff = DefaultRetryBackoff
	}
	return &Inferencer{
		gen:          gen,
		recorder:     recorder,
		logger:       logger,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
	}
}

// categoryResponse is the structured model output for an inference request.
type categoryResponse struct {
	Category string `json:"category"`
}

// Infer returns the category slug for the candidate. The response must be
// one of categories; anything else is an InvalidInference error, never
// silently coerced.
func (inf *Inferencer) Infer(ctx context.Context, cand Candidate, categories []string) (string, error) {
	if len(categories) == 0 {
		return "", errors.Internal("no categories configured")
	}

	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category": {
				Type:        genai.TypeString,
				Enum:        categories,
				Description: "Material category slug for the candidate",
			},
		},
		Required: []string{"category"},
	}
	prompt := buildInferPrompt(cand, categories)

	var lastErr error
	for attempt := 0; attempt <= inf.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(inf.retryBackoff):
			}
		}

		var resp categoryResponse
		done := inf.recorder.Observe(telemetry.KindInfer)
		err := inf.gen.GenerateStructured(ctx, prompt, schema, &resp)
		if err != nil {
			done(err, "model_unavailable")
			lastErr = err
			continue
		}

		if !slices.Contains(categories, resp.Category) {
			err := errors.InvalidInferencef("category %q is not in the known set", resp.Category)
			done(err, "invalid_inference")
			// The model may well answer differently when asked again, so
			// an out-of-set answer spends the same retry budget as a
			// failed call before becoming fatal.
			lastErr = err
			continue
		}

		done(nil, "")
		return resp.Category, nil
	}

	inf.logger.Error("category inference failed after retries",
		"name", cand.RawName,
		"error", lastErr,
	)
	if errors.Is(lastErr, errors.ErrInvalidInference) {
		return "", lastErr
	}
	return "", errors.ModelUnavailable(lastErr)
}

func buildInferPrompt(cand Candidate, categories []string) string {
	var b strings.Builder
	b.WriteString("Classify a texture name from an interior-design material catalog into exactly one category.\n")
	fmt.Fprintf(&b, "Texture name: %q (language: %s)\n", cand.RawName, cand.LanguageTag)
	fmt.Fprintf(&b, "Allowed categories: %s\n", strings.Join(categories, ", "))
	b.WriteString("Answer with one of the allowed category slugs only.")
	return b.String()
}
