package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/atelierapp/atelier-server/internal/domain"
	"github.com/atelierapp/atelier-server/internal/errors"
	"github.com/atelierapp/atelier-server/internal/normalize"
	"github.com/atelierapp/atelier-server/internal/store"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

// Default matching parameters; both are configurable.
const (
	DefaultThreshold    = 0.75
	DefaultMaxRetries   = 1
	DefaultRetryBackoff = 500 * time.Millisecond
)

// Decision is the binary outcome of a match. Confidence below the threshold
// is always NoMatch, never "uncertain".
type Decision string

// Match decisions.
const (
	Matched Decision = "matched"
	NoMatch Decision = "no_match"
)

// Candidate is a texture name to resolve against the catalog.
type Candidate struct {
	RawName     string
	LanguageTag string
}

// MatchResult is the outcome of resolving a candidate.
type MatchResult struct {
	Candidate  Candidate
	TextureID  string
	Confidence float64
	Decision   Decision
}

// Catalog is the read-only texture index the matcher consults.
type Catalog interface {
	FindTextureByName(ctx context.Context, name string) (*domain.Texture, error)
	ListTextures(ctx context.Context) ([]*domain.Texture, error)
}

// MatcherConfig tunes matching behavior.
type MatcherConfig struct {
	Threshold    float64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Matcher resolves candidate names to existing textures: an exact
// normalized-name check first (no model call), then one structured
// semantic comparison across both catalog languages.
type Matcher struct {
	catalog  Catalog
	gen      Generator
	recorder *telemetry.Recorder
	logger   *slog.Logger
	cfg      MatcherConfig
}

// NewMatcher creates a matcher. Zero config fields fall back to defaults.
func NewMatcher(catalog Catalog, gen Generator, recorder *telemetry.Recorder, logger *slog.Logger, cfg MatcherConfig) *Matcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	return &Matcher{catalog: catalog, gen: gen, recorder: recorder, logger: logger, cfg: cfg}
}

// matchResponse is the structured model output for a match request.
type matchResponse struct {
	TextureID  string  `json:"texture_id"`
	Confidence float64 `json:"confidence"`
}

var matchSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"texture_id": {
			Type:        genai.TypeString,
			Description: "ID of the best matching texture, or empty string when nothing matches",
		},
		"confidence": {
			Type:        genai.TypeNumber,
			Description: "Match confidence between 0 and 1",
		},
	},
	Required: []string{"texture_id", "confidence"},
}

// Match resolves a candidate. A transport failure after retries degrades to
// NoMatch (fail open toward creating a new entry) rather than erroring.
func (m *Matcher) Match(ctx context.Context, cand Candidate) (*MatchResult, error) {
	// Step 1: an exact normalized-name hit against any localized name
	// skips the model call entirely, whatever language the candidate
	// arrives in.
	if tex, err := m.catalog.FindTextureByName(ctx, cand.RawName); err == nil {
		return &MatchResult{
			Candidate:  cand,
			TextureID:  tex.ID,
			Confidence: 1.0,
			Decision:   Matched,
		}, nil
	} else if !errors.Is(err, store.ErrTextureNotFound) {
		return nil, err
	}

	textures, err := m.catalog.ListTextures(ctx)
	if err != nil {
		return nil, err
	}
	if len(textures) == 0 {
		return &MatchResult{Candidate: cand, Decision: NoMatch}, nil
	}

	resp, err := m.generateMatch(ctx, cand, textures)
	if err != nil {
		m.logger.Warn("semantic match failed, falling open to no-match",
			"name", cand.RawName,
			"language", cand.LanguageTag,
			"error", err,
		)
		return &MatchResult{Candidate: cand, Decision: NoMatch}, nil
	}

	result := &MatchResult{
		Candidate:  cand,
		TextureID:  resp.TextureID,
		Confidence: resp.Confidence,
		Decision:   Matched,
	}

	// Below-threshold confidence is forced to NoMatch regardless of the
	// model's stated match, as is an ID outside the catalog.
	if resp.TextureID == "" || resp.Confidence < m.cfg.Threshold || !textureExists(textures, resp.TextureID) {
		result.TextureID = ""
		result.Decision = NoMatch
	}
	return result, nil
}

// generateMatch issues the structured model call with one retry on failure.
// Every attempt is recorded in telemetry, including timeouts.
func (m *Matcher) generateMatch(ctx context.Context, cand Candidate, textures []*domain.Texture) (*matchResponse, error) {
	prompt := buildMatchPrompt(cand, textures)

	var lastErr error
	for attempt := 0; attempt <= m.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.cfg.RetryBackoff):
			}
		}

		var resp matchResponse
		done := m.recorder.Observe(telemetry.KindMatch)
		err := m.gen.GenerateStructured(ctx, prompt, matchSchema, &resp)
		done(err, "model_unavailable")
		if err == nil {
			return &resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func buildMatchPrompt(cand Candidate, textures []*domain.Texture) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are matching texture names for an interior-design material catalog.\n")
	fmt.Fprintf(&b, "Candidate name: %q (language: %s)\n\n", cand.RawName, normalize.Language(cand.LanguageTag))
	b.WriteString("Existing textures (id, then names per language):\n")
	for _, t := range textures {
		fmt.Fprintf(&b, "- %s:", t.ID)
		for lang, name := range t.Name {
			fmt.Fprintf(&b, " [%s] %q", lang, name)
		}
		b.WriteByte('\n')
	}
	b.WriteString("\nDecide whether the candidate names the same real-world material as one of the existing textures, across languages. Return the best texture_id and your confidence in [0,1]. Return an empty texture_id when none matches.")
	return b.String()
}

func textureExists(textures []*domain.Texture, textureID string) bool {
	for _, t := range textures {
		if t.ID == textureID {
			return true
		}
	}
	return false
}
