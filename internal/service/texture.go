package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/atelierapp/atelier-server/internal/domain"
	"github.com/atelierapp/atelier-server/internal/id"
	"github.com/atelierapp/atelier-server/internal/imagegen"
	"github.com/atelierapp/atelier-server/internal/normalize"
	"github.com/atelierapp/atelier-server/internal/semantic"
	"github.com/atelierapp/atelier-server/internal/store"
	"github.com/atelierapp/atelier-server/internal/validation"
)

// TextureService resolves incoming texture names against the catalog and
// materializes new entries when nothing matches.
type TextureService struct {
	store      *store.Store
	matcher    *semantic.Matcher
	inferencer *semantic.Inferencer
	queue      imagegen.Queue
	logger     *slog.Logger
	validator  *validation.Validator
}

// NewTextureService creates a new texture service.
func NewTextureService(st *store.Store, matcher *semantic.Matcher, inferencer *semantic.Inferencer, queue imagegen.Queue, logger *slog.Logger) *TextureService {
	return &TextureService{
		store:      st,
		matcher:    matcher,
		inferencer: inferencer,
		queue:      queue,
		logger:     logger,
		validator:  validation.New(),
	}
}

// MatchTextureRequest contains fields for resolving a texture name.
type MatchTextureRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	LanguageTag string `json:"language_tag" validate:"required,langtag"`
	// Descriptor optionally refines the image-generation prompt for a
	// newly materialized entry. Defaults to the raw name.
	Descriptor string `json:"descriptor" validate:"max=500"`
}

// MatchTextureResult reports how a candidate name was resolved.
type MatchTextureResult struct {
	Texture    *domain.Texture `json:"texture"`
	Created    bool            `json:"created"`
	Decision   string          `json:"decision"`
	Confidence float64         `json:"confidence"`
	// JobID is set when a new entry was materialized and an image job
	// enqueued.
	JobID string `json:"job_id,omitempty"`
}

// MatchOrCreate resolves a candidate name to an existing texture or
// materializes a new catalog entry. Two concurrent calls with the same
// normalized name converge on a single record: the fingerprint index
// rejects the loser, which then returns the winner's entry.
func (s *TextureService) MatchOrCreate(ctx context.Context, req MatchTextureRequest) (*MatchTextureResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	cand := semantic.Candidate{RawName: req.Name, LanguageTag: req.LanguageTag}

	match, err := s.matcher.Match(ctx, cand)
	if err != nil {
		return nil, err
	}

	if match.Decision == semantic.Matched {
		tex, err := s.store.GetTexture(ctx, match.TextureID)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("texture matched",
			"name", req.Name, "texture_id", tex.ID, "confidence", match.Confidence)
		return &MatchTextureResult{
			Texture:    tex,
			Decision:   string(match.Decision),
			Confidence: match.Confidence,
		}, nil
	}

	return s.materialize(ctx, req, cand, match.Confidence)
}

// materialize creates a catalog entry for an unmatched candidate: infers
// its category, writes the texture with its idempotency fingerprint, and
// enqueues image generation.
func (s *TextureService) materialize(ctx context.Context, req MatchTextureRequest, cand semantic.Candidate, confidence float64) (*MatchTextureResult, error) {
	categories, err := s.store.ListCategorySlugs(ctx)
	if err != nil {
		return nil, err
	}

	categorySlug, err := s.inferencer.Infer(ctx, cand, categories)
	if err != nil {
		return nil, err
	}
	category, err := s.store.GetCategoryBySlug(ctx, categorySlug)
	if err != nil {
		return nil, err
	}

	textureID, err := id.Generate("tex")
	if err != nil {
		return nil, err
	}

	lang := normalize.Language(req.LanguageTag)
	tex := &domain.Texture{
		Record:      domain.Record{ID: textureID},
		Name:        domain.LocalizedName{lang: req.Name},
		CategoryID:  category.ID,
		Fingerprint: normalize.IdempotencyKey(req.Name, req.LanguageTag),
	}
	tex.InitTimestamps()

	if err := s.store.CreateTexture(ctx, tex); err != nil {
		if errors.Is(err, store.ErrTextureExists) {
			// Lost a race with an equivalent candidate. Return the
			// winner's record instead of erroring.
			existing, findErr := s.store.FindTextureByFingerprint(ctx, tex.Fingerprint)
			if findErr != nil {
				return nil, findErr
			}
			s.logger.Debug("texture creation raced, returning existing entry",
				"name", req.Name, "texture_id", existing.ID)
			return &MatchTextureResult{
				Texture:    existing,
				Decision:   string(semantic.Matched),
				Confidence: 1.0,
			}, nil
		}
		return nil, err
	}

	descriptor := req.Descriptor
	if descriptor == "" {
		descriptor = req.Name
	}
	jobID, err := s.queue.Enqueue(ctx, textureID, descriptor)
	if err != nil {
		// The entry exists either way; the job is retried at next startup.
		s.logger.Warn("image job enqueue failed", "texture_id", textureID, "error", err)
	}

	s.logger.Info("texture materialized",
		"texture_id", textureID, "category", categorySlug, "job_id", jobID)
	return &MatchTextureResult{
		Texture:    tex,
		Created:    true,
		Decision:   string(semantic.NoMatch),
		Confidence: confidence,
		JobID:      jobID,
	}, nil
}

// GetTexture returns a single texture.
func (s *TextureService) GetTexture(ctx context.Context, textureID string) (*domain.Texture, error) {
	return s.store.GetTexture(ctx, textureID)
}

// ListTextures returns all textures.
func (s *TextureService) ListTextures(ctx context.Context) ([]*domain.Texture, error) {
	return s.store.ListTextures(ctx)
}

// GetImageJob returns the status of an image-generation job.
func (s *TextureService) GetImageJob(ctx context.Context, jobID string) (*domain.ImageJob, error) {
	return s.store.GetImageJob(ctx, jobID)
}
