package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/atelierapp/atelier-server/internal/domain"
	"github.com/atelierapp/atelier-server/internal/service"
)

func (s *Server) registerTextureRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "matchTexture",
		Method:      http.MethodPost,
		Path:        "/api/v1/textures/match",
		Summary:     "Match or create texture",
		Description: "Resolves a texture name against the catalog, materializing a new entry when nothing matches",
		Tags:        []string{"Textures"},
	}, s.handleMatchTexture)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTextures",
		Method:      http.MethodGet,
		Path:        "/api/v1/textures",
		Summary:     "List textures",
		Description: "Returns all catalog textures",
		Tags:        []string{"Textures"},
	}, s.handleListTextures)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTexture",
		Method:      http.MethodGet,
		Path:        "/api/v1/textures/{id}",
		Summary:     "Get texture",
		Description: "Returns a texture by ID",
		Tags:        []string{"Textures"},
	}, s.handleGetTexture)

	huma.Register(s.api, huma.Operation{
		OperationID: "getImageJob",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{id}",
		Summary:     "Get image job",
		Description: "Returns the status of an image-generation job",
		Tags:        []string{"Textures"},
	}, s.handleGetImageJob)
}

// === DTOs ===

type MatchTextureRequest struct {
	Name        string `json:"name" doc:"Texture name to resolve"`
	LanguageTag string `json:"language_tag" doc:"BCP 47 language tag of the name"`
	Descriptor  string `json:"descriptor,omitempty" doc:"Optional image-generation descriptor"`
}

type MatchTextureInput struct {
	Body MatchTextureRequest
}

type TextureResponse struct {
	ID          string            `json:"id" doc:"Texture ID"`
	Name        map[string]string `json:"name" doc:"Localized display names keyed by language"`
	CategoryID  string            `json:"category_id" doc:"Material category ID"`
	ImageURL    string            `json:"image_url,omitempty" doc:"Generated image location, empty until ready"`
	Fingerprint string            `json:"fingerprint" doc:"Idempotency fingerprint"`
	CreatedAt   time.Time         `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time         `json:"updated_at" doc:"Last update time"`
}

type MatchTextureResponse struct {
	Texture    TextureResponse `json:"texture" doc:"The resolved or materialized texture"`
	Created    bool            `json:"created" doc:"Whether a new entry was materialized"`
	Decision   string          `json:"decision" doc:"Match decision: matched or no_match"`
	Confidence float64         `json:"confidence" doc:"Match confidence in [0, 1]"`
	JobID      string          `json:"job_id,omitempty" doc:"Image-generation job ID for new entries"`
}

type MatchTextureOutput struct {
	Body MatchTextureResponse
}

type ListTexturesResponse struct {
	Textures []TextureResponse `json:"textures" doc:"List of textures"`
}

type ListTexturesOutput struct {
	Body ListTexturesResponse
}

type GetTextureInput struct {
	ID string `path:"id" doc:"Texture ID"`
}

type TextureOutput struct {
	Body TextureResponse
}

type GetImageJobInput struct {
	ID string `path:"id" doc:"Image job ID"`
}

type ImageJobResponse struct {
	ID        string    `json:"id" doc:"Job ID"`
	TextureID string    `json:"texture_id" doc:"Texture the job renders"`
	Status    string    `json:"status" doc:"Job status: queued, complete, or failed"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

type ImageJobOutput struct {
	Body ImageJobResponse
}

// === Handlers ===

func (s *Server) handleMatchTexture(ctx context.Context, input *MatchTextureInput) (*MatchTextureOutput, error) {
	res, err := s.services.Texture.MatchOrCreate(ctx, service.MatchTextureRequest{
		Name:        input.Body.Name,
		LanguageTag: input.Body.LanguageTag,
		Descriptor:  input.Body.Descriptor,
	})
	if err != nil {
		return nil, err
	}

	return &MatchTextureOutput{Body: MatchTextureResponse{
		Texture:    mapTextureResponse(res.Texture),
		Created:    res.Created,
		Decision:   res.Decision,
		Confidence: res.Confidence,
		JobID:      res.JobID,
	}}, nil
}

func (s *Server) handleListTextures(ctx context.Context, _ *struct{}) (*ListTexturesOutput, error) {
	textures, err := s.services.Texture.ListTextures(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]TextureResponse, len(textures))
	for i, t := range textures {
		resp[i] = mapTextureResponse(t)
	}

	return &ListTexturesOutput{Body: ListTexturesResponse{Textures: resp}}, nil
}

func (s *Server) handleGetTexture(ctx context.Context, input *GetTextureInput) (*TextureOutput, error) {
	t, err := s.services.Texture.GetTexture(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &TextureOutput{Body: mapTextureResponse(t)}, nil
}

func (s *Server) handleGetImageJob(ctx context.Context, input *GetImageJobInput) (*ImageJobOutput, error) {
	job, err := s.services.Texture.GetImageJob(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &ImageJobOutput{Body: ImageJobResponse{
		ID:        job.ID,
		TextureID: job.TextureID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}}, nil
}

// === Mappers ===

func mapTextureResponse(t *domain.Texture) TextureResponse {
	return TextureResponse{
		ID:          t.ID,
		Name:        t.Name,
		CategoryID:  t.CategoryID,
		ImageURL:    t.ImageURL,
		Fingerprint: t.Fingerprint,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
