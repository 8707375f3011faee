package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/atelierapp/atelier-server/internal/domain"
	domainerrors "github.com/atelierapp/atelier-server/internal/errors"
	"github.com/atelierapp/atelier-server/internal/id"
	"github.com/atelierapp/atelier-server/internal/normalize"
	"github.com/atelierapp/atelier-server/internal/store"
	"github.com/atelierapp/atelier-server/internal/validation"
)

// CatalogService orchestrates style, material, and category operations.
type CatalogService struct {
	store     *store.Store
	logger    *slog.Logger
	validator *validation.Validator
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store *store.Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:     store,
		logger:    logger,
		validator: validation.New(),
	}
}

// CreateStyleRequest contains fields for creating a style.
type CreateStyleRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// CreateStyle creates a new style. The slug is derived from the name.
func (s *CatalogService) CreateStyle(ctx context.Context, req CreateStyleRequest) (*domain.Style, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	styleID, err := id.Generate("sty")
	if err != nil {
		return nil, err
	}

	style := &domain.Style{
		Record:      domain.Record{ID: styleID},
		Name:        req.Name,
		Slug:        normalize.Slug(req.Name),
		Description: req.Description,
	}
	style.InitTimestamps()

	if err := s.store.CreateStyle(ctx, style); err != nil {
		if errors.Is(err, store.ErrEntityExists) {
			return nil, domainerrors.AlreadyExistsf("style with slug %q already exists", style.Slug)
		}
		return nil, err
	}

	s.logger.Info("style created", "id", styleID, "slug", style.Slug)
	return style, nil
}

// GetStyle returns a single style.
func (s *CatalogService) GetStyle(ctx context.Context, styleID string) (*domain.Style, error) {
	style, err := s.store.GetStyle(ctx, styleID)
	if err != nil {
		if errors.Is(err, store.ErrEntityNotFound) {
			return nil, domainerrors.NotFoundf("style %s not found", styleID)
		}
		return nil, err
	}
	return style, nil
}

// ListStyles returns all styles.
func (s *CatalogService) ListStyles(ctx context.Context) ([]*domain.Style, error) {
	return s.store.ListStyles(ctx)
}

// CreateMaterialRequest contains fields for creating a material.
type CreateMaterialRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=200"`
	CategorySlug string `json:"category_slug" validate:"required,slug"`
}

// CreateMaterial creates a new material bound to an existing category.
func (s *CatalogService) CreateMaterial(ctx context.Context, req CreateMaterialRequest) (*domain.Material, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	category, err := s.store.GetCategoryBySlug(ctx, req.CategorySlug)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			return nil, domainerrors.NotFoundf("category %q not found", req.CategorySlug)
		}
		return nil, err
	}

	materialID, err := id.Generate("mat")
	if err != nil {
		return nil, err
	}

	m := &domain.Material{
		Record:     domain.Record{ID: materialID},
		Name:       req.Name,
		Slug:       normalize.Slug(req.Name),
		CategoryID: category.ID,
	}
	m.InitTimestamps()

	if err := s.store.CreateMaterial(ctx, m); err != nil {
		if errors.Is(err, store.ErrEntityExists) {
			return nil, domainerrors.AlreadyExistsf("material with slug %q already exists", m.Slug)
		}
		return nil, err
	}

	s.logger.Info("material created", "id", materialID, "slug", m.Slug, "category", req.CategorySlug)
	return m, nil
}

// GetMaterial returns a single material.
func (s *CatalogService) GetMaterial(ctx context.Context, materialID string) (*domain.Material, error) {
	m, err := s.store.GetMaterial(ctx, materialID)
	if err != nil {
		if errors.Is(err, store.ErrEntityNotFound) {
			return nil, domainerrors.NotFoundf("material %s not found", materialID)
		}
		return nil, err
	}
	return m, nil
}

// ListMaterials returns all materials.
func (s *CatalogService) ListMaterials(ctx context.Context) ([]*domain.Material, error) {
	return s.store.ListMaterials(ctx)
}

// ListCategories returns the closed category set.
func (s *CatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.store.ListCategories(ctx)
}

// SeedCategories ensures the default category set exists. Called at startup.
func (s *CatalogService) SeedCategories(ctx context.Context) error {
	return s.store.SeedCategories(ctx)
}
