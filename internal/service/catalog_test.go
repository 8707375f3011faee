package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/atelierapp/atelier-server/internal/errors"
	"github.com/atelierapp/atelier-server/internal/store"
)

func setupCatalogService(t *testing.T) (*CatalogService, *store.Store) {
	t.Helper()

	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.SeedCategories(context.Background()))

	return NewCatalogService(st, slog.New(slog.DiscardHandler)), st
}

func TestCreateStyle_DerivesSlug(t *testing.T) {
	svc, _ := setupCatalogService(t)

	style, err := svc.CreateStyle(context.Background(), CreateStyleRequest{
		Name:        "Mid-Century Modern Loft",
		Description: "Warm woods and clean lines",
	})
	require.NoError(t, err)

	assert.Equal(t, "mid-century-modern-loft", style.Slug)
	assert.NotEmpty(t, style.ID)
	assert.False(t, style.CreatedAt.IsZero())
}

func TestCreateStyle_DuplicateSlug(t *testing.T) {
	svc, _ := setupCatalogService(t)
	ctx := context.Background()

	_, err := svc.CreateStyle(ctx, CreateStyleRequest{Name: "Japandi"})
	require.NoError(t, err)

	_, err = svc.CreateStyle(ctx, CreateStyleRequest{Name: "  JAPANDI "})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestCreateStyle_ValidatesName(t *testing.T) {
	svc, _ := setupCatalogService(t)

	_, err := svc.CreateStyle(context.Background(), CreateStyleRequest{Name: ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCreateMaterial_BindsCategory(t *testing.T) {
	svc, st := setupCatalogService(t)
	ctx := context.Background()

	m, err := svc.CreateMaterial(ctx, CreateMaterialRequest{
		Name:         "Brushed Brass",
		CategorySlug: "metal",
	})
	require.NoError(t, err)

	metal, err := st.GetCategoryBySlug(ctx, "metal")
	require.NoError(t, err)
	assert.Equal(t, metal.ID, m.CategoryID)
	assert.Equal(t, "brushed-brass", m.Slug)
}

func TestCreateMaterial_UnknownCategory(t *testing.T) {
	svc, _ := setupCatalogService(t)

	_, err := svc.CreateMaterial(context.Background(), CreateMaterialRequest{
		Name:         "Brushed Brass",
		CategorySlug: "plasma",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestGetStyle_NotFound(t *testing.T) {
	svc, _ := setupCatalogService(t)

	_, err := svc.GetStyle(context.Background(), "sty-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestListCategories_Seeded(t *testing.T) {
	svc, _ := setupCatalogService(t)

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, categories)

	slugs := make([]string, 0, len(categories))
	for _, c := range categories {
		slugs = append(slugs, c.Slug)
	}
	assert.Contains(t, slugs, "wood")
	assert.Contains(t, slugs, "metal")
}
