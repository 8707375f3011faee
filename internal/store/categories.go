package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/atelierapp/atelier-server/internal/domain"
	"github.com/atelierapp/atelier-server/internal/id"
)

// Key prefixes for category storage.
const (
	categoryPrefix       = "category:"
	categoryBySlugPrefix = "idx:category:slug:" // slug -> category ID
)

// Category errors.
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
)

// CreateCategory creates a new category.
func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(categoryBySlugPrefix + c.Slug)); err == nil {
			return ErrCategoryExists
		}
		if err := setJSON(txn, []byte(categoryPrefix+c.ID), c); err != nil {
			return err
		}
		return txn.Set([]byte(categoryBySlugPrefix+c.Slug), []byte(c.ID))
	})
}

// GetCategoryBySlug retrieves a category by slug.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c domain.Category
	err := s.db.View(func(txn *badger.Txn) error {
		catID, err := readIndex(txn, categoryBySlugPrefix+slug)
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(categoryPrefix+catID), &c)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns all categories ordered by slug.
func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var categories []*domain.Category
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, []byte(categoryPrefix), func(c *domain.Category) error {
			categories = append(categories, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Slug < categories[j].Slug })
	return categories, nil
}

// ListCategorySlugs returns the closed set of category slugs for inference.
func (s *Store) ListCategorySlugs(ctx context.Context) ([]string, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, len(categories))
	for i, c := range categories {
		slugs[i] = c.Slug
	}
	return slugs, nil
}

// defaultCategories is the initial closed set for a fresh install.
var defaultCategories = []string{"wood", "stone", "metal", "fabric", "leather", "ceramic", "glass", "concrete"}

// SeedCategories creates the default category set if none exist yet.
func (s *Store) SeedCategories(ctx context.Context) error {
	existing, err := s.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now()
	for _, slug := range defaultCategories {
		c := &domain.Category{
			Record: domain.Record{ID: id.MustGenerate("cat"), CreatedAt: now, UpdatedAt: now},
			Name:   slug,
			Slug:   slug,
		}
		if err := s.CreateCategory(ctx, c); err != nil {
			return err
		}
	}
	if s.logger != nil {
		s.logger.Info("seeded default categories", "count", len(defaultCategories))
	}
	return nil
}
