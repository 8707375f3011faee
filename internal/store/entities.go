package store

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/atelierapp/atelier-server/internal/domain"
)

// Key prefixes for catalog entity storage.
const (
	stylePrefix          = "style:"
	styleBySlugPrefix    = "idx:style:slug:" // slug -> style ID
	materialPrefix       = "material:"
	materialBySlugPrefix = "idx:material:slug:" // slug -> material ID
)

// Catalog entity errors.
var (
	ErrEntityNotFound = errors.New("catalog entity not found")
	ErrEntityExists   = errors.New("catalog entity already exists")
)

// CreateStyle creates a new style with a slug index entry.
func (s *Store) CreateStyle(ctx context.Context, style *domain.Style) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.createEntity(stylePrefix+style.ID, styleBySlugPrefix+style.Slug, style)
}

// GetStyle retrieves a style by ID.
func (s *Store) GetStyle(ctx context.Context, id string) (*domain.Style, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var style domain.Style
	if err := s.getEntity(stylePrefix+id, &style); err != nil {
		return nil, err
	}
	return &style, nil
}

// ListStyles returns all styles ordered by name.
func (s *Store) ListStyles(ctx context.Context) ([]*domain.Style, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var styles []*domain.Style
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, []byte(stylePrefix), func(st *domain.Style) error {
			styles = append(styles, st)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(styles, func(i, j int) bool { return styles[i].Name < styles[j].Name })
	return styles, nil
}

// CreateMaterial creates a new material with a slug index entry.
func (s *Store) CreateMaterial(ctx context.Context, m *domain.Material) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.createEntity(materialPrefix+m.ID, materialBySlugPrefix+m.Slug, m)
}

// GetMaterial retrieves a material by ID.
func (s *Store) GetMaterial(ctx context.Context, id string) (*domain.Material, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var m domain.Material
	if err := s.getEntity(materialPrefix+id, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMaterials returns all materials ordered by name.
func (s *Store) ListMaterials(ctx context.Context) ([]*domain.Material, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var materials []*domain.Material
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, []byte(materialPrefix), func(m *domain.Material) error {
			materials = append(materials, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].Name < materials[j].Name })
	return materials, nil
}

// FindEntityBySlug resolves a slug to whichever catalog entity owns it,
// styles first. Returns ErrEntityNotFound when no style or material matches.
func (s *Store) FindEntityBySlug(ctx context.Context, slug string) (domain.CatalogEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity domain.CatalogEntity
	err := s.db.View(func(txn *badger.Txn) error {
		if id, err := readIndex(txn, styleBySlugPrefix+slug); err == nil {
			var style domain.Style
			if err := getJSON(txn, []byte(stylePrefix+id), &style); err != nil {
				return err
			}
			entity = &style
			return nil
		}
		if id, err := readIndex(txn, materialBySlugPrefix+slug); err == nil {
			var m domain.Material
			if err := getJSON(txn, []byte(materialPrefix+id), &m); err != nil {
				return err
			}
			entity = &m
			return nil
		}
		return ErrEntityNotFound
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// AppendImagePath appends path to the entity's image list unless it is
// already present. The existence check and the append run in one Badger
// transaction, so concurrent appends to the same entity cannot race.
// Returns false when the path was already linked.
func (s *Store) AppendImagePath(ctx context.Context, kind domain.EntityKind, entityID, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	appended := false
	err := s.db.Update(func(txn *badger.Txn) error {
		switch kind {
		case domain.KindStyle:
			var style domain.Style
			if err := getJSON(txn, []byte(stylePrefix+entityID), &style); err != nil {
				return entityErr(err)
			}
			if style.HasImagePath(path) {
				return nil
			}
			style.Images = append(style.Images, path)
			style.Touch()
			appended = true
			return setJSON(txn, []byte(stylePrefix+entityID), &style)
		case domain.KindMaterial:
			var m domain.Material
			if err := getJSON(txn, []byte(materialPrefix+entityID), &m); err != nil {
				return entityErr(err)
			}
			if m.HasImagePath(path) {
				return nil
			}
			m.Images = append(m.Images, path)
			m.Touch()
			appended = true
			return setJSON(txn, []byte(materialPrefix+entityID), &m)
		default:
			return ErrEntityNotFound
		}
	})
	if err != nil {
		return false, err
	}
	return appended, nil
}

// createEntity stores a record and its slug index entry in one transaction,
// failing if either key already exists.
func (s *Store) createEntity(key, slugKey string, v any) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			return ErrEntityExists
		}
		if _, err := txn.Get([]byte(slugKey)); err == nil {
			return ErrEntityExists
		}
		if err := setJSON(txn, []byte(key), v); err != nil {
			return err
		}
		var id string
		switch e := v.(type) {
		case *domain.Style:
			id = e.ID
		case *domain.Material:
			id = e.ID
		}
		return txn.Set([]byte(slugKey), []byte(id))
	})
}

func (s *Store) getEntity(key string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(key), out)
	})
	return entityErr(err)
}

// readIndex returns the ID stored under an index key.
func readIndex(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return "", err
	}
	var id string
	err = item.Value(func(val []byte) error {
		id = string(val)
		return nil
	})
	return id, err
}

func entityErr(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrEntityNotFound
	}
	return err
}
