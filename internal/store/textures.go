package store

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/atelierapp/atelier-server/internal/domain"
	"github.com/atelierapp/atelier-server/internal/normalize"
)

// Key prefixes for texture storage.
const (
	texturePrefix       = "texture:"
	textureByFpPrefix   = "idx:texture:fp:"   // idempotency fingerprint -> texture ID
	textureByNamePrefix = "idx:texture:name:" // normalized name -> texture ID
)

// Texture errors.
var (
	ErrTextureNotFound = errors.New("texture not found")
	ErrTextureExists   = errors.New("texture already exists")
)

// CreateTexture creates a texture record. The fingerprint index key acts as
// a unique constraint on the idempotency key: the existence check and the
// insert run in one transaction, so concurrent creates for the same
// normalized name collapse to a single record and the loser sees
// ErrTextureExists.
func (s *Store) CreateTexture(ctx context.Context, t *domain.Texture) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(textureByFpPrefix + t.Fingerprint)); err == nil {
			return ErrTextureExists
		}
		if err := setJSON(txn, []byte(texturePrefix+t.ID), t); err != nil {
			return err
		}
		if err := txn.Set([]byte(textureByFpPrefix+t.Fingerprint), []byte(t.ID)); err != nil {
			return err
		}
		// Every localized name lands in one flat index so an exact
		// lookup hits no matter which language the name arrives in.
		for _, name := range t.Name {
			if err := txn.Set([]byte(textureNameKey(name)), []byte(t.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTexture retrieves a texture by ID.
func (s *Store) GetTexture(ctx context.Context, id string) (*domain.Texture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var t domain.Texture
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(texturePrefix+id), &t)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrTextureNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTextureByName looks up a texture any of whose localized names
// normalizes equal to name, regardless of language. Returns
// ErrTextureNotFound on miss.
func (s *Store) FindTextureByName(ctx context.Context, name string) (*domain.Texture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var t domain.Texture
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := readIndex(txn, textureNameKey(name))
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(texturePrefix+id), &t)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrTextureNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTextureByFingerprint looks up a texture by its idempotency key.
func (s *Store) FindTextureByFingerprint(ctx context.Context, fingerprint string) (*domain.Texture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var t domain.Texture
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := readIndex(txn, textureByFpPrefix+fingerprint)
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(texturePrefix+id), &t)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrTextureNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTextures returns all textures ordered by ID.
func (s *Store) ListTextures(ctx context.Context) ([]*domain.Texture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var textures []*domain.Texture
	err := s.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, []byte(texturePrefix), func(t *domain.Texture) error {
			textures = append(textures, t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(textures, func(i, j int) bool { return textures[i].ID < textures[j].ID })
	return textures, nil
}

// SetTextureImageURL fills in the image URL once generation completes.
func (s *Store) SetTextureImageURL(ctx context.Context, textureID, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var t domain.Texture
		if err := getJSON(txn, []byte(texturePrefix+textureID), &t); err != nil {
			return err
		}
		t.ImageURL = url
		t.Touch()
		return setJSON(txn, []byte(texturePrefix+textureID), &t)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrTextureNotFound
	}
	return err
}

func textureNameKey(name string) string {
	return textureByNamePrefix + normalize.Name(name)
}
