// Package objstore abstracts the object storage holding generated asset files.
//
// The admin server ships a local-disk implementation; the reconciliation
// engine only depends on the Lister interface, so a bucket-backed client can
// be swapped in without touching the engine.
package objstore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/atelierapp/atelier-server/internal/errors"
)

// Object describes a single stored asset file. Objects are ephemeral:
// produced per listing, never persisted.
type Object struct {
	Path         string
	SizeBytes    int64
	LastModified time.Time
}

// Lister lists objects under a prefix. Listings are finite and restartable:
// re-invoking List starts a fresh scan with no cursor state retained between
// calls. Transport failure is reported as errors.ErrStorageUnavailable.
type Lister interface {
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Disk is a local-filesystem Lister rooted at a base directory. Object paths
// are slash-separated and relative to the root, matching the paths recorded
// on catalog entities.
type Disk struct {
	root string
}

// NewDisk creates a disk-backed object store rooted at the given directory.
// The directory is created if it does not exist.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.StorageUnavailable(err)
	}
	return &Disk{root: root}, nil
}

// Root returns the base directory of the store.
func (d *Disk) Root() string { return d.root }

// List implements Lister. Results are sorted by path for deterministic runs.
func (d *Disk) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var objects []Object
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Path:         rel,
			SizeBytes:    info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, errors.StorageUnavailable(err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

// Write stores an object under the root. Used by seeding and tests; the
// reconciliation engine itself never writes to object storage.
func (d *Disk) Write(path string, data []byte) error {
	full := filepath.Join(d.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.StorageUnavailable(err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return errors.StorageUnavailable(err)
	}
	return nil
}
