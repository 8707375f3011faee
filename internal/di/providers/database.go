package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/atelierapp/atelier-server/internal/config"
	"github.com/atelierapp/atelier-server/internal/logger"
	"github.com/atelierapp/atelier-server/internal/objstore"
	"github.com/atelierapp/atelier-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the catalog database.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Store.BasePath, "db")
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	// The category set is closed; make sure it exists before anything
	// classifies against it.
	if err := db.SeedCategories(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// ProvideAssetStore provides the object storage backing texture and
// entity images.
func ProvideAssetStore(i do.Injector) (*objstore.Disk, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	disk, err := objstore.NewDisk(cfg.Assets.Root)
	if err != nil {
		return nil, err
	}

	log.Info("Asset store initialized", "root", cfg.Assets.Root)

	return disk, nil
}
