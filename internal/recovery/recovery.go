// Package recovery relinks orphaned storage objects to catalog entities.
//
// Generated asset files carry their provenance in the filename. The engine
// lists object storage, parses each object's provenance, resolves the entity
// slug against the catalog, and appends any unreferenced path to the owning
// entity's image list. Every outcome is reported per object; re-running the
// engine against unchanged storage is idempotent.
package recovery

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/atelierapp/atelier-server/internal/domain"
	"github.com/atelierapp/atelier-server/internal/errors"
	"github.com/atelierapp/atelier-server/internal/objstore"
	"github.com/atelierapp/atelier-server/internal/provenance"
	"github.com/atelierapp/atelier-server/internal/store"
)

// Outcome classifies the handling of one scanned object.
type Outcome string

// Per-object outcomes.
const (
	OutcomeRelinked            Outcome = "relinked"
	OutcomeAlreadyLinked       Outcome = "already_linked"
	OutcomeUnparsable          Outcome = "unparsable"
	OutcomeMissingCatalogEntry Outcome = "missing_catalog_entry"
	OutcomeFailed              Outcome = "failed"
	OutcomeSkipped             Outcome = "skipped"
)

// Detail is the per-object report line.
type Detail struct {
	Path     string  `json:"path"`
	Outcome  Outcome `json:"outcome"`
	EntityID string  `json:"entity_id,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// Result is the report returned to the caller. It is not persisted: the run
// is reconstructable by re-running.
type Result struct {
	Scanned             int      `json:"scanned"`
	Matched             int      `json:"matched"`
	Relinked            int      `json:"relinked"`
	AlreadyLinked       int      `json:"already_linked"`
	Unparsable          int      `json:"unparsable"`
	MissingCatalogEntry int      `json:"missing_catalog_entry"`
	Failed              int      `json:"failed"`
	Skipped             int      `json:"skipped"`
	DryRun              bool     `json:"dry_run"`
	Details             []Detail `json:"details"`
}

// Options configures a reconciliation run.
type Options struct {
	// ScopeEntityID restricts the run to a single entity; objects that
	// resolve elsewhere are skipped.
	ScopeEntityID string
	// DryRun reports what would change without mutating anything.
	DryRun bool
	// Prefix narrows the storage listing.
	Prefix string
	// Workers bounds cross-entity parallelism. Defaults to 4.
	Workers int
}

// Catalog is the data-store surface the engine needs: slug resolution and
// the single-entity append.
type Catalog interface {
	FindEntityBySlug(ctx context.Context, slug string) (domain.CatalogEntity, error)
	AppendImagePath(ctx context.Context, kind domain.EntityKind, entityID, path string) (bool, error)
}

// Engine reconciles object storage against the catalog.
type Engine struct {
	lister  objstore.Lister
	catalog Catalog
	logger  *slog.Logger

	// mu guards locks; one mutex per entity serializes same-entity
	// read-modify-write appends across workers.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a reconciliation engine.
func NewEngine(lister objstore.Lister, catalog Catalog, logger *slog.Logger) *Engine {
	return &Engine{
		lister:  lister,
		catalog: catalog,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Reconcile runs one pass over storage. A storage listing failure aborts the
// run; per-object failures are recorded and the run continues. When the
// caller cancels mid-run, the partial result accumulated so far is returned
// with a nil error.
func (e *Engine) Reconcile(ctx context.Context, opts Options) (*Result, error) {
	objects, err := e.lister.List(ctx, opts.Prefix)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	details := make([]Detail, len(objects))
	processed := make([]bool, len(objects))

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, obj := range objects {
		g.Go(func() error {
			// Cooperative cancellation checkpoint: objects not yet
			// started are dropped from the partial result.
			if ctx.Err() != nil {
				return nil
			}
			details[i] = e.processObject(ctx, obj, opts)
			processed[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{DryRun: opts.DryRun}
	for i := range details {
		if !processed[i] {
			continue
		}
		result.add(details[i])
	}

	e.logger.Info("reconciliation run finished",
		"scanned", result.Scanned,
		"relinked", result.Relinked,
		"already_linked", result.AlreadyLinked,
		"unparsable", result.Unparsable,
		"missing", result.MissingCatalogEntry,
		"failed", result.Failed,
		"dry_run", opts.DryRun,
	)
	return result, nil
}

func (e *Engine) processObject(ctx context.Context, obj objstore.Object, opts Options) Detail {
	prov, err := provenance.Parse(obj.Path)
	if err != nil {
		var perr *provenance.ParseError
		reason := err.Error()
		if errors.As(err, &perr) {
			reason = perr.Reason
		}
		return Detail{Path: obj.Path, Outcome: OutcomeUnparsable, Reason: reason}
	}

	entity, err := e.catalog.FindEntityBySlug(ctx, prov.EntitySlug)
	if err != nil {
		if errors.Is(err, store.ErrEntityNotFound) {
			return Detail{Path: obj.Path, Outcome: OutcomeMissingCatalogEntry, Reason: "no catalog entity with slug " + prov.EntitySlug}
		}
		return Detail{Path: obj.Path, Outcome: OutcomeFailed, Reason: err.Error()}
	}

	if opts.ScopeEntityID != "" && entity.EntityID() != opts.ScopeEntityID {
		return Detail{Path: obj.Path, Outcome: OutcomeSkipped, EntityID: entity.EntityID()}
	}

	if entity.HasImagePath(obj.Path) {
		return Detail{Path: obj.Path, Outcome: OutcomeAlreadyLinked, EntityID: entity.EntityID()}
	}

	if opts.DryRun {
		return Detail{Path: obj.Path, Outcome: OutcomeRelinked, EntityID: entity.EntityID()}
	}

	// Appends to the same entity are serialized; appends to different
	// entities run in parallel, so one entity's failure never blocks
	// the others.
	lock := e.entityLock(entity.EntityID())
	lock.Lock()
	appended, err := e.catalog.AppendImagePath(ctx, entity.Kind(), entity.EntityID(), obj.Path)
	lock.Unlock()
	if err != nil {
		e.logger.Warn("relink failed",
			"path", obj.Path,
			"entity_id", entity.EntityID(),
			"error", err,
		)
		return Detail{Path: obj.Path, Outcome: OutcomeFailed, EntityID: entity.EntityID(), Reason: err.Error()}
	}
	if !appended {
		return Detail{Path: obj.Path, Outcome: OutcomeAlreadyLinked, EntityID: entity.EntityID()}
	}
	return Detail{Path: obj.Path, Outcome: OutcomeRelinked, EntityID: entity.EntityID()}
}

func (e *Engine) entityLock(entityID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[entityID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[entityID] = lock
	}
	return lock
}

func (r *Result) add(d Detail) {
	r.Scanned++
	r.Details = append(r.Details, d)
	switch d.Outcome {
	case OutcomeRelinked:
		r.Matched++
		r.Relinked++
	case OutcomeAlreadyLinked:
		r.Matched++
		r.AlreadyLinked++
	case OutcomeUnparsable:
		r.Unparsable++
	case OutcomeMissingCatalogEntry:
		r.MissingCatalogEntry++
	case OutcomeFailed:
		r.Matched++
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}
}
