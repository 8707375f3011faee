package service

import (
	"context"
	"log/slog"

	"github.com/atelierapp/atelier-server/internal/recovery"
	"github.com/atelierapp/atelier-server/internal/validation"
)

// RecoveryService drives reconciliation runs against object storage.
type RecoveryService struct {
	engine    *recovery.Engine
	logger    *slog.Logger
	validator *validation.Validator
}

// NewRecoveryService creates a new recovery service.
func NewRecoveryService(engine *recovery.Engine, logger *slog.Logger) *RecoveryService {
	return &RecoveryService{
		engine:    engine,
		logger:    logger,
		validator: validation.New(),
	}
}

// RecoverRequest contains fields for a reconciliation run.
type RecoverRequest struct {
	// EntityID restricts the run to a single catalog entity.
	EntityID string `json:"entity_id"`
	// Prefix narrows the storage listing.
	Prefix string `json:"prefix" validate:"max=500"`
	// DryRun reports what would change without mutating anything.
	DryRun bool `json:"dry_run"`
	// Workers bounds cross-entity parallelism.
	Workers int `json:"workers" validate:"gte=0,lte=64"`
}

// Recover scans object storage and relinks orphaned objects to their
// catalog entities. A cancelled run returns the partial result.
func (s *RecoveryService) Recover(ctx context.Context, req RecoverRequest) (*recovery.Result, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// The engine logs the run summary itself.
	return s.engine.Reconcile(ctx, recovery.Options{
		ScopeEntityID: req.EntityID,
		Prefix:        req.Prefix,
		DryRun:        req.DryRun,
		Workers:       req.Workers,
	})
}
