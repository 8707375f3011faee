package providers

import (
	"github.com/samber/do/v2"

	"github.com/atelierapp/atelier-server/internal/config"
	"github.com/atelierapp/atelier-server/internal/logger"
	"github.com/atelierapp/atelier-server/internal/objstore"
	"github.com/atelierapp/atelier-server/internal/recovery"
	"github.com/atelierapp/atelier-server/internal/semantic"
	"github.com/atelierapp/atelier-server/internal/service"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

// ProvideMatcher provides the semantic texture matcher.
func ProvideMatcher(i do.Injector) (*semantic.Matcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	gen := do.MustInvoke[semantic.Generator](i)
	recorder := do.MustInvoke[*telemetry.Recorder](i)

	return semantic.NewMatcher(storeHandle.Store, gen, recorder, log.Logger, semantic.MatcherConfig{
		Threshold:    cfg.Matching.Threshold,
		MaxRetries:   cfg.Matching.MaxRetries,
		RetryBackoff: cfg.Matching.RetryBackoff,
	}), nil
}

// ProvideInferencer provides the category inferencer.
func ProvideInferencer(i do.Injector) (*semantic.Inferencer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	gen := do.MustInvoke[semantic.Generator](i)
	recorder := do.MustInvoke[*telemetry.Recorder](i)

	return semantic.NewInferencer(gen, recorder, log.Logger, cfg.Matching.MaxRetries, cfg.Matching.RetryBackoff), nil
}

// ProvideCatalogService provides the style and material catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewCatalogService(storeHandle.Store, log.Logger), nil
}

// ProvideTextureService provides the texture match-or-create service.
func ProvideTextureService(i do.Injector) (*service.TextureService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	matcher := do.MustInvoke[*semantic.Matcher](i)
	inferencer := do.MustInvoke[*semantic.Inferencer](i)
	workerHandle := do.MustInvoke[*ImageWorkerHandle](i)

	return service.NewTextureService(storeHandle.Store, matcher, inferencer, workerHandle.Service, log.Logger), nil
}

// ProvideRecoveryService provides the asset reconciliation service.
func ProvideRecoveryService(i do.Injector) (*service.RecoveryService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	disk := do.MustInvoke[*objstore.Disk](i)

	engine := recovery.NewEngine(disk, storeHandle.Store, log.Logger)
	return service.NewRecoveryService(engine, log.Logger), nil
}
