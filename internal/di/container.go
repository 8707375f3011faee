// Package di provides dependency injection configuration for the Atelier server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/atelierapp/atelier-server/internal/config"
	"github.com/atelierapp/atelier-server/internal/di/providers"
	"github.com/atelierapp/atelier-server/internal/logger"
	"github.com/atelierapp/atelier-server/internal/objstore"
	"github.com/atelierapp/atelier-server/internal/semantic"
	"github.com/atelierapp/atelier-server/internal/service"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideTelemetry)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideAssetStore)

	// Model layer
	do.Provide(injector, providers.ProvideGenerator)
	do.Provide(injector, providers.ProvideMatcher)
	do.Provide(injector, providers.ProvideInferencer)

	// Workers
	do.Provide(injector, providers.ProvideImageWorker)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideTextureService)
	do.Provide(injector, providers.ProvideRecoveryService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*telemetry.Recorder](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*objstore.Disk](injector)
	_ = do.MustInvoke[semantic.Generator](injector)
	_ = do.MustInvoke[*semantic.Matcher](injector)
	_ = do.MustInvoke[*semantic.Inferencer](injector)
	_ = do.MustInvoke[*providers.ImageWorkerHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.TextureService](injector)
	_ = do.MustInvoke[*service.RecoveryService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
