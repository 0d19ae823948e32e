// Package di provides dependency injection configuration for the Recall server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/recall-app/recall-server/internal/config"
	"github.com/recall-app/recall-server/internal/di/providers"
	"github.com/recall-app/recall-server/internal/importer"
	"github.com/recall-app/recall-server/internal/logger"
	"github.com/recall-app/recall-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Events and storage
	do.Provide(injector, providers.ProvideBroadcaster)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Business services
	do.Provide(injector, providers.ProvideRecordService)
	do.Provide(injector, providers.ProvideImporter)
	do.Provide(injector, providers.ProvideExporter)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.BroadcasterHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*service.SearchService](injector)

	// Business services
	_ = do.MustInvoke[*providers.RecordServiceHandle](injector)
	_ = do.MustInvoke[*providers.ImporterHandle](injector)
	_ = do.MustInvoke[*importer.Exporter](injector)

	// Server
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
