// Package di provides dependency injection configuration for the
// ReiTunes server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/rgwood/ReiTunes/internal/config"
	"github.com/rgwood/ReiTunes/internal/di/providers"
	"github.com/rgwood/ReiTunes/internal/importer"
	"github.com/rgwood/ReiTunes/internal/logger"
	"github.com/rgwood/ReiTunes/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Business services
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideSyncService)

	// Workers
	do.Provide(injector, providers.ProvideImporter)
	do.Provide(injector, providers.ProvideFileWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and returns once the server is
// running. Invocation order follows the dependency chain, so one call
// per provider is enough to bring everything up.
func Bootstrap(injector *do.RootScope) error {
	invocations := []func() error{
		func() error { _, err := do.Invoke[*config.Config](injector); return err },
		func() error { _, err := do.Invoke[*logger.Logger](injector); return err },
		func() error { _, err := do.Invoke[*providers.SSEManagerHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.StoreHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.SearchIndexHandle](injector); return err },
		func() error { _, err := do.Invoke[*service.LibraryService](injector); return err },
		func() error { _, err := do.Invoke[*providers.SyncServiceHandle](injector); return err },
		func() error { _, err := do.Invoke[*importer.Importer](injector); return err },
		func() error { _, err := do.Invoke[*providers.FileWatcherHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.HTTPServerHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.MDNSServiceHandle](injector); return err },
	}

	for _, invoke := range invocations {
		if err := invoke(); err != nil {
			return err
		}
	}
	return nil
}
