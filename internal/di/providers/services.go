package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/rgwood/ReiTunes/internal/config"
	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/logger"
	"github.com/rgwood/ReiTunes/internal/remote"
	"github.com/rgwood/ReiTunes/internal/service"
)

// ProvideLibraryService provides the library service with the
// projection loaded and the search index rebuilt.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)

	library := service.NewLibraryService(storeHandle.Store, domain.NewIncreasingClock(), cfg.App.MachineName, log.Logger)
	library.SetEmitter(sseHandle.Manager)
	library.SetSearchIndexer(searchHandle.SearchIndex)

	if err := library.Load(context.Background()); err != nil {
		return nil, err
	}

	if err := searchHandle.RebuildIndex(library.Items()); err != nil {
		log.Warn("Search index rebuild failed", "error", err)
	}

	log.Info("Library loaded", "items", library.ItemCount())

	return library, nil
}

// SyncServiceHandle wraps the sync service and its background loop.
// Service is nil when no remote is configured.
type SyncServiceHandle struct {
	Service *service.SyncService
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SyncServiceHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideSyncService provides the replication service and starts its
// periodic pull loop.
func ProvideSyncService(i do.Injector) (*SyncServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	library := do.MustInvoke[*service.LibraryService](i)

	if cfg.Sync.RemoteURL == "" {
		log.Info("No remote configured, replication disabled")
		return &SyncServiceHandle{}, nil
	}

	client := remote.NewClient(cfg.Sync.RemoteURL, cfg.Sync.RemoteAPIKey, log.Logger)
	syncService := service.NewSyncService(storeHandle.Store, client, library, cfg.Sync.Interval, cfg.Sync.Push, log.Logger)
	syncService.SetEmitter(sseHandle.Manager)

	ctx, cancel := context.WithCancel(context.Background())
	go syncService.Run(ctx)

	log.Info("Replication started",
		"remote", cfg.Sync.RemoteURL,
		"interval", cfg.Sync.Interval,
		"push", cfg.Sync.Push,
	)

	return &SyncServiceHandle{Service: syncService, cancel: cancel}, nil
}
