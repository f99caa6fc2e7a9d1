package providers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/rgwood/ReiTunes/internal/config"
	"github.com/rgwood/ReiTunes/internal/logger"
	"github.com/rgwood/ReiTunes/internal/sse"
	"github.com/rgwood/ReiTunes/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the event store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite event store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(filepath.Dir(cfg.Library.DatabasePath), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.Library.DatabasePath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Event store opened", "path", cfg.Library.DatabasePath)

	return &StoreHandle{Store: db}, nil
}
