package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/rgwood/ReiTunes/internal/api"
	"github.com/rgwood/ReiTunes/internal/config"
	"github.com/rgwood/ReiTunes/internal/logger"
	"github.com/rgwood/ReiTunes/internal/mdns"
	"github.com/rgwood/ReiTunes/internal/service"
	"github.com/rgwood/ReiTunes/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	library := do.MustInvoke[*service.LibraryService](i)
	syncHandle := do.MustInvoke[*SyncServiceHandle](i)

	sseHandler := sse.NewHandler(sseHandle.Manager, log.Logger)

	handler := api.NewServer(
		storeHandle.Store,
		library,
		syncHandle.Service,
		searchHandle.SearchIndex,
		sseHandle.Manager,
		sseHandler,
		cfg.Server.APIKey,
		cfg.Library.StorageBaseURL,
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}

// MDNSServiceHandle wraps mdns.Service with Shutdownable. Service is
// nil when advertisement is disabled.
type MDNSServiceHandle struct {
	*mdns.Service
}

// Shutdown implements do.Shutdownable.
func (h *MDNSServiceHandle) Shutdown() error {
	if h.Service != nil {
		h.Stop()
	}
	return nil
}

// ProvideMDNSService provides the mDNS advertisement service.
func ProvideMDNSService(i do.Injector) (*MDNSServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Server.AdvertiseMDNS {
		log.Info("mDNS advertisement disabled by configuration")
		return &MDNSServiceHandle{}, nil
	}

	port := 8080
	if _, err := fmt.Sscanf(cfg.Server.Port, "%d", &port); err != nil {
		log.Warn("Failed to parse server port for mDNS, using default", "port", cfg.Server.Port)
	}

	svc := mdns.NewService(log.Logger)
	instance := mdns.Instance{
		Name:        cfg.Server.Name,
		MachineName: cfg.App.MachineName,
	}
	if err := svc.Start(instance, port); err != nil {
		// Multicast may be unavailable (containers, locked-down
		// networks). The server works fine without discovery.
		log.Warn("mDNS advertisement failed to start", "error", err)
		return &MDNSServiceHandle{}, nil
	}

	log.Info("mDNS advertisement started",
		"name", cfg.Server.Name,
		"type", mdns.ServiceType,
		"port", port,
	)

	return &MDNSServiceHandle{Service: svc}, nil
}
