package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/rgwood/ReiTunes/internal/config"
	"github.com/rgwood/ReiTunes/internal/importer"
	"github.com/rgwood/ReiTunes/internal/logger"
	"github.com/rgwood/ReiTunes/internal/metadata"
	"github.com/rgwood/ReiTunes/internal/service"
	"github.com/rgwood/ReiTunes/internal/watcher"
)

// ProvideImporter provides the file importer.
func ProvideImporter(i do.Injector) (*importer.Importer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	library := do.MustInvoke[*service.LibraryService](i)

	return importer.New(library, cfg.Library.MusicPath, log.Logger), nil
}

// FileWatcherHandle wraps the file watcher with shutdown capability.
// Watcher is nil when no music path is configured.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideFileWatcher provides the music directory watcher wired to the
// importer.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	imp := do.MustInvoke[*importer.Importer](i)

	if cfg.Library.MusicPath == "" {
		log.Info("No music path configured, file watching disabled")
		return &FileWatcherHandle{}, nil
	}

	w, err := watcher.New(log.Logger, watcher.Options{
		IgnoreHidden: true,
		Filter:       metadata.IsAudioFile,
	})
	if err != nil {
		return nil, err
	}

	if err := w.Watch(cfg.Library.MusicPath); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	}()

	go func() {
		for {
			select {
			case event := <-w.Events():
				if err := imp.HandleEvent(ctx, event); err != nil {
					log.Warn("Failed to process file event",
						"error", err,
						"type", event.Type.String(),
						"path", event.Path,
					)
				}
			case err := <-w.Errors():
				log.Warn("File watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("File watcher started", "path", cfg.Library.MusicPath)

	return &FileWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
