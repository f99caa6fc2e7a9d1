package providers

import (
	"github.com/samber/do/v2"

	"github.com/rgwood/ReiTunes/internal/config"
	"github.com/rgwood/ReiTunes/internal/logger"
	"github.com/rgwood/ReiTunes/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve full-text index. With no index
// path configured the index lives in memory and is rebuilt from the
// projection at startup.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	idx, err := search.NewSearchIndex(search.Options{
		IndexPath: cfg.Search.IndexPath,
		Logger:    log.Logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Search.IndexPath == "" {
		log.Info("Search index running in memory")
	} else {
		log.Info("Search index opened", "path", cfg.Search.IndexPath)
	}

	return &SearchIndexHandle{SearchIndex: idx}, nil
}
