package search

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"

	"github.com/rgwood/ReiTunes/internal/domain"
)

// SearchIndex wraps a Bleve index with library-specific operations.
// It implements the indexer interface the library service expects.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type SearchIndex struct {
	index  bleve.Index
	path   string // Empty for in-memory indexes
	logger *slog.Logger
	mu     sync.RWMutex // Protects index operations during rebuild
}

// Options configures the search index.
type Options struct {
	IndexPath string       // Directory for index storage; empty keeps the index in memory
	Logger    *slog.Logger // Logger for operations (uses stderr if nil)
}

// NewSearchIndex creates or opens a search index.
// With an empty IndexPath the index lives in memory and is rebuilt from
// the projection on startup, which is cheap for personal library sizes.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	if opts.IndexPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		logger.Info("created in-memory search index")
		return &SearchIndex{index: index, logger: logger}, nil
	}

	index, err := bleve.Open(opts.IndexPath)
	if err != nil {
		// Missing or unreadable index: start fresh. The projection is the
		// source of truth, so dropping the index loses nothing.
		if removeErr := os.RemoveAll(opts.IndexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index, err = bleve.New(opts.IndexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		logger.Info("created new search index", "path", opts.IndexPath)
	} else {
		logger.Info("opened existing search index", "path", opts.IndexPath)
	}

	return &SearchIndex{
		index:  index,
		path:   opts.IndexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexItem indexes a single library item, replacing any previous version.
func (s *SearchIndex) IndexItem(item *domain.LibraryItem) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := ItemToDocument(item)
	// Convert to map to ensure field names match the mapping (lowercase)
	return s.index.Index(doc.ID, doc.ToMap())
}

// RemoveItem removes an item from the index.
func (s *SearchIndex) RemoveItem(id uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id.String())
}

// RebuildIndex replaces the index contents with the given items.
// Called after the projection is rebuilt from the event log.
func (s *SearchIndex) RebuildIndex(items []*domain.LibraryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recreate(); err != nil {
		return err
	}

	const batchSize = 500

	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}

		batch := s.index.NewBatch()
		for _, item := range items[i:end] {
			doc := ItemToDocument(item)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	s.logger.Info("rebuilt search index", "items", len(items))
	return nil
}

// DocumentCount returns the total number of indexed items.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// recreate drops the underlying Bleve index and creates an empty one.
// Caller must hold the write lock.
func (s *SearchIndex) recreate() error {
	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	if s.path == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return fmt.Errorf("create in-memory index: %w", err)
		}
		s.index = index
		return nil
	}

	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	return nil
}
