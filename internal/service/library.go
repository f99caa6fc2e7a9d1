package service

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/dto"
	"github.com/rgwood/ReiTunes/internal/errors"
	"github.com/rgwood/ReiTunes/internal/sse"
)

// LibraryService wraps the library projection with a reader/writer lock
// and keeps it in step with the event log.
//
// Write ordering invariant: every event reaches the store before it is
// folded into the projection. The projection may briefly lag the log,
// never lead it.
type LibraryService struct {
	store       EventStore
	clock       domain.Clock
	machineName string
	logger      *slog.Logger

	emitter EventEmitter
	indexer SearchIndexer

	mu      sync.RWMutex
	library *domain.Library

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewLibraryService creates the service. Call Load before serving.
func NewLibraryService(store EventStore, clock domain.Clock, machineName string, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		store:       store,
		clock:       clock,
		machineName: machineName,
		logger:      logger,
		emitter:     NewNoopEmitter(),
		indexer:     NewNoopIndexer(),
		library:     domain.NewLibrary(logger),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetEmitter wires up change notifications.
func (s *LibraryService) SetEmitter(emitter EventEmitter) {
	s.emitter = emitter
}

// SetSearchIndexer wires up search index maintenance.
func (s *LibraryService) SetSearchIndexer(indexer SearchIndexer) {
	s.indexer = indexer
}

// Load replays the full event history into a fresh projection.
func (s *LibraryService) Load(ctx context.Context) error {
	envelopes, err := s.store.LoadAllOrdered(ctx)
	if err != nil {
		return err
	}

	library := domain.BuildFromEvents(envelopes, s.logger)

	s.mu.Lock()
	s.library = library
	items := library.Items()
	s.mu.Unlock()

	if err := s.indexer.RebuildIndex(items); err != nil {
		s.logger.Warn("search index rebuild failed", slog.String("error", err.Error()))
	}

	s.logger.Info("library loaded",
		slog.Int("events", len(envelopes)),
		slog.Int("items", len(items)))
	return nil
}

// Reload rebuilds the projection after the log changed underneath us,
// typically after a sync merged remote events.
func (s *LibraryService) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// appendAndApply persists an event and folds it into the projection.
// Returns a snapshot of the item after the fold, or nil if the event
// removed it.
func (s *LibraryService) appendAndApply(ctx context.Context, aggregateID uuid.UUID, event domain.Event) (*domain.LibraryItem, error) {
	env, err := domain.NewEnvelope(aggregateID, s.machineName, s.clock.Now(), event)
	if err != nil {
		return nil, errors.Parse(err, "serialize event")
	}

	// Store first. If the append fails the projection is untouched.
	if err := s.store.Append(ctx, env); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.library.Apply(env)
	item, ok := s.library.Item(aggregateID)
	var snapshot *domain.LibraryItem
	if ok {
		snapshot = item.Clone()
	}
	s.mu.Unlock()

	return snapshot, nil
}

// CreateItem appends a creation event and returns the new item.
func (s *LibraryService) CreateItem(ctx context.Context, name, filePath, artist, album string) (*domain.LibraryItem, error) {
	if name == "" {
		return nil, errors.Validation("item name is required")
	}
	if filePath == "" {
		return nil, errors.Validation("item file path is required")
	}

	itemID := uuid.New()
	item, err := s.appendAndApply(ctx, itemID, domain.ItemCreated{
		Name:     name,
		FilePath: filePath,
		Artist:   artist,
		Album:    album,
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(sse.NewItemCreatedEvent(dto.FromItem(item)))
	s.indexItem(item)

	s.logger.Info("item created",
		slog.String("item_id", itemID.String()),
		slog.String("name", name))
	return item, nil
}

// Item returns a snapshot of one item.
func (s *LibraryService) Item(id uuid.UUID) (*domain.LibraryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.library.Item(id)
	if !ok {
		return nil, errors.NotFoundf("item %s not found", id)
	}
	return item.Clone(), nil
}

// Items returns snapshots of all items, most played first.
func (s *LibraryService) Items() []*domain.LibraryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.library.Items()
	snapshots := make([]*domain.LibraryItem, len(items))
	for i, item := range items {
		snapshots[i] = item.Clone()
	}
	return snapshots
}

// ItemCount returns the number of items in the projection.
func (s *LibraryService) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.library.Len()
}

// RecordPlay appends a play event and bumps the item's play count.
func (s *LibraryService) RecordPlay(ctx context.Context, id uuid.UUID) (*domain.LibraryItem, error) {
	if _, err := s.Item(id); err != nil {
		return nil, err
	}

	item, err := s.appendAndApply(ctx, id, domain.ItemPlayed{})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(sse.NewItemUpdatedEvent(dto.FromItem(item)))
	return item, nil
}

// ItemChanges lists the fields an update can touch. Nil means leave the
// field alone; a pointer to the empty string clears it.
type ItemChanges struct {
	Name     *string
	FilePath *string
	Artist   *string
	Album    *string
}

func (c ItemChanges) empty() bool {
	return c.Name == nil && c.FilePath == nil && c.Artist == nil && c.Album == nil
}

// UpdateItem appends one change event per touched field. Each field
// change is its own event so concurrent edits to different fields merge
// cleanly across machines.
func (s *LibraryService) UpdateItem(ctx context.Context, id uuid.UUID, changes ItemChanges) (*domain.LibraryItem, error) {
	if changes.empty() {
		return nil, errors.Validation("no changes given")
	}
	if changes.Name != nil && *changes.Name == "" {
		return nil, errors.Validation("item name cannot be cleared")
	}
	if changes.FilePath != nil && *changes.FilePath == "" {
		return nil, errors.Validation("item file path cannot be cleared")
	}
	if _, err := s.Item(id); err != nil {
		return nil, err
	}

	var events []domain.Event
	if changes.Name != nil {
		events = append(events, domain.ItemNameChanged{NewName: *changes.Name})
	}
	if changes.FilePath != nil {
		events = append(events, domain.ItemFilePathChanged{NewFilePath: *changes.FilePath})
	}
	if changes.Artist != nil {
		events = append(events, domain.ItemArtistChanged{NewArtist: *changes.Artist})
	}
	if changes.Album != nil {
		events = append(events, domain.ItemAlbumChanged{NewAlbum: *changes.Album})
	}

	var item *domain.LibraryItem
	for _, event := range events {
		var err error
		item, err = s.appendAndApply(ctx, id, event)
		if err != nil {
			return nil, err
		}
	}

	s.emitter.Emit(sse.NewItemUpdatedEvent(dto.FromItem(item)))
	s.indexItem(item)
	return item, nil
}

// DeleteItem appends a deletion event and drops the item.
func (s *LibraryService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Item(id); err != nil {
		return err
	}

	if _, err := s.appendAndApply(ctx, id, domain.ItemDeleted{}); err != nil {
		return err
	}

	s.emitter.Emit(sse.NewItemDeletedEvent(id.String()))
	if err := s.indexer.RemoveItem(id); err != nil {
		s.logger.Warn("search index remove failed",
			slog.String("item_id", id.String()),
			slog.String("error", err.Error()))
	}

	s.logger.Info("item deleted", slog.String("item_id", id.String()))
	return nil
}

// AddBookmark adds a bookmark at a playback position.
func (s *LibraryService) AddBookmark(ctx context.Context, itemID uuid.UUID, position time.Duration) (domain.Bookmark, error) {
	if position < 0 {
		return domain.Bookmark{}, errors.Validation("bookmark position cannot be negative")
	}
	if _, err := s.Item(itemID); err != nil {
		return domain.Bookmark{}, err
	}

	bookmarkID := uuid.New()
	item, err := s.appendAndApply(ctx, itemID, domain.BookmarkAdded{
		BookmarkID: bookmarkID,
		Position:   position,
	})
	if err != nil {
		return domain.Bookmark{}, err
	}
	if item == nil {
		// The item was deleted between the existence check and the
		// fold. The event is harmlessly in the log as a no-op.
		return domain.Bookmark{}, errors.NotFoundf("item %s not found", itemID)
	}

	s.emitter.Emit(sse.NewItemUpdatedEvent(dto.FromItem(item)))

	bookmark, ok := item.Bookmark(bookmarkID)
	if !ok {
		return domain.Bookmark{}, errors.Internalf("bookmark %s missing after add", bookmarkID)
	}
	return bookmark, nil
}

// DeleteBookmark removes a bookmark from an item.
func (s *LibraryService) DeleteBookmark(ctx context.Context, itemID, bookmarkID uuid.UUID) error {
	item, err := s.Item(itemID)
	if err != nil {
		return err
	}
	if _, ok := item.Bookmark(bookmarkID); !ok {
		return errors.NotFoundf("bookmark %s not found on item %s", bookmarkID, itemID)
	}

	updated, err := s.appendAndApply(ctx, itemID, domain.BookmarkDeleted{BookmarkID: bookmarkID})
	if err != nil {
		return err
	}

	s.emitter.Emit(sse.NewItemUpdatedEvent(dto.FromItem(updated)))
	return nil
}

// SetBookmarkEmoji overrides the derived emoji of a bookmark.
func (s *LibraryService) SetBookmarkEmoji(ctx context.Context, itemID, bookmarkID uuid.UUID, emoji string) error {
	if emoji == "" {
		return errors.Validation("emoji is required")
	}
	item, err := s.Item(itemID)
	if err != nil {
		return err
	}
	if _, ok := item.Bookmark(bookmarkID); !ok {
		return errors.NotFoundf("bookmark %s not found on item %s", bookmarkID, itemID)
	}

	updated, err := s.appendAndApply(ctx, itemID, domain.BookmarkEmojiSet{
		BookmarkID: bookmarkID,
		Emoji:      emoji,
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(sse.NewItemUpdatedEvent(dto.FromItem(updated)))
	return nil
}

// RandomBookmark returns a uniformly random bookmark across all items.
func (s *LibraryService) RandomBookmark() (*domain.LibraryItem, domain.Bookmark, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, bookmark, ok := s.library.RandomBookmark(s.rng)
	if !ok {
		return nil, domain.Bookmark{}, errors.NotFound("no bookmarks in library")
	}
	return item.Clone(), bookmark, nil
}

// AllEvents returns the full event log for replication.
func (s *LibraryService) AllEvents(ctx context.Context) ([]domain.EventEnvelope, error) {
	return s.store.AllEvents(ctx)
}

// RecentEvents returns the newest item events for diagnostics.
func (s *LibraryService) RecentEvents(ctx context.Context, limit int) ([]domain.EventEnvelope, error) {
	return s.store.RecentEvents(ctx, limit)
}

// EventCount returns the total number of stored events.
func (s *LibraryService) EventCount(ctx context.Context) (int64, error) {
	return s.store.CountEvents(ctx)
}

func (s *LibraryService) indexItem(item *domain.LibraryItem) {
	if item == nil {
		return
	}
	if err := s.indexer.IndexItem(item); err != nil {
		s.logger.Warn("search index update failed",
			slog.String("item_id", item.ID.String()),
			slog.String("error", err.Error()))
	}
}
