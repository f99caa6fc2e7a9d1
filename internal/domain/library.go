package domain

import (
	"log/slog"
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

// Library is the projection of all item events. It is not safe for
// concurrent use; service.LibraryService wraps it with a lock.
type Library struct {
	items  map[uuid.UUID]*LibraryItem
	logger *slog.Logger
}

// NewLibrary creates an empty projection.
func NewLibrary(logger *slog.Logger) *Library {
	return &Library{
		items:  make(map[uuid.UUID]*LibraryItem),
		logger: logger,
	}
}

// BuildFromEvents folds a full event history into a Library. Events are
// applied in ascending creation time order regardless of input order, so
// the result is deterministic for a given event set.
func BuildFromEvents(envelopes []EventEnvelope, logger *slog.Logger) *Library {
	ordered := make([]EventEnvelope, len(envelopes))
	copy(ordered, envelopes)
	sort.SliceStable(ordered, func(a, z int) bool {
		return ordered[a].CreatedTimeUTC.Before(ordered[z].CreatedTimeUTC)
	})

	lib := NewLibrary(logger)
	for _, env := range ordered {
		lib.Apply(env)
	}
	return lib
}

// Apply folds a single envelope into the projection. Events for unknown
// aggregate types, or for items that do not exist yet, are logged and
// skipped rather than failing the fold. Replication can deliver events
// this machine has no use for; they must not poison the projection.
func (l *Library) Apply(env EventEnvelope) {
	if env.AggregateType != AggregateTypeLibraryItem {
		l.logger.Warn("skipping event for unknown aggregate type",
			slog.String("aggregate_type", env.AggregateType),
			slog.String("event_id", env.ID.String()))
		return
	}

	if created, ok := env.Event.(ItemCreated); ok {
		l.items[env.AggregateID] = &LibraryItem{
			ID:             env.AggregateID,
			Name:           created.Name,
			FilePath:       created.FilePath,
			Artist:         created.Artist,
			Album:          created.Album,
			CreatedTimeUTC: env.CreatedTimeUTC,
		}
		return
	}

	item, ok := l.items[env.AggregateID]
	if !ok {
		l.logger.Warn("skipping event for unknown item",
			slog.String("aggregate_id", env.AggregateID.String()),
			slog.String("event_type", env.Event.EventType()))
		return
	}

	switch e := env.Event.(type) {
	case ItemPlayed:
		item.PlayCount++
	case ItemDeleted:
		delete(l.items, env.AggregateID)
	case ItemNameChanged:
		item.Name = e.NewName
	case ItemFilePathChanged:
		item.FilePath = e.NewFilePath
	case ItemArtistChanged:
		item.Artist = e.NewArtist
	case ItemAlbumChanged:
		item.Album = e.NewAlbum
	case BookmarkAdded:
		item.addBookmark(Bookmark{
			ID:       e.BookmarkID,
			Position: e.Position,
			Emoji:    DefaultBookmarkEmoji(item.ID, e.BookmarkID),
		})
	case BookmarkDeleted:
		if !item.deleteBookmark(e.BookmarkID) {
			l.logger.Warn("skipping delete of unknown bookmark",
				slog.String("aggregate_id", env.AggregateID.String()),
				slog.String("bookmark_id", e.BookmarkID.String()))
		}
	case BookmarkEmojiSet:
		if !item.setBookmarkEmoji(e.BookmarkID, e.Emoji) {
			l.logger.Warn("skipping emoji for unknown bookmark",
				slog.String("aggregate_id", env.AggregateID.String()),
				slog.String("bookmark_id", e.BookmarkID.String()))
		}
	default:
		l.logger.Warn("skipping unhandled event type",
			slog.String("event_type", env.Event.EventType()))
	}
}

// Item returns the item with the given ID.
func (l *Library) Item(id uuid.UUID) (*LibraryItem, bool) {
	item, ok := l.items[id]
	return item, ok
}

// Items returns all items, most played first. Equal play counts fall
// back to newest first.
func (l *Library) Items() []*LibraryItem {
	items := make([]*LibraryItem, 0, len(l.items))
	for _, item := range l.items {
		items = append(items, item)
	}
	sort.Slice(items, func(a, z int) bool {
		if items[a].PlayCount != items[z].PlayCount {
			return items[a].PlayCount > items[z].PlayCount
		}
		return items[a].CreatedTimeUTC.After(items[z].CreatedTimeUTC)
	})
	return items
}

// Len returns the number of items.
func (l *Library) Len() int { return len(l.items) }

// RandomBookmark picks a uniformly random bookmark across all items.
// Returns false if no item has a bookmark.
func (l *Library) RandomBookmark(rng *rand.Rand) (*LibraryItem, Bookmark, bool) {
	type pick struct {
		item     *LibraryItem
		bookmark Bookmark
	}
	var picks []pick
	for _, item := range l.items {
		for _, b := range item.Bookmarks {
			picks = append(picks, pick{item: item, bookmark: b})
		}
	}
	if len(picks) == 0 {
		return nil, Bookmark{}, false
	}
	p := picks[rng.Intn(len(picks))]
	return p.item, p.bookmark, true
}
