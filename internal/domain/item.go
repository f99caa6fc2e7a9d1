package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Bookmark marks a playback position within a library item.
type Bookmark struct {
	ID       uuid.UUID
	Position time.Duration
	Emoji    string
}

// LibraryItem is the folded state of a single item aggregate.
//
// Bookmarks are kept sorted ascending by position. Ties keep their
// insertion order, so replaying the same events always produces the same
// bookmark order.
type LibraryItem struct {
	ID             uuid.UUID
	Name           string
	FilePath       string
	Artist         string
	Album          string
	CreatedTimeUTC time.Time
	PlayCount      int
	Bookmarks      []Bookmark
}

// Clone returns a deep copy safe to hand out while the original keeps
// mutating under the projection lock.
func (i *LibraryItem) Clone() *LibraryItem {
	if i == nil {
		return nil
	}
	c := *i
	c.Bookmarks = make([]Bookmark, len(i.Bookmarks))
	copy(c.Bookmarks, i.Bookmarks)
	return &c
}

// Bookmark returns the bookmark with the given ID, if present.
func (i *LibraryItem) Bookmark(id uuid.UUID) (Bookmark, bool) {
	for _, b := range i.Bookmarks {
		if b.ID == id {
			return b, true
		}
	}
	return Bookmark{}, false
}

func (i *LibraryItem) addBookmark(b Bookmark) {
	// Bookmark IDs are unique per item. Re-adding an existing ID
	// replaces the bookmark rather than duplicating it.
	i.deleteBookmark(b.ID)
	i.Bookmarks = append(i.Bookmarks, b)
	sort.SliceStable(i.Bookmarks, func(a, z int) bool {
		return i.Bookmarks[a].Position < i.Bookmarks[z].Position
	})
}

func (i *LibraryItem) deleteBookmark(id uuid.UUID) bool {
	for idx, b := range i.Bookmarks {
		if b.ID == id {
			i.Bookmarks = append(i.Bookmarks[:idx], i.Bookmarks[idx+1:]...)
			return true
		}
	}
	return false
}

func (i *LibraryItem) setBookmarkEmoji(id uuid.UUID, emoji string) bool {
	for idx := range i.Bookmarks {
		if i.Bookmarks[idx].ID == id {
			i.Bookmarks[idx].Emoji = emoji
			return true
		}
	}
	return false
}
