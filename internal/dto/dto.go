// Package dto contains the JSON views of domain types served by the API
// and carried in SSE events. Durations are exposed as floating-point
// seconds here; the storage duration format never leaves the event log.
package dto

import (
	"time"

	"github.com/rgwood/ReiTunes/internal/domain"
)

// Bookmark is the API view of a bookmark.
type Bookmark struct {
	ID              string  `json:"id"`
	PositionSeconds float64 `json:"position_seconds"`
	Emoji           string  `json:"emoji"`
}

// Item is the API view of a library item.
type Item struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	FilePath       string     `json:"file_path"`
	Artist         string     `json:"artist,omitempty"`
	Album          string     `json:"album,omitempty"`
	CreatedTimeUTC time.Time  `json:"created_time_utc"`
	PlayCount      int        `json:"play_count"`
	Bookmarks      []Bookmark `json:"bookmarks"`
	DownloadURL    string     `json:"download_url,omitempty"`
}

// EventRow is the diagnostic view of a stored event.
type EventRow struct {
	ID             string    `json:"id"`
	AggregateID    string    `json:"aggregate_id"`
	EventType      string    `json:"event_type"`
	CreatedTimeUTC time.Time `json:"created_time_utc"`
	MachineName    string    `json:"machine_name"`
}

// FromBookmark converts a domain bookmark.
func FromBookmark(b domain.Bookmark) Bookmark {
	return Bookmark{
		ID:              b.ID.String(),
		PositionSeconds: b.Position.Seconds(),
		Emoji:           b.Emoji,
	}
}

// FromItem converts a domain item.
func FromItem(item *domain.LibraryItem) *Item {
	if item == nil {
		return nil
	}
	bookmarks := make([]Bookmark, len(item.Bookmarks))
	for i, b := range item.Bookmarks {
		bookmarks[i] = FromBookmark(b)
	}
	return &Item{
		ID:             item.ID.String(),
		Name:           item.Name,
		FilePath:       item.FilePath,
		Artist:         item.Artist,
		Album:          item.Album,
		CreatedTimeUTC: item.CreatedTimeUTC,
		PlayCount:      item.PlayCount,
		Bookmarks:      bookmarks,
	}
}

// FromItems converts a slice of domain items, preserving order.
func FromItems(items []*domain.LibraryItem) []*Item {
	out := make([]*Item, len(items))
	for i, item := range items {
		out[i] = FromItem(item)
	}
	return out
}

// FromEnvelope converts an envelope to its diagnostic row view.
func FromEnvelope(env domain.EventEnvelope) EventRow {
	return EventRow{
		ID:             env.ID.String(),
		AggregateID:    env.AggregateID.String(),
		EventType:      env.Event.EventType(),
		CreatedTimeUTC: env.CreatedTimeUTC,
		MachineName:    env.MachineName,
	}
}

// FromEnvelopes converts envelopes to diagnostic rows, preserving order.
func FromEnvelopes(envelopes []domain.EventEnvelope) []EventRow {
	out := make([]EventRow, len(envelopes))
	for i, env := range envelopes {
		out[i] = FromEnvelope(env)
	}
	return out
}
