// Package search provides full-text search over the library using Bleve.
// Items are indexed by name, artist, album and file path with fuzzy and
// prefix matching for typo tolerance and autocomplete.
package search

import (
	"github.com/rgwood/ReiTunes/internal/domain"
)

// ItemDocument is the Bleve document for a library item.
type ItemDocument struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	FilePath      string `json:"file_path"`
	Artist        string `json:"artist,omitempty"`
	Album         string `json:"album,omitempty"`
	PlayCount     int    `json:"play_count"`
	BookmarkCount int    `json:"bookmark_count"`
	CreatedAt     int64  `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *ItemDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":             d.ID,
		"name":           d.Name,
		"file_path":      d.FilePath,
		"play_count":     d.PlayCount,
		"bookmark_count": d.BookmarkCount,
		"created_at":     d.CreatedAt,
	}

	if d.Artist != "" {
		m["artist"] = d.Artist
	}
	if d.Album != "" {
		m["album"] = d.Album
	}

	return m
}

// ItemToDocument converts a library item to its search document.
func ItemToDocument(item *domain.LibraryItem) *ItemDocument {
	return &ItemDocument{
		ID:            item.ID.String(),
		Name:          item.Name,
		FilePath:      item.FilePath,
		Artist:        item.Artist,
		Album:         item.Album,
		PlayCount:     item.PlayCount,
		BookmarkCount: len(item.Bookmarks),
		CreatedAt:     item.CreatedTimeUTC.UnixMilli(),
	}
}
