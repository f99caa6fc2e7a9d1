// Package metadata extracts item metadata from audio files, combining
// embedded tags with filename heuristics for untagged downloads.
package metadata

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/simonhull/audiometa"
)

// ItemMetadata is what an import derives from a single audio file.
type ItemMetadata struct {
	Name   string
	Artist string
	Album  string
}

// bracketedID matches trailing site IDs like "[dQw4w9WgXcQ]" that
// downloaders append to filenames.
var bracketedID = regexp.MustCompile(`\s*\[[^\[\]]+\]\s*$`)

// fullAlbumMarker matches "(Full Album)" style suffixes, with optional
// extra words, e.g. "(Full Album 2014)".
var fullAlbumMarker = regexp.MustCompile(`(?i)\s*\((full album[^)]*)\)\s*`)

// Extract reads metadata for an audio file. Embedded tags win; any
// field the tags leave blank is filled from the filename.
func Extract(ctx context.Context, path string, logger *slog.Logger) ItemMetadata {
	meta := FromFilename(path)

	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		// Untaggable or unsupported format. The filename is all we have.
		logger.Debug("no readable tags, using filename", "path", path, "error", err)
		return meta
	}
	defer file.Close() //nolint:errcheck // Read-only probe

	if file.Tags.Title != "" {
		meta.Name = file.Tags.Title
	}
	if file.Tags.Artist != "" {
		meta.Artist = file.Tags.Artist
	}
	if file.Tags.Album != "" {
		meta.Album = file.Tags.Album
	}

	return meta
}

// FromFilename derives metadata from the file name alone:
//
//	"Boards of Canada - Dayvan Cowboy [dQw4w9WgXcQ].mp3"
//	  -> artist "Boards of Canada", name "Dayvan Cowboy"
//	"Mort Garson - Mother Earth's Plantasia (Full Album).m4a"
//	  -> artist "Mort Garson", album and name "Mother Earth's Plantasia"
func FromFilename(path string) ItemMetadata {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	base = bracketedID.ReplaceAllString(base, "")

	isFullAlbum := fullAlbumMarker.MatchString(base)
	base = fullAlbumMarker.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	meta := ItemMetadata{Name: base}

	// "Artist - Title" split on the first separator only, so titles
	// containing dashes survive.
	if artist, title, ok := strings.Cut(base, " - "); ok {
		artist = strings.TrimSpace(artist)
		title = strings.TrimSpace(title)
		if artist != "" && title != "" {
			meta.Artist = artist
			meta.Name = title
		}
	}

	if isFullAlbum {
		meta.Album = meta.Name
	}

	return meta
}

// IsAudioFile reports whether the path looks like an audio file we can
// import.
func IsAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".m4a", ".m4b", ".aac", ".flac", ".ogg", ".opus", ".wav":
		return true
	default:
		return false
	}
}
