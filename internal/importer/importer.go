// Package importer turns audio files on disk into library items. It
// consumes file watcher events for continuous import and can scan a
// whole directory for the initial import.
package importer

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/rgwood/ReiTunes/internal/metadata"
	"github.com/rgwood/ReiTunes/internal/service"
	"github.com/rgwood/ReiTunes/internal/watcher"
)

// Importer creates library items for audio files found under the music
// directory. Items are keyed by their path relative to that directory,
// so a file seen twice is imported once.
type Importer struct {
	library   *service.LibraryService
	musicPath string
	logger    *slog.Logger
}

// New creates an importer rooted at musicPath.
func New(library *service.LibraryService, musicPath string, logger *slog.Logger) *Importer {
	return &Importer{
		library:   library,
		musicPath: musicPath,
		logger:    logger,
	}
}

// HandleEvent processes one file watcher event. Removals are ignored:
// the library is an event log, and dropping an item is an explicit user
// action, not a side effect of moving files around.
func (imp *Importer) HandleEvent(ctx context.Context, event watcher.Event) error {
	switch event.Type {
	case watcher.EventAdded:
		_, err := imp.ImportFile(ctx, event.Path)
		return err
	case watcher.EventRemoved:
		imp.logger.Debug("file removed, keeping library item",
			slog.String("path", event.Path))
		return nil
	default:
		return nil
	}
}

// ImportFile imports a single audio file. It returns false without
// error when the file is not audio or is already in the library.
func (imp *Importer) ImportFile(ctx context.Context, path string) (bool, error) {
	if !metadata.IsAudioFile(path) {
		return false, nil
	}

	relPath := imp.relativePath(path)
	if imp.hasFilePath(relPath) {
		imp.logger.Debug("file already in library",
			slog.String("file_path", relPath))
		return false, nil
	}

	meta := metadata.Extract(ctx, path, imp.logger)

	item, err := imp.library.CreateItem(ctx, meta.Name, relPath, meta.Artist, meta.Album)
	if err != nil {
		return false, err
	}

	imp.logger.Info("imported file",
		slog.String("item_id", item.ID.String()),
		slog.String("name", item.Name),
		slog.String("file_path", relPath))
	return true, nil
}

// ScanResult reports what a directory scan did.
type ScanResult struct {
	Imported int
	Skipped  int
}

// ScanDirectory walks root and imports every audio file not already in
// the library. Files that fail to import are logged and skipped so one
// bad file does not abort the whole scan.
func (imp *Importer) ScanDirectory(ctx context.Context, root string) (ScanResult, error) {
	var result ScanResult

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !metadata.IsAudioFile(path) {
			return nil
		}

		imported, err := imp.ImportFile(ctx, path)
		if err != nil {
			imp.logger.Warn("failed to import file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			result.Skipped++
			return nil
		}
		if imported {
			result.Imported++
		} else {
			result.Skipped++
		}
		return nil
	})
	return result, err
}

// relativePath converts an absolute file path to the library-relative
// form used in item file paths, with forward slashes.
func (imp *Importer) relativePath(path string) string {
	if imp.musicPath != "" {
		if rel, err := filepath.Rel(imp.musicPath, path); err == nil && !isOutside(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}

func isOutside(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

func (imp *Importer) hasFilePath(relPath string) bool {
	for _, item := range imp.library.Items() {
		if item.FilePath == relPath {
			return true
		}
	}
	return false
}
