package importer

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgwood/ReiTunes/internal/domain"
	"github.com/rgwood/ReiTunes/internal/service"
	"github.com/rgwood/ReiTunes/internal/store/sqlite"
	"github.com/rgwood/ReiTunes/internal/watcher"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestImporter(t *testing.T) (*Importer, *service.LibraryService, string) {
	t.Helper()
	logger := testLogger()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "library.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	library := service.NewLibraryService(st, domain.NewIncreasingClock(), "test-machine", logger)
	require.NoError(t, library.Load(context.Background()))

	musicDir := t.TempDir()
	return New(library, musicDir, logger), library, musicDir
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not really audio"), 0o644))
}

func TestImportFile(t *testing.T) {
	imp, library, musicDir := newTestImporter(t)

	path := filepath.Join(musicDir, "M83", "M83 - Intro.mp3")
	writeFile(t, path)

	imported, err := imp.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, imported)

	items := library.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Intro", items[0].Name)
	assert.Equal(t, "M83", items[0].Artist)
	assert.Equal(t, "M83/M83 - Intro.mp3", items[0].FilePath)
}

func TestImportFile_SkipsNonAudio(t *testing.T) {
	imp, library, musicDir := newTestImporter(t)

	path := filepath.Join(musicDir, "cover.jpg")
	writeFile(t, path)

	imported, err := imp.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, imported)
	assert.Empty(t, library.Items())
}

func TestImportFile_SkipsDuplicates(t *testing.T) {
	imp, library, musicDir := newTestImporter(t)

	path := filepath.Join(musicDir, "song.mp3")
	writeFile(t, path)

	first, err := imp.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := imp.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, second)
	assert.Len(t, library.Items(), 1)
}

func TestHandleEvent_AddedImports(t *testing.T) {
	imp, library, musicDir := newTestImporter(t)

	path := filepath.Join(musicDir, "song.mp3")
	writeFile(t, path)

	err := imp.HandleEvent(context.Background(), watcher.Event{
		Type: watcher.EventAdded,
		Path: path,
	})
	require.NoError(t, err)
	assert.Len(t, library.Items(), 1)
}

func TestHandleEvent_RemovedKeepsItem(t *testing.T) {
	imp, library, musicDir := newTestImporter(t)

	path := filepath.Join(musicDir, "song.mp3")
	writeFile(t, path)

	_, err := imp.ImportFile(context.Background(), path)
	require.NoError(t, err)

	err = imp.HandleEvent(context.Background(), watcher.Event{
		Type: watcher.EventRemoved,
		Path: path,
	})
	require.NoError(t, err)
	assert.Len(t, library.Items(), 1)
}

func TestScanDirectory(t *testing.T) {
	imp, library, musicDir := newTestImporter(t)

	writeFile(t, filepath.Join(musicDir, "a", "one.mp3"))
	writeFile(t, filepath.Join(musicDir, "a", "two.m4a"))
	writeFile(t, filepath.Join(musicDir, "b", "three.flac"))
	writeFile(t, filepath.Join(musicDir, "b", "notes.txt"))

	result, err := imp.ScanDirectory(context.Background(), musicDir)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Zero(t, result.Skipped)
	assert.Len(t, library.Items(), 3)

	// A second scan finds nothing new.
	result, err = imp.ScanDirectory(context.Background(), musicDir)
	require.NoError(t, err)
	assert.Zero(t, result.Imported)
	assert.Equal(t, 3, result.Skipped)
}

func TestRelativePath_OutsideMusicDir(t *testing.T) {
	imp, _, _ := newTestImporter(t)

	rel := imp.relativePath(filepath.Join(string(filepath.Separator), "elsewhere", "song.mp3"))
	assert.Equal(t, "song.mp3", rel)
}
