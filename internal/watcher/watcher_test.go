package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWatcher(t *testing.T, opts Options) *Watcher {
	t.Helper()

	w, err := New(testLogger(), opts)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return w
}

// waitForEvent waits for an event or fails the test.
func waitForEvent(t *testing.T, w *Watcher, timeout time.Duration) Event {
	t.Helper()

	select {
	case event := <-w.Events():
		return event
	case err := <-w.Errors():
		t.Fatalf("watcher error: %v", err)
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestWatcher_DetectsNewFile(t *testing.T) {
	dir := t.TempDir()

	w := newTestWatcher(t, Options{SettleDelay: 50 * time.Millisecond})
	defer w.Stop()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	path := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(path, []byte("audio data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	event := waitForEvent(t, w, 5*time.Second)
	if event.Type != EventAdded {
		t.Errorf("event type = %v, want added", event.Type)
	}
	if event.Path != path {
		t.Errorf("event path = %q, want %q", event.Path, path)
	}
	if event.Size != int64(len("audio data")) {
		t.Errorf("event size = %d, want %d", event.Size, len("audio data"))
	}
}

func TestWatcher_SettlingWaitsForWritesToFinish(t *testing.T) {
	dir := t.TempDir()

	w := newTestWatcher(t, Options{SettleDelay: 150 * time.Millisecond})
	defer w.Stop()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Simulate a slow download: write in chunks with short pauses.
	path := filepath.Join(dir, "slow.mp3")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.WriteString(strings.Repeat("x", 1024)); err != nil {
			t.Fatalf("write chunk: %v", err)
		}
		if err := f.Sync(); err != nil {
			t.Fatalf("sync: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	f.Close()

	event := waitForEvent(t, w, 5*time.Second)
	if event.Type != EventAdded {
		t.Fatalf("event type = %v, want added", event.Type)
	}
	if event.Size != 3*1024 {
		t.Errorf("event size = %d, want full file %d", event.Size, 3*1024)
	}
}

func TestWatcher_DetectsRemovedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.mp3")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	w := newTestWatcher(t, Options{SettleDelay: 50 * time.Millisecond})
	defer w.Stop()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	event := waitForEvent(t, w, 5*time.Second)
	if event.Type != EventRemoved {
		t.Errorf("event type = %v, want removed", event.Type)
	}
	if event.Path != path {
		t.Errorf("event path = %q, want %q", event.Path, path)
	}
}

func TestWatcher_FilterSkipsNonMatching(t *testing.T) {
	dir := t.TempDir()

	w := newTestWatcher(t, Options{
		SettleDelay: 50 * time.Millisecond,
		Filter: func(path string) bool {
			return filepath.Ext(path) == ".mp3"
		},
	})
	defer w.Stop()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "track.mp3"), []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	event := waitForEvent(t, w, 5*time.Second)
	if filepath.Ext(event.Path) != ".mp3" {
		t.Errorf("filtered event leaked: %q", event.Path)
	}
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()

	w := newTestWatcher(t, Options{SettleDelay: 50 * time.Millisecond})
	defer w.Stop()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	sub := filepath.Join(dir, "new-album")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// Give the watcher a moment to pick up the new directory.
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(sub, "track.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	event := waitForEvent(t, w, 5*time.Second)
	if event.Path != path {
		t.Errorf("event path = %q, want %q", event.Path, path)
	}
}

func TestWatcher_WatchMissingPath(t *testing.T) {
	w := newTestWatcher(t, Options{})
	defer w.Stop()

	if err := w.Watch("/nonexistent/path"); err == nil {
		t.Error("Watch() on missing path should fail")
	}
}

func TestOptions_ShouldIgnore(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	tests := []struct {
		path string
		want bool
	}{
		{"music/track.mp3", false},
		{"music/.hidden/track.mp3", true},
		{"music/.DS_Store", true},
		{"music/download.tmp", true},
		{"music/download.part", true},
		{"music/Thumbs.db", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := opts.shouldIgnore(tt.path); got != tt.want {
				t.Errorf("shouldIgnore(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestEventType_String(t *testing.T) {
	if EventAdded.String() != "added" {
		t.Errorf("EventAdded.String() = %q", EventAdded.String())
	}
	if EventRemoved.String() != "removed" {
		t.Errorf("EventRemoved.String() = %q", EventRemoved.String())
	}
	if EventType(99).String() != "unknown" {
		t.Errorf("unknown EventType.String() = %q", EventType(99).String())
	}
}
