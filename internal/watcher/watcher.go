// Package watcher monitors the music directory for new and removed
// audio files using fsnotify with write-settling, so half-downloaded
// files are not imported mid-transfer.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file system event.
type EventType int

const (
	// EventAdded is emitted when a new audio file is detected (after settling).
	EventAdded EventType = iota
	// EventRemoved is emitted when an audio file is deleted.
	EventRemoved
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a file system event.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}

// pendingEvent tracks a file that may still be changing.
type pendingEvent struct {
	path    string
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// Watcher watches directories recursively and emits settled events.
type Watcher struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	pending map[string]*pendingEvent // path -> pending event info
	mu      sync.Mutex               // protects pending map

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a new file watcher.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger,
		opts:    opts,
		watcher: fsw,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a path to be monitored. Directories are watched recursively.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return w.watchDir(path)
	}
	return w.watcher.Add(filepath.Dir(path))
}

// watchDir recursively watches a directory tree.
func (w *Watcher) watchDir(path string) error {
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}

		if w.opts.shouldIgnore(p) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if err := w.watcher.Add(p); err != nil {
			w.logger.Error("failed to add watch", "path", p, "error", err)
			return nil
		}

		w.logger.Debug("added watch", "path", p)
		return nil
	})
}

// Start begins watching for events. Blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.processEvents(ctx)

	<-ctx.Done()
	return nil
}

// Events returns the events channel.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the errors channel.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)

	w.mu.Lock()
	for _, pending := range w.pending {
		pending.timer.Stop()
	}
	clear(w.pending)
	w.mu.Unlock()

	w.watcher.Close()
	w.wg.Wait()

	close(w.events)
	close(w.errors)

	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.errors <- err
		}
	}
}

func (w *Watcher) handleFsnotifyEvent(event fsnotify.Event) {
	path := event.Name

	if w.opts.shouldIgnore(path) {
		return
	}

	// New subdirectories need their own watches.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.watchDir(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.cancelPending(path)
		if w.opts.matchesFilter(path) {
			w.emitEvent(Event{Type: EventRemoved, Path: path})
		}
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		if w.opts.matchesFilter(path) {
			w.startSettling(path)
		}
	}
}

// startSettling begins the settling process for a file.
func (w *Watcher) startSettling(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if pending, exists := w.pending[path]; exists {
		pending.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		w.logger.Warn("failed to stat file", "path", path, "error", err)
		delete(w.pending, path)
		return
	}
	if info.IsDir() {
		return
	}

	pending := &pendingEvent{
		path:    path,
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	pending.timer = time.AfterFunc(w.opts.SettleDelay, func() {
		w.checkSettled(path)
	})

	w.pending[path] = pending
}

// checkSettled re-stats the file; if it stopped growing the event fires,
// otherwise the timer restarts.
func (w *Watcher) checkSettled(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending, exists := w.pending[path]
	if !exists {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		// File was deleted while settling.
		delete(w.pending, path)
		w.emitEvent(Event{Type: EventRemoved, Path: path})
		return
	}

	if info.Size() != pending.size || info.ModTime() != pending.modTime {
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(w.opts.SettleDelay, func() {
			w.checkSettled(path)
		})
		return
	}

	delete(w.pending, path)

	w.emitEvent(Event{
		Type:    EventAdded,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if pending, exists := w.pending[path]; exists {
		pending.timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) emitEvent(event Event) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}
