package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher drops cached sounds when their files change on disk.
type Watcher struct {
	mu     sync.Mutex
	logger *slog.Logger
	player *Player

	fs    *fsnotify.Watcher
	paths map[string]struct{}
	dirs  map[string]struct{}

	done    chan struct{}
	running bool
}

// NewWatcher creates a watcher that invalidates entries in player's cache.
func NewWatcher(player *Player, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create sound watcher: %w", err)
	}

	return &Watcher{
		logger: logger,
		player: player,
		fs:     fs,
		paths:  make(map[string]struct{}),
		dirs:   make(map[string]struct{}),
	}, nil
}

// Watch adds a sound file. Its directory is watched, so the file may be
// replaced atomically.
func (w *Watcher) Watch(path string) {
	if path == "" {
		return
	}
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.paths[path] = struct{}{}
	dir := filepath.Dir(path)
	if _, ok := w.dirs[dir]; ok {
		return
	}
	if err := w.fs.Add(dir); err != nil {
		w.logger.Warn("failed to watch sound directory", "dir", dir, "error", err)
		return
	}
	w.dirs[dir] = struct{}{}
}

// Reset forgets every watched file. Directories stay watched.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths = make(map[string]struct{})
}

// Start processes file events until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			path := filepath.Clean(event.Name)
			w.mu.Lock()
			_, watched := w.paths[path]
			w.mu.Unlock()
			if !watched {
				continue
			}

			w.logger.Debug("sound file changed, invalidating cache", "path", path)
			w.player.Invalidate(path)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("sound watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

// Stop closes the underlying watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if err := w.fs.Close(); err != nil {
		w.logger.Debug("closing sound watcher", "error", err)
	}
	if running {
		<-w.done
	}
}
