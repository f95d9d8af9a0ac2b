package theme

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events an editor save produces.
const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a file theme when a stylesheet in its directory changes.
// The whole directory is watched so edits to imported partials count too.
type Watcher struct {
	mu     sync.Mutex
	logger *slog.Logger
	fs     *fsnotify.Watcher

	theme            *Theme
	dir              string
	onChangeCallback func(css string)

	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for t, which must not be bundled.
func NewWatcher(t *Theme, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if t == nil || t.Bundled {
		return nil, fmt.Errorf("bundled themes cannot be watched")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create theme watcher: %w", err)
	}
	dir := filepath.Dir(t.Path)
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		logger: logger,
		fs:     fs,
		theme:  t,
		dir:    dir,
	}, nil
}

// SetChangeCallback sets the callback to invoke when the theme changes.
// The callback receives the new CSS and runs on the watcher goroutine.
func (w *Watcher) SetChangeCallback(callback func(css string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChangeCallback = callback
}

// Start begins watching until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.doneCh = make(chan struct{})
	go w.watchLoop(ctx, w.doneCh)
	w.logger.Debug("theme watcher started", "theme", w.theme.Name, "dir", w.dir)
}

// Stop closes the watcher and waits for its goroutine.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	done := w.doneCh
	w.mu.Unlock()

	if err := w.fs.Close(); err != nil {
		w.logger.Debug("closing theme watcher", "error", err)
	}
	if running {
		<-done
	}
}

func (w *Watcher) watchLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".css" {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(reloadDebounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("theme watcher error", "error", err)
		case <-timer.C:
			w.reload()
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	changed, err := w.theme.Reload()
	css := w.theme.CSS
	callback := w.onChangeCallback
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("failed to reload theme", "path", w.theme.Path, "error", err)
		return
	}
	if !changed {
		return
	}
	w.logger.Info("theme file changed, reloading", "theme", w.theme.Name)
	if callback != nil {
		callback(css)
	}
}
