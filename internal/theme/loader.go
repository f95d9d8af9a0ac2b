package theme

import (
	"context"
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// Loader owns the CSS provider popups are styled with. Its methods must
// be called on the GTK main thread.
type Loader struct {
	mu        sync.Mutex
	logger    *slog.Logger
	provider  *gtk.CSSProvider
	themesDir string
	theme     *Theme
	watcher   *Watcher
	applied   bool
}

// NewLoader creates a loader that looks for user themes in themesDir.
func NewLoader(themesDir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:    logger,
		provider:  gtk.NewCSSProvider(),
		themesDir: themesDir,
	}
}

// LoadTheme resolves name and loads it into the provider. When name cannot
// be loaded the default theme is used and the error is returned.
func (l *Loader) LoadTheme(name string) error {
	t, err := Resolve(name, l.themesDir)
	if err != nil {
		l.logger.Warn("theme not loaded, using default", "theme", name, "error", err)
		t, _ = NewBundledTheme(DefaultThemeName)
	}

	l.mu.Lock()
	l.theme = t
	l.mu.Unlock()

	l.provider.LoadFromString(t.CSS)
	l.logger.Info("loaded theme", "name", t.Name, "bundled", t.Bundled, "path", t.Path)
	return err
}

// Current returns the loaded theme.
func (l *Loader) Current() *Theme {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.theme
}

// Apply attaches the provider to display, or the default display when nil.
// It reports whether a display was available.
func (l *Loader) Apply(display *gdk.Display) bool {
	if l.applied {
		return true
	}
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return false
	}

	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	l.applied = true
	return true
}

// StartHotReload watches the loaded theme's files. Bundled themes are not
// watched.
func (l *Loader) StartHotReload(ctx context.Context) {
	l.StopHotReload()

	t := l.Current()
	if t == nil || t.Bundled {
		l.logger.Debug("not starting hot-reload for bundled theme")
		return
	}

	watched := *t
	w, err := NewWatcher(&watched, l.logger)
	if err != nil {
		l.logger.Warn("failed to start theme watcher", "error", err)
		return
	}
	w.SetChangeCallback(func(css string) {
		glib.IdleAdd(func() {
			l.provider.LoadFromString(css)
			l.logger.Info("hot-reloaded theme", "name", t.Name)
		})
	})
	w.Start(ctx)

	l.mu.Lock()
	l.watcher = w
	l.mu.Unlock()
}

// StopHotReload stops watching the theme.
func (l *Loader) StopHotReload() {
	l.mu.Lock()
	w := l.watcher
	l.watcher = nil
	l.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}
