// Package popup presents entries as a layer-shell window on Wayland.
// All surface methods run on the GTK main thread; use Dispatcher as the
// scheduler's execution context.
package popup

import (
	"context"
	"log/slog"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/surface"
	"github.com/jmylchreest/entrykit/internal/theme"
)

// Dispatcher posts tasks to the GLib main loop. Idle sources of equal
// priority run in the order they were added.
type Dispatcher struct{}

// Post implements mainloop.Dispatcher.
func (Dispatcher) Post(fn func()) {
	glib.IdleAdd(fn)
}

// Surface shows the active entry in its own popup window. An exiting
// window fades out independently of its successor.
type Surface struct {
	app     *gtk.Application
	logger  *slog.Logger
	display config.DisplayConfig
	timings surface.Timings

	current   *banner
	onDismiss func()
	theme     *theme.Loader
}

// New creates a popup surface. It must be called on the GTK main thread
// after the application has started.
func New(app *gtk.Application, display config.DisplayConfig, timings surface.Timings, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Surface{
		app:     app,
		logger:  logger,
		display: display,
		timings: timings,
		theme:   theme.NewLoader(theme.ThemesDir(), logger),
	}
	if err := s.theme.LoadTheme(display.Theme); err != nil {
		logger.Warn("failed to load popup theme", "theme", display.Theme, "error", err)
	}
	s.theme.StartHotReload(context.Background())
	return s
}

// SetDismissHandler sets the handler called when the user clicks the popup.
func (s *Surface) SetDismissHandler(fn func()) {
	s.onDismiss = fn
}

// UpdateConfig applies new placement and timings to subsequent popups and
// switches theme when it changed. A theme that fails to load is reported
// and replaced by the default.
func (s *Surface) UpdateConfig(display config.DisplayConfig, timings surface.Timings) error {
	prev := s.display.Theme
	s.display = display
	s.timings = timings
	if display.Theme == prev {
		return nil
	}

	err := s.theme.LoadTheme(display.Theme)
	s.theme.StartHotReload(context.Background())
	return err
}

// Close stops watching the theme.
func (s *Surface) Close() {
	s.theme.StopHotReload()
}

// CanDisplay implements scheduler.Surface. Without a display nothing can
// be shown.
func (s *Surface) CanDisplay(model.Attributes) bool {
	return gdk.DisplayGetDefault() != nil
}

// Show implements scheduler.Surface.
func (s *Surface) Show(e *model.Entry) {
	s.ensureStyle()

	b := newBanner(s.app, e, s.display, colorSchemeClass(s.display.ColorScheme), func() {
		if s.onDismiss != nil {
			s.onDismiss()
		}
	})
	s.current = b

	b.window.SetOpacity(0)
	b.window.Present()
	b.fade(s.targetOpacity(), s.timings.Enter, nil)
	s.logger.Debug("popup shown", "entry_id", e.ID, "name", e.Name)
}

// AnimateOutActive implements scheduler.Surface.
func (s *Surface) AnimateOutActive(done func()) {
	b := s.current
	s.current = nil
	if b == nil {
		done()
		return
	}

	b.fade(0, s.timings.Exit, func() {
		b.close()
		s.logger.Debug("popup closed", "entry_id", b.entry.ID)
		done()
	})
}

// Rollback implements scheduler.Surface.
func (s *Surface) Rollback() {
	s.logger.Debug("popup surface idle")
}

// Transform implements scheduler.Transformer.
func (s *Surface) Transform(e *model.Entry) {
	if s.current == nil || s.current.entry.ID != e.ID {
		return
	}
	s.current.setContent(e, colorSchemeClass(s.display.ColorScheme))
}

func (s *Surface) targetOpacity() float64 {
	if s.display.Opacity <= 0 || s.display.Opacity > 1 {
		return 1
	}
	return s.display.Opacity
}

func (s *Surface) ensureStyle() {
	s.theme.Apply(nil)
}
