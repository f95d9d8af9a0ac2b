package popup

import (
	"time"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/model"
)

// frameMillis is the fade animation tick.
const frameMillis = 16

// banner is the layer-shell window of one entry.
type banner struct {
	entry  *model.Entry
	window *gtk.Window
	box    *gtk.Box

	icon    *gtk.Image
	summary *gtk.Label
	body    *gtk.Label

	anim      glib.SourceHandle
	animating bool
	closed    bool
}

func newBanner(app *gtk.Application, e *model.Entry, cfg config.DisplayConfig, scheme string, onClick func()) *banner {
	b := &banner{entry: e}

	b.window = gtk.NewWindow()
	b.window.SetApplication(app)
	b.window.SetDecorated(false)
	b.window.SetResizable(false)
	b.window.SetDefaultSize(cfg.Width, -1)

	layershell.InitForWindow(b.window)
	layershell.SetLayer(b.window, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(b.window, 0)
	layershell.SetKeyboardMode(b.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(b.window, "entrykit")
	placementFor(cfg).apply(b.window)

	row := gtk.NewBox(gtk.OrientationHorizontal, 10)
	b.icon = gtk.NewImage()
	b.icon.SetPixelSize(32)
	row.Append(b.icon)

	text := gtk.NewBox(gtk.OrientationVertical, 2)
	text.SetHExpand(true)
	b.summary = gtk.NewLabel("")
	b.summary.AddCSSClass("entrykit-summary")
	b.summary.SetXAlign(0)
	b.summary.SetEllipsize(3) // PANGO_ELLIPSIZE_END
	text.Append(b.summary)
	b.body = gtk.NewLabel("")
	b.body.AddCSSClass("entrykit-body")
	b.body.SetXAlign(0)
	b.body.SetWrap(true)
	b.body.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
	text.Append(b.body)
	row.Append(text)

	b.box = gtk.NewBox(gtk.OrientationVertical, 0)
	b.box.Append(row)
	b.window.SetChild(b.box)

	b.setContent(e, scheme)

	click := gtk.NewGestureClick()
	click.ConnectReleased(func(int, float64, float64) {
		if onClick != nil {
			onClick()
		}
	})
	b.window.AddController(click)

	return b
}

func (b *banner) setContent(e *model.Entry, scheme string) {
	b.entry = e
	b.summary.SetText(e.Content.Summary)
	b.body.SetText(e.Content.Body)
	b.body.SetVisible(e.Content.Body != "")
	if e.Content.Icon != "" {
		b.icon.SetFromIconName(e.Content.Icon)
		b.icon.SetVisible(true)
	} else {
		b.icon.SetVisible(false)
	}
	b.box.SetCSSClasses(classesFor(e, scheme))
}

// fade animates the window opacity to target over d, then runs done.
// A fade in progress is cancelled and continues from the current opacity.
func (b *banner) fade(target float64, d time.Duration, done func()) {
	b.stopAnimation()

	from := b.window.Opacity()
	if d <= 0 {
		b.window.SetOpacity(target)
		if done != nil {
			done()
		}
		return
	}

	start := time.Now()
	b.animating = true
	b.anim = glib.TimeoutAdd(frameMillis, func() bool {
		t := easeOut(progress(time.Since(start), d))
		b.window.SetOpacity(from + (target-from)*t)
		if t < 1 {
			return true
		}
		b.animating = false
		if done != nil {
			done()
		}
		return false
	})
}

func (b *banner) stopAnimation() {
	if b.animating {
		glib.SourceRemove(b.anim)
		b.animating = false
	}
}

func (b *banner) close() {
	if b.closed {
		return
	}
	b.closed = true
	b.stopAnimation()
	b.window.Close()
}

func progress(elapsed, total time.Duration) float64 {
	if total <= 0 || elapsed >= total {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / float64(total)
}

// easeOut is a quadratic ease-out curve on [0, 1].
func easeOut(t float64) float64 {
	return 1 - (1-t)*(1-t)
}
