// Package term is a terminal presentation surface built on bubbletea.
// The bubbletea event loop is the scheduler's execution context: scheduler
// tasks arrive as messages, and the surface animates with tick frames.
package term

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/surface"
)

// frameInterval is the animation tick.
const frameInterval = 33 * time.Millisecond

// Phase is the animation state of a banner.
type Phase int

const (
	PhaseHidden Phase = iota
	PhaseEntering
	PhaseShown
	PhaseExiting
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseEntering:
		return "entering"
	case PhaseShown:
		return "shown"
	case PhaseExiting:
		return "exiting"
	default:
		return "hidden"
	}
}

// Banner is an entry on screen together with its animation progress.
type Banner struct {
	Entry    *model.Entry
	Phase    Phase
	Progress float64
}

type leaving struct {
	entry *model.Entry
	since time.Time
	done  func()
}

type frameMsg time.Time

// Surface renders the active entry as a banner. All methods must be called
// from the bubbletea event loop.
type Surface struct {
	timings surface.Timings
	now     func() time.Time

	current  *model.Entry
	phase    Phase
	since    time.Time
	outgoing []leaving

	minWidth int
	width    int
	ticking  bool
}

// NewSurface creates a terminal surface. now may be nil.
func NewSurface(timings surface.Timings, now func() time.Time) *Surface {
	if now == nil {
		now = time.Now
	}
	return &Surface{timings: timings, now: now, minWidth: 20}
}

// SetWidth records the terminal width used for admission.
func (s *Surface) SetWidth(w int) {
	s.width = w
}

// CanDisplay implements scheduler.Surface. A terminal narrower than a
// banner cannot host an override.
func (s *Surface) CanDisplay(model.Attributes) bool {
	return s.width == 0 || s.width >= s.minWidth
}

// Show implements scheduler.Surface.
func (s *Surface) Show(e *model.Entry) {
	s.current = e
	s.phase = PhaseEntering
	s.since = s.now()
	if s.timings.Enter <= 0 {
		s.phase = PhaseShown
	}
}

// AnimateOutActive implements scheduler.Surface. The banner keeps fading
// while a successor enters.
func (s *Surface) AnimateOutActive(done func()) {
	e := s.current
	s.current = nil
	s.phase = PhaseHidden
	if e == nil || s.timings.Exit <= 0 {
		done()
		return
	}
	s.outgoing = append(s.outgoing, leaving{entry: e, since: s.now(), done: done})
}

// Rollback implements scheduler.Surface.
func (s *Surface) Rollback() {
	s.current = nil
	s.phase = PhaseHidden
}

// Transform implements scheduler.Transformer.
func (s *Surface) Transform(e *model.Entry) {
	if s.current != nil && s.current.ID == e.ID {
		s.current = e
	}
}

// Current returns the active banner, if any.
func (s *Surface) Current() (Banner, bool) {
	if s.current == nil {
		return Banner{}, false
	}
	b := Banner{Entry: s.current, Phase: s.phase, Progress: 1}
	if s.phase == PhaseEntering {
		b.Progress = progress(s.now().Sub(s.since), s.timings.Enter)
	}
	return b, true
}

// Outgoing returns banners still fading out, oldest first.
func (s *Surface) Outgoing() []Banner {
	out := make([]Banner, 0, len(s.outgoing))
	now := s.now()
	for _, l := range s.outgoing {
		out = append(out, Banner{
			Entry:    l.entry,
			Phase:    PhaseExiting,
			Progress: 1 - progress(now.Sub(l.since), s.timings.Exit),
		})
	}
	return out
}

// Animating reports whether a banner is entering or exiting.
func (s *Surface) Animating() bool {
	return s.phase == PhaseEntering || len(s.outgoing) > 0
}

// Frame advances animations to now and fires finished exit callbacks.
func (s *Surface) Frame() {
	now := s.now()
	if s.phase == PhaseEntering && now.Sub(s.since) >= s.timings.Enter {
		s.phase = PhaseShown
	}

	var finished []func()
	kept := s.outgoing[:0]
	for _, l := range s.outgoing {
		if now.Sub(l.since) >= s.timings.Exit {
			finished = append(finished, l.done)
			continue
		}
		kept = append(kept, l)
	}
	s.outgoing = kept

	for _, done := range finished {
		done()
	}
}

// tick returns the next frame command, or nil if a frame is pending or
// nothing is animating.
func (s *Surface) tick() tea.Cmd {
	if s.ticking || !s.Animating() {
		return nil
	}
	s.ticking = true
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (s *Surface) onFrame() {
	s.ticking = false
	s.Frame()
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
