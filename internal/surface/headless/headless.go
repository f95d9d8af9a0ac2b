// Package headless provides a presentation surface without a display.
// Entries are logged, and animations are timers of the configured length.
package headless

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/surface"
)

// Surface logs entries instead of rendering them.
type Surface struct {
	mu      sync.Mutex
	logger  *slog.Logger
	timings surface.Timings
	active  *model.Entry
	shown   int
}

// New creates a headless surface.
func New(timings surface.Timings, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{logger: logger, timings: timings}
}

// SetTimings changes animation lengths for subsequent transitions.
func (s *Surface) SetTimings(t surface.Timings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timings = t
}

// CanDisplay always admits; a log has unlimited room.
func (s *Surface) CanDisplay(model.Attributes) bool {
	return true
}

// Show implements scheduler.Surface.
func (s *Surface) Show(e *model.Entry) {
	s.mu.Lock()
	s.active = e
	s.shown++
	s.mu.Unlock()

	s.logger.Info("entry shown",
		"entry_id", e.ID,
		"name", e.Name,
		"summary", e.Content.Summary,
		"precedence", e.Attributes.Precedence.String(),
	)
}

// AnimateOutActive implements scheduler.Surface.
func (s *Surface) AnimateOutActive(done func()) {
	s.mu.Lock()
	prev := s.active
	s.active = nil
	exit := s.timings.Exit
	s.mu.Unlock()

	if prev != nil {
		s.logger.Info("entry hidden", "entry_id", prev.ID, "name", prev.Name)
	}
	time.AfterFunc(exit, done)
}

// Rollback implements scheduler.Surface.
func (s *Surface) Rollback() {
	s.logger.Debug("surface rolled back")
}

// Transform implements scheduler.Transformer.
func (s *Surface) Transform(e *model.Entry) {
	s.mu.Lock()
	s.active = e
	s.mu.Unlock()
	s.logger.Info("entry updated", "entry_id", e.ID, "summary", e.Content.Summary)
}

// Active returns the entry currently shown, if any.
func (s *Surface) Active() *model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Shown returns how many entries have been shown.
func (s *Surface) Shown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}
