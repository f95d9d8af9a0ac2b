package scheduler

import "github.com/jmylchreest/entrykit/internal/model"

// Surface renders entries for the scheduler. The scheduler holds a
// non-owning handle and never manages the surface's lifetime.
//
// Show, AnimateOutActive and Rollback are called on the dispatcher's
// execution context. They must not block.
type Surface interface {
	// CanDisplay is the admission check for entries that cannot be queued.
	CanDisplay(attrs model.Attributes) bool

	// Show renders the entry and animates it in.
	Show(entry *model.Entry)

	// AnimateOutActive starts the exit animation of the current presentation
	// and calls done exactly once when it has finished. done may be called
	// from any goroutine. A Show may follow before done is called, so the
	// exit and the next entry's entrance can overlap. The scheduler never
	// requests a second exit until done has been called for the first.
	AnimateOutActive(done func())

	// Rollback detaches the surface from the host UI once nothing remains.
	Rollback()
}

// Transformer is implemented by surfaces that can replace the content of
// the active presentation in place.
type Transformer interface {
	Transform(entry *model.Entry)
}
