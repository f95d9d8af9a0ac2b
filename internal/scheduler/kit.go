package scheduler

import (
	"context"

	"github.com/jmylchreest/entrykit/internal/mainloop"
	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/queue"
)

// Kit is the caller-facing handle of a Scheduler. Its methods may be called
// from any goroutine.
type Kit struct {
	sched      *Scheduler
	dispatcher mainloop.Dispatcher
}

// NewKit wraps a scheduler. dispatcher must be the one the scheduler runs on.
func NewKit(sched *Scheduler, dispatcher mainloop.Dispatcher) *Kit {
	return &Kit{sched: sched, dispatcher: dispatcher}
}

// Display submits an entry. It returns before the entry is scheduled.
//
// An override submitted while an exit animation is in flight waits for that
// exit and is reported by QueueContains until then. If another override
// arrives first, the waiting one is dropped without being shown and only a
// superseded event is emitted for it.
func (k *Kit) Display(e *model.Entry) {
	k.dispatcher.Post(func() { k.sched.Submit(e) })
}

// Dismiss removes entries matching the descriptor. completion, if non-nil,
// runs on the scheduler's execution context after the active entry exits.
func (k *Kit) Dismiss(d model.Descriptor, completion func()) {
	k.dispatcher.Post(func() { k.sched.Dismiss(d, completion) })
}

// Transform replaces the content of the active entry.
func (k *Kit) Transform(c model.Content) {
	k.dispatcher.Post(func() { k.sched.Transform(c) })
}

// SetHeuristic switches the queueing heuristic.
func (k *Kit) SetHeuristic(h queue.Heuristic) {
	k.dispatcher.Post(func() { k.sched.SetHeuristic(h) })
}

// AddObserver registers an observer on the scheduler's execution context.
func (k *Kit) AddObserver(o Observer) {
	k.dispatcher.Post(func() { k.sched.AddObserver(o) })
}

// IsCurrentlyDisplaying reports whether an entry with the given name is
// active. The answer is best-effort off the scheduler's context.
func (k *Kit) IsCurrentlyDisplaying(name string) bool {
	return k.sched.Snapshot().IsDisplaying(name)
}

// QueueContains reports whether an entry with the given name is queued.
// The answer is best-effort off the scheduler's context.
func (k *Kit) QueueContains(name string) bool {
	return k.sched.Snapshot().QueueContains(name)
}

// Snapshot returns the last published state.
func (k *Kit) Snapshot() *Snapshot {
	return k.sched.Snapshot()
}

// Call runs fn with the scheduler on its execution context and waits for it.
// It must not be called from that context.
func (k *Kit) Call(ctx context.Context, fn func(s *Scheduler)) error {
	done := make(chan struct{})
	k.dispatcher.Post(func() {
		defer close(done)
		fn(k.sched)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
