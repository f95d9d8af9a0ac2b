package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/queue"
)

// Snapshot is an immutable view of the presentation state and backlog.
type Snapshot struct {
	Active      *model.Entry
	ActivatedAt time.Time
	Heuristic   queue.Heuristic

	// Queued lists waiting entries in activation order. An override held
	// back by an in-flight exit comes first.
	Queued []*model.Entry

	// Exiting is set while an exit animation is in flight.
	Exiting bool
}

// IsDisplaying reports whether the active entry has the given name.
// An empty name matches any active entry.
func (s *Snapshot) IsDisplaying(name string) bool {
	if s == nil || s.Active == nil {
		return false
	}
	if name == "" {
		return true
	}
	return s.Active.Name == name
}

// QueueContains reports whether a queued entry has the given name.
// An empty name reports whether anything is queued.
func (s *Snapshot) QueueContains(name string) bool {
	if s == nil {
		return false
	}
	if name == "" {
		return len(s.Queued) > 0
	}
	for _, e := range s.Queued {
		if e.Name == name {
			return true
		}
	}
	return false
}

// state is the presentation state owned by the scheduler.
type state struct {
	active      *model.Entry
	activatedAt time.Time

	// activation increments each time an entry becomes active, so that
	// deferred work can tell whether it still refers to the same activation.
	activation uint64

	snapshot atomic.Pointer[Snapshot]
}

func (st *state) setActive(e *model.Entry, at time.Time) {
	st.active = e
	st.activatedAt = at
	st.activation++
}

func (st *state) clear() {
	st.active = nil
	st.activatedAt = time.Time{}
}

// isDisplaying is the on-loop form of Snapshot.IsDisplaying.
func (st *state) isDisplaying(name string) bool {
	if st.active == nil {
		return false
	}
	return name == "" || st.active.Name == name
}

func (st *state) publish(q *queue.Queue, pending *model.Entry, exiting bool) {
	queued := q.Entries()
	if pending != nil {
		queued = append([]*model.Entry{pending}, queued...)
	}
	st.snapshot.Store(&Snapshot{
		Active:      st.active,
		ActivatedAt: st.activatedAt,
		Queued:      queued,
		Heuristic:   q.Heuristic(),
		Exiting:     exiting,
	})
}

func (st *state) load() *Snapshot {
	if snap := st.snapshot.Load(); snap != nil {
		return snap
	}
	return &Snapshot{}
}
