package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/entrykit/internal/mainloop"
	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/queue"
)

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// Options configures a Scheduler.
type Options struct {
	Heuristic queue.Heuristic
	Logger    *slog.Logger

	// Now and AfterFunc default to time.Now and time.AfterFunc.
	Now       func() time.Time
	AfterFunc func(d time.Duration, f func()) Timer
}

// Scheduler orchestrates display and dismissal of entries on one surface.
type Scheduler struct {
	surface    Surface
	dispatcher mainloop.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
	afterFunc  func(time.Duration, func()) Timer

	queue *queue.Queue
	state state

	observers []Observer

	// An exit requested by a dismissal or expiry is in flight. Its
	// completion advances the queue.
	exiting         bool
	exitReason      Reason
	exitCompletions []func()

	// The entry replaced by an override is still animating out. Only one
	// exit is requested from the surface at a time.
	preempting bool

	// Override that arrived while an exit was in flight. It is activated
	// once that exit completes, ahead of the queue head.
	pendingOverride *model.Entry

	timer Timer
}

// New creates a scheduler driving surface. The dispatcher must be the
// execution context every Scheduler method is called on.
func New(surface Surface, dispatcher mainloop.Dispatcher, opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		}
	}

	s := &Scheduler{
		surface:    surface,
		dispatcher: dispatcher,
		logger:     opts.Logger,
		now:        opts.Now,
		afterFunc:  opts.AfterFunc,
		queue:      queue.New(opts.Heuristic),
	}
	s.publish()
	return s
}

// AddObserver registers an observer for lifecycle events.
func (s *Scheduler) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Snapshot returns the last published state. It is safe to call from any goroutine.
func (s *Scheduler) Snapshot() *Snapshot {
	return s.state.load()
}

// IsDisplaying reports whether an entry with the given name is active.
// An empty name matches any active entry. Queued entries never match.
func (s *Scheduler) IsDisplaying(name string) bool {
	return s.state.isDisplaying(name)
}

// QueueContains reports whether an entry with the given name is waiting to
// be displayed, including an override held back by an in-flight exit.
// An empty name reports whether anything is waiting.
func (s *Scheduler) QueueContains(name string) bool {
	if p := s.pendingOverride; p != nil && (name == "" || p.HasName(name)) {
		return true
	}
	if name == "" {
		return !s.queue.IsEmpty()
	}
	return s.queue.Contains(name)
}

// SetHeuristic reorders the backlog under a new heuristic.
func (s *Scheduler) SetHeuristic(h queue.Heuristic) {
	s.queue.SetHeuristic(h)
	s.logger.Debug("queueing heuristic changed", "heuristic", s.queue.Heuristic())
	s.publish()
}

// Submit schedules a new entry.
func (s *Scheduler) Submit(e *model.Entry) {
	if e == nil {
		return
	}
	p := e.Attributes.Precedence

	if !p.IsEnqueue() && !s.surface.CanDisplay(e.Attributes) {
		s.logger.Debug("entry rejected by surface", "entry_id", e.ID, "name", e.Name)
		s.emit(EventDropped, e, ReasonRejected)
		return
	}

	outcome := Classify(p, s.state.active != nil)
	s.logger.Debug("entry submitted",
		"entry_id", e.ID,
		"name", e.Name,
		"precedence", p.String(),
		"outcome", outcome.String(),
	)

	switch outcome {
	case OutcomePreempt:
		s.preempt(e)
	case OutcomeActivate:
		s.setActive(e)
		s.present(e)
	case OutcomeEnqueue:
		s.queue.Enqueue(e)
		s.publish()
		s.emit(EventQueued, e, ReasonNone)
	}
}

func (s *Scheduler) preempt(e *model.Entry) {
	if e.Attributes.Precedence.DropEnqueued {
		s.evict(s.queue.RemoveAll(), ReasonOverridden)
	}

	if s.exiting || s.preempting {
		if prev := s.pendingOverride; prev != nil {
			s.logger.Debug("pending override superseded", "entry_id", prev.ID, "by", e.ID)
			s.emit(EventSuperseded, prev, ReasonOverridden)
		}
		s.pendingOverride = e
		s.publish()
		return
	}

	s.replaceActive(e)
}

// replaceActive shows e in place of the active entry without advancing the
// queue. The replaced entry animates out alongside.
func (s *Scheduler) replaceActive(e *model.Entry) {
	if prev := s.state.active; prev != nil {
		s.stopTimer()
		s.preempting = true
		s.surface.AnimateOutActive(s.onLoopOnce(func() {
			s.preemptedExited(prev)
		}))
	}

	s.setActive(e)
	s.present(e)
}

// preemptedExited runs once the entry replaced by an override has left the
// surface. Work that arrived meanwhile starts now.
func (s *Scheduler) preemptedExited(prev *model.Entry) {
	s.preempting = false
	s.logger.Debug("preempted entry exited", "entry_id", prev.ID, "name", prev.Name)
	s.emit(EventDismissed, prev, ReasonPreempted)

	switch {
	case s.exiting:
		// advance picks up any pending override.
		s.startExit()
	case s.pendingOverride != nil:
		next := s.pendingOverride
		s.pendingOverride = nil
		s.replaceActive(next)
	default:
		s.publish()
	}
}

// Dismiss removes entries matching the descriptor. completion runs after the
// active entry has exited, and only if the descriptor selected it.
func (s *Scheduler) Dismiss(d model.Descriptor, completion func()) {
	active := s.state.active
	hitActive := false
	var removed []*model.Entry

	switch d.Kind {
	case model.DismissDisplayed:
		hitActive = active != nil
	case model.DismissSpecific:
		removed = s.queue.RemoveNamed(d.Name)
		hitActive = active != nil && active.HasName(d.Name)
		s.dropPendingIf(func(e *model.Entry) bool { return e.HasName(d.Name) })
	case model.DismissPrioritized:
		removed = s.queue.RemovePriorityAtOrBelow(d.Threshold)
		hitActive = active != nil && active.Rank() <= d.Threshold
		s.dropPendingIf(func(e *model.Entry) bool { return e.Rank() <= d.Threshold })
	case model.DismissEnqueued:
		removed = s.queue.RemoveAll()
		s.dropPendingIf(func(*model.Entry) bool { return true })
	case model.DismissAll:
		removed = s.queue.RemoveAll()
		hitActive = active != nil
		s.dropPendingIf(func(*model.Entry) bool { return true })
	default:
		s.logger.Warn("unknown dismissal descriptor", "kind", int(d.Kind))
		return
	}

	if len(removed) > 0 {
		s.evict(removed, ReasonDismissed)
	}

	if !hitActive {
		s.logger.Debug("dismissal did not select the active entry", "descriptor", d.String())
		return
	}
	s.beginExit(ReasonDismissed, completion)
}

// Transform replaces the content of the active entry in place.
func (s *Scheduler) Transform(c model.Content) {
	active := s.state.active
	if active == nil {
		return
	}
	t, ok := s.surface.(Transformer)
	if !ok {
		s.logger.Debug("surface does not support transform")
		return
	}

	e := active.WithContent(c)
	s.state.active = e
	s.publish()
	t.Transform(e)
}

func (s *Scheduler) dropPendingIf(match func(*model.Entry) bool) {
	if s.pendingOverride != nil && match(s.pendingOverride) {
		e := s.pendingOverride
		s.pendingOverride = nil
		s.publish()
		s.emit(EventEvicted, e, ReasonDismissed)
	}
}

func (s *Scheduler) evict(entries []*model.Entry, reason Reason) {
	s.publish()
	for _, e := range entries {
		s.emit(EventEvicted, e, reason)
	}
}

// beginExit asks the surface to animate out the active entry. The
// completion of that animation advances the queue. While a preempted entry
// is still leaving, the request waits for it.
func (s *Scheduler) beginExit(reason Reason, completion func()) {
	if completion != nil {
		s.exitCompletions = append(s.exitCompletions, completion)
	}
	if s.exiting {
		return
	}

	s.exiting = true
	s.exitReason = reason
	s.stopTimer()
	s.publish()

	if s.preempting {
		return
	}
	s.startExit()
}

func (s *Scheduler) startExit() {
	prev := s.state.active
	s.surface.AnimateOutActive(s.onLoopOnce(func() {
		completions := s.exitCompletions
		s.exitCompletions = nil
		s.advance(prev, s.exitReason, completions)
	}))
}

// advance runs once the exit of prev has finished.
func (s *Scheduler) advance(prev *model.Entry, reason Reason, completions []func()) {
	s.exiting = false
	s.exitReason = ReasonNone
	s.emit(EventDismissed, prev, reason)

	next := s.pendingOverride
	s.pendingOverride = nil
	if next == nil {
		next, _ = s.queue.Dequeue()
	}

	if next != nil {
		// The successor is already active when completions run, so callers
		// never observe an empty state while something is about to show.
		s.setActive(next)
		runAll(completions)
		s.present(next)
		return
	}

	s.surface.Rollback()
	s.state.clear()
	s.publish()
	s.emit(EventRolledBack, prev, ReasonNone)
	runAll(completions)
}

func (s *Scheduler) setActive(e *model.Entry) {
	s.state.setActive(e, s.now())
	s.publish()
}

// present shows the active entry and arms its display duration.
func (s *Scheduler) present(e *model.Entry) {
	s.surface.Show(e)
	s.emit(EventActivated, e, ReasonNone)
	s.armTimer(e)
}

func (s *Scheduler) armTimer(e *model.Entry) {
	s.stopTimer()
	d := e.Attributes.DisplayDuration
	if d <= 0 {
		return
	}

	activation := s.state.activation
	s.timer = s.afterFunc(d, func() {
		s.dispatcher.Post(func() {
			if s.state.activation != activation || s.state.active == nil || s.exiting {
				return
			}
			s.logger.Debug("entry display duration elapsed", "entry_id", e.ID, "name", e.Name)
			s.beginExit(ReasonExpired, nil)
		})
	})
}

func (s *Scheduler) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// onLoopOnce wraps fn so that it runs at most once, on the dispatcher,
// whichever goroutine the surface calls it from.
func (s *Scheduler) onLoopOnce(fn func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.dispatcher.Post(fn)
		})
	}
}

func (s *Scheduler) publish() {
	s.state.publish(s.queue, s.pendingOverride, s.exiting || s.preempting)
}

func (s *Scheduler) emit(kind EventKind, e *model.Entry, reason Reason) {
	if len(s.observers) == 0 {
		return
	}
	ev := Event{Kind: kind, Entry: e, Reason: reason, At: s.now()}
	for _, o := range s.observers {
		o.OnEvent(ev)
	}
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
