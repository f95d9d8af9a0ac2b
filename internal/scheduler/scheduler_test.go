package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/entrykit/internal/mainloop"
	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/queue"
)

// fakeSurface records the calls made by the scheduler. Exit animations are
// held until the test finishes them, unless async is set.
type fakeSurface struct {
	mu     sync.Mutex
	calls  []string
	exits  []func()
	reject bool
	async  bool
}

func (f *fakeSurface) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSurface) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSurface) CanDisplay(model.Attributes) bool { return !f.reject }

func (f *fakeSurface) Show(e *model.Entry) { f.record("show:" + e.Name) }

func (f *fakeSurface) AnimateOutActive(done func()) {
	f.record("out")
	if f.async {
		go done()
		return
	}
	f.mu.Lock()
	f.exits = append(f.exits, done)
	f.mu.Unlock()
}

func (f *fakeSurface) Rollback() { f.record("rollback") }

// finishExit completes the oldest pending exit animation.
func (f *fakeSurface) finishExit(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	require.NotEmpty(t, f.exits, "no exit animation in flight")
	done := f.exits[0]
	f.exits = f.exits[1:]
	f.mu.Unlock()
	done()
}

func (f *fakeSurface) pendingExits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.exits)
}

type transformingSurface struct {
	fakeSurface
	transformed []string
}

func (f *transformingSurface) Transform(e *model.Entry) {
	f.transformed = append(f.transformed, e.Name+"="+e.Content.Summary)
}

type recorder struct {
	events []string
	kinds  map[string][]EventKind
}

func (r *recorder) OnEvent(ev Event) {
	s := ev.Kind.String() + ":" + ev.Entry.Name
	if ev.Reason != ReasonNone {
		s += ":" + string(ev.Reason)
	}
	r.events = append(r.events, s)
	if r.kinds == nil {
		r.kinds = make(map[string][]EventKind)
	}
	r.kinds[ev.Entry.ID] = append(r.kinds[ev.Entry.ID], ev.Kind)
}

func (r *recorder) count(id string, kind EventKind) int {
	n := 0
	for _, k := range r.kinds[id] {
		if k == kind {
			n++
		}
	}
	return n
}

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := &fakeTimer{d: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func newTestScheduler(t *testing.T, h queue.Heuristic) (*Scheduler, *fakeSurface, *recorder) {
	t.Helper()
	f := &fakeSurface{}
	s := New(f, mainloop.NewInline(), Options{Heuristic: h})
	rec := &recorder{}
	s.AddObserver(rec)
	return s, f, rec
}

func entry(t *testing.T, name string, p model.Precedence) *model.Entry {
	t.Helper()
	e, err := model.NewEntry(name, model.Attributes{Precedence: p}, model.Content{Summary: name})
	require.NoError(t, err)
	return e
}

func shows(calls []string) []string {
	var out []string
	for _, c := range calls {
		if len(c) > 5 && c[:5] == "show:" {
			out = append(out, c[5:])
		}
	}
	return out
}

// dismissUntilEmpty dismisses the active entry until the surface rolls back.
func dismissUntilEmpty(t *testing.T, s *Scheduler, f *fakeSurface) {
	t.Helper()
	for i := 0; s.IsDisplaying(""); i++ {
		require.Less(t, i, 100, "scheduler never emptied")
		s.Dismiss(model.Displayed(), nil)
		f.finishExit(t)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		precedence model.Precedence
		displaying bool
		want       Outcome
	}{
		{"override idle", model.Override(model.PriorityMax, false), false, OutcomePreempt},
		{"override busy", model.Override(model.PriorityMin, true), true, OutcomePreempt},
		{"enqueue idle", model.Enqueue(model.PriorityNormal), false, OutcomeActivate},
		{"enqueue busy", model.Enqueue(model.PriorityNormal), true, OutcomeEnqueue},
		{"unprioritized busy", model.EnqueueUnprioritized(), true, OutcomeEnqueue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.precedence, tt.displaying))
		})
	}
}

func TestScheduler_EnqueueActivationOrder(t *testing.T) {
	tests := []struct {
		heuristic queue.Heuristic
		want      []string
	}{
		{queue.HeuristicFIFO, []string{"first", "low", "none", "high", "mid", "high2"}},
		{queue.HeuristicPriority, []string{"first", "high", "high2", "mid", "low", "none"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.heuristic), func(t *testing.T) {
			s, f, _ := newTestScheduler(t, tt.heuristic)
			s.Submit(entry(t, "first", model.Enqueue(model.PriorityMin)))
			s.Submit(entry(t, "low", model.Enqueue(1)))
			s.Submit(entry(t, "none", model.EnqueueUnprioritized()))
			s.Submit(entry(t, "high", model.Enqueue(9)))
			s.Submit(entry(t, "mid", model.Enqueue(5)))
			s.Submit(entry(t, "high2", model.Enqueue(9)))

			dismissUntilEmpty(t, s, f)
			assert.Equal(t, tt.want, shows(f.Calls()))
		})
	}
}

func TestScheduler_OverrideDropClearsQueue(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicPriority)
	s.Submit(entry(t, "a", model.Enqueue(1)))
	s.Submit(entry(t, "b", model.Enqueue(2)))
	s.Submit(entry(t, "c", model.EnqueueUnprioritized()))
	require.True(t, s.QueueContains(""))

	s.Submit(entry(t, "o", model.Override(model.PriorityMax, true)))

	assert.False(t, s.QueueContains(""))
	assert.True(t, s.IsDisplaying("o"))
	assert.Equal(t, []string{"show:a", "out", "show:o"}, f.Calls())
	assert.Contains(t, rec.events, "evicted:b:overridden")
	assert.Contains(t, rec.events, "evicted:c:overridden")
}

func TestScheduler_OverrideWithoutDropKeepsQueue(t *testing.T) {
	s, _, _ := newTestScheduler(t, queue.HeuristicPriority)
	s.Submit(entry(t, "a", model.Enqueue(1)))
	s.Submit(entry(t, "b", model.Enqueue(2)))

	s.Submit(entry(t, "o", model.Override(model.PriorityMax, false)))

	assert.True(t, s.QueueContains("b"))
	assert.True(t, s.IsDisplaying("o"))
}

func TestScheduler_OneDismissedPerActivation(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicPriority)
	a := entry(t, "a", model.Enqueue(1))
	b := entry(t, "b", model.Override(5, false))
	c := entry(t, "c", model.Enqueue(3))
	d := entry(t, "d", model.Override(7, true))
	e := entry(t, "e", model.Enqueue(2))

	s.Submit(a)
	s.Submit(b)
	s.Submit(c)
	s.Submit(d)
	s.Submit(e)
	for f.pendingExits() > 0 {
		f.finishExit(t)
	}
	dismissUntilEmpty(t, s, f)

	for _, activated := range []*model.Entry{a, b, d, e} {
		assert.Equal(t, 1, rec.count(activated.ID, EventActivated), activated.Name)
		assert.Equal(t, 1, rec.count(activated.ID, EventDismissed), activated.Name)
	}
	assert.Zero(t, rec.count(c.ID, EventActivated))
	assert.Zero(t, rec.count(c.ID, EventDismissed))
	assert.Equal(t, 1, rec.count(c.ID, EventEvicted))
}

func TestScheduler_IsDisplaying(t *testing.T) {
	s, f, _ := newTestScheduler(t, queue.HeuristicFIFO)
	assert.False(t, s.IsDisplaying(""))
	assert.False(t, s.IsDisplaying("x"))

	s.Submit(entry(t, "x", model.EnqueueUnprioritized()))
	s.Submit(entry(t, "y", model.EnqueueUnprioritized()))

	assert.True(t, s.IsDisplaying(""))
	assert.True(t, s.IsDisplaying("x"))
	assert.False(t, s.IsDisplaying("y"), "queued entries are not displayed")
	assert.True(t, s.QueueContains("y"))
	assert.False(t, s.QueueContains("x"), "the active entry is never queued")

	snap := s.Snapshot()
	assert.True(t, snap.IsDisplaying("x"))
	assert.True(t, snap.QueueContains("y"))
	assert.False(t, snap.QueueContains("x"))

	dismissUntilEmpty(t, s, f)
	assert.False(t, s.Snapshot().IsDisplaying(""))
}

func TestScheduler_RoundTripEndsInRollback(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicFIFO)
	s.Submit(entry(t, "active", model.Enqueue(1)))

	const n = 4
	for i := range n {
		s.Submit(entry(t, fmt.Sprintf("q%d", i), model.Enqueue(1)))
	}

	for range n + 1 {
		s.Dismiss(model.Displayed(), nil)
		f.finishExit(t)
	}

	assert.False(t, s.IsDisplaying(""))
	assert.False(t, s.QueueContains(""))
	calls := f.Calls()
	assert.Equal(t, "rollback", calls[len(calls)-1])
	assert.Equal(t, "rolled-back:q3", rec.events[len(rec.events)-1])
}

func TestScheduler_PreemptScenario(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicPriority)
	s.Submit(entry(t, "A", model.Enqueue(1)))

	s.Submit(entry(t, "B", model.Enqueue(5)))
	assert.True(t, s.IsDisplaying("A"))
	assert.True(t, s.QueueContains("B"))

	s.Submit(entry(t, "C", model.Override(10, false)))
	assert.True(t, s.IsDisplaying("C"))
	assert.True(t, s.QueueContains("B"))

	// The preempted entry's exit does not promote the queue.
	f.finishExit(t)
	assert.True(t, s.IsDisplaying("C"))
	assert.Contains(t, rec.events, "dismissed:A:preempted")

	s.Dismiss(model.Displayed(), func() { f.record("completion:C") })
	f.finishExit(t)

	assert.True(t, s.IsDisplaying("B"))
	assert.Equal(t, []string{"show:A", "out", "show:C", "out", "completion:C", "show:B"}, f.Calls())
}

func TestScheduler_ThresholdEviction(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicPriority)
	s.Submit(entry(t, "active", model.Enqueue(9)))
	s.Submit(entry(t, "X", model.Enqueue(1)))
	s.Submit(entry(t, "Y", model.Enqueue(3)))

	s.Dismiss(model.PrioritizedAtOrBelow(2), nil)

	assert.False(t, s.QueueContains("X"))
	assert.True(t, s.QueueContains("Y"))
	assert.True(t, s.IsDisplaying("active"), "active entry ranks above the threshold")
	assert.Zero(t, f.pendingExits())
	assert.Contains(t, rec.events, "evicted:X:dismissed")
}

func TestScheduler_ThresholdEvictsUnprioritizedActive(t *testing.T) {
	s, f, _ := newTestScheduler(t, queue.HeuristicPriority)
	s.Submit(entry(t, "active", model.EnqueueUnprioritized()))

	s.Dismiss(model.PrioritizedAtOrBelow(model.PriorityMin), nil)
	require.Equal(t, 1, f.pendingExits())
	f.finishExit(t)

	assert.False(t, s.IsDisplaying(""))
}

func TestScheduler_AdmissionRejection(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicPriority)
	s.Submit(entry(t, "a", model.Enqueue(1)))
	s.Submit(entry(t, "b", model.Enqueue(2)))

	f.reject = true
	s.Submit(entry(t, "o", model.Override(model.PriorityMax, true)))

	assert.True(t, s.IsDisplaying("a"))
	assert.True(t, s.QueueContains("b"), "rejected override must not clear the queue")
	assert.Equal(t, []string{"show:a"}, f.Calls())
	assert.Contains(t, rec.events, "dropped:o:rejected")

	// Enqueue entries bypass the admission check.
	s.Submit(entry(t, "c", model.Enqueue(3)))
	assert.True(t, s.QueueContains("c"))
}

func TestScheduler_DismissNoMatch(t *testing.T) {
	s, f, _ := newTestScheduler(t, queue.HeuristicFIFO)

	called := false
	s.Dismiss(model.Displayed(), func() { called = true })
	assert.Empty(t, f.Calls(), "dismissing while absent is a no-op")

	s.Submit(entry(t, "a", model.EnqueueUnprioritized()))
	s.Dismiss(model.Specific("missing"), func() { called = true })
	s.Dismiss(model.Enqueued(), func() { called = true })

	assert.False(t, called)
	assert.Zero(t, f.pendingExits())
	assert.True(t, s.IsDisplaying("a"))
}

func TestScheduler_DismissDuringExitAttachesCompletion(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicFIFO)
	a := entry(t, "a", model.EnqueueUnprioritized())
	s.Submit(a)

	var order []string
	s.Dismiss(model.Displayed(), func() { order = append(order, "first") })
	assert.True(t, s.Snapshot().Exiting)
	s.Dismiss(model.All(), func() { order = append(order, "second") })

	assert.Equal(t, 1, f.pendingExits(), "only one exit animation may be requested")
	f.finishExit(t)

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, []string{"show:a", "out", "rollback"}, f.Calls())
	assert.Equal(t, 1, rec.count(a.ID, EventDismissed))
}

func TestScheduler_DismissSpecific(t *testing.T) {
	s, f, _ := newTestScheduler(t, queue.HeuristicFIFO)
	s.Submit(entry(t, "x", model.EnqueueUnprioritized()))
	s.Submit(entry(t, "y", model.EnqueueUnprioritized()))
	s.Submit(entry(t, "x", model.EnqueueUnprioritized()))
	s.Submit(entry(t, "z", model.EnqueueUnprioritized()))

	done := false
	s.Dismiss(model.Specific("x"), func() { done = true })
	assert.False(t, s.QueueContains("x"))
	f.finishExit(t)

	assert.True(t, done)
	assert.True(t, s.IsDisplaying("y"))
	assert.True(t, s.QueueContains("z"))
}

func TestScheduler_DismissEnqueuedKeepsActive(t *testing.T) {
	s, f, _ := newTestScheduler(t, queue.HeuristicFIFO)
	s.Submit(entry(t, "a", model.EnqueueUnprioritized()))
	s.Submit(entry(t, "b", model.EnqueueUnprioritized()))

	s.Dismiss(model.Enqueued(), nil)

	assert.True(t, s.IsDisplaying("a"))
	assert.False(t, s.QueueContains(""))
	assert.Zero(t, f.pendingExits())
}

func TestScheduler_DismissAll(t *testing.T) {
	s, f, _ := newTestScheduler(t, queue.HeuristicFIFO)
	s.Submit(entry(t, "a", model.EnqueueUnprioritized()))
	s.Submit(entry(t, "b", model.EnqueueUnprioritized()))

	done := false
	s.Dismiss(model.All(), func() {
		done = true
		assert.False(t, s.IsDisplaying(""), "state is cleared before the completion runs")
	})
	f.finishExit(t)

	assert.True(t, done)
	assert.Equal(t, []string{"show:a", "out", "rollback"}, f.Calls())
}

func TestScheduler_SuccessorActiveDuringCompletion(t *testing.T) {
	s, f, _ := newTestScheduler(t, queue.HeuristicFIFO)
	s.Submit(entry(t, "a", model.EnqueueUnprioritized()))
	s.Submit(entry(t, "b", model.EnqueueUnprioritized()))

	var displaying, queued bool
	s.Dismiss(model.Displayed(), func() {
		displaying = s.IsDisplaying("")
		queued = s.QueueContains("")
	})
	f.finishExit(t)

	assert.True(t, displaying || queued, "callers never observe an empty state while a successor exists")
}

func TestScheduler_OverrideDuringExitWaitsForAdvance(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicPriority)
	s.Submit(entry(t, "a", model.Enqueue(1)))
	s.Submit(entry(t, "q", model.Enqueue(1)))
	s.Dismiss(model.Displayed(), nil)

	s.Submit(entry(t, "o1", model.Override(5, false)))
	s.Submit(entry(t, "o2", model.Override(6, false)))

	assert.True(t, s.IsDisplaying("a"), "override waits for the in-flight exit")
	assert.Equal(t, 1, f.pendingExits())
	assert.Contains(t, rec.events, "superseded:o1:overridden")

	f.finishExit(t)

	assert.True(t, s.IsDisplaying("o2"))
	assert.True(t, s.QueueContains("q"))
	assert.Equal(t, []string{"a", "o2"}, shows(f.Calls()))
}

func TestScheduler_PendingOverrideIsQueued(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicPriority)
	s.Submit(entry(t, "a", model.Enqueue(1)))
	s.Dismiss(model.Displayed(), nil)
	s.Submit(entry(t, "o", model.Override(5, false)))

	assert.True(t, s.QueueContains("o"))
	assert.True(t, s.QueueContains(""))
	assert.True(t, s.Snapshot().QueueContains("o"))
	assert.False(t, s.IsDisplaying("o"))
	require.Len(t, s.Snapshot().Queued, 1)
	assert.Equal(t, "o", s.Snapshot().Queued[0].Name)

	s.Dismiss(model.Enqueued(), nil)

	assert.False(t, s.QueueContains("o"))
	assert.False(t, s.Snapshot().QueueContains(""))
	assert.Contains(t, rec.events, "evicted:o:dismissed")

	f.finishExit(t)
	assert.False(t, s.IsDisplaying(""))
	assert.Equal(t, []string{"a"}, shows(f.Calls()))
	assert.Equal(t, "rollback", f.Calls()[len(f.Calls())-1])
}

func TestScheduler_BackToBackOverridesSerializeExits(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicPriority)
	s.Submit(entry(t, "a", model.Enqueue(1)))
	s.Submit(entry(t, "c", model.Override(5, false)))
	s.Submit(entry(t, "d", model.Override(6, false)))

	assert.Equal(t, 1, f.pendingExits(), "a second exit waits for the first")
	assert.Equal(t, []string{"show:a", "out", "show:c"}, f.Calls())
	assert.True(t, s.Snapshot().Exiting)
	assert.True(t, s.IsDisplaying("c"))
	assert.True(t, s.QueueContains("d"))

	f.finishExit(t)

	assert.Equal(t, []string{"show:a", "out", "show:c", "out", "show:d"}, f.Calls())
	assert.Equal(t, 1, f.pendingExits())
	assert.True(t, s.IsDisplaying("d"))
	assert.False(t, s.QueueContains(""))
	assert.Contains(t, rec.events, "dismissed:a:preempted")

	f.finishExit(t)
	assert.Contains(t, rec.events, "dismissed:c:preempted")
	assert.False(t, s.Snapshot().Exiting)
}

func TestScheduler_DismissDuringPreemptionWaits(t *testing.T) {
	tests := []struct {
		name       string
		descriptor model.Descriptor
		want       []string
	}{
		{"displayed", model.Displayed(), []string{"show:a", "out", "show:c", "out", "completion", "show:q"}},
		{"all", model.All(), []string{"show:a", "out", "show:c", "out", "rollback", "completion"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, f, rec := newTestScheduler(t, queue.HeuristicFIFO)
			s.Submit(entry(t, "a", model.Enqueue(1)))
			s.Submit(entry(t, "q", model.Enqueue(1)))
			s.Submit(entry(t, "c", model.Override(5, false)))

			s.Dismiss(tt.descriptor, func() { f.record("completion") })
			assert.Equal(t, 1, f.pendingExits())
			assert.True(t, s.IsDisplaying("c"))

			f.finishExit(t)
			assert.Equal(t, 1, f.pendingExits(), "the dismissal exit starts after the preemption exit")
			f.finishExit(t)

			assert.Equal(t, tt.want, f.Calls())
			assert.Contains(t, rec.events, "dismissed:a:preempted")
			assert.Contains(t, rec.events, "dismissed:c:dismissed")
		})
	}
}

func TestScheduler_DismissAllDropsPendingOverride(t *testing.T) {
	s, f, rec := newTestScheduler(t, queue.HeuristicPriority)
	s.Submit(entry(t, "a", model.Enqueue(1)))
	s.Dismiss(model.Displayed(), nil)
	s.Submit(entry(t, "o", model.Override(5, false)))

	s.Dismiss(model.All(), nil)
	f.finishExit(t)

	assert.False(t, s.IsDisplaying(""))
	assert.Contains(t, rec.events, "evicted:o:dismissed")
	assert.Equal(t, []string{"a"}, shows(f.Calls()))
}

func TestScheduler_DisplayDurationExpires(t *testing.T) {
	f := &fakeSurface{}
	clock := &fakeClock{}
	s := New(f, mainloop.NewInline(), Options{AfterFunc: clock.AfterFunc})
	rec := &recorder{}
	s.AddObserver(rec)

	e, err := model.NewEntry("toast", model.Attributes{
		Precedence:      model.Enqueue(model.PriorityNormal),
		DisplayDuration: 5 * time.Second,
	}, model.Content{Summary: "toast"})
	require.NoError(t, err)

	s.Submit(e)
	require.Len(t, clock.timers, 1)
	assert.Equal(t, 5*time.Second, clock.timers[0].d)

	clock.timers[0].fn()
	f.finishExit(t)

	assert.False(t, s.IsDisplaying(""))
	assert.Contains(t, rec.events, "dismissed:toast:expired")
}

func TestScheduler_StaleTimerIsIgnored(t *testing.T) {
	f := &fakeSurface{}
	clock := &fakeClock{}
	s := New(f, mainloop.NewInline(), Options{AfterFunc: clock.AfterFunc})

	e, err := model.NewEntry("toast", model.Attributes{
		Precedence:      model.Enqueue(model.PriorityNormal),
		DisplayDuration: time.Second,
	}, model.Content{Summary: "toast"})
	require.NoError(t, err)

	s.Submit(e)
	s.Submit(entry(t, "o", model.Override(model.PriorityMax, false)))
	require.Len(t, clock.timers, 1)
	assert.True(t, clock.timers[0].stopped)

	// A timer that already fired before Stop must not dismiss the successor.
	clock.timers[0].fn()
	assert.True(t, s.IsDisplaying("o"))
	assert.Equal(t, 1, f.pendingExits(), "only the preemption exit is in flight")
}

func TestScheduler_Transform(t *testing.T) {
	f := &transformingSurface{}
	s := New(f, mainloop.NewInline(), Options{})

	s.Transform(model.Content{Summary: "ignored"})
	assert.Empty(t, f.transformed)

	e := entry(t, "a", model.EnqueueUnprioritized())
	s.Submit(e)
	s.Transform(model.Content{Summary: "updated"})

	assert.Equal(t, []string{"a=updated"}, f.transformed)
	snap := s.Snapshot()
	require.NotNil(t, snap.Active)
	assert.Equal(t, e.ID, snap.Active.ID)
	assert.Equal(t, "updated", snap.Active.Content.Summary)
	assert.Equal(t, "a", e.Content.Summary, "submitted entry is not mutated")
}

func TestScheduler_TransformUnsupported(t *testing.T) {
	s, f, _ := newTestScheduler(t, queue.HeuristicFIFO)
	s.Submit(entry(t, "a", model.EnqueueUnprioritized()))

	s.Transform(model.Content{Summary: "updated"})

	assert.Equal(t, "a", s.Snapshot().Active.Content.Summary)
	assert.Equal(t, []string{"show:a"}, f.Calls())
}

func TestScheduler_SetHeuristic(t *testing.T) {
	s, f, _ := newTestScheduler(t, queue.HeuristicFIFO)
	s.Submit(entry(t, "a", model.Enqueue(1)))
	s.Submit(entry(t, "b", model.Enqueue(1)))
	s.Submit(entry(t, "c", model.Enqueue(9)))

	s.SetHeuristic(queue.HeuristicPriority)
	assert.Equal(t, queue.HeuristicPriority, s.Snapshot().Heuristic)

	dismissUntilEmpty(t, s, f)
	assert.Equal(t, []string{"a", "c", "b"}, shows(f.Calls()))
}

func TestKit_AcrossGoroutines(t *testing.T) {
	loop := mainloop.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop.Start(ctx)
	defer loop.Stop()

	f := &fakeSurface{async: true}
	kit := NewKit(New(f, loop, Options{}), loop)

	kit.Display(entry(t, "a", model.Enqueue(1)))
	kit.Display(entry(t, "b", model.Enqueue(2)))
	require.NoError(t, kit.Call(ctx, func(*Scheduler) {}))

	assert.True(t, kit.IsCurrentlyDisplaying("a"))
	assert.False(t, kit.IsCurrentlyDisplaying("b"))
	assert.True(t, kit.QueueContains("b"))

	done := make(chan struct{})
	kit.Dismiss(model.Displayed(), func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dismiss completion never ran")
	}

	assert.True(t, kit.IsCurrentlyDisplaying("b"))
	assert.False(t, kit.QueueContains(""))

	var displaying bool
	require.NoError(t, kit.Call(ctx, func(s *Scheduler) { displaying = s.IsDisplaying("b") }))
	assert.True(t, displaying)
}
