package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/surface"
)

type notifyCall struct {
	replaces uint32
	summary  string
	hints    map[string]dbus.Variant
}

type fakeNotifier struct {
	mu       sync.Mutex
	nextID   uint32
	notifies []notifyCall
	closes   []uint32
	fail     bool
	onClose  func(id uint32)
}

func (f *fakeNotifier) Notify(_ context.Context, _ string, replacesID uint32, _, summary, _ string,
	hints map[string]dbus.Variant, _ int32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("no notification server")
	}
	f.notifies = append(f.notifies, notifyCall{replacesID, summary, hints})
	if replacesID != 0 {
		return replacesID, nil
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeNotifier) CloseNotification(_ context.Context, id uint32) error {
	f.mu.Lock()
	f.closes = append(f.closes, id)
	onClose := f.onClose
	f.mu.Unlock()
	if onClose != nil {
		go onClose(id)
	}
	return nil
}

func (f *fakeNotifier) snapshot() ([]notifyCall, []uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifyCall(nil), f.notifies...), append([]uint32(nil), f.closes...)
}

// flush waits for every job submitted so far.
func flush(t *testing.T, s *Surface) {
	t.Helper()
	done := make(chan struct{})
	s.submit(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not drain")
	}
}

func entry(t *testing.T, name string, p model.Precedence) *model.Entry {
	t.Helper()
	e, err := model.NewEntry(name, model.Attributes{Precedence: p}, model.Content{Summary: name})
	require.NoError(t, err)
	return e
}

func TestSurface_ShowAndConfirmedClose(t *testing.T) {
	n := &fakeNotifier{}
	s := New(n, "entrykit", surface.Timings{Exit: time.Hour}, nil)
	defer s.Close()
	n.onClose = func(id uint32) { s.handleClosed(id, CloseReasonClosed) }

	s.Show(entry(t, "a", model.Enqueue(model.PriorityNormal)))
	done := make(chan struct{})
	s.AnimateOutActive(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("exit never completed")
	}

	notifies, closes := n.snapshot()
	require.Len(t, notifies, 1)
	assert.Equal(t, "a", notifies[0].summary)
	assert.Equal(t, []uint32{1}, closes)
}

func TestSurface_UnconfirmedCloseFallsBack(t *testing.T) {
	n := &fakeNotifier{}
	s := New(n, "entrykit", surface.Timings{}, nil)
	defer s.Close()

	s.Show(entry(t, "a", model.Enqueue(model.PriorityNormal)))
	done := make(chan struct{})
	s.AnimateOutActive(func() { close(done) })

	select {
	case <-done:
	case <-time.After(closeGrace + 2*time.Second):
		t.Fatal("fallback never fired")
	}
}

func TestSurface_FailedShowExitsImmediately(t *testing.T) {
	n := &fakeNotifier{fail: true}
	s := New(n, "entrykit", surface.Timings{Exit: time.Hour}, nil)
	defer s.Close()

	s.Show(entry(t, "a", model.Enqueue(model.PriorityNormal)))
	done := make(chan struct{})
	s.AnimateOutActive(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("exit never completed")
	}
	_, closes := n.snapshot()
	assert.Empty(t, closes)
}

func TestSurface_ExternalClose(t *testing.T) {
	n := &fakeNotifier{}
	s := New(n, "entrykit", surface.Timings{}, nil)
	defer s.Close()

	reasons := make(chan CloseReason, 1)
	s.SetCloseHandler(func(r CloseReason) { reasons <- r })

	s.Show(entry(t, "a", model.Enqueue(model.PriorityNormal)))
	flush(t, s)

	s.handleClosed(99, CloseReasonDismissed)
	s.handleClosed(1, CloseReasonDismissed)

	select {
	case r := <-reasons:
		assert.Equal(t, CloseReasonDismissed, r)
	case <-time.After(time.Second):
		t.Fatal("close handler not called")
	}
	assert.Empty(t, reasons, "unknown ids are ignored")
}

func TestSurface_TransformReplaces(t *testing.T) {
	n := &fakeNotifier{}
	s := New(n, "entrykit", surface.Timings{}, nil)
	defer s.Close()

	e := entry(t, "a", model.Enqueue(model.PriorityNormal))
	s.Show(e)
	s.Transform(e.WithContent(model.Content{Summary: "a, updated"}))
	flush(t, s)

	notifies, _ := n.snapshot()
	require.Len(t, notifies, 2)
	assert.Equal(t, uint32(1), notifies[1].replaces)
	assert.Equal(t, "a, updated", notifies[1].summary)
}

func TestSurface_CloseDropsLateRequests(t *testing.T) {
	n := &fakeNotifier{}
	s := New(n, "entrykit", surface.Timings{}, nil)
	s.Close()
	s.Close()

	s.Show(entry(t, "a", model.Enqueue(model.PriorityNormal)))
	notifies, _ := n.snapshot()
	assert.Empty(t, notifies)
}

func TestUrgency(t *testing.T) {
	tests := []struct {
		priority model.Priority
		want     byte
	}{
		{model.PriorityUnset, 0},
		{model.PriorityMin, 0},
		{model.PriorityNormal, 1},
		{model.PriorityHigh, 1},
		{model.PriorityMax, 2},
	}
	for _, tt := range tests {
		t.Run(tt.priority.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Urgency(tt.priority))
		})
	}
}

func TestHintsFor(t *testing.T) {
	e, err := model.NewEntry("a", model.Attributes{Precedence: model.Override(model.PriorityMax, false)}, model.Content{
		Summary: "a",
		Hints:   map[string]string{model.HintCategory: "network", model.HintSoundFile: "/s.wav"},
	})
	require.NoError(t, err)

	hints := HintsFor(e)
	assert.Equal(t, byte(2), hints["urgency"].Value())
	assert.Equal(t, true, hints["transient"].Value())
	assert.Equal(t, "network", hints["category"].Value())
	assert.Equal(t, "/s.wav", hints["sound-file"].Value())
}

func TestCloseReason_String(t *testing.T) {
	assert.Equal(t, "dismissed", CloseReasonDismissed.String())
	assert.Equal(t, "unknown", CloseReason(9).String())
}
