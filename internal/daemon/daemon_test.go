package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/model"
)

type recordingSubmitter struct {
	mu      sync.Mutex
	entries []*model.Entry
}

func (r *recordingSubmitter) Display(e *model.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingSubmitter) all() []*model.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Entry(nil), r.entries...)
}

func TestInternalNotifier_Levels(t *testing.T) {
	tests := []struct {
		level NotificationLevel
		want  model.Precedence
		icon  string
	}{
		{NotificationLevelInfo, model.Enqueue(model.PriorityMin), "dialog-information"},
		{NotificationLevelWarning, model.Enqueue(model.PriorityNormal), "dialog-warning"},
		{NotificationLevelError, model.Enqueue(model.PriorityHigh), "dialog-error"},
	}

	for _, tt := range tests {
		t.Run(tt.icon, func(t *testing.T) {
			sub := &recordingSubmitter{}
			n := NewInternalNotifier(sub, nil)
			n.Notify("k", "Summary", "Body", tt.level)

			got := sub.all()
			require.Len(t, got, 1)
			assert.Equal(t, "entrykitd-k", got[0].Name)
			assert.Equal(t, tt.want, got[0].Attributes.Precedence)
			assert.Equal(t, internalDuration, got[0].Attributes.DisplayDuration)
			assert.Equal(t, tt.icon, got[0].Content.Icon)
			assert.NoError(t, got[0].Validate())
		})
	}
}

func TestInternalNotifier_RateLimit(t *testing.T) {
	sub := &recordingSubmitter{}
	n := NewInternalNotifier(sub, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }
	n.SetMinInterval(10 * time.Second)

	n.NotifyConfigReloaded()
	n.NotifyConfigReloaded()
	n.NotifyConfigError(errors.New("bad toml"))
	assert.Len(t, sub.all(), 2, "same key is limited, other keys are not")

	now = now.Add(11 * time.Second)
	n.NotifyConfigReloaded()
	assert.Len(t, sub.all(), 3)
}

func TestInternalNotifier_Disabled(t *testing.T) {
	sub := &recordingSubmitter{}
	n := NewInternalNotifier(sub, nil)
	n.SetEnabled(false)
	n.NotifyStartup("1.0.0")
	assert.Empty(t, sub.all())

	n.SetEnabled(true)
	n.NotifyStartup("1.0.0")
	require.Len(t, sub.all(), 1)
	assert.Contains(t, sub.all()[0].Content.Body, "v1.0.0")

	assert.NotPanics(t, func() {
		NewInternalNotifier(nil, nil).NotifySurfaceError(errors.New("no display"))
	})
}

func TestConfigWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entrykitd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nheuristic = \"priority\"\n"), 0600))

	w, err := NewConfigWatcher(path, nil)
	require.NoError(t, err)

	reloaded := make(chan *config.DaemonConfig, 4)
	failed := make(chan error, 4)
	w.SetReloadCallback(func(cfg *config.DaemonConfig) { reloaded <- cfg })
	w.SetErrorCallback(func(err error) { failed <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	initial := config.DefaultDaemonConfig()
	w.Start(ctx, initial)
	defer w.Stop()
	assert.Same(t, initial, w.GetCurrentConfig())

	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nheuristic = \"fifo\"\n"), 0600))
	select {
	case cfg := <-reloaded:
		assert.Equal(t, "fifo", cfg.Scheduler.Heuristic)
		assert.Same(t, cfg, w.GetCurrentConfig())
	case <-time.After(5 * time.Second):
		t.Fatal("reload not observed")
	}

	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nheuristic = \"random\"\n"), 0600))
	select {
	case err := <-failed:
		assert.ErrorContains(t, err, "invalid")
	case <-time.After(5 * time.Second):
		t.Fatal("invalid config not reported")
	}
	assert.Equal(t, "fifo", w.GetCurrentConfig().Scheduler.Heuristic, "invalid config keeps the last good one")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1"), 0600))
	select {
	case <-reloaded:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestConfigWatcher_MissingDirectory(t *testing.T) {
	_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "nope", "entrykitd.toml"), nil)
	assert.Error(t, err)
}
