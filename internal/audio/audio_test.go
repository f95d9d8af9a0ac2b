package audio

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/scheduler"
)

type fakeSink struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	inits  int
	plays  int
	closed bool
}

func (s *fakeSink) Init(rate beep.SampleRate, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	s.inits++
	return nil
}

func (s *fakeSink) Play(beep.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
}

func (s *fakeSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSink) playCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}

// writeWAV writes a short silent clip and returns its path.
func writeWAV(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(2205), format))
	return path
}

func TestPlayer_PlayCachesAndInitializesOnce(t *testing.T) {
	sink := &fakeSink{}
	p := NewPlayerWithSink(sink, nil)
	path := writeWAV(t, t.TempDir(), "ding.wav")

	require.NoError(t, p.Play(path))
	require.NoError(t, p.Play(path))

	assert.True(t, p.Cached(path))
	assert.Equal(t, 1, sink.inits)
	assert.Equal(t, beep.SampleRate(22050), sink.rate)
	assert.Equal(t, 2, sink.playCount())

	p.Invalidate(path)
	assert.False(t, p.Cached(path))

	p.Close()
	assert.True(t, sink.closed)
	assert.False(t, p.Cached(path))
}

func TestPlayer_Errors(t *testing.T) {
	p := NewPlayerWithSink(&fakeSink{}, nil)
	dir := t.TempDir()

	assert.NoError(t, p.Play(""), "empty path is a no-op")

	err := p.Play(filepath.Join(dir, "missing.wav"))
	assert.ErrorContains(t, err, "failed to open sound file")

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("la"), 0600))
	assert.ErrorIs(t, p.Play(txt), ErrUnsupportedFormat)

	bad := filepath.Join(dir, "bad.wav")
	require.NoError(t, os.WriteFile(bad, []byte("RIFF nonsense"), 0600))
	assert.ErrorContains(t, p.Play(bad), "failed to decode sound")
}

func TestPlayer_Volume(t *testing.T) {
	p := NewPlayerWithSink(&fakeSink{}, nil)

	p.SetVolume(1.5)
	assert.Equal(t, 1.0, p.Volume())
	p.SetVolume(-1)
	assert.Equal(t, 0.0, p.Volume())
	p.SetVolume(0.25)
	assert.Equal(t, 0.25, p.Volume())
}

func TestVolumeToDecibels(t *testing.T) {
	assert.InDelta(t, 0, volumeToDecibels(1), 0.001)
	assert.InDelta(t, -6.02, volumeToDecibels(0.5), 0.01)
	assert.Equal(t, -100.0, volumeToDecibels(0))
}

func newEntry(t *testing.T, p model.Precedence, hints map[string]string) *model.Entry {
	t.Helper()
	e, err := model.NewEntry("cue", model.Attributes{Precedence: p}, model.Content{Summary: "cue", Hints: hints})
	require.NoError(t, err)
	return e
}

func TestCues_SoundFor(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Sounds = config.SoundConfig{
		Normal: writeWAV(t, dir, "normal.wav"),
		Max:    writeWAV(t, dir, "max.wav"),
		High:   filepath.Join(dir, "missing.wav"),
	}

	c := NewCues(cfg, NewPlayerWithSink(&fakeSink{}, nil), nil, nil)

	assert.Equal(t, cfg.Audio.Sounds.Normal, c.SoundFor(newEntry(t, model.Enqueue(model.PriorityNormal), nil)))
	assert.Equal(t, cfg.Audio.Sounds.Max, c.SoundFor(newEntry(t, model.Override(model.PriorityMax, false), nil)))
	assert.Empty(t, c.SoundFor(newEntry(t, model.Enqueue(model.PriorityHigh), nil)), "missing files are skipped")
	assert.Empty(t, c.SoundFor(newEntry(t, model.EnqueueUnprioritized(), nil)))

	hinted := newEntry(t, model.Enqueue(model.PriorityNormal), map[string]string{model.HintSoundFile: "/x/y.ogg"})
	assert.Equal(t, "/x/y.ogg", c.SoundFor(hinted))
}

func TestCues_PlaysOnActivation(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Enabled = true
	cfg.Audio.Sounds.Normal = writeWAV(t, dir, "normal.wav")

	sink := &fakeSink{}
	c := NewCues(cfg, NewPlayerWithSink(sink, nil), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	e := newEntry(t, model.Enqueue(model.PriorityNormal), nil)
	c.OnEvent(scheduler.Event{Kind: scheduler.EventQueued, Entry: e})
	c.OnEvent(scheduler.Event{Kind: scheduler.EventActivated, Entry: e})

	require.Eventually(t, func() bool { return sink.playCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCues_DisabledIsSilent(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Enabled = false
	cfg.Audio.Sounds.Normal = writeWAV(t, dir, "normal.wav")

	sink := &fakeSink{}
	c := NewCues(cfg, NewPlayerWithSink(sink, nil), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	c.OnEvent(scheduler.Event{Kind: scheduler.EventActivated, Entry: newEntry(t, model.Enqueue(model.PriorityNormal), nil)})
	c.Stop()
	c.Stop()

	assert.Zero(t, sink.playCount())
	// Events after Stop are ignored rather than panicking.
	c.OnEvent(scheduler.Event{Kind: scheduler.EventActivated, Entry: newEntry(t, model.Enqueue(model.PriorityNormal), nil)})
}

func TestWatcher_InvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, "ding.wav")

	p := NewPlayerWithSink(&fakeSink{}, nil)
	require.NoError(t, p.Preload(path))

	w, err := NewWatcher(p, nil)
	require.NoError(t, err)
	w.Watch(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	require.Eventually(t, func() bool {
		writeWAV(t, dir, "ding.wav")
		return !p.Cached(path)
	}, 5*time.Second, 50*time.Millisecond)
}
