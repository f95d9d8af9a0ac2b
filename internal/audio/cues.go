package audio

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/scheduler"
)

// cueBuffer bounds cues waiting to be played. Activations beyond it are
// not worth a sound.
const cueBuffer = 8

// Cues plays the sound for an entry's priority band when it activates.
type Cues struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  *Player
	watcher *Watcher

	enabled bool
	stopped bool
	sounds  map[model.Band]string

	requests chan string
	done     chan struct{}
	stopOnce sync.Once
}

// NewCues creates cue playback for cfg. watcher may be nil.
func NewCues(cfg *config.DaemonConfig, player *Player, watcher *Watcher, logger *slog.Logger) *Cues {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cues{
		logger:   logger,
		player:   player,
		watcher:  watcher,
		sounds:   make(map[model.Band]string),
		requests: make(chan string, cueBuffer),
		done:     make(chan struct{}),
	}
	c.UpdateConfig(cfg)
	return c
}

// UpdateConfig applies audio settings. It is called on hot reload.
func (c *Cues) UpdateConfig(cfg *config.DaemonConfig) {
	sounds := make(map[model.Band]string)
	for _, band := range []model.Band{model.BandLow, model.BandNormal, model.BandHigh, model.BandMax} {
		path := cfg.SoundForBand(band)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			c.logger.Warn("sound file not found", "band", band, "path", path)
			continue
		}
		sounds[band] = path
	}

	c.mu.Lock()
	c.enabled = cfg.Audio.Enabled
	c.sounds = sounds
	c.mu.Unlock()

	c.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)
	c.player.ClearCache()

	if c.watcher != nil {
		c.watcher.Reset()
		for _, path := range sounds {
			c.watcher.Watch(path)
		}
	}
	if cfg.Audio.Enabled {
		for band, path := range sounds {
			if err := c.player.Preload(path); err != nil {
				c.logger.Warn("failed to preload sound", "band", band, "path", path, "error", err)
			}
		}
	}
	c.logger.Debug("audio cues configured", "enabled", cfg.Audio.Enabled, "sounds", len(sounds))
}

// SoundFor returns the file to play for an entry. A sound-file hint wins
// over the band sound.
func (c *Cues) SoundFor(e *model.Entry) string {
	if hint := e.Content.Hint(model.HintSoundFile); hint != "" {
		return config.ExpandPath(hint)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sounds[e.Rank().Band()]
}

// OnEvent implements scheduler.Observer.
func (c *Cues) OnEvent(ev scheduler.Event) {
	if ev.Kind != scheduler.EventActivated || ev.Entry == nil {
		return
	}
	path := c.SoundFor(ev.Entry)
	if path == "" {
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.enabled || c.stopped {
		return
	}
	select {
	case c.requests <- path:
	default:
		c.logger.Debug("audio cue skipped, player busy", "path", path)
	}
}

// Start plays queued cues until ctx is cancelled or Stop is called.
func (c *Cues) Start(ctx context.Context) {
	if c.watcher != nil {
		c.watcher.Start(ctx)
	}
	go func() {
		defer close(c.done)
		for {
			select {
			case path, ok := <-c.requests:
				if !ok {
					return
				}
				if err := c.player.Play(path); err != nil {
					c.logger.Warn("failed to play sound", "path", path, "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends playback. Start must have been called.
func (c *Cues) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		close(c.requests)
		c.mu.Unlock()
		<-c.done
		if c.watcher != nil {
			c.watcher.Stop()
		}
		c.player.Close()
	})
}
