package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmylchreest/entrykit/internal/audio"
	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/daemon"
	"github.com/jmylchreest/entrykit/internal/dbus"
	"github.com/jmylchreest/entrykit/internal/journal"
	"github.com/jmylchreest/entrykit/internal/mainloop"
	"github.com/jmylchreest/entrykit/internal/scheduler"
)

// services are the parts of the daemon that do not depend on the surface.
type services struct {
	logger     *slog.Logger
	kit        *scheduler.Kit
	dispatcher mainloop.Dispatcher

	// applySurface pushes reloaded settings into the surface. It runs on
	// the dispatcher.
	applySurface func(cfg *config.DaemonConfig) error

	journal  journal.Writer
	recorder *journal.Observer
	cues     *audio.Cues
	server   *dbus.Server
	notifier *daemon.InternalNotifier
	watcher  *daemon.ConfigWatcher
}

// startServices wires the journal, audio cues, bus server, internal
// notifier and config watcher around kit. Only a bus failure is fatal.
func startServices(
	ctx context.Context,
	cfg *config.DaemonConfig,
	configPath string,
	kit *scheduler.Kit,
	dispatcher mainloop.Dispatcher,
	applySurface func(cfg *config.DaemonConfig) error,
	logger *slog.Logger,
) (*services, error) {
	s := &services{
		logger:       logger,
		kit:          kit,
		dispatcher:   dispatcher,
		applySurface: applySurface,
	}

	if cfg.Journal.Enabled {
		path := cfg.JournalPath()
		j, err := journal.OpenWriter(path)
		if err != nil {
			logger.Warn("failed to open journal, lifecycle events will not be recorded", "path", path, "error", err)
		} else {
			if dropped, err := j.Trim(cfg.Journal.MaxRecords); err != nil {
				logger.Warn("failed to trim journal", "path", path, "error", err)
			} else if dropped > 0 {
				logger.Info("journal trimmed", "path", path, "dropped", dropped)
			}
			s.journal = j
			s.recorder = journal.NewObserver(j, logger)
			kit.AddObserver(s.recorder)
			logger.Info("journal opened", "path", path)
		}
	}

	player := audio.NewPlayer(logger)
	soundWatcher, err := audio.NewWatcher(player, logger)
	if err != nil {
		logger.Warn("failed to create sound watcher", "error", err)
		soundWatcher = nil
	}
	s.cues = audio.NewCues(cfg, player, soundWatcher, logger)
	s.cues.Start(ctx)
	kit.AddObserver(s.cues)

	s.notifier = daemon.NewInternalNotifier(kit, logger)
	s.applyNotifier(cfg)

	s.server = dbus.NewServer(kit, cfg.DurationForPriority, logger)
	if err := s.server.Start(); err != nil {
		s.stop()
		return nil, fmt.Errorf("failed to start D-Bus server: %w", err)
	}
	kit.AddObserver(s.server)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		logger.Warn("failed to create config directory", "path", configPath, "error", err)
	}
	s.watcher, err = daemon.NewConfigWatcher(configPath, logger)
	if err != nil {
		logger.Warn("failed to create config watcher, hot reload disabled", "error", err)
	} else {
		s.watcher.SetReloadCallback(s.apply)
		s.watcher.SetErrorCallback(s.notifier.NotifyConfigError)
		s.watcher.Start(ctx, cfg)
	}

	return s, nil
}

// apply hands a reloaded config to every component.
func (s *services) apply(cfg *config.DaemonConfig) {
	s.cues.UpdateConfig(cfg)
	s.server.SetDurations(cfg.DurationForPriority)
	s.applyNotifier(cfg)
	s.kit.SetHeuristic(cfg.QueueHeuristic())

	if s.applySurface != nil {
		s.dispatcher.Post(func() {
			if err := s.applySurface(cfg); err != nil {
				s.logger.Warn("failed to apply surface settings", "error", err)
				s.notifier.NotifyThemeError(err)
			}
		})
	}
	if s.journal != nil && cfg.JournalPath() != s.journal.Path() {
		s.logger.Warn("journal path changed, restart entrykitd to apply", "path", cfg.JournalPath())
	}

	s.logger.Info("configuration reloaded", "heuristic", cfg.Scheduler.Heuristic)
	s.notifier.NotifyConfigReloaded()
}

func (s *services) applyNotifier(cfg *config.DaemonConfig) {
	s.notifier.SetEnabled(cfg.Internal.Enabled)
	s.notifier.SetMinInterval(cfg.Internal.RateLimit.Duration())
}

// stop shuts everything down in reverse order. It is safe on a partially
// started set.
func (s *services) stop() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.server != nil {
		if err := s.server.Stop(); err != nil {
			s.logger.Warn("error stopping D-Bus server", "error", err)
		}
	}
	if s.cues != nil {
		s.cues.Stop()
	}
	if s.recorder != nil {
		s.recorder.Close()
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn("error closing journal", "error", err)
		}
	}
}
