// Package main is the entry point for the entrykitd entry daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/dbus"
	"github.com/jmylchreest/entrykit/internal/mainloop"
	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/scheduler"
	"github.com/jmylchreest/entrykit/internal/surface"
	"github.com/jmylchreest/entrykit/internal/surface/headless"
	"github.com/jmylchreest/entrykit/internal/surface/notify"
	"github.com/jmylchreest/entrykit/internal/surface/popup"
)

const appID = "io.github.jmylchreest.entrykitd"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", config.DaemonConfigPath(), "Path to the daemon config file")
	surfaceKind := flag.String("surface", "", "Override the configured surface (popup, notify, headless)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("entrykitd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadDaemonConfigFrom(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *surfaceKind != "" {
		cfg.Surface.Kind = *surfaceKind
		if err := cfg.Validate(); err != nil {
			logger.Error("invalid surface", "surface", *surfaceKind, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("starting entrykitd", "version", version, "surface", cfg.Surface.Kind)

	switch config.SurfaceKind(cfg.Surface.Kind) {
	case config.SurfacePopup:
		os.Exit(runPopup(cfg, *configPath, logger))
	default:
		os.Exit(runLoop(cfg, *configPath, logger))
	}
}

// runLoop runs the daemon on a mainloop.Loop with the notify or headless
// surface.
func runLoop(cfg *config.DaemonConfig, configPath string, logger *slog.Logger) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loop := mainloop.New(logger)
	timings := surface.TimingsFromConfig(cfg)

	var (
		surf         scheduler.Surface
		applySurface func(*config.DaemonConfig) error
		closeSurface func()
		surfaceErr   error
		kit          *scheduler.Kit
	)

	if config.SurfaceKind(cfg.Surface.Kind) == config.SurfaceNotify {
		n, err := notify.Dial(ctx, cfg.Surface.AppName, timings, logger)
		if err != nil {
			logger.Warn("notification server unavailable, falling back to headless", "error", err)
			surfaceErr = err
		} else {
			n.SetCloseHandler(func(reason notify.CloseReason) {
				logger.Debug("notification closed externally", "reason", reason)
				kit.Dismiss(model.Displayed(), nil)
			})
			surf = n
			applySurface = func(c *config.DaemonConfig) error {
				n.SetTimings(surface.TimingsFromConfig(c))
				return nil
			}
			closeSurface = n.Close
		}
	}
	if surf == nil {
		h := headless.New(timings, logger)
		surf = h
		applySurface = func(c *config.DaemonConfig) error {
			h.SetTimings(surface.TimingsFromConfig(c))
			return nil
		}
	}

	kit = scheduler.NewKit(scheduler.New(surf, loop, scheduler.Options{
		Heuristic: cfg.QueueHeuristic(),
		Logger:    logger,
	}), loop)

	loop.Start(ctx)

	svc, err := startServices(ctx, cfg, configPath, kit, loop, applySurface, logger)
	if err != nil {
		logger.Error("failed to start entrykitd", "error", err)
		loop.Stop()
		if closeSurface != nil {
			closeSurface()
		}
		return 1
	}

	logger.Info("entrykitd ready", "dbus_interface", dbus.Interface)
	svc.notifier.NotifyStartup(version)
	if surfaceErr != nil {
		svc.notifier.NotifySurfaceError(surfaceErr)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	svc.stop()
	loop.Stop()
	if closeSurface != nil {
		closeSurface()
	}

	logger.Info("entrykitd stopped")
	return 0
}

// runPopup runs the daemon inside a libadwaita application. The GTK main
// loop is the scheduler's execution context.
func runPopup(cfg *config.DaemonConfig, configPath string, logger *slog.Logger) int {
	app := adw.NewApplication(appID, 0)

	var (
		svc     *services
		popups  *popup.Surface
		running atomic.Bool
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		glib.IdleAdd(func() {
			if running.Load() {
				app.Quit()
			}
		})
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		dispatcher := popup.Dispatcher{}
		popups = popup.New(&app.Application, cfg.Display, surface.TimingsFromConfig(cfg), logger)
		kit := scheduler.NewKit(scheduler.New(popups, dispatcher, scheduler.Options{
			Heuristic: cfg.QueueHeuristic(),
			Logger:    logger,
		}), dispatcher)
		popups.SetDismissHandler(func() {
			kit.Dismiss(model.Displayed(), nil)
		})

		var err error
		svc, err = startServices(ctx, cfg, configPath, kit, dispatcher, func(c *config.DaemonConfig) error {
			return popups.UpdateConfig(c.Display, surface.TimingsFromConfig(c))
		}, logger)
		if err != nil {
			logger.Error("failed to start entrykitd", "error", err)
			app.Quit()
			return
		}

		logger.Info("entrykitd ready", "dbus_interface", dbus.Interface)
		svc.notifier.NotifyStartup(version)

		// GTK applications quit when their last window closes.
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if svc != nil {
			svc.stop()
		}
		if popups != nil {
			popups.Close()
		}
		running.Store(false)
	})

	status := app.Run(os.Args[:1])
	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}

	logger.Info("entrykitd stopped")
	return 0
}
