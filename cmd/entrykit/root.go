// Package main provides the CLI entrypoint for entrykit.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// callTimeout bounds a single round-trip to entrykitd.
const callTimeout = 10 * time.Second

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "entrykit",
	Short: "Schedule on-screen entries through entrykitd",
	Long: `entrykit talks to the entrykitd daemon over the session bus.

Entries either override whatever is displayed or wait in a queue ordered by
priority. Use "entrykit demo" to try the scheduler in a terminal without
the daemon.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/entrykit/config.toml)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	logger = slog.New(newLogHandler(os.Stderr, globalOpts.verbose))
	slog.SetDefault(logger)
}

// newLogHandler returns a terminal-friendly handler. Logs go to stderr so
// stdout stays clean for output.
func newLogHandler(w io.Writer, verbose bool) slog.Handler {
	level := clog.WarnLevel
	if verbose {
		level = clog.DebugLevel
	}
	return clog.NewWithOptions(w, clog.Options{
		Level:           level,
		ReportTimestamp: verbose,
		TimeFormat:      time.TimeOnly,
		Prefix:          "entrykit",
	})
}

// getConfig returns the global config instance.
func getConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

// withClient connects to entrykitd and calls fn with a bounded context.
func withClient(fn func(ctx context.Context, c *dbus.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	client, err := dbus.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Debug("closing bus connection", "error", err)
		}
	}()

	return fn(ctx, client)
}
