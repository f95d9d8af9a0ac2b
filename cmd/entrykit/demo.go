package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/entrykit/internal/queue"
	"github.com/jmylchreest/entrykit/internal/surface"
	"github.com/jmylchreest/entrykit/internal/surface/term"
)

var demoOpts struct {
	heuristic string
	duration  time.Duration
	enter     time.Duration
	exit      time.Duration
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Try the scheduler in the terminal",
	Long: `Run a local scheduler with a terminal surface. No daemon is involved.

Key bindings:
  n / h / u   Enqueue a normal, high or unprioritized entry
  o / O       Override at high priority / at max, dropping the queue
  d, enter    Dismiss the displayed entry
  l           Dismiss entries at or below normal priority
  x           Clear the queue
  a           Dismiss everything
  t           Update the displayed entry in place
  s           Switch between priority and fifo queueing
  ?           Show help
  q           Quit`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().StringVar(&demoOpts.heuristic, "heuristic", string(queue.HeuristicPriority),
		"Queueing heuristic: priority or fifo")
	demoCmd.Flags().DurationVar(&demoOpts.duration, "duration", 4*time.Second,
		"Display duration of demo entries, 0 to keep them until dismissed")
	demoCmd.Flags().DurationVar(&demoOpts.enter, "enter", 300*time.Millisecond,
		"Enter animation length")
	demoCmd.Flags().DurationVar(&demoOpts.exit, "exit", 300*time.Millisecond,
		"Exit animation length")
}

func runDemo(cmd *cobra.Command, args []string) error {
	h, err := queue.ParseHeuristic(demoOpts.heuristic)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal, so scheduler logs only go
	// to stderr when asked for.
	demoLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if globalOpts.verbose {
		demoLogger = logger
	}

	return term.Run(term.Options{
		Timings:   surface.Timings{Enter: demoOpts.enter, Exit: demoOpts.exit},
		Heuristic: h,
		Duration:  demoOpts.duration,
		Logger:    demoLogger,
	})
}
