package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/dbus"
	"github.com/jmylchreest/entrykit/internal/model"
)

var displayOpts struct {
	name         string
	override     bool
	enqueue      bool
	dropEnqueued bool
	priority     string
	duration     string
	icon         string
	category     string
	soundFile    string
}

var displayCmd = &cobra.Command{
	Use:   "display SUMMARY [BODY]",
	Short: "Display an entry",
	Long: `Submit an entry to entrykitd and print its id.

By default the entry is enqueued with the precedence and priority from the
config file. An enqueued entry waits for the displayed one to finish; an
override entry replaces it immediately.

Priority is min, normal, high, max or an integer. Use --priority none to
queue without a priority, in submission order.

Duration is a Go duration ("4s", "1m30s"), "never" to stay until dismissed,
or "default" for the daemon's per-priority default.

Examples:
  # Queue a normal-priority entry
  entrykit display "Build finished" "all 212 tests passed"

  # Replace whatever is shown and drop the queue
  entrykit display --override --drop-enqueued --priority max "Battery low"

  # Name an entry so it can be dismissed later
  entrykit display --name upload --duration never "Uploading..."`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDisplay,
}

func init() {
	rootCmd.AddCommand(displayCmd)

	displayCmd.Flags().StringVar(&displayOpts.name, "name", "",
		"Entry name, used by dismiss specific and status --name")
	displayCmd.Flags().BoolVar(&displayOpts.override, "override", false,
		"Replace the displayed entry instead of queueing")
	displayCmd.Flags().BoolVar(&displayOpts.enqueue, "enqueue", false,
		"Queue the entry even if the config defaults to override")
	displayCmd.Flags().BoolVar(&displayOpts.dropEnqueued, "drop-enqueued", false,
		"With --override, also discard every queued entry")
	displayCmd.Flags().StringVarP(&displayOpts.priority, "priority", "p", "",
		"Priority: min, normal, high, max, an integer, or none")
	displayCmd.Flags().StringVarP(&displayOpts.duration, "duration", "d", "",
		"Display duration, \"never\" or \"default\"")
	displayCmd.Flags().StringVar(&displayOpts.icon, "icon", "",
		"Icon name or path")
	displayCmd.Flags().StringVar(&displayOpts.category, "category", "",
		"Category, used for styling")
	displayCmd.Flags().StringVar(&displayOpts.soundFile, "sound-file", "",
		"Sound to play instead of the priority band cue")

	displayCmd.MarkFlagsMutuallyExclusive("override", "enqueue")
}

func runDisplay(cmd *cobra.Command, args []string) error {
	defaults := getConfig().Display

	prec, err := precedenceFromFlags(defaults, cmd.Flags().Changed("drop-enqueued"))
	if err != nil {
		return err
	}

	duration, err := parseDuration(displayOpts.duration, defaults.Duration)
	if err != nil {
		return err
	}

	content := model.Content{
		Summary: args[0],
		Icon:    displayOpts.icon,
	}
	if len(args) > 1 {
		content.Body = args[1]
	}

	extra := map[string]string{}
	if displayOpts.category != "" {
		extra[model.HintCategory] = displayOpts.category
	}
	if displayOpts.soundFile != "" {
		extra[model.HintSoundFile] = displayOpts.soundFile
	}

	return withClient(func(ctx context.Context, c *dbus.Client) error {
		id, err := c.Display(ctx, displayOpts.name, content, dbus.HintsFor(prec, duration, extra))
		if err != nil {
			return err
		}
		logger.Debug("entry submitted", "id", id, "precedence", prec.String())
		fmt.Println(id)
		return nil
	})
}

// precedenceFromFlags merges the flags over the config defaults.
func precedenceFromFlags(defaults config.DisplayDefaults, dropChanged bool) (model.Precedence, error) {
	override := defaults.Precedence == "override"
	switch {
	case displayOpts.override:
		override = true
	case displayOpts.enqueue:
		override = false
	}

	dropEnqueued := defaults.DropEnqueued
	if dropChanged {
		dropEnqueued = displayOpts.dropEnqueued
	}

	priorityText := defaults.Priority
	if displayOpts.priority != "" {
		priorityText = displayOpts.priority
	}

	if strings.EqualFold(priorityText, "none") || priorityText == "" {
		if override {
			return model.Precedence{}, fmt.Errorf("an override entry needs a priority")
		}
		return model.EnqueueUnprioritized(), nil
	}

	p, err := model.ParsePriority(priorityText)
	if err != nil {
		return model.Precedence{}, err
	}
	if override {
		return model.Override(p, dropEnqueued), nil
	}
	if dropChanged && dropEnqueued {
		return model.Precedence{}, fmt.Errorf("--drop-enqueued requires --override")
	}
	return model.Enqueue(p), nil
}

// parseDuration returns the wire duration: negative for the daemon default,
// zero for never.
func parseDuration(s string, fallback config.Duration) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		if fallback.Duration() > 0 {
			return fallback.Duration(), nil
		}
		return -1, nil
	case "default":
		return -1, nil
	case "never", "0":
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration cannot be negative, got %s", s)
	}
	return d, nil
}
