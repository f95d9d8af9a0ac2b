package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/entrykit/internal/dbus"
	"github.com/jmylchreest/entrykit/internal/model"
)

var dismissOpts struct {
	wait    bool
	timeout time.Duration
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss [displayed|specific NAME|prioritized PRIORITY|enqueued|all]",
	Short: "Dismiss entries",
	Long: `Dismiss entries matching a descriptor. Without arguments the displayed
entry is dismissed.

  displayed             the entry on screen
  specific NAME         every entry called NAME, displayed or queued
  prioritized PRIORITY  every entry at or below PRIORITY, displayed included
  enqueued              the whole queue; the displayed entry stays
  all                   the queue and the displayed entry

With --wait the command returns once the daemon reports the targeted entry
as dismissed.`,
	Args: cobra.RangeArgs(0, 2),
	ValidArgs: []string{
		model.DismissDisplayed.String(),
		model.DismissSpecific.String(),
		model.DismissPrioritized.String(),
		model.DismissEnqueued.String(),
		model.DismissAll.String(),
	},
	RunE: runDismiss,
}

func init() {
	rootCmd.AddCommand(dismissCmd)

	dismissCmd.Flags().BoolVarP(&dismissOpts.wait, "wait", "w", false,
		"Wait for the dismissal to finish")
	dismissCmd.Flags().DurationVar(&dismissOpts.timeout, "timeout", 10*time.Second,
		"How long --wait waits")
}

// descriptorFromArgs parses the positional arguments of dismiss.
func descriptorFromArgs(args []string) (model.Descriptor, error) {
	if len(args) == 0 {
		return model.Displayed(), nil
	}

	kind, err := model.ParseDescriptorKind(args[0])
	if err != nil {
		return model.Descriptor{}, err
	}

	switch kind {
	case model.DismissSpecific:
		if len(args) != 2 || args[1] == "" {
			return model.Descriptor{}, fmt.Errorf("dismiss specific requires a NAME")
		}
		return model.Specific(args[1]), nil
	case model.DismissPrioritized:
		if len(args) != 2 {
			return model.Descriptor{}, fmt.Errorf("dismiss prioritized requires a PRIORITY")
		}
		p, err := model.ParsePriority(args[1])
		if err != nil {
			return model.Descriptor{}, err
		}
		return model.PrioritizedAtOrBelow(p), nil
	}

	if len(args) > 1 {
		return model.Descriptor{}, fmt.Errorf("dismiss %s takes no argument", kind)
	}
	return model.Descriptor{Kind: kind}, nil
}

// waitTarget decides which EntryDismissed signal ends a --wait.
// ok is false when nothing the descriptor targets is on screen or queued.
func waitTarget(d model.Descriptor, status *dbus.Status) (match func(dbus.Dismissal) bool, ok bool) {
	switch d.Kind {
	case model.DismissSpecific:
		present := status.Displaying && status.Name == d.Name
		for _, q := range status.Queued {
			present = present || q.Name == d.Name
		}
		return func(x dbus.Dismissal) bool { return x.Name == d.Name }, present
	case model.DismissEnqueued:
		if len(status.Queued) == 0 {
			return nil, false
		}
		last := status.Queued[len(status.Queued)-1].ID
		return func(x dbus.Dismissal) bool { return x.ID == last }, true
	case model.DismissPrioritized:
		if !status.Displaying || dbus.PriorityFromWire(status.Priority) > d.Threshold {
			return nil, false
		}
	default:
		if !status.Displaying {
			return nil, false
		}
	}
	id := status.ID
	return func(x dbus.Dismissal) bool { return x.ID == id }, true
}

func runDismiss(cmd *cobra.Command, args []string) error {
	d, err := descriptorFromArgs(args)
	if err != nil {
		return err
	}

	if !dismissOpts.wait {
		return withClient(func(ctx context.Context, c *dbus.Client) error {
			return c.Dismiss(ctx, d)
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), dismissOpts.timeout)
	defer cancel()

	c, err := dbus.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	dismissals, unsubscribe, err := c.SubscribeDismissals()
	if err != nil {
		return err
	}
	defer unsubscribe()

	status, err := c.Status(ctx)
	if err != nil {
		return err
	}
	match, ok := waitTarget(d, status)

	if err := c.Dismiss(ctx, d); err != nil {
		return err
	}
	if !ok {
		logger.Debug("nothing to wait for", "descriptor", d.String())
		return nil
	}

	for {
		select {
		case x, open := <-dismissals:
			if !open {
				return fmt.Errorf("signal subscription closed")
			}
			logger.Debug("entry dismissed", "id", x.ID, "name", x.Name, "reason", x.Reason)
			if match(x) {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for dismissal: %w", ctx.Err())
		}
	}
}
