package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/entrykit/internal/dbus"
	"github.com/jmylchreest/entrykit/internal/output"
)

var statusOpts struct {
	name   string
	queued string
	format string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what entrykitd is displaying",
	Long: `Show the displayed entry and the queue in the order entries will be shown.

With --name or --queued the command prints nothing and reports through its
exit code instead, which suits shell conditionals:

  entrykit status --name upload && echo "upload still on screen"
  entrykit status --queued upload || entrykit display --name upload "..."

Exit codes for --name and --queued: 0 = yes, 1 = no.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusOpts.name, "name", "",
		"Exit 0 if NAME is displayed (empty-name check matches any entry)")
	statusCmd.Flags().StringVar(&statusOpts.queued, "queued", "",
		"Exit 0 if NAME is waiting in the queue")
	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "",
		"Output format: plain, json, yaml (default from config)")

	statusCmd.MarkFlagsMutuallyExclusive("name", "queued")
}

func runStatus(cmd *cobra.Command, args []string) error {
	nameSet := cmd.Flags().Changed("name")
	queuedSet := cmd.Flags().Changed("queued")

	format, err := output.ParseFormat(formatOrDefault(statusOpts.format))
	if err != nil {
		return err
	}

	var (
		status *dbus.Status
		yes    bool
	)
	err = withClient(func(ctx context.Context, c *dbus.Client) error {
		var err error
		switch {
		case nameSet:
			yes, err = c.IsDisplaying(ctx, statusOpts.name)
		case queuedSet:
			yes, err = c.QueueContains(ctx, statusOpts.queued)
		default:
			status, err = c.Status(ctx)
		}
		return err
	})
	if err != nil {
		return err
	}

	if nameSet || queuedSet {
		if !yes {
			os.Exit(1)
		}
		return nil
	}

	return output.NewFormatter(format, output.DefaultFormatterOptions()).FormatStatus(os.Stdout, status)
}

// formatOrDefault falls back to the configured output format.
func formatOrDefault(flag string) string {
	if flag != "" {
		return flag
	}
	return getConfig().Output.Format
}
