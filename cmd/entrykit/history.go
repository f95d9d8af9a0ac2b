package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/entrykit/internal/config"
	"github.com/jmylchreest/entrykit/internal/core"
	"github.com/jmylchreest/entrykit/internal/journal"
	"github.com/jmylchreest/entrykit/internal/output"
)

var historyOpts struct {
	limit    int
	follow   bool
	format   string
	field    string
	template string
	file     string
	filter   string
	since    string
	name     string
	event    string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the entry lifecycle journal",
	Long: `Show entry lifecycle events recorded by entrykitd, oldest first.

Events are queued, activated, dismissed, evicted, dropped, superseded and
rolled-back. The journal must be enabled in the daemon config.

Examples:
  # Last 20 events
  entrykit history --limit 20

  # Stream events as they happen
  entrykit history --follow

  # Timeouts in the last day
  entrykit history --since 1d --filter "event=dismissed,reason=expired"

  # Names of dismissed entries
  entrykit history --template '{{if eq .Event "dismissed"}}{{.Name}}{{end}}'`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", -1,
		"Show only the last N events, 0 for all (default from config)")
	historyCmd.Flags().BoolVarP(&historyOpts.follow, "follow", "F", false,
		"Keep running and print new events")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "",
		"Output format: plain, json, yaml (default from config)")
	historyCmd.Flags().StringVar(&historyOpts.field, "field", "",
		"Print a single field per event (id, name, summary, event, priority, precedence, reason, at)")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Go template for plain output")
	historyCmd.Flags().StringVar(&historyOpts.file, "journal", "",
		"Path to the journal (default: ~/.local/share/entrykit/journal.jsonl)")
	historyCmd.Flags().StringVar(&historyOpts.filter, "filter", "",
		"Filter expression (e.g. \"event=dismissed,priority>=high\")")
	historyCmd.Flags().StringVar(&historyOpts.since, "since", "",
		"Only events newer than this (e.g. 30m, 48h, 7d, 1w)")
	historyCmd.Flags().StringVar(&historyOpts.name, "name", "",
		"Only events for entries with this name")
	historyCmd.Flags().StringVar(&historyOpts.event, "event", "",
		"Only events of this kind")
}

// recordFilter builds the selection applied to both stored and followed
// records.
func recordFilter() (func([]journal.Record) []journal.Record, error) {
	since, err := core.ParseDuration(historyOpts.since)
	if err != nil {
		return nil, err
	}
	expr, err := core.ParseFilter(historyOpts.filter)
	if err != nil {
		return nil, err
	}
	opts := core.FilterOptions{Since: since, Name: historyOpts.name, Event: historyOpts.event}
	return func(recs []journal.Record) []journal.Record {
		return core.FilterWithExpr(core.Filter(recs, opts), expr)
	}, nil
}

// errNoJournal is returned when history has nothing to read.
var errNoJournal = errors.New("no journal found; enable [journal] in the entrykitd config")

func journalPath() string {
	if historyOpts.file != "" {
		return config.ExpandPath(historyOpts.file)
	}
	return config.JournalPath()
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(formatOrDefault(historyOpts.format))
	if err != nil {
		return err
	}

	limit := historyOpts.limit
	if limit < 0 {
		limit = getConfig().History.Limit
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = historyOpts.template
	formatter := output.NewFormatter(format, opts)

	filter, err := recordFilter()
	if err != nil {
		return err
	}

	path := journalPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !historyOpts.follow {
		return errNoJournal
	}
	recs, err := journal.ReadFile(path)
	if err != nil {
		return err
	}

	if err := writeRecords(formatter, journal.Tail(filter(recs), limit)); err != nil {
		return err
	}
	if !historyOpts.follow {
		return nil
	}

	follower, err := journal.NewFollower(path, false, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = follower.Follow(ctx, func(rec journal.Record) {
		matched := filter([]journal.Record{rec})
		if len(matched) == 0 {
			return
		}
		if err := writeRecords(formatter, matched); err != nil {
			logger.Warn("failed to write record", "error", err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func writeRecords(f output.Formatter, recs []journal.Record) error {
	if historyOpts.field != "" {
		for _, rec := range recs {
			if _, err := fmt.Println(output.FormatField(rec, historyOpts.field)); err != nil {
				return err
			}
		}
		return nil
	}
	return f.FormatRecords(os.Stdout, recs)
}
