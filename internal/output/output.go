// Package output provides output formatters for daemon status and journal records.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/entrykit/internal/dbus"
	"github.com/jmylchreest/entrykit/internal/journal"
)

// Formatter formats CLI output.
type Formatter interface {
	// FormatStatus writes the scheduler status reported by the daemon.
	FormatStatus(w io.Writer, status *dbus.Status) error
	// FormatRecords writes journal records, oldest first.
	FormatRecords(w io.Writer, recs []journal.Record) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (FormatType, error) {
	switch f := FormatType(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPlain, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatPlain, nil
	default:
		return "", fmt.Errorf("invalid format %q, must be one of: plain, json, yaml", s)
	}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template string           // Custom per-record template for plain format
	ShowTime bool             // Show relative time in plain format
	Now      func() time.Time // Reference for relative times
}

// DefaultFormatterOptions returns sensible defaults for plain output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowTime: true,
		Now:      time.Now,
	}
}

// recordData is the value a record template is executed with.
type recordData struct {
	Index int
	journal.Record
	RelativeTime string
}

func templateFuncs(now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"reltime": func(t time.Time) string {
			return relativeTime(t, now())
		},
	}
}

// relativeTime returns a human-readable relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	if now.Sub(t) < time.Second {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
