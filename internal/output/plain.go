package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/jmylchreest/entrykit/internal/dbus"
	"github.com/jmylchreest/entrykit/internal/journal"
)

// PlainFormatter formats output as plain text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter. An unparseable
// template is ignored.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs(opts.Now)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// FormatStatus writes the displayed entry followed by the queue in order.
func (f *PlainFormatter) FormatStatus(w io.Writer, s *dbus.Status) error {
	var sb strings.Builder

	if s.Displaying {
		sb.WriteString(fmt.Sprintf("displaying: %s", labelOf(s.Name, s.ID)))
		sb.WriteString(fmt.Sprintf(" [%s]", priorityLabel(s.Priority)))
		if f.opts.ShowTime && !s.ActivatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf(" (%s)", relativeTime(s.ActivatedAt, f.opts.Now())))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("displaying: nothing\n")
	}

	sb.WriteString(fmt.Sprintf("queued: %d\n", len(s.Queued)))
	for i, q := range s.Queued {
		sb.WriteString(fmt.Sprintf("  %d. %s [%s]\n", i+1, labelOf(q.Name, q.ID), priorityLabel(q.Priority)))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatRecords writes one line per record.
func (f *PlainFormatter) FormatRecords(w io.Writer, recs []journal.Record) error {
	for i, rec := range recs {
		if err := f.formatRecord(w, i+1, rec); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatRecord(w io.Writer, index int, rec journal.Record) error {
	if f.template != nil {
		data := recordData{
			Index:        index,
			Record:       rec,
			RelativeTime: relativeTime(rec.At, f.opts.Now()),
		}
		if err := f.template.Execute(w, data); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	line := journal.SummaryOf(rec)
	if f.opts.ShowTime {
		line = fmt.Sprintf("%-16s %s", relativeTime(rec.At, f.opts.Now()), line)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func labelOf(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func priorityLabel(p int32) string {
	if p == dbus.WirePriorityUnset {
		return "unprioritized"
	}
	return dbus.PriorityFromWire(p).String()
}

// FormatField outputs a specific field from a record.
func FormatField(rec journal.Record, field string) string {
	switch strings.ToLower(field) {
	case "id", "entry_id":
		return rec.EntryID
	case "name":
		return rec.Name
	case "summary":
		return rec.Summary
	case "event":
		return rec.Event
	case "priority":
		return rec.Priority
	case "precedence":
		return rec.Precedence
	case "reason":
		return rec.Reason
	case "at", "time":
		return rec.At.Format(time.RFC3339)
	default:
		return journal.SummaryOf(rec)
	}
}
