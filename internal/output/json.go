package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/entrykit/internal/dbus"
	"github.com/jmylchreest/entrykit/internal/journal"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// FormatStatus writes the status as a JSON object.
func (f *JSONFormatter) FormatStatus(w io.Writer, s *dbus.Status) error {
	return f.encode(w, s)
}

// FormatRecords writes records as a JSON array.
func (f *JSONFormatter) FormatRecords(w io.Writer, recs []journal.Record) error {
	if recs == nil {
		recs = []journal.Record{}
	}
	return f.encode(w, recs)
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
