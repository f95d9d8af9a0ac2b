package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/entrykit/internal/dbus"
	"github.com/jmylchreest/entrykit/internal/journal"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// FormatStatus writes the status as a YAML mapping.
func (f *YAMLFormatter) FormatStatus(w io.Writer, s *dbus.Status) error {
	return f.encode(w, s)
}

// FormatRecords writes records as a YAML sequence.
func (f *YAMLFormatter) FormatRecords(w io.Writer, recs []journal.Record) error {
	if recs == nil {
		recs = []journal.Record{}
	}
	return f.encode(w, recs)
}

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
