// Package journal records entry lifecycle events. Journals are JSON lines
// files, or SQLite databases when the path ends in .db.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/entrykit/internal/scheduler"
)

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

// maxLineSize bounds a single journal line.
const maxLineSize = 1024 * 1024

// ErrJournalClosed is returned when operations are attempted on a closed journal.
var ErrJournalClosed = errors.New("journal is closed")

// Record is one journal line.
type Record struct {
	EntryID    string    `json:"entry_id" yaml:"entry_id"`
	Name       string    `json:"name,omitempty" yaml:"name,omitempty"`
	Summary    string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Event      string    `json:"event" yaml:"event"`
	Precedence string    `json:"precedence,omitempty" yaml:"precedence,omitempty"`
	Priority   string    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Reason     string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	At         time.Time `json:"at" yaml:"at"`
}

// RecordFromEvent converts a scheduler event to a journal record.
func RecordFromEvent(ev scheduler.Event) Record {
	rec := Record{
		Event:  ev.Kind.String(),
		Reason: string(ev.Reason),
		At:     ev.At,
	}
	if e := ev.Entry; e != nil {
		p := e.Attributes.Precedence
		rec.EntryID = e.ID
		rec.Name = e.Name
		rec.Summary = e.Content.Summary
		rec.Precedence = p.String()
		if p.HasPriority {
			rec.Priority = p.Priority.String()
		}
	}
	return rec
}

// IsValid reports whether the record can be written.
func (r Record) IsValid() bool {
	if r.Event == "" || r.At.IsZero() {
		return false
	}
	_, ok := scheduler.ParseEventKind(r.Event)
	return ok
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	EntrykitJournalVersion int   `json:"entrykit_journal_version"`
	CreatedAt              int64 `json:"created_at"`
}

// Journal is an append-only JSONL file of lifecycle records.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	j := &Journal{
		path: path,
		file: file,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	if info.Size() == 0 {
		if err := j.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return j, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) writeHeader() error {
	header := schemaHeader{
		EntrykitJournalVersion: SchemaVersion,
		CreatedAt:              time.Now().Unix(),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return err
	}

	_, err = j.file.Write(append(data, '\n'))
	return err
}

// Append writes a single record.
func (j *Journal) Append(rec Record) error {
	return j.AppendBatch([]Record{rec})
}

// AppendBatch writes several records with one sync.
func (j *Journal) AppendBatch(recs []Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return ErrJournalClosed
	}

	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.EntryID, err)
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return j.file.Sync()
}

// Load reads every record in the journal.
func (j *Journal) Load() ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return nil, ErrJournalClosed
	}

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", j.path, err)
	}
	recs, _, err := readRecords(j.file)
	if err != nil {
		return recs, err
	}

	if _, err := j.file.Seek(0, io.SeekEnd); err != nil {
		return recs, err
	}
	return recs, nil
}

// Clear truncates the journal, keeping a .bak of the previous contents.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return err
		}
		j.file = nil
	}

	backupPath := j.path + ".bak"
	if err := os.Rename(j.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(j.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		os.Rename(backupPath, j.path)
		return err
	}
	j.file = file

	if err := j.writeHeader(); err != nil {
		return err
	}
	return j.file.Sync()
}

// Trim keeps the newest n records and returns how many were dropped. The
// untrimmed journal is kept as a .bak.
func (j *Journal) Trim(n int) (int, error) {
	recs, err := j.Load()
	if err != nil {
		return 0, err
	}
	if n <= 0 || len(recs) <= n {
		return 0, nil
	}

	if err := j.Clear(); err != nil {
		return 0, err
	}
	kept := Tail(recs, n)
	if err := j.AppendBatch(kept); err != nil {
		return 0, err
	}
	return len(recs) - len(kept), nil
}

// Close releases the file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		return err
	}
	return nil
}

// ReadFile reads the records of a journal without opening it for writing.
// A missing file yields no records.
func ReadFile(path string) ([]Record, error) {
	if IsSQLitePath(path) {
		return readSQLiteFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	recs, _, err := readRecords(f)
	return recs, err
}

// Tail returns the last n records, or all of them when n <= 0.
func Tail(recs []Record, n int) []Record {
	if n <= 0 || n >= len(recs) {
		return recs
	}
	return recs[len(recs)-n:]
}

// readRecords parses journal lines from r. It returns the records and the
// number of bytes consumed, up to the end of the last complete line.
func readRecords(r io.Reader) ([]Record, int64, error) {
	var (
		recs     []Record
		consumed int64
	)

	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			consumed += int64(len(line))
			if rec, ok, perr := parseLine(line[:len(line)-1]); perr != nil {
				return recs, consumed, perr
			} else if ok {
				recs = append(recs, rec)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// A trailing partial line is left for the next read.
				return recs, consumed, nil
			}
			return recs, consumed, fmt.Errorf("error reading journal: %w", err)
		}
	}
}

// parseLine decodes one line. Headers and malformed lines yield ok=false.
func parseLine(line []byte) (Record, bool, error) {
	if len(line) == 0 || len(line) > maxLineSize {
		return Record{}, false, nil
	}

	var header schemaHeader
	if json.Unmarshal(line, &header) == nil && header.EntrykitJournalVersion > 0 {
		if header.EntrykitJournalVersion > SchemaVersion {
			return Record{}, false, fmt.Errorf("unsupported schema version %d (max: %d)",
				header.EntrykitJournalVersion, SchemaVersion)
		}
		return Record{}, false, nil
	}

	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil || !rec.IsValid() {
		return Record{}, false, nil
	}
	return rec, true, nil
}

// SummaryOf returns a one-line description of a record for plain output.
func SummaryOf(rec Record) string {
	label := rec.Name
	if label == "" {
		label = rec.Summary
	}
	if label == "" {
		label = rec.EntryID
	}
	if rec.Reason != "" {
		return fmt.Sprintf("%-11s %s (%s)", rec.Event, label, rec.Reason)
	}
	return fmt.Sprintf("%-11s %s", rec.Event, label)
}
