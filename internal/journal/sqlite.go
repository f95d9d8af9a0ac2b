package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_id   TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	summary    TEXT NOT NULL DEFAULT '',
	event      TEXT NOT NULL,
	precedence TEXT NOT NULL DEFAULT '',
	priority   TEXT NOT NULL DEFAULT '',
	reason     TEXT NOT NULL DEFAULT '',
	at         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_at ON records(at);
CREATE INDEX IF NOT EXISTS idx_records_name ON records(name);
`

const selectRecordsSQL = `
SELECT seq, entry_id, name, summary, event, precedence, priority, reason, at
FROM records WHERE seq > ? ORDER BY seq`

// Writer is a journal records can be appended to.
type Writer interface {
	Path() string
	AppendBatch(recs []Record) error
	Trim(n int) (int, error)
	Close() error
}

var (
	_ Writer = (*Journal)(nil)
	_ Writer = (*SQLiteJournal)(nil)
)

// IsSQLitePath reports whether path names a SQLite journal rather than a
// JSONL one.
func IsSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// OpenWriter opens the journal at path with the backend its extension
// selects.
func OpenWriter(path string) (Writer, error) {
	if IsSQLitePath(path) {
		j, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return j, nil
	}
	j, err := Open(path)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// SQLiteJournal stores lifecycle records in a SQLite database.
type SQLiteJournal struct {
	mu     sync.Mutex
	path   string
	db     *sql.DB
	closed bool
}

// OpenSQLite opens or creates a SQLite journal at path.
func OpenSQLite(path string) (*SQLiteJournal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite journal: path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite journal: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite journal: open db: %w", err)
	}

	for _, stmt := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite journal: init: %w", err)
		}
	}

	return &SQLiteJournal{path: path, db: db}, nil
}

// Path returns the database path.
func (j *SQLiteJournal) Path() string {
	return j.path
}

// Append writes a single record.
func (j *SQLiteJournal) Append(rec Record) error {
	return j.AppendBatch([]Record{rec})
}

// AppendBatch writes several records in one transaction.
func (j *SQLiteJournal) AppendBatch(recs []Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite journal: begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO records
		(entry_id, name, summary, event, precedence, priority, reason, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite journal: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.Exec(rec.EntryID, rec.Name, rec.Summary, rec.Event,
			rec.Precedence, rec.Priority, rec.Reason, rec.At.UTC().Format(time.RFC3339Nano)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite journal: insert record %s: %w", rec.EntryID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite journal: commit: %w", err)
	}
	return nil
}

// Load reads every record in the journal.
func (j *SQLiteJournal) Load(ctx context.Context) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil, ErrJournalClosed
	}
	recs, _, err := querySince(ctx, j.db, 0)
	return recs, err
}

// Trim keeps the newest n records and returns how many were deleted.
func (j *SQLiteJournal) Trim(n int) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return 0, ErrJournalClosed
	}
	if n <= 0 {
		return 0, nil
	}

	res, err := j.db.Exec(`DELETE FROM records WHERE seq NOT IN
		(SELECT seq FROM records ORDER BY seq DESC LIMIT ?)`, n)
	if err != nil {
		return 0, fmt.Errorf("sqlite journal: trim: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite journal: trim rows affected: %w", err)
	}
	return int(deleted), nil
}

// Close closes the database.
func (j *SQLiteJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

// openSQLiteReadOnly opens an existing database for reading. A missing
// file yields a nil db.
func openSQLiteReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("sqlite journal: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite journal: set busy timeout: %w", err)
	}
	return db, nil
}

// readSQLiteFile reads every record of the database at path.
func readSQLiteFile(path string) ([]Record, error) {
	db, err := openSQLiteReadOnly(path)
	if err != nil || db == nil {
		return nil, err
	}
	defer db.Close()

	recs, _, err := querySince(context.Background(), db, 0)
	return recs, err
}

// querySince returns records with a sequence number above after, and the
// highest sequence number seen.
func querySince(ctx context.Context, db *sql.DB, after int64) ([]Record, int64, error) {
	rows, err := db.QueryContext(ctx, selectRecordsSQL, after)
	if err != nil {
		return nil, after, fmt.Errorf("sqlite journal: query: %w", err)
	}
	defer rows.Close()

	var (
		recs []Record
		last = after
	)
	for rows.Next() {
		var (
			seq int64
			at  string
			rec Record
		)
		if err := rows.Scan(&seq, &rec.EntryID, &rec.Name, &rec.Summary, &rec.Event,
			&rec.Precedence, &rec.Priority, &rec.Reason, &at); err != nil {
			return recs, last, fmt.Errorf("sqlite journal: scan: %w", err)
		}
		last = seq
		rec.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil || !rec.IsValid() {
			continue
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return recs, last, fmt.Errorf("sqlite journal: rows: %w", err)
	}
	return recs, last, nil
}

// lastSeq returns the highest sequence number in the database at path.
func lastSeq(path string) (int64, error) {
	db, err := openSQLiteReadOnly(path)
	if err != nil || db == nil {
		return 0, err
	}
	defer db.Close()

	var seq sql.NullInt64
	if err := db.QueryRow("SELECT MAX(seq) FROM records").Scan(&seq); err != nil {
		return 0, fmt.Errorf("sqlite journal: last sequence: %w", err)
	}
	return seq.Int64, nil
}
