package journal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Follower streams records appended to a journal file.
type Follower struct {
	path   string
	logger *slog.Logger
	sqlite bool
	// offset is a byte offset for JSONL journals and the last sequence
	// number read for SQLite ones.
	offset int64
}

// NewFollower creates a follower for the journal at path. Records already
// in the file are skipped unless fromStart is set.
func NewFollower(path string, fromStart bool, logger *slog.Logger) (*Follower, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := &Follower{path: path, logger: logger, sqlite: IsSQLitePath(path)}
	if !fromStart && f.sqlite {
		seq, err := lastSeq(path)
		if err != nil {
			return nil, err
		}
		f.offset = seq
	} else if !fromStart {
		info, err := os.Stat(path)
		switch {
		case err == nil:
			f.offset = info.Size()
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("stat journal: %w", err)
		}
	}
	return f, nil
}

// Follow calls fn for each appended record until ctx is cancelled.
func (f *Follower) Follow(ctx context.Context, fn func(Record)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory containing the file (more reliable for writes)
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// Catch up on anything written before the watch was established.
	f.readNew(fn)

	filename := filepath.Base(f.path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			base := filepath.Base(event.Name)
			// SQLite writes land in the -wal and -journal side files.
			if base != filename && !(f.sqlite && strings.HasPrefix(base, filename)) {
				continue
			}

			switch {
			case base == filename && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)):
				f.logger.Debug("journal replaced, restarting from the top", "file", f.path)
				f.offset = 0
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				f.readNew(fn)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("journal watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *Follower) readNew(fn func(Record)) {
	if f.sqlite {
		f.readNewSQLite(fn)
		return
	}

	file, err := os.Open(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("failed to open journal", "error", err)
		}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		f.logger.Warn("failed to stat journal", "error", err)
		return
	}
	if info.Size() < f.offset {
		// Truncated, e.g. by Trim.
		f.offset = 0
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		f.logger.Warn("failed to seek journal", "error", err)
		return
	}

	recs, consumed, err := readRecords(file)
	f.offset += consumed
	if err != nil {
		f.logger.Warn("failed to read journal", "error", err)
	}
	for _, rec := range recs {
		fn(rec)
	}
}

func (f *Follower) readNewSQLite(fn func(Record)) {
	db, err := openSQLiteReadOnly(f.path)
	if err != nil {
		f.logger.Warn("failed to open journal", "error", err)
		return
	}
	if db == nil {
		return
	}
	defer db.Close()

	recs, last, err := querySince(context.Background(), db, f.offset)
	f.offset = last
	if err != nil {
		f.logger.Warn("failed to read journal", "error", err)
	}
	for _, rec := range recs {
		fn(rec)
	}
}
