package journal

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/entrykit/internal/scheduler"
)

// observerBuffer is the number of records held while the writer catches up.
const observerBuffer = 256

// Observer writes scheduler events to a journal from a background goroutine,
// so that the scheduler's loop never waits on disk.
type Observer struct {
	journal Writer
	logger  *slog.Logger

	records chan Record
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewObserver starts a writer for j.
func NewObserver(j Writer, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Observer{
		journal: j,
		logger:  logger,
		records: make(chan Record, observerBuffer),
		done:    make(chan struct{}),
	}
	go o.run()
	return o
}

// OnEvent implements scheduler.Observer. Records are dropped, with a
// warning, when the writer has fallen a full buffer behind.
func (o *Observer) OnEvent(ev scheduler.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	select {
	case o.records <- RecordFromEvent(ev):
	default:
		o.logger.Warn("journal writer is behind, dropping record", "event", ev.Kind.String())
	}
}

func (o *Observer) run() {
	defer close(o.done)

	for rec := range o.records {
		batch := []Record{rec}
		// Drain whatever else is ready so a burst costs one sync.
	drain:
		for {
			select {
			case next, ok := <-o.records:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}

		if err := o.journal.AppendBatch(batch); err != nil {
			o.logger.Warn("failed to write journal", "error", err, "records", len(batch))
		}
	}
}

// Close flushes pending records and stops the writer. It does not close
// the journal.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.records)
	o.mu.Unlock()

	<-o.done
}
