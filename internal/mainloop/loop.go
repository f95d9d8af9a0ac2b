// Package mainloop provides the serial execution context that owns scheduler state.
package mainloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrLoopRunning is returned when Run is called on a loop that is already running.
	ErrLoopRunning = errors.New("mainloop: loop is already running")

	// ErrLoopStopped is returned by Call when the loop exits before the task ran.
	ErrLoopStopped = errors.New("mainloop: loop has stopped")
)

// Dispatcher marshals work onto a single logical execution context.
// Post never blocks and never runs fn inline on the caller's goroutine
// unless the implementation documents otherwise.
type Dispatcher interface {
	Post(fn func())
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(fn func())

// Post calls f(fn).
func (f DispatcherFunc) Post(fn func()) { f(fn) }

// Loop runs posted closures one at a time, in post order, on one goroutine.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []func()
	running bool
	stopped bool

	wake   chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}

	stopOnce sync.Once
}

// New creates a loop. It does nothing until Run is called.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Post queues fn to run on the loop. Tasks posted after Stop are discarded.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.logger.Debug("mainloop: task discarded after stop")
		return
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it to finish.
// It must not be called from the loop itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.doneCh:
		// The task may have been the last one drained.
		select {
		case <-done:
			return nil
		default:
			return ErrLoopStopped
		}
	}
}

// Run drains tasks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrLoopRunning
	}
	l.running = true
	l.mu.Unlock()

	defer close(l.doneCh)
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.tasks = nil
		l.mu.Unlock()
	}()

	l.logger.Debug("mainloop started")

	for {
		l.drain()

		select {
		case <-ctx.Done():
			l.logger.Debug("mainloop stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Debug("mainloop stopped")
			return nil
		case <-l.wake:
		}
	}
}

// Start runs the loop on a new goroutine.
func (l *Loop) Start(ctx context.Context) {
	go func() {
		if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Warn("mainloop exited", "error", err)
		}
	}()
}

// Stop ends the loop and waits for the running task to return.
// Pending tasks are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})

	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if running {
		<-l.doneCh
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.doneCh
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return
		}
		batch := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		for _, fn := range batch {
			select {
			case <-l.stopCh:
				return
			default:
			}
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("mainloop: task panicked", "panic", r)
		}
	}()
	fn()
}
