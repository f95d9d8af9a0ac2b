// Package notify presents entries through the desktop notification server.
// One notification is open at a time; exits close it and wait for the
// server's NotificationClosed signal.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/entrykit/internal/model"
	"github.com/jmylchreest/entrykit/internal/surface"
)

const (
	notificationsInterface = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsBusName   = "org.freedesktop.Notifications"

	// callTimeout bounds each round-trip to the notification server.
	callTimeout = 5 * time.Second
	// closeGrace is added to the exit timing before an unanswered close is
	// treated as finished.
	closeGrace = time.Second
)

// CloseReason is the reason argument of NotificationClosed.
type CloseReason uint32

const (
	CloseReasonExpired   CloseReason = 1
	CloseReasonDismissed CloseReason = 2
	CloseReasonClosed    CloseReason = 3
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Notifier is the subset of org.freedesktop.Notifications used by the surface.
type Notifier interface {
	Notify(ctx context.Context, appName string, replacesID uint32, icon, summary, body string,
		hints map[string]dbus.Variant, expireTimeout int32) (uint32, error)
	CloseNotification(ctx context.Context, id uint32) error
}

// Surface shows the active entry as a desktop notification.
type Surface struct {
	logger   *slog.Logger
	notifier Notifier
	appName  string

	mu       sync.Mutex
	timings  surface.Timings
	entry    *model.Entry
	id       uint32
	waiters  map[uint32]func()
	onClosed func(reason CloseReason)

	jobsMu   sync.RWMutex
	closed   bool
	jobs     chan func()
	done     chan struct{}
	stopOnce sync.Once
	cleanup  func()
}

// New creates a surface over notifier. Calls to the notifier run on a
// worker goroutine in submission order, never on the caller's.
func New(notifier Notifier, appName string, timings surface.Timings, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Surface{
		logger:   logger,
		notifier: notifier,
		appName:  appName,
		timings:  timings,
		waiters:  make(map[uint32]func()),
		jobs:     make(chan func(), 64),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// Dial connects to the session bus notification server.
func Dial(ctx context.Context, appName string, timings surface.Timings, logger *slog.Logger) (*Surface, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, &surface.Error{Surface: "notify", Message: "failed to connect to session bus", Cause: err}
	}

	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(notificationsPath),
		dbus.WithMatchInterface(notificationsInterface),
		dbus.WithMatchMember("NotificationClosed"),
	}
	if err := conn.AddMatchSignal(match...); err != nil {
		conn.Close()
		return nil, &surface.Error{Surface: "notify", Message: "failed to subscribe to NotificationClosed", Cause: err}
	}

	s := New(&busNotifier{obj: conn.Object(notificationsBusName, notificationsPath)}, appName, timings, logger)

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	go func() {
		for sig := range signals {
			if sig.Name != notificationsInterface+".NotificationClosed" || len(sig.Body) != 2 {
				continue
			}
			id, ok1 := sig.Body[0].(uint32)
			reason, ok2 := sig.Body[1].(uint32)
			if ok1 && ok2 {
				s.handleClosed(id, CloseReason(reason))
			}
		}
	}()

	s.cleanup = func() {
		conn.RemoveSignal(signals)
		close(signals)
		conn.Close()
	}
	return s, nil
}

// SetTimings changes the exit timing used for the close fallback.
func (s *Surface) SetTimings(t surface.Timings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timings = t
}

// SetCloseHandler sets the handler called when the server closes the
// active notification on its own, for example when the user clicks it.
func (s *Surface) SetCloseHandler(fn func(reason CloseReason)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClosed = fn
}

// CanDisplay implements scheduler.Surface. The server stacks notifications
// itself, so there is always room.
func (s *Surface) CanDisplay(model.Attributes) bool {
	return true
}

// Show implements scheduler.Surface.
func (s *Surface) Show(e *model.Entry) {
	s.mu.Lock()
	s.entry = e
	s.mu.Unlock()

	s.submit(func() {
		s.mu.Lock()
		current := s.entry == e
		s.mu.Unlock()
		if !current {
			// Already dismissed or replaced; the close job that follows finds no id.
			return
		}
		id, err := s.notify(e, 0)
		if err != nil {
			s.logger.Warn("failed to show entry", "entry_id", e.ID, "error", err)
			return
		}
		s.mu.Lock()
		s.id = id
		s.mu.Unlock()
	})
}

// Transform implements scheduler.Transformer by replacing the notification.
func (s *Surface) Transform(e *model.Entry) {
	s.mu.Lock()
	s.entry = e
	s.mu.Unlock()

	s.submit(func() {
		s.mu.Lock()
		replaces := s.id
		s.mu.Unlock()
		if replaces == 0 {
			return
		}
		id, err := s.notify(e, replaces)
		if err != nil {
			s.logger.Warn("failed to update entry", "entry_id", e.ID, "error", err)
			return
		}
		s.mu.Lock()
		s.id = id
		s.mu.Unlock()
	})
}

// AnimateOutActive implements scheduler.Surface. done runs when the server
// confirms the close, or after the exit timing plus a grace period.
func (s *Surface) AnimateOutActive(done func()) {
	s.mu.Lock()
	e := s.entry
	s.entry = nil
	wait := s.timings.Exit + closeGrace
	s.mu.Unlock()

	var once sync.Once
	finish := func() { once.Do(done) }

	s.submit(func() {
		// Show has run by now, so s.id is the id of e, or 0 if it failed.
		s.mu.Lock()
		id := s.id
		s.id = 0
		if id != 0 {
			s.waiters[id] = finish
		}
		s.mu.Unlock()

		if id == 0 {
			finish()
			return
		}

		time.AfterFunc(wait, func() {
			s.mu.Lock()
			_, pending := s.waiters[id]
			delete(s.waiters, id)
			s.mu.Unlock()
			if pending {
				s.logger.Debug("close not confirmed, continuing", "id", id)
				finish()
			}
		})

		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := s.notifier.CloseNotification(ctx, id); err != nil {
			s.logger.Warn("failed to close notification", "id", id, "error", err)
		}
		if e != nil {
			s.logger.Debug("entry closing", "entry_id", e.ID, "id", id)
		}
	})
}

// Rollback implements scheduler.Surface.
func (s *Surface) Rollback() {
	s.logger.Debug("notification surface idle")
}

// Close stops the worker and releases the bus connection.
func (s *Surface) Close() {
	s.stopOnce.Do(func() {
		s.jobsMu.Lock()
		s.closed = true
		close(s.jobs)
		s.jobsMu.Unlock()
		<-s.done
		if s.cleanup != nil {
			s.cleanup()
		}
	})
}

func (s *Surface) handleClosed(id uint32, reason CloseReason) {
	s.mu.Lock()
	waiter, waiting := s.waiters[id]
	delete(s.waiters, id)
	external := !waiting && id != 0 && id == s.id
	if external {
		s.id = 0
	}
	onClosed := s.onClosed
	s.mu.Unlock()

	switch {
	case waiting:
		waiter()
	case external:
		s.logger.Debug("notification closed by server", "id", id, "reason", reason.String())
		if onClosed != nil {
			onClosed(reason)
		}
	}
}

func (s *Surface) submit(job func()) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	if s.closed {
		s.logger.Debug("notification surface closed, dropping request")
		return
	}
	s.jobs <- job
}

func (s *Surface) run() {
	defer close(s.done)
	for job := range s.jobs {
		job()
	}
}

func (s *Surface) notify(e *model.Entry, replaces uint32) (uint32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	// Expiry is the scheduler's job, so the server must never time it out.
	id, err := s.notifier.Notify(ctx, s.appName, replaces, e.Content.Icon, e.Content.Summary,
		e.Content.Body, HintsFor(e), 0)
	if err != nil {
		return 0, &surface.Error{Surface: "notify", Message: "Notify failed", Cause: err}
	}
	return id, nil
}

// Urgency maps a priority band to the notification urgency level.
func Urgency(p model.Priority) byte {
	switch p.Band() {
	case model.BandLow:
		return 0
	case model.BandMax:
		return 2
	default:
		return 1
	}
}

// HintsFor builds Notify hints for an entry.
func HintsFor(e *model.Entry) map[string]dbus.Variant {
	hints := map[string]dbus.Variant{
		"urgency":   dbus.MakeVariant(Urgency(e.Rank())),
		"transient": dbus.MakeVariant(true),
	}
	if c := e.Content.Hint(model.HintCategory); c != "" {
		hints["category"] = dbus.MakeVariant(c)
	}
	if f := e.Content.Hint(model.HintSoundFile); f != "" {
		hints["sound-file"] = dbus.MakeVariant(f)
	}
	return hints
}

type busNotifier struct {
	obj dbus.BusObject
}

func (n *busNotifier) Notify(ctx context.Context, appName string, replacesID uint32, icon, summary, body string,
	hints map[string]dbus.Variant, expireTimeout int32) (uint32, error) {
	var id uint32
	err := n.obj.CallWithContext(ctx, notificationsInterface+".Notify", 0,
		appName, replacesID, icon, summary, body, []string{}, hints, expireTimeout).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}
	return id, nil
}

func (n *busNotifier) CloseNotification(ctx context.Context, id uint32) error {
	if err := n.obj.CallWithContext(ctx, notificationsInterface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("close notification: %w", err)
	}
	return nil
}
