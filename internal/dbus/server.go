package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/entrykit/internal/scheduler"
)

// signalBuffer bounds lifecycle signals waiting to be emitted.
const signalBuffer = 128

// Server exports a scheduler.Kit on the session bus.
type Server struct {
	conn      *dbus.Conn
	logger    *slog.Logger
	kit       *scheduler.Kit
	durations DurationFunc

	mu      sync.Mutex
	running bool
	emit    func(member string, args ...any) error
	signals chan signal
	done    chan struct{}
}

// NewServer creates a server for kit. durations supplies the band default
// used when a caller does not give a display duration.
func NewServer(kit *scheduler.Kit, durations DurationFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:    logger,
		kit:       kit,
		durations: durations,
	}
}

// SetDurations replaces the band default durations. It is called on hot reload.
func (s *Server) SetDurations(d DurationFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations = d
}

// Start connects to the session bus, exports the interface and claims BusName.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: entrykitMethods(),
				Signals: entrykitSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BusName)
	}

	s.startSignals(func(member string, args ...any) error {
		return conn.Emit(Path, Interface+"."+member, args...)
	})

	s.logger.Info("D-Bus entrykit server started", "interface", Interface, "path", Path)
	return nil
}

func (s *Server) startSignals(emit func(member string, args ...any) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit = emit
	s.signals = make(chan signal, signalBuffer)
	s.done = make(chan struct{})
	s.running = true
	go s.pump(s.signals, s.done)
}

// Stop releases the bus name and waits for pending signals to be sent.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.signals)
	done := s.done
	s.mu.Unlock()
	<-done

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// The session bus connection is shared; it is not closed here.
	}

	s.logger.Info("D-Bus entrykit server stopped")
	return nil
}

// Display schedules a new entry.
// D-Bus method: Display(ssssa{sv}) -> s
func (s *Server) Display(name, summary, body, icon string, hints map[string]dbus.Variant) (string, *dbus.Error) {
	s.mu.Lock()
	durations := s.durations
	s.mu.Unlock()

	req := DisplayRequest{Name: name, Summary: summary, Body: body, Icon: icon, Hints: hints}
	e, err := req.Entry(durations)
	if err != nil {
		s.logger.Debug("Display rejected", "name", name, "error", err)
		return "", dbus.MakeFailedError(err)
	}

	s.logger.Debug("Display called",
		"entry_id", e.ID,
		"name", e.Name,
		"precedence", e.Attributes.Precedence.String(),
	)
	s.kit.Display(e)
	return e.ID, nil
}

// Dismiss removes entries matching a descriptor.
// D-Bus method: Dismiss(ssi)
func (s *Server) Dismiss(kind, name string, priority int32) *dbus.Error {
	d, err := DescriptorFromWire(kind, name, priority)
	if err != nil {
		return dbus.MakeFailedError(err)
	}
	s.logger.Debug("Dismiss called", "descriptor", d.String())
	s.kit.Dismiss(d, nil)
	return nil
}

// IsDisplaying reports whether an entry with name is active.
// D-Bus method: IsDisplaying(s) -> b
func (s *Server) IsDisplaying(name string) (bool, *dbus.Error) {
	return s.kit.IsCurrentlyDisplaying(name), nil
}

// QueueContains reports whether an entry with name is queued.
// D-Bus method: QueueContains(s) -> b
func (s *Server) QueueContains(name string) (bool, *dbus.Error) {
	return s.kit.QueueContains(name), nil
}

// Status returns the active entry and the backlog.
// D-Bus method: Status() -> (bssixa(ssi))
func (s *Server) Status() (bool, string, string, int32, int64, []QueuedEntry, *dbus.Error) {
	st := StatusOf(s.kit.Snapshot())
	var activatedAt int64
	if st.Displaying {
		activatedAt = st.ActivatedAt.UnixMilli()
	}
	return st.Displaying, st.ID, st.Name, st.Priority, activatedAt, st.Queued, nil
}

// StatusOf converts a scheduler snapshot to its wire form.
func StatusOf(snap *scheduler.Snapshot) Status {
	st := Status{Priority: WirePriorityUnset, Queued: []QueuedEntry{}}
	if snap == nil {
		return st
	}
	if snap.Active != nil {
		st.Displaying = true
		st.ID = snap.Active.ID
		st.Name = snap.Active.Name
		st.Priority = WirePriority(snap.Active.Rank())
		st.ActivatedAt = snap.ActivatedAt
	}
	for _, e := range snap.Queued {
		st.Queued = append(st.Queued, QueuedEntry{
			ID:       e.ID,
			Name:     e.Name,
			Priority: WirePriority(e.Rank()),
		})
	}
	return st
}

// entrykitMethods returns the D-Bus method introspection data.
func entrykitMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Display",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "in"},
				{Name: "summary", Type: "s", Direction: "in"},
				{Name: "body", Type: "s", Direction: "in"},
				{Name: "icon", Type: "s", Direction: "in"},
				{Name: "hints", Type: "a{sv}", Direction: "in"},
				{Name: "id", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Dismiss",
			Args: []introspect.Arg{
				{Name: "kind", Type: "s", Direction: "in"},
				{Name: "name", Type: "s", Direction: "in"},
				{Name: "priority", Type: "i", Direction: "in"},
			},
		},
		{
			Name: "IsDisplaying",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "in"},
				{Name: "displaying", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "QueueContains",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "in"},
				{Name: "queued", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "displaying", Type: "b", Direction: "out"},
				{Name: "id", Type: "s", Direction: "out"},
				{Name: "name", Type: "s", Direction: "out"},
				{Name: "priority", Type: "i", Direction: "out"},
				{Name: "activated_at", Type: "x", Direction: "out"},
				{Name: "queued", Type: "a(ssi)", Direction: "out"},
			},
		},
	}
}

// entrykitSignals returns the D-Bus signal introspection data.
func entrykitSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "EntryActivated",
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
				{Name: "name", Type: "s"},
			},
		},
		{
			Name: "EntryDismissed",
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
				{Name: "name", Type: "s"},
				{Name: "reason", Type: "s"},
			},
		},
	}
}
