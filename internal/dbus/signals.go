package dbus

import (
	"github.com/jmylchreest/entrykit/internal/scheduler"
)

// Signal members.
const (
	SignalEntryActivated = "EntryActivated"
	SignalEntryDismissed = "EntryDismissed"
)

type signal struct {
	member string
	args   []any
}

// DismissReason is the reason argument of EntryDismissed for an event.
// Entries that leave the display carry the scheduler's reason; entries that
// never made it carry the event kind, such as "evicted" or "dropped".
func DismissReason(ev scheduler.Event) string {
	if ev.Kind == scheduler.EventDismissed {
		return string(ev.Reason)
	}
	return ev.Kind.String()
}

func signalFor(ev scheduler.Event) (signal, bool) {
	if ev.Entry == nil {
		return signal{}, false
	}
	switch ev.Kind {
	case scheduler.EventActivated:
		return signal{member: SignalEntryActivated, args: []any{ev.Entry.ID, ev.Entry.Name}}, true
	case scheduler.EventDismissed, scheduler.EventEvicted, scheduler.EventDropped, scheduler.EventSuperseded:
		return signal{member: SignalEntryDismissed, args: []any{ev.Entry.ID, ev.Entry.Name, DismissReason(ev)}}, true
	default:
		return signal{}, false
	}
}

// OnEvent implements scheduler.Observer. Signals are emitted off the loop.
func (s *Server) OnEvent(ev scheduler.Event) {
	sig, ok := signalFor(ev)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	select {
	case s.signals <- sig:
	default:
		s.logger.Warn("signal buffer full, dropping signal", "member", sig.member)
	}
}

func (s *Server) pump(signals <-chan signal, done chan<- struct{}) {
	defer close(done)
	for sig := range signals {
		if err := s.emit(sig.member, sig.args...); err != nil {
			s.logger.Warn("failed to emit signal", "member", sig.member, "error", err)
			continue
		}
		s.logger.Debug("emitted signal", "member", sig.member, "id", sig.args[0])
	}
}
