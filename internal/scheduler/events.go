package scheduler

import (
	"time"

	"github.com/jmylchreest/entrykit/internal/model"
)

// EventKind identifies a lifecycle transition of an entry.
type EventKind int

const (
	EventQueued EventKind = iota
	EventActivated
	EventDismissed
	EventEvicted
	EventDropped
	EventSuperseded
	EventRolledBack
)

var eventKindNames = map[EventKind]string{
	EventQueued:     "queued",
	EventActivated:  "activated",
	EventDismissed:  "dismissed",
	EventEvicted:    "evicted",
	EventDropped:    "dropped",
	EventSuperseded: "superseded",
	EventRolledBack: "rolled-back",
}

// String returns the event name as written to the journal.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseEventKind parses an event name.
func ParseEventKind(s string) (EventKind, bool) {
	for k, name := range eventKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Reason qualifies dismissed, evicted and dropped events.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonDismissed  Reason = "dismissed"
	ReasonPreempted  Reason = "preempted"
	ReasonExpired    Reason = "expired"
	ReasonRejected   Reason = "rejected"
	ReasonOverridden Reason = "overridden"
)

// Event describes a single transition. Entry is the entry the event is
// about; for rolled-back it is the last entry that was active.
type Event struct {
	Kind   EventKind
	Entry  *model.Entry
	Reason Reason
	At     time.Time
}

// Observer receives scheduler events on the dispatcher's execution context.
// Observers must not block.
type Observer interface {
	OnEvent(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

// OnEvent calls f(ev).
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }
