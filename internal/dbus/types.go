package dbus

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/entrykit/internal/model"
)

const (
	// Interface is the entrykit D-Bus interface name.
	Interface = "io.github.jmylchreest.EntryKit"
	// Path is the entrykit object path.
	Path = "/io/github/jmylchreest/EntryKit"
	// BusName is the bus name claimed by the daemon.
	BusName = "io.github.jmylchreest.EntryKit"
)

// Display hint keys.
const (
	HintPrecedence   = "precedence"
	HintPriority     = "priority"
	HintDropEnqueued = "drop-enqueued"
	HintDuration     = "duration"
)

// WirePriorityUnset is sent in place of a priority for unprioritized entries.
const WirePriorityUnset int32 = math.MinInt32

// Hint decoding errors.
var (
	ErrBadHint       = errors.New("invalid display hint")
	ErrBadDescriptor = errors.New("invalid dismissal descriptor")
)

// DurationFunc returns the default display duration for a priority.
type DurationFunc func(model.Priority) time.Duration

// DisplayRequest is the decoded form of a Display call.
type DisplayRequest struct {
	Name    string
	Summary string
	Body    string
	Icon    string
	Hints   map[string]dbus.Variant
}

func (r DisplayRequest) stringHint(key string) (string, bool, error) {
	v, ok := r.Hints[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", false, fmt.Errorf("%w: %s must be a string", ErrBadHint, key)
	}
	return s, true, nil
}

func (r DisplayRequest) intHint(key string) (int, bool, error) {
	v, ok := r.Hints[key]
	if !ok {
		return 0, false, nil
	}
	switch val := v.Value().(type) {
	case int32:
		return int(val), true, nil
	case int64:
		return int(val), true, nil
	case uint32:
		return int(val), true, nil
	case int16:
		return int(val), true, nil
	case byte:
		return int(val), true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s must be an integer", ErrBadHint, key)
	}
}

func (r DisplayRequest) boolHint(key string) (bool, error) {
	v, ok := r.Hints[key]
	if !ok {
		return false, nil
	}
	b, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrBadHint, key)
	}
	return b, nil
}

// Precedence decodes the precedence, priority and drop-enqueued hints.
// Overrides without a priority run at normal priority.
func (r DisplayRequest) Precedence() (model.Precedence, error) {
	kind, _, err := r.stringHint(HintPrecedence)
	if err != nil {
		return model.Precedence{}, err
	}
	prio, hasPrio, err := r.intHint(HintPriority)
	if err != nil {
		return model.Precedence{}, err
	}
	if hasPrio && int32(prio) == WirePriorityUnset {
		hasPrio = false
	}
	drop, err := r.boolHint(HintDropEnqueued)
	if err != nil {
		return model.Precedence{}, err
	}

	switch strings.ToLower(kind) {
	case "override":
		p := model.PriorityNormal
		if hasPrio {
			p = model.Priority(prio)
		}
		return model.Override(p, drop), nil
	case "", "enqueue":
		if !hasPrio {
			return model.EnqueueUnprioritized(), nil
		}
		return model.Enqueue(model.Priority(prio)), nil
	default:
		return model.Precedence{}, fmt.Errorf("%w: unknown precedence %q", ErrBadHint, kind)
	}
}

// Entry builds a schedulable entry. A missing or negative duration hint
// uses durations for the entry's band; zero keeps the entry until dismissed.
// Hints that are not scheduling hints are carried as string content hints.
func (r DisplayRequest) Entry(durations DurationFunc) (*model.Entry, error) {
	prec, err := r.Precedence()
	if err != nil {
		return nil, err
	}

	ms, hasDuration, err := r.intHint(HintDuration)
	if err != nil {
		return nil, err
	}
	var ttl time.Duration
	switch {
	case hasDuration && ms >= 0:
		ttl = time.Duration(ms) * time.Millisecond
	case durations != nil:
		ttl = durations(prec.Rank())
	}

	content := model.Content{
		Summary: r.Summary,
		Body:    r.Body,
		Icon:    r.Icon,
		Hints:   contentHints(r.Hints),
	}

	e, err := model.NewEntry(r.Name, model.Attributes{Precedence: prec, DisplayDuration: ttl}, content)
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func contentHints(hints map[string]dbus.Variant) map[string]string {
	var out map[string]string
	for k, v := range hints {
		switch k {
		case HintPrecedence, HintPriority, HintDropEnqueued, HintDuration:
			continue
		}
		s, ok := v.Value().(string)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = s
	}
	return out
}

// HintsFor encodes scheduling attributes as Display hints.
// A negative duration asks the daemon for its band default.
func HintsFor(p model.Precedence, duration time.Duration, extra map[string]string) map[string]dbus.Variant {
	hints := make(map[string]dbus.Variant, len(extra)+4)
	for k, v := range extra {
		hints[k] = dbus.MakeVariant(v)
	}
	if p.IsOverride() {
		hints[HintPrecedence] = dbus.MakeVariant("override")
		hints[HintDropEnqueued] = dbus.MakeVariant(p.DropEnqueued)
	} else {
		hints[HintPrecedence] = dbus.MakeVariant("enqueue")
	}
	if p.HasPriority {
		hints[HintPriority] = dbus.MakeVariant(WirePriority(p.Priority))
	}
	ms := int32(-1)
	if duration >= 0 {
		ms = int32(duration.Milliseconds())
	}
	hints[HintDuration] = dbus.MakeVariant(ms)
	return hints
}

// WirePriority clamps a priority to the int32 wire type.
func WirePriority(p model.Priority) int32 {
	switch {
	case p == model.PriorityUnset:
		return WirePriorityUnset
	case p > math.MaxInt32:
		return math.MaxInt32
	case p <= math.MinInt32:
		return WirePriorityUnset + 1
	default:
		return int32(p)
	}
}

// PriorityFromWire is the inverse of WirePriority.
func PriorityFromWire(p int32) model.Priority {
	if p == WirePriorityUnset {
		return model.PriorityUnset
	}
	return model.Priority(p)
}

// DescriptorFromWire decodes the arguments of a Dismiss call.
func DescriptorFromWire(kind, name string, priority int32) (model.Descriptor, error) {
	k, err := model.ParseDescriptorKind(kind)
	if err != nil {
		return model.Descriptor{}, fmt.Errorf("%w: %v", ErrBadDescriptor, err)
	}
	switch k {
	case model.DismissDisplayed:
		return model.Displayed(), nil
	case model.DismissSpecific:
		if name == "" {
			return model.Descriptor{}, fmt.Errorf("%w: specific needs a name", ErrBadDescriptor)
		}
		return model.Specific(name), nil
	case model.DismissPrioritized:
		return model.PrioritizedAtOrBelow(PriorityFromWire(priority)), nil
	case model.DismissEnqueued:
		return model.Enqueued(), nil
	default:
		return model.All(), nil
	}
}

// QueuedEntry is one backlog row of a Status reply, marshalled as (ssi).
type QueuedEntry struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Priority int32  `json:"priority" yaml:"priority"`
}

// Status is the decoded reply of the Status method.
type Status struct {
	Displaying  bool          `json:"displaying" yaml:"displaying"`
	ID          string        `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string        `json:"name,omitempty" yaml:"name,omitempty"`
	Priority    int32         `json:"priority" yaml:"priority"`
	ActivatedAt time.Time     `json:"activated_at,omitzero" yaml:"activated_at,omitempty"`
	Queued      []QueuedEntry `json:"queued" yaml:"queued"`
}
