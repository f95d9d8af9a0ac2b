package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Priority orders entries. Higher outranks lower.
type Priority int

// Named priority levels.
const (
	PriorityMin    Priority = 0
	PriorityNormal Priority = 500
	PriorityHigh   Priority = 750
	PriorityMax    Priority = 1000
)

// PriorityUnset ranks below every concrete priority.
const PriorityUnset Priority = math.MinInt

// PriorityNames maps named levels to their flag/config spelling.
var PriorityNames = map[string]Priority{
	"min":    PriorityMin,
	"low":    PriorityMin,
	"normal": PriorityNormal,
	"high":   PriorityHigh,
	"max":    PriorityMax,
}

// ParsePriority accepts a named level or an integer.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if p, ok := PriorityNames[s]; ok {
		return p, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid priority %q: must be min, normal, high, max or an integer", s)
	}
	return Priority(n), nil
}

// String returns the level name for named priorities and the number otherwise.
func (p Priority) String() string {
	switch p {
	case PriorityUnset:
		return "unset"
	case PriorityMin:
		return "min"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityMax:
		return "max"
	default:
		return strconv.Itoa(int(p))
	}
}

// Band groups priorities for per-level settings such as sounds and durations.
type Band string

const (
	BandLow    Band = "low"
	BandNormal Band = "normal"
	BandHigh   Band = "high"
	BandMax    Band = "max"
)

// Band returns the band this priority falls in.
func (p Priority) Band() Band {
	switch {
	case p >= PriorityMax:
		return BandMax
	case p >= PriorityHigh:
		return BandHigh
	case p >= PriorityNormal:
		return BandNormal
	default:
		return BandLow
	}
}

// PrecedenceKind distinguishes the two precedence variants.
type PrecedenceKind int

const (
	// KindEnqueue requests queued placement, activating at once if nothing is displayed.
	KindEnqueue PrecedenceKind = iota
	// KindOverride requests immediate activation, preempting the displayed entry.
	KindOverride
)

// String returns the string representation of PrecedenceKind.
func (k PrecedenceKind) String() string {
	switch k {
	case KindEnqueue:
		return "enqueue"
	case KindOverride:
		return "override"
	default:
		return "unknown"
	}
}

// Precedence is the scheduling class of an entry.
// Construct it with Override, Enqueue or EnqueueUnprioritized.
type Precedence struct {
	Kind        PrecedenceKind `json:"kind"`
	Priority    Priority       `json:"priority"`
	HasPriority bool           `json:"has_priority"`

	// DropEnqueued clears the whole backlog when an override is submitted.
	DropEnqueued bool `json:"drop_enqueued,omitempty"`
}

// Override builds an override precedence.
func Override(priority Priority, dropEnqueued bool) Precedence {
	return Precedence{
		Kind:         KindOverride,
		Priority:     priority,
		HasPriority:  true,
		DropEnqueued: dropEnqueued,
	}
}

// Enqueue builds an enqueue precedence with a concrete priority.
func Enqueue(priority Priority) Precedence {
	return Precedence{
		Kind:        KindEnqueue,
		Priority:    priority,
		HasPriority: true,
	}
}

// EnqueueUnprioritized builds an enqueue precedence without a priority.
// It ranks below every prioritized entry.
func EnqueueUnprioritized() Precedence {
	return Precedence{Kind: KindEnqueue}
}

// IsEnqueue reports whether the precedence permits queueing.
func (p Precedence) IsEnqueue() bool {
	return p.Kind == KindEnqueue
}

// IsOverride reports whether the precedence preempts.
func (p Precedence) IsOverride() bool {
	return p.Kind == KindOverride
}

// Rank returns the effective ordering priority.
func (p Precedence) Rank() Priority {
	if !p.HasPriority {
		return PriorityUnset
	}
	return p.Priority
}

// String renders the precedence for logs.
func (p Precedence) String() string {
	switch p.Kind {
	case KindOverride:
		if p.DropEnqueued {
			return fmt.Sprintf("override(%s, drop)", p.Priority)
		}
		return fmt.Sprintf("override(%s)", p.Priority)
	default:
		if !p.HasPriority {
			return "enqueue"
		}
		return fmt.Sprintf("enqueue(%s)", p.Priority)
	}
}
