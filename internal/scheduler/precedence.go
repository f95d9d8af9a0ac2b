package scheduler

import "github.com/jmylchreest/entrykit/internal/model"

// Outcome is the classification of a submitted entry.
type Outcome int

const (
	// OutcomePreempt replaces whatever is active.
	OutcomePreempt Outcome = iota
	// OutcomeActivate shows the entry now because nothing is active.
	OutcomeActivate
	// OutcomeEnqueue places the entry in the backlog.
	OutcomeEnqueue
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePreempt:
		return "preempt"
	case OutcomeActivate:
		return "activate"
	case OutcomeEnqueue:
		return "enqueue"
	default:
		return "unknown"
	}
}

// Classify maps a precedence and the current presentation state to an outcome.
// It is total: every precedence yields exactly one outcome.
func Classify(p model.Precedence, displaying bool) Outcome {
	if p.IsOverride() {
		return OutcomePreempt
	}
	if displaying {
		return OutcomeEnqueue
	}
	return OutcomeActivate
}
