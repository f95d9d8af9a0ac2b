package model

import (
	"fmt"
	"strings"
)

// DescriptorKind enumerates the dismissal descriptor variants.
type DescriptorKind int

const (
	// DismissDisplayed exits the displayed entry only.
	DismissDisplayed DescriptorKind = iota
	// DismissSpecific removes queued entries with a name and exits the displayed one if it matches.
	DismissSpecific
	// DismissPrioritized evicts entries ranked at or below a threshold, displayed one included.
	DismissPrioritized
	// DismissEnqueued clears the backlog and leaves the displayed entry alone.
	DismissEnqueued
	// DismissAll clears the backlog and exits the displayed entry.
	DismissAll
)

var descriptorNames = map[DescriptorKind]string{
	DismissDisplayed:   "displayed",
	DismissSpecific:    "specific",
	DismissPrioritized: "prioritized",
	DismissEnqueued:    "enqueued",
	DismissAll:         "all",
}

// String returns the string representation of DescriptorKind.
func (k DescriptorKind) String() string {
	if s, ok := descriptorNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseDescriptorKind parses the wire/CLI spelling of a descriptor kind.
func ParseDescriptorKind(s string) (DescriptorKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range descriptorNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid dismissal descriptor %q", s)
}

// Descriptor describes which entries a dismissal targets.
// Name is meaningful for DismissSpecific, Threshold for DismissPrioritized.
type Descriptor struct {
	Kind      DescriptorKind
	Name      string
	Threshold Priority
}

// Displayed targets the displayed entry.
func Displayed() Descriptor { return Descriptor{Kind: DismissDisplayed} }

// Specific targets every entry with the given name.
func Specific(name string) Descriptor { return Descriptor{Kind: DismissSpecific, Name: name} }

// PrioritizedAtOrBelow targets entries ranked at or below the threshold.
func PrioritizedAtOrBelow(threshold Priority) Descriptor {
	return Descriptor{Kind: DismissPrioritized, Threshold: threshold}
}

// Enqueued targets the backlog only.
func Enqueued() Descriptor { return Descriptor{Kind: DismissEnqueued} }

// All targets the backlog and the displayed entry.
func All() Descriptor { return Descriptor{Kind: DismissAll} }

// String renders the descriptor for logs.
func (d Descriptor) String() string {
	switch d.Kind {
	case DismissSpecific:
		return "specific(" + d.Name + ")"
	case DismissPrioritized:
		return "prioritized(" + d.Threshold.String() + ")"
	default:
		return d.Kind.String()
	}
}
