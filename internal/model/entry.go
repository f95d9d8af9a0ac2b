// Package model defines the core data structures for entrykit.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is a single presentable unit of overlay content.
// Entries are immutable once constructed; use WithContent to derive a copy.
type Entry struct {
	// ID uniquely identifies this entry for IPC and the journal.
	ID string `json:"id"`

	// Name is optional and is used for targeted lookup and dismissal.
	// Several entries may share a name.
	Name string `json:"name,omitempty"`

	Attributes Attributes `json:"attributes"`
	Content    Content    `json:"content"`

	CreatedAt time.Time `json:"created_at"`
}

// Attributes carries the scheduling metadata of an entry.
type Attributes struct {
	Precedence Precedence `json:"precedence"`

	// DisplayDuration dismisses the entry automatically once it has been
	// active this long. Zero keeps it until dismissed.
	DisplayDuration time.Duration `json:"display_duration,omitempty"`
}

// Content is the payload handed to the presentation surface.
// The scheduler never inspects it.
type Content struct {
	Summary string            `json:"summary"`
	Body    string            `json:"body,omitempty"`
	Icon    string            `json:"icon,omitempty"`
	Hints   map[string]string `json:"hints,omitempty"`
}

// Well-known content hints.
const (
	HintSoundFile = "sound-file"
	HintCategory  = "category"
)

// Hint returns a content hint or an empty string.
func (c Content) Hint(key string) string {
	if c.Hints == nil {
		return ""
	}
	return c.Hints[key]
}

// Validation errors.
var (
	ErrEmptyID      = errors.New("entry id cannot be empty")
	ErrEmptySummary = errors.New("entry summary cannot be empty")
	ErrNegativeTTL  = errors.New("display duration cannot be negative")
)

// NewEntry creates an entry with a generated ULID.
func NewEntry(name string, attrs Attributes, content Content) (*Entry, error) {
	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}

	return &Entry{
		ID:         id.String(),
		Name:       name,
		Attributes: attrs,
		Content:    content,
		CreatedAt:  now,
	}, nil
}

// Validate checks that the entry can be scheduled.
func (e *Entry) Validate() error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if e.Content.Summary == "" {
		return ErrEmptySummary
	}
	if e.Attributes.DisplayDuration < 0 {
		return ErrNegativeTTL
	}
	return nil
}

// HasName reports whether the entry carries the given non-empty name.
func (e *Entry) HasName(name string) bool {
	return name != "" && e.Name == name
}

// Rank is shorthand for the effective ordering priority of the entry.
func (e *Entry) Rank() Priority {
	return e.Attributes.Precedence.Rank()
}

// WithContent returns a copy of the entry carrying new content.
// Identity and attributes are preserved.
func (e *Entry) WithContent(c Content) *Entry {
	cp := *e
	cp.Content = c
	return &cp
}
