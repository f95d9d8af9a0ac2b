package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	e, err := NewEntry("banner", Attributes{Precedence: Enqueue(PriorityHigh)}, Content{Summary: "hello"})
	require.NoError(t, err)

	assert.Len(t, e.ID, 26)
	assert.Equal(t, "banner", e.Name)
	assert.Equal(t, PriorityHigh, e.Rank())
	assert.False(t, e.CreatedAt.IsZero())
}

func TestNewEntry_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		e, err := NewEntry("", Attributes{}, Content{Summary: "x"})
		require.NoError(t, err)
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
	}
}

func TestEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Entry)
		wantErr error
	}{
		{
			name:   "valid entry",
			modify: func(e *Entry) {},
		},
		{
			name:    "empty id",
			modify:  func(e *Entry) { e.ID = "" },
			wantErr: ErrEmptyID,
		},
		{
			name:    "empty summary",
			modify:  func(e *Entry) { e.Content.Summary = "" },
			wantErr: ErrEmptySummary,
		},
		{
			name:    "negative duration",
			modify:  func(e *Entry) { e.Attributes.DisplayDuration = -time.Second },
			wantErr: ErrNegativeTTL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEntry("a", Attributes{}, Content{Summary: "s"})
			require.NoError(t, err)
			tt.modify(e)
			err = e.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEntry_HasName(t *testing.T) {
	e := &Entry{Name: "toast"}
	assert.True(t, e.HasName("toast"))
	assert.False(t, e.HasName("other"))
	assert.False(t, e.HasName(""))

	unnamed := &Entry{}
	assert.False(t, unnamed.HasName(""))
}

func TestEntry_WithContent(t *testing.T) {
	e, err := NewEntry("a", Attributes{Precedence: Override(PriorityMax, false)}, Content{Summary: "before"})
	require.NoError(t, err)

	next := e.WithContent(Content{Summary: "after"})
	assert.Equal(t, e.ID, next.ID)
	assert.Equal(t, e.Attributes, next.Attributes)
	assert.Equal(t, "after", next.Content.Summary)
	assert.Equal(t, "before", e.Content.Summary)
}

func TestContent_Hint(t *testing.T) {
	assert.Equal(t, "", Content{}.Hint("sound-file"))
	c := Content{Hints: map[string]string{"sound-file": "/tmp/a.wav"}}
	assert.Equal(t, "/tmp/a.wav", c.Hint("sound-file"))
}
