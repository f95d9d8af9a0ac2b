package term

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the demo host.
type KeyMap struct {
	// Submit
	Enqueue       key.Binding
	EnqueueHigh   key.Binding
	Override      key.Binding
	OverrideDrop  key.Binding
	Unprioritized key.Binding

	// Dismiss
	DismissDisplayed key.Binding
	DismissLow       key.Binding
	DismissEnqueued  key.Binding
	DismissAll       key.Binding

	// Other
	Transform key.Binding
	Heuristic key.Binding

	// Global
	Quit key.Binding
	Help key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enqueue, k.Override, k.DismissDisplayed, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enqueue, k.EnqueueHigh, k.Unprioritized, k.Override, k.OverrideDrop},
		{k.DismissDisplayed, k.DismissLow, k.DismissEnqueued, k.DismissAll},
		{k.Transform, k.Heuristic, k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Enqueue: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "enqueue normal"),
		),
		EnqueueHigh: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "enqueue high"),
		),
		Unprioritized: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "enqueue unprioritized"),
		),
		Override: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "override high"),
		),
		OverrideDrop: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "override max, drop queue"),
		),
		DismissDisplayed: key.NewBinding(
			key.WithKeys("d", "enter"),
			key.WithHelp("d", "dismiss displayed"),
		),
		DismissLow: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "dismiss normal and below"),
		),
		DismissEnqueued: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear queue"),
		),
		DismissAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "dismiss all"),
		),
		Transform: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "update displayed"),
		),
		Heuristic: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "switch heuristic"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}
