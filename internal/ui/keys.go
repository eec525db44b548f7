package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global key bindings. View specific keys are handled
// by the views themselves.
type KeyMap struct {
	Escape  key.Binding
	Quit    key.Binding
	Help    key.Binding
	Dismiss key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("Ctrl+x", "dismiss notification"),
		),
	}
}
