package console

import (
	"github.com/charmbracelet/bubbles/key"
)

// globalKeyMap holds the bindings that work in every mode.
type globalKeyMap struct {
	Interrupt    key.Binding
	Quit         key.Binding
	ClearOutput  key.Binding
	ToggleFollow key.Binding
	ScrollUp     key.Binding
	ScrollDown   key.Binding
}

var globalKeys = globalKeyMap{
	Interrupt: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "clear input"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	ClearOutput: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear output"),
	),
	ToggleFollow: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "toggle follow"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "scroll down"),
	),
}

// exitKeys leave the active full-screen mode.
var exitKeys = key.NewBinding(
	key.WithKeys("q", "esc"),
	key.WithHelp("q/esc", "back"),
)
