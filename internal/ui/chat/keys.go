// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the viewer's key bindings.
type KeyMap struct {
	Quit     key.Binding
	Prev     key.Binding
	Next     key.Binding
	Stop     key.Binding
	Copy     key.Binding
	RateUp   key.Binding
	RateDown key.Binding
	Unrate   key.Binding
	Replay   key.Binding
	Top      key.Binding
	Bottom   key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Prev:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev")),
		Next:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next")),
		Stop:     key.NewBinding(key.WithKeys("s", "esc"), key.WithHelp("s", "stop")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		RateUp:   key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "good")),
		RateDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "bad")),
		Unrate:   key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "unrate")),
		Replay:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "replay")),
		Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	}
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Stop, k.Copy, k.RateUp, k.RateDown, k.Replay, k.Quit}
}
