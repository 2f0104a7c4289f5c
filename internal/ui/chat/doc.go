// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea stream viewer.
//
// The viewer never renders straight from stream buffers. Streamed text
// arrives as render.Snapshot values from the presenter, already throttled,
// and finished responses are read from the store and rendered as markdown.
//
// # Key Types
//
//   - Model: tea.Model showing the active conversation
//   - KeyMap: key bindings (stop, copy, rate, replay, selection)
//   - SnapshotMsg / StoreChangedMsg: messages fed in by the app
//
// # Usage
//
//	m := chat.New(st, ctl, styles.NewTheme(cfg.UI.Theme))
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	unbind := chat.Bind(bus, p.Send)
//	defer unbind()
//	presenter := render.NewPresenter(bus, st, chat.SnapshotSink(p.Send))
package chat
