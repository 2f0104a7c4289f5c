// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/render"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
)

// =============================================================================
// MESSAGES
// =============================================================================

// SnapshotMsg delivers a throttled display snapshot from the presenter.
type SnapshotMsg render.Snapshot

// StoreChangedMsg tells the model to re-read the store.
type StoreChangedMsg struct {
	Event events.Name
}

// StatusMsg shows a transient line in the footer.
type StatusMsg string

// replayDoneMsg reports the end of a replay started from the viewer.
type replayDoneMsg struct{ err error }

// requestDoneMsg reports the outcome of a controller request.
type requestDoneMsg struct {
	op  string
	err error
}

// =============================================================================
// BRIDGE
// =============================================================================

// storeEvents are the store events that change what the viewer shows.
// Buffer events are not listed; streamed text arrives as SnapshotMsg.
var storeEvents = []events.Name{
	store.EventLoaded,
	store.EventAdded,
	store.EventUpdated,
	store.EventStatusChanged,
	store.EventErrorChanged,
	store.EventStreamingIDsChanged,
	store.EventRated,
	store.EventConversationChanged,
}

// Bind forwards store events to send, typically (*tea.Program).Send. It
// returns a function that removes the subscriptions.
//
// send may block until the program reads the message, so Update must never
// call into the store synchronously; requests run as tea.Cmds.
func Bind(bus *events.Bus, send func(tea.Msg)) func() {
	unsubs := make([]func(), 0, len(storeEvents))
	for _, name := range storeEvents {
		unsubs = append(unsubs, bus.Subscribe(name, func(ev events.Event) {
			send(StoreChangedMsg{Event: ev.Name})
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// SnapshotSink adapts send into a presenter sink.
func SnapshotSink(send func(tea.Msg)) func(render.Snapshot) {
	return func(s render.Snapshot) { send(SnapshotMsg(s)) }
}
