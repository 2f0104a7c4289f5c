// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
)

// Events published by the Store.
const (
	EventLoaded                  events.Name = "interaction.loaded"
	EventAdded                   events.Name = "interaction.added"
	EventUpdated                 events.Name = "interaction.updated"
	EventStatusChanged           events.Name = "interaction.status.changed"
	EventErrorChanged            events.Name = "interaction.error.changed"
	EventStreamingIDsChanged     events.Name = "interaction.streaming_ids.changed"
	EventStreamBuffersChanged    events.Name = "interaction.stream_buffers.changed"
	EventReasoningBuffersChanged events.Name = "interaction.reasoning_buffers.changed"
	EventRated                   events.Name = "interaction.rated"
	EventConversationChanged     events.Name = "interaction.conversation.changed"
)

// LoadedPayload carries the full list after a load or a clear.
type LoadedPayload struct {
	ConversationID string
	Interactions   []*interaction.Interaction
}

// AddedPayload carries a newly added interaction.
type AddedPayload struct {
	Interaction *interaction.Interaction
}

// UpdatedPayload carries the update that was applied.
type UpdatedPayload struct {
	InteractionID string
	Update        interaction.Update
}

// StatusPayload carries a status change.
type StatusPayload struct {
	Status   Status
	Previous Status
}

// ErrorPayload carries the recorded error; "" means cleared.
type ErrorPayload struct {
	Error string
}

// StreamingIDsPayload carries the streaming set after a change.
type StreamingIDsPayload struct {
	IDs     []string
	Added   []string
	Removed []string
}

// BufferPayload carries a buffer's full content after a change.
type BufferPayload struct {
	InteractionID string
	Content       string

	// Replaced is set when the content does not extend the previous content
	Replaced bool

	// Removed is set when the buffer was discarded
	Removed bool
}

// RatedPayload carries a rating change, including rollbacks.
type RatedPayload struct {
	InteractionID string
	Rating        *int
	Previous      *int
}

// ConversationPayload carries an active conversation change.
type ConversationPayload struct {
	ConversationID string
	Previous       string
}
