// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package interaction

import (
	"maps"
	"sort"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the lifecycle state of an interaction.
type Status string

const (
	// StatusStreaming means output is still arriving.
	StatusStreaming Status = "STREAMING"

	// StatusCompleted means the response was committed successfully.
	StatusCompleted Status = "COMPLETED"

	// StatusError means the exchange failed or was stopped.
	StatusError Status = "ERROR"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further status change is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransition reports whether an interaction may move from one status to
// another. STREAMING may move to either terminal state; terminal states are
// final. Re-asserting the current status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return from == StatusStreaming && to.IsTerminal()
}

// =============================================================================
// TYPE
// =============================================================================

// Type tags what kind of exchange an interaction is.
type Type string

const (
	// TypeMessage is an ordinary user/assistant exchange.
	TypeMessage Type = "message.user_assistant"

	// TypeTitleGeneration is an auxiliary call that names a conversation.
	TypeTitleGeneration Type = "conversation.title_generation"

	// TypeCompact is an auxiliary call that summarizes a conversation.
	TypeCompact Type = "conversation.compact"

	// TypeRulesSelection is an auxiliary call that picks prompt rules.
	TypeRulesSelection Type = "rules.auto_selection"
)

// IsAuxiliary reports whether the type is a background call rather than a
// user-visible exchange.
func (t Type) IsAuxiliary() bool {
	return t != TypeMessage
}

// =============================================================================
// PROMPT
// =============================================================================

// Prompt is the request payload that produced an interaction.
type Prompt struct {
	Content      string         `json:"content"`
	SystemPrompt string         `json:"systemPrompt,omitempty"`
	Attachments  []string       `json:"attachments,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
}

// Clone returns a copy that shares no slices or maps with p.
func (p *Prompt) Clone() *Prompt {
	if p == nil {
		return nil
	}
	out := *p
	if p.Attachments != nil {
		out.Attachments = append([]string(nil), p.Attachments...)
	}
	out.Parameters = maps.Clone(p.Parameters)
	return &out
}

// =============================================================================
// INTERACTION
// =============================================================================

// Interaction is one request/response exchange within a conversation.
type Interaction struct {
	// ID is unique and never changes
	ID string `json:"id"`

	// ConversationID is the owning conversation
	ConversationID string `json:"conversationId"`

	// Index orders interactions within a conversation and is never reused
	Index int `json:"index"`

	// ParentID optionally links to the interaction this one follows or regenerates
	ParentID string `json:"parentId,omitempty"`

	Type   Type   `json:"type"`
	Status Status `json:"status"`

	// Prompt is immutable once set
	Prompt *Prompt `json:"prompt,omitempty"`

	// Response stays nil until the interaction is finalized
	Response *string `json:"response"`

	Metadata Metadata `json:"metadata"`

	// Rating is in [-5, 5] when set
	Rating *int `json:"rating"`

	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// New creates a streaming interaction with a fresh ID.
func New(conversationID string, index int, typ Type, prompt *Prompt) *Interaction {
	return &Interaction{
		ID:             NewID(),
		ConversationID: conversationID,
		Index:          index,
		Type:           typ,
		Status:         StatusStreaming,
		Prompt:         prompt,
		StartedAt:      time.Now(),
	}
}

// NewID returns a new random interaction ID.
func NewID() string {
	return uuid.New().String()
}

// IsStreaming reports whether output is still arriving.
func (it *Interaction) IsStreaming() bool {
	return it.Status == StatusStreaming
}

// ResponseText returns the committed response or "" when there is none.
func (it *Interaction) ResponseText() string {
	if it.Response == nil {
		return ""
	}
	return *it.Response
}

// Clone returns a deep copy. Extra and Parameters values are copied shallowly.
func (it *Interaction) Clone() *Interaction {
	if it == nil {
		return nil
	}
	out := *it
	out.Prompt = it.Prompt.Clone()
	out.Response = clonePtr(it.Response)
	out.Rating = clonePtr(it.Rating)
	out.EndedAt = clonePtr(it.EndedAt)
	out.Metadata = it.Metadata.Clone()
	return &out
}

// CloneAll deep-copies a slice of interactions.
func CloneAll(items []*Interaction) []*Interaction {
	if items == nil {
		return nil
	}
	out := make([]*Interaction, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// SortByIndex orders interactions by ascending Index. Ties keep start order.
func SortByIndex(items []*Interaction) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Index != items[j].Index {
			return items[i].Index < items[j].Index
		}
		return items[i].StartedAt.Before(items[j].StartedAt)
	})
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
