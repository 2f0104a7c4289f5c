// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package interaction

import "time"

// Update is a partial change to an interaction. Nil fields are left alone.
type Update struct {
	ParentID *string `json:"parentId,omitempty"`
	Status   *Status `json:"status,omitempty"`

	// Response replaces the committed response verbatim.
	Response *string `json:"response,omitempty"`

	// Rating replaces the rating verbatim. ClearRating removes it.
	Rating      *int `json:"rating,omitempty"`
	ClearRating bool `json:"clearRating,omitempty"`

	// Metadata is merged field by field.
	Metadata *Metadata `json:"metadata,omitempty"`

	EndedAt *time.Time `json:"endedAt,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.ParentID == nil && u.Status == nil && u.Response == nil &&
		u.Rating == nil && !u.ClearRating && u.Metadata == nil && u.EndedAt == nil
}

// IsTerminal reports whether the update sets a terminal status.
func (u Update) IsTerminal() bool {
	return u.Status != nil && u.Status.IsTerminal()
}

// Apply merges u into it. A status change that CanTransition rejects is
// skipped while the other fields still apply; the return value reports
// whether the status change (if any) was accepted.
func (it *Interaction) Apply(u Update) bool {
	accepted := true
	if u.Status != nil {
		if CanTransition(it.Status, *u.Status) {
			it.Status = *u.Status
		} else {
			accepted = false
		}
	}
	if u.ParentID != nil {
		it.ParentID = *u.ParentID
	}
	if u.Response != nil {
		it.Response = clonePtr(u.Response)
	}
	if u.ClearRating {
		it.Rating = nil
	}
	if u.Rating != nil {
		it.Rating = clonePtr(u.Rating)
	}
	if u.Metadata != nil {
		it.Metadata = it.Metadata.Merge(*u.Metadata)
	}
	if u.EndedAt != nil {
		it.EndedAt = clonePtr(u.EndedAt)
	}
	return accepted
}

// Clone returns a deep copy of u.
func (u Update) Clone() Update {
	out := u
	out.ParentID = clonePtr(u.ParentID)
	out.Status = clonePtr(u.Status)
	out.Response = clonePtr(u.Response)
	out.Rating = clonePtr(u.Rating)
	out.EndedAt = clonePtr(u.EndedAt)
	if u.Metadata != nil {
		md := u.Metadata.Clone()
		out.Metadata = &md
	}
	return out
}

// UpdateFrom builds the update that folds incoming into an existing record.
// Identity fields and the prompt are not part of it.
func UpdateFrom(incoming *Interaction) Update {
	u := Update{
		Status:   clonePtr(&incoming.Status),
		Response: clonePtr(incoming.Response),
		Rating:   clonePtr(incoming.Rating),
		EndedAt:  clonePtr(incoming.EndedAt),
	}
	if incoming.ParentID != "" {
		u.ParentID = clonePtr(&incoming.ParentID)
	}
	if !incoming.Metadata.IsZero() {
		md := incoming.Metadata.Clone()
		u.Metadata = &md
	}
	return u
}

// Merge folds an incoming record into it: identity fields are kept, every
// other set field of incoming is applied, and a missing prompt is filled in.
func (it *Interaction) Merge(incoming *Interaction) bool {
	if it.Prompt == nil && incoming.Prompt != nil {
		it.Prompt = incoming.Prompt.Clone()
	}
	return it.Apply(UpdateFrom(incoming))
}
