// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
)

// =============================================================================
// ADD
// =============================================================================

// AddInteraction puts it into the store. It is ignored unless it belongs to
// the active conversation. Adding an ID that is already held merges the
// fields instead of duplicating it; a merge that finishes a streaming
// interaction is persisted like FinalizeInteraction. A STREAMING interaction
// joins the streaming set.
func (s *Store) AddInteraction(it *interaction.Interaction) error {
	if it == nil {
		return nil
	}

	s.mu.Lock()
	if s.conversationID == "" || it.ConversationID != s.conversationID {
		s.rejectLocked("add", it.ID, "add for inactive conversation ignored")
		s.mu.Unlock()
		return nil
	}
	if err := it.Validate(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w %s: %w", ErrInvalid, it.ID, err)
	}

	if existing := s.findLocked(it.ID); existing != nil {
		finalized := s.mergeLocked(existing, it)
		s.refreshLocked()
		s.unlock()
		if finalized != nil {
			return s.persist(context.Background(), finalized)
		}
		return nil
	}

	for _, other := range s.interactions {
		if other.Index == it.Index {
			s.mu.Unlock()
			return fmt.Errorf("%w %s: index %d already used by %s", ErrInvalid, it.ID, it.Index, other.ID)
		}
	}

	s.insertLocked(it.Clone())
	s.refreshLocked()
	s.unlock()
	return nil
}

// insertLocked appends a new interaction and registers it as streaming if
// its status says so.
func (s *Store) insertLocked(it *interaction.Interaction) {
	s.interactions = append(s.interactions, it)
	interaction.SortByIndex(s.interactions)
	if it.Index >= s.nextIndex {
		s.nextIndex = it.Index + 1
	}
	s.emit(EventAdded, AddedPayload{Interaction: it.Clone()})
	if it.IsStreaming() {
		s.markLocked(it.ID)
	}
}

// mergeLocked folds incoming into existing, keeping the streaming set in
// step with the resulting status. It returns the snapshot to persist when
// the merge finished a streaming interaction, nil otherwise.
func (s *Store) mergeLocked(existing, incoming *interaction.Interaction) *interaction.Interaction {
	u := interaction.UpdateFrom(incoming)
	if existing.Prompt == nil && incoming.Prompt != nil {
		existing.Prompt = incoming.Prompt.Clone()
	}

	if existing.IsStreaming() && u.IsTerminal() {
		return s.finalizeLocked(existing, u)
	}
	s.stripLiveResponseLocked("add", existing, &u)
	if !existing.Apply(u) {
		u.Status = nil
		s.log.Warn().Str("interaction_id", existing.ID).Msg("status change on finished interaction ignored")
	}
	s.emit(EventUpdated, UpdatedPayload{InteractionID: existing.ID, Update: u.Clone()})
	return nil
}

// stripLiveResponseLocked drops the response of a non-terminal update to a
// streaming interaction. Its text lives in the buffer until finalization.
func (s *Store) stripLiveResponseLocked(op string, it *interaction.Interaction, u *interaction.Update) {
	if !it.IsStreaming() || u.Response == nil || u.IsTerminal() {
		return
	}
	u.Response = nil
	s.rejectLocked(op, it.ID, "response for streaming interaction ignored")
}

// =============================================================================
// UPDATE
// =============================================================================

// UpdateInteraction applies u to a held interaction. Metadata merges per
// field; Response and Rating are replaced. A finished interaction never
// changes status again. An update that finishes a streaming interaction
// commits its buffered text (unless u carries a response), leaves the
// streaming set and is persisted.
func (s *Store) UpdateInteraction(ctx context.Context, id string, u interaction.Update) error {
	s.mu.Lock()
	it := s.findLocked(id)
	if it == nil {
		s.rejectLocked("update", id, "update for interaction outside the active conversation ignored")
		s.mu.Unlock()
		return nil
	}
	if err := interaction.ValidateRating(u.Rating); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("update %s: %w", id, err)
	}

	if it.IsStreaming() && u.IsTerminal() {
		snapshot := s.finalizeLocked(it, u.Clone())
		s.refreshLocked()
		s.unlock()
		return s.persist(ctx, snapshot)
	}

	applied := u.Clone()
	s.stripLiveResponseLocked("update", it, &applied)
	if !it.Apply(applied) {
		applied.Status = nil
		s.log.Warn().Str("interaction_id", id).Msg("status change on finished interaction ignored")
	}
	s.emit(EventUpdated, UpdatedPayload{InteractionID: id, Update: applied})
	s.refreshLocked()
	s.unlock()
	return nil
}

// =============================================================================
// RATE
// =============================================================================

// RateInteraction sets (or with nil clears) the rating of a finished
// interaction. The change is visible immediately; if saving it fails the
// previous rating is restored and the error returned.
func (s *Store) RateInteraction(ctx context.Context, id string, rating *int) error {
	if err := interaction.ValidateRating(rating); err != nil {
		return fmt.Errorf("rate %s: %w", id, err)
	}

	s.mu.Lock()
	it := s.findLocked(id)
	if it == nil {
		s.rejectLocked("rate", id, "rating for interaction outside the active conversation ignored")
		s.mu.Unlock()
		return nil
	}
	if it.IsStreaming() {
		s.rejectLocked("rate", id, "rating for streaming interaction ignored")
		s.mu.Unlock()
		return nil
	}

	prev := copyRating(it.Rating)
	s.applyRatingLocked(it, rating, prev)
	snapshot := it.Clone()
	s.unlock()

	err := s.persist(ctx, snapshot)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	if cur := s.findLocked(id); cur != nil && sameRating(cur.Rating, rating) {
		s.applyRatingLocked(cur, prev, rating)
	}
	s.unlock()

	s.metrics.RatingRolledBack()
	return err
}

func (s *Store) applyRatingLocked(it *interaction.Interaction, rating, prev *int) {
	u := interaction.Update{Rating: copyRating(rating), ClearRating: rating == nil}
	it.Apply(u)
	s.emit(EventUpdated, UpdatedPayload{InteractionID: it.ID, Update: u.Clone()})
	s.emit(EventRated, RatedPayload{InteractionID: it.ID, Rating: copyRating(rating), Previous: copyRating(prev)})
}

func copyRating(r *int) *int {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

func sameRating(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// =============================================================================
// START / REGENERATE
// =============================================================================

// StartParams describes a new interaction.
type StartParams struct {
	Type     interaction.Type
	Prompt   *interaction.Prompt
	ParentID string
	Metadata interaction.Metadata
}

// StartInteraction creates a STREAMING interaction in the active
// conversation with the next free index, registers it as streaming and
// persists the initial record. When only the save fails, the interaction is
// still returned and live; the error is recorded and returned too.
//
// It fails with ErrNotLoaded while the conversation's first load is in
// flight or after it failed, since the next free index is unknown then.
func (s *Store) StartInteraction(ctx context.Context, p StartParams) (*interaction.Interaction, error) {
	if p.Type == "" {
		p.Type = interaction.TypeMessage
	}

	s.mu.Lock()
	if s.conversationID == "" {
		s.mu.Unlock()
		return nil, ErrNoConversation
	}
	if !s.loaded {
		s.rejectLocked("start", "", "start before the conversation was loaded")
		s.mu.Unlock()
		return nil, fmt.Errorf("start in %s: %w", s.conversationID, ErrNotLoaded)
	}

	it := interaction.New(s.conversationID, s.nextIndex, p.Type, p.Prompt.Clone())
	it.ParentID = p.ParentID
	it.Metadata = p.Metadata.Clone()
	it.StartedAt = s.now()

	s.insertLocked(it)
	s.refreshLocked()
	snapshot := it.Clone()
	s.unlock()

	s.log.Debug().
		Str("interaction_id", snapshot.ID).
		Int("index", snapshot.Index).
		Str("type", string(snapshot.Type)).
		Msg("interaction started")

	if err := s.persist(ctx, snapshot); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// Regenerate starts a new interaction answering the same prompt as id. The
// new interaction links back to id and gets a fresh, higher index.
func (s *Store) Regenerate(ctx context.Context, id string) (*interaction.Interaction, error) {
	s.mu.Lock()
	orig := s.findLocked(id)
	if orig == nil {
		s.rejectLocked("regenerate", id, "regenerate for interaction outside the active conversation ignored")
		s.mu.Unlock()
		return nil, fmt.Errorf("regenerate %s: %w", id, ErrNotFound)
	}
	params := StartParams{
		Type:     orig.Type,
		Prompt:   orig.Prompt.Clone(),
		ParentID: orig.ID,
		Metadata: interaction.Metadata{
			ModelID:    orig.Metadata.ModelID,
			ProviderID: orig.Metadata.ProviderID,
		},
	}
	s.mu.Unlock()

	return s.StartInteraction(ctx, params)
}
