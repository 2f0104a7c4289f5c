// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
)

// interruptedError is recorded on persisted records left STREAMING by a
// process that died mid-stream.
const interruptedError = "stream interrupted"

// =============================================================================
// LOAD
// =============================================================================

// LoadInteractions replaces the held interactions with the persisted ones of
// conversationID, which must be the active conversation. Interactions held
// in memory but not yet persisted are kept. Streaming interactions, and
// interactions whose last save failed, keep their in-memory copy; the failed
// saves are retried once the load completes.
//
// If the active conversation changes before the gateway answers, the result
// is dropped and ErrLoadSuperseded returned. On a gateway failure the store
// holds no interactions, records the error and returns it.
func (s *Store) LoadInteractions(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if conversationID == "" || conversationID != s.conversationID {
		s.rejectLocked("load", "", "load for inactive conversation ignored")
		s.mu.Unlock()
		return nil
	}
	s.loadGen++
	gen := s.loadGen
	s.loading = true
	s.refreshLocked()
	s.unlock()

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "store.LoadInteractions", trace.WithAttributes(
		attribute.String("conversation.id", conversationID),
	))
	items, err := s.gateway.LoadInteractionsForConversation(ctx, conversationID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	s.mu.Lock()
	if gen != s.loadGen || conversationID != s.conversationID {
		s.mu.Unlock()
		s.metrics.LoadResult("superseded", time.Since(start))
		s.log.Debug().Str("conversation_id", conversationID).Msg("stale load discarded")
		return ErrLoadSuperseded
	}
	s.loading = false

	if err != nil {
		s.clearStreamingLocked()
		s.interactions = nil
		s.loaded = false
		s.setErrorLocked(fmt.Sprintf("load interactions: %v", err))
		s.emit(EventLoaded, LoadedPayload{ConversationID: conversationID, Interactions: []*interaction.Interaction{}})
		s.refreshLocked()
		s.unlock()

		s.metrics.LoadResult("error", time.Since(start))
		s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("load interactions failed")
		return fmt.Errorf("load interactions for %s: %w", conversationID, err)
	}

	s.interactions = s.mergeLoadedLocked(conversationID, items)
	s.loaded = true
	pending := s.unsavedLocked()
	s.setErrorLocked("")
	s.emit(EventLoaded, LoadedPayload{
		ConversationID: conversationID,
		Interactions:   interaction.CloneAll(s.interactions),
	})
	s.refreshLocked()
	count := len(s.interactions)
	s.unlock()

	s.metrics.LoadResult("ok", time.Since(start))
	s.log.Debug().
		Str("conversation_id", conversationID).
		Int("interactions", count).
		Int("unsaved", len(pending)).
		Dur("took", time.Since(start)).
		Msg("interactions loaded")

	s.retryUnsaved(ctx, pending)
	return nil
}

// mergeLoadedLocked combines persisted records with resident ones.
func (s *Store) mergeLoadedLocked(conversationID string, loaded []*interaction.Interaction) []*interaction.Interaction {
	resident := make(map[string]*interaction.Interaction, len(s.interactions))
	for _, it := range s.interactions {
		resident[it.ID] = it
	}

	seen := make(map[string]bool, len(loaded))
	out := make([]*interaction.Interaction, 0, len(loaded)+len(s.interactions))
	for _, it := range loaded {
		if it == nil || it.ConversationID != conversationID || seen[it.ID] {
			continue
		}
		seen[it.ID] = true

		if held := resident[it.ID]; held != nil && s.residentWinsLocked(held, it) {
			out = append(out, held)
			continue
		}
		if it.IsStreaming() {
			it.Status = interaction.StatusError
			if it.Metadata.Error == "" {
				it.Metadata.Error = interruptedError
			}
			s.log.Warn().Str("interaction_id", it.ID).Msg("persisted interaction was left streaming")
		}
		out = append(out, it)
	}

	for _, it := range s.interactions {
		if !seen[it.ID] && it.ConversationID == conversationID {
			out = append(out, it)
		}
	}

	interaction.SortByIndex(out)
	for _, it := range out {
		if it.Index >= s.nextIndex {
			s.nextIndex = it.Index + 1
		}
	}
	return out
}

// residentWinsLocked reports whether the held copy of an interaction is newer
// than the persisted one: it is still streaming, its last save failed, or it
// already finished while the persisted record says STREAMING.
func (s *Store) residentWinsLocked(held, persisted *interaction.Interaction) bool {
	if _, streaming := s.streaming[held.ID]; streaming {
		return true
	}
	if _, unsaved := s.unsaved[held.ID]; unsaved {
		return true
	}
	return held.Status.IsTerminal() && persisted.IsStreaming()
}

// unsavedLocked returns copies of the held interactions whose last save failed.
func (s *Store) unsavedLocked() []*interaction.Interaction {
	var out []*interaction.Interaction
	for _, it := range s.interactions {
		if _, ok := s.unsaved[it.ID]; ok {
			out = append(out, it.Clone())
		}
	}
	return out
}

// =============================================================================
// ACTIVE CONVERSATION
// =============================================================================

// SetCurrentConversationID makes id the active conversation and loads it.
// Switching drops the previous conversation's interactions, streaming set
// and buffers before loading. Selecting the active conversation again is a
// no-op when interactions are held and a reload otherwise. An empty id
// clears everything, including the recorded error.
func (s *Store) SetCurrentConversationID(ctx context.Context, id string) error {
	s.mu.Lock()
	if id == s.conversationID {
		empty := len(s.interactions) == 0
		s.mu.Unlock()
		if id == "" || !empty {
			return nil
		}
		return s.LoadInteractions(ctx, id)
	}

	prev := s.conversationID
	s.clearStreamingLocked()
	s.interactions = nil
	s.conversationID = id
	s.nextIndex = 0
	s.unsaved = make(map[string]struct{})
	s.loadGen++
	s.loading = false
	s.loaded = false
	if id == "" {
		s.setErrorLocked("")
	}
	s.emit(EventConversationChanged, ConversationPayload{ConversationID: id, Previous: prev})
	s.refreshLocked()
	s.unlock()

	s.log.Debug().Str("conversation_id", id).Str("previous", prev).Msg("active conversation changed")
	if id == "" {
		return nil
	}
	return s.LoadInteractions(ctx, id)
}

// Clear drops every held interaction of the active conversation, stopping
// streams and discarding their buffers. Persisted records are untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	s.clearStreamingLocked()
	s.interactions = nil
	s.unsaved = make(map[string]struct{})
	s.loadGen++
	s.loading = false
	s.emit(EventLoaded, LoadedPayload{ConversationID: s.conversationID, Interactions: []*interaction.Interaction{}})
	s.refreshLocked()
	s.unlock()
}

// DeleteConversation removes every persisted interaction of conversationID
// and clears the store when that conversation is active.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := s.gateway.DeleteConversationInteractions(ctx, conversationID); err != nil {
		s.SetError(fmt.Sprintf("delete conversation %s: %v", conversationID, err))
		return fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}
	if s.ConversationID() == conversationID {
		s.Clear()
	}
	return nil
}

// clearStreamingLocked empties the streaming set and frees every buffer.
func (s *Store) clearStreamingLocked() {
	if len(s.streaming) == 0 && s.buffers.Len() == 0 {
		return
	}
	removed := s.streamingIDsLocked()
	s.streaming = make(map[string]struct{})
	discarded := s.buffers.DiscardAll()

	s.emit(EventStreamingIDsChanged, StreamingIDsPayload{IDs: []string{}, Removed: removed})
	for _, id := range discarded {
		s.emit(EventStreamBuffersChanged, BufferPayload{InteractionID: id, Removed: true})
		s.emit(EventReasoningBuffersChanged, BufferPayload{InteractionID: id, Removed: true})
	}
}
