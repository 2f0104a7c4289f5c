// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/stream"
)

// stoppedError is recorded on interactions stopped by StopInteraction.
const stoppedError = "stream stopped"

// =============================================================================
// STREAMING SET
// =============================================================================

// markLocked adds id to the streaming set and allocates its buffers.
func (s *Store) markLocked(id string) {
	if _, ok := s.streaming[id]; ok {
		return
	}
	s.streaming[id] = struct{}{}
	s.buffers.Open(id)

	s.emit(EventStreamingIDsChanged, StreamingIDsPayload{
		IDs:     s.streamingIDsLocked(),
		Added:   []string{id},
		Removed: []string{},
	})
	s.emit(EventStreamBuffersChanged, BufferPayload{InteractionID: id})
	s.emit(EventReasoningBuffersChanged, BufferPayload{InteractionID: id})
}

// unmarkLocked removes id from the streaming set and frees its buffers.
func (s *Store) unmarkLocked(id string) {
	if _, ok := s.streaming[id]; !ok {
		return
	}
	delete(s.streaming, id)
	s.buffers.Discard(id)

	s.emit(EventStreamingIDsChanged, StreamingIDsPayload{
		IDs:     s.streamingIDsLocked(),
		Added:   []string{},
		Removed: []string{id},
	})
	s.emit(EventStreamBuffersChanged, BufferPayload{InteractionID: id, Removed: true})
	s.emit(EventReasoningBuffersChanged, BufferPayload{InteractionID: id, Removed: true})
}

// MarkStreaming registers a held, unfinished interaction as streaming.
// Finished interactions never stream again.
func (s *Store) MarkStreaming(id string) {
	s.mu.Lock()
	it := s.findLocked(id)
	switch {
	case it == nil:
		s.rejectLocked("mark_streaming", id, "mark for interaction outside the active conversation ignored")
		s.mu.Unlock()
		return
	case it.Status.IsTerminal():
		s.rejectLocked("mark_streaming", id, "mark for finished interaction ignored")
		s.mu.Unlock()
		return
	}
	s.markLocked(id)
	s.refreshLocked()
	s.unlock()
}

// UnmarkStreaming takes id out of the streaming set. An interaction still
// STREAMING is finalized as COMPLETED with its buffered text and persisted.
func (s *Store) UnmarkStreaming(ctx context.Context, id string) error {
	return s.finish(ctx, id, interaction.Update{Status: interaction.Ptr(interaction.StatusCompleted)})
}

// StopInteraction cancels a streaming interaction. It is finalized as ERROR,
// keeping the partial output as its response. Stopping an interaction that
// is not streaming does nothing.
func (s *Store) StopInteraction(ctx context.Context, id string) error {
	return s.finish(ctx, id, interaction.Update{
		Status:   interaction.Ptr(interaction.StatusError),
		Metadata: &interaction.Metadata{Error: stoppedError},
	})
}

// Finalization describes how a stream ended.
type Finalization struct {
	// Status defaults to COMPLETED
	Status interaction.Status

	// Response defaults to the buffered text
	Response *string

	// Error is recorded in the metadata
	Error string

	Metadata *interaction.Metadata
}

// FinalizeInteraction ends a streaming interaction exactly once: the
// response is committed, the buffers are freed and the record is persisted.
// A save failure is recorded and returned but the interaction stays
// finished. Finalizing an interaction that already finished does nothing.
func (s *Store) FinalizeInteraction(ctx context.Context, id string, f Finalization) error {
	status := f.Status
	if status == "" {
		status = interaction.StatusCompleted
	}
	if !status.IsTerminal() {
		return fmt.Errorf("finalize %s: %s is not a final status", id, status)
	}

	u := interaction.Update{Status: &status, Response: f.Response}
	if f.Metadata != nil || f.Error != "" {
		md := interaction.Metadata{}
		if f.Metadata != nil {
			md = f.Metadata.Clone()
		}
		if f.Error != "" {
			md.Error = f.Error
		}
		u.Metadata = &md
	}
	return s.finish(ctx, id, u)
}

func (s *Store) finish(ctx context.Context, id string, u interaction.Update) error {
	s.mu.Lock()
	_, streaming := s.streaming[id]
	it := s.findLocked(id)
	switch {
	case it == nil && !streaming:
		s.rejectLocked("finalize", id, "finalize for interaction outside the active conversation ignored")
		s.mu.Unlock()
		return nil
	case it == nil:
		s.unmarkLocked(id)
		s.refreshLocked()
		s.unlock()
		return nil
	case !it.IsStreaming():
		s.unmarkLocked(id)
		s.refreshLocked()
		s.unlock()
		return nil
	}

	snapshot := s.finalizeLocked(it, u.Clone())
	s.refreshLocked()
	s.unlock()

	s.log.Debug().
		Str("interaction_id", id).
		Str("status", string(snapshot.Status)).
		Int("response_len", len(snapshot.ResponseText())).
		Msg("interaction finalized")
	return s.persist(ctx, snapshot)
}

// finalizeLocked moves a streaming interaction to a terminal status. The
// buffered text becomes the response unless u carries one, and a buffered
// reasoning trace lands in the metadata. Returns a snapshot to persist.
func (s *Store) finalizeLocked(it *interaction.Interaction, u interaction.Update) *interaction.Interaction {
	if u.Status == nil || !u.Status.IsTerminal() {
		u.Status = interaction.Ptr(interaction.StatusCompleted)
	}
	if u.Response == nil {
		text, _ := s.buffers.Text(it.ID)
		u.Response = &text
	}
	if reasoning, ok := s.buffers.Reasoning(it.ID); ok && reasoning != "" {
		md := interaction.Metadata{}
		if u.Metadata != nil {
			md = *u.Metadata
		}
		if md.Reasoning == "" {
			md.Reasoning = reasoning
		}
		u.Metadata = &md
	}
	if u.EndedAt == nil {
		u.EndedAt = interaction.Ptr(s.now())
	}

	it.Apply(u)
	s.emit(EventUpdated, UpdatedPayload{InteractionID: it.ID, Update: u.Clone()})
	s.unmarkLocked(it.ID)
	if it.Status == interaction.StatusCompleted {
		s.setErrorLocked("")
	}
	return it.Clone()
}

// =============================================================================
// BUFFERS
// =============================================================================

// AppendChunk adds a fragment to a streaming interaction's buffer. Fragments
// for interactions that are not streaming are dropped; the return value
// reports whether f was kept.
func (s *Store) AppendChunk(id string, f stream.Fragment) bool {
	s.mu.Lock()
	if _, ok := s.streaming[id]; !ok {
		s.mu.Unlock()
		s.metrics.Fragment(false)
		s.log.Trace().Str("interaction_id", id).Msg("fragment for non-streaming interaction dropped")
		return false
	}
	content, _ := s.buffers.Append(id, f)
	s.emit(bufferEvent(f.Kind), BufferPayload{InteractionID: id, Content: content})
	s.unlock()

	s.metrics.Fragment(true)
	return true
}

// SetBuffer replaces a streaming interaction's buffer wholesale.
func (s *Store) SetBuffer(id string, kind stream.Kind, content string) bool {
	s.mu.Lock()
	if _, ok := s.streaming[id]; !ok {
		s.mu.Unlock()
		return false
	}
	s.buffers.Set(id, kind, content)
	s.emit(bufferEvent(kind), BufferPayload{InteractionID: id, Content: content, Replaced: true})
	s.unlock()
	return true
}

func bufferEvent(k stream.Kind) events.Name {
	if k == stream.KindReasoning {
		return EventReasoningBuffersChanged
	}
	return EventStreamBuffersChanged
}
