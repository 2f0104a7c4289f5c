// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
)

// persist saves a snapshot taken under the lock. On failure the error is
// recorded in the store and returned; in-memory state is left as is and the
// ID is remembered as unsaved until a later save succeeds.
func (s *Store) persist(ctx context.Context, it *interaction.Interaction) error {
	ctx, span := s.tracer.Start(ctx, "store.SaveInteraction", trace.WithAttributes(
		attribute.String("interaction.id", it.ID),
		attribute.String("conversation.id", it.ConversationID),
		attribute.String("interaction.status", string(it.Status)),
	))
	defer span.End()

	err := s.gateway.SaveInteraction(ctx, it)
	s.metrics.SaveResult(err)
	if err == nil {
		s.mu.Lock()
		delete(s.unsaved, it.ID)
		s.mu.Unlock()
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.log.Error().Err(err).
		Str("interaction_id", it.ID).
		Str("status", string(it.Status)).
		Msg("save interaction failed")

	s.mu.Lock()
	if it.ConversationID == s.conversationID {
		s.unsaved[it.ID] = struct{}{}
	}
	s.setErrorLocked(fmt.Sprintf("save interaction %s: %v", it.ID, err))
	s.refreshLocked()
	s.unlock()

	return fmt.Errorf("save interaction %s: %w", it.ID, err)
}

// retryUnsaved saves again the held copies of interactions whose last save
// failed. Failures are recorded by persist and otherwise ignored.
func (s *Store) retryUnsaved(ctx context.Context, pending []*interaction.Interaction) {
	for _, it := range pending {
		if err := s.persist(ctx, it); err != nil {
			s.log.Warn().Str("interaction_id", it.ID).Msg("unsaved interaction still not persisted")
			continue
		}
		s.log.Debug().Str("interaction_id", it.ID).Msg("unsaved interaction persisted")
	}
}
