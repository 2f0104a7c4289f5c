// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
)

// MemoryGateway keeps interactions in process memory. Records are copied on
// the way in and out so callers never share state with the gateway.
type MemoryGateway struct {
	mu            sync.RWMutex
	conversations map[string]map[string]*interaction.Interaction
}

// NewMemoryGateway creates an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{conversations: make(map[string]map[string]*interaction.Interaction)}
}

// LoadInteractionsForConversation implements Gateway.
func (g *MemoryGateway) LoadInteractionsForConversation(ctx context.Context, conversationID string) ([]*interaction.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("load", err)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	items := make([]*interaction.Interaction, 0, len(g.conversations[conversationID]))
	for _, it := range g.conversations[conversationID] {
		items = append(items, it.Clone())
	}
	interaction.SortByIndex(items)
	return items, nil
}

// SaveInteraction implements Gateway.
func (g *MemoryGateway) SaveInteraction(ctx context.Context, it *interaction.Interaction) error {
	if err := ctx.Err(); err != nil {
		return wrap("save", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	conv, ok := g.conversations[it.ConversationID]
	if !ok {
		conv = make(map[string]*interaction.Interaction)
		g.conversations[it.ConversationID] = conv
	}
	conv[it.ID] = it.Clone()
	return nil
}

// DeleteConversationInteractions implements Gateway.
func (g *MemoryGateway) DeleteConversationInteractions(ctx context.Context, conversationID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conversations, conversationID)
	return nil
}

// ListConversations implements Gateway.
func (g *MemoryGateway) ListConversations(ctx context.Context) ([]ConversationMeta, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	metas := make([]ConversationMeta, 0, len(g.conversations))
	for id, conv := range g.conversations {
		meta := ConversationMeta{ID: id, InteractionCount: len(conv)}
		var first *interaction.Interaction
		for _, it := range conv {
			if it.StartedAt.After(meta.UpdatedAt) {
				meta.UpdatedAt = it.StartedAt
			}
			if first == nil || it.Index < first.Index {
				first = it
			}
		}
		meta.Preview = previewOf(first)
		metas = append(metas, meta)
	}
	sortMetas(metas)
	return metas, nil
}

// Close implements Gateway.
func (g *MemoryGateway) Close() error { return nil }

func sortMetas(metas []ConversationMeta) {
	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].UpdatedAt.Equal(metas[j].UpdatedAt) {
			return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
		}
		return metas[i].ID < metas[j].ID
	})
}
