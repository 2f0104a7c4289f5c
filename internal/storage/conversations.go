// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/util"
)

// =============================================================================
// STORED CONVERSATION TYPE
// =============================================================================

// storedConversation is the on-disk layout of one conversation file.
type storedConversation struct {
	ID           string                     `json:"id"`
	UpdatedAt    time.Time                  `json:"updated_at"`
	Interactions []*interaction.Interaction `json:"interactions"`
}

// =============================================================================
// FILE GATEWAY
// =============================================================================

// FileGateway stores each conversation as <BaseDir>/<id>.json.
type FileGateway struct {
	// BaseDir is the directory holding conversation files
	// Default: ~/.litechat/conversations/
	BaseDir string

	mu sync.Mutex
}

// NewFileGateway creates a gateway rooted at baseDir, creating it if needed.
func NewFileGateway(baseDir string) (*FileGateway, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, wrap("create data dir", err)
	}
	return &FileGateway{BaseDir: baseDir}, nil
}

// LoadInteractionsForConversation implements Gateway.
func (g *FileGateway) LoadInteractionsForConversation(ctx context.Context, conversationID string) ([]*interaction.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("load", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	conv, err := g.read(conversationID)
	if err != nil {
		return nil, wrap("load "+conversationID, err)
	}
	interaction.SortByIndex(conv.Interactions)
	return conv.Interactions, nil
}

// SaveInteraction implements Gateway.
func (g *FileGateway) SaveInteraction(ctx context.Context, it *interaction.Interaction) error {
	if err := ctx.Err(); err != nil {
		return wrap("save", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	conv, err := g.read(it.ConversationID)
	if err != nil {
		return wrap("save "+it.ID, err)
	}

	replaced := false
	for i, existing := range conv.Interactions {
		if existing.ID == it.ID {
			conv.Interactions[i] = it
			replaced = true
			break
		}
	}
	if !replaced {
		conv.Interactions = append(conv.Interactions, it)
	}
	interaction.SortByIndex(conv.Interactions)
	conv.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return wrap("encode "+it.ID, err)
	}

	if err := util.AtomicWriteFile(g.filePath(it.ConversationID), data, 0644); err != nil {
		return wrap("write "+it.ID, err)
	}
	return nil
}

// DeleteConversationInteractions implements Gateway.
func (g *FileGateway) DeleteConversationInteractions(ctx context.Context, conversationID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := os.Remove(g.filePath(conversationID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrap("delete "+conversationID, err)
	}
	return nil
}

// ListConversations implements Gateway.
func (g *FileGateway) ListConversations(ctx context.Context) ([]ConversationMeta, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entries, err := os.ReadDir(g.BaseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ConversationMeta{}, nil
		}
		return nil, wrap("list", err)
	}

	metas := make([]ConversationMeta, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		conv, err := g.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // Skip corrupted files
		}

		meta := ConversationMeta{
			ID:               conv.ID,
			InteractionCount: len(conv.Interactions),
			UpdatedAt:        conv.UpdatedAt,
		}
		if len(conv.Interactions) > 0 {
			interaction.SortByIndex(conv.Interactions)
			meta.Preview = previewOf(conv.Interactions[0])
		}
		metas = append(metas, meta)
	}

	sortMetas(metas)
	return metas, nil
}

// Close implements Gateway.
func (g *FileGateway) Close() error { return nil }

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// read returns the stored conversation, or an empty one if no file exists.
func (g *FileGateway) read(conversationID string) (*storedConversation, error) {
	data, err := os.ReadFile(g.filePath(conversationID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &storedConversation{ID: conversationID, Interactions: []*interaction.Interaction{}}, nil
		}
		return nil, err
	}

	var conv storedConversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		conv.ID = conversationID
	}
	if conv.Interactions == nil {
		conv.Interactions = []*interaction.Interaction{}
	}
	return &conv, nil
}

// filePath returns the file path for a conversation ID. Path separators in
// the ID are flattened so an ID can never escape BaseDir.
func (g *FileGateway) filePath(conversationID string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(conversationID)
	return filepath.Join(g.BaseDir, safe+".json")
}
