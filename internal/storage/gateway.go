// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
)

// ErrStorage is wrapped by every persistence failure.
var ErrStorage = errors.New("storage failure")

// Gateway loads and saves interactions.
type Gateway interface {
	// LoadInteractionsForConversation returns the conversation's interactions
	// ordered by index. An unknown conversation yields an empty slice.
	LoadInteractionsForConversation(ctx context.Context, conversationID string) ([]*interaction.Interaction, error)

	// SaveInteraction inserts or replaces the record with it.ID.
	SaveInteraction(ctx context.Context, it *interaction.Interaction) error

	// DeleteConversationInteractions removes every record of a conversation.
	DeleteConversationInteractions(ctx context.Context, conversationID string) error

	// ListConversations summarizes stored conversations, most recent first.
	ListConversations(ctx context.Context) ([]ConversationMeta, error)

	Close() error
}

// ConversationMeta summarizes one stored conversation.
type ConversationMeta struct {
	ID               string    `json:"id"`
	InteractionCount int       `json:"interaction_count"`
	UpdatedAt        time.Time `json:"updated_at"`
	Preview          string    `json:"preview"` // first prompt
}

// =============================================================================
// OPEN
// =============================================================================

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendJSON     = "json"
	BackendMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Path is the database file (sqlite) or directory (json)
	Path string

	// DSN is the connection string (postgres)
	DSN string
}

// Open creates the gateway described by opts.
func Open(opts Options) (Gateway, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		path := opts.Path
		if path == "" {
			path = filepath.Join(defaultDataDir(), "interactions.db")
		}
		return OpenSQLite(path)
	case BackendPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("%w: postgres backend requires a dsn", ErrStorage)
		}
		return OpenPostgres(opts.DSN)
	case BackendJSON:
		dir := opts.Path
		if dir == "" {
			dir = filepath.Join(defaultDataDir(), "conversations")
		}
		return NewFileGateway(dir)
	case BackendMemory:
		return NewMemoryGateway(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrStorage, opts.Backend)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".litechat"
	}
	return filepath.Join(home, ".litechat")
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func previewOf(it *interaction.Interaction) string {
	if it == nil || it.Prompt == nil {
		return ""
	}
	return it.Prompt.Content
}
