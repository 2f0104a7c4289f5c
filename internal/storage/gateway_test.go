// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
)

// =============================================================================
// CONTRACT
// =============================================================================

func gateways(t *testing.T) map[string]Gateway {
	t.Helper()

	sqlite, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	files, err := NewFileGateway(t.TempDir())
	require.NoError(t, err)

	gws := map[string]Gateway{
		"memory": NewMemoryGateway(),
		"json":   files,
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, gw := range gws {
			gw.Close()
		}
	})
	return gws
}

func sample(conv string, index int, prompt string) *interaction.Interaction {
	it := interaction.New(conv, index, interaction.TypeMessage, &interaction.Prompt{Content: prompt})
	it.StartedAt = time.Unix(1700000000+int64(index), 0)
	return it
}

func TestGateway_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			second := sample("c1", 1, "second")
			first := sample("c1", 0, "first")
			first.Status = interaction.StatusCompleted
			first.Response = interaction.Ptr("hello")
			first.Rating = interaction.Ptr(4)
			first.EndedAt = interaction.Ptr(time.Unix(1700000100, 0))
			first.Metadata = interaction.Metadata{
				ModelID: "llama3",
				Usage:   &interaction.TokenUsage{CompletionTokens: 7},
				Extra:   map[string]any{"seed": "42"},
			}

			require.NoError(t, gw.SaveInteraction(ctx, second))
			require.NoError(t, gw.SaveInteraction(ctx, first))
			require.NoError(t, gw.SaveInteraction(ctx, sample("c2", 0, "other")))

			items, err := gw.LoadInteractionsForConversation(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, items, 2)

			got := items[0]
			assert.Equal(t, first.ID, got.ID, "ordered by index")
			assert.Equal(t, interaction.StatusCompleted, got.Status)
			assert.Equal(t, "hello", got.ResponseText())
			require.NotNil(t, got.Rating)
			assert.Equal(t, 4, *got.Rating)
			assert.Equal(t, "first", got.Prompt.Content)
			assert.Equal(t, "llama3", got.Metadata.ModelID)
			assert.Equal(t, 7, got.Metadata.Usage.CompletionTokens)
			assert.Equal(t, "42", got.Metadata.Extra["seed"])
			require.NotNil(t, got.EndedAt)
			assert.True(t, got.EndedAt.Equal(*first.EndedAt))

			assert.Nil(t, items[1].Response, "streaming record has no response")
		})
	}
}

func TestGateway_SaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			it := sample("c1", 0, "q")
			require.NoError(t, gw.SaveInteraction(ctx, it))

			it.Status = interaction.StatusError
			it.Response = interaction.Ptr("partial")
			require.NoError(t, gw.SaveInteraction(ctx, it))

			items, err := gw.LoadInteractionsForConversation(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, interaction.StatusError, items[0].Status)
			assert.Equal(t, "partial", items[0].ResponseText())
		})
	}
}

func TestGateway_UnknownConversationIsEmpty(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			items, err := gw.LoadInteractionsForConversation(context.Background(), "nope")
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestGateway_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, gw.SaveInteraction(ctx, sample("c1", 0, "alpha")))
			require.NoError(t, gw.SaveInteraction(ctx, sample("c1", 1, "beta")))
			require.NoError(t, gw.SaveInteraction(ctx, sample("c2", 0, "gamma")))

			metas, err := gw.ListConversations(ctx)
			require.NoError(t, err)
			require.Len(t, metas, 2)
			byID := map[string]ConversationMeta{}
			for _, m := range metas {
				byID[m.ID] = m
			}
			assert.Equal(t, 2, byID["c1"].InteractionCount)
			assert.Equal(t, "alpha", byID["c1"].Preview)

			require.NoError(t, gw.DeleteConversationInteractions(ctx, "c1"))
			require.NoError(t, gw.DeleteConversationInteractions(ctx, "c1"), "delete is idempotent")

			items, err := gw.LoadInteractionsForConversation(ctx, "c1")
			require.NoError(t, err)
			assert.Empty(t, items)

			items, err = gw.LoadInteractionsForConversation(ctx, "c2")
			require.NoError(t, err)
			assert.Len(t, items, 1)
		})
	}
}

// =============================================================================
// BACKEND SPECIFICS
// =============================================================================

func TestMemoryGateway_CopiesRecords(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	it := sample("c1", 0, "q")
	require.NoError(t, gw.SaveInteraction(ctx, it))

	it.Status = interaction.StatusCompleted
	items, _ := gw.LoadInteractionsForConversation(ctx, "c1")
	assert.Equal(t, interaction.StatusStreaming, items[0].Status)
}

func TestFileGateway_CorruptFileIsStorageError(t *testing.T) {
	dir := t.TempDir()
	gw, err := NewFileGateway(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c1.json"), []byte("{not json"), 0644))

	_, err = gw.LoadInteractionsForConversation(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage))

	metas, err := gw.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, metas, "corrupted files are skipped")
}

func TestFileGateway_IDCannotEscapeBaseDir(t *testing.T) {
	gw, err := NewFileGateway(t.TempDir())
	require.NoError(t, err)

	path := gw.filePath("../../etc/passwd")
	assert.Equal(t, gw.BaseDir, filepath.Dir(path))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "interactions.db")

	gw, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, gw.SaveInteraction(ctx, sample("c1", 0, "q")))
	require.NoError(t, gw.Close())

	gw, err = OpenSQLite(path)
	require.NoError(t, err)
	defer gw.Close()

	items, err := gw.LoadInteractionsForConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestOpen(t *testing.T) {
	gw, err := Open(Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryGateway{}, gw)

	gw, err = Open(Options{Backend: BackendJSON, Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileGateway{}, gw)

	_, err = Open(Options{Backend: BackendPostgres})
	assert.ErrorIs(t, err, ErrStorage)

	_, err = Open(Options{Backend: "mongo"})
	assert.ErrorIs(t, err, ErrStorage)
}
