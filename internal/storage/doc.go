// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists interactions.
//
// The Gateway interface is the only thing the interaction store knows about
// persistence. Saves are upserts keyed by interaction ID; loads return every
// interaction of one conversation ordered by index.
//
// # Backends
//
//   - SQLGateway: SQLite (modernc.org/sqlite) or PostgreSQL (pgx) through sqlx
//   - FileGateway: One JSON file per conversation, written atomically
//   - MemoryGateway: Process memory, for tests and throwaway sessions
//
// # Usage
//
//	gw, err := storage.Open(storage.Options{Backend: "sqlite", Path: dbPath})
//	if err != nil {
//	    return err
//	}
//	defer gw.Close()
//
//	items, err := gw.LoadInteractionsForConversation(ctx, "conv-1")
//
// Every failure wraps ErrStorage; use errors.Is(err, storage.ErrStorage).
package storage
