// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store is the authoritative in-memory view of the active
// conversation's interactions.
//
// The Store owns the interaction list, the set of streaming interaction IDs
// and their output buffers, and an overall status. It loads and saves through
// a storage.Gateway and announces every transition on an events.Bus.
//
// # Guarantees
//
//   - Every interaction held belongs to the active conversation. Operations
//     aimed at another conversation are ignored and logged.
//   - An interaction is in the streaming set exactly when its status is
//     STREAMING, and buffers exist exactly for the streaming set.
//   - A load that resolves after the active conversation changed is
//     discarded (ErrLoadSuperseded).
//   - Events are published after the state they describe is in place, in the
//     order the transitions happened, and never while the store is locked.
//     Handlers may call back into the store.
//
// # Status
//
// Status is "loading" while a load is in flight, "streaming" while the
// streaming set is non-empty, "error" while an error is recorded, and "idle"
// otherwise. An error stays until ClearError, a successful load, or a stream
// that completes successfully.
//
// # Usage
//
//	st := store.New(gateway, bus, store.WithLogger(log))
//	if err := st.SetCurrentConversationID(ctx, "conv-1"); err != nil {
//	    log.Warn().Err(err).Msg("load failed")
//	}
//
//	it, _ := st.StartInteraction(ctx, store.StartParams{Prompt: &interaction.Prompt{Content: "Hi"}})
//	st.AppendChunk(it.ID, stream.Text("Hel"))
//	st.AppendChunk(it.ID, stream.Text("lo"))
//	st.UnmarkStreaming(ctx, it.ID) // commits "Hello" and persists
package store
