// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package interaction contains the data model for request/response exchanges.
//
// An Interaction is one turn of a conversation: the prompt that was sent, the
// response that streamed back, and everything known about the exchange
// (model, token usage, tool calls, reasoning trace, rating).
//
// # Key Types
//
//   - Interaction: One exchange with identity, ordering index and status
//   - Status: STREAMING, COMPLETED or ERROR (the last two are terminal)
//   - Metadata: Typed optional fields plus an Extra map for unknown keys
//   - Update: Partial update applied with field-by-field merge rules
//
// # Merge Rules
//
// Metadata merges per field. A zero value in an update never clears an
// existing value. ToolCalls and ToolResults are replaced wholesale when the
// update carries them. Extra merges per key. Response and Rating are replaced
// verbatim.
//
// # Usage
//
//	it := interaction.New("conv-1", 0, interaction.TypeMessage, &interaction.Prompt{Content: "Hi"})
//	it.Apply(interaction.Update{
//	    Metadata: &interaction.Metadata{ModelID: "llama3"},
//	})
package interaction
