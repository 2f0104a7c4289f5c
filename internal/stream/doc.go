// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream accumulates streamed output per interaction.
//
// The Accumulator keeps one text buffer and one reasoning buffer for every
// interaction that is currently streaming. A buffer exists only between Open
// and Discard, so fragments that arrive for an interaction that is not (or no
// longer) streaming are dropped rather than resurrecting state.
//
// # Key Types
//
//   - Accumulator: Per-interaction text and reasoning buffers
//   - Fragment: One piece of streamed output, text or reasoning
//
// # Usage
//
//	acc := stream.NewAccumulator()
//	acc.Open(id)
//	acc.Append(id, stream.Text("Hel"))
//	acc.Append(id, stream.Text("lo"))
//	text, _ := acc.Text(id) // "Hello"
//	acc.Discard(id)
package stream
