// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package replay streams recorded model output into the interaction store.
//
// A Reader parses Ollama-style NDJSON transcripts; FromText turns plain text
// into word-sized chunks. A Producer then plays either into a new interaction
// at a fixed cadence, exercising the same streaming path a live model would.
//
// # Usage
//
//	f, _ := os.Open("answer.ndjson")
//	p := replay.NewProducer(st, 20*time.Millisecond, log)
//	it, err := p.Run(ctx, store.StartParams{Prompt: prompt}, replay.NewReader(f).Process)
package replay
