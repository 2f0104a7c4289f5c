// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"time"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
)

// =============================================================================
// USAGE SUMMARY
// =============================================================================

// Usage aggregates token counts and timings over interactions.
type Usage struct {
	Interactions int `json:"interactions"`
	Completed    int `json:"completed"`
	Errored      int `json:"errored"`
	Streaming    int `json:"streaming"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`

	// AvgTimeToFirstToken is averaged over interactions that recorded it
	AvgTimeToFirstToken time.Duration `json:"avg_time_to_first_token_ns"`

	// ByModel counts interactions per model ID ("" for unknown)
	ByModel map[string]int `json:"by_model"`
}

// TotalTokens returns prompt plus completion tokens.
func (u Usage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// Summarize computes the usage of items.
func Summarize(items []*interaction.Interaction) Usage {
	u := Usage{ByModel: make(map[string]int)}
	var ttftSum int64
	ttftN := 0

	for _, it := range items {
		u.Interactions++
		switch it.Status {
		case interaction.StatusCompleted:
			u.Completed++
		case interaction.StatusError:
			u.Errored++
		case interaction.StatusStreaming:
			u.Streaming++
		}
		u.ByModel[it.Metadata.ModelID]++

		if usage := it.Metadata.Usage; usage != nil {
			u.PromptTokens += usage.PromptTokens
			u.CompletionTokens += usage.CompletionTokens
		}
		if ms := it.Metadata.TimeToFirstTokenMs; ms > 0 {
			ttftSum += ms
			ttftN++
		}
	}

	if ttftN > 0 {
		u.AvgTimeToFirstToken = time.Duration(ttftSum/int64(ttftN)) * time.Millisecond
	}
	return u
}
