// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/stream"
)

// Store is the part of *store.Store a producer drives.
type Store interface {
	StartInteraction(ctx context.Context, p store.StartParams) (*interaction.Interaction, error)
	AppendChunk(id string, f stream.Fragment) bool
	FinalizeInteraction(ctx context.Context, id string, f store.Finalization) error
	StopInteraction(ctx context.Context, id string) error
}

// =============================================================================
// PRODUCER
// =============================================================================

// Producer feeds a chunk sequence into a new interaction as if a model were
// streaming it, pausing Delay between chunks.
type Producer struct {
	store Store
	log   zerolog.Logger

	// Delay is the pause between two chunks; zero streams as fast as possible
	Delay time.Duration

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	now func() time.Time
}

// NewProducer creates a producer for st.
func NewProducer(st Store, delay time.Duration, log zerolog.Logger) *Producer {
	return &Producer{
		store: st,
		log:   log,
		Delay: delay,
		Sleep: sleepCtx,
		now:   time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Source yields chunks to a callback; Reader.Process is one.
type Source func(ctx context.Context, fn func(Chunk) error) error

// Slice returns a Source over fixed chunks.
func Slice(chunks []Chunk) Source {
	return func(ctx context.Context, fn func(Chunk) error) error {
		for _, c := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(c); err != nil {
				return err
			}
		}
		return nil
	}
}

// Run starts an interaction with params and streams src into it. When the
// source completes, the interaction is finalized as COMPLETED with the model,
// token usage and timing recorded in its metadata. When ctx is cancelled
// the interaction is stopped, keeping the partial output, and ctx's error
// is returned. A source failure finalizes the interaction as ERROR.
func (p *Producer) Run(ctx context.Context, params store.StartParams, src Source) (*interaction.Interaction, error) {
	it, err := p.store.StartInteraction(ctx, params)
	if it == nil {
		return nil, err
	}
	if err != nil {
		// the record could not be saved; the stream itself is still live
		p.log.Warn().Err(err).Str("interaction_id", it.ID).Msg("initial save failed")
	}

	started := p.now()
	var (
		md         interaction.Metadata
		firstToken time.Time
		thinkStart time.Time
		thinkEnd   time.Time
		first      = true
	)

	srcErr := src(ctx, func(c Chunk) error {
		if !first && p.Delay > 0 {
			if err := p.Sleep(ctx, p.Delay); err != nil {
				return err
			}
		}
		first = false

		if c.Model != "" {
			md.ModelID = c.Model
		}
		if c.Reasoning != "" {
			if thinkStart.IsZero() {
				thinkStart = p.now()
			}
			thinkEnd = p.now()
			p.store.AppendChunk(it.ID, stream.Reasoning(c.Reasoning))
		}
		if c.Content != "" {
			if firstToken.IsZero() {
				firstToken = p.now()
			}
			p.store.AppendChunk(it.ID, stream.Text(c.Content))
		}
		if c.Done {
			md.Usage = &interaction.TokenUsage{
				PromptTokens:     c.PromptTokens,
				CompletionTokens: c.CompletionTokens,
				TotalTokens:      c.PromptTokens + c.CompletionTokens,
			}
			if c.DoneReason != "" {
				md.Extra = map[string]any{"finishReason": c.DoneReason}
			}
		}
		return nil
	})

	if !firstToken.IsZero() {
		md.TimeToFirstTokenMs = firstToken.Sub(started).Milliseconds()
	}
	if !thinkStart.IsZero() {
		md.ReasoningDurationMs = thinkEnd.Sub(thinkStart).Milliseconds()
	}

	final := context.WithoutCancel(ctx)
	switch {
	case srcErr != nil && ctx.Err() != nil:
		p.log.Debug().Str("interaction_id", it.ID).Msg("replay cancelled")
		if err := p.store.StopInteraction(final, it.ID); err != nil {
			return it, err
		}
		return it, ctx.Err()

	case srcErr != nil:
		p.log.Error().Err(srcErr).Str("interaction_id", it.ID).Msg("replay source failed")
		if err := p.store.FinalizeInteraction(final, it.ID, store.Finalization{
			Status:   interaction.StatusError,
			Error:    srcErr.Error(),
			Metadata: &md,
		}); err != nil {
			return it, err
		}
		return it, fmt.Errorf("replay %s: %w", it.ID, srcErr)
	}

	if err := p.store.FinalizeInteraction(final, it.ID, store.Finalization{Metadata: &md}); err != nil {
		return it, err
	}
	return it, nil
}
