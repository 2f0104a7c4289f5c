// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"
)

// =============================================================================
// CHUNK
// =============================================================================

// Chunk is one fragment of a recorded model response.
type Chunk struct {
	Content   string
	Reasoning string
	Done      bool
	Model     string

	// Set on the final chunk only
	DoneReason       string
	PromptTokens     int
	CompletionTokens int
	TotalDuration    time.Duration
}

// =============================================================================
// NDJSON READER
// =============================================================================

// Reader parses a newline-delimited JSON stream as produced by Ollama's
// /api/chat endpoint, one object per line.
type Reader struct {
	reader *bufio.Reader
	model  string
	chunks int
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(r)}
}

type wireChunk struct {
	Model   string `json:"model"`
	Message struct {
		Content  string `json:"content"`
		Thinking string `json:"thinking,omitempty"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// Process reads chunks and hands each to fn until the stream ends, a chunk
// with Done is seen, fn returns an error, or ctx is done.
func (r *Reader) Process(ctx context.Context, fn func(Chunk) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
		if chunk.Done {
			return nil
		}
	}
}

// Next returns the next chunk, skipping blank and malformed lines. It
// returns io.EOF at the end of the stream.
func (r *Reader) Next() (Chunk, error) {
	for {
		line, err := r.reader.ReadBytes('\n')
		if len(strings.TrimSpace(string(line))) == 0 {
			if err != nil {
				return Chunk{}, err
			}
			continue
		}

		var w wireChunk
		if jsonErr := json.Unmarshal(line, &w); jsonErr != nil {
			if err != nil {
				return Chunk{}, err
			}
			continue
		}
		return r.convert(w), nil
	}
}

func (r *Reader) convert(w wireChunk) Chunk {
	if w.Model != "" {
		r.model = w.Model
	}
	r.chunks++

	c := Chunk{
		Content:   w.Message.Content,
		Reasoning: w.Message.Thinking,
		Done:      w.Done,
		Model:     r.model,
	}
	if w.Done {
		c.DoneReason = w.DoneReason
		c.PromptTokens = w.PromptEvalCount
		c.CompletionTokens = w.EvalCount
		c.TotalDuration = time.Duration(w.TotalDuration)
	}
	return c
}

// Chunks returns how many chunks were parsed.
func (r *Reader) Chunks() int { return r.chunks }

// =============================================================================
// PLAIN TEXT
// =============================================================================

// Tokenize splits text into word-sized pieces, each word keeping the
// whitespace that follows it, so joining the pieces gives back text.
func Tokenize(text string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range text {
		space := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if inSpace && !space {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// FromText turns plain text into a chunk sequence ending in a Done chunk.
func FromText(text string) []Chunk {
	tokens := Tokenize(text)
	chunks := make([]Chunk, 0, len(tokens)+1)
	for _, tok := range tokens {
		chunks = append(chunks, Chunk{Content: tok})
	}
	return append(chunks, Chunk{Done: true, DoneReason: "stop", CompletionTokens: len(tokens)})
}
