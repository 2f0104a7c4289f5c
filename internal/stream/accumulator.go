// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// FRAGMENT
// =============================================================================

// Kind says which buffer a fragment belongs to.
type Kind int

const (
	// KindText is visible response output.
	KindText Kind = iota

	// KindReasoning is a model's reasoning trace.
	KindReasoning
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindReasoning {
		return "reasoning"
	}
	return "text"
}

// Fragment is one piece of streamed output.
type Fragment struct {
	Kind Kind
	Text string
}

// Text returns a text fragment.
func Text(s string) Fragment { return Fragment{Kind: KindText, Text: s} }

// Reasoning returns a reasoning fragment.
func Reasoning(s string) Fragment { return Fragment{Kind: KindReasoning, Text: s} }

// =============================================================================
// ACCUMULATOR
// =============================================================================

type buffers struct {
	text      strings.Builder
	reasoning strings.Builder
	fragments int
}

func (b *buffers) builder(k Kind) *strings.Builder {
	if k == KindReasoning {
		return &b.reasoning
	}
	return &b.text
}

// Accumulator holds the in-flight output of streaming interactions.
// Appending is O(fragment length); reading a buffer does not copy it.
// Safe for concurrent use.
type Accumulator struct {
	mu      sync.Mutex
	buffers map[string]*buffers
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{buffers: make(map[string]*buffers)}
}

// Open allocates empty buffers for id. Opening an open id keeps its content.
func (a *Accumulator) Open(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.buffers[id]; !ok {
		a.buffers[id] = &buffers{}
	}
}

// IsOpen reports whether id has buffers.
func (a *Accumulator) IsOpen(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.buffers[id]
	return ok
}

// Append concatenates f onto the matching buffer of id and returns the
// buffer's full content. It is a no-op returning false when id is not open.
func (a *Accumulator) Append(id string, f Fragment) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buffers[id]
	if !ok {
		return "", false
	}
	sb := b.builder(f.Kind)
	sb.WriteString(f.Text)
	b.fragments++
	return sb.String(), true
}

// Set replaces the matching buffer of id wholesale.
func (a *Accumulator) Set(id string, kind Kind, content string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buffers[id]
	if !ok {
		return false
	}
	sb := b.builder(kind)
	sb.Reset()
	sb.WriteString(content)
	return true
}

// Text returns the text buffer of id.
func (a *Accumulator) Text(id string) (string, bool) {
	return a.read(id, KindText)
}

// Reasoning returns the reasoning buffer of id.
func (a *Accumulator) Reasoning(id string) (string, bool) {
	return a.read(id, KindReasoning)
}

func (a *Accumulator) read(id string, k Kind) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buffers[id]
	if !ok {
		return "", false
	}
	return b.builder(k).String(), true
}

// Fragments returns how many fragments id has received since Open.
func (a *Accumulator) Fragments(id string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.buffers[id]; ok {
		return b.fragments
	}
	return 0
}

// Discard frees the buffers of id and reports whether it was open.
func (a *Accumulator) Discard(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.buffers[id]; !ok {
		return false
	}
	delete(a.buffers, id)
	return true
}

// DiscardAll frees every buffer and returns the ids that were open, sorted.
func (a *Accumulator) DiscardAll() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := a.idsLocked()
	a.buffers = make(map[string]*buffers)
	return ids
}

// IDs returns the open ids, sorted.
func (a *Accumulator) IDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.idsLocked()
}

func (a *Accumulator) idsLocked() []string {
	ids := make([]string, 0, len(a.buffers))
	for id := range a.buffers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of open ids.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers)
}
