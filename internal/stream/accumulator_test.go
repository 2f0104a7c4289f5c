// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_AppendConcatenates(t *testing.T) {
	acc := NewAccumulator()
	acc.Open("i1")

	parts := []string{"Hel", "lo", ", ", "wörld", "!"}
	var last string
	for _, p := range parts {
		var ok bool
		last, ok = acc.Append("i1", Text(p))
		require.True(t, ok)
	}

	assert.Equal(t, strings.Join(parts, ""), last)
	text, ok := acc.Text("i1")
	assert.True(t, ok)
	assert.Equal(t, "Hello, wörld!", text)
	assert.Equal(t, len(parts), acc.Fragments("i1"))
}

func TestAccumulator_ReasoningIsSeparate(t *testing.T) {
	acc := NewAccumulator()
	acc.Open("i1")

	acc.Append("i1", Reasoning("thinking"))
	acc.Append("i1", Text("answer"))

	text, _ := acc.Text("i1")
	reasoning, _ := acc.Reasoning("i1")
	assert.Equal(t, "answer", text)
	assert.Equal(t, "thinking", reasoning)
}

func TestAccumulator_DropsFragmentsForClosedIDs(t *testing.T) {
	acc := NewAccumulator()

	_, ok := acc.Append("ghost", Text("x"))
	assert.False(t, ok)
	assert.False(t, acc.Set("ghost", KindText, "x"))
	assert.Equal(t, 0, acc.Len(), "append must not allocate")

	acc.Open("i1")
	acc.Append("i1", Text("a"))
	require.True(t, acc.Discard("i1"))

	_, ok = acc.Append("i1", Text("late"))
	assert.False(t, ok)
	_, ok = acc.Text("i1")
	assert.False(t, ok)
}

func TestAccumulator_OpenKeepsContent(t *testing.T) {
	acc := NewAccumulator()
	acc.Open("i1")
	acc.Append("i1", Text("keep"))
	acc.Open("i1")

	text, _ := acc.Text("i1")
	assert.Equal(t, "keep", text)
}

func TestAccumulator_SetReplaces(t *testing.T) {
	acc := NewAccumulator()
	acc.Open("i1")
	acc.Append("i1", Text("draft"))

	require.True(t, acc.Set("i1", KindText, "final"))
	text, _ := acc.Text("i1")
	assert.Equal(t, "final", text)
}

func TestAccumulator_DiscardAll(t *testing.T) {
	acc := NewAccumulator()
	acc.Open("b")
	acc.Open("a")

	assert.Equal(t, []string{"a", "b"}, acc.DiscardAll())
	assert.Equal(t, 0, acc.Len())
}

func TestAccumulator_ConcurrentStreamsAreIndependent(t *testing.T) {
	acc := NewAccumulator()
	ids := []string{"i1", "i2", "i3"}
	for _, id := range ids {
		acc.Open(id)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				acc.Append(id, Text(id))
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		text, _ := acc.Text(id)
		assert.Equal(t, strings.Repeat(id, 100), text)
	}
}
