// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdown renders response text with glamour. Finished responses are
// cached per interaction; streaming snapshots are rendered each time.
type markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]rendered
}

type rendered struct {
	content string
	out     string
}

func newMarkdown(style string) *markdown {
	return &markdown{style: style, cache: make(map[string]rendered)}
}

// resize rebuilds the renderer for a new wrap width and drops the cache.
func (m *markdown) resize(width int) {
	if width < 20 {
		width = 20
	}
	if width == m.width && m.renderer != nil {
		return
	}
	m.width = width
	m.cache = make(map[string]rendered)

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// Fallback to plain text if renderer initialization fails
		m.renderer = nil
		return
	}
	m.renderer = r
}

// render renders content, or returns it trimmed when no renderer exists.
func (m *markdown) render(content string) string {
	if m.renderer == nil || strings.TrimSpace(content) == "" {
		return strings.TrimRight(content, "\n")
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return strings.TrimRight(content, "\n")
	}
	return strings.Trim(out, "\n")
}

// renderFinal renders a finished response, reusing the last rendering of id
// while its content is unchanged.
func (m *markdown) renderFinal(id, content string) string {
	if c, ok := m.cache[id]; ok && c.content == content {
		return c.out
	}
	out := m.render(content)
	m.cache[id] = rendered{content: content, out: out}
	return out
}
