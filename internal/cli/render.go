// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Markdown rendering and live stream output.

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/render"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/ui/styles"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// markdown renders responses with glamour. Plain themes print text as is.
type markdown struct {
	r *glamour.TermRenderer
}

func newMarkdown(theme *styles.Theme, width int) *markdown {
	if theme == nil || theme.Plain() {
		return &markdown{}
	}
	style := "light"
	if theme.IsDark {
		style = "dark"
	}
	if width > 100 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return &markdown{}
	}
	return &markdown{r: r}
}

func (m *markdown) render(content string) string {
	if m.r == nil {
		return content
	}
	out, err := m.r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// LIVE OUTPUT
// =============================================================================

// streamPrinter writes throttled snapshots to a writer as they grow. Only
// the new suffix of each snapshot is printed. It is used as a presenter
// sink, so it must not block on the store.
type streamPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	printed map[string]string
	final   chan string
}

func newStreamPrinter(w io.Writer) *streamPrinter {
	return &streamPrinter{
		w:       w,
		printed: make(map[string]string),
		final:   make(chan string, 16),
	}
}

func (p *streamPrinter) sink(s render.Snapshot) {
	p.mu.Lock()
	prev := p.printed[s.InteractionID]
	switch {
	case strings.HasPrefix(s.Content, prev):
		fmt.Fprint(p.w, s.Content[len(prev):])
	default:
		// content was replaced; start over on a fresh line
		fmt.Fprint(p.w, "\n"+s.Content)
	}
	p.printed[s.InteractionID] = s.Content
	if s.Final {
		delete(p.printed, s.InteractionID)
	}
	p.mu.Unlock()

	if s.Final {
		select {
		case p.final <- s.InteractionID:
		default:
		}
	}
}
