// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/util"
)

// View renders header, body and footer.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	return strings.Join([]string{m.header(), m.viewport.View(), m.footer()}, "\n")
}

func (m Model) header() string {
	conv := m.state.ConversationID
	if conv == "" {
		conv = "(no conversation)"
	}

	status := m.theme.Badge(string(m.state.Status))
	if m.state.Status == store.StatusStreaming || m.state.Status == store.StatusLoading {
		status += " " + m.spinner.View()
	}

	line := fmt.Sprintf("litechat  %s  %s  %d interactions",
		util.TruncateWidth(conv, 40), status, len(m.state.Interactions))
	second := ""
	if m.state.Error != "" {
		second = m.theme.Error.Render(util.TruncateWidth("error: "+util.SingleLine(m.state.Error), m.width-2))
	}
	return m.theme.Header.Render(line) + "\n" + second
}

func (m Model) footer() string {
	line := m.theme.Separator.Render(strings.Repeat("─", max(m.width, 1)))
	if m.statusMsg != "" {
		return line + "\n" + m.theme.Footer.Render(util.TruncateWidth(m.statusMsg, m.width-2))
	}
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return line + "\n" + m.theme.Footer.Render(util.TruncateWidth(strings.Join(parts, " · "), m.width-2))
}

// body renders every interaction of the active conversation.
func (m Model) body() string {
	if len(m.state.Interactions) == 0 {
		return m.theme.Muted.Render("  no interactions yet")
	}

	selected := m.selectedInteraction()
	var b strings.Builder
	for i, it := range m.state.Interactions {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderInteraction(it, it == selected))
	}
	return b.String()
}

func (m Model) renderInteraction(it *interaction.Interaction, selected bool) string {
	var b strings.Builder

	marker := "  "
	title := fmt.Sprintf("#%d", it.Index)
	if selected {
		marker = m.theme.Selected.Render("> ")
		title = m.theme.Selected.Render(title)
	} else {
		title = m.theme.Title.Render(title)
	}
	b.WriteString(marker + title + " " + m.theme.Badge(string(it.Status)))
	if it.Metadata.ModelID != "" {
		b.WriteString(m.theme.Muted.Render(" · " + it.Metadata.ModelID))
	}
	if it.Rating != nil {
		b.WriteString(m.theme.Muted.Render(fmt.Sprintf(" · rated %+d", *it.Rating)))
	}
	if it.ParentID != "" {
		b.WriteString(m.theme.Muted.Render(" · regenerated"))
	}
	b.WriteString("\n")

	if it.Prompt != nil && it.Prompt.Content != "" {
		b.WriteString(m.theme.Prompt.Render("  you: ") + it.Prompt.Content + "\n")
	}

	if it.IsStreaming() {
		text := m.live[it.ID]
		if text == "" {
			b.WriteString(m.theme.Muted.Render("  " + m.spinner.View() + " waiting for output"))
		} else {
			b.WriteString(m.md.render(text))
		}
	} else {
		b.WriteString(m.md.renderFinal(it.ID, it.ResponseText()))
	}

	if r := it.Metadata.Reasoning; r != "" {
		b.WriteString("\n" + m.theme.Reasoning.Render(
			"  thinking: "+util.TruncateWidth(util.SingleLine(r), max(m.width-14, 10))))
	}
	if e := it.Metadata.Error; e != "" {
		b.WriteString("\n" + m.theme.Error.Render("  error: "+e))
	}
	return b.String()
}
