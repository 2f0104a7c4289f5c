// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/util"
)

// Update handles messages. It only reads from the store; every request
// runs as a tea.Cmd so store events can be delivered to the program while
// the request is in progress.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case StoreChangedMsg:
		m.refresh()
		return m, nil

	case SnapshotMsg:
		if msg.Final {
			delete(m.live, msg.InteractionID)
		} else {
			m.live[msg.InteractionID] = msg.Content
		}
		m.rebuild()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StatusMsg:
		m.statusMsg = string(msg)
		return m, nil

	case requestDoneMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		}
		return m, nil

	case replayDoneMsg:
		m.replaying = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("replay failed: %v", msg.err)
		} else {
			m.statusMsg = "replay finished"
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Prev):
		m.moveSelection(-1)
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.moveSelection(1)
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		id := m.stopTarget()
		if id == "" || m.ctl == nil {
			m.statusMsg = "nothing is streaming"
			return m, nil
		}
		return m, m.request("stop", func() error { return m.ctl.RequestStop(m.ctx, id) })

	case key.Matches(msg, m.keys.Copy):
		it := m.selectedInteraction()
		if it == nil {
			return m, nil
		}
		text := m.content(it)
		if err := m.copy(text); err != nil {
			m.statusMsg = fmt.Sprintf("copy failed: %v", err)
		} else {
			m.statusMsg = fmt.Sprintf("copied %d characters", util.RuneLen(text))
		}
		return m, nil

	case key.Matches(msg, m.keys.RateUp):
		return m, m.rate(interaction.Ptr(1))

	case key.Matches(msg, m.keys.RateDown):
		return m, m.rate(interaction.Ptr(-1))

	case key.Matches(msg, m.keys.Unrate):
		return m, m.rate(nil)

	case key.Matches(msg, m.keys.Replay):
		if m.replay == nil || m.replaying {
			return m, nil
		}
		m.replaying = true
		m.follow = true
		m.statusMsg = "replaying..."
		replay, ctx := m.replay, m.ctx
		return m, func() tea.Msg { return replayDoneMsg{err: replay(ctx)} }

	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.follow = true
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// HELPERS
// =============================================================================

func (m Model) request(op string, fn func() error) tea.Cmd {
	return func() tea.Msg { return requestDoneMsg{op: op, err: fn()} }
}

func (m Model) rate(rating *int) tea.Cmd {
	it := m.selectedInteraction()
	if it == nil || m.ctl == nil {
		return nil
	}
	id, ctx, ctl := it.ID, m.ctx, m.ctl
	return m.request("rate", func() error { return ctl.RequestRate(ctx, id, rating) })
}

func (m *Model) moveSelection(delta int) {
	n := len(m.state.Interactions)
	if n == 0 {
		return
	}
	idx := m.selected
	if m.follow || idx < 0 || idx >= n {
		idx = n - 1
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	m.selected = idx
	m.follow = idx == n-1
	m.rebuild()
}

func (m *Model) refresh() {
	if m.source == nil {
		return
	}
	m.state = m.source.Snapshot()

	streaming := make(map[string]struct{}, len(m.state.StreamingIDs))
	for _, id := range m.state.StreamingIDs {
		streaming[id] = struct{}{}
	}
	for id := range m.live {
		if _, ok := streaming[id]; !ok {
			delete(m.live, id)
		}
	}
	if m.selected >= len(m.state.Interactions) {
		m.follow = true
	}
	m.rebuild()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	bodyHeight := height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(width, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = bodyHeight
	}
	m.md.resize(width - 4)
	m.rebuild()
}

func (m *Model) rebuild() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.body())
	if m.follow {
		m.viewport.GotoBottom()
	}
}
