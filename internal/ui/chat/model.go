// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Source provides consistent store snapshots.
type Source interface {
	Snapshot() store.State
}

// Controller issues the requests the viewer can make.
type Controller interface {
	RequestStop(ctx context.Context, id string) error
	RequestRate(ctx context.Context, id string, rating *int) error
}

// =============================================================================
// CHAT MODEL
// =============================================================================

const (
	headerHeight = 2
	footerHeight = 2
)

// Model is the Bubble Tea model of the stream viewer. It shows the active
// conversation's interactions and the throttled output of streaming ones.
type Model struct {
	ctx    context.Context
	theme  *styles.Theme
	keys   KeyMap
	source Source
	ctl    Controller
	copy   func(string) error
	replay func(context.Context) error

	md       *markdown
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	state store.State
	live  map[string]string

	// selected indexes state.Interactions; follow pins it to the newest
	selected int
	follow   bool

	statusMsg string
	replaying bool
}

// Option configures a Model.
type Option func(*Model)

// WithContext sets the context passed to controller requests and replays.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// WithClipboard overrides the clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.copy = fn }
}

// WithReplay enables the replay key. fn streams one interaction into the
// store and returns when it is finished.
func WithReplay(fn func(context.Context) error) Option {
	return func(m *Model) { m.replay = fn }
}

// WithKeyMap overrides the key bindings.
func WithKeyMap(k KeyMap) Option {
	return func(m *Model) { m.keys = k }
}

// New creates a viewer over source. ctl may be nil for a read-only view.
func New(source Source, ctl Controller, theme *styles.Theme, opts ...Option) Model {
	if theme == nil {
		theme = styles.NewTheme(styles.ThemeAuto)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := Model{
		ctx:     context.Background(),
		theme:   theme,
		keys:    DefaultKeyMap(),
		source:  source,
		ctl:     ctl,
		copy:    clipboard.WriteAll,
		md:      newMarkdown(glamourStyle(theme)),
		spinner: sp,
		live:    make(map[string]string),
		follow:  true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if source != nil {
		m.state = source.Snapshot()
	}
	return m
}

func glamourStyle(t *styles.Theme) string {
	switch {
	case t.Plain():
		return "notty"
	case t.IsDark:
		return "dark"
	default:
		return "light"
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// =============================================================================
// SELECTION
// =============================================================================

// selectedInteraction returns the selected interaction, nil when none.
func (m Model) selectedInteraction() *interaction.Interaction {
	n := len(m.state.Interactions)
	if n == 0 {
		return nil
	}
	idx := m.selected
	if m.follow || idx < 0 || idx >= n {
		idx = n - 1
	}
	return m.state.Interactions[idx]
}

// stopTarget returns the selected interaction when it streams, otherwise the
// first streaming one.
func (m Model) stopTarget() string {
	if it := m.selectedInteraction(); it != nil && it.IsStreaming() {
		return it.ID
	}
	if len(m.state.StreamingIDs) > 0 {
		return m.state.StreamingIDs[0]
	}
	return ""
}

// content returns what the viewer shows as the response of it.
func (m Model) content(it *interaction.Interaction) string {
	if it.IsStreaming() {
		return m.live[it.ID]
	}
	return it.ResponseText()
}
