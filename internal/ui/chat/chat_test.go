// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/controller"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/render"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/storage"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/stream"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/ui/styles"
)

type fixture struct {
	bus *events.Bus
	st  *store.Store
	ctl *controller.Controller
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	bus := events.NewBus()
	st := store.New(storage.NewMemoryGateway(), bus)
	require.NoError(t, st.SetCurrentConversationID(context.Background(), "c1"))
	return fixture{bus: bus, st: st, ctl: controller.New(st, zerolog.Nop())}
}

func (f fixture) start(t *testing.T, prompt string) *interaction.Interaction {
	t.Helper()
	it, err := f.st.StartInteraction(context.Background(), store.StartParams{
		Prompt: &interaction.Prompt{Content: prompt},
	})
	require.NoError(t, err)
	return it
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func plain() *styles.Theme { return styles.NewTheme(styles.ThemePlain) }

// =============================================================================
// RENDERING
// =============================================================================

func TestView_BeforeSize(t *testing.T) {
	m := New(nil, nil, plain())
	assert.Equal(t, "loading...", m.View())
}

func TestView_EmptyConversation(t *testing.T) {
	f := newFixture(t)
	m := sized(New(f.st, f.ctl, plain()))

	view := m.View()
	assert.Contains(t, view, "c1")
	assert.Contains(t, view, "[OK] idle")
	assert.Contains(t, view, "no interactions yet")
	assert.Contains(t, view, "q quit")
}

func TestView_StreamingSnapshotThenFinal(t *testing.T) {
	f := newFixture(t)
	it := f.start(t, "say hello")
	m := sized(New(f.st, f.ctl, plain()))

	m, _ = step(t, m, SnapshotMsg{InteractionID: it.ID, Content: "Hello wor"})
	view := m.View()
	assert.Contains(t, view, "say hello")
	assert.Contains(t, view, "Hello wor")
	assert.Contains(t, view, "[~] STREAMING")

	require.True(t, f.st.AppendChunk(it.ID, stream.Fragment{Kind: stream.KindText, Text: "Hello world"}))
	require.NoError(t, f.st.FinalizeInteraction(context.Background(), it.ID, store.Finalization{}))
	m, _ = step(t, m, StoreChangedMsg{Event: store.EventUpdated})
	m, _ = step(t, m, SnapshotMsg{InteractionID: it.ID, Content: "Hello world", Final: true})

	view = m.View()
	assert.Contains(t, view, "Hello world")
	assert.Contains(t, view, "[OK] COMPLETED")
	assert.Empty(t, m.live)
}

func TestView_ErrorAndReasoning(t *testing.T) {
	f := newFixture(t)
	it := f.start(t, "q")
	require.NoError(t, f.st.FinalizeInteraction(context.Background(), it.ID, store.Finalization{
		Status:   interaction.StatusError,
		Error:    "provider exploded",
		Metadata: &interaction.Metadata{Reasoning: "first I think"},
	}))
	f.st.SetError("something broke")

	m := sized(New(f.st, f.ctl, plain()))
	view := m.View()
	assert.Contains(t, view, "error: provider exploded")
	assert.Contains(t, view, "thinking: first I think")
	assert.Contains(t, view, "error: something broke")
}

func TestRefresh_DropsFinishedLiveContent(t *testing.T) {
	f := newFixture(t)
	it := f.start(t, "q")
	m := sized(New(f.st, f.ctl, plain()))
	m, _ = step(t, m, SnapshotMsg{InteractionID: it.ID, Content: "partial"})
	require.Contains(t, m.live, it.ID)

	require.NoError(t, f.st.StopInteraction(context.Background(), it.ID))
	m, _ = step(t, m, StoreChangedMsg{Event: store.EventStreamingIDsChanged})
	assert.NotContains(t, m.live, it.ID)
}

// =============================================================================
// KEYS
// =============================================================================

func TestKey_Quit(t *testing.T) {
	m := sized(New(nil, nil, plain()))
	_, cmd := step(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestKey_Rate(t *testing.T) {
	f := newFixture(t)
	it := f.start(t, "q")
	require.NoError(t, f.st.FinalizeInteraction(context.Background(), it.ID, store.Finalization{}))
	m := sized(New(f.st, f.ctl, plain()))

	_, cmd := step(t, m, keyMsg("+"))
	require.NotNil(t, cmd)
	assert.Equal(t, requestDoneMsg{op: "rate"}, cmd())

	got, ok := f.st.Get(it.ID)
	require.True(t, ok)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 1, *got.Rating)

	_, cmd = step(t, m, keyMsg("0"))
	cmd()
	got, _ = f.st.Get(it.ID)
	assert.Nil(t, got.Rating)
}

func TestKey_StopStreaming(t *testing.T) {
	f := newFixture(t)
	it := f.start(t, "q")
	m := sized(New(f.st, f.ctl, plain()))

	_, cmd := step(t, m, keyMsg("s"))
	require.NotNil(t, cmd)
	cmd()
	assert.False(t, f.st.IsStreaming(it.ID))
}

func TestKey_StopWithNothingStreaming(t *testing.T) {
	f := newFixture(t)
	m := sized(New(f.st, f.ctl, plain()))
	m, cmd := step(t, m, keyMsg("s"))
	assert.Nil(t, cmd)
	assert.Equal(t, "nothing is streaming", m.statusMsg)
}

func TestKey_CopySelected(t *testing.T) {
	f := newFixture(t)
	first := f.start(t, "one")
	require.True(t, f.st.AppendChunk(first.ID, stream.Fragment{Kind: stream.KindText, Text: "first answer"}))
	require.NoError(t, f.st.FinalizeInteraction(context.Background(), first.ID, store.Finalization{}))
	second := f.start(t, "two")
	require.True(t, f.st.AppendChunk(second.ID, stream.Fragment{Kind: stream.KindText, Text: "second"}))
	require.NoError(t, f.st.FinalizeInteraction(context.Background(), second.ID, store.Finalization{}))

	var copied string
	m := sized(New(f.st, f.ctl, plain(), WithClipboard(func(s string) error {
		copied = s
		return nil
	})))

	m, _ = step(t, m, keyMsg("y"))
	assert.Equal(t, "second", copied)

	m, _ = step(t, m, keyMsg("["))
	m, _ = step(t, m, keyMsg("y"))
	assert.Equal(t, "first answer", copied)
	assert.Equal(t, "copied 12 characters", m.statusMsg)

	m, _ = step(t, m, keyMsg("["))
	assert.Equal(t, 0, m.selected)
	m, _ = step(t, m, keyMsg("]"))
	assert.True(t, m.follow)
}

func TestKey_CopyFailure(t *testing.T) {
	f := newFixture(t)
	f.start(t, "q")
	m := sized(New(f.st, f.ctl, plain(), WithClipboard(func(string) error {
		return errors.New("no clipboard")
	})))
	m, _ = step(t, m, keyMsg("y"))
	assert.Equal(t, "copy failed: no clipboard", m.statusMsg)
}

func TestKey_Replay(t *testing.T) {
	calls := 0
	m := sized(New(nil, nil, plain(), WithReplay(func(context.Context) error {
		calls++
		return nil
	})))

	m, cmd := step(t, m, keyMsg("n"))
	require.NotNil(t, cmd)
	assert.True(t, m.replaying)

	_, again := step(t, m, keyMsg("n"))
	assert.Nil(t, again)

	m, _ = step(t, m, cmd())
	assert.Equal(t, 1, calls)
	assert.False(t, m.replaying)
	assert.Equal(t, "replay finished", m.statusMsg)
}

func TestRequestFailureShownInFooter(t *testing.T) {
	m := sized(New(nil, nil, plain()))
	m, _ = step(t, m, requestDoneMsg{op: "stop", err: errors.New("boom")})
	assert.Contains(t, m.View(), "stop failed: boom")
}

// =============================================================================
// BRIDGE
// =============================================================================

func TestBind_ForwardsStoreEvents(t *testing.T) {
	bus := events.NewBus()
	var got []tea.Msg
	unbind := Bind(bus, func(msg tea.Msg) { got = append(got, msg) })

	bus.Publish(store.EventStatusChanged, store.StatusPayload{})
	bus.Publish(store.EventStreamBuffersChanged, store.BufferPayload{})
	require.Equal(t, []tea.Msg{StoreChangedMsg{Event: store.EventStatusChanged}}, got)

	unbind()
	bus.Publish(store.EventStatusChanged, store.StatusPayload{})
	assert.Len(t, got, 1)
}

func TestSnapshotSink(t *testing.T) {
	var got tea.Msg
	sink := SnapshotSink(func(msg tea.Msg) { got = msg })
	sink(render.Snapshot{InteractionID: "i1", Content: "x", Final: true})
	assert.Equal(t, SnapshotMsg{InteractionID: "i1", Content: "x", Final: true}, got)
}
