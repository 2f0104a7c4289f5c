// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/config"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/controller"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/render"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/replay"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	cfg.Log.Level = "disabled"
	cfg.UI.ReplayChunkMs = 0
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(Options{Config: cfg, LogOutput: io.Discard, TraceOutput: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Backend = "tape"
	_, err := New(Options{Config: cfg, LogOutput: io.Discard})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open storage")
}

func TestNew_CountsPublishedEvents(t *testing.T) {
	a := newApp(t, memoryConfig())
	require.NoError(t, a.Store.SetCurrentConversationID(context.Background(), "c1"))

	srv := httpGet(t, a)
	assert.Contains(t, srv, `litechat_events_published_total{event="interaction.conversation.changed"} 1`)
}

func httpGet(t *testing.T, a *App) string {
	t.Helper()
	a.Config.Metrics.Enabled = true
	a.Config.Metrics.ListenAddr = "127.0.0.1:0"
	srv, err := a.StartServer()
	require.NoError(t, err)
	require.NotNil(t, srv)

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestStartServer_Disabled(t *testing.T) {
	a := newApp(t, memoryConfig())
	srv, err := a.StartServer()
	require.NoError(t, err)
	assert.Nil(t, srv)
}

func TestReplayThroughPresenter(t *testing.T) {
	a := newApp(t, memoryConfig())
	ctx := context.Background()
	require.NoError(t, a.Store.SetCurrentConversationID(ctx, "c1"))

	var (
		mu    sync.Mutex
		final string
	)
	a.NewPresenter(func(s render.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.Final {
			final = s.Content
		}
	})

	it, err := a.Producer().Run(ctx, store.StartParams{
		Prompt: &interaction.Prompt{Content: "greet"},
	}, replay.Slice(replay.FromText("Hello there, world")))
	require.NoError(t, err)
	assert.Equal(t, interaction.StatusCompleted, it.Status)
	assert.Equal(t, "Hello there, world", it.ResponseText())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Hello there, world", final)
}

func TestRequestEventsReachStore(t *testing.T) {
	a := newApp(t, memoryConfig())
	a.Bus.Publish(controller.RequestSetConversationEvent, controller.ConversationRequest{ConversationID: "c7"})
	assert.Equal(t, "c7", a.Store.ConversationID())

	a.Bus.Publish(controller.RequestSetErrorEvent, controller.ErrorRequest{Error: "boom"})
	assert.Equal(t, store.StatusError, a.Store.Status())
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(Options{Config: memoryConfig(), LogOutput: io.Discard})
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))
}

func TestTracingExportsOnClose(t *testing.T) {
	cfg := memoryConfig()
	cfg.Tracing.Enabled = true
	var buf bytes.Buffer
	a, err := New(Options{Config: cfg, LogOutput: io.Discard, TraceOutput: &buf})
	require.NoError(t, err)

	require.NoError(t, a.Store.SetCurrentConversationID(context.Background(), "c1"))
	require.NoError(t, a.Close(context.Background()))
	assert.Contains(t, buf.String(), "store.LoadInteractions")
}

func TestWatchConfig_UpdatesGlobal(t *testing.T) {
	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)
	t.Setenv("LITECHAT_HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := memoryConfig()
	require.NoError(t, config.SaveTOML(cfg, path))

	a := newApp(t, cfg)
	p := a.NewPresenter(func(render.Snapshot) {})
	require.NoError(t, a.WatchConfig(context.Background(), path, p))

	changed := cfg.Clone()
	changed.Stream.TextFPS = 12
	require.NoError(t, config.SaveTOML(changed, path))

	require.Eventually(t, func() bool {
		return config.Global().Stream.TextFPS == 12
	}, 3*time.Second, 20*time.Millisecond)
}
