// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/metrics"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/storage"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
)

type fixedState struct{ state store.State }

func (f fixedState) Snapshot() store.State { return f.state }

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// =============================================================================
// HANDLER TESTS
// =============================================================================

func TestNew_DefaultAddr(t *testing.T) {
	s := New("", nil, nil, zerolog.Nop())
	assert.Equal(t, DefaultAddr, s.Addr())
}

func TestHandleHealth(t *testing.T) {
	s := New("", nil, nil, zerolog.Nop())
	w := serve(t, s, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.Empty(t, resp.StoreStatus)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestHandleHealth_DegradedOnStoreError(t *testing.T) {
	src := fixedState{store.State{Status: store.StatusError, Error: "boom"}}
	s := New("", src, nil, zerolog.Nop())

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(serve(t, s, http.MethodGet, "/healthz").Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "error", resp.StoreStatus)
}

func TestHandleState(t *testing.T) {
	st := store.New(storage.NewMemoryGateway(), events.NewBus())
	ctx := context.Background()
	require.NoError(t, st.SetCurrentConversationID(ctx, "c1"))
	it, err := st.StartInteraction(ctx, store.StartParams{})
	require.NoError(t, err)

	s := New("", st, nil, zerolog.Nop())
	w := serve(t, s, http.MethodGet, "/v1/state")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "c1", resp.ConversationID)
	assert.Equal(t, "streaming", resp.Status)
	assert.Equal(t, []string{it.ID}, resp.StreamingIDs)
	assert.Equal(t, 1, resp.Interactions)
}

func TestHandleState_NoSource(t *testing.T) {
	s := New("", nil, nil, zerolog.Nop())
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, s, http.MethodGet, "/v1/state").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.EventPublished("interaction.added")

	s := New("", nil, m, zerolog.Nop())
	w := serve(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "litechat_events_published_total")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	s := New("", nil, nil, zerolog.Nop())
	assert.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/metrics").Code)
}

func TestUnknownMethod(t *testing.T) {
	s := New("", nil, nil, zerolog.Nop())
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, s, http.MethodPost, "/healthz").Code)
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLoggingMiddleware_RecordsStatus(t *testing.T) {
	var buf strings.Builder
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	h := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tea", nil))

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/tea"`)
}

func TestTracingMiddleware_NamesSpanByRoute(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	s := New("", fixedState{state: store.State{Status: store.StatusIdle}}, nil, zerolog.Nop())
	w := serve(t, s, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /healthz", spans[0].Name())
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestStartShutdown(t *testing.T) {
	s := New("127.0.0.1:0", nil, metrics.New(), zerolog.Nop())
	require.NoError(t, s.Start())
	require.Error(t, s.Start())

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))
}
