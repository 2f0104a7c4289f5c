// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/storage"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/stream"
)

func setup(t *testing.T) (*Controller, *store.Store, *events.Bus, *storage.MemoryGateway) {
	t.Helper()
	gw := storage.NewMemoryGateway()
	require.NoError(t, gw.SaveInteraction(context.Background(), &interaction.Interaction{
		ID:             "a1",
		ConversationID: "c1",
		Type:           interaction.TypeMessage,
		Status:         interaction.StatusCompleted,
		Response:       interaction.Ptr("hi"),
		StartedAt:      time.Unix(1700000000, 0),
	}))
	bus := events.NewBus()
	st := store.New(gw, bus)
	return New(st, zerolog.Nop()), st, bus, gw
}

func TestController_PassThrough(t *testing.T) {
	ctx := context.Background()
	ctl, st, _, gw := setup(t)

	require.NoError(t, ctl.RequestSetActiveConversation(ctx, "c1"))
	assert.Len(t, st.Interactions(), 1)

	require.NoError(t, ctl.RequestRate(ctx, "a1", interaction.Ptr(1)))
	saved, err := gw.LoadInteractionsForConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, *saved[0].Rating)

	ctl.RequestSetError("boom")
	assert.Equal(t, store.StatusError, st.Status())
	ctl.RequestSetError("")
	assert.Equal(t, store.StatusIdle, st.Status())

	require.NoError(t, ctl.RequestSetStatus(store.StatusLoading))
	assert.Equal(t, store.StatusLoading, st.Status())
	assert.Error(t, ctl.RequestSetStatus("weird"))

	ctl.RequestClear()
	assert.Empty(t, st.Interactions())

	require.NoError(t, ctl.RequestLoad(ctx, "c1"))
	assert.Len(t, st.Interactions(), 1)
}

func TestController_BindHandlesRequestEvents(t *testing.T) {
	ctx := context.Background()
	ctl, st, bus, _ := setup(t)
	unbind := ctl.Bind(ctx, bus)

	bus.Publish(RequestSetConversationEvent, ConversationRequest{ConversationID: "c1"})
	assert.Equal(t, "c1", st.ConversationID())
	assert.Len(t, st.Interactions(), 1)

	bus.Publish(RequestRateEvent, RateRequest{InteractionID: "a1", Rating: interaction.Ptr(-1)})
	got, _ := st.Get("a1")
	assert.Equal(t, -1, *got.Rating)

	it, err := st.StartInteraction(ctx, store.StartParams{})
	require.NoError(t, err)
	st.AppendChunk(it.ID, stream.Text("partial"))
	bus.Publish(RequestStopEvent, InteractionRequest{InteractionID: it.ID})
	got, _ = st.Get(it.ID)
	assert.Equal(t, interaction.StatusError, got.Status)

	bus.Publish(RequestSetErrorEvent, ErrorRequest{Error: "nope"})
	assert.Equal(t, "nope", st.Error())

	bus.Publish(RequestClearEvent, nil)
	assert.Empty(t, st.Interactions())

	bus.Publish(RequestLoadEvent, ConversationRequest{ConversationID: "c1"})
	assert.Len(t, st.Interactions(), 2)

	unbind()
	bus.Publish(RequestClearEvent, nil)
	assert.Len(t, st.Interactions(), 2, "no longer bound")
}
