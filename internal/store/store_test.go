// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/storage"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

var errDiskFull = errors.New("disk full")

// fakeGateway wraps the memory gateway with failure injection and a way to
// hold a load in flight.
type fakeGateway struct {
	*storage.MemoryGateway

	mu          sync.Mutex
	saveErr     error
	loadErr     error
	gates       map[string]chan struct{}
	loadStarted chan string
	loads       int
	saves       []*interaction.Interaction
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		MemoryGateway: storage.NewMemoryGateway(),
		gates:         make(map[string]chan struct{}),
		loadStarted:   make(chan string, 16),
	}
}

func (g *fakeGateway) LoadInteractionsForConversation(ctx context.Context, id string) ([]*interaction.Interaction, error) {
	g.mu.Lock()
	g.loads++
	gate := g.gates[id]
	loadErr := g.loadErr
	g.mu.Unlock()

	g.loadStarted <- id
	if gate != nil {
		<-gate
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return g.MemoryGateway.LoadInteractionsForConversation(ctx, id)
}

func (g *fakeGateway) SaveInteraction(ctx context.Context, it *interaction.Interaction) error {
	g.mu.Lock()
	err := g.saveErr
	if err == nil {
		g.saves = append(g.saves, it.Clone())
	}
	g.mu.Unlock()
	if err != nil {
		return err
	}
	return g.MemoryGateway.SaveInteraction(ctx, it)
}

func (g *fakeGateway) hold(conv string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	gate := make(chan struct{})
	g.gates[conv] = gate
	return gate
}

func (g *fakeGateway) setSaveErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saveErr = err
}

func (g *fakeGateway) setLoadErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loadErr = err
}

func (g *fakeGateway) loadCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loads
}

func (g *fakeGateway) lastSave() *interaction.Interaction {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.saves) == 0 {
		return nil
	}
	return g.saves[len(g.saves)-1]
}

// recorder captures every event published on a bus.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) names() []events.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Name, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Name
	}
	return out
}

func (r *recorder) of(name events.Name) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	st  *Store
	gw  *fakeGateway
	bus *events.Bus
	rec *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := newFakeGateway()
	bus := events.NewBus()
	rec := &recorder{}
	bus.SubscribeAll(func(ev events.Event) {
		rec.mu.Lock()
		rec.events = append(rec.events, ev)
		rec.mu.Unlock()
	})

	clock := time.Unix(1700000000, 0)
	st := New(gw, bus, WithClock(func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}))
	return &fixture{st: st, gw: gw, bus: bus, rec: rec}
}

// activate selects conv and drains the loadStarted signal of its load, if
// one happened.
func (f *fixture) activate(t *testing.T, conv string) {
	t.Helper()
	require.NoError(t, f.st.SetCurrentConversationID(context.Background(), conv))
	for {
		select {
		case <-f.gw.loadStarted:
		default:
			return
		}
	}
}

func streamingItem(conv, id string, index int) *interaction.Interaction {
	return &interaction.Interaction{
		ID:             id,
		ConversationID: conv,
		Index:          index,
		Type:           interaction.TypeMessage,
		Status:         interaction.StatusStreaming,
		Prompt:         &interaction.Prompt{Content: "prompt " + id},
		StartedAt:      time.Unix(1700000000+int64(index), 0),
	}
}

func completedItem(conv, id string, index int, response string) *interaction.Interaction {
	it := streamingItem(conv, id, index)
	it.Status = interaction.StatusCompleted
	it.Response = interaction.Ptr(response)
	return it
}

// assertInvariants checks the properties that must hold after every operation.
func assertInvariants(t *testing.T, st *Store) {
	t.Helper()
	state := st.Snapshot()

	var streaming []string
	seen := map[string]bool{}
	for _, it := range state.Interactions {
		assert.Equal(t, state.ConversationID, it.ConversationID, "interaction %s outside active conversation", it.ID)
		assert.False(t, seen[it.ID], "interaction %s held twice", it.ID)
		seen[it.ID] = true
		if it.IsStreaming() {
			streaming = append(streaming, it.ID)
		}
		_, hasBuffer := st.Buffer(it.ID)
		assert.Equal(t, it.IsStreaming(), hasBuffer, "buffer presence for %s", it.ID)
	}
	sort.Strings(streaming)
	if streaming == nil {
		streaming = []string{}
	}
	assert.Equal(t, streaming, state.StreamingIDs, "streaming set equals STREAMING interactions")

	if len(state.StreamingIDs) > 0 {
		assert.Equal(t, StatusStreaming, state.Status)
	}
	for i := 1; i < len(state.Interactions); i++ {
		assert.Less(t, state.Interactions[i-1].Index, state.Interactions[i].Index, "ordered by index")
	}
}
