// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/metrics"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
)

// Source resolves an interaction by ID. *store.Store satisfies it.
type Source interface {
	Get(id string) (*interaction.Interaction, bool)
}

// =============================================================================
// PRESENTER
// =============================================================================

// Presenter turns the store's buffer events into throttled display
// snapshots, one Throttle per streaming interaction. When an interaction
// leaves the streaming set its committed response is flushed immediately
// as the final snapshot.
//
// The sink may be called from timer goroutines and must be safe for
// concurrent use.
type Presenter struct {
	mu        sync.Mutex
	bus       *events.Bus
	source    Source
	sink      func(Snapshot)
	sched     Scheduler
	intervals Intervals
	log       zerolog.Logger
	metrics   *metrics.Metrics

	throttles map[string]*Throttle
	displayed map[string]string
	unsub     []func()
}

// PresenterOption configures a Presenter.
type PresenterOption func(*Presenter)

// WithScheduler sets the clock used for throttling.
func WithScheduler(s Scheduler) PresenterOption {
	return func(p *Presenter) { p.sched = s }
}

// WithIntervals sets the initial refresh intervals.
func WithIntervals(iv Intervals) PresenterOption {
	return func(p *Presenter) { p.intervals = iv }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) PresenterOption {
	return func(p *Presenter) { p.log = log }
}

// WithMetrics records flush counts.
func WithMetrics(m *metrics.Metrics) PresenterOption {
	return func(p *Presenter) { p.metrics = m }
}

// NewPresenter creates a presenter. Call Start to begin listening.
func NewPresenter(bus *events.Bus, source Source, sink func(Snapshot), opts ...PresenterOption) *Presenter {
	p := &Presenter{
		bus:       bus,
		source:    source,
		sink:      sink,
		sched:     WallClock(),
		intervals: DefaultIntervals(),
		log:       zerolog.Nop(),
		throttles: make(map[string]*Throttle),
		displayed: make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil {
		p.sink = func(Snapshot) {}
	}
	return p
}

// Start subscribes to the store's events.
func (p *Presenter) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsub != nil {
		return
	}
	p.unsub = []func(){
		events.SubscribeTo(p.bus, store.EventStreamBuffersChanged, p.onBuffer),
		events.SubscribeTo(p.bus, store.EventStreamingIDsChanged, p.onStreamingIDs),
	}
}

// Close unsubscribes and cancels every pending flush.
func (p *Presenter) Close() {
	p.mu.Lock()
	unsub := p.unsub
	p.unsub = nil
	throttles := p.throttles
	p.throttles = make(map[string]*Throttle)
	p.mu.Unlock()

	for _, fn := range unsub {
		fn()
	}
	for _, th := range throttles {
		th.Stop()
	}
}

// SetIntervals changes the refresh rates of current and future streams.
func (p *Presenter) SetIntervals(iv Intervals) {
	p.mu.Lock()
	p.intervals = iv
	active := make([]*Throttle, 0, len(p.throttles))
	for _, th := range p.throttles {
		active = append(active, th)
	}
	p.mu.Unlock()

	for _, th := range active {
		th.SetIntervals(iv)
	}
}

// Displayed returns the last snapshot content delivered for id while its
// stream is live. Finished streams are no longer tracked.
func (p *Presenter) Displayed(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	content, ok := p.displayed[id]
	return content, ok
}

// Active returns the IDs with a live throttle, sorted.
func (p *Presenter) Active() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.throttles))
	for id := range p.throttles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

func (p *Presenter) onBuffer(ev store.BufferPayload) {
	if ev.Removed {
		return
	}
	th := p.throttle(ev.InteractionID)
	switch {
	case ev.Replaced:
		th.Replace(ev.Content)
	case ev.Content != "":
		th.Update(ev.Content)
	}
}

func (p *Presenter) onStreamingIDs(ev store.StreamingIDsPayload) {
	for _, id := range ev.Removed {
		p.mu.Lock()
		th, ok := p.throttles[id]
		delete(p.throttles, id)
		p.mu.Unlock()
		if !ok {
			continue
		}

		it, found := p.source.Get(id)
		if !found {
			// dropped with its conversation
			th.Stop()
			p.forget(id)
			continue
		}
		final := th.Latest()
		if it.Status.IsTerminal() && it.Response != nil {
			final = *it.Response
		}
		th.Finish(final)
		p.forget(id)
		p.log.Debug().Str("interaction_id", id).Int("flushes", th.Flushes()).Msg("stream display finished")
	}
}

// throttle returns the throttle for id, creating it on first use.
func (p *Presenter) throttle(id string) *Throttle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if th, ok := p.throttles[id]; ok {
		return th
	}
	th := NewThrottle(id, p.sched, p.intervals, p.deliver)
	p.throttles[id] = th
	return th
}

func (p *Presenter) deliver(snap Snapshot) {
	p.mu.Lock()
	p.displayed[snap.InteractionID] = snap.Content
	p.mu.Unlock()

	p.metrics.Flush(snap.Final)
	p.sink(snap)
}

func (p *Presenter) forget(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.displayed, id)
}
