// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// TYPES
// =============================================================================

// Name identifies an event.
type Name string

// Event is what a handler receives.
type Event struct {
	Name      Name
	Payload   any
	Timestamp time.Time
}

// Handler receives events. It must not block for long: the publisher waits.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// =============================================================================
// BUS
// =============================================================================

// Bus is a synchronous, in-process event bus. It is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]subscription
	all      []subscription
	nextID   uint64
	log      zerolog.Logger
	observe  func(Name)
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for recovered handler panics.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Bus) { b.log = log }
}

// WithObserver registers a callback invoked once per published event before
// handlers run. Used for metrics.
func WithObserver(fn func(Name)) Option {
	return func(b *Bus) { b.observe = fn }
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[Name][]subscription),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h for events named name and returns a function that
// removes the subscription. Calling it more than once is harmless.
func (b *Bus) Subscribe(name Name, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[name] = append(b.handlers[name], subscription{id: id, handler: h})

	return func() { b.unsubscribe(name, id) }
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = removeSubscription(b.all, id)
	}
}

func (b *Bus) unsubscribe(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := removeSubscription(b.handlers[name], id)
	if len(subs) == 0 {
		delete(b.handlers, name)
		return
	}
	b.handlers[name] = subs
}

func removeSubscription(subs []subscription, id uint64) []subscription {
	for i, s := range subs {
		if s.id == id {
			out := make([]subscription, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			return append(out, subs[i+1:]...)
		}
	}
	return subs
}

// Publish delivers an event to the named handlers and then to the wildcard
// handlers. Handlers subscribed during delivery see the next event, not this one.
func (b *Bus) Publish(name Name, payload any) {
	b.mu.RLock()
	named := b.handlers[name]
	all := b.all
	observe := b.observe
	b.mu.RUnlock()

	if observe != nil {
		observe(name)
	}

	ev := Event{Name: name, Payload: payload, Timestamp: time.Now()}
	for _, s := range named {
		b.deliver(s.handler, ev)
	}
	for _, s := range all {
		b.deliver(s.handler, ev)
	}
}

func (b *Bus) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("event", string(ev.Name)).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	h(ev)
}

// HandlerCount returns the number of handlers registered for name.
func (b *Bus) HandlerCount(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// Reset removes every subscription.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[Name][]subscription)
	b.all = nil
}

// =============================================================================
// TYPED HELPERS
// =============================================================================

// SubscribeTo registers a handler that only receives payloads of type T.
// Events of the same name carrying another payload type are ignored.
func SubscribeTo[T any](b *Bus, name Name, fn func(T)) func() {
	return b.Subscribe(name, func(ev Event) {
		if p, ok := ev.Payload.(T); ok {
			fn(p)
		}
	})
}

// =============================================================================
// PROCESS-WIDE BUS
// =============================================================================

var (
	defaultMu  sync.Mutex
	defaultBus *Bus
)

// Default returns the process-wide bus, creating it on first use.
func Default() *Bus {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBus == nil {
		defaultBus = NewBus()
	}
	return defaultBus
}

// SetDefault replaces the process-wide bus.
func SetDefault(b *Bus) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBus = b
}

// ResetDefaultForTesting drops the process-wide bus so the next Default call
// builds a fresh one.
func ResetDefaultForTesting() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBus = nil
}
